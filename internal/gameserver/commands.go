package gameserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/udisondev/growgo/internal/login"
	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/protocol"
	"github.com/udisondev/growgo/internal/world"
)

// Command is a slash command available in chat.
type Command struct {
	Usage       string
	Description string
	MinRole     model.Role
	Run         func(ctx context.Context, h *Handler, p model.Peer, args []string) error
}

// DefaultCommands returns the built-in command table.
func DefaultCommands() map[string]Command {
	return map[string]Command{
		"help": {
			Usage:       "/help",
			Description: "List the commands you can use.",
			MinRole:     model.RoleBasic,
			Run:         cmdHelp,
		},
		"ping": {
			Usage:       "/ping",
			Description: "Check that the server is alive.",
			MinRole:     model.RoleBasic,
			Run: func(_ context.Context, h *Handler, p model.Peer, _ []string) error {
				h.send(p.ConnID, protocol.ConsoleMessage("Pong!"))
				return nil
			},
		},
		"who": {
			Usage:       "/who",
			Description: "List the players in this world.",
			MinRole:     model.RoleBasic,
			Run:         cmdWho,
		},
		"weather": {
			Usage:       "/weather <id>",
			Description: "Change the weather of a world you may build in.",
			MinRole:     model.RoleBasic,
			Run:         cmdWeather,
		},
		"password": {
			Usage:       "/password <new password>",
			Description: "Set the password for name and password logins.",
			MinRole:     model.RoleBasic,
			Run:         cmdPassword,
		},
		"stats": {
			Usage:       "/stats",
			Description: "Show server statistics.",
			MinRole:     model.RoleDeveloper,
			Run:         cmdStats,
		},
	}
}

// runCommand executes a slash command line for p.
func (h *Handler) runCommand(ctx context.Context, p model.Peer, text string) error {
	fields := strings.Fields(strings.TrimPrefix(text, "/"))
	echo := text
	if len(fields) > 1 && strings.EqualFold(fields[0], "password") {
		echo = "/" + fields[0] + " ****"
	}
	h.send(p.ConnID, protocol.ConsoleMessage("`6"+echo+"``"))
	if len(fields) == 0 {
		h.send(p.ConnID, protocol.ConsoleMessage(msgUnknownCommand))
		return nil
	}
	name := strings.ToLower(fields[0])
	cmd, ok := (*h.commands.Load())[name]
	if !ok {
		h.send(p.ConnID, protocol.ConsoleMessage(msgUnknownCommand))
		return nil
	}
	if p.Role < cmd.MinRole {
		h.send(p.ConnID, protocol.ConsoleMessage(msgNoPermission))
		return nil
	}
	if ok, wait := h.cooldowns.Use(name, h.holder(p.ConnID)); !ok {
		secs := int(math.Ceil(wait.Seconds()))
		h.send(p.ConnID, protocol.ConsoleMessage(fmt.Sprintf("`6/%s`` on cooldown, try again in %ds", name, secs)))
		return nil
	}
	if err := cmd.Run(ctx, h, p, fields[1:]); err != nil {
		return fmt.Errorf("command %s: %w", name, err)
	}
	return nil
}

func cmdHelp(_ context.Context, h *Handler, p model.Peer, _ []string) error {
	cmds := *h.commands.Load()
	names := make([]string, 0, len(cmds))
	for name, c := range cmds {
		if p.Role >= c.MinRole {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	var b strings.Builder
	b.WriteString("Commands:")
	for _, name := range names {
		fmt.Fprintf(&b, "\n`w%s`` - %s", cmds[name].Usage, cmds[name].Description)
	}
	h.send(p.ConnID, protocol.ConsoleMessage(b.String()))
	return nil
}

func cmdWho(_ context.Context, h *Handler, p model.Peer, _ []string) error {
	if p.World == "" {
		h.send(p.ConnID, protocol.ConsoleMessage("You are not in a world."))
		return nil
	}
	var names []string
	for _, m := range h.hub.Members(p.World) {
		names = append(names, m.DisplayName)
	}
	slices.Sort(names)
	h.send(p.ConnID, protocol.ConsoleMessage(fmt.Sprintf("Who's here: %s", strings.Join(names, ", "))))
	return nil
}

func cmdWeather(_ context.Context, h *Handler, p model.Peer, args []string) error {
	if len(args) != 1 {
		h.send(p.ConnID, protocol.ConsoleMessage("Usage: /weather <id>"))
		return nil
	}
	id, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		h.send(p.ConnID, protocol.ConsoleMessage("Usage: /weather <id>"))
		return nil
	}
	err = h.act(p, func(w *world.World, n *notices) error {
		if !w.HasPermission(actorOf(p), world.PermBuild) {
			n.ToActor(protocol.ConsoleMessage(msgNoPermission))
			return nil
		}
		w.Weather = uint16(id)
		w.MarkDirty()
		n.ToWorld(protocol.Call("OnSetCurrentWeather", []any{int(id)}))
		return nil
	})
	if errors.Is(err, ErrNotInWorld) {
		h.send(p.ConnID, protocol.ConsoleMessage("You are not in a world."))
		return nil
	}
	return err
}

func cmdPassword(ctx context.Context, h *Handler, p model.Peer, args []string) error {
	if len(args) != 1 {
		h.send(p.ConnID, protocol.ConsoleMessage("Usage: /password <new password>"))
		return nil
	}
	hash, err := login.HashPassword(args[0])
	if err != nil {
		h.send(p.ConnID, protocol.ConsoleMessage(fmt.Sprintf("`4%s``", err)))
		return nil
	}
	if err := h.players.SetPassword(ctx, p.UserID, hash); err != nil {
		h.send(p.ConnID, protocol.ConsoleMessage("`4Could not save your password.``"))
		return err
	}
	h.send(p.ConnID, protocol.ConsoleMessage("`2Password updated.``"))
	return nil
}

func cmdStats(_ context.Context, h *Handler, p model.Peer, _ []string) error {
	h.send(p.ConnID, protocol.ConsoleMessage(fmt.Sprintf(
		"Instance `w%d``: `w%d`` peers, `w%d`` sessions, `w%d`` worlds loaded.",
		h.instance, h.peers.Len(), h.hub.Registry().Len(), h.hub.Worlds().Len())))
	return nil
}
