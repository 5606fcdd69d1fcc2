package gameserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/udisondev/growgo/internal/login"
	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/protocol"
)

const supermainCall = "OnSuperMainStartAcceptLogonHrdxs47254722215a"

// handleLogin runs the credential step of the session machine:
// Connected -> TokenPresented -> Authenticated, or back to Connected on a
// rejected token.
func (h *Handler) handleLogin(ctx context.Context, conn uint32, f protocol.Fields) error {
	token := f.Get("ltoken")
	if token == "" && f.Has("tankIDName") {
		token = f.Get("tankIDPass")
	}
	if token == "" {
		slog.Debug("text frame without credentials", "conn", conn)
		return nil
	}

	var from model.SessionState
	ok := h.peers.Modify(conn, func(p model.Peer) model.Peer {
		from = p.State
		if p.State == model.StateConnected {
			p.State = model.StateTokenPresented
		}
		return p
	})
	if !ok {
		return ErrPeerGone
	}
	if from != model.StateConnected {
		return fmt.Errorf("%w: login in %s", ErrBadState, from)
	}

	sess, err := h.authenticate(ctx, token, f.Get("tankIDName"))
	if err != nil {
		h.update(conn, func(p *model.Peer) { p.State = model.StateConnected })
		h.send(conn, protocol.ConsoleMessage(msgSessionExpired))
		if errors.Is(err, login.ErrInvalidToken) || errors.Is(err, login.ErrSessionExpired) {
			slog.Info("login rejected", "conn", conn, "reason", err)
			return nil
		}
		return fmt.Errorf("validating token: %w", err)
	}

	version := h.requiredVersion()
	if !h.cfg.BypassVersionCheck {
		if got := f.Get("game_version"); got != version {
			h.send(conn,
				protocol.Log(updateRequired(version)),
				protocol.EncodeText(protocol.TagAction,
					"action|set_url",
					"url|"+h.cfg.Client.UpdateURL,
					"label|Download Latest Version"),
			)
			if err := h.host.Disconnect(conn); err != nil {
				slog.Debug("disconnect", "conn", conn, "error", err)
			}
			return fmt.Errorf("%w: client %q, server %q", ErrVersionMismatch, got, version)
		}
	}

	// Claim first so a previous holder is saved before the record is read.
	h.hub.Claim(ctx, sess.UserID, h.holder(conn))
	if err := h.hub.playerSaves.wait(ctx, sess.UserID); err != nil {
		h.hub.Registry().Release(sess.UserID, h.holder(conn))
		h.update(conn, func(p *model.Peer) { p.State = model.StateConnected })
		h.send(conn, protocol.ConsoleMessage(msgLoginFailed))
		return fmt.Errorf("waiting for save of %s: %w", sess.UserID, err)
	}

	pl, err := h.players.GetOrCreatePlayer(ctx, sess.UserID, model.PlayerDefaults{
		Name:        sess.Username,
		DisplayName: sess.Username,
	})
	if err != nil {
		h.hub.Registry().Release(sess.UserID, h.holder(conn))
		h.update(conn, func(p *model.Peer) { p.State = model.StateConnected })
		h.send(conn, protocol.ConsoleMessage(msgLoginFailed))
		return fmt.Errorf("loading player of %s: %w", sess.UserID, err)
	}

	// A login of the same user may have claimed the session while the record
	// was loading; the claim is checked under the peer lock so a later kick
	// always sees the authenticated peer.
	platform := f.Get("platformID")
	var taken bool
	p, ok := h.update(conn, func(p *model.Peer) {
		if cur, held := h.hub.Registry().Lookup(sess.UserID); !held || cur != h.holder(conn) {
			taken = true
			p.State = model.StateConnected
			return
		}
		p.Load(pl)
		p.Authenticated = true
		p.Platform = platform
		p.ClientVersion = f.Get("game_version")
		p.State = model.StateAuthenticated
	})
	if !ok {
		h.hub.Registry().Release(sess.UserID, h.holder(conn))
		return ErrPeerGone
	}
	if taken {
		h.send(conn, protocol.ConsoleMessage(msgAlreadyLoggedIn))
		return fmt.Errorf("%w: user %s", ErrSessionTaken, sess.UserID)
	}

	cat := h.catalogs.ForPlatform(platform)
	h.send(conn,
		protocol.Call(supermainCall, []any{
			cat.Hash(),
			h.cfg.Catalog.CDNHost,
			h.cfg.Catalog.CDNPath,
			h.cfg.Client.AntiCheat,
			h.cfg.Client.ClientConf,
			0,
		}),
		protocol.Call("SetHasGrowID", []any{1, p.Name, ""}),
	)
	slog.Info("player logged in", "instance", h.instance, "conn", conn, "player", p.Name, "user", p.UserID)
	return nil
}

// authenticate validates a session token. A token the validator does not
// know is tried as a legacy password when a name was sent and password
// logins are enabled.
func (h *Handler) authenticate(ctx context.Context, token, name string) (model.Session, error) {
	sess, err := h.validator.Validate(ctx, token)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, login.ErrInvalidToken) || h.passwords == nil || name == "" {
		return model.Session{}, err
	}
	return h.passwords.Authenticate(ctx, name, token)
}

// handleAppCheck completes the handshake. Repeats are ignored.
func (h *Handler) handleAppCheck(conn uint32) error {
	var first bool
	_, ok := h.update(conn, func(p *model.Peer) {
		if !p.Authenticated || p.LoggedIn {
			return
		}
		p.LoggedIn = true
		p.State = model.StateWorldJoinable
		first = true
	})
	if !ok {
		return ErrPeerGone
	}
	if first {
		h.send(conn, protocol.Call("SetHasGottenChatAccess", []any{1}))
	}
	return nil
}

// requiredVersion is the client version the gate admits: the configured
// game_version, or the catalog version when none is set.
func (h *Handler) requiredVersion() string {
	if h.cfg.GameVersion != "" {
		return h.cfg.GameVersion
	}
	return h.catalogs.Version()
}
