package gameserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/protocol"
	"github.com/udisondev/growgo/internal/testutil"
	"github.com/udisondev/growgo/internal/world"
)

func say(text string) []byte {
	return testutil.ActionFrame("action|input", "text|"+text)
}

func TestChat_BroadcastsToWorld(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")
	f.login(2, "u2", "Bob")
	f.join(1, "START")
	f.join(2, "START")
	f.host.Reset(1)
	f.host.Reset(2)

	require.NoError(t, f.dispatch(1, say("  hello there  ")))

	for _, conn := range []uint32{1, 2} {
		calls := testutil.Calls(t, f.sent(conn))
		require.Len(t, calls, 2, "conn %d", conn)
		assert.Equal(t, "OnTalkBubble", calls[0].Name)
		assert.Equal(t, f.peer(1).NetID(), calls[0].Args[0])
		assert.Equal(t, "hello there", calls[0].Args[1])
		assert.Equal(t, "CP:0_PL:0_OID:_CT:[W]_ <`wAlice``> hello there", calls[1].Args[0])
	}
}

func TestChat_Truncated(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")
	f.join(1, "START")
	f.host.Reset(1)

	require.NoError(t, f.dispatch(1, say(strings.Repeat("a", 300))))

	calls := testutil.Calls(t, f.sent(1))
	require.NotEmpty(t, calls)
	assert.Len(t, calls[0].Args[1], maxChatLength)
}

func TestChat_OutsideWorldDropped(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")

	require.NoError(t, f.dispatch(1, say("anyone?")))
	require.NoError(t, f.dispatch(1, say("   ")))
	assert.Empty(t, f.sent(1))
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"ping", "/ping", []string{"`6/ping``", "Pong!"}},
		{"case insensitive", "/PING", []string{"`6/PING``", "Pong!"}},
		{"unknown", "/fly", []string{"`6/fly``", msgUnknownCommand}},
		{"bare slash", "/", []string{"`6/``", msgUnknownCommand}},
		{"role too low", "/stats", []string{"`6/stats``", msgNoPermission}},
		{"who outside world", "/who", []string{"`6/who``", "You are not in a world."}},
		{"weather usage", "/weather", []string{"`6/weather``", "Usage: /weather <id>"}},
		{"password masked", "/password secret", []string{"`6/password ****``", "`2Password updated.``"}},
		{"password too short", "/password abc", []string{"`6/password ****``", "`4password must be at least 5 characters``"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.login(1, "u1", "Alice")

			require.NoError(t, f.dispatch(1, say(tt.text)))
			assert.Equal(t, tt.want, testutil.ConsoleMessages(t, f.sent(1)))
		})
	}
}

func TestCommand_PasswordStoresHash(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")

	require.NoError(t, f.dispatch(1, say("/password secret")))

	pl, ok := f.store.Player("u1")
	require.True(t, ok)
	assert.NotEmpty(t, pl.PasswordHash)
	assert.NotEqual(t, "secret", pl.PasswordHash)
}

func TestCommand_Who(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")
	f.login(2, "u2", "Bob")
	f.join(1, "START")
	f.join(2, "START")
	f.host.Reset(1)

	require.NoError(t, f.dispatch(1, say("/who")))
	assert.Contains(t, testutil.ConsoleMessages(t, f.sent(1)), "Who's here: Alice, Bob")
}

func TestCommand_Weather(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")
	f.login(2, "u2", "Bob")
	f.join(1, "START")
	f.join(2, "START")
	f.host.Reset(2)

	require.NoError(t, f.dispatch(1, say("/weather 3")))

	calls := testutil.Calls(t, f.sent(2))
	require.Len(t, calls, 1)
	assert.Equal(t, "OnSetCurrentWeather", calls[0].Name)
	assert.Equal(t, []any{int32(3)}, calls[0].Args)
	f.withWorld("START", func(w *world.World) {
		assert.Equal(t, uint16(3), w.Weather)
		assert.True(t, w.Dirty())
	})
}

func TestCommand_DeveloperStats(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")
	_, ok := f.srv.handler.update(1, func(p *model.Peer) { p.Role = model.RoleDeveloper })
	require.True(t, ok)

	require.NoError(t, f.dispatch(1, say("/stats")))
	assert.Equal(t,
		[]string{"`6/stats``", "Instance `w0``: `w1`` peers, `w1`` sessions, `w0`` worlds loaded."},
		testutil.ConsoleMessages(t, f.sent(1)))
}

func TestCommand_Cooldown(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")

	require.NoError(t, f.dispatch(1, say("/ping")))
	require.NoError(t, f.dispatch(1, say("/ping")))

	msgs := testutil.ConsoleMessages(t, f.sent(1))
	require.Len(t, msgs, 4)
	assert.Equal(t, "Pong!", msgs[1])
	assert.Equal(t, "`6/ping`` on cooldown, try again in 60s", msgs[3])
}

func TestCommand_Help(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")

	require.NoError(t, f.dispatch(1, say("/help")))

	msgs := testutil.ConsoleMessages(t, f.sent(1))
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1], "/ping")
	assert.NotContains(t, msgs[1], "/stats", "commands above the player's role are hidden")
}

func TestReloadCommands(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")

	f.srv.ReloadCommands(map[string]Command{
		"hi": {
			Usage:   "/hi",
			MinRole: model.RoleBasic,
			Run: func(_ context.Context, h *Handler, p model.Peer, args []string) error {
				h.send(p.ConnID, protocol.ConsoleMessage("hi "+strings.Join(args, " ")))
				return nil
			},
		},
	})

	require.NoError(t, f.dispatch(1, say("/hi there")))
	require.NoError(t, f.dispatch(1, say("/ping")))
	assert.Equal(t,
		[]string{"`6/hi there``", "hi there", "`6/ping``", msgUnknownCommand},
		testutil.ConsoleMessages(t, f.sent(1)))
}

func TestCooldowns(t *testing.T) {
	c := NewCooldowns(time.Minute, 2)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	a := Holder{Conn: 1}
	b := Holder{Conn: 2}

	ok, _ := c.Use("ping", a)
	assert.True(t, ok)
	ok, _ = c.Use("ping", a)
	assert.True(t, ok)

	now = now.Add(15 * time.Second)
	ok, wait := c.Use("ping", a)
	assert.False(t, ok)
	assert.Equal(t, 45*time.Second, wait)

	ok, _ = c.Use("ping", b)
	assert.True(t, ok, "limits are per connection")
	ok, _ = c.Use("who", a)
	assert.True(t, ok, "limits are per command")

	now = now.Add(time.Minute)
	ok, _ = c.Use("ping", a)
	assert.True(t, ok, "a new window starts after the old one passed")

	c.Clear(a)
	assert.Equal(t, 1, c.Len())
}

func TestCooldowns_Disabled(t *testing.T) {
	c := NewCooldowns(0, 1)
	for range 10 {
		ok, _ := c.Use("ping", Holder{Conn: 1})
		require.True(t, ok)
	}
	assert.Zero(t, c.Len())
}

func TestCooldowns_TimerRemovesRecord(t *testing.T) {
	c := NewCooldowns(20*time.Millisecond, 1)
	ok, _ := c.Use("ping", Holder{Conn: 1})
	require.True(t, ok)
	require.Equal(t, 1, c.Len())

	testutil.WaitFor(t, func() bool { return c.Len() == 0 }, time.Second)
}
