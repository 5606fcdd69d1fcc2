// Package cluster propagates session claims between game server processes
// so a user logged in on one process is evicted everywhere else.
package cluster

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"
)

// ClaimSubject carries session claims.
const ClaimSubject = "growgo.session.claim"

// Claim announces that a user now holds a session on Origin.
type Claim struct {
	UserID   string `msgpack:"user"`
	Origin   string `msgpack:"origin"`
	Instance int    `msgpack:"instance"`
	ConnID   uint32 `msgpack:"conn"`
}

// Bus publishes and receives claims over NATS.
type Bus struct {
	conn *nats.Conn
	id   string
}

// Connect dials the NATS server at url and tags every claim with a fresh process id.
func Connect(url string) (*Bus, error) {
	id := uuid.NewString()
	conn, err := nats.Connect(url,
		nats.Name("growgo-"+id),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats %s: %w", url, err)
	}
	return &Bus{conn: conn, id: id}, nil
}

// ID is this process's origin tag.
func (b *Bus) ID() string {
	return b.id
}

// PublishClaim announces a claim. Delivery is best effort.
func (b *Bus) PublishClaim(ctx context.Context, c Claim) error {
	c.Origin = b.id
	data, err := msgpack.Marshal(&c)
	if err != nil {
		return fmt.Errorf("encoding claim: %w", err)
	}
	if err := b.conn.Publish(ClaimSubject, data); err != nil {
		return fmt.Errorf("publishing claim for %s: %w", c.UserID, err)
	}
	return nil
}

// Subscribe delivers claims published by other processes to handler.
// The returned function removes the subscription.
func (b *Bus) Subscribe(handler func(Claim)) (func(), error) {
	sub, err := b.conn.Subscribe(ClaimSubject, func(msg *nats.Msg) {
		var c Claim
		if err := msgpack.Unmarshal(msg.Data, &c); err != nil {
			slog.Warn("dropping malformed claim", "error", err)
			return
		}
		if c.Origin == b.id {
			return
		}
		handler(c)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", ClaimSubject, err)
	}
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Close drains pending messages and closes the connection.
func (b *Bus) Close() error {
	return b.conn.Drain()
}
