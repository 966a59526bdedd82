// Package events publishes committed economy changes to NATS so other
// services can follow a round without polling the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
)

const subjectPrefix = "syndicate.game."

type Event struct {
	Type     string         `json:"type"`
	GameID   int64          `json:"game_id"`
	PlayerID string         `json:"player_id,omitempty"`
	UserID   string         `json:"user_id,omitempty"`
	At       time.Time      `json:"at"`
	Data     map[string]any `json:"data,omitempty"`
}

// Subject is syndicate.game.<id>.<type>.
func (e Event) Subject() string {
	return subjectPrefix + strconv.FormatInt(e.GameID, 10) + "." + e.Type
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events. It is used when NATS is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type NATS struct {
	conn *nats.Conn
}

func ConnectNATS(url, token string) (*NATS, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Name("syndicate"),
		nats.MaxReconnects(-1),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATS{conn: conn}, nil
}

func (n *NATS) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := n.conn.Publish(e.Subject(), payload); err != nil {
		return fmt.Errorf("publish %s: %w", e.Subject(), err)
	}
	return nil
}

// Close flushes buffered messages and closes the connection.
func (n *NATS) Close() {
	if n == nil || n.conn == nil {
		return
	}
	_ = n.conn.Drain()
}
