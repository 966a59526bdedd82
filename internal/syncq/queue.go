// Package syncq keeps economy commands that could not reach the API so
// `synd sync` can replay them later. Each command keeps the idempotency key
// it was first sent with, so a replay of a command the server already
// applied is rejected instead of applied twice.
package syncq

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

type Command struct {
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	Body           map[string]any `json:"body,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
	QueuedAt       time.Time      `json:"queued_at"`
}

// ErrStop tells Replay to keep the current command and every later one.
var ErrStop = errors.New("stop replay")

func queuePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".synd")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.json"), nil
}

func Load() ([]Command, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Command{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Command{}, nil
	}
	var out []Command
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func Save(commands []Command) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func Push(cmd Command) error {
	commands, err := Load()
	if err != nil {
		return err
	}
	if cmd.QueuedAt.IsZero() {
		cmd.QueuedAt = time.Now().UTC()
	}
	commands = append(commands, cmd)
	return Save(commands)
}

// Result is the outcome of replaying one command.
type Result struct {
	Command Command
	Err     error
}

// Replay sends queued commands in order. A command is removed from the
// queue once send returns, whatever the outcome, unless send wraps ErrStop:
// then that command and the rest stay queued for the next replay.
func Replay(ctx context.Context, send func(context.Context, Command) error) ([]Result, error) {
	commands, err := Load()
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(commands))
	done := 0
	for _, cmd := range commands {
		if err := ctx.Err(); err != nil {
			break
		}
		err := send(ctx, cmd)
		if errors.Is(err, ErrStop) {
			break
		}
		results = append(results, Result{Command: cmd, Err: err})
		done++
	}
	if err := Save(commands[done:]); err != nil {
		return results, err
	}
	return results, nil
}
