package syncq

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestPushAndLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	got, err := Load()
	if err != nil || len(got) != 0 {
		t.Fatalf("empty queue got %v, %v", got, err)
	}
	if err := Push(Command{Method: "POST", Path: "/v1/games/1/bank/withdraw", IdempotencyKey: "a"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := Push(Command{Method: "POST", Path: "/v1/games/1/bank/deposit", Body: map[string]any{"amount": "10"}, IdempotencyKey: "b"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	got, err = Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].IdempotencyKey != "a" || got[1].Body["amount"] != "10" {
		t.Fatalf("queue %+v", got)
	}
	if got[0].QueuedAt.IsZero() {
		t.Fatalf("queued_at not set")
	}
}

func TestReplayStopsAndKeepsRemainder(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"a", "b", "c", "d"} {
		if err := Push(Command{Method: "POST", Path: "/x", IdempotencyKey: key}); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	rejected := errors.New("api status 409")
	results, err := Replay(context.Background(), func(_ context.Context, cmd Command) error {
		switch cmd.IdempotencyKey {
		case "b":
			return rejected
		case "c":
			return fmt.Errorf("dial: %w", ErrStop)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(results) != 2 || results[0].Err != nil || !errors.Is(results[1].Err, rejected) {
		t.Fatalf("results %+v", results)
	}
	left, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(left) != 2 || left[0].IdempotencyKey != "c" || left[1].IdempotencyKey != "d" {
		t.Fatalf("remaining %+v", left)
	}
}
