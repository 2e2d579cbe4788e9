package push

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestBatches(t *testing.T) {
	t.Parallel()

	messages := make([]Message, 1203)
	for i := range messages {
		messages[i] = Message{Token: "token"}
	}

	batches := Batches(messages, FCMMaxBatchSize)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 500 || len(batches[1]) != 500 || len(batches[2]) != 203 {
		t.Fatalf("unexpected batch sizes: %d, %d, %d", len(batches[0]), len(batches[1]), len(batches[2]))
	}

	if got := Batches(nil, 10); got != nil {
		t.Fatalf("expected nil for empty input, got %#v", got)
	}
	if got := Batches(messages[:3], 0); len(got) != 1 || len(got[0]) != 3 {
		t.Fatalf("expected single batch when size is not positive, got %d", len(got))
	}
}

func TestDisabledReportsChannelUnavailable(t *testing.T) {
	t.Parallel()

	results, err := Disabled{}.Send(context.Background(), []Message{{Token: "a"}})
	if !errors.Is(err, ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
	if results != nil {
		t.Fatalf("expected no results, got %#v", results)
	}
}

func TestLogSenderDeliversEverything(t *testing.T) {
	t.Parallel()

	sender := NewLogSender(slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	if sender.MaxBatchSize() != FCMMaxBatchSize {
		t.Fatalf("expected default batch size %d, got %d", FCMMaxBatchSize, sender.MaxBatchSize())
	}

	results, err := sender.Send(context.Background(), []Message{{Token: "device-token-1"}, {Token: "x"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, result := range results {
		if !result.Delivered() {
			t.Fatalf("expected delivery for %s", result.Token)
		}
	}
}

func TestMaskToken(t *testing.T) {
	t.Parallel()

	if got := maskToken("short"); got != "****" {
		t.Fatalf("expected short tokens to be fully masked, got %q", got)
	}
	if got := maskToken("abcdefghijklmnop"); got != "****klmnop" {
		t.Fatalf("unexpected mask %q", got)
	}
}
