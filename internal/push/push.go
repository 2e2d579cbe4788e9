// Package push delivers best-effort device notifications.
//
// A Sender accepts batches no larger than MaxBatchSize and reports a Result
// per message. Per-token failures are carried in Result.Err; a non-nil error
// from Send means the batch could not be attempted at all.
package push

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken marks a registration token the channel no longer accepts.
	// Callers should forget the token.
	ErrInvalidToken = errors.New("push: invalid registration token")
	// ErrChannelUnavailable marks a channel that is unconfigured or unreachable.
	ErrChannelUnavailable = errors.New("push: channel unavailable")
)

// Message is one notification addressed to one device token.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Result is the delivery outcome for one message.
type Result struct {
	Token string
	Err   error
}

// Delivered reports whether the channel accepted the message.
func (r Result) Delivered() bool {
	return r.Err == nil
}

// InvalidToken reports whether the failure means the token should be cleared.
func (r Result) InvalidToken() bool {
	return errors.Is(r.Err, ErrInvalidToken)
}

// Sender is an outbound push channel.
type Sender interface {
	MaxBatchSize() int
	Send(ctx context.Context, messages []Message) ([]Result, error)
}

// Batches splits messages into consecutive chunks of at most size messages.
func Batches(messages []Message, size int) [][]Message {
	if len(messages) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(messages)
	}
	batches := make([][]Message, 0, (len(messages)+size-1)/size)
	for start := 0; start < len(messages); start += size {
		end := start + size
		if end > len(messages) {
			end = len(messages)
		}
		batches = append(batches, messages[start:end])
	}
	return batches
}

// Disabled is the channel used when push delivery is not configured.
type Disabled struct{}

// MaxBatchSize implements Sender.
func (Disabled) MaxBatchSize() int { return FCMMaxBatchSize }

// Send implements Sender and always reports ErrChannelUnavailable.
func (Disabled) Send(context.Context, []Message) ([]Result, error) {
	return nil, ErrChannelUnavailable
}
