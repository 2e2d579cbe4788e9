package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRegisterPushTokenOverwrites(t *testing.T) {
	t.Parallel()

	store := &tokenStoreStub{}
	service := NewPushTokenServiceWithLogger(store, fixedNow(time.Unix(0, 0)), discardLogger())
	principal := Principal{UserID: "s1", Role: RoleStudent}

	if err := service.RegisterPushToken(context.Background(), principal, " first "); err != nil {
		t.Fatalf("RegisterPushToken returned error: %v", err)
	}
	if err := service.RegisterPushToken(context.Background(), principal, "second"); err != nil {
		t.Fatalf("RegisterPushToken returned error: %v", err)
	}
	if got := store.token("s1"); got != "second" {
		t.Fatalf("expected latest token to win, got %q", got)
	}
}

func TestRegisterPushTokenValidation(t *testing.T) {
	t.Parallel()

	service := NewPushTokenServiceWithLogger(&tokenStoreStub{}, nil, discardLogger())
	principal := Principal{UserID: "s1"}

	for _, token := range []string{"", "   ", strings.Repeat("x", maxPushTokenLength+1)} {
		var vErr *ValidationError
		if err := service.RegisterPushToken(context.Background(), principal, token); !errors.As(err, &vErr) {
			t.Fatalf("expected validation error for %d-char token, got %v", len(token), err)
		}
	}

	if err := service.RegisterPushToken(context.Background(), Principal{}, "tok"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClearPushToken(t *testing.T) {
	t.Parallel()

	store := &tokenStoreStub{tokens: map[string]string{"s1": "tok"}}
	service := NewPushTokenServiceWithLogger(store, nil, discardLogger())

	if err := service.ClearPushToken(context.Background(), Principal{UserID: "s1"}); err != nil {
		t.Fatalf("ClearPushToken returned error: %v", err)
	}
	if store.token("s1") != "" {
		t.Fatalf("expected token to be cleared")
	}
	if err := service.ClearPushToken(context.Background(), Principal{UserID: "s1"}); err != nil {
		t.Fatalf("expected clearing an absent token to succeed, got %v", err)
	}
}
