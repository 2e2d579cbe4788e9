package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const maxPushTokenLength = 4096

// PushTokenService manages the single device token stored on each user.
type PushTokenService struct {
	tokens PushTokenStore
	now    func() time.Time
	logger *slog.Logger
}

// NewPushTokenService constructs a push token service.
func NewPushTokenService(tokens PushTokenStore, now func() time.Time) *PushTokenService {
	return NewPushTokenServiceWithLogger(tokens, now, nil)
}

// NewPushTokenServiceWithLogger constructs a push token service with a specified logger.
func NewPushTokenServiceWithLogger(tokens PushTokenStore, now func() time.Time, logger *slog.Logger) *PushTokenService {
	if now == nil {
		now = time.Now
	}
	return &PushTokenService{tokens: tokens, now: now, logger: defaultLogger(logger)}
}

// RegisterPushToken overwrites the principal's token. A user has at most one
// device registered at a time.
func (s *PushTokenService) RegisterPushToken(ctx context.Context, principal Principal, token string) (err error) {
	if s == nil || s.tokens == nil {
		return fmt.Errorf("PushTokenService is not configured")
	}

	logger := serviceLogger(ctx, s.logger, "PushTokenService", "RegisterPushToken", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to register push token", err)
			return
		}
		logger.InfoContext(ctx, "push token registered")
	}()

	if principal.UserID == "" {
		return ErrUnauthorized
	}

	token = strings.TrimSpace(token)
	vErr := &ValidationError{}
	switch {
	case token == "":
		vErr.add("token", "token is required")
	case len(token) > maxPushTokenLength:
		vErr.add("token", fmt.Sprintf("token must be at most %d characters", maxPushTokenLength))
	}
	if vErr.HasErrors() {
		return vErr
	}

	return mapRepoError(s.tokens.SetPushToken(ctx, principal.UserID, token, s.now()))
}

// ClearPushToken forgets the principal's token, as on logout. Clearing an
// absent token succeeds.
func (s *PushTokenService) ClearPushToken(ctx context.Context, principal Principal) error {
	if s == nil || s.tokens == nil {
		return fmt.Errorf("PushTokenService is not configured")
	}
	if principal.UserID == "" {
		return ErrUnauthorized
	}

	cleared, err := s.tokens.ClearPushToken(ctx, principal.UserID, "", s.now())
	logger := serviceLogger(ctx, s.logger, "PushTokenService", "ClearPushToken", "principal_id", principal.UserID)
	if err != nil {
		logFailure(ctx, logger, "failed to clear push token", err)
		return mapRepoError(err)
	}
	logger.InfoContext(ctx, "push token cleared", "cleared", cleared)
	return nil
}
