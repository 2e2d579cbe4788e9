package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// AuthService turns the identity asserted by the upstream gateway into a
// Principal. Credentials are checked before requests reach this service.
type AuthService struct {
	users  UserDirectory
	logger *slog.Logger
}

// NewAuthService constructs an AuthService with the provided user directory.
func NewAuthService(users UserDirectory) *AuthService {
	return NewAuthServiceWithLogger(users, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(users UserDirectory, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, logger: defaultLogger(logger)}
}

// ResolvePrincipal loads the user behind userID and returns its principal.
// Unknown or empty ids are ErrUnauthorized.
func (s *AuthService) ResolvePrincipal(ctx context.Context, userID string) (principal Principal, err error) {
	if s == nil || s.users == nil {
		err = fmt.Errorf("AuthService is not configured")
		return
	}

	trimmed := strings.TrimSpace(userID)
	logger := serviceLogger(ctx, s.logger, "AuthService", "ResolvePrincipal", "user_id_provided", trimmed != "")
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "principal resolution failed", err)
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "principal resolved")
	}()

	if trimmed == "" {
		err = ErrUnauthorized
		return
	}

	var user User
	user, err = s.users.GetUser(ctx, trimmed)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}
	if _, ok := ParseRole(string(user.Role)); !ok {
		err = ErrUnauthorized
		return
	}

	principal = user.Principal()
	return
}
