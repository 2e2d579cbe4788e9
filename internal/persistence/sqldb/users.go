package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/example/college-admin/internal/persistence"
)

var userColumns = []string{"id", "email", "display_name", "role", "push_token", "created_at", "updated_at"}

func (d *DB) CreateUser(ctx context.Context, user persistence.User) error {
	_, err := d.exec(ctx, d.builder.Insert("users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.Email,
			user.DisplayName,
			user.Role,
			nullableString(user.PushToken),
			formatTime(user.CreatedAt),
			formatTime(user.UpdatedAt),
		))
	if err != nil {
		return fmt.Errorf("sqldb: create user %s: %w", user.ID, err)
	}
	return nil
}

func (d *DB) GetUser(ctx context.Context, id string) (persistence.User, error) {
	var (
		user                 persistence.User
		pushToken            sql.NullString
		createdAt, updatedAt string
	)
	err := d.queryRow(ctx,
		d.builder.Select(userColumns...).From("users").Where(sq.Eq{"id": id}),
		&user.ID, &user.Email, &user.DisplayName, &user.Role, &pushToken, &createdAt, &updatedAt,
	)
	if err != nil {
		return persistence.User{}, err
	}

	user.PushToken = stringPtr(pushToken)
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func (d *DB) PushTokens(ctx context.Context, userIDs []string) (map[string]string, error) {
	tokens := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return tokens, nil
	}

	err := d.query(ctx,
		d.builder.Select("id", "push_token").From("users").
			Where(sq.Eq{"id": userIDs}).
			Where(sq.NotEq{"push_token": nil}).
			Where(sq.NotEq{"push_token": ""}),
		func(rows *sql.Rows) error {
			var id, token string
			if err := rows.Scan(&id, &token); err != nil {
				return fmt.Errorf("sqldb: scan push token: %w", err)
			}
			tokens[id] = token
			return nil
		})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (d *DB) SetPushToken(ctx context.Context, userID, token string, at time.Time) error {
	result, err := d.exec(ctx, d.builder.Update("users").
		Set("push_token", token).
		Set("updated_at", formatTime(at)).
		Where(sq.Eq{"id": userID}))
	if err != nil {
		return fmt.Errorf("sqldb: set push token for %s: %w", userID, err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (d *DB) ClearPushToken(ctx context.Context, userID, expected string, at time.Time) (bool, error) {
	where := sq.And{sq.Eq{"id": userID}, sq.NotEq{"push_token": nil}}
	if expected != "" {
		where = append(where, sq.Eq{"push_token": expected})
	}

	result, err := d.exec(ctx, d.builder.Update("users").
		Set("push_token", nil).
		Set("updated_at", formatTime(at)).
		Where(where))
	if err != nil {
		return false, fmt.Errorf("sqldb: clear push token for %s: %w", userID, err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
