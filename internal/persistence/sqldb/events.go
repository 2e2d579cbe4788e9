package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/example/college-admin/internal/persistence"
)

var personalEventColumns = []string{
	"id", "user_id", "title", "description", "location", "event_type",
	"starts_at", "ends_at", "is_all_day", "created_at", "updated_at",
}

func (d *DB) CreatePersonalEvent(ctx context.Context, event persistence.PersonalEvent) error {
	_, err := d.exec(ctx, d.builder.Insert("personal_events").
		Columns(personalEventColumns...).
		Values(
			event.ID,
			event.UserID,
			event.Title,
			nullableString(event.Description),
			nullableString(event.Location),
			event.EventType,
			formatTime(event.StartsAt),
			formatTime(event.EndsAt),
			event.IsAllDay,
			formatTime(event.CreatedAt),
			formatTime(event.UpdatedAt),
		))
	if err != nil {
		return fmt.Errorf("sqldb: create personal event %s: %w", event.ID, err)
	}
	return nil
}

func (d *DB) UpdatePersonalEvent(ctx context.Context, event persistence.PersonalEvent) error {
	result, err := d.exec(ctx, d.builder.Update("personal_events").
		Set("title", event.Title).
		Set("description", nullableString(event.Description)).
		Set("location", nullableString(event.Location)).
		Set("event_type", event.EventType).
		Set("starts_at", formatTime(event.StartsAt)).
		Set("ends_at", formatTime(event.EndsAt)).
		Set("is_all_day", event.IsAllDay).
		Set("updated_at", formatTime(event.UpdatedAt)).
		Where(sq.Eq{"id": event.ID}))
	if err != nil {
		return fmt.Errorf("sqldb: update personal event %s: %w", event.ID, err)
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

func scanPersonalEvent(scan func(dest ...any) error) (persistence.PersonalEvent, error) {
	var (
		event                                  persistence.PersonalEvent
		description, location                  sql.NullString
		startsAt, endsAt, createdAt, updatedAt string
	)
	err := scan(
		&event.ID, &event.UserID, &event.Title, &description, &location, &event.EventType,
		&startsAt, &endsAt, &event.IsAllDay, &createdAt, &updatedAt,
	)
	if err != nil {
		return persistence.PersonalEvent{}, err
	}

	event.Description = stringPtr(description)
	event.Location = stringPtr(location)
	if event.StartsAt, err = parseTime(startsAt); err != nil {
		return persistence.PersonalEvent{}, err
	}
	if event.EndsAt, err = parseTime(endsAt); err != nil {
		return persistence.PersonalEvent{}, err
	}
	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.PersonalEvent{}, err
	}
	if event.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.PersonalEvent{}, err
	}
	return event, nil
}

func (d *DB) GetPersonalEvent(ctx context.Context, id string) (persistence.PersonalEvent, error) {
	query, args, err := d.builder.Select(personalEventColumns...).From("personal_events").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return persistence.PersonalEvent{}, fmt.Errorf("sqldb: build query: %w", err)
	}
	event, err := scanPersonalEvent(d.db.QueryRowContext(ctx, query, args...).Scan)
	if err != nil {
		return persistence.PersonalEvent{}, mapError(err)
	}
	return event, nil
}

func (d *DB) DeletePersonalEvent(ctx context.Context, id string) error {
	result, err := d.exec(ctx, d.builder.Delete("personal_events").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("sqldb: delete personal event %s: %w", id, err)
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

func (d *DB) ListPersonalEvents(ctx context.Context, filter persistence.PersonalEventFilter) ([]persistence.PersonalEvent, error) {
	builder := d.builder.Select(personalEventColumns...).From("personal_events").OrderBy("starts_at", "id")
	if filter.UserID != "" {
		builder = builder.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.StartsFrom != nil {
		builder = builder.Where(sq.GtOrEq{"starts_at": formatTime(*filter.StartsFrom)})
	}
	if filter.StartsUntil != nil {
		builder = builder.Where(sq.LtOrEq{"starts_at": formatTime(*filter.StartsUntil)})
	}
	if len(filter.EventTypes) > 0 {
		builder = builder.Where(sq.Eq{"event_type": filter.EventTypes})
	}

	events := make([]persistence.PersonalEvent, 0)
	err := d.query(ctx, builder, func(rows *sql.Rows) error {
		event, err := scanPersonalEvent(rows.Scan)
		if err != nil {
			return fmt.Errorf("sqldb: scan personal event: %w", err)
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
