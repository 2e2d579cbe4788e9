package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/example/college-admin/internal/persistence"
)

var taskColumns = []string{
	"id", "course_id", "creator_id", "title", "description", "task_type", "priority", "due_at", "created_at",
}

func (d *DB) CreateTask(ctx context.Context, task persistence.Task) error {
	_, err := d.exec(ctx, d.builder.Insert("tasks").
		Columns(taskColumns...).
		Values(
			task.ID,
			nullableString(task.CourseID),
			task.CreatorID,
			task.Title,
			nullableString(task.Description),
			task.TaskType,
			task.Priority,
			formatTime(task.DueAt),
			formatTime(task.CreatedAt),
		))
	if err != nil {
		return fmt.Errorf("sqldb: create task %s: %w", task.ID, err)
	}
	return nil
}

func (d *DB) ListTasks(ctx context.Context, filter persistence.TaskFilter) ([]persistence.Task, error) {
	tasks := make([]persistence.Task, 0)

	owner := sq.Or{}
	if len(filter.CourseIDs) > 0 {
		owner = append(owner, sq.Eq{"course_id": filter.CourseIDs})
	}
	if filter.CreatorID != "" {
		owner = append(owner, sq.Eq{"creator_id": filter.CreatorID})
	}
	if len(owner) == 0 {
		return tasks, nil
	}

	builder := d.builder.Select(taskColumns...).From("tasks").Where(owner).OrderBy("due_at", "id")
	if len(filter.Types) > 0 {
		builder = builder.Where(sq.Eq{"task_type": filter.Types})
	}
	if filter.DueFrom != nil {
		builder = builder.Where(sq.GtOrEq{"due_at": formatTime(*filter.DueFrom)})
	}
	if filter.DueUntil != nil {
		builder = builder.Where(sq.LtOrEq{"due_at": formatTime(*filter.DueUntil)})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	err := d.query(ctx, builder, func(rows *sql.Rows) error {
		var (
			task                  persistence.Task
			courseID, description sql.NullString
			dueAt, createdAt      string
		)
		err := rows.Scan(&task.ID, &courseID, &task.CreatorID, &task.Title, &description,
			&task.TaskType, &task.Priority, &dueAt, &createdAt)
		if err != nil {
			return fmt.Errorf("sqldb: scan task: %w", err)
		}
		task.CourseID = stringPtr(courseID)
		task.Description = stringPtr(description)
		if task.DueAt, err = parseTime(dueAt); err != nil {
			return err
		}
		if task.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		tasks = append(tasks, task)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
