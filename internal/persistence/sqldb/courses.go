package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/example/college-admin/internal/persistence"
)

var (
	courseColumns = []string{"id", "code", "name", "instructor_name", "is_active", "created_at"}
	slotColumns   = []string{"id", "course_id", "day_of_week", "start_time", "end_time", "location"}
)

func (d *DB) CreateCourse(ctx context.Context, course persistence.Course) error {
	_, err := d.exec(ctx, d.builder.Insert("courses").
		Columns(courseColumns...).
		Values(course.ID, course.Code, course.Name, course.InstructorName, course.IsActive, formatTime(course.CreatedAt)))
	if err != nil {
		return fmt.Errorf("sqldb: create course %s: %w", course.ID, err)
	}
	return nil
}

func scanCourse(scan func(dest ...any) error) (persistence.Course, error) {
	var (
		course    persistence.Course
		createdAt string
	)
	if err := scan(&course.ID, &course.Code, &course.Name, &course.InstructorName, &course.IsActive, &createdAt); err != nil {
		return persistence.Course{}, err
	}
	var err error
	if course.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Course{}, err
	}
	return course, nil
}

func (d *DB) GetCourse(ctx context.Context, id string) (persistence.Course, error) {
	query, args, err := d.builder.Select(courseColumns...).From("courses").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return persistence.Course{}, fmt.Errorf("sqldb: build query: %w", err)
	}
	row := d.db.QueryRowContext(ctx, query, args...)
	course, err := scanCourse(row.Scan)
	if err != nil {
		return persistence.Course{}, mapError(err)
	}
	return course, nil
}

func (d *DB) ListCourses(ctx context.Context, ids []string) ([]persistence.Course, error) {
	courses := make([]persistence.Course, 0, len(ids))
	if len(ids) == 0 {
		return courses, nil
	}

	err := d.query(ctx,
		d.builder.Select(courseColumns...).From("courses").Where(sq.Eq{"id": ids}).OrderBy("code"),
		func(rows *sql.Rows) error {
			course, err := scanCourse(rows.Scan)
			if err != nil {
				return fmt.Errorf("sqldb: scan course: %w", err)
			}
			courses = append(courses, course)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return courses, nil
}

func (d *DB) CreateCourseSlot(ctx context.Context, slot persistence.CourseSlot) error {
	_, err := d.exec(ctx, d.builder.Insert("course_slots").
		Columns(slotColumns...).
		Values(slot.ID, slot.CourseID, slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.Location))
	if err != nil {
		return fmt.Errorf("sqldb: create course slot %s: %w", slot.ID, err)
	}
	return nil
}

func (d *DB) ListCourseSlots(ctx context.Context, courseIDs []string) ([]persistence.CourseSlot, error) {
	slots := make([]persistence.CourseSlot, 0)
	if len(courseIDs) == 0 {
		return slots, nil
	}

	err := d.query(ctx,
		d.builder.Select(slotColumns...).From("course_slots").
			Where(sq.Eq{"course_id": courseIDs}).
			OrderBy("course_id", "id"),
		func(rows *sql.Rows) error {
			var slot persistence.CourseSlot
			if err := rows.Scan(&slot.ID, &slot.CourseID, &slot.DayOfWeek, &slot.StartTime, &slot.EndTime, &slot.Location); err != nil {
				return fmt.Errorf("sqldb: scan course slot: %w", err)
			}
			slots = append(slots, slot)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return slots, nil
}
