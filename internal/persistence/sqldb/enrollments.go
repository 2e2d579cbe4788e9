package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/example/college-admin/internal/persistence"
)

var enrollmentColumns = []string{"id", "user_id", "course_id", "status", "enrolled_at", "updated_at"}

func (d *DB) UpsertEnrollment(ctx context.Context, enrollment persistence.Enrollment) error {
	_, err := d.exec(ctx, d.builder.Insert("enrollments").
		Columns(enrollmentColumns...).
		Values(
			enrollment.ID,
			enrollment.UserID,
			enrollment.CourseID,
			enrollment.Status,
			formatTime(enrollment.EnrolledAt),
			formatTime(enrollment.UpdatedAt),
		).
		Suffix("ON CONFLICT (user_id, course_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at"))
	if err != nil {
		return fmt.Errorf("sqldb: upsert enrollment %s/%s: %w", enrollment.UserID, enrollment.CourseID, err)
	}
	return nil
}

func scanEnrollment(scan func(dest ...any) error) (persistence.Enrollment, error) {
	var (
		enrollment            persistence.Enrollment
		enrolledAt, updatedAt string
	)
	if err := scan(&enrollment.ID, &enrollment.UserID, &enrollment.CourseID, &enrollment.Status, &enrolledAt, &updatedAt); err != nil {
		return persistence.Enrollment{}, err
	}
	var err error
	if enrollment.EnrolledAt, err = parseTime(enrolledAt); err != nil {
		return persistence.Enrollment{}, err
	}
	if enrollment.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Enrollment{}, err
	}
	return enrollment, nil
}

func (d *DB) GetEnrollment(ctx context.Context, userID, courseID string) (persistence.Enrollment, error) {
	query, args, err := d.builder.Select(enrollmentColumns...).From("enrollments").
		Where(sq.Eq{"user_id": userID, "course_id": courseID}).ToSql()
	if err != nil {
		return persistence.Enrollment{}, fmt.Errorf("sqldb: build query: %w", err)
	}
	enrollment, err := scanEnrollment(d.db.QueryRowContext(ctx, query, args...).Scan)
	if err != nil {
		return persistence.Enrollment{}, mapError(err)
	}
	return enrollment, nil
}

func (d *DB) ListEnrollments(ctx context.Context, filter persistence.EnrollmentFilter) ([]persistence.Enrollment, error) {
	builder := d.builder.Select(enrollmentColumns...).From("enrollments").OrderBy("course_id", "user_id")
	if filter.UserID != "" {
		builder = builder.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.CourseID != "" {
		builder = builder.Where(sq.Eq{"course_id": filter.CourseID})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status})
	}

	enrollments := make([]persistence.Enrollment, 0)
	err := d.query(ctx, builder, func(rows *sql.Rows) error {
		enrollment, err := scanEnrollment(rows.Scan)
		if err != nil {
			return fmt.Errorf("sqldb: scan enrollment: %w", err)
		}
		enrollments = append(enrollments, enrollment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}
