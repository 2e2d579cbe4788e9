package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/college-admin/internal/persistence"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if got := err.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for nil error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"title": "required", "end": "invalid"}}
	if got := withFields.Error(); got != "validation failed: end, title" {
		t.Fatalf("expected sorted field list, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if (&ValidationError{}).HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	if !(&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors() {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	base.merge(&ValidationError{FieldErrors: map[string]string{"second": "another"}})
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestMapRepoError(t *testing.T) {
	t.Parallel()

	unexpected := errors.New("disk full")
	cases := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "not found", in: fmt.Errorf("get: %w", persistence.ErrNotFound), want: ErrNotFound},
		{name: "foreign key", in: persistence.ErrForeignKeyViolation, want: ErrNotFound},
		{name: "duplicate", in: persistence.ErrDuplicate, want: ErrAlreadyExists},
		{name: "application not found", in: ErrNotFound, want: ErrNotFound},
		{name: "passthrough", in: unexpected, want: unexpected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := mapRepoError(tc.in)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
