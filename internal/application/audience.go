package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// AudienceResolver computes who should hear about a course event.
type AudienceResolver struct {
	enrollments EnrollmentReader
	logger      *slog.Logger
}

// NewAudienceResolver constructs a resolver over the enrollment store.
func NewAudienceResolver(enrollments EnrollmentReader) *AudienceResolver {
	return NewAudienceResolverWithLogger(enrollments, nil)
}

// NewAudienceResolverWithLogger constructs a resolver with a specified logger.
func NewAudienceResolverWithLogger(enrollments EnrollmentReader, logger *slog.Logger) *AudienceResolver {
	return &AudienceResolver{enrollments: enrollments, logger: defaultLogger(logger)}
}

// ResolveAudience returns the sorted ids of users ENROLLED in courseID, minus
// excludeUserID when it is non-empty. An empty result is not an error. The
// course itself is not looked up.
func (r *AudienceResolver) ResolveAudience(ctx context.Context, courseID, excludeUserID string) ([]string, error) {
	if r == nil || r.enrollments == nil {
		return nil, fmt.Errorf("AudienceResolver is not configured")
	}

	ids, err := r.enrollments.EnrolledUserIDs(ctx, courseID)
	if err != nil {
		serviceLogger(ctx, r.logger, "AudienceResolver", "ResolveAudience", "course_id", courseID).
			ErrorContext(ctx, "failed to resolve audience", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	seen := make(map[string]struct{}, len(ids))
	audience := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == excludeUserID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		audience = append(audience, id)
	}
	sort.Strings(audience)
	return audience, nil
}
