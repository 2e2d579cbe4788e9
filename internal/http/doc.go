// Package http provides HTTP handlers and middleware for the college API.
//
// Every route except GET /healthz requires the upstream gateway to forward the
// authenticated user id in the X-User-ID header. The router exposes:
//   - GET /schedule?start=&end=&types=: the caller's materialized schedule.
//     start and end accept RFC 3339 instants or YYYY-MM-DD dates and apply
//     only when both are given; types is a comma separated event type filter.
//     Response: `scheduleResponse` in schedule_handler.go, including overlap
//     conflicts.
//   - GET /schedule.ics: the same schedule as an iCalendar feed.
//   - POST /schedule/events, PUT /schedule/events/{id},
//     DELETE /schedule/events/{id}: personal event management exchanging
//     `personalEventRequest` and `personalEventDTO`.
//   - GET /notifications?unreadOnly=&limit=, GET /notifications/unread-count,
//     PUT /notifications/{id}/read, PUT /notifications/read-all,
//     DELETE /notifications/read, DELETE /notifications/{id}: the caller's
//     inbox.
//   - POST /courses/{id}/notifications: staff publish a course event that is
//     fanned out to enrolled students. POST /users/{id}/notifications sends a
//     single grade or system notification.
//   - POST /courses/{id}/enrollment, DELETE /courses/{id}/enrollment: enroll
//     in or drop a course.
//   - PUT /me/push-token, DELETE /me/push-token: register or forget the
//     caller's device token.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
