package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/college-admin/internal/application"
	"github.com/example/college-admin/internal/logging"
)

var (
	errBadRequestBody  = errors.New("無効なリクエスト形式です。")
	errMissingIdentity = errors.New("認証が必要です。")
)

// Error codes returned in error_code so clients need not parse messages.
const (
	codeValidation    = "VALIDATION_FAILED"
	codeUnauthorized  = "AUTH_REQUIRED"
	codeForbidden     = "AUTH_FORBIDDEN"
	codeNotFound      = "NOT_FOUND"
	codeConflict      = "CONFLICT"
	codeUnavailable   = "UNAVAILABLE"
	codeInternalError = "INTERNAL_ERROR"
)

var statusDetails = map[int]struct {
	code    string
	message string
}{
	http.StatusBadRequest:          {codeValidation, "入力内容に誤りがあります。"},
	http.StatusUnauthorized:        {codeUnauthorized, "認証が必要です。"},
	http.StatusForbidden:           {codeForbidden, "この操作を実行する権限がありません。"},
	http.StatusNotFound:            {codeNotFound, "指定されたリソースが見つかりません。"},
	http.StatusConflict:            {codeConflict, "要求はリソースの現在の状態と競合しています。"},
	http.StatusServiceUnavailable:  {codeUnavailable, "サービスを利用できません。"},
	http.StatusInternalServerError: {codeInternalError, "サーバー内部でエラーが発生しました。"},
}

// validationMessages localizes the field messages produced by the services.
var validationMessages = map[string]string{
	"title is required":               "タイトルは必須です。",
	"message is required":             "本文は必須です。",
	"start is required":               "開始日時は必須です。",
	"end is required":                 "終了日時は必須です。",
	"end must be after start":         "終了日時は開始日時より後である必要があります。",
	"end must not be before start":    "終了日は開始日以降を指定してください。",
	"token is required":               "デバイストークンは必須です。",
	"course is not active":            "このコースは現在開講されていません。",
	"already enrolled in this course": "既にこのコースに登録されています。",
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func newErrorResponse(status int) errorResponse {
	details, ok := statusDetails[status]
	if !ok {
		details = statusDetails[http.StatusInternalServerError]
	}
	return errorResponse{ErrorCode: details.code, Message: details.message}
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if payload == nil || status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "status", status, "error", err)
	}
}

// writeError answers with the standard body for status; a non-empty err
// message replaces the default text.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	body := newErrorResponse(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			body.Message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, body)
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var vErr *application.ValidationError
	switch {
	case err == nil:
		r.writeJSON(ctx, w, http.StatusInternalServerError, newErrorResponse(http.StatusInternalServerError))
	case errors.As(err, &vErr):
		body := newErrorResponse(http.StatusBadRequest)
		body.Errors = localizeFieldErrors(vErr.FieldErrors)
		r.writeJSON(ctx, w, http.StatusBadRequest, body)
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, newErrorResponse(http.StatusForbidden))
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, newErrorResponse(http.StatusNotFound))
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, newErrorResponse(http.StatusConflict))
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err, "error_kind", application.ErrorKind(err))
		r.writeJSON(ctx, w, http.StatusInternalServerError, newErrorResponse(http.StatusInternalServerError))
	}
}

// writeDecodeError answers a decodeRequest failure.
func (r responder) writeDecodeError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, errBadRequestBody) {
		r.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}
	r.handleServiceError(ctx, w, err)
}

func localizeFieldErrors(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for field, msg := range fields {
		if translated, ok := validationMessages[msg]; ok {
			msg = translated
		}
		out[field] = msg
	}
	return out
}
