package service

import (
	"context"
	"log/slog"
	"time"
)

// AppLogService writes the audit trail of completed mutations.
type AppLogService struct {
	logger *slog.Logger
}

func NewAppLogService(logger *slog.Logger) *AppLogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppLogService{logger: logger.With("component", "audit")}
}

// LogOperation records one finished operation with its elapsed time.
func (s *AppLogService) LogOperation(ctx context.Context, username, op string, start time.Time, attrs ...any) {
	args := append([]any{
		"username", username,
		"op", op,
		"elapsed_ms", time.Since(start).Milliseconds(),
	}, attrs...)
	s.logger.InfoContext(ctx, "operation completed", args...)
}

// LogFailure records an operation that returned an error.
func (s *AppLogService) LogFailure(ctx context.Context, username, op string, err error, attrs ...any) {
	args := append([]any{
		"username", username,
		"op", op,
		"error", err.Error(),
	}, attrs...)
	s.logger.WarnContext(ctx, "operation failed", args...)
}
