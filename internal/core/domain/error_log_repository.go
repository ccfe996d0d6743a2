package domain

import (
	"context"
	"time"
)

// ErrorLog is a persisted record of an unexpected failure.
type ErrorLog struct {
	ID         string
	Code       string
	Message    string
	File       string
	Source     string
	StackTrace string
	CreatedAt  time.Time
}

// ErrorLogRepository stores error logs.
type ErrorLogRepository interface {
	Create(ctx context.Context, entry *ErrorLog) error
}
