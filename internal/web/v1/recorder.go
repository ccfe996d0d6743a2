package v1

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	pkgzerolog "github.com/duynhne/pkg/logger/zerolog"
	"github.com/gin-gonic/gin"

	"github.com/duynhne/session-auth-service/internal/core/domain"
	logicv1 "github.com/duynhne/session-auth-service/internal/logic/v1"
)

const internalErrorMessage = "Internal server error"

// ErrorRecorder logs unexpected failures and keeps a copy in the error log
// store. Persisting is best-effort: a store failure is only logged.
type ErrorRecorder struct {
	logs domain.ErrorLogRepository
	now  func() time.Time
}

// NewErrorRecorder creates a recorder persisting into logs. A nil repository
// disables persistence.
func NewErrorRecorder(logs domain.ErrorLogRepository) *ErrorRecorder {
	return &ErrorRecorder{logs: logs, now: time.Now}
}

// Record logs err with the file and function it came from and stores it.
func (r *ErrorRecorder) Record(ctx context.Context, status int, err error, file, source, stack string) {
	logger := pkgzerolog.FromContext(ctx)
	logger.Error().
		Err(err).
		Int("code", status).
		Str("file", file).
		Str("source", source).
		Msg("An error occurred in the application")

	if r.logs == nil {
		return
	}

	entry := &domain.ErrorLog{
		ID:         logicv1.NewID(),
		Code:       strconv.Itoa(status),
		Message:    err.Error(),
		File:       file,
		Source:     source,
		StackTrace: stack,
		CreatedAt:  r.now().UTC(),
	}
	// The request may already be canceled; the record should still land.
	if saveErr := r.logs.Create(context.WithoutCancel(ctx), entry); saveErr != nil {
		logger.Error().Err(saveErr).Msg("Error saving error to database")
		return
	}
	logger.Debug().Str("error_log_id", entry.ID).Msg("Error saved to database")
}

// Recovery turns panics into a recorded 500.
func (r *ErrorRecorder) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		file, source := panicFrame()
		r.Record(c.Request.Context(), http.StatusInternalServerError,
			fmt.Errorf("panic: %v", recovered), file, source, string(debug.Stack()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, domain.ErrorResponse{Message: internalErrorMessage})
	})
}

// callerFrame returns "file.go:line" and the function name skip frames above its caller.
func callerFrame(skip int) (string, string) {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown", "unknown"
	}
	source := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		source = fn.Name()
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line), source
}

// panicFrame finds the function that panicked, the first frame above runtime.gopanic.
func panicFrame() (string, string) {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	afterPanic := false
	for {
		f, more := frames.Next()
		if afterPanic && !strings.HasPrefix(f.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line), f.Function
		}
		if f.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			return "unknown", "unknown"
		}
	}
}
