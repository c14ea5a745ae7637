package log

import (
	"context"
)

// ContextKey type for context keys
type ContextKey string

const (
	// TraceContextKey is the context key for the per-update trace
	TraceContextKey ContextKey = "trace"
)

type trace struct {
	id       string
	updateID int
}

// WithTrace returns ctx carrying a trace id. Every *Context log call made
// with the returned context, by any Logger, is stamped with it.
func WithTrace(ctx context.Context, traceID string, updateID int) context.Context {
	return context.WithValue(ctx, TraceContextKey, trace{id: traceID, updateID: updateID})
}

// TraceID returns the trace id carried by ctx, or "".
func TraceID(ctx context.Context) string {
	t, _ := ctx.Value(TraceContextKey).(trace)
	return t.id
}

func traceArgs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	t, ok := ctx.Value(TraceContextKey).(trace)
	if !ok {
		return nil
	}
	return []any{FieldTraceID, t.id, FieldUpdateID, t.updateID}
}

// StructuredLogger provides the domain log lines shared by the bot and the
// services.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogMessageReceived logs an accepted inbound message.
func (sl *StructuredLogger) LogMessageReceived(ctx context.Context, userID string, chatID int64, messageID int, command string) {
	fields := NewFields().
		WithMessage(userID, chatID, messageID).
		WithComponent(ComponentBot)
	if command != "" {
		fields[FieldCommand] = command
	}
	sl.logger.InfoContext(ctx, "Message received", fields.ToSlice()...)
}

// LogDuplicate logs a message dropped by the duplicate filter.
func (sl *StructuredLogger) LogDuplicate(ctx context.Context, key string) {
	sl.logger.DebugContext(ctx, "Duplicate delivery dropped", FieldMessageID, key, FieldComponent, ComponentDedup)
}

// LogIntentResolved logs the outcome of one resolved intent.
func (sl *StructuredLogger) LogIntentResolved(ctx context.Context, userID string, fields LogFields, outcome string, durationMs int64) {
	fields[FieldUserID] = userID
	fields[FieldOutcome] = outcome
	fields[FieldDuration] = durationMs
	sl.logger.InfoContext(ctx, "Intent resolved", fields.WithOperation(OpResolve).ToSlice()...)
}

// LogRejection logs expected user-input feedback. It is not an error.
func (sl *StructuredLogger) LogRejection(ctx context.Context, userID string, intent string, rejection string) {
	fields := NewFields().WithOperation(OpResolve).WithErrorType(ErrorTypeValidation)
	fields[FieldUserID] = userID
	fields[FieldIntent] = intent
	fields[FieldRejection] = rejection
	sl.logger.InfoContext(ctx, "Intent rejected", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
