package logger

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	// traceIDKey — идентификатор одного HTTP запроса.
	traceIDKey ctxKey = "trace_id"

	// correlationIDKey — связывает запросы одной бизнес-операции
	// (оформление заказа, редирект шлюза, колбэк оператора).
	correlationIDKey ctxKey = "correlation_id"

	loggerKey ctxKey = "logger"
)

// WithTraceID добавляет trace_id в контекст.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext извлекает trace_id из контекста.
func TraceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithCorrelationID добавляет correlation_id в контекст.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext извлекает correlation_id из контекста.
func CorrelationIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(correlationIDKey).(string); ok {
		return v
	}
	return ""
}

// NewContextWithIDs добавляет непустые trace_id и correlation_id в контекст.
func NewContextWithIDs(ctx context.Context, traceID, correlationID string) context.Context {
	if traceID != "" {
		ctx = WithTraceID(ctx, traceID)
	}
	if correlationID != "" {
		ctx = WithCorrelationID(ctx, correlationID)
	}
	return ctx
}

// WithLogger кладёт логгер в контекст. HTTP middleware делает это для каждого
// запроса, чтобы сервисы получали логгер, переданный из main.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext возвращает логгер из контекста (или логгер по умолчанию)
// с полями trace_id и correlation_id, если они заданы.
//
//	log := logger.FromContext(ctx)
//	log.Info().Uint64("order_id", id).Msg("Заказ создан")
func FromContext(ctx context.Context) zerolog.Logger {
	l, ok := ctx.Value(loggerKey).(zerolog.Logger)
	if !ok {
		l = base
	}

	traceID := TraceIDFromContext(ctx)
	correlationID := CorrelationIDFromContext(ctx)
	if traceID == "" && correlationID == "" {
		return l
	}

	lc := l.With()
	if traceID != "" {
		lc = lc.Str("trace_id", traceID)
	}
	if correlationID != "" {
		lc = lc.Str("correlation_id", correlationID)
	}
	return lc.Logger()
}

// Ctx возвращает указатель на логгер из контекста.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := FromContext(ctx)
	return &l
}

// Detach переносит логгер и идентификаторы запроса в новый контекст без
// дедлайна и отмены родителя. Нужен задачам, которые переживают HTTP запрос.
func Detach(ctx context.Context) context.Context {
	out := NewContextWithIDs(context.Background(), TraceIDFromContext(ctx), CorrelationIDFromContext(ctx))
	if l, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		out = WithLogger(out, l)
	}
	return out
}
