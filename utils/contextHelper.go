package utils

import (
	"context"

	"github.com/seedleaf/store_backend/appctx"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyEventId       = appctx.ContextKeyEventId
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetEventIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyEventId)
}

func SetEventIdInContext(ctx context.Context, eventId string) context.Context {
	return appctx.Set(ctx, ContextKeyEventId, eventId)
}
