package tenantcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type contextKey string

const (
	agencyIDKey   contextKey = "tenant_agency_id"
	actingUserKey contextKey = "tenant_acting_user_id"
	requestIDKey  contextKey = "tenant_request_id"
)

// WithAgencyID scopes the context to one agency. The core treats the id as
// an opaque key; authorization happens before the core is invoked.
func WithAgencyID(ctx context.Context, agencyID snowflake.ID) context.Context {
	if agencyID == 0 {
		return ctx
	}
	return context.WithValue(ctx, agencyIDKey, agencyID)
}

func AgencyIDFromContext(ctx context.Context) snowflake.ID {
	value, _ := ctx.Value(agencyIDKey).(snowflake.ID)
	return value
}

func WithActingUser(ctx context.Context, userID snowflake.ID) context.Context {
	if userID == 0 {
		return ctx
	}
	return context.WithValue(ctx, actingUserKey, userID)
}

func ActingUserFromContext(ctx context.Context) snowflake.ID {
	value, _ := ctx.Value(actingUserKey).(snowflake.ID)
	return value
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}
