package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type ctxKey struct{}

// WithActor stores the operator or service acting on the request.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// WithActorFromMetadata copies x-user-id from incoming gRPC metadata.
func WithActorFromMetadata(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	if val := md.Get("x-user-id"); len(val) > 0 && val[0] != "" {
		return WithActor(ctx, val[0])
	}
	return ctx
}

// GetActor returns the actor recorded on adjustments, or "" if unknown.
func GetActor(ctx context.Context) string {
	if val, ok := ctx.Value(ctxKey{}).(string); ok {
		return val
	}

	// Fallback to metadata when no interceptor ran
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get("x-user-id"); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
