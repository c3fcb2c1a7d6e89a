package interceptors

import (
	"context"
	"errors"
	"strings"

	"moviebox-restful/auth"
	"moviebox-restful/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey holds the signed-in user's id; absent for anonymous calls.
	UserIDKey contextKey = "user_id"
	// SessionIDKey holds the id of the session the bearer token points at.
	SessionIDKey contextKey = "session_id"
)

// SessionResolver turns a signed session token into a session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
}

// SessionAuthInterceptor authenticates calls carrying "authorization: Bearer
// <token>", where token is the value of the HTTP session cookie. Calls
// without the header proceed anonymously; a bad token is rejected.
func SessionAuthInterceptor(sessions SessionResolver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return handler(ctx, req)
		}
		values := md.Get("authorization")
		if len(values) == 0 {
			return handler(ctx, req)
		}

		parts := strings.Fields(values[0])
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return nil, status.Error(codes.Unauthenticated, "invalid authorization header format")
		}

		session, err := sessions.Resolve(ctx, parts[1])
		if auth.IsStoreError(err) {
			return nil, status.Error(codes.Internal, "session lookup failed")
		}
		if errors.Is(err, auth.ErrSessionNotFound) {
			return nil, status.Error(codes.Unauthenticated, "session expired")
		}
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}

		ctx = context.WithValue(ctx, SessionIDKey, session.ID)
		if session.Authenticated() {
			ctx = context.WithValue(ctx, UserIDKey, *session.UserID)
		}
		return handler(ctx, req)
	}
}

// GetUserIDFromContext extracts the user ID from the context.
func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	return userID, ok
}

// GetSessionIDFromContext extracts the session ID from the context.
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SessionIDKey).(string)
	return id, ok
}
