package rpc

import (
	"context"
	"slices"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/gustavobizon/sprint-programacao/internal/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// methodRoles restricts methods to a role set. Methods not listed accept
// any authenticated caller.
var methodRoles = map[string][]auth.Role{
	MethodListReadings: {auth.RoleAdmin, auth.RoleUser},
}

// authInterceptor verifies the session token in the authorization
// metadata. A missing token is Unauthenticated; a token that fails
// verification, or a role not allowed for the method, is PermissionDenied.
func (s *Server) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	token := tokenFromMetadata(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, msgTokenMissing)
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug("grpc token rejected", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.PermissionDenied, msgAccessDenied)
	}

	if roles, ok := methodRoles[info.FullMethod]; ok && !slices.Contains(roles, claims.Role) {
		return nil, status.Error(codes.PermissionDenied, msgAccessDenied)
	}

	return handler(context.WithValue(ctx, claimsKey, claims), req)
}

// tokenFromMetadata accepts "Bearer <token>" like the HTTP header, or a
// bare token.
func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(metadataAuthorization)
	if len(values) == 0 {
		return ""
	}
	parts := strings.Fields(values[0])
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[1]
	}
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims) //nolint:errcheck // nil when unauthenticated
	return claims
}
