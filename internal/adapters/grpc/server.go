package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/application"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

const serviceName = "maijjd.auth.v1.AuthInternalService"

type AuthInternalService interface {
	ValidateToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// AccountAuthority is the slice of the auth orchestrator internal callers may use.
type AccountAuthority interface {
	Authenticate(ctx context.Context, scope domain.Scope, accessToken string) (ports.TokenClaims, error)
	Profile(ctx context.Context, scope domain.Scope, accountID uuid.UUID) (application.AccountView, error)
}

type AuthInternalServer struct {
	service AccountAuthority
}

func NewAuthInternalServer(service AccountAuthority) *AuthInternalServer {
	return &AuthInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc AuthInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AuthInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateToken",
				Handler:    unaryHandler("ValidateToken", svc.ValidateToken),
			},
			{
				MethodName: "GetAccount",
				Handler:    unaryHandler("GetAccount", svc.GetAccount),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "auth/v1/auth_internal.proto",
	}, svc)
}

// ValidateToken reports whether an access token is valid for the requested scope.
// Rejected tokens are a normal answer ({valid: false, reason}), not an RPC error.
func (s *AuthInternalServer) ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := stringField(req, "token")
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}
	scope, err := scopeField(req)
	if err != nil {
		return nil, err
	}

	claims, err := s.service.Authenticate(ctx, scope, token)
	if err != nil {
		reason := "invalid_token"
		switch {
		case errors.Is(err, domain.ErrSessionExpired):
			reason = "token_expired"
		case errors.Is(err, domain.ErrNotAdmin):
			reason = "not_admin"
		case errors.Is(err, domain.ErrInvalidTokenType):
			reason = "invalid_token_type"
		}
		return newStruct(map[string]any{"valid": false, "reason": reason})
	}

	permissions := make([]any, 0, len(claims.Permissions))
	for _, p := range claims.Permissions {
		permissions = append(permissions, p)
	}
	return newStruct(map[string]any{
		"valid":       true,
		"user_id":     claims.Subject.String(),
		"email":       claims.Email,
		"phone":       claims.Phone,
		"role":        claims.Role,
		"scope":       string(scope),
		"permissions": permissions,
		"expires_at":  claims.ExpiresAt.Unix(),
	})
}

// GetAccount returns the account view for a user id within a scope.
func (s *AuthInternalServer) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := uuid.Parse(stringField(req, "user_id"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid user_id")
	}
	scope, err := scopeField(req)
	if err != nil {
		return nil, err
	}

	view, err := s.service.Profile(ctx, scope, accountID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return nil, status.Error(codes.NotFound, "account not found")
		case errors.Is(err, domain.ErrUnavailable):
			return nil, status.Error(codes.Unavailable, "account store unavailable")
		default:
			return nil, status.Error(codes.Internal, "get account failed")
		}
	}

	fields := map[string]any{
		"user_id":        view.ID.String(),
		"name":           view.Name,
		"email":          view.Email,
		"phone":          view.Phone,
		"role":           string(view.Role),
		"status":         string(view.Status),
		"email_verified": view.EmailVerified,
		"phone_verified": view.PhoneVerified,
		"created_at":     view.CreatedAt.Format(time.RFC3339),
	}
	if view.LastLoginAt != nil {
		fields["last_login_at"] = view.LastLoginAt.Format(time.RFC3339)
	}
	return newStruct(fields)
}

func stringField(req *structpb.Struct, key string) string {
	v := req.GetFields()[key]
	if v == nil {
		return ""
	}
	return v.GetStringValue()
}

// scopeField defaults to the general scope when the caller names none.
func scopeField(req *structpb.Struct) (domain.Scope, error) {
	raw := stringField(req, "scope")
	if raw == "" {
		return domain.ScopeGeneral, nil
	}
	scope := domain.Scope(raw)
	if !scope.Valid() {
		return "", status.Errorf(codes.InvalidArgument, "unknown scope %q", raw)
	}
	return scope, nil
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func unaryHandler(method string, call func(context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
