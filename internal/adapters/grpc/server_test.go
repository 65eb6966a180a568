package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/application"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

type fakeAuthority struct {
	accountID uuid.UUID
}

func (f fakeAuthority) Authenticate(_ context.Context, scope domain.Scope, token string) (ports.TokenClaims, error) {
	switch token {
	case "general-token":
		if scope == domain.ScopeAdmin {
			return ports.TokenClaims{}, domain.ErrNotAdmin
		}
		return ports.TokenClaims{
			Subject:     f.accountID,
			Email:       "jane@example.com",
			Role:        "user",
			Permissions: []string{"read", "write", "user"},
			ExpiresAt:   time.Unix(1_900_000_000, 0),
		}, nil
	case "expired-token":
		return ports.TokenClaims{}, domain.ErrSessionExpired
	default:
		return ports.TokenClaims{}, domain.ErrUnauthorized
	}
}

func (f fakeAuthority) Profile(_ context.Context, _ domain.Scope, accountID uuid.UUID) (application.AccountView, error) {
	if accountID != f.accountID {
		return application.AccountView{}, domain.ErrUserNotFound
	}
	return application.AccountView{
		ID:     accountID,
		Name:   "Jane Doe",
		Email:  "jane@example.com",
		Role:   domain.RoleUser,
		Status: domain.StatusActive,
	}, nil
}

func dial(t *testing.T, authority AccountAuthority) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	Register(server, NewAuthInternalServer(authority))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, fields map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp := &structpb.Struct{}
	err = conn.Invoke(ctx, "/"+serviceName+"/"+method, req, resp)
	return resp, err
}

func TestValidateToken(t *testing.T) {
	t.Parallel()
	accountID := uuid.New()
	conn := dial(t, fakeAuthority{accountID: accountID})

	resp, err := invoke(t, conn, "ValidateToken", map[string]any{"token": "general-token"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	fields := resp.GetFields()
	if !fields["valid"].GetBoolValue() || fields["user_id"].GetStringValue() != accountID.String() {
		t.Fatalf("unexpected response %v", resp)
	}
	if got := len(fields["permissions"].GetListValue().GetValues()); got != 3 {
		t.Fatalf("expected three permissions, got %d", got)
	}

	tests := []struct {
		token  string
		scope  string
		reason string
	}{
		{token: "general-token", scope: "admin", reason: "not_admin"},
		{token: "expired-token", reason: "token_expired"},
		{token: "forged", reason: "invalid_token"},
	}
	for _, tc := range tests {
		resp, err := invoke(t, conn, "ValidateToken", map[string]any{"token": tc.token, "scope": tc.scope})
		if err != nil {
			t.Fatalf("%s: %v", tc.token, err)
		}
		if resp.GetFields()["valid"].GetBoolValue() || resp.GetFields()["reason"].GetStringValue() != tc.reason {
			t.Fatalf("%s: expected reason %s, got %v", tc.token, tc.reason, resp)
		}
	}
}

func TestValidateTokenArgumentErrors(t *testing.T) {
	t.Parallel()
	conn := dial(t, fakeAuthority{})

	if _, err := invoke(t, conn, "ValidateToken", map[string]any{}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for missing token, got %v", err)
	}
	if _, err := invoke(t, conn, "ValidateToken", map[string]any{"token": "x", "scope": "root"}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for unknown scope, got %v", err)
	}
}

func TestGetAccount(t *testing.T) {
	t.Parallel()
	accountID := uuid.New()
	conn := dial(t, fakeAuthority{accountID: accountID})

	resp, err := invoke(t, conn, "GetAccount", map[string]any{"user_id": accountID.String()})
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if resp.GetFields()["email"].GetStringValue() != "jane@example.com" || resp.GetFields()["status"].GetStringValue() != "active" {
		t.Fatalf("unexpected account %v", resp)
	}

	if _, err := invoke(t, conn, "GetAccount", map[string]any{"user_id": uuid.NewString()}); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := invoke(t, conn, "GetAccount", map[string]any{"user_id": "nope"}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}
