package authapi_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/internal/authserver"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorUnwrap(t *testing.T) {
	tests := []struct {
		name string
		err  *authapi.APIError
		want error
	}{
		{"unauthorized", &authapi.APIError{Status: http.StatusUnauthorized}, authapi.ErrUnauthorized},
		{"reuse", &authapi.APIError{Status: http.StatusUnauthorized, Code: authapi.CodeTokenReuse}, authapi.ErrTokenReuse},
		{"server error", &authapi.APIError{Status: http.StatusInternalServerError}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, errors.Unwrap(tt.err))
			require.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestHTTPClientAgainstReferenceServer(t *testing.T) {
	signer, err := jwt.NewSigner(jwt.Config{
		AccessTTL:     time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("authapi-test-secret-000000000000"),
	})
	require.NoError(t, err)
	srv, err := authserver.New(authserver.Config{Signer: signer})
	require.NoError(t, err)
	_, err = srv.AddUser("m@example.com", "member-password", jwt.Subject{Role: jwt.RoleMember})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	client := authapi.NewHTTPClient(ts.URL + "/")
	ctx := context.Background()

	tokens, err := client.Login(ctx, "m@example.com", "member-password")
	require.NoError(t, err)

	user, err := client.Me(ctx, tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, jwt.RoleMember, user.Role)

	_, err = client.Me(ctx, "garbage")
	require.ErrorIs(t, err, authapi.ErrUnauthorized)
}

func TestHTTPClientCustomEndpointsAndBearer(t *testing.T) {
	var gotAuth, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"user":{"id":"u1","email":"a@b.c","role":"admin","isVerified":true}}`)
	}))
	defer ts.Close()

	client := authapi.NewHTTPClient(ts.URL, authapi.WithEndpoints(authapi.Endpoints{Me: "/v2/me"}))
	user, err := client.Me(context.Background(), "access-1")
	require.NoError(t, err)
	require.Equal(t, "Bearer access-1", gotAuth)
	require.Equal(t, "/v2/me", gotPath)
	require.Equal(t, jwt.RoleAdmin, user.Role)
}

func TestHTTPClientNetworkErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))
	client := authapi.NewHTTPClient(ts.URL)

	_, err := client.Refresh(context.Background(), "r1")
	require.ErrorIs(t, err, authapi.ErrNetwork)

	ts.Close()
	_, err = client.Login(context.Background(), "a@b.c", "pw")
	require.ErrorIs(t, err, authapi.ErrNetwork)
}

func TestHTTPClientErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":"TOKEN_REUSE_DETECTED","message":"refresh token already used"}`)
	}))
	defer ts.Close()

	_, err := authapi.NewHTTPClient(ts.URL).Refresh(context.Background(), "r1")
	require.ErrorIs(t, err, authapi.ErrTokenReuse)

	var apiErr *authapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "refresh token already used", apiErr.Message)
}
