package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/smart-portfolio/backend/internal/auth"
)

const secret = "test-secret"

func newVerifier(t *testing.T) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(secret)
	require.NoError(t, err)
	return v
}

func TestIssueAndVerify(t *testing.T) {
	v := newVerifier(t)

	token, err := v.Issue("ana@example.com", "Ana", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", claims.Email)
	require.Equal(t, "Ana", claims.Name)
}

func TestVerifyRejects(t *testing.T) {
	v := newVerifier(t)

	expired, err := v.Issue("ana@example.com", "", -time.Minute)
	require.NoError(t, err)

	other, err := auth.NewVerifier("other-secret")
	require.NoError(t, err)
	foreign, err := other.Issue("ana@example.com", "", time.Hour)
	require.NoError(t, err)

	noEmail, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{}).SignedString([]byte(secret))
	require.NoError(t, err)

	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, auth.Claims{Email: "ana@example.com"}).SignedString([]byte(secret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":   expired,
		"foreign":   foreign,
		"no email":  noEmail,
		"wrong alg": wrongAlg,
		"malformed": "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			require.ErrorIs(t, err, auth.ErrUnauthorized)
		})
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := auth.NewVerifier("")
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	v := newVerifier(t)
	token, err := v.Issue("ana@example.com", "", time.Hour)
	require.NoError(t, err)

	var seen string
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		require.True(t, ok)
		seen = claims.Email
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer " + token, status: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer " + token, status: http.StatusNoContent},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "basic", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer garbage", status: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusUnauthorized {
				require.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
				require.Empty(t, seen)
			} else {
				require.Equal(t, "ana@example.com", seen)
			}
		})
	}
}
