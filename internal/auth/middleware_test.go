package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/chinmaya-sahoo/Farr/internal/domain"
)

var testConfig = Config{Secret: "test-secret", Issuer: "farr.identity"}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)
	return token
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "u1",
		"role": "admin",
		"iss":  testConfig.Issuer,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func TestWrapStoresClaimsOnContext(t *testing.T) {
	mw := NewMiddleware(testConfig, nil)

	var seen *Claims
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/progress", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims()))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "u1", seen.UserID)
	require.Equal(t, domain.RoleAdmin, seen.Role)
}

func TestWrapRejectsMissingTokenWithJSONEnvelope(t *testing.T) {
	mw := NewMiddleware(testConfig, nil)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/progress", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, "unauthorized", payload["type"])
	require.NotEmpty(t, payload["detail"])
}

func TestWrapRejectsExpiredToken(t *testing.T) {
	mw := NewMiddleware(testConfig, nil)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	claims := validClaims()
	claims["exp"] = time.Now().Add(-time.Minute).Unix()

	req := httptest.NewRequest(http.MethodGet, "/v1/progress", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, "unauthorized", payload["type"])
}

func TestWrapRejectsWrongIssuer(t *testing.T) {
	mw := NewMiddleware(testConfig, nil)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	claims := validClaims()
	claims["iss"] = "someone-else"

	req := httptest.NewRequest(http.MethodGet, "/v1/progress", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWrapSkipperBypassesAuth(t *testing.T) {
	mw := NewMiddleware(testConfig, func(r *http.Request) bool {
		return r.URL.Path == "/healthz"
	})

	called := false
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}

func TestWrapDefaultsUnknownRoleToUser(t *testing.T) {
	mw := NewMiddleware(testConfig, nil)

	var seen *Claims
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	claims := validClaims()
	claims["role"] = "superuser"

	req := httptest.NewRequest(http.MethodGet, "/v1/progress", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, domain.RoleUser, seen.Role)
}
