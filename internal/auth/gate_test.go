package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func introspectionServer(t *testing.T, infoFor func(token string) (tokenInfo, int)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, status := infoFor(r.URL.Query().Get("access_token"))
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(info)
	}))
}

func TestValidateCredential_AdminOverride(t *testing.T) {
	g := NewGate("admin-secret", "client-1", "http://127.0.0.1:1", "", "", "", "", nil)

	if !g.ValidateCredential(context.Background(), "admin-secret") {
		t.Fatalf("expected admin token to pass without introspection")
	}
	if g.ValidateCredential(context.Background(), "") {
		t.Fatalf("expected empty token rejected")
	}
}

func TestValidateCredential_Introspection(t *testing.T) {
	srv := introspectionServer(t, func(token string) (tokenInfo, int) {
		switch token {
		case "good":
			return tokenInfo{Azp: "client-1", ExpiresIn: "3599"}, http.StatusOK
		case "wrong-client":
			return tokenInfo{Azp: "someone-else", ExpiresIn: "3599"}, http.StatusOK
		case "expired":
			return tokenInfo{Azp: "client-1", Exp: json.Number(fmt.Sprint(time.Now().Add(-time.Hour).Unix()))}, http.StatusOK
		default:
			return tokenInfo{}, http.StatusBadRequest
		}
	})
	defer srv.Close()

	g := NewGate("", "client-1", srv.URL, "", "", "", "", nil)
	ctx := context.Background()

	if !g.ValidateCredential(ctx, "good") {
		t.Fatalf("expected valid token accepted")
	}
	if g.ValidateCredential(ctx, "wrong-client") {
		t.Fatalf("expected token for another client rejected")
	}
	if g.ValidateCredential(ctx, "expired") {
		t.Fatalf("expected expired token rejected")
	}
	if g.ValidateCredential(ctx, "garbage") {
		t.Fatalf("expected unknown token rejected")
	}
}

func TestValidateCredential_AudienceFallback(t *testing.T) {
	srv := introspectionServer(t, func(token string) (tokenInfo, int) {
		return tokenInfo{Aud: "client-1", ExpiresIn: "60"}, http.StatusOK
	})
	defer srv.Close()

	g := NewGate("", "client-1", srv.URL, "", "", "", "", nil)
	if !g.ValidateCredential(context.Background(), "aud-token") {
		t.Fatalf("expected aud match to pass when azp absent")
	}
}

func TestValidateCredential_DevToken(t *testing.T) {
	g := NewGate("", "client-1", "http://127.0.0.1:1", "dev-secret", "", "", "", nil)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "service",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("dev-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !g.ValidateCredential(context.Background(), signed) {
		t.Fatalf("expected dev-signed token accepted")
	}

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "service",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if g.ValidateCredential(context.Background(), forged) {
		t.Fatalf("expected token with wrong secret rejected")
	}
}

func TestTokenInfoExpiresAt(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	exp, ok := tokenInfo{Exp: "1700003600"}.expiresAt(now)
	if !ok || exp.Unix() != 1_700_003_600 {
		t.Fatalf("absolute exp not honored: %v %v", exp, ok)
	}

	exp, ok = tokenInfo{ExpiresIn: "120"}.expiresAt(now)
	if !ok || exp.Sub(now) != 2*time.Minute {
		t.Fatalf("relative expiry not honored: %v %v", exp, ok)
	}

	if _, ok := (tokenInfo{}).expiresAt(now); ok {
		t.Fatalf("expected no expiry claims to report false")
	}
}

func TestVerifyDirectoryUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "svc-id" || pass != "svc-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path == "/user/42" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewGate("", "client-1", "", "", srv.URL, "svc-id", "svc-secret", nil)
	ctx := context.Background()

	if !g.VerifyDirectoryUser(ctx, "42") {
		t.Fatalf("expected known user verified")
	}
	if g.VerifyDirectoryUser(ctx, "99") {
		t.Fatalf("expected unknown user rejected")
	}

	g.DirectoryClientSecret = "wrong"
	if g.VerifyDirectoryUser(ctx, "42") {
		t.Fatalf("expected bad service credentials rejected")
	}
}
