package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	vaultauth "github.com/vaultauth/vaultauth"
	"github.com/vaultauth/vaultauth/userstore/memory"
)

func newTestEngine(t *testing.T) (*vaultauth.Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := vaultauth.New().
		WithConfig(vaultauth.Config{
			Secrets: vaultauth.SecretsConfig{
				Current: "guard-signing-secret",
				Refresh: "guard-refresh-secret",
			},
			Crypto: vaultauth.CryptoConfig{
				SaltHex: "67756172642d746573742d73616c74",
				IVHex:   "000102030405060708090a0b0c0d0e0f",
			},
			Password: vaultauth.PasswordConfig{
				Memory:      8 * 1024,
				Time:        1,
				Parallelism: 1,
				SaltLength:  16,
				KeyLength:   32,
			},
		}).
		WithRedis(rdb).
		WithUserStore(memory.New()).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	return engine, mr
}

func loginTestUser(t *testing.T, engine *vaultauth.Engine) vaultauth.TokenPair {
	t.Helper()

	ctx := context.Background()
	if _, err := engine.Register(ctx, "a@test.com", "StrongPass123", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	pair, err := engine.Login(ctx, "a@test.com", "StrongPass123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return pair
}

func guardedEcho(t *testing.T, engine *vaultauth.Engine) http.Handler {
	t.Helper()

	return Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Error("guarded handler ran without an identity in context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(ident.Email))
	}))
}

func TestGuardPassesValidToken(t *testing.T) {
	engine, _ := newTestEngine(t)
	pair := loginTestUser(t, engine)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()

	guardedEcho(t, engine).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "a@test.com" {
		t.Fatalf("identity email = %q", got)
	}
}

func TestGuardRejectsMissingOrMalformedHeader(t *testing.T) {
	engine, _ := newTestEngine(t)

	for name, header := range map[string]string{
		"absent":       "",
		"no scheme":    "sometoken",
		"wrong scheme": "Basic sometoken",
		"empty bearer": "Bearer ",
	} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()

		guardedEcho(t, engine).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
	}
}

func TestGuardRejectsRevokedToken(t *testing.T) {
	engine, _ := newTestEngine(t)
	pair := loginTestUser(t, engine)

	if err := engine.Logout(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()

	guardedEcho(t, engine).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestGuardReportsStoreOutageAsInternal(t *testing.T) {
	engine, mr := newTestEngine(t)
	pair := loginTestUser(t, engine)
	mr.Close()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()

	guardedEcho(t, engine).ServeHTTP(rec, req)

	// An unreachable cache must never look like a denied token.
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	if tok, ok := bearerToken("Bearer abc"); !ok || tok != "abc" {
		t.Fatalf("bearerToken = %q, %v", tok, ok)
	}
	if _, ok := bearerToken("bearer abc"); ok {
		t.Fatal("scheme must be case sensitive")
	}
	if _, ok := bearerToken("Bearer"); ok {
		t.Fatal("bare scheme must not parse")
	}
}
