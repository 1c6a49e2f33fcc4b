package vaultauth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	vaultauth "github.com/vaultauth/vaultauth"
	"github.com/vaultauth/vaultauth/userstore/memory"
)

const (
	testSaltHex = "756e69742d746573742d73616c74" // "unit-test-salt"
	testIVHex   = "000102030405060708090a0b0c0d0e0f"
)

func testConfig(current string, previous ...string) vaultauth.Config {
	return vaultauth.Config{
		Secrets: vaultauth.SecretsConfig{
			Current:  current,
			Previous: previous,
			Refresh:  "unit-refresh-secret",
		},
		Crypto: vaultauth.CryptoConfig{
			SaltHex: testSaltHex,
			IVHex:   testIVHex,
		},
		Token: vaultauth.TokenConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Account: vaultauth.AccountConfig{
			DefaultRole:       "user",
			MinPasswordLength: 8,
		},
		Password: vaultauth.PasswordConfig{
			Memory:      8 * 1024,
			Time:        1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Metrics: vaultauth.MetricsConfig{Enabled: true},
	}
}

type testEnv struct {
	engine *vaultauth.Engine
	users  *memory.Store
	redis  *miniredis.Miniredis
	client *redis.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := memory.New()
	engine, err := vaultauth.New().
		WithConfig(testConfig("unit-signing-secret")).
		WithRedis(rdb).
		WithUserStore(users).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}

	return &testEnv{engine: engine, users: users, redis: mr, client: rdb}
}

func (env *testEnv) registerAndLogin(t *testing.T, email, pass string) (vaultauth.TokenPair, *vaultauth.User) {
	t.Helper()

	user, err := env.engine.Register(context.Background(), email, pass, "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	pair, err := env.engine.Login(context.Background(), email, pass)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return pair, user
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pair, user := env.registerAndLogin(t, "a@test.com", "StrongPass123")

	ident, err := env.engine.VerifyAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("fresh access token rejected: %v", err)
	}
	if ident.ID != user.ID || ident.Email != "a@test.com" || ident.Role != "user" {
		t.Fatalf("identity mismatch: %+v", ident)
	}

	me, err := env.engine.CurrentUser(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("current user lookup failed: %v", err)
	}
	if me.ID != user.ID || me.PasswordHash == "" {
		t.Fatalf("unexpected user record: %+v", me)
	}
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, user := env.registerAndLogin(t, "a@test.com", "StrongPass123")

	// Unknown email, wrong password, and banned account must be
	// indistinguishable to the caller.
	if _, err := env.engine.Login(ctx, "missing@test.com", "StrongPass123"); !errors.Is(err, vaultauth.ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}
	if _, err := env.engine.Login(ctx, "a@test.com", "WrongPass123"); !errors.Is(err, vaultauth.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}

	env.users.SetStatus(user.ID, vaultauth.StatusBanned)
	if _, err := env.engine.Login(ctx, "a@test.com", "StrongPass123"); !errors.Is(err, vaultauth.ErrInvalidCredentials) {
		t.Fatalf("banned account: got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Register(ctx, "not-an-email", "StrongPass123", ""); !errors.Is(err, vaultauth.ErrValidation) {
		t.Fatalf("bad email: got %v", err)
	}
	if _, err := env.engine.Register(ctx, "a@test.com", "short", ""); !errors.Is(err, vaultauth.ErrValidation) {
		t.Fatalf("short password: got %v", err)
	}

	if _, err := env.engine.Register(ctx, "a@test.com", "StrongPass123", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := env.engine.Register(ctx, "a@test.com", "StrongPass123", ""); !errors.Is(err, vaultauth.ErrUserExists) {
		t.Fatalf("duplicate email: got %v", err)
	}
}

func TestVerifyRejectsMissingAndGarbageTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.VerifyAccess(ctx, ""); !errors.Is(err, vaultauth.ErrUnauthenticated) {
		t.Fatalf("empty token: got %v", err)
	}
	if _, err := env.engine.VerifyAccess(ctx, "not.a.jwt"); !errors.Is(err, vaultauth.ErrInvalidSignature) {
		t.Fatalf("garbage token: got %v", err)
	}
}

func TestLogoutRevokesAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pair, _ := env.registerAndLogin(t, "a@test.com", "StrongPass123")

	if err := env.engine.Logout(ctx, pair.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	// The signature is still valid and the token unexpired; only the
	// denylist rejects it.
	if _, err := env.engine.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, vaultauth.ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}

	if err := env.engine.Logout(ctx, pair.AccessToken); err != nil {
		t.Fatalf("second logout must be an idempotent success: %v", err)
	}

	// Logout also terminates the refresh session.
	if _, err := env.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, vaultauth.ErrSessionMismatch) {
		t.Fatalf("expected ErrSessionMismatch after logout, got %v", err)
	}
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pair, user := env.registerAndLogin(t, "a@test.com", "StrongPass123")

	// Claim timestamps have second granularity, so a pair minted in the
	// same second as the previous one would be byte-identical. Step past
	// the boundary to make rotation observable.
	time.Sleep(1100 * time.Millisecond)

	rotated, err := env.engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("rotation must mint a new refresh token")
	}

	ident, err := env.engine.VerifyAccess(ctx, rotated.AccessToken)
	if err != nil {
		t.Fatalf("rotated access token rejected: %v", err)
	}
	if ident.ID != user.ID || ident.Role != "user" {
		t.Fatalf("identity mismatch after rotation: %+v", ident)
	}

	if _, err := env.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, vaultauth.ErrSessionMismatch) {
		t.Fatalf("re-presenting a rotated token must fail with ErrSessionMismatch, got %v", err)
	}
	if _, err := env.engine.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("current refresh token must keep working: %v", err)
	}
}

func TestRefreshRejectsForeignTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pair, _ := env.registerAndLogin(t, "a@test.com", "StrongPass123")

	if _, err := env.engine.Refresh(ctx, "garbage"); !errors.Is(err, vaultauth.ErrTokenInvalid) {
		t.Fatalf("garbage refresh token: got %v", err)
	}
	// An access token is signed with the wrong secret for refresh.
	if _, err := env.engine.Refresh(ctx, pair.AccessToken); !errors.Is(err, vaultauth.ErrTokenInvalid) {
		t.Fatalf("access token presented as refresh: got %v", err)
	}
}

// Secret rotation keeps old signatures verifiable via the previous list, but
// the payload key is derived from the current secret only, so a rotated-out
// token fails at decryption with ErrTokenInvalid rather than
// ErrInvalidSignature. A secret absent from both lists fails earlier, at the
// signature stage. Both stages are pinned here.
func TestSecretRotation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pair, _ := env.registerAndLogin(t, "a@test.com", "StrongPass123")

	rotated, err := vaultauth.New().
		WithConfig(testConfig("rotated-signing-secret", "unit-signing-secret")).
		WithRedis(env.client).
		WithUserStore(env.users).
		Build()
	if err != nil {
		t.Fatalf("rotated engine build failed: %v", err)
	}
	if _, err := rotated.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, vaultauth.ErrTokenInvalid) {
		t.Fatalf("previous-secret token should pass signature and fail decryption, got %v", err)
	}

	unrelated, err := vaultauth.New().
		WithConfig(testConfig("rotated-signing-secret")).
		WithRedis(env.client).
		WithUserStore(env.users).
		Build()
	if err != nil {
		t.Fatalf("unrelated engine build failed: %v", err)
	}
	if _, err := unrelated.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, vaultauth.ErrInvalidSignature) {
		t.Fatalf("unlisted secret must fail at the signature stage, got %v", err)
	}
}

func TestStoreOutageIsInternalNotInvalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pair, _ := env.registerAndLogin(t, "a@test.com", "StrongPass123")
	env.redis.Close()

	// A cache outage must never be reported as a token problem.
	if _, err := env.engine.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, vaultauth.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := env.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, vaultauth.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable on refresh, got %v", err)
	}
	if err := env.engine.Logout(ctx, pair.AccessToken); !errors.Is(err, vaultauth.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable on logout, got %v", err)
	}
}

func TestSingleActiveSessionPerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, _ := env.registerAndLogin(t, "a@test.com", "StrongPass123")

	time.Sleep(1100 * time.Millisecond)

	second, err := env.engine.Login(ctx, "a@test.com", "StrongPass123")
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}

	// The second login overwrote the stored session, so the first refresh
	// token is dead even though it was never used.
	if _, err := env.engine.Refresh(ctx, first.RefreshToken); !errors.Is(err, vaultauth.ErrSessionMismatch) {
		t.Fatalf("expected ErrSessionMismatch for the displaced session, got %v", err)
	}
	if _, err := env.engine.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("latest session must refresh: %v", err)
	}
}

func TestMetricsCountAuthEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pair, _ := env.registerAndLogin(t, "a@test.com", "StrongPass123")
	_, _ = env.engine.Login(ctx, "a@test.com", "WrongPass123")
	if _, err := env.engine.VerifyAccess(ctx, pair.AccessToken); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := env.engine.Logout(ctx, pair.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	for id, want := range map[vaultauth.MetricID]uint64{
		vaultauth.MetricRegisterSuccess: 1,
		vaultauth.MetricLoginSuccess:    1,
		vaultauth.MetricLoginFailure:    1,
		vaultauth.MetricVerifySuccess:   1,
		vaultauth.MetricLogout:          1,
	} {
		if got := snap.Counters[id]; got != want {
			t.Errorf("counter %d = %d, want %d", id, got, want)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	cases := map[string]func(*vaultauth.Config){
		"empty current secret": func(c *vaultauth.Config) { c.Secrets.Current = "" },
		"empty refresh secret": func(c *vaultauth.Config) { c.Secrets.Refresh = "" },
		"bad salt hex":         func(c *vaultauth.Config) { c.Crypto.SaltHex = "zz" },
		"short salt":           func(c *vaultauth.Config) { c.Crypto.SaltHex = "aabb" },
		"bad iv length":        func(c *vaultauth.Config) { c.Crypto.IVHex = "aabbcc" },
	}

	for name, mutate := range cases {
		cfg := testConfig("unit-signing-secret")
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation failure", name)
		}
	}

	if err := testConfig("unit-signing-secret").Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
