package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyloyalty/points-backend/internal/accounts"
	"github.com/propertyloyalty/points-backend/internal/ledger"
	"github.com/propertyloyalty/points-backend/internal/settlements"
	"github.com/propertyloyalty/points-backend/internal/sharesetting"
	"github.com/propertyloyalty/points-backend/internal/transfers"
	pkgAuth "github.com/propertyloyalty/points-backend/pkg/auth"
	"github.com/propertyloyalty/points-backend/pkg/config"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	"github.com/propertyloyalty/points-backend/pkg/logger"
	"github.com/propertyloyalty/points-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubEngine struct {
	settled  int
	consumed int
}

func (s *stubEngine) Balance(_ context.Context, key accounts.Key) (*accounts.Balance, error) {
	return &accounts.Balance{UserID: key.UserID, Identity: key.Identity}, nil
}

func (s *stubEngine) CreditConsumption(context.Context, transfers.ConsumptionInput) (*transfers.ConsumptionResult, error) {
	s.consumed++
	return &transfers.ConsumptionResult{}, nil
}

func (s *stubEngine) PayPropertyFee(context.Context, transfers.PropertyFeeInput) (*transfers.PeerTransferResult, error) {
	return &transfers.PeerTransferResult{}, nil
}

func (s *stubEngine) Settle(context.Context, transfers.SettleInput) (*transfers.SettleResult, error) {
	s.settled++
	return &transfers.SettleResult{}, nil
}

func (s *stubEngine) RedeemDiscount(context.Context, transfers.DiscountRedeemInput) (*transfers.DiscountRedeemResult, error) {
	return &transfers.DiscountRedeemResult{}, nil
}

func (s *stubEngine) Adjust(context.Context, transfers.AdjustInput) (*transfers.AdjustResult, error) {
	return &transfers.AdjustResult{}, nil
}

func (s *stubEngine) ListRedeemRecords(context.Context, transfers.RedeemFilters, pagination.Params) (*pagination.Page[transfers.RedeemRecordDTO], error) {
	return &pagination.Page[transfers.RedeemRecordDTO]{}, nil
}

type stubLedger struct{}

func (stubLedger) List(context.Context, ledger.ListQuery) (*pagination.Page[ledger.EntryDTO], error) {
	return &pagination.Page[ledger.EntryDTO]{}, nil
}

func (stubLedger) Summary(context.Context, ledger.Filters) (*ledger.ConsumptionSummary, error) {
	return &ledger.ConsumptionSummary{}, nil
}

type stubSettlements struct{}

func (stubSettlements) CreateReview(context.Context, settlements.CreateReviewInput) (*settlements.ReviewResult, error) {
	return &settlements.ReviewResult{}, nil
}

func (stubSettlements) List(context.Context, settlements.ListOrdersInput) (*pagination.Page[settlements.OrderDTO], error) {
	return &pagination.Page[settlements.OrderDTO]{}, nil
}

func (stubSettlements) Get(_ context.Context, _ settlements.Actor, orderID string) (*settlements.OrderDTO, error) {
	return &settlements.OrderDTO{OrderID: orderID}, nil
}

type stubShareSettings struct{}

func (stubShareSettings) Get(context.Context) (*sharesetting.Rates, error) {
	return &sharesetting.Rates{MerchantRate: sharesetting.MerchantRate, OwnerRate: 5}, nil
}

func (stubShareSettings) Update(_ context.Context, ownerRate int) (*sharesetting.Rates, error) {
	return &sharesetting.Rates{MerchantRate: sharesetting.MerchantRate, OwnerRate: ownerRate}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test"},
		JWT:  config.JWTConfig{Secret: "secret", Issuer: "points-backend", ExpirationMinutes: 30},
		CORS: config.CORSConfig{AllowedOrigins: []string{"https://admin.example.com"}, MaxAge: time.Minute},
	}
}

func newTestRouter(engine *stubEngine) http.Handler {
	return newTestRouterWith(testConfig(), engine)
}

func newTestRouterWith(cfg *config.Config, engine *stubEngine) http.Handler {
	return NewRouter(Params{
		Config:        cfg,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Location:      time.UTC,
		DB:            stubPinger{},
		Metrics:       http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "ledger_operations_total 1\n") }),
		Engine:        engine,
		Ledger:        stubLedger{},
		Settlements:   stubSettlements{},
		ShareSettings: stubShareSettings{},
	})
}

func bearer(t *testing.T, identity enums.Identity) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		Identity: identity,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPublicRoutes(t *testing.T) {
	h := newTestRouter(&stubEngine{})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/ready", "", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/public/ping", "", "").Code)

	rec := do(t, h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ledger_operations_total")
}

func TestRequestIDEchoed(t *testing.T) {
	rec := do(t, newTestRouter(&stubEngine{}), http.MethodGet, "/health/live", "", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	h := newTestRouter(&stubEngine{})
	for _, path := range []string{"/api/ping", "/api/v1/points/accounts/owner", "/api/v1/orders", "/api/admin/v1/points/share-setting"} {
		assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, path, "", "").Code, path)
	}
}

func TestIdentityGuards(t *testing.T) {
	engine := &stubEngine{}
	h := newTestRouter(engine)

	tests := []struct {
		name     string
		method   string
		path     string
		identity enums.Identity
		body     string
		want     int
	}{
		{"owner reads balance", http.MethodGet, "/api/v1/points/accounts/owner", enums.IdentityOwner, "", http.StatusOK},
		{"owner records consumption", http.MethodPost, "/api/v1/points/consumption", enums.IdentityOwner, `{"merchant_code":"M1","points":3}`, http.StatusCreated},
		{"merchant cannot record consumption", http.MethodPost, "/api/v1/points/consumption", enums.IdentityMerchant, `{"merchant_code":"M1","points":3}`, http.StatusForbidden},
		{"merchant settles", http.MethodPost, "/api/v1/merchant/settlements", enums.IdentityMerchant, `{"phone":"13800001111","amount":"10.5"}`, http.StatusCreated},
		{"owner cannot settle", http.MethodPost, "/api/v1/merchant/settlements", enums.IdentityOwner, `{"phone":"13800001111","amount":"10.5"}`, http.StatusForbidden},
		{"merchant lists orders", http.MethodGet, "/api/v1/orders", enums.IdentityMerchant, "", http.StatusOK},
		{"property cannot list orders", http.MethodGet, "/api/v1/orders", enums.IdentityProperty, "", http.StatusForbidden},
		{"merchant cannot review", http.MethodPost, "/api/v1/orders/SO1/review", enums.IdentityMerchant, `{"rating":5}`, http.StatusForbidden},
		{"owner reviews", http.MethodPost, "/api/v1/orders/SO1/review", enums.IdentityOwner, `{"rating":5}`, http.StatusCreated},
		{"owner cannot read share setting", http.MethodGet, "/api/admin/v1/points/share-setting", enums.IdentityOwner, "", http.StatusForbidden},
		{"admin reads share setting", http.MethodGet, "/api/admin/v1/points/share-setting", enums.IdentityAdmin, "", http.StatusOK},
		{"admin reads any order", http.MethodGet, "/api/admin/v1/orders/SO1", enums.IdentityAdmin, "", http.StatusOK},
		{"admin lists redeem records", http.MethodGet, "/api/admin/v1/points/redeem-records", enums.IdentityAdmin, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, bearer(t, tt.identity), tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, 1, engine.settled)
	assert.Equal(t, 1, engine.consumed)
}

func TestCORSPreflightHonoursAllowList(t *testing.T) {
	h := newTestRouter(&stubEngine{})

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/points/consumption", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, "https://admin.example.com", preflight("https://admin.example.com").Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, preflight("https://evil.example.com").Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitAppliesPerToken(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{PerSecond: 0.01, Burst: 1}
	h := newTestRouterWith(cfg, &stubEngine{})

	owner := bearer(t, enums.IdentityOwner)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/ping", owner, "").Code)
	limited := do(t, h, http.MethodGet, "/api/ping", owner, "")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "100", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/ping", bearer(t, enums.IdentityOwner), "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/live", "", "").Code)
}
