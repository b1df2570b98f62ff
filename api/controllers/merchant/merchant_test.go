package merchant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyloyalty/points-backend/api/middleware"
	"github.com/propertyloyalty/points-backend/internal/sharesetting"
	"github.com/propertyloyalty/points-backend/internal/transfers"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
)

type stubTransfers struct {
	settle    *transfers.SettleInput
	redeem    *transfers.DiscountRedeemInput
	redeemErr error
}

func (s *stubTransfers) Settle(_ context.Context, input transfers.SettleInput) (*transfers.SettleResult, error) {
	s.settle = &input
	return &transfers.SettleResult{CorrelationID: uuid.New()}, nil
}

func (s *stubTransfers) RedeemDiscount(_ context.Context, input transfers.DiscountRedeemInput) (*transfers.DiscountRedeemResult, error) {
	s.redeem = &input
	if s.redeemErr != nil {
		return nil, s.redeemErr
	}
	return &transfers.DiscountRedeemResult{}, nil
}

type stubRates struct {
	ownerRate int
	err       error
}

func (s stubRates) Get(context.Context) (*sharesetting.Rates, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &sharesetting.Rates{MerchantRate: sharesetting.MerchantRate, OwnerRate: s.ownerRate}, nil
}

func merchantRequest(method, body string, userID uuid.UUID, identity enums.Identity) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithIdentity(ctx, identity)
	return req.WithContext(ctx)
}

func TestSettlePassesCurrentRate(t *testing.T) {
	svc := &stubTransfers{}
	userID := uuid.New()
	req := merchantRequest(http.MethodPost, `{"phone":"13800001111","amount":"137.99"}`, userID, enums.IdentityMerchant)
	rec := httptest.NewRecorder()
	Settle(svc, stubRates{ownerRate: 5}, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.settle)
	assert.Equal(t, userID, svc.settle.MerchantUserID)
	assert.Equal(t, "13800001111", svc.settle.OwnerPhone)
	assert.True(t, decimal.RequireFromString("137.99").Equal(svc.settle.Amount))
	assert.Equal(t, 5, svc.settle.OwnerRate)
}

func TestSettleRejections(t *testing.T) {
	tests := []struct {
		name     string
		identity enums.Identity
		body     string
		rates    stubRates
		status   int
	}{
		{"owner token", enums.IdentityOwner, `{"phone":"13800001111","amount":"10"}`, stubRates{ownerRate: 5}, http.StatusForbidden},
		{"amount not numeric", enums.IdentityMerchant, `{"phone":"13800001111","amount":"ten"}`, stubRates{ownerRate: 5}, http.StatusBadRequest},
		{"bad phone", enums.IdentityMerchant, `{"phone":"call me","amount":"10"}`, stubRates{ownerRate: 5}, http.StatusBadRequest},
		{"rates unavailable", enums.IdentityMerchant, `{"phone":"13800001111","amount":"10"}`, stubRates{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubTransfers{}
			rec := httptest.NewRecorder()
			Settle(svc, tt.rates, nil).ServeHTTP(rec, merchantRequest(http.MethodPost, tt.body, uuid.New(), tt.identity))

			assert.Equal(t, tt.status, rec.Code)
			assert.Nil(t, svc.settle)
		})
	}
}

func TestRedeemDiscount(t *testing.T) {
	svc := &stubTransfers{}
	userID := uuid.New()
	rec := httptest.NewRecorder()
	RedeemDiscount(svc, nil).ServeHTTP(rec, merchantRequest(http.MethodPost, `{"phone":"13800001111","points":80}`, userID, enums.IdentityMerchant))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.redeem)
	assert.Equal(t, transfers.DiscountRedeemInput{MerchantUserID: userID, OwnerPhone: "13800001111", Points: 80}, *svc.redeem)
}

func TestRedeemDiscountForbiddenForRegularMerchant(t *testing.T) {
	svc := &stubTransfers{redeemErr: pkgerrors.New(pkgerrors.CodeForbidden, "only discount stores can redeem points")}
	rec := httptest.NewRecorder()
	RedeemDiscount(svc, nil).ServeHTTP(rec, merchantRequest(http.MethodPost, `{"phone":"13800001111","points":80}`, uuid.New(), enums.IdentityMerchant))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
