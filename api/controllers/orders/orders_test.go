package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyloyalty/points-backend/api/middleware"
	"github.com/propertyloyalty/points-backend/internal/settlements"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/pagination"
)

type stubSettlements struct {
	listInput   *settlements.ListOrdersInput
	getOrderID  string
	reviewInput *settlements.CreateReviewInput
	err         error
}

func (s *stubSettlements) CreateReview(_ context.Context, input settlements.CreateReviewInput) (*settlements.ReviewResult, error) {
	s.reviewInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return &settlements.ReviewResult{}, nil
}

func (s *stubSettlements) List(_ context.Context, input settlements.ListOrdersInput) (*pagination.Page[settlements.OrderDTO], error) {
	s.listInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return &pagination.Page[settlements.OrderDTO]{Items: []settlements.OrderDTO{}}, nil
}

func (s *stubSettlements) Get(_ context.Context, _ settlements.Actor, orderID string) (*settlements.OrderDTO, error) {
	s.getOrderID = orderID
	if s.err != nil {
		return nil, s.err
	}
	return &settlements.OrderDTO{OrderID: orderID}, nil
}

func newRouter(svc settlements.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/orders", List(svc, nil))
	r.Get("/orders/{orderId}", Detail(svc, nil))
	r.Post("/orders/{orderId}/review", Review(svc, nil))
	return r
}

func asCaller(req *http.Request, userID uuid.UUID, identity enums.Identity) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithIdentity(ctx, identity)
	return req.WithContext(ctx)
}

func TestListForwardsStatusAndPaging(t *testing.T) {
	svc := &stubSettlements{}
	userID := uuid.New()
	req := asCaller(httptest.NewRequest(http.MethodGet, "/orders?status=comment&limit=5&cursor=abc", nil), userID, enums.IdentityOwner)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listInput)
	assert.Equal(t, settlements.Actor{UserID: userID, Identity: enums.IdentityOwner}, svc.listInput.Actor)
	assert.Equal(t, "comment", svc.listInput.Status)
	assert.Equal(t, 5, svc.listInput.Limit)
	assert.Equal(t, "abc", svc.listInput.Cursor)
}

func TestListRejectsOversizedLimit(t *testing.T) {
	req := asCaller(httptest.NewRequest(http.MethodGet, "/orders?limit=500", nil), uuid.New(), enums.IdentityOwner)
	rec := httptest.NewRecorder()
	newRouter(&stubSettlements{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetailMapsNotFound(t *testing.T) {
	svc := &stubSettlements{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	req := asCaller(httptest.NewRequest(http.MethodGet, "/orders/SO2026031409300012345678", nil), uuid.New(), enums.IdentityOwner)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SO2026031409300012345678", svc.getOrderID)
}

func TestReviewCreatesReview(t *testing.T) {
	svc := &stubSettlements{}
	userID := uuid.New()
	req := asCaller(httptest.NewRequest(http.MethodPost, "/orders/SO1/review", strings.NewReader(`{"rating":4,"content":"fast service"}`)), userID, enums.IdentityOwner)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.reviewInput)
	assert.Equal(t, "SO1", svc.reviewInput.OrderID)
	assert.Equal(t, 4, svc.reviewInput.Rating)
	assert.Equal(t, "fast service", svc.reviewInput.Content)
}

func TestReviewRejectsRatingOutOfRange(t *testing.T) {
	for _, body := range []string{`{"rating":0}`, `{"rating":6}`, `{}`} {
		svc := &stubSettlements{}
		req := asCaller(httptest.NewRequest(http.MethodPost, "/orders/SO1/review", strings.NewReader(body)), uuid.New(), enums.IdentityOwner)
		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Nil(t, svc.reviewInput, body)
	}
}

func TestReviewConflictOnSecondSubmission(t *testing.T) {
	svc := &stubSettlements{err: pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")}
	req := asCaller(httptest.NewRequest(http.MethodPost, "/orders/SO1/review", strings.NewReader(`{"rating":5}`)), uuid.New(), enums.IdentityOwner)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
