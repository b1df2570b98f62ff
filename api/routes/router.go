package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/propertyloyalty/points-backend/api/controllers"
	admincontrollers "github.com/propertyloyalty/points-backend/api/controllers/admin"
	merchantcontrollers "github.com/propertyloyalty/points-backend/api/controllers/merchant"
	ordercontrollers "github.com/propertyloyalty/points-backend/api/controllers/orders"
	pointscontrollers "github.com/propertyloyalty/points-backend/api/controllers/points"
	"github.com/propertyloyalty/points-backend/api/middleware"
	"github.com/propertyloyalty/points-backend/internal/settlements"
	"github.com/propertyloyalty/points-backend/pkg/config"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	"github.com/propertyloyalty/points-backend/pkg/logger"
	"github.com/propertyloyalty/points-backend/pkg/redis"
)

// PointsEngine is every transfer-engine operation the HTTP surface exposes.
type PointsEngine interface {
	pointscontrollers.BalanceReader
	pointscontrollers.OwnerTransfers
	merchantcontrollers.Transfers
	admincontrollers.PointsAdmin
}

// Params carries the router's collaborators. Redis and Metrics may be nil.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	Location      *time.Location
	DB            controllers.Pinger
	Redis         *redis.Client
	Metrics       http.Handler
	Engine        PointsEngine
	Ledger        pointscontrollers.LedgerReader
	Settlements   settlements.Service
	ShareSettings admincontrollers.ShareSettings
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	var idempotencyStore redis.IdempotencyStore
	readiness := map[string]controllers.Pinger{"db": p.DB}
	if p.Redis != nil {
		idempotencyStore = p.Redis
		readiness["redis"] = p.Redis
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, logg)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics)
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(limiter.Handler)
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/points", func(r chi.Router) {
			r.Get("/accounts/{identity}", pointscontrollers.GetAccount(p.Engine, logg))
			r.Get("/ledger", pointscontrollers.ListLedger(p.Ledger, loc, logg))
			r.Get("/summary", pointscontrollers.ConsumptionSummary(p.Ledger, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireIdentity(logg, enums.IdentityOwner))
				r.Post("/consumption", pointscontrollers.RecordConsumption(p.Engine, logg))
				r.Post("/property-fee", pointscontrollers.PayPropertyFee(p.Engine, logg))
			})
		})

		r.Route("/v1/merchant", func(r chi.Router) {
			r.Use(middleware.RequireIdentity(logg, enums.IdentityMerchant))
			r.Post("/settlements", merchantcontrollers.Settle(p.Engine, p.ShareSettings, logg))
			r.Post("/discount-redeem", merchantcontrollers.RedeemDiscount(p.Engine, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.With(middleware.RequireIdentity(logg, enums.IdentityOwner, enums.IdentityMerchant)).
				Get("/", ordercontrollers.List(p.Settlements, logg))
			r.With(middleware.RequireIdentity(logg, enums.IdentityOwner, enums.IdentityMerchant)).
				Get("/{orderId}", ordercontrollers.Detail(p.Settlements, logg))
			r.With(middleware.RequireIdentity(logg, enums.IdentityOwner)).
				Post("/{orderId}/review", ordercontrollers.Review(p.Settlements, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireIdentity(logg, enums.IdentityAdmin))
		r.Use(limiter.Handler)
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/v1/points", func(r chi.Router) {
			r.Get("/share-setting", admincontrollers.GetShareSetting(p.ShareSettings, logg))
			r.Put("/share-setting", admincontrollers.UpdateShareSetting(p.ShareSettings, logg))
			r.Post("/adjust", admincontrollers.AdjustPoints(p.Engine, logg))
			r.Get("/ledger", admincontrollers.ListLedger(p.Ledger, loc, logg))
			r.Get("/redeem-records", admincontrollers.ListRedeemRecords(p.Engine, logg))
		})
		r.Get("/v1/orders/{orderId}", ordercontrollers.Detail(p.Settlements, logg))
	})

	return r
}
