package points

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/propertyloyalty/points-backend/api/controllers/callercontext"
	"github.com/propertyloyalty/points-backend/api/responses"
	"github.com/propertyloyalty/points-backend/api/validators"
	"github.com/propertyloyalty/points-backend/internal/ledger"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/logger"
	"github.com/propertyloyalty/points-backend/pkg/pagination"
)

// LedgerReader is the read side of the ledger.
type LedgerReader interface {
	List(ctx context.Context, query ledger.ListQuery) (*pagination.Page[ledger.EntryDTO], error)
	Summary(ctx context.Context, filters ledger.Filters) (*ledger.ConsumptionSummary, error)
}

// ListLedger pages through the caller's own ledger entries. Without an identity
// query parameter the token identity is used; identity=all lists every identity.
func ListLedger(svc LedgerReader, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		caller, err := callercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := ParseLedgerFilters(r, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.UserID = caller.UserID
		if !r.URL.Query().Has("identity") && caller.Identity.HoldsPoints() {
			filters.Identity = caller.Identity
		}

		params, err := ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), ledger.ListQuery{
			Filters: filters,
			Limit:   params.Limit,
			Cursor:  params.Cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ConsumptionSummary totals the points the caller has spent.
func ConsumptionSummary(svc LedgerReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		caller, err := callercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := ledger.Filters{UserID: caller.UserID}
		if raw := r.URL.Query().Get("identity"); raw != "" {
			identity, err := parseAccountIdentity(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filters.Identity = identity
		} else if caller.Identity.HoldsPoints() {
			filters.Identity = caller.Identity
		}

		summary, err := svc.Summary(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// ParseLedgerFilters reads identity, source_type, from and to. Dates without a time
// are interpreted in loc; "to" is exclusive.
func ParseLedgerFilters(r *http.Request, loc *time.Location) (ledger.Filters, error) {
	var filters ledger.Filters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("identity")); raw != "" && !strings.EqualFold(raw, "all") {
		identity, err := parseAccountIdentity(raw)
		if err != nil {
			return filters, err
		}
		filters.Identity = identity
	}
	if raw := strings.TrimSpace(query.Get("source_type")); raw != "" {
		source, err := enums.ParseLedgerSourceType(strings.ToUpper(raw))
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source_type")
		}
		filters.SourceType = source
	}

	from, err := validators.ParseQueryTime(r, "from", loc)
	if err != nil {
		return filters, err
	}
	to, err := validators.ParseQueryTime(r, "to", loc)
	if err != nil {
		return filters, err
	}
	if from != nil && to != nil && !from.Before(*to) {
		return filters, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	filters.From = from
	filters.To = to
	return filters, nil
}

// ParsePage reads the limit and cursor query parameters.
func ParsePage(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
