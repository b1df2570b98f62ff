package transfers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/internal/accounts"
	"github.com/propertyloyalty/points-backend/internal/directory"
	"github.com/propertyloyalty/points-backend/internal/ledger"
	"github.com/propertyloyalty/points-backend/internal/settlements"
	"github.com/propertyloyalty/points-backend/internal/sharesetting"
	"github.com/propertyloyalty/points-backend/pkg/db"
	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/logger"
	"github.com/propertyloyalty/points-backend/pkg/metrics"
	"github.com/propertyloyalty/points-backend/pkg/pagination"
	"github.com/propertyloyalty/points-backend/pkg/types"
)

// maxSettlementAmount is the largest value settlement_orders.amount (numeric(12,2)) holds.
var maxSettlementAmount = decimal.RequireFromString("9999999999.99")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EngineParams groups the transfer engine collaborators.
type EngineParams struct {
	Tx        txRunner
	Accounts  *accounts.Store
	Writer    *ledger.Writer
	Orders    settlements.Repository
	Redeems   RedeemRepository
	Directory directory.Service
	Split     SplitPolicy
	Logger    *logger.Logger
	Metrics   *metrics.LedgerMetrics
}

// Engine executes every balance-changing operation. Each public method runs in one
// transaction and locks the accounts it touches in accounts.SortKeys order, so either
// every write of an operation is visible or none is.
type Engine struct {
	tx        txRunner
	accounts  *accounts.Store
	writer    *ledger.Writer
	orders    settlements.Repository
	redeems   RedeemRepository
	directory directory.Service
	split     SplitPolicy
	logg      *logger.Logger
	metrics   *metrics.LedgerMetrics
}

// NewEngine wires the transfer engine. Split defaults to MerchantFull.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account store required")
	}
	if params.Writer == nil {
		return nil, fmt.Errorf("ledger writer required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("settlements repository required")
	}
	if params.Redeems == nil {
		return nil, fmt.Errorf("redeem repository required")
	}
	if params.Directory == nil {
		return nil, fmt.Errorf("directory service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	split := params.Split
	if split == nil {
		split = MerchantFull
	}
	return &Engine{
		tx:        params.Tx,
		accounts:  params.Accounts,
		writer:    params.Writer,
		orders:    params.Orders,
		redeems:   params.Redeems,
		directory: params.Directory,
		split:     split,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// Balance returns the caller's account, creating it on first reference.
func (e *Engine) Balance(ctx context.Context, key accounts.Key) (*accounts.Balance, error) {
	account, err := e.accounts.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	out := accounts.ToBalance(*account)
	return &out, nil
}

// Settle credits a merchant and the paying owner for a purchase and records the
// settlement order awaiting the owner's review. The amount is truncated toward zero
// before the split.
func (e *Engine) Settle(ctx context.Context, input SettleInput) (*SettleResult, error) {
	if input.MerchantUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than 0")
	}
	if input.Amount.GreaterThan(maxSettlementAmount) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "amount must not exceed %s", maxSettlementAmount.StringFixed(2))
	}
	amountInt := input.Amount.Truncate(0).IntPart()
	if amountInt < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least 1")
	}
	if input.OwnerRate < 0 || input.OwnerRate > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner rate must be between 0 and 100")
	}
	if strings.TrimSpace(input.OwnerPhone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner phone number required")
	}

	correlationID := uuid.New()
	var result SettleResult
	err := e.run(ctx, enums.LedgerSourceTypeMerchantSettlement, correlationID, func(tx *gorm.DB) error {
		merchant, err := e.directory.MerchantForUser(ctx, tx, input.MerchantUserID)
		if err != nil {
			return err
		}
		owner, err := e.directory.OwnerByPhone(ctx, tx, input.OwnerPhone)
		if err != nil {
			return err
		}

		merchantPoints, ownerPoints := e.split(amountInt, input.OwnerRate)
		merchantKey := accounts.Key{UserID: merchant.UserID, Identity: enums.IdentityMerchant}
		ownerKey := accounts.Key{UserID: owner.ID, Identity: enums.IdentityOwner}
		locked, err := e.accounts.LockAll(ctx, tx, merchantKey, ownerKey)
		if err != nil {
			return err
		}

		meta := types.JSONMap{
			"action":              "merchant_points_add",
			"merchant_id":         merchant.ID.String(),
			"merchant_code":       merchant.MerchantCode,
			"merchant_name":       merchant.MerchantName,
			"target_system_id":    owner.SystemID,
			"target_phone_number": owner.PhoneNumber,
			"amount":              input.Amount.String(),
			"amount_int":          amountInt,
			"merchant_rate":       sharesetting.MerchantRate,
			"owner_rate":          input.OwnerRate,
		}
		credits := []struct {
			key       accounts.Key
			points    int64
			direction enums.TransferDirection
		}{
			{merchantKey, merchantPoints, enums.TransferDirectionMerchantCredit},
			{ownerKey, ownerPoints, enums.TransferDirectionOwnerCredit},
		}
		for _, credit := range credits {
			if credit.points <= 0 {
				continue
			}
			entryMeta := meta.Clone()
			entryMeta["direction"] = credit.direction.String()
			if _, err := e.writer.Apply(ctx, tx, locked[credit.key], ledger.Change{
				Delta:         credit.points,
				SourceType:    enums.LedgerSourceTypeMerchantSettlement,
				Meta:          entryMeta,
				CorrelationID: &correlationID,
			}); err != nil {
				return err
			}
		}

		order := &models.SettlementOrder{
			OrderID:        businessID(settlementOrderPrefix, e.accounts.Policy().Now()),
			MerchantID:     merchant.ID,
			OwnerID:        owner.ID,
			Amount:         input.Amount,
			AmountInt:      amountInt,
			MerchantPoints: merchantPoints,
			OwnerPoints:    ownerPoints,
			OwnerRate:      input.OwnerRate,
			Status:         enums.SettlementOrderStatusPendingReview,
		}
		if err := e.orders.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create settlement order")
		}

		result = SettleResult{
			Order:           settlements.ToOrderDTO(*order, settlements.Actor{UserID: input.MerchantUserID, Identity: enums.IdentityMerchant}),
			MerchantBalance: accounts.ToBalance(*locked[merchantKey]),
			OwnerBalance:    accounts.ToBalance(*locked[ownerKey]),
			ShareRatio:      ShareRatio{MerchantRate: sharesetting.MerchantRate, OwnerRate: input.OwnerRate},
			CorrelationID:   correlationID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CreditConsumption credits an owner and the merchant they bought from with the same
// number of points. No settlement order is created.
func (e *Engine) CreditConsumption(ctx context.Context, input ConsumptionInput) (*ConsumptionResult, error) {
	if input.OwnerUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Points <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be a positive integer")
	}
	if strings.TrimSpace(input.MerchantCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant code required")
	}

	correlationID := uuid.New()
	var result ConsumptionResult
	err := e.run(ctx, enums.LedgerSourceTypeOwnerSettlement, correlationID, func(tx *gorm.DB) error {
		owner, err := e.directory.User(ctx, tx, input.OwnerUserID)
		if err != nil {
			return err
		}
		merchant, err := e.directory.MerchantByCode(ctx, tx, input.MerchantCode)
		if err != nil {
			return err
		}

		ownerKey := accounts.Key{UserID: owner.ID, Identity: enums.IdentityOwner}
		merchantKey := accounts.Key{UserID: merchant.UserID, Identity: enums.IdentityMerchant}
		locked, err := e.accounts.LockAll(ctx, tx, ownerKey, merchantKey)
		if err != nil {
			return err
		}

		meta := types.JSONMap{
			"action":          "points_change",
			"points":          input.Points,
			"merchant_id":     merchant.ID.String(),
			"merchant_code":   merchant.MerchantCode,
			"merchant_name":   merchant.MerchantName,
			"owner_system_id": owner.SystemID,
		}
		for _, key := range []accounts.Key{ownerKey, merchantKey} {
			direction, err := enums.DirectionFor(key.Identity, false)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "resolve transfer direction")
			}
			entryMeta := meta.Clone()
			entryMeta["direction"] = direction.String()
			if _, err := e.writer.Apply(ctx, tx, locked[key], ledger.Change{
				Delta:         input.Points,
				SourceType:    enums.LedgerSourceTypeOwnerSettlement,
				Meta:          entryMeta,
				CorrelationID: &correlationID,
			}); err != nil {
				return err
			}
		}

		result = ConsumptionResult{
			OwnerBalance:    accounts.ToBalance(*locked[ownerKey]),
			MerchantBalance: accounts.ToBalance(*locked[merchantKey]),
			CorrelationID:   correlationID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// TransferPeer debits one account and credits another by the same amount, rejecting the
// transfer with INSUFFICIENT_BALANCE when the debited total cannot cover it.
func (e *Engine) TransferPeer(ctx context.Context, input PeerTransferInput) (*PeerTransferResult, error) {
	if err := validatePeer(input); err != nil {
		return nil, err
	}

	correlationID := uuid.New()
	var result *PeerTransferResult
	err := e.run(ctx, input.SourceType, correlationID, func(tx *gorm.DB) error {
		res, err := e.transferPeer(ctx, tx, input, correlationID)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PayPropertyFee moves points from the owner to the property the owner is bound to.
func (e *Engine) PayPropertyFee(ctx context.Context, input PropertyFeeInput) (*PeerTransferResult, error) {
	if input.OwnerUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Points <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be a positive integer")
	}

	correlationID := uuid.New()
	var result *PeerTransferResult
	err := e.run(ctx, enums.LedgerSourceTypePropertyFeePay, correlationID, func(tx *gorm.DB) error {
		owner, err := e.directory.User(ctx, tx, input.OwnerUserID)
		if err != nil {
			return err
		}
		property, err := e.directory.PropertyForOwner(ctx, tx, owner)
		if err != nil {
			return err
		}

		res, err := e.transferPeer(ctx, tx, PeerTransferInput{
			Debit:      accounts.Key{UserID: owner.ID, Identity: enums.IdentityOwner},
			Credit:     accounts.Key{UserID: property.UserID, Identity: enums.IdentityProperty},
			Points:     input.Points,
			SourceType: enums.LedgerSourceTypePropertyFeePay,
			Meta: types.JSONMap{
				"action":             "owner_property_fee_pay",
				"property_id":        property.ID.String(),
				"property_code":      property.PropertyCode,
				"property_name":      property.PropertyName,
				"owner_system_id":    owner.SystemID,
				"owner_phone_number": owner.PhoneNumber,
			},
		}, correlationID)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RedeemDiscount lets a discount store take points from the owner identified by phone
// and writes the redemption receipt in the same transaction.
func (e *Engine) RedeemDiscount(ctx context.Context, input DiscountRedeemInput) (*DiscountRedeemResult, error) {
	if input.MerchantUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Points <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be a positive integer")
	}
	phone := strings.TrimSpace(input.OwnerPhone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner phone number required")
	}

	correlationID := uuid.New()
	var result DiscountRedeemResult
	err := e.run(ctx, enums.LedgerSourceTypeDiscountRedeem, correlationID, func(tx *gorm.DB) error {
		merchant, err := e.directory.MerchantForUser(ctx, tx, input.MerchantUserID)
		if err != nil {
			return err
		}
		if merchant.MerchantType != enums.MerchantTypeDiscountStore {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only discount stores can redeem points")
		}
		owner, err := e.directory.OwnerByPhone(ctx, tx, phone)
		if err != nil {
			return err
		}

		redeemID := businessID(redeemPrefix, e.accounts.Policy().Now())
		res, err := e.transferPeer(ctx, tx, PeerTransferInput{
			Debit:      accounts.Key{UserID: owner.ID, Identity: enums.IdentityOwner},
			Credit:     accounts.Key{UserID: merchant.UserID, Identity: enums.IdentityMerchant},
			Points:     input.Points,
			SourceType: enums.LedgerSourceTypeDiscountRedeem,
			Meta: types.JSONMap{
				"action":              "discount_redeem",
				"redeem_id":           redeemID,
				"merchant_id":         merchant.ID.String(),
				"merchant_code":       merchant.MerchantCode,
				"merchant_name":       merchant.MerchantName,
				"target_system_id":    owner.SystemID,
				"target_phone_number": phone,
			},
		}, correlationID)
		if err != nil {
			return err
		}

		record := &models.DiscountRedeemRecord{
			RedeemID:         redeemID,
			MerchantID:       merchant.ID,
			OwnerID:          owner.ID,
			OwnerPhoneNumber: phone,
			Points:           input.Points,
		}
		if err := e.redeems.WithTx(tx).Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create redeem record")
		}

		result = DiscountRedeemResult{PeerTransferResult: *res, Record: toRedeemRecordDTO(*record)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Adjust sets the target account's total to input.NewTotal by writing the difference
// through the ledger, so the account still reconciles. A zero difference writes nothing.
func (e *Engine) Adjust(ctx context.Context, input AdjustInput) (*AdjustResult, error) {
	if input.OperatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "operator identity missing")
	}
	if err := input.Target.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target account")
	}
	if input.NewTotal < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total points cannot be negative")
	}

	correlationID := uuid.New()
	var result AdjustResult
	err := e.run(ctx, enums.LedgerSourceTypeAdminAdjust, correlationID, func(tx *gorm.DB) error {
		if _, err := e.directory.User(ctx, tx, input.Target.UserID); err != nil {
			return err
		}
		account, err := e.accounts.GetForUpdate(ctx, tx, input.Target)
		if err != nil {
			return err
		}

		result.OldTotal = account.TotalPoints
		delta := input.NewTotal - account.TotalPoints
		if delta != 0 {
			meta := types.JSONMap{
				"action":           "admin_adjust",
				"operator":         map[string]any{"user_id": input.OperatorID.String()},
				"old_total_points": account.TotalPoints,
				"new_total_points": input.NewTotal,
			}
			if reason := strings.TrimSpace(input.Reason); reason != "" {
				meta["reason"] = reason
			}
			if _, err := e.writer.Apply(ctx, tx, account, ledger.Change{
				Delta:         delta,
				SourceType:    enums.LedgerSourceTypeAdminAdjust,
				Meta:          meta,
				CorrelationID: &correlationID,
			}); err != nil {
				return err
			}
			result.Changed = true
		}
		result.Balance = accounts.ToBalance(*account)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRedeemRecords pages through discount redemption receipts, newest first.
func (e *Engine) ListRedeemRecords(ctx context.Context, filters RedeemFilters, params pagination.Params) (*pagination.Page[RedeemRecordDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := e.redeems.List(ctx, filters, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list redeem records")
	}
	items := make([]RedeemRecordDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toRedeemRecordDTO(row))
	}
	page := pagination.Trim(items, params.Limit, func(r RedeemRecordDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	return &page, nil
}

func (e *Engine) transferPeer(ctx context.Context, tx *gorm.DB, input PeerTransferInput, correlationID uuid.UUID) (*PeerTransferResult, error) {
	if err := validatePeer(input); err != nil {
		return nil, err
	}
	debitDirection, err := enums.DirectionFor(input.Debit.Identity, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "resolve debit direction")
	}
	creditDirection, err := enums.DirectionFor(input.Credit.Identity, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "resolve credit direction")
	}

	locked, err := e.accounts.LockAll(ctx, tx, input.Debit, input.Credit)
	if err != nil {
		return nil, err
	}
	debited, credited := locked[input.Debit], locked[input.Credit]
	if debited.TotalPoints < input.Points {
		return nil, pkgerrors.InsufficientBalance(debited.TotalPoints, input.Points)
	}

	sides := []struct {
		account      *models.PointsAccount
		delta        int64
		direction    enums.TransferDirection
		counterparty accounts.Key
	}{
		{debited, -input.Points, debitDirection, input.Credit},
		{credited, input.Points, creditDirection, input.Debit},
	}
	for _, side := range sides {
		meta := input.Meta.Clone()
		meta["points"] = input.Points
		meta["direction"] = side.direction.String()
		meta["counterpart_user_id"] = side.counterparty.UserID.String()
		meta["counterpart_identity"] = side.counterparty.Identity.String()
		if _, err := e.writer.Apply(ctx, tx, side.account, ledger.Change{
			Delta:         side.delta,
			SourceType:    input.SourceType,
			Meta:          meta,
			CorrelationID: &correlationID,
		}); err != nil {
			return nil, err
		}
	}

	return &PeerTransferResult{
		Debited:       accounts.ToBalance(*debited),
		Credited:      accounts.ToBalance(*credited),
		CorrelationID: correlationID,
	}, nil
}

func validatePeer(input PeerTransferInput) error {
	if input.Points <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "points must be a positive integer")
	}
	if !input.SourceType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid source type")
	}
	if err := input.Debit.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid debit account")
	}
	if err := input.Credit.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid credit account")
	}
	if input.Debit == input.Credit {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot transfer to the same account")
	}
	return nil
}

// run executes fn in one transaction, then records metrics and the outcome log line.
func (e *Engine) run(ctx context.Context, source enums.LedgerSourceType, correlationID uuid.UUID, fn func(tx *gorm.DB) error) error {
	started := time.Now()
	err := e.tx.WithTx(ctx, fn)
	if db.IsContention(err) {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "points accounts busy, retry the request")
	}
	outcome := outcomeOf(err)
	e.metrics.ObserveOperation(source.String(), outcome, time.Since(started))

	ctx = e.logg.WithFields(ctx, map[string]any{
		"event":          "points.transfer",
		"source_type":    source.String(),
		"correlation_id": correlationID.String(),
		"outcome":        outcome,
	})
	switch outcome {
	case metrics.OutcomeSuccess:
		e.logg.Info(ctx, "transfer committed")
	case metrics.OutcomeError:
		e.logg.Error(ctx, "transfer failed", err)
	default:
		e.logg.Warn(ctx, "transfer rejected: "+err.Error())
	}
	return err
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeInsufficient:
		return metrics.OutcomeInsufficient
	case pkgerrors.CodeDependency, pkgerrors.CodeInternal:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}
