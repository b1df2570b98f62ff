package transfers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyloyalty/points-backend/internal/accounts"
	"github.com/propertyloyalty/points-backend/internal/settlements"
	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	"github.com/propertyloyalty/points-backend/pkg/types"
)

// SettleInput is a merchant settling a purchase for the owner identified by phone.
// OwnerRate is the share setting in force, fetched by the caller.
type SettleInput struct {
	MerchantUserID uuid.UUID
	OwnerPhone     string
	Amount         decimal.Decimal
	OwnerRate      int
}

// ShareRatio echoes the rates a settlement was split with.
type ShareRatio struct {
	MerchantRate int `json:"merchant_rate"`
	OwnerRate    int `json:"owner_rate"`
}

// SettleResult is the outcome of a settlement.
type SettleResult struct {
	Order           settlements.OrderDTO `json:"order"`
	MerchantBalance accounts.Balance     `json:"merchant_balance"`
	OwnerBalance    accounts.Balance     `json:"owner_balance"`
	ShareRatio      ShareRatio           `json:"share_ratio"`
	CorrelationID   uuid.UUID            `json:"correlation_id"`
}

// ConsumptionInput is an owner recording a purchase at a merchant.
type ConsumptionInput struct {
	OwnerUserID  uuid.UUID
	MerchantCode string
	Points       int64
}

// ConsumptionResult carries both credited balances.
type ConsumptionResult struct {
	OwnerBalance    accounts.Balance `json:"owner_balance"`
	MerchantBalance accounts.Balance `json:"merchant_balance"`
	CorrelationID   uuid.UUID        `json:"correlation_id"`
}

// PeerTransferInput moves Points from Debit to Credit. Meta is merged into both entries.
type PeerTransferInput struct {
	Debit      accounts.Key
	Credit     accounts.Key
	Points     int64
	SourceType enums.LedgerSourceType
	Meta       types.JSONMap
}

// PeerTransferResult reports both accounts after the transfer.
type PeerTransferResult struct {
	Debited       accounts.Balance `json:"debited"`
	Credited      accounts.Balance `json:"credited"`
	CorrelationID uuid.UUID        `json:"correlation_id"`
}

// PropertyFeeInput is an owner paying the property fee with points.
type PropertyFeeInput struct {
	OwnerUserID uuid.UUID
	Points      int64
}

// DiscountRedeemInput is a discount store redeeming an owner's points.
type DiscountRedeemInput struct {
	MerchantUserID uuid.UUID
	OwnerPhone     string
	Points         int64
}

// DiscountRedeemResult carries the transfer and its receipt.
type DiscountRedeemResult struct {
	PeerTransferResult
	Record RedeemRecordDTO `json:"record"`
}

// RedeemRecordDTO is the read model of a redemption receipt.
type RedeemRecordDTO struct {
	ID               uuid.UUID `json:"id"`
	RedeemID         string    `json:"redeem_id"`
	MerchantID       uuid.UUID `json:"merchant_id"`
	OwnerID          uuid.UUID `json:"owner_id"`
	OwnerPhoneNumber string    `json:"owner_phone_number"`
	Points           int64     `json:"points"`
	CreatedAt        time.Time `json:"created_at"`
}

// AdjustInput sets an account's total to NewTotal on behalf of an admin.
type AdjustInput struct {
	OperatorID uuid.UUID
	Target     accounts.Key
	NewTotal   int64
	Reason     string
}

// AdjustResult reports the adjusted account. Changed is false for a zero delta.
type AdjustResult struct {
	Balance  accounts.Balance `json:"balance"`
	OldTotal int64            `json:"old_total_points"`
	Changed  bool             `json:"changed"`
}

func toRedeemRecordDTO(record models.DiscountRedeemRecord) RedeemRecordDTO {
	return RedeemRecordDTO{
		ID:               record.ID,
		RedeemID:         record.RedeemID,
		MerchantID:       record.MerchantID,
		OwnerID:          record.OwnerID,
		OwnerPhoneNumber: record.OwnerPhoneNumber,
		Points:           record.Points,
		CreatedAt:        record.CreatedAt,
	}
}
