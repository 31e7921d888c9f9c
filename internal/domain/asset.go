package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AssetStatusInStore  = "in_store"
	AssetStatusPawned   = "pawned"
	AssetStatusOverdue  = "overdue"
	AssetStatusAuction  = "auction"
	AssetStatusRedeemed = "redeemed"
	AssetStatusSold     = "sold"
)

const (
	AssetCategoryElectronics = "electronics"
	AssetCategoryVehicle     = "vehicle"
	AssetCategoryJewellery   = "jewellery"
)

// Asset is a collateral item held against a loan. While the linked loan is
// unredeemed the asset stays in pawned, overdue or auction status.
type Asset struct {
	ID             uuid.UUID           `json:"id" db:"id"`
	AssetNo        string              `json:"asset_no" db:"asset_no"`
	OwnerID        uuid.UUID           `json:"owner_id" db:"owner_id"`
	Category       string              `json:"category" db:"category"`
	Status         string              `json:"status" db:"status"`
	EvaluatedValue decimal.NullDecimal `json:"evaluated_value" db:"evaluated_value"`
	ActiveLoanID   *uuid.UUID          `json:"active_loan_id,omitempty" db:"active_loan_id"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at" db:"updated_at"`
}

func ValidAssetCategory(c string) bool {
	switch c {
	case AssetCategoryElectronics, AssetCategoryVehicle, AssetCategoryJewellery:
		return true
	}
	return false
}
