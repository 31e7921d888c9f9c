package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	apperrors "github.com/tawandab/pawnshop-engine/pkg/errors"
)

// Constraint names from migrations. Posting relies on these to tell a
// post-once violation from a tx_no collision.
const (
	ConstraintTxNo             = "inventory_transactions_tx_no_key"
	ConstraintDisbursementLoan = "uq_inventory_disbursement_loan"
	ConstraintAssetSale        = "uq_inventory_asset_sale"
	ConstraintPaymentPosting   = "uq_inventory_payment_posting"
	ConstraintReceiptNo        = "loan_payments_receipt_no_key"
)

// translateError converts Postgres unique violations into the DuplicateKey
// kind, preserving the constraint name, and sql.ErrNoRows into NotFound.
func translateError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(entity, id)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return apperrors.DuplicateKey(pqErr.Constraint, err)
	}
	return err
}

// ViolatedConstraint returns the unique constraint named by a DuplicateKey
// error, empty otherwise.
func ViolatedConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint
	}
	return ""
}
