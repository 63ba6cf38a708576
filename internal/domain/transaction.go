package domain

import (
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// RegionUnknown is the sentinel for a branch code whose region could not be
// resolved. It is distinct from an empty (never resolved) region.
const RegionUnknown = "Unknown"

// ErrCaseNotFound is returned when an operation targets a case or transfer
// that has no stored transactions.
var ErrCaseNotFound = errors.New("case not found")

// Transaction is one row of financial movement for an investigated case,
// optionally annotated with ATM / cheque / hold side-records and KYC data
// collected by an officer. Within a case a row is identified by
// (from_account, to_account, transfer_id) after ingestion de-duplication.
type Transaction struct {
	ID             int64   `json:"id" db:"id"`
	AckNo          string  `json:"ack_no" db:"ack_no"`
	Layer          int     `json:"layer" db:"layer"`
	FromAccount    string  `json:"from_account" db:"from_account"`
	ToAccount      string  `json:"to_account" db:"to_account"`
	AccountNumber  string  `json:"account_number" db:"account_number"` // display alias of ToAccount
	BankName       string  `json:"bank_name" db:"bank_name"`
	BranchCode     string  `json:"branch_code" db:"branch_code"` // IFSC-style routing code
	TxnDate        string  `json:"txn_date" db:"txn_date"`       // free text, as exported
	TransferID     string  `json:"transfer_id" db:"transfer_id"`
	Amount         float64 `json:"amount" db:"amount"`
	DisputedAmount float64 `json:"disputed_amount" db:"disputed_amount"`
	ActionTaken    string  `json:"action_taken" db:"action_taken"`

	// Region is the cached geographic resolution of BranchCode. Empty means
	// never resolved; RegionUnknown means resolution failed.
	Region *string `json:"region,omitempty" db:"region"`

	// ATM withdrawal side-record
	ATMID       *string  `json:"atm_id,omitempty" db:"atm_id"`
	ATMAmount   *float64 `json:"atm_amount,omitempty" db:"atm_amount"`
	ATMDate     *string  `json:"atm_date,omitempty" db:"atm_date"`
	ATMLocation *string  `json:"atm_location,omitempty" db:"atm_location"`

	// Cheque withdrawal side-record
	ChequeNo         *string  `json:"cheque_no,omitempty" db:"cheque_no"`
	ChequeAmount     *float64 `json:"cheque_amount,omitempty" db:"cheque_amount"`
	ChequeDate       *string  `json:"cheque_date,omitempty" db:"cheque_date"`
	ChequeBranchCode *string  `json:"cheque_branch_code,omitempty" db:"cheque_branch_code"`

	// Put-on-hold side-record
	HoldTransferID *string  `json:"hold_transfer_id,omitempty" db:"hold_transfer_id"`
	HoldDate       *string  `json:"hold_date,omitempty" db:"hold_date"`
	HoldAmount     *float64 `json:"hold_amount,omitempty" db:"hold_amount"`

	// KYC enrichment, filled later by officer annotation. Aadhar and mobile
	// are encrypted at rest; KYCKeyVersion records the key they were
	// encrypted under.
	KYCName       *string `json:"kyc_name,omitempty" db:"kyc_name"`
	KYCAadhar     *string `json:"kyc_aadhar,omitempty" db:"kyc_aadhar"`
	KYCMobile     *string `json:"kyc_mobile,omitempty" db:"kyc_mobile"`
	KYCAddress    *string `json:"kyc_address,omitempty" db:"kyc_address"`
	KYCKeyVersion *int    `json:"-" db:"kyc_key_version"`

	UploadID uuid.UUID `json:"upload_id" db:"upload_id"`
}

// KnownRegion reports whether the transaction has a usable resolved region.
func (t *Transaction) KnownRegion() bool {
	return t.Region != nil && *t.Region != "" && *t.Region != RegionUnknown
}

// HasHold reports whether a put-on-hold side-record is attached.
func (t *Transaction) HasHold() bool {
	return t.HoldTransferID != nil
}

// UploadBatch is the metadata for one ingestion event. It owns the
// transactions created from it; deleting the batch deletes them.
type UploadBatch struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Filename         string    `json:"filename" db:"filename"`
	Payload          []byte    `json:"-" db:"payload"`
	Uploader         string    `json:"uploader" db:"uploader"`
	MimeType         string    `json:"mime_type" db:"mime_type"`
	UploadedAt       time.Time `json:"uploaded_at" db:"uploaded_at"`
	TransactionCount int       `json:"transaction_count" db:"transaction_count"`
}

// RegionUpdate is one entry of a batch region write-back.
type RegionUpdate struct {
	TransactionID int64  `json:"transaction_id"`
	Region        string `json:"region"`
}

// KYCUpdate carries officer-entered identity details for the transaction
// matching TransferID.
type KYCUpdate struct {
	TransferID string `json:"transfer_id"`
	Name       string `json:"name"`
	Aadhar     string `json:"aadhar"`
	Mobile     string `json:"mobile"`
	Address    string `json:"address"`
}

// TransferRow is one validated row of the main transfer sheet, as produced
// by the external importer. Amount cells stay raw strings; coercion happens
// when records are assembled.
type TransferRow struct {
	AckNo          string `json:"ack_no"`
	Layer          int    `json:"layer"`
	FromAccount    string `json:"from_account"`
	ToAccount      string `json:"to_account"`
	BankName       string `json:"bank_name"`
	BranchCode     string `json:"branch_code"`
	TxnDate        string `json:"txn_date"`
	TransferID     string `json:"transfer_id"`
	Amount         string `json:"amount"`
	DisputedAmount string `json:"disputed_amount"`
	ActionTaken    string `json:"action_taken"`
}

// ATMRow is one row of the ATM withdrawal sheet.
type ATMRow struct {
	Account  string `json:"account"`
	ATMID    string `json:"atm_id"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
	Location string `json:"location"`
}

// ChequeRow is one row of the cheque withdrawal sheet.
type ChequeRow struct {
	Account    string `json:"account"`
	ChequeNo   string `json:"cheque_no"`
	Amount     string `json:"amount"`
	Date       string `json:"date"`
	BranchCode string `json:"branch_code"`
}

// HoldRow is one row of the transactions-put-on-hold sheet.
type HoldRow struct {
	Account    string `json:"account"`
	TransferID string `json:"transfer_id"`
	Date       string `json:"date"`
	Amount     string `json:"amount"`
}

// ATMDetail is a matched, typed ATM side-record.
type ATMDetail struct {
	ATMID    string  `json:"atm_id"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
	Location string  `json:"location,omitempty"`
}

// ChequeDetail is a matched, typed cheque side-record.
type ChequeDetail struct {
	ChequeNo   string  `json:"cheque_no"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"`
	BranchCode string  `json:"branch_code"`
}

// HoldDetail is a matched, typed put-on-hold side-record.
type HoldDetail struct {
	TransferID string  `json:"transfer_id"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"`
}

// SideRecords groups the at-most-one match per side table for one account.
type SideRecords struct {
	ATM    *ATMDetail
	Cheque *ChequeDetail
	Hold   *HoldDetail
}

// FormatAmount renders an amount for display without trailing zero noise.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptAmount(v *float64) string {
	if v == nil {
		return "0"
	}
	return FormatAmount(*v)
}
