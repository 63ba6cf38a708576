package domain

// RegionSummary aggregates one region's transactions for a case.
type RegionSummary struct {
	Region            string   `json:"state"`
	TotalTransactions int      `json:"total_transactions"`
	TotalAmount       float64  `json:"total_amount"`
	BranchCodes       []string `json:"ifsc_codes"`
}

// HeldTransaction is one put-on-hold record for the holds listing.
type HeldTransaction struct {
	AccountNumber string   `json:"account_number"`
	BankName      string   `json:"bank_name"`
	BranchName    *string  `json:"branch_name"` // not present in source data
	BranchCode    string   `json:"ifsc_code"`
	Amount        *float64 `json:"amount"`
	Layer         int      `json:"layer"`
}

// TransactionKind classifies a row for the per-region listing.
type TransactionKind string

const (
	KindATMWithdrawal    TransactionKind = "ATM Withdrawal"
	KindChequeWithdrawal TransactionKind = "Cheque Withdrawal"
	KindPutOnHold        TransactionKind = "Put on Hold"
	KindAccountTransfer  TransactionKind = "Account Transfer"
)

// Classify picks the displayed kind and amount for a transaction. Side
// records take precedence over the plain transfer, ATM first.
func (t *Transaction) Classify() (TransactionKind, string, string) {
	switch {
	case t.ATMID != nil:
		return KindATMWithdrawal, formatOptAmount(t.ATMAmount), "N/A"
	case t.ChequeNo != nil:
		return KindChequeWithdrawal, formatOptAmount(t.ChequeAmount), "N/A"
	case t.HoldTransferID != nil:
		return KindPutOnHold, formatOptAmount(t.HoldAmount), "N/A"
	default:
		return KindAccountTransfer, FormatAmount(t.Amount), t.TransferID
	}
}

// RegionTransaction is one row of the paginated per-region listing.
type RegionTransaction struct {
	AckNo       string          `json:"ack_no"`
	AccountName string          `json:"account_name"`
	BankName    string          `json:"bank_name"`
	Amount      string          `json:"amount"`
	BranchCode  string          `json:"ifsc_code"`
	Date        string          `json:"date"`
	Kind        TransactionKind `json:"transaction_type"`
	TransferID  string          `json:"transaction_id"`
	Layer       int             `json:"layer"`
}

// RegionTransactionPage wraps a page of the per-region listing.
type RegionTransactionPage struct {
	Transactions []RegionTransaction `json:"transactions"`
	TotalCount   int64               `json:"total_count"`
	Page         int                 `json:"page"`
	PerPage      int                 `json:"per_page"`
	TotalPages   int                 `json:"total_pages"`
}

// UploadCount pairs an upload filename with its transaction count.
type UploadCount struct {
	Filename string `json:"filename"`
	Count    int64  `json:"count"`
}

// OfficerUploads pairs an uploader with the number of batches they ingested.
type OfficerUploads struct {
	Uploader string `json:"uploader"`
	Count    int64  `json:"count"`
}

// BranchCodeCount pairs a branch code with its occurrence count.
type BranchCodeCount struct {
	BranchCode string `json:"branch_code"`
	Count      int64  `json:"count"`
}

// Analytics is the cross-case ingestion overview.
type Analytics struct {
	TotalUploadedFiles  int64             `json:"total_uploaded_files"`
	TotalTransactions   int64             `json:"total_transactions"`
	TotalAmount         float64           `json:"total_amount"`
	TransactionsPerFile []UploadCount     `json:"transactions_per_file"`
	OfficerUploads      []OfficerUploads  `json:"officer_uploads"`
	FrequentBranchCodes []BranchCodeCount `json:"frequent_branch_codes"`
}
