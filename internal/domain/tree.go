package domain

// TreeNode is one account in the reconstructed fund-flow hierarchy. The
// root carries only Name ("Flow") and Children; layer-1 origin nodes carry
// KYC and action fields; every deeper node carries the full display payload.
// JSON keys match the visualization contract of the legacy exports.
type TreeNode struct {
	Name     string      `json:"name"`
	Children []*TreeNode `json:"children"`

	Layer          int    `json:"layer,omitempty"`
	AckNo          string `json:"ack,omitempty"`
	BankName       string `json:"bank,omitempty"`
	BranchCode     string `json:"ifsc,omitempty"`
	Date           string `json:"date,omitempty"`
	TransferID     string `json:"txid,omitempty"`
	Amount         string `json:"amt,omitempty"`
	DisputedAmount string `json:"disputed,omitempty"`
	ActionTaken    string `json:"action,omitempty"`
	Region         string `json:"state,omitempty"`

	ATMInfo    *ATMInfo    `json:"atm_info,omitempty"`
	ChequeInfo *ChequeInfo `json:"cheque_info,omitempty"`
	HoldInfo   *HoldInfo   `json:"hold_info,omitempty"`

	KYCName    *string `json:"kyc_name,omitempty"`
	KYCAadhar  *string `json:"kyc_aadhar,omitempty"`
	KYCMobile  *string `json:"kyc_mobile,omitempty"`
	KYCAddress *string `json:"kyc_address,omitempty"`

	// TransactionsFromParent lists every individual transfer between this
	// node's parent and this node, in ingestion order.
	TransactionsFromParent []EdgeTransaction `json:"transactions_from_parent,omitempty"`
}

// EdgeTransaction is one individual transfer along a parent->child edge.
type EdgeTransaction struct {
	TransferID string  `json:"txn_id"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"`
	AckNo      string  `json:"ack_no"`
}

// ATMInfo is the ATM side-record as rendered on a tree node.
type ATMInfo struct {
	ATMID    *string  `json:"atm_id"`
	Amount   *float64 `json:"amount"`
	Date     *string  `json:"date"`
	Location *string  `json:"location,omitempty"`
}

// ChequeInfo is the cheque side-record as rendered on a tree node.
type ChequeInfo struct {
	ChequeNo   *string  `json:"cheque_no"`
	Amount     *float64 `json:"amount"`
	Date       *string  `json:"date"`
	BranchCode *string  `json:"ifsc"`
}

// HoldInfo is the put-on-hold side-record as rendered on a tree node.
type HoldInfo struct {
	TransferID *string  `json:"txn_id"`
	Amount     *float64 `json:"amount"`
	Date       *string  `json:"date"`
}
