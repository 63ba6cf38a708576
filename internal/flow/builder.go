package flow

import (
	"github.com/fundtrail/trace-service/internal/domain"
)

// RootName labels the synthetic origin node of every hierarchy.
const RootName = "Flow"

// BuildResult carries the reconstructed tree plus diagnostics. Orphan edges
// (non-layer-1 transactions whose source account is nowhere in the tree) are
// dropped from the output; OrphanCount exists so tests and operators can see
// that it happened.
type BuildResult struct {
	Root        *domain.TreeNode
	OrphanCount int
}

// BuildHierarchy reconstructs the fund-flow tree for one case from its
// transactions, in ingestion order. It is a pure function: no I/O, rebuilt
// from scratch on every call. A case with zero transactions yields a root
// with zero children, which callers must treat as "no data", not an error.
func BuildHierarchy(transactions []domain.Transaction) *BuildResult {
	root := &domain.TreeNode{
		Name:     RootName,
		Children: []*domain.TreeNode{},
	}
	result := &BuildResult{Root: root}

	// Layer of every account that appears as a source. Used to label a child
	// with its own onward layer when it fans out further down the flow.
	fromLayer := make(map[string]int)
	for i := range transactions {
		t := &transactions[i]
		if t.FromAccount != "" {
			fromLayer[t.FromAccount] = t.Layer
		}
	}

	// Every individual transfer per from->to pair, in ingestion order, for
	// the child's detail list.
	type pair struct{ from, to string }
	edgeTxns := make(map[pair][]domain.EdgeTransaction)
	for i := range transactions {
		t := &transactions[i]
		k := pair{t.FromAccount, t.ToAccount}
		edgeTxns[k] = append(edgeTxns[k], domain.EdgeTransaction{
			TransferID: t.TransferID,
			Amount:     t.Amount,
			Date:       t.TxnDate,
			AckNo:      t.AckNo,
		})
	}

	for i := range transactions {
		t := &transactions[i]

		var parent *domain.TreeNode
		if t.Layer == 1 {
			parent = childByName(root, t.FromAccount)
			if parent == nil {
				// First transaction touching an origin wins; later ones do
				// not overwrite its KYC or action fields.
				parent = &domain.TreeNode{
					Name:        t.FromAccount,
					Children:    []*domain.TreeNode{},
					KYCName:     t.KYCName,
					KYCAadhar:   t.KYCAadhar,
					KYCMobile:   t.KYCMobile,
					KYCAddress:  t.KYCAddress,
					ActionTaken: t.ActionTaken,
				}
				root.Children = append(root.Children, parent)
			}
		} else {
			parent = findNode(root, t.FromAccount)
		}

		if parent == nil {
			result.OrphanCount++
			continue
		}

		if childByName(parent, t.ToAccount) != nil {
			continue
		}

		layer := t.Layer
		if onward, ok := fromLayer[t.ToAccount]; ok {
			layer = onward
		}

		child := &domain.TreeNode{
			Name:                   t.ToAccount,
			Children:               []*domain.TreeNode{},
			Layer:                  layer,
			AckNo:                  t.AckNo,
			BankName:               t.BankName,
			BranchCode:             t.BranchCode,
			Date:                   t.TxnDate,
			TransferID:             t.TransferID,
			Amount:                 domain.FormatAmount(t.Amount),
			DisputedAmount:         domain.FormatAmount(t.DisputedAmount),
			ActionTaken:            t.ActionTaken,
			Region:                 displayRegion(t),
			KYCName:                t.KYCName,
			KYCAadhar:              t.KYCAadhar,
			KYCMobile:              t.KYCMobile,
			KYCAddress:             t.KYCAddress,
			TransactionsFromParent: edgeTxns[pair{t.FromAccount, t.ToAccount}],
		}
		if t.ATMID != nil {
			child.ATMInfo = &domain.ATMInfo{
				ATMID:    t.ATMID,
				Amount:   t.ATMAmount,
				Date:     t.ATMDate,
				Location: t.ATMLocation,
			}
		}
		if t.ChequeNo != nil {
			child.ChequeInfo = &domain.ChequeInfo{
				ChequeNo:   t.ChequeNo,
				Amount:     t.ChequeAmount,
				Date:       t.ChequeDate,
				BranchCode: t.ChequeBranchCode,
			}
		}
		if t.HoldTransferID != nil {
			child.HoldInfo = &domain.HoldInfo{
				TransferID: t.HoldTransferID,
				Amount:     t.HoldAmount,
				Date:       t.HoldDate,
			}
		}

		parent.Children = append(parent.Children, child)
	}

	return result
}

// displayRegion prefers the resolved region, then the branch code as a
// label, then a literal fallback.
func displayRegion(t *domain.Transaction) string {
	if t.KnownRegion() {
		return *t.Region
	}
	if t.BranchCode != "" {
		return t.BranchCode
	}
	return "Unknown State"
}

// childByName scans only the direct children of n.
func childByName(n *domain.TreeNode, name string) *domain.TreeNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// findNode is a depth-first search over the whole tree; the first match in
// document order wins. O(tree size) per call, fine at case scale.
func findNode(n *domain.TreeNode, name string) *domain.TreeNode {
	if n.Name == name {
		return n
	}
	for _, c := range n.Children {
		if found := findNode(c, name); found != nil {
			return found
		}
	}
	return nil
}
