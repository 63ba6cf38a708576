package flow

import (
	"testing"

	"github.com/fundtrail/trace-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txn(ack string, layer int, from, to, transferID string, amount float64) domain.Transaction {
	return domain.Transaction{
		AckNo:       ack,
		Layer:       layer,
		FromAccount: from,
		ToAccount:   to,
		TransferID:  transferID,
		Amount:      amount,
	}
}

func TestBuildHierarchyEmptyCase(t *testing.T) {
	result := BuildHierarchy(nil)
	require.NotNil(t, result.Root)
	assert.Equal(t, RootName, result.Root.Name)
	assert.Empty(t, result.Root.Children)
	assert.Zero(t, result.OrphanCount)
}

func TestBuildHierarchyNoLayerOne(t *testing.T) {
	// Without a layer-1 edge nothing can attach; every edge is an orphan.
	result := BuildHierarchy([]domain.Transaction{
		txn("ACK1", 2, "B", "C", "T1", 100),
		txn("ACK1", 3, "C", "D", "T2", 50),
	})
	assert.Empty(t, result.Root.Children)
	assert.Equal(t, 2, result.OrphanCount)
}

func TestBuildHierarchyTwoLayers(t *testing.T) {
	result := BuildHierarchy([]domain.Transaction{
		txn("ACK1", 1, "VICTIM", "MULE1", "T1", 1000),
		txn("ACK1", 2, "MULE1", "MULE2", "T2", 600),
	})
	require.Len(t, result.Root.Children, 1)

	victim := result.Root.Children[0]
	assert.Equal(t, "VICTIM", victim.Name)
	require.Len(t, victim.Children, 1)

	mule1 := victim.Children[0]
	assert.Equal(t, "MULE1", mule1.Name)
	require.Len(t, mule1.Children, 1)
	assert.Equal(t, "MULE2", mule1.Children[0].Name)
	assert.Zero(t, result.OrphanCount)
}

func TestBuildHierarchyChildLayerFromOnwardEdge(t *testing.T) {
	// MULE1 appears as a source on a layer-2 edge, so its node is labeled
	// with that onward layer, not the layer of the edge that created it.
	result := BuildHierarchy([]domain.Transaction{
		txn("ACK1", 1, "VICTIM", "MULE1", "T1", 1000),
		txn("ACK1", 2, "MULE1", "MULE2", "T2", 600),
	})
	mule1 := result.Root.Children[0].Children[0]
	assert.Equal(t, 2, mule1.Layer)

	mule2 := mule1.Children[0]
	assert.Equal(t, 2, mule2.Layer)
}

func TestBuildHierarchyPerPairTransactionList(t *testing.T) {
	// Two separate transfers on the same from->to pair: one child node, but
	// both transfers listed in ingestion order.
	result := BuildHierarchy([]domain.Transaction{
		txn("ACK1", 1, "VICTIM", "MULE1", "T1", 1000),
		txn("ACK1", 1, "VICTIM", "MULE1", "T2", 500),
	})
	require.Len(t, result.Root.Children, 1)
	victim := result.Root.Children[0]
	require.Len(t, victim.Children, 1)

	edges := victim.Children[0].TransactionsFromParent
	require.Len(t, edges, 2)
	assert.Equal(t, "T1", edges[0].TransferID)
	assert.InDelta(t, 1000, edges[0].Amount, 1e-9)
	assert.Equal(t, "T2", edges[1].TransferID)
	assert.InDelta(t, 500, edges[1].Amount, 1e-9)
}

func TestBuildHierarchyFirstEdgeWinsNodeFields(t *testing.T) {
	a := txn("ACK1", 1, "VICTIM", "MULE1", "T1", 1000)
	a.BankName = "SBI"
	b := txn("ACK1", 1, "VICTIM", "MULE1", "T2", 500)
	b.BankName = "HDFC"

	result := BuildHierarchy([]domain.Transaction{a, b})
	child := result.Root.Children[0].Children[0]
	assert.Equal(t, "SBI", child.BankName)
	assert.Equal(t, "T1", child.TransferID)
}

func TestBuildHierarchyRegionFallback(t *testing.T) {
	kerala := "Kerala"
	unknown := domain.RegionUnknown

	withRegion := txn("ACK1", 1, "V", "A", "T1", 10)
	withRegion.Region = &kerala
	withCode := txn("ACK1", 1, "V", "B", "T2", 10)
	withCode.Region = &unknown
	withCode.BranchCode = "SBIN27MH0001"
	bare := txn("ACK1", 1, "V", "C", "T3", 10)

	result := BuildHierarchy([]domain.Transaction{withRegion, withCode, bare})
	children := result.Root.Children[0].Children
	require.Len(t, children, 3)
	assert.Equal(t, "Kerala", children[0].Region)
	assert.Equal(t, "SBIN27MH0001", children[1].Region)
	assert.Equal(t, "Unknown State", children[2].Region)
}

func TestBuildHierarchySideRecordAttachment(t *testing.T) {
	atmID := "ATM-77"
	atmAmount := 200.0
	withATM := txn("ACK1", 1, "V", "A", "T1", 10)
	withATM.ATMID = &atmID
	withATM.ATMAmount = &atmAmount

	plain := txn("ACK1", 1, "V", "B", "T2", 10)

	result := BuildHierarchy([]domain.Transaction{withATM, plain})
	children := result.Root.Children[0].Children
	require.Len(t, children, 2)

	require.NotNil(t, children[0].ATMInfo)
	assert.Equal(t, "ATM-77", *children[0].ATMInfo.ATMID)
	assert.Nil(t, children[0].ChequeInfo)
	assert.Nil(t, children[1].ATMInfo)
}

func TestBuildHierarchyAmountsAreStrings(t *testing.T) {
	a := txn("ACK1", 1, "V", "A", "T1", 1234.5)
	a.DisputedAmount = 1000

	result := BuildHierarchy([]domain.Transaction{a})
	child := result.Root.Children[0].Children[0]
	assert.Equal(t, "1234.5", child.Amount)
	assert.Equal(t, "1000", child.DisputedAmount)
}

func TestBuildHierarchyOrphanSkipped(t *testing.T) {
	result := BuildHierarchy([]domain.Transaction{
		txn("ACK1", 1, "VICTIM", "MULE1", "T1", 1000),
		txn("ACK1", 3, "GHOST", "MULE9", "T2", 50),
	})
	require.Len(t, result.Root.Children, 1)
	assert.Equal(t, 1, result.OrphanCount)
}
