package geo

import (
	"testing"

	"github.com/fundtrail/trace-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryRegions(summaries []domain.RegionSummary) []string {
	out := make([]string, len(summaries))
	for i, s := range summaries {
		out[i] = s.Region
	}
	return out
}

func TestOrderSummariesMacroRegionOrder(t *testing.T) {
	in := []domain.RegionSummary{
		{Region: "Gujarat", TotalAmount: 900},
		{Region: "Kerala", TotalAmount: 100},
		{Region: "Punjab", TotalAmount: 500},
	}

	out := OrderSummaries(in)
	assert.Equal(t, []string{"Kerala", "Gujarat", "Punjab"}, summaryRegions(out))
}

func TestOrderSummariesSouthernFixedOrder(t *testing.T) {
	// Kerala carries more money, but the southern bucket follows the fixed
	// state list, not amounts.
	in := []domain.RegionSummary{
		{Region: "Kerala", TotalAmount: 9999},
		{Region: "Tamil Nadu", TotalAmount: 1},
	}

	out := OrderSummaries(in)
	assert.Equal(t, []string{"Tamil Nadu", "Kerala"}, summaryRegions(out))
}

func TestOrderSummariesBucketsByAmountDesc(t *testing.T) {
	in := []domain.RegionSummary{
		{Region: "Gujarat", TotalAmount: 10},
		{Region: "Maharashtra", TotalAmount: 50},
		{Region: "Bihar", TotalAmount: 5},
		{Region: "West Bengal", TotalAmount: 25},
		{Region: "Unknown", TotalAmount: 3},
		{Region: "Nowhere", TotalAmount: 7},
	}

	out := OrderSummaries(in)
	assert.Equal(t, []string{
		"Maharashtra", "Gujarat",
		"West Bengal", "Bihar",
		"Nowhere", "Unknown",
	}, summaryRegions(out))
}

func TestGroupByRegion(t *testing.T) {
	kerala := "Kerala"
	unknown := domain.RegionUnknown
	in := []domain.Transaction{
		{Region: &kerala, Amount: 100, BranchCode: "HDFC32KL0002"},
		{Region: &kerala, Amount: 250, BranchCode: "SBIN32KL0001"},
		{Region: &kerala, Amount: 50, BranchCode: "HDFC32KL0002"},
		{Region: &unknown, Amount: 999, BranchCode: "XXXX00XX0000"},
		{Region: nil, Amount: 500, BranchCode: "SBIN27MH0001"},
	}

	out := GroupByRegion(in)
	require.Len(t, out, 1, "Unknown and unresolved rows are excluded")

	assert.Equal(t, "Kerala", out[0].Region)
	assert.Equal(t, 3, out[0].TotalTransactions)
	assert.InDelta(t, 400.0, out[0].TotalAmount, 1e-9)
	assert.Equal(t, []string{"HDFC32KL0002", "SBIN32KL0001"}, out[0].BranchCodes)
}

func TestGroupByRegionEmpty(t *testing.T) {
	assert.Empty(t, GroupByRegion(nil))
}
