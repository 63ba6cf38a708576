package service

import (
	"context"
	"sync"
	"testing"

	"github.com/fundtrail/trace-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu           sync.Mutex
	transactions []domain.Transaction
	knownRegions int64
	updates      []domain.RegionUpdate
	batchCalls   int
	kycUpdates   []domain.KYCUpdate
	kycErr       error
	deletedCases []string
	deleteErr    error
}

func (f *fakeStore) TransactionsByCase(ctx context.Context, ackNo string) ([]domain.Transaction, error) {
	return f.transactions, nil
}

func (f *fakeStore) TransactionsMissingRegion(ctx context.Context, ackNo string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, t := range f.transactions {
		if !t.KnownRegion() && t.BranchCode != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) KnownRegionCount(ctx context.Context, ackNo string) (int64, error) {
	return f.knownRegions, nil
}

func (f *fakeStore) BatchUpdateRegions(ctx context.Context, updates []domain.RegionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	f.updates = append(f.updates, updates...)
	return nil
}

func (f *fakeStore) UpdateKYC(ctx context.Context, update domain.KYCUpdate) error {
	if f.kycErr != nil {
		return f.kycErr
	}
	f.kycUpdates = append(f.kycUpdates, update)
	return nil
}

func (f *fakeStore) HeldTransactions(ctx context.Context, ackNo string) ([]domain.HeldTransaction, error) {
	return nil, nil
}

func (f *fakeStore) RegionTransactions(ctx context.Context, ackNo, region string, page, perPage int) (*domain.RegionTransactionPage, error) {
	return &domain.RegionTransactionPage{Page: page, PerPage: perPage}, nil
}

func (f *fakeStore) CaseIDs(ctx context.Context) ([]string, error) {
	return []string{"ACK1"}, nil
}

func (f *fakeStore) DeleteCase(ctx context.Context, ackNo string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedCases = append(f.deletedCases, ackNo)
	return nil
}

type fakeResolver struct {
	mu      sync.Mutex
	calls   int
	regions map[string]string
}

func (f *fakeResolver) Resolve(code string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if region, ok := f.regions[code]; ok {
		return region
	}
	return domain.RegionUnknown
}

func newTestService(store *fakeStore, resolver *fakeResolver) *CaseService {
	return NewCaseService(store, nil, resolver, 4, zap.NewNop())
}

func TestSummarizeByRegionResolvesWhenNoneKnown(t *testing.T) {
	store := &fakeStore{
		transactions: []domain.Transaction{
			{ID: 1, AckNo: "ACK1", BranchCode: "SBIN32KL0001", Amount: 100},
			{ID: 2, AckNo: "ACK1", BranchCode: "SBIN32KL0001", Amount: 200},
			{ID: 3, AckNo: "ACK1", BranchCode: "HDFC24GJ0002", Amount: 300},
		},
	}
	resolver := &fakeResolver{regions: map[string]string{
		"SBIN32KL0001": "kerala",
		"HDFC24GJ0002": "gujarat",
	}}

	svc := newTestService(store, resolver)
	_, err := svc.SummarizeByRegion(context.Background(), "ACK1")
	require.NoError(t, err)

	// One resolution per distinct code, one batched write covering all rows.
	assert.Equal(t, 2, resolver.calls)
	assert.Equal(t, 1, store.batchCalls)
	require.Len(t, store.updates, 3)

	byID := make(map[int64]string)
	for _, u := range store.updates {
		byID[u.TransactionID] = u.Region
	}
	assert.Equal(t, "Kerala", byID[1], "resolved regions are title-cased")
	assert.Equal(t, "Kerala", byID[2])
	assert.Equal(t, "Gujarat", byID[3])
}

func TestSummarizeByRegionSkipsResolveWhenAnyKnown(t *testing.T) {
	kerala := "Kerala"
	store := &fakeStore{
		knownRegions: 1,
		transactions: []domain.Transaction{
			{ID: 1, AckNo: "ACK1", Region: &kerala, Amount: 100, BranchCode: "SBIN32KL0001"},
			{ID: 2, AckNo: "ACK1", Amount: 200, BranchCode: "HDFC24GJ0002"},
		},
	}
	resolver := &fakeResolver{}

	svc := newTestService(store, resolver)
	summaries, err := svc.SummarizeByRegion(context.Background(), "ACK1")
	require.NoError(t, err)

	// Row 2 stays unresolved and is silently absent from the summary.
	assert.Zero(t, resolver.calls)
	assert.Zero(t, store.batchCalls)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Kerala", summaries[0].Region)
}

func TestSummarizeByRegionDisplayOrder(t *testing.T) {
	kerala, gujarat, punjab := "Kerala", "Gujarat", "Punjab"
	store := &fakeStore{
		knownRegions: 3,
		transactions: []domain.Transaction{
			{ID: 1, Region: &gujarat, Amount: 900},
			{ID: 2, Region: &kerala, Amount: 100},
			{ID: 3, Region: &punjab, Amount: 500},
		},
	}

	svc := newTestService(store, &fakeResolver{})
	summaries, err := svc.SummarizeByRegion(context.Background(), "ACK1")
	require.NoError(t, err)

	require.Len(t, summaries, 3)
	assert.Equal(t, "Kerala", summaries[0].Region)
	assert.Equal(t, "Gujarat", summaries[1].Region)
	assert.Equal(t, "Punjab", summaries[2].Region)
}

func TestCaseGraphEmptyCase(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeResolver{})

	root, err := svc.CaseGraph(context.Background(), "ACK1")
	require.NoError(t, err)
	assert.Equal(t, "Flow", root.Name)
	assert.Empty(t, root.Children)
}

func TestCaseGraphBuildsTree(t *testing.T) {
	store := &fakeStore{
		transactions: []domain.Transaction{
			{AckNo: "ACK1", Layer: 1, FromAccount: "VICTIM", ToAccount: "MULE1", TransferID: "T1", Amount: 1000},
			{AckNo: "ACK1", Layer: 2, FromAccount: "MULE1", ToAccount: "MULE2", TransferID: "T2", Amount: 600},
		},
	}
	svc := newTestService(store, &fakeResolver{})

	root, err := svc.CaseGraph(context.Background(), "ACK1")
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "VICTIM", root.Children[0].Name)
}

func TestSaveKYCPassesThroughNotFound(t *testing.T) {
	store := &fakeStore{kycErr: ErrCaseNotFound}
	svc := newTestService(store, &fakeResolver{})

	err := svc.SaveKYC(context.Background(), domain.KYCUpdate{TransferID: "T404"})
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestSaveKYC(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeResolver{})

	update := domain.KYCUpdate{TransferID: "T1", Name: "Holder", Aadhar: "123412341234", Mobile: "9000000001"}
	require.NoError(t, svc.SaveKYC(context.Background(), update))
	require.Len(t, store.kycUpdates, 1)
	assert.Equal(t, update, store.kycUpdates[0])
}

func TestDeleteCase(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeResolver{})

	require.NoError(t, svc.DeleteCase(context.Background(), "ACK1"))
	assert.Equal(t, []string{"ACK1"}, store.deletedCases)

	store.deleteErr = ErrCaseNotFound
	err := svc.DeleteCase(context.Background(), "MISSING")
	assert.ErrorIs(t, err, ErrCaseNotFound)
}
