package integration

import (
	"context"
	"testing"

	"github.com/fundtrail/trace-service/internal/config"
	"github.com/fundtrail/trace-service/internal/crypto"
	"github.com/fundtrail/trace-service/internal/domain"
	"github.com/fundtrail/trace-service/internal/geo"
	"github.com/fundtrail/trace-service/internal/repository/postgres"
	"github.com/fundtrail/trace-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestCaseTraceFlow requires Docker Compose environment running
func TestCaseTraceFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// 1. Setup
	cfg, err := config.Load()
	require.NoError(t, err)

	logger, _ := zap.NewDevelopment()
	encryptor, err := crypto.NewFieldEncryptor(
		cfg.Encryption.EncryptionKeysBase64,
		cfg.Encryption.CurrentKeyVersion,
	)
	require.NoError(t, err)

	caseRepo, err := postgres.NewCaseRepository(cfg.Database, encryptor)
	require.NoError(t, err)
	defer caseRepo.Close()

	batchRepo := postgres.NewBatchRepository(caseRepo.Pool())

	cache := geo.NewRegionCache()
	resolver := geo.NewResolver(cache, cfg.Resolver.LookupBaseURL, cfg.Resolver.LookupTimeout, logger)

	caseService := service.NewCaseService(caseRepo, batchRepo, resolver, cfg.Resolver.ResolveWorkers, logger)
	ingestService := service.NewIngestService(batchRepo, nil, nil, logger)

	// 2. Execution - ingest a two-layer case
	const ackNo = "INTEG-ACK-001"
	upload := &service.Upload{
		Filename: "integ_case.xlsx",
		Uploader: "integration",
		MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Transfers: []domain.TransferRow{
			{AckNo: ackNo, Layer: 1, FromAccount: "VICTIM01", ToAccount: "MULE01", BankName: "SBI", BranchCode: "SBIN0MH0001", TxnDate: "01-01-2026", TransferID: "T1", Amount: "50000", DisputedAmount: "50000", ActionTaken: "Freeze"},
			{AckNo: ackNo, Layer: 2, FromAccount: "MULE01", ToAccount: "MULE02", BankName: "HDFC", BranchCode: "HDFC0KL0002", TxnDate: "02-01-2026", TransferID: "T2", Amount: "30000", DisputedAmount: "30000", ActionTaken: ""},
		},
	}

	batch, err := ingestService.ProcessUpload(context.Background(), upload)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.TransactionCount)

	// 3. Verification - hierarchy
	root, err := caseService.CaseGraph(context.Background(), ackNo)
	require.NoError(t, err)
	require.Len(t, root.Children, 1)

	victim := root.Children[0]
	assert.Equal(t, "VICTIM01", victim.Name)
	require.Len(t, victim.Children, 1)
	assert.Equal(t, "MULE01", victim.Children[0].Name)

	// 4. Verification - KYC round trip through encryption at rest
	err = caseService.SaveKYC(context.Background(), domain.KYCUpdate{
		TransferID: "T1",
		Name:       "Integ Holder",
		Aadhar:     "123412341234",
		Mobile:     "9000000001",
	})
	require.NoError(t, err)

	txns, err := caseRepo.TransactionsByCase(context.Background(), ackNo)
	require.NoError(t, err)
	var found bool
	for _, txn := range txns {
		if txn.TransferID == "T1" {
			found = true
			require.NotNil(t, txn.KYCAadhar)
			assert.Equal(t, "123412341234", *txn.KYCAadhar)
		}
	}
	require.True(t, found)

	// 5. Cleanup
	err = caseService.DeleteCase(context.Background(), ackNo)
	require.NoError(t, err)

	t.Log("Case Trace Integration Test Passed")
}
