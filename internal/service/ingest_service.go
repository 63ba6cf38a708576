package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fundtrail/trace-service/internal/domain"
	"github.com/fundtrail/trace-service/internal/flow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchStore persists upload batches with replace semantics.
type BatchStore interface {
	ReplaceCaseBatch(ctx context.Context, batch *domain.UploadBatch, txns []domain.Transaction) error
}

// Archiver keeps raw upload payloads in long-term storage.
type Archiver interface {
	ArchiveUpload(ctx context.Context, batch *domain.UploadBatch) error
	ArchiveManifest(ctx context.Context, batch *domain.UploadBatch, txns []domain.Transaction) error
}

// Indexer feeds the search index.
type Indexer interface {
	IndexTransactions(ctx context.Context, txns []domain.Transaction) error
}

// Upload is one parsed spreadsheet export handed over by the importer: the
// main transfer sheet plus the three side sheets.
type Upload struct {
	Filename  string               `json:"filename"`
	Uploader  string               `json:"uploader"`
	MimeType  string               `json:"mime_type"`
	Payload   []byte               `json:"payload,omitempty"`
	Transfers []domain.TransferRow `json:"transfers"`
	ATM       []domain.ATMRow      `json:"atm"`
	Cheques   []domain.ChequeRow   `json:"cheques"`
	Holds     []domain.HoldRow     `json:"holds"`
}

// IngestService turns validated spreadsheet rows into stored transactions.
// Archival and search indexing are best-effort side effects; the Postgres
// write is the critical path.
type IngestService struct {
	batches BatchStore
	archive Archiver
	search  Indexer
	logger  *zap.Logger
}

// NewIngestService wires the ingest service. archive and search may be nil
// when the corresponding backend is unavailable.
func NewIngestService(batches BatchStore, archive Archiver, search Indexer, logger *zap.Logger) *IngestService {
	return &IngestService{
		batches: batches,
		archive: archive,
		search:  search,
		logger:  logger,
	}
}

// ProcessUpload assembles transactions from the upload's rows and replaces
// any prior batch for the cases it covers.
func (s *IngestService) ProcessUpload(ctx context.Context, upload *Upload) (*domain.UploadBatch, error) {
	batch := &domain.UploadBatch{
		ID:         uuid.New(),
		Filename:   upload.Filename,
		Payload:    upload.Payload,
		Uploader:   upload.Uploader,
		MimeType:   upload.MimeType,
		UploadedAt: time.Now().UTC(),
	}

	txns := assembleTransactions(upload, batch.ID)
	if len(txns) == 0 {
		return nil, fmt.Errorf("upload %s contains no usable transfer rows", upload.Filename)
	}

	if err := s.batches.ReplaceCaseBatch(ctx, batch, txns); err != nil {
		s.logger.Error("failed to persist upload batch",
			zap.String("batch_id", batch.ID.String()),
			zap.String("filename", upload.Filename),
			zap.Error(err),
		)
		return nil, fmt.Errorf("batch persistence failed: %w", err)
	}
	batch.TransactionCount = len(txns)

	s.logger.Info("ingested upload batch",
		zap.String("batch_id", batch.ID.String()),
		zap.String("filename", upload.Filename),
		zap.Int("transactions", len(txns)),
	)

	s.asyncArchive(batch, txns)
	return batch, nil
}

// assembleTransactions builds one transaction per transfer row, attaching
// the first matching side-record of each sheet. Rows without an
// acknowledgement number are skipped.
func assembleTransactions(upload *Upload, batchID uuid.UUID) []domain.Transaction {
	txns := make([]domain.Transaction, 0, len(upload.Transfers))
	for _, row := range upload.Transfers {
		ackNo := strings.TrimSpace(row.AckNo)
		if ackNo == "" {
			continue
		}

		toAccount := strings.TrimSpace(row.ToAccount)
		side := flow.MatchSideRecords(toAccount, upload.ATM, upload.Cheques, upload.Holds)

		t := domain.Transaction{
			AckNo:          ackNo,
			Layer:          row.Layer,
			FromAccount:    strings.TrimSpace(row.FromAccount),
			ToAccount:      toAccount,
			AccountNumber:  toAccount,
			BankName:       strings.TrimSpace(row.BankName),
			BranchCode:     strings.TrimSpace(row.BranchCode),
			TxnDate:        strings.TrimSpace(row.TxnDate),
			TransferID:     strings.TrimSpace(row.TransferID),
			Amount:         flow.ParseAmount(row.Amount),
			DisputedAmount: flow.ParseAmount(row.DisputedAmount),
			ActionTaken:    strings.TrimSpace(row.ActionTaken),
			UploadID:       batchID,
		}
		if side.ATM != nil {
			t.ATMID = &side.ATM.ATMID
			t.ATMAmount = &side.ATM.Amount
			t.ATMDate = &side.ATM.Date
			if side.ATM.Location != "" {
				t.ATMLocation = &side.ATM.Location
			}
		}
		if side.Cheque != nil {
			t.ChequeNo = &side.Cheque.ChequeNo
			t.ChequeAmount = &side.Cheque.Amount
			t.ChequeDate = &side.Cheque.Date
			t.ChequeBranchCode = &side.Cheque.BranchCode
		}
		if side.Hold != nil {
			t.HoldTransferID = &side.Hold.TransferID
			t.HoldAmount = &side.Hold.Amount
			t.HoldDate = &side.Hold.Date
		}
		txns = append(txns, t)
	}
	return txns
}

// asyncArchive pushes the raw payload and transaction manifest to object
// storage and the search index in the background, with panic protection.
func (s *IngestService) asyncArchive(batch *domain.UploadBatch, txns []domain.Transaction) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in async archive", zap.Any("panic", r))
			}
		}()

		// Detached context; the caller's request is already done.
		asyncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if s.archive != nil {
			if err := s.archive.ArchiveUpload(asyncCtx, batch); err != nil {
				s.logger.Error("failed to archive upload payload",
					zap.String("batch_id", batch.ID.String()),
					zap.Error(err),
				)
			}
			if err := s.archive.ArchiveManifest(asyncCtx, batch, txns); err != nil {
				s.logger.Error("failed to archive upload manifest",
					zap.String("batch_id", batch.ID.String()),
					zap.Error(err),
				)
			}
		}

		if s.search != nil {
			if err := s.search.IndexTransactions(asyncCtx, txns); err != nil {
				s.logger.Error("failed to index upload transactions",
					zap.String("batch_id", batch.ID.String()),
					zap.Error(err),
				)
			}
		}
	}()
}
