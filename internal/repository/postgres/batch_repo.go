package postgres

import (
	"context"
	"fmt"

	"github.com/fundtrail/trace-service/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BatchRepository handles upload-batch ingestion and cross-case analytics.
type BatchRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRepository creates a batch repository sharing an existing pool.
func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{
		pool: pool,
	}
}

// ReplaceCaseBatch inserts one upload batch and its transactions, first
// deleting any prior records for the cases the batch covers. Upload implies
// delete-then-insert: everything happens in one transaction, so a failure
// partway never leaves partial case data visible.
func (r *BatchRepository) ReplaceCaseBatch(ctx context.Context, batch *domain.UploadBatch, txns []domain.Transaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch insert: %w", err)
	}
	defer tx.Rollback(ctx)

	ackSeen := make(map[string]struct{})
	for i := range txns {
		ackSeen[txns[i].AckNo] = struct{}{}
	}
	for ackNo := range ackSeen {
		if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE ack_no = $1`, ackNo); err != nil {
			return fmt.Errorf("failed to replace prior case records: %w", err)
		}
	}

	const batchQuery = `
		INSERT INTO upload_batches (
			id, filename, payload, uploader, mime_type, uploaded_at, transaction_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	batch.TransactionCount = len(txns)
	_, err = tx.Exec(ctx, batchQuery,
		batch.ID, batch.Filename, batch.Payload, batch.Uploader,
		batch.MimeType, batch.UploadedAt, batch.TransactionCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload batch: %w", err)
	}

	const txnQuery = `
		INSERT INTO transactions (
			ack_no, layer, from_account, to_account, account_number,
			bank_name, branch_code, txn_date, transfer_id, amount, disputed_amount,
			action_taken, region,
			atm_id, atm_amount, atm_date, atm_location,
			cheque_no, cheque_amount, cheque_date, cheque_branch_code,
			hold_transfer_id, hold_date, hold_amount,
			upload_id
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13,
			$14, $15, $16, $17,
			$18, $19, $20, $21,
			$22, $23, $24,
			$25
		)
	`
	for i := range txns {
		t := &txns[i]
		_, err := tx.Exec(ctx, txnQuery,
			t.AckNo, t.Layer, t.FromAccount, t.ToAccount, t.AccountNumber,
			t.BankName, t.BranchCode, t.TxnDate, t.TransferID, t.Amount, t.DisputedAmount,
			t.ActionTaken, t.Region,
			t.ATMID, t.ATMAmount, t.ATMDate, t.ATMLocation,
			t.ChequeNo, t.ChequeAmount, t.ChequeDate, t.ChequeBranchCode,
			t.HoldTransferID, t.HoldDate, t.HoldAmount,
			batch.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch insert: %w", err)
	}
	return nil
}

// Analytics computes the cross-case ingestion overview.
func (r *BatchRepository) Analytics(ctx context.Context) (*domain.Analytics, error) {
	out := &domain.Analytics{}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT filename) FROM upload_batches`,
	).Scan(&out.TotalUploadedFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to count uploads: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM transactions`,
	).Scan(&out.TotalTransactions, &out.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to total transactions: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT b.filename, COUNT(t.id)
		FROM upload_batches b
		JOIN transactions t ON t.upload_id = b.id
		GROUP BY b.filename
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions per file: %w", err)
	}
	for rows.Next() {
		var uc domain.UploadCount
		if err := rows.Scan(&uc.Filename, &uc.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan upload count: %w", err)
		}
		out.TransactionsPerFile = append(out.TransactionsPerFile, uc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read upload counts: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT uploader, COUNT(id)
		FROM upload_batches
		WHERE uploader <> ''
		GROUP BY uploader
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query officer uploads: %w", err)
	}
	for rows.Next() {
		var ou domain.OfficerUploads
		if err := rows.Scan(&ou.Uploader, &ou.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan officer uploads: %w", err)
		}
		out.OfficerUploads = append(out.OfficerUploads, ou)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read officer uploads: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT branch_code, COUNT(id) AS cnt
		FROM transactions
		WHERE branch_code <> ''
		GROUP BY branch_code
		ORDER BY cnt DESC
		LIMIT 5
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query frequent branch codes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var bc domain.BranchCodeCount
		if err := rows.Scan(&bc.BranchCode, &bc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan branch code count: %w", err)
		}
		out.FrequentBranchCodes = append(out.FrequentBranchCodes, bc)
	}
	return out, rows.Err()
}
