package postgres

import (
	"context"
	"fmt"

	"github.com/fundtrail/trace-service/internal/config"
	"github.com/fundtrail/trace-service/internal/crypto"
	"github.com/fundtrail/trace-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCaseNotFound is returned when no transactions exist for a case.
var ErrCaseNotFound = domain.ErrCaseNotFound

const transactionColumns = `
	id, ack_no, layer, from_account, to_account, account_number,
	bank_name, branch_code, txn_date, transfer_id, amount, disputed_amount,
	action_taken, region,
	atm_id, atm_amount, atm_date, atm_location,
	cheque_no, cheque_amount, cheque_date, cheque_branch_code,
	hold_transfer_id, hold_date, hold_amount,
	kyc_name, kyc_aadhar, kyc_mobile, kyc_address, kyc_key_version,
	upload_id
`

// CaseRepository implements the record store for case transactions.
type CaseRepository struct {
	pool      *pgxpool.Pool
	encryptor *crypto.FieldEncryptor
}

// NewCaseRepository creates a new case repository backed by a pgx pool.
func NewCaseRepository(cfg config.DatabaseConfig, encryptor *crypto.FieldEncryptor) (*CaseRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	return &CaseRepository{
		pool:      pool,
		encryptor: encryptor,
	}, nil
}

// Pool exposes the underlying pool so sibling repositories can share it.
func (r *CaseRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// TransactionsByCase returns every transaction for a case, in ingestion
// order. The order matters: it determines first-seen tie-breaking in the
// hierarchy builder.
func (r *CaseRepository) TransactionsByCase(ctx context.Context, ackNo string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ack_no = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ackNo)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return r.scanTransactions(rows)
}

// TransactionsMissingRegion returns the case's transactions that hold a
// branch code but no usable region.
func (r *CaseRepository) TransactionsMissingRegion(ctx context.Context, ackNo string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE ack_no = $1
		  AND (region IS NULL OR region = $2)
		  AND branch_code <> ''
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ackNo, domain.RegionUnknown)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved transactions: %w", err)
	}
	defer rows.Close()

	return r.scanTransactions(rows)
}

// KnownRegionCount counts transactions for a case whose region is already
// resolved to something other than the Unknown sentinel.
func (r *CaseRepository) KnownRegionCount(ctx context.Context, ackNo string) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions
		WHERE ack_no = $1 AND region IS NOT NULL AND region <> $2`

	var count int64
	if err := r.pool.QueryRow(ctx, query, ackNo, domain.RegionUnknown).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count resolved regions: %w", err)
	}
	return count, nil
}

// BatchUpdateRegions writes resolved regions back in a single transaction.
// A failure partway leaves no partial backfill visible.
func (r *CaseRepository) BatchUpdateRegions(ctx context.Context, updates []domain.RegionUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin region backfill: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(`UPDATE transactions SET region = $1 WHERE id = $2`, u.Region, u.TransactionID)
	}

	results := tx.SendBatch(ctx, batch)
	for range updates {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to update region: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to flush region updates: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit region backfill: %w", err)
	}
	return nil
}

// UpdateKYC stores officer-entered identity details on the transaction
// matching the transfer id. Aadhar and mobile are encrypted at rest.
func (r *CaseRepository) UpdateKYC(ctx context.Context, update domain.KYCUpdate) error {
	aadhar, version, err := r.encryptor.Encrypt(update.Aadhar)
	if err != nil {
		return fmt.Errorf("failed to encrypt aadhar: %w", err)
	}
	mobile, _, err := r.encryptor.Encrypt(update.Mobile)
	if err != nil {
		return fmt.Errorf("failed to encrypt mobile: %w", err)
	}

	query := `UPDATE transactions
		SET kyc_name = $1, kyc_aadhar = $2, kyc_mobile = $3, kyc_address = $4, kyc_key_version = $5
		WHERE transfer_id = $6`

	tag, err := r.pool.Exec(ctx, query,
		update.Name, aadhar, mobile, update.Address, version, update.TransferID,
	)
	if err != nil {
		return fmt.Errorf("failed to update kyc: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// HeldTransactions returns the put-on-hold records for a case.
func (r *CaseRepository) HeldTransactions(ctx context.Context, ackNo string) ([]domain.HeldTransaction, error) {
	query := `SELECT account_number, to_account, bank_name, branch_code, hold_amount, layer
		FROM transactions
		WHERE ack_no = $1 AND hold_transfer_id IS NOT NULL
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ackNo)
	if err != nil {
		return nil, fmt.Errorf("failed to query held transactions: %w", err)
	}
	defer rows.Close()

	var held []domain.HeldTransaction
	for rows.Next() {
		var h domain.HeldTransaction
		var accountNumber, toAccount string
		if err := rows.Scan(&accountNumber, &toAccount, &h.BankName, &h.BranchCode, &h.Amount, &h.Layer); err != nil {
			return nil, fmt.Errorf("failed to scan held transaction: %w", err)
		}
		h.AccountNumber = accountNumber
		if h.AccountNumber == "" {
			h.AccountNumber = toAccount
		}
		held = append(held, h)
	}
	return held, rows.Err()
}

// RegionTransactions returns one page of a case's transactions in a region.
// Rows with an ATM side-record sort first; region comparison is trimmed and
// case-insensitive.
func (r *CaseRepository) RegionTransactions(ctx context.Context, ackNo, region string, page, perPage int) (*domain.RegionTransactionPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	offset := (page - 1) * perPage

	countQuery := `SELECT COUNT(*) FROM transactions
		WHERE ack_no = $1 AND LOWER(TRIM(region)) = LOWER(TRIM($2))`
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, ackNo, region).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count region transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE ack_no = $1 AND LOWER(TRIM(region)) = LOWER(TRIM($2))
		ORDER BY (atm_id IS NOT NULL) DESC, id
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, ackNo, region, perPage, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query region transactions: %w", err)
	}
	defer rows.Close()

	txns, err := r.scanTransactions(rows)
	if err != nil {
		return nil, err
	}

	pageOut := &domain.RegionTransactionPage{
		Transactions: make([]domain.RegionTransaction, 0, len(txns)),
		TotalCount:   total,
		Page:         page,
		PerPage:      perPage,
		TotalPages:   int((total + int64(perPage) - 1) / int64(perPage)),
	}
	for i := range txns {
		t := &txns[i]
		kind, amount, transferID := t.Classify()
		date := t.TxnDate
		if date == "" {
			date = "N/A"
		}
		pageOut.Transactions = append(pageOut.Transactions, domain.RegionTransaction{
			AckNo:       t.AckNo,
			AccountName: t.AccountNumber,
			BankName:    t.BankName,
			Amount:      amount,
			BranchCode:  t.BranchCode,
			Date:        date,
			Kind:        kind,
			TransferID:  transferID,
			Layer:       t.Layer,
		})
	}
	return pageOut, nil
}

// CaseIDs returns the distinct acknowledgement numbers present, sorted.
func (r *CaseRepository) CaseIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT ack_no FROM transactions WHERE ack_no <> '' ORDER BY ack_no`)
	if err != nil {
		return nil, fmt.Errorf("failed to query case ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan case id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteCase removes every transaction for a case and the upload batches
// that produced them, in one transaction.
func (r *CaseRepository) DeleteCase(ctx context.Context, ackNo string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin case delete: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT DISTINCT upload_id FROM transactions WHERE ack_no = $1`, ackNo)
	if err != nil {
		return fmt.Errorf("failed to collect upload ids: %w", err)
	}
	var uploadIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan upload id: %w", err)
		}
		uploadIDs = append(uploadIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read upload ids: %w", err)
	}
	if len(uploadIDs) == 0 {
		return ErrCaseNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE ack_no = $1`, ackNo); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	for _, id := range uploadIDs {
		if _, err := tx.Exec(ctx, `DELETE FROM upload_batches WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete upload batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit case delete: %w", err)
	}
	return nil
}

// Close closes the database connection pool
func (r *CaseRepository) Close() {
	r.pool.Close()
}

func (r *CaseRepository) scanTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(
			&t.ID, &t.AckNo, &t.Layer, &t.FromAccount, &t.ToAccount, &t.AccountNumber,
			&t.BankName, &t.BranchCode, &t.TxnDate, &t.TransferID, &t.Amount, &t.DisputedAmount,
			&t.ActionTaken, &t.Region,
			&t.ATMID, &t.ATMAmount, &t.ATMDate, &t.ATMLocation,
			&t.ChequeNo, &t.ChequeAmount, &t.ChequeDate, &t.ChequeBranchCode,
			&t.HoldTransferID, &t.HoldDate, &t.HoldAmount,
			&t.KYCName, &t.KYCAadhar, &t.KYCMobile, &t.KYCAddress, &t.KYCKeyVersion,
			&t.UploadID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		r.decryptKYC(&t)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// decryptKYC restores the plaintext of encrypted KYC fields. Decryption
// failures leave the field empty rather than failing the read.
func (r *CaseRepository) decryptKYC(t *domain.Transaction) {
	if t.KYCKeyVersion == nil {
		return
	}
	if t.KYCAadhar != nil {
		if plain, err := r.encryptor.Decrypt(*t.KYCAadhar, *t.KYCKeyVersion); err == nil {
			t.KYCAadhar = &plain
		} else {
			t.KYCAadhar = nil
		}
	}
	if t.KYCMobile != nil {
		if plain, err := r.encryptor.Decrypt(*t.KYCMobile, *t.KYCKeyVersion); err == nil {
			t.KYCMobile = &plain
		} else {
			t.KYCMobile = nil
		}
	}
}
