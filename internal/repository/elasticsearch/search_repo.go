package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	elastic "github.com/elastic/go-elasticsearch/v8"
	"github.com/fundtrail/trace-service/internal/config"
	"github.com/fundtrail/trace-service/internal/domain"
)

// SearchRepository indexes case transactions for free-text lookup (account
// numbers, bank names, transfer ids across cases). Indexing is best-effort;
// Postgres remains the source of truth.
type SearchRepository struct {
	client *elastic.Client
	index  string
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(cfg config.ElasticsearchConfig) (*SearchRepository, error) {
	client, err := elastic.NewClient(elastic.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	// Verify connection
	if _, err := client.Info(); err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}

	return &SearchRepository{
		client: client,
		index:  cfg.Index,
	}, nil
}

// transactionDoc is the indexed projection of a transaction. KYC fields are
// deliberately excluded; they never leave Postgres.
type transactionDoc struct {
	AckNo       string  `json:"ack_no"`
	Layer       int     `json:"layer"`
	FromAccount string  `json:"from_account"`
	ToAccount   string  `json:"to_account"`
	BankName    string  `json:"bank_name"`
	BranchCode  string  `json:"branch_code"`
	TransferID  string  `json:"transfer_id"`
	TxnDate     string  `json:"txn_date"`
	Amount      float64 `json:"amount"`
	Region      string  `json:"region,omitempty"`
	UploadID    string  `json:"upload_id"`
}

// IndexTransactions indexes the transactions of one ingested batch.
func (r *SearchRepository) IndexTransactions(ctx context.Context, txns []domain.Transaction) error {
	for i := range txns {
		t := &txns[i]
		doc := transactionDoc{
			AckNo:       t.AckNo,
			Layer:       t.Layer,
			FromAccount: t.FromAccount,
			ToAccount:   t.ToAccount,
			BankName:    t.BankName,
			BranchCode:  t.BranchCode,
			TransferID:  t.TransferID,
			TxnDate:     t.TxnDate,
			Amount:      t.Amount,
			UploadID:    t.UploadID.String(),
		}
		if t.Region != nil {
			doc.Region = *t.Region
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction: %w", err)
		}

		docID := fmt.Sprintf("%s:%s:%s:%s", t.AckNo, t.FromAccount, t.ToAccount, t.TransferID)
		res, err := r.client.Index(
			r.index,
			bytes.NewReader(data),
			r.client.Index.WithContext(ctx),
			r.client.Index.WithDocumentID(docID),
		)
		if err != nil {
			return fmt.Errorf("failed to index transaction: %w", err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("elasticsearch error: %s", res.String())
		}
	}
	return nil
}

// SearchHit is one search result row.
type SearchHit struct {
	AckNo       string  `json:"ack_no"`
	FromAccount string  `json:"from_account"`
	ToAccount   string  `json:"to_account"`
	BankName    string  `json:"bank_name"`
	BranchCode  string  `json:"branch_code"`
	TransferID  string  `json:"transfer_id"`
	Amount      float64 `json:"amount"`
}

// SearchPage wraps one page of search results.
type SearchPage struct {
	Hits       []SearchHit `json:"hits"`
	TotalCount int64       `json:"total_count"`
	PageSize   int         `json:"page_size"`
	HasMore    bool        `json:"has_more"`
}

// SearchTransactions performs a query-string search across indexed fields.
func (r *SearchRepository) SearchTransactions(ctx context.Context, query string, from, size int) (*SearchPage, error) {
	esQuery := map[string]interface{}{
		"from": from,
		"size": size,
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{
				"query": query,
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to perform search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// { "hits": { "total": { "value": ... }, "hits": [ { "_source": ... } ] } }
	hitsMap, ok := result["hits"].(map[string]interface{})
	if !ok {
		return &SearchPage{PageSize: size}, nil
	}

	var total int64
	if totalMap, ok := hitsMap["total"].(map[string]interface{}); ok {
		if val, ok := totalMap["value"].(float64); ok {
			total = int64(val)
		}
	}

	page := &SearchPage{
		TotalCount: total,
		PageSize:   size,
		HasMore:    total > int64(from+size),
	}

	hitsList, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return page, nil
	}
	for _, hit := range hitsList {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		sourceBytes, _ := json.Marshal(source)
		var h SearchHit
		if err := json.Unmarshal(sourceBytes, &h); err == nil {
			page.Hits = append(page.Hits, h)
		}
	}

	return page, nil
}
