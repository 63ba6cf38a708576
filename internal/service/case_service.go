package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/fundtrail/trace-service/internal/crypto"
	"github.com/fundtrail/trace-service/internal/domain"
	"github.com/fundtrail/trace-service/internal/flow"
	"github.com/fundtrail/trace-service/internal/geo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrCaseNotFound is surfaced when an operation targets a case or transfer
// that does not exist.
var ErrCaseNotFound = domain.ErrCaseNotFound

// TransactionStore is the record store the engine consumes.
type TransactionStore interface {
	TransactionsByCase(ctx context.Context, ackNo string) ([]domain.Transaction, error)
	TransactionsMissingRegion(ctx context.Context, ackNo string) ([]domain.Transaction, error)
	KnownRegionCount(ctx context.Context, ackNo string) (int64, error)
	BatchUpdateRegions(ctx context.Context, updates []domain.RegionUpdate) error
	UpdateKYC(ctx context.Context, update domain.KYCUpdate) error
	HeldTransactions(ctx context.Context, ackNo string) ([]domain.HeldTransaction, error)
	RegionTransactions(ctx context.Context, ackNo, region string, page, perPage int) (*domain.RegionTransactionPage, error)
	CaseIDs(ctx context.Context) ([]string, error)
	DeleteCase(ctx context.Context, ackNo string) error
}

// AnalyticsStore provides the cross-case ingestion overview.
type AnalyticsStore interface {
	Analytics(ctx context.Context) (*domain.Analytics, error)
}

// RegionResolver maps a branch code to a region name, never failing.
type RegionResolver interface {
	Resolve(code string) string
}

// CaseService exposes the fund-trail engine over the record store: tree
// reconstruction, region summaries, and the officer-facing case operations.
type CaseService struct {
	store     TransactionStore
	analytics AnalyticsStore
	resolver  RegionResolver
	workers   int
	logger    *zap.Logger
}

// NewCaseService wires the case service. workers bounds the concurrent
// branch-code resolutions of the summary resolve phase.
func NewCaseService(
	store TransactionStore,
	analytics AnalyticsStore,
	resolver RegionResolver,
	workers int,
	logger *zap.Logger,
) *CaseService {
	if workers <= 0 {
		workers = 200
	}
	return &CaseService{
		store:     store,
		analytics: analytics,
		resolver:  resolver,
		workers:   workers,
		logger:    logger,
	}
}

// CaseGraph rebuilds the fund-flow hierarchy for a case. A case with no
// transactions yields a root with zero children, not an error.
func (s *CaseService) CaseGraph(ctx context.Context, ackNo string) (*domain.TreeNode, error) {
	transactions, err := s.store.TransactionsByCase(ctx, ackNo)
	if err != nil {
		return nil, fmt.Errorf("failed to load case transactions: %w", err)
	}

	result := flow.BuildHierarchy(transactions)
	if result.OrphanCount > 0 {
		s.logger.Warn("dropped orphan edges while building hierarchy",
			zap.String("ack_no", ackNo),
			zap.Int("orphans", result.OrphanCount),
		)
	}
	return result.Root, nil
}

// SummarizeByRegion produces the region-grouped summary for a case, in the
// fixed macro-region display order.
//
// The resolve phase runs only when the case has no transaction with a known
// region. Once at least one region is known, newly added unresolved codes
// are not resolved again here; that stale-skip behavior is part of the
// observable contract.
func (s *CaseService) SummarizeByRegion(ctx context.Context, ackNo string) ([]domain.RegionSummary, error) {
	known, err := s.store.KnownRegionCount(ctx, ackNo)
	if err != nil {
		return nil, fmt.Errorf("region summary failed: %w", err)
	}
	if known == 0 {
		if err := s.resolveCaseRegions(ctx, ackNo); err != nil {
			return nil, fmt.Errorf("region summary failed: %w", err)
		}
	}

	transactions, err := s.store.TransactionsByCase(ctx, ackNo)
	if err != nil {
		return nil, fmt.Errorf("region summary failed: %w", err)
	}

	summaries := geo.GroupByRegion(transactions)
	return geo.OrderSummaries(summaries), nil
}

// resolveCaseRegions resolves every distinct unresolved branch code of a
// case concurrently and writes the outcome back in one batch. Individual
// resolution failures degrade to the Unknown sentinel and never abort the
// siblings; the pool fully drains before the write.
func (s *CaseService) resolveCaseRegions(ctx context.Context, ackNo string) error {
	unresolved, err := s.store.TransactionsMissingRegion(ctx, ackNo)
	if err != nil {
		return fmt.Errorf("failed to load unresolved transactions: %w", err)
	}
	if len(unresolved) == 0 {
		return nil
	}

	codes := make(map[string]struct{})
	for i := range unresolved {
		codes[unresolved[i].BranchCode] = struct{}{}
	}

	var mu sync.Mutex
	resolved := make(map[string]string, len(codes))

	g := &errgroup.Group{}
	g.SetLimit(s.workers)
	for code := range codes {
		code := code
		g.Go(func() error {
			region := s.resolver.Resolve(code)
			mu.Lock()
			resolved[code] = region
			mu.Unlock()
			return nil
		})
	}
	// Tasks never return errors; Wait is only the drain point.
	_ = g.Wait()

	title := cases.Title(language.English)
	updates := make([]domain.RegionUpdate, 0, len(unresolved))
	for i := range unresolved {
		t := &unresolved[i]
		region, ok := resolved[t.BranchCode]
		if !ok {
			continue
		}
		updates = append(updates, domain.RegionUpdate{
			TransactionID: t.ID,
			Region:        title.String(region),
		})
	}

	if err := s.store.BatchUpdateRegions(ctx, updates); err != nil {
		return fmt.Errorf("failed to persist resolved regions: %w", err)
	}

	s.logger.Info("resolved case regions",
		zap.String("ack_no", ackNo),
		zap.Int("codes", len(codes)),
		zap.Int("transactions", len(updates)),
	)
	return nil
}

// HeldTransactions lists the put-on-hold records of a case.
func (s *CaseService) HeldTransactions(ctx context.Context, ackNo string) ([]domain.HeldTransaction, error) {
	held, err := s.store.HeldTransactions(ctx, ackNo)
	if err != nil {
		return nil, fmt.Errorf("failed to load held transactions: %w", err)
	}
	return held, nil
}

// RegionTransactions returns one page of a case's transactions in a region.
func (s *CaseService) RegionTransactions(ctx context.Context, ackNo, region string, page, perPage int) (*domain.RegionTransactionPage, error) {
	result, err := s.store.RegionTransactions(ctx, ackNo, region, page, perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to load region transactions: %w", err)
	}
	return result, nil
}

// SaveKYC records officer-entered identity details on the transaction
// matching the transfer id.
func (s *CaseService) SaveKYC(ctx context.Context, update domain.KYCUpdate) error {
	if err := s.store.UpdateKYC(ctx, update); err != nil {
		return err
	}
	s.logger.Info("saved kyc annotation",
		zap.String("transfer_id", update.TransferID),
		zap.String("aadhar", crypto.MaskAadhar(update.Aadhar)),
		zap.String("mobile", crypto.MaskMobile(update.Mobile)),
	)
	return nil
}

// CaseIDs lists the acknowledgement numbers known to the store.
func (s *CaseService) CaseIDs(ctx context.Context) ([]string, error) {
	ids, err := s.store.CaseIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return ids, nil
}

// DeleteCase purges a case and its owning upload batches.
func (s *CaseService) DeleteCase(ctx context.Context, ackNo string) error {
	return s.store.DeleteCase(ctx, ackNo)
}

// Analytics returns the cross-case ingestion overview.
func (s *CaseService) Analytics(ctx context.Context) (*domain.Analytics, error) {
	out, err := s.analytics.Analytics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute analytics: %w", err)
	}
	return out, nil
}
