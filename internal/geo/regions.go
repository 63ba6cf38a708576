package geo

import (
	"sort"

	"github.com/fundtrail/trace-service/internal/domain"
)

// Macro-region membership for display bucketing. A region appearing in none
// of these goes to the trailing Others bucket.
var (
	southernRegions = []string{
		"Tamil Nadu", "Kerala", "Karnataka", "Andhra Pradesh", "Telangana",
		"Puducherry", "Lakshadweep", "Andaman and Nicobar Islands",
	}
	westernRegions = []string{
		"Maharashtra", "Gujarat", "Rajasthan", "Goa", "Daman and Diu",
		"Dadra and Nagar Haveli",
	}
	easternRegions = []string{
		"West Bengal", "Odisha", "Bihar", "Jharkhand", "Assam",
		"Arunachal Pradesh", "Nagaland", "Manipur", "Mizoram", "Tripura",
		"Meghalaya", "Sikkim",
	}
	northernRegions = []string{
		"Jammu and Kashmir", "Himachal Pradesh", "Punjab", "Chandigarh",
		"Uttarakhand", "Haryana", "Delhi", "Uttar Pradesh", "Madhya Pradesh",
		"Chhattisgarh", "Ladakh",
	}
)

// southernOrder is the fixed display order for the Southern bucket. This is
// a presentation convention, not a data property.
var southernOrder = southernRegions

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func southernRank(region string) int {
	for i, v := range southernOrder {
		if v == region {
			return i
		}
	}
	return len(southernOrder)
}

// OrderSummaries arranges region summaries into the fixed display order:
// Southern first (by the fixed state list, ties by descending amount), then
// Western, Eastern and Northern each by descending amount, then everything
// that matched no bucket.
func OrderSummaries(summaries []domain.RegionSummary) []domain.RegionSummary {
	var southern, western, eastern, northern, others []domain.RegionSummary

	for _, s := range summaries {
		switch {
		case contains(southernRegions, s.Region):
			southern = append(southern, s)
		case contains(westernRegions, s.Region):
			western = append(western, s)
		case contains(easternRegions, s.Region):
			eastern = append(eastern, s)
		case contains(northernRegions, s.Region):
			northern = append(northern, s)
		default:
			others = append(others, s)
		}
	}

	sort.SliceStable(southern, func(i, j int) bool {
		ri, rj := southernRank(southern[i].Region), southernRank(southern[j].Region)
		if ri != rj {
			return ri < rj
		}
		return southern[i].TotalAmount > southern[j].TotalAmount
	})
	byAmountDesc := func(bucket []domain.RegionSummary) {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].TotalAmount > bucket[j].TotalAmount
		})
	}
	byAmountDesc(western)
	byAmountDesc(eastern)
	byAmountDesc(northern)
	byAmountDesc(others)

	out := make([]domain.RegionSummary, 0, len(summaries))
	out = append(out, southern...)
	out = append(out, western...)
	out = append(out, eastern...)
	out = append(out, northern...)
	out = append(out, others...)
	return out
}

// GroupByRegion folds transactions with a known region into per-region
// summaries: count, amount sum, and the sorted set of distinct branch codes.
// Output order is unspecified; OrderSummaries imposes the display order.
func GroupByRegion(transactions []domain.Transaction) []domain.RegionSummary {
	type bucket struct {
		count  int
		amount float64
		codes  map[string]struct{}
	}
	buckets := make(map[string]*bucket)
	var order []string

	for i := range transactions {
		t := &transactions[i]
		if !t.KnownRegion() {
			continue
		}
		region := *t.Region
		b, ok := buckets[region]
		if !ok {
			b = &bucket{codes: make(map[string]struct{})}
			buckets[region] = b
			order = append(order, region)
		}
		b.count++
		b.amount += t.Amount
		if t.BranchCode != "" {
			b.codes[t.BranchCode] = struct{}{}
		}
	}

	summaries := make([]domain.RegionSummary, 0, len(order))
	for _, region := range order {
		b := buckets[region]
		codes := make([]string, 0, len(b.codes))
		for c := range b.codes {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		summaries = append(summaries, domain.RegionSummary{
			Region:            region,
			TotalTransactions: b.count,
			TotalAmount:       b.amount,
			BranchCodes:       codes,
		})
	}
	return summaries
}
