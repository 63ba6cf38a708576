package geo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fundtrail/trace-service/internal/domain"
	"go.uber.org/zap"
)

// districtRegions maps the two-character district prefix of a branch code
// (positions 5-6) to its state or union territory.
var districtRegions = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"03": "Punjab",
	"04": "Chandigarh",
	"05": "Uttarakhand",
	"06": "Haryana",
	"07": "Delhi",
	"08": "Rajasthan",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"11": "Sikkim",
	"12": "Arunachal Pradesh",
	"13": "Nagaland",
	"14": "Manipur",
	"15": "Mizoram",
	"16": "Tripura",
	"17": "Meghalaya",
	"18": "Assam",
	"19": "West Bengal",
	"20": "Jharkhand",
	"21": "Odisha",
	"22": "Chhattisgarh",
	"23": "Madhya Pradesh",
	"24": "Gujarat",
	"25": "Daman and Diu",
	"26": "Dadra and Nagar Haveli",
	"27": "Maharashtra",
	"28": "Andhra Pradesh",
	"29": "Karnataka",
	"30": "Goa",
	"31": "Lakshadweep",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"34": "Puducherry",
	"35": "Andaman and Nicobar Islands",
	"36": "Telangana",
	"37": "Andhra Pradesh",
	"38": "Ladakh",
}

// Resolver maps bank branch codes to region names. Lookup order: injected
// cache by full code, static district-prefix table, then a best-effort
// external service keyed by the full code. It never returns an error; every
// failure collapses to RegionUnknown and is memoized.
type Resolver struct {
	cache   *RegionCache
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// NewResolver creates a resolver backed by the given cache. baseURL is the
// external branch-code lookup service; timeout bounds each single lookup
// (not the caller's whole request).
func NewResolver(cache *RegionCache, baseURL string, timeout time.Duration, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{
		cache:   cache,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger,
	}
}

// lookupResponse is the subset of the external service's payload we read.
type lookupResponse struct {
	State string `json:"STATE"`
}

// Resolve returns the region for a branch code, or RegionUnknown. Codes
// shorter than six characters carry no district prefix and short-circuit
// without touching the cache.
func (r *Resolver) Resolve(code string) string {
	if len(code) < 6 {
		return domain.RegionUnknown
	}

	if region, ok := r.cache.Get(code); ok {
		return region
	}

	if region, ok := districtRegions[code[4:6]]; ok {
		r.cache.Put(code, region)
		return region
	}

	region := r.lookup(code)
	r.cache.Put(code, region)
	return region
}

// lookup queries the external service. Any error, timeout, non-200 status
// or missing field degrades to RegionUnknown.
func (r *Resolver) lookup(code string) string {
	resp, err := r.client.Get(fmt.Sprintf("%s/%s", r.baseURL, code))
	if err != nil {
		r.logger.Warn("branch code lookup failed",
			zap.String("branch_code", code),
			zap.Error(err),
		)
		return domain.RegionUnknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("branch code lookup returned non-200",
			zap.String("branch_code", code),
			zap.Int("status", resp.StatusCode),
		)
		return domain.RegionUnknown
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		r.logger.Warn("branch code lookup returned malformed body",
			zap.String("branch_code", code),
			zap.Error(err),
		)
		return domain.RegionUnknown
	}

	if payload.State == "" {
		return domain.RegionUnknown
	}
	return payload.State
}
