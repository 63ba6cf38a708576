package geo

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestResolver(t *testing.T, handler http.Handler) (*Resolver, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewResolver(NewRegionCache(), srv.URL, 2*time.Second, zap.NewNop()), srv
}

func TestResolveDistrictPrefixWithoutNetwork(t *testing.T) {
	var hits int32
	resolver, _ := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))

	// Prefix "27" at positions 5-6 maps straight from the district table.
	assert.Equal(t, "Maharashtra", resolver.Resolve("SBIN27MH0001"))
	assert.Equal(t, "Kerala", resolver.Resolve("HDFC32KL0042"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits), "table hits must not reach the network")
}

func TestResolveShortCodeSkipsCache(t *testing.T) {
	var hits int32
	resolver, _ := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))

	assert.Equal(t, "Unknown", resolver.Resolve("SBIN"))
	assert.Equal(t, "Unknown", resolver.Resolve(""))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	assert.Equal(t, 0, resolver.cache.Len(), "short codes must not be memoized")
}

func TestResolveExternalLookup(t *testing.T) {
	var hits int32
	resolver, _ := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		require.Equal(t, "/SBIN99XX0001", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"STATE": "Goa", "BANK": "SBI"}`))
	}))

	// Prefix "99" is not in the district table; the external service answers.
	assert.Equal(t, "Goa", resolver.Resolve("SBIN99XX0001"))
	assert.Equal(t, "Goa", resolver.Resolve("SBIN99XX0001"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second resolve must come from the cache")
}

func TestResolveFailureIsMemoized(t *testing.T) {
	var hits int32
	resolver, _ := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))

	assert.Equal(t, "Unknown", resolver.Resolve("SBIN99XX0404"))
	assert.Equal(t, "Unknown", resolver.Resolve("SBIN99XX0404"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "failed lookups must not be retried")
}

func TestResolveMalformedAndEmptyBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"STATE": `},
		{"empty state", `{"STATE": ""}`},
		{"missing state", `{"BANK": "SBI"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, _ := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			assert.Equal(t, "Unknown", resolver.Resolve("SBIN99XX0001"))
		})
	}
}

func TestResolvePrefersCacheOverTable(t *testing.T) {
	cache := NewRegionCache()
	cache.Put("SBIN27MH0001", "Cached Value")
	resolver := NewResolver(cache, "http://127.0.0.1:0", time.Second, zap.NewNop())

	assert.Equal(t, "Cached Value", resolver.Resolve("SBIN27MH0001"))
}
