// Package httpcache turns the per-entity policy table into HTTP edge-cache
// behavior: Cache-Control directives on successful reads, and tag
// invalidation after successful writes. The routing layer attaches these
// middlewares; this package never routes.
package httpcache

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/oakmed/carecache"
)

// Invalidator is the slice of the cache surface this package needs.
// Both *carecache.Cache and *carecache.Manager satisfy it.
type Invalidator interface {
	InvalidatePattern(ctx context.Context, pattern, namespace string) bool
}

// Directives are the edge-cache knobs emitted as Cache-Control. All ages
// are seconds; zero omits the directive.
type Directives struct {
	MaxAge               int
	SMaxAge              int
	StaleWhileRevalidate int
	Private              bool
}

// String renders the Cache-Control header value. A private policy with no
// max-age collapses to "private, no-store" - the right default for
// patient-identifiable payloads nobody configured otherwise.
func (d Directives) String() string {
	parts := make([]string, 0, 4)
	if d.Private {
		parts = append(parts, "private")
	} else {
		parts = append(parts, "public")
	}
	if d.MaxAge > 0 {
		parts = append(parts, fmt.Sprintf("max-age=%d", d.MaxAge))
	}
	if d.SMaxAge > 0 && !d.Private {
		parts = append(parts, fmt.Sprintf("s-maxage=%d", d.SMaxAge))
	}
	if d.StaleWhileRevalidate > 0 {
		parts = append(parts, fmt.Sprintf("stale-while-revalidate=%d", d.StaleWhileRevalidate))
	}
	if d.Private && d.MaxAge == 0 {
		parts = append(parts, "no-store")
	}
	return strings.Join(parts, ", ")
}

// FromPolicy lifts an entity policy's edge directives.
func FromPolicy(p carecache.EntityPolicy) Directives {
	return Directives{
		MaxAge:               p.MaxAge,
		SMaxAge:              p.SMaxAge,
		StaleWhileRevalidate: p.StaleWhileRevalidate,
		Private:              p.Private,
	}
}

// EdgeCache builds the middlewares around one cache instance. Constructed
// at bootstrap next to the Manager and handed to the router.
type EdgeCache struct {
	cache     Invalidator
	log       carecache.Logger
	namespace string
}

func New(cache Invalidator, log carecache.Logger) *EdgeCache {
	if log == nil {
		log = carecache.NopLogger{}
	}
	return &EdgeCache{cache: cache, log: log}
}

// WithNamespace returns a copy scoping invalidations to ns.
func (e *EdgeCache) WithNamespace(ns string) *EdgeCache {
	cp := *e
	cp.namespace = ns
	return &cp
}

// EntityHeaders emits the entity's policy-table directives on successful
// GET responses.
func (e *EdgeCache) EntityHeaders(entity string) func(http.Handler) http.Handler {
	return e.CacheHeaders(FromPolicy(carecache.PolicyFor(entity)))
}

// CacheHeaders emits the given directives on successful GET responses.
// Non-GET methods and non-2xx statuses pass through untouched.
func (e *EdgeCache) CacheHeaders(d Directives) func(http.Handler) http.Handler {
	value := d.String()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(&headerWriter{ResponseWriter: w, cacheControl: value}, r)
		})
	}
}

// InvalidateCache watches mutating methods; after a 2xx response has been
// sent it invalidates every tag prefix. This is the only mechanism keeping
// cached reads from going stale after a write. Failures are logged - the
// client response is already gone.
func (e *EdgeCache) InvalidateCache(tags ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status < 200 || rec.status >= 300 {
				return
			}
			go e.invalidate(tags)
		})
	}
}

func (e *EdgeCache) invalidate(tags []string) {
	for _, tag := range tags {
		if !e.cache.InvalidatePattern(context.Background(), tag, e.namespace) {
			e.log.Warn("post-write invalidation failed", carecache.Fields{"tag": tag})
		}
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// headerWriter injects Cache-Control just before a successful status is
// committed, so error responses never advertise cacheability.
type headerWriter struct {
	http.ResponseWriter
	cacheControl string
	wrote        bool
}

func (w *headerWriter) WriteHeader(status int) {
	if !w.wrote {
		w.wrote = true
		if status >= 200 && status < 300 {
			w.Header().Set("Cache-Control", w.cacheControl)
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *headerWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// statusWriter captures the committed status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
