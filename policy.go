package carecache

import "time"

// EntityPolicy is one row of the per-entity caching policy table: how long
// the tiers hold an entity, what edge-cache directives its reads get, and
// which tag prefixes a write to it invalidates. Keeping the numbers in one
// table (rather than inlined at call sites) keeps warming and invalidation
// policy auditable.
type EntityPolicy struct {
	// TTL is the tier retention used by Set and by the warmer.
	TTL time.Duration

	// Edge-cache directives, in seconds. Zero omits the directive.
	MaxAge               int
	SMaxAge              int
	StaleWhileRevalidate int

	// Private marks responses that must not be stored by shared caches
	// (patient-identifiable data). Forces Cache-Control: private and
	// suppresses s-maxage.
	Private bool

	// Tags are the key prefixes invalidated after a successful mutation
	// of this entity. An entity that must be invalidated under two tags
	// lists both.
	Tags []string
}

// DefaultPolicies is the stock policy table. Low-churn reference data gets
// long TTLs; volatile and patient-scoped data gets short ones.
var DefaultPolicies = map[string]EntityPolicy{
	"providers": {
		TTL: time.Hour, MaxAge: 300, SMaxAge: 3600, StaleWhileRevalidate: 600,
		Tags: []string{"providers"},
	},
	"locations": {
		TTL: 6 * time.Hour, MaxAge: 600, SMaxAge: 21600, StaleWhileRevalidate: 1200,
		Tags: []string{"locations"},
	},
	"payers": {
		TTL: 12 * time.Hour, MaxAge: 600, SMaxAge: 43200, StaleWhileRevalidate: 1200,
		Tags: []string{"payers"},
	},
	"claims": {
		TTL: 5 * time.Minute, MaxAge: 30, Private: true,
		Tags: []string{"claims", "eligibility"},
	},
	"patients": {
		TTL: 10 * time.Minute, MaxAge: 0, Private: true,
		Tags: []string{"patients"},
	},
	"appointments": {
		TTL: 2 * time.Minute, MaxAge: 15, Private: true,
		Tags: []string{"appointments"},
	},
	"eligibility": {
		TTL: 5 * time.Minute, MaxAge: 30, Private: true,
		Tags: []string{"eligibility"},
	},
}

// fallbackPolicy applies to entity types missing from the table:
// short-lived, private, tagged by entity name only.
var fallbackPolicy = EntityPolicy{TTL: 5 * time.Minute, Private: true}

// PolicyFor returns the policy for entity, falling back to a conservative
// default with the entity name as its only tag.
func PolicyFor(entity string) EntityPolicy {
	if p, ok := DefaultPolicies[entity]; ok {
		return p
	}
	p := fallbackPolicy
	p.Tags = []string{entity}
	return p
}
