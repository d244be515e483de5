package carecache

import (
	"context"

	"github.com/oakmed/carecache/codec"
)

// Get reads and JSON-decodes the value under key. A decode failure -
// corrupt payload or a schema change since the write - is a plain miss,
// never an error; the offending entry is removed so the next read refills
// from the source of truth.
func Get[V any](ctx context.Context, c ByteCache, key string, opts Options) (V, bool) {
	return GetWith[V](ctx, c, codec.JSON[V]{}, key, opts)
}

// GetWith is Get with an explicit serialization contract.
func GetWith[V any](ctx context.Context, c ByteCache, cd codec.Codec[V], key string, opts Options) (V, bool) {
	var zero V
	b, ok := c.GetBytes(ctx, key, opts)
	if !ok {
		return zero, false
	}
	v, err := cd.Decode(b)
	if err != nil {
		// self-heal: a payload we cannot read must not linger
		c.Delete(ctx, key, opts.Namespace)
		if sh, ok := c.(interface{ selfHeal(key, ns string) }); ok {
			sh.selfHeal(key, opts.Namespace)
		}
		return zero, false
	}
	return v, true
}

// Set JSON-encodes value and writes it through the enabled tiers. Returns
// false when encoding fails or no requested tier accepted the write.
func Set[V any](ctx context.Context, c ByteCache, key string, value V, opts Options) bool {
	return SetWith(ctx, c, codec.JSON[V]{}, key, value, opts)
}

// SetWith is Set with an explicit serialization contract.
func SetWith[V any](ctx context.Context, c ByteCache, cd codec.Codec[V], key string, value V, opts Options) bool {
	b, err := cd.Encode(value)
	if err != nil {
		return false
	}
	return c.SetBytes(ctx, key, b, opts)
}
