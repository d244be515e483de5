// Package codec defines the serialization contract between cached Go values
// and the byte payloads the tiers store. A failed Decode is modeled by the
// caller as a cache miss, so schema drift between deployments degrades to a
// refill instead of an error.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
