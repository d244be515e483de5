package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack serializes with vmihailenco/msgpack/v5: compact and fast, the
// right pick for high-volume entries like warmed collections. Mind the
// struct tag differences vs JSON; use `msgpack:"name"` tags for explicit
// control. The zero value is ready to use.
type Msgpack[V any] struct{}

func (Msgpack[V]) Encode(v V) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}
