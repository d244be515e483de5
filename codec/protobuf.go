package codec

import "google.golang.org/protobuf/proto"

// Protobuf serializes proto.Message values. A constructor for the concrete
// message type is required because decode needs a fresh instance, e.g.
// NewProtobuf(func() *claimspb.Claim { return &claimspb.Claim{} }).
type Protobuf[T proto.Message] struct {
	newMsg func() T
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{newMsg: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.newMsg()
	err := proto.Unmarshal(b, m)
	return m, err
}
