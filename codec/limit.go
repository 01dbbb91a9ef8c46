package codec

import (
	"errors"
	"fmt"
)

var ErrTooLarge = errors.New("codec: payload too large")

// Limit refuses to decode payloads over MaxDecode bytes, which matters when
// the provider is a Redis database other clients also write to. Encoding is
// not limited. MaxDecode <= 0 turns the check off.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxDecode int
}

// WithLimit wraps c when max > 0 and returns c unchanged otherwise.
func WithLimit[V any](c Codec[V], max int) Codec[V] {
	if max <= 0 {
		return c
	}
	return Limit[V]{Inner: c, MaxDecode: max}
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
