package codec

import "github.com/fxamacker/cbor/v2"

// CBOR encodes with fxamacker/cbor. Times are written as RFC 3339 strings so
// a Summary read back from a shared Redis compares equal to the original.
// Build it with NewCBOR; the zero value has no modes and panics.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

type CBOROptions struct {
	// Deterministic selects RFC 8949 core deterministic encoding: equal
	// values always produce equal bytes.
	Deterministic bool
	// MaxElements caps array length and map size on decode. 0 keeps the
	// library default (131072).
	MaxElements int
}

func NewCBOR[V any](opts CBOROptions) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if opts.Deterministic {
		eo = cbor.CoreDetEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}

	var do cbor.DecOptions
	if opts.MaxElements > 0 {
		do.MaxArrayElements = opts.MaxElements
		do.MaxMapPairs = opts.MaxElements
	}
	dm, err := do.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR panics if opts are rejected by the library.
func MustCBOR[V any](opts CBOROptions) CBOR[V] {
	c, err := NewCBOR[V](opts)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
