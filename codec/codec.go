// Package codec turns cached values into bytes and back. Every value read from
// a Store is decoded fresh, so callers never share a mutable value through the
// cache.
package codec

import (
	"fmt"
	"strings"
)

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

const (
	NameJSON    = "json"
	NameCBOR    = "cbor"
	NameMsgpack = "msgpack"
)

// ForName returns the codec registered under name ("json", "cbor", "msgpack").
// An empty name selects JSON.
func ForName[V any](name string) (Codec[V], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameJSON:
		return JSON[V]{}, nil
	case NameCBOR:
		c, err := NewCBOR[V](CBOROptions{})
		if err != nil {
			return nil, err
		}
		return c, nil
	case NameMsgpack:
		return Msgpack[V]{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
