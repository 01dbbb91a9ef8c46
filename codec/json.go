package codec

import "github.com/goccy/go-json"

// JSON is the default codec. Payloads from the REST API are JSON already, so
// this keeps cached bytes readable when inspecting a shared provider.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
