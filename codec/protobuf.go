package codec

import "google.golang.org/protobuf/proto"

// Protobuf stores generated messages in their wire format. Encoding is
// deterministic so the same message always yields the same cached bytes.
type Protobuf[T proto.Message] struct {
	newMsg func() T
	mo     proto.MarshalOptions
}

// NewProtobuf takes a constructor for empty messages, e.g.
// func() *pb.Summary { return new(pb.Summary) }.
func NewProtobuf[T proto.Message](newMsg func() T) Protobuf[T] {
	return Protobuf[T]{newMsg: newMsg, mo: proto.MarshalOptions{Deterministic: true}}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) { return c.mo.Marshal(v) }

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.newMsg()
	if err := proto.Unmarshal(b, m); err != nil {
		var zero T
		return zero, err
	}
	return m, nil
}
