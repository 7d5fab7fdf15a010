package store

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec is an interface for encoding and decoding data.
// It is used to abstract away the underlying serialization format.
// This allows for flexibility in choosing the serialization format without changing the implementation of the store.
type Codec interface {
	// Marshal encodes the given value into a byte slice.
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes the given byte slice into the provided value.
	Unmarshal(data []byte, v any) error
}

// DefaultCodec is MessagePack.
var DefaultCodec Codec = msgpackCodec{}

// CodecByName returns the codec registered under name. An empty name selects [DefaultCodec].
// JSON is slower and larger, but makes the database readable with generic bbolt tooling.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "msgpack":
		return DefaultCodec, nil
	case "json":
		return jsonCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q (expected msgpack or json)", name)
}

type msgpackCodec struct{}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Unmarshal(b []byte, v any) error {
	return msgpack.Unmarshal(b, v)
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(b []byte, v any) error {
	return json.Unmarshal(b, v)
}
