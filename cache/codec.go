package cache

import (
	"github.com/bytedance/sonic"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts cached values to and from their stored byte form. The codec
// runs before compression on writes and after decompression on reads.
type Codec interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, dest any) error
}

// JSONCodec serializes values as JSON via sonic. It is the default codec:
// payloads stay human-inspectable in the cache and compress well.
type JSONCodec struct{}

func (JSONCodec) Marshal(value any) ([]byte, error) {
	return sonic.Marshal(value)
}

func (JSONCodec) Unmarshal(data []byte, dest any) error {
	return sonic.Unmarshal(data, dest)
}

// MsgpackCodec serializes values as msgpack, trading inspectability for
// smaller uncompressed payloads.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(value any) ([]byte, error) {
	return msgpack.Marshal(value)
}

func (MsgpackCodec) Unmarshal(data []byte, dest any) error {
	return msgpack.Unmarshal(data, dest)
}
