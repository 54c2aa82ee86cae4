package meshv1

import (
	"reflect"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

// CodecName is the Connect codec name; requests use the
// application/msgpack content type.
const CodecName = "msgpack"

// Codec implements connect.Codec with MessagePack.
type Codec struct{}

var handle = newHandle()

func newHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	h.RawToString = true
	h.SignedInteger = true
	h.MapType = reflect.TypeOf(map[string]any(nil))
	return h
}

// Name implements connect.Codec.
func (Codec) Name() string { return CodecName }

// Marshal implements connect.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	var b []byte
	if err := codec.NewEncoderBytes(&b, handle).Encode(v); err != nil {
		return nil, err
	}
	return b, nil
}

// Unmarshal implements connect.Codec.
func (Codec) Unmarshal(data []byte, v any) error {
	return codec.NewDecoderBytes(data, handle).Decode(v)
}
