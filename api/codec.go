// Package api defines the messages of the evaluation service and the CBOR
// codec they travel in. The same codec serves Connect handlers and gRPC
// clients.
package api

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CodecName is the content subtype of service messages
// (application/grpc+cbor, application/cbor).
const CodecName = "cbor"

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("api: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Codec encodes messages as canonical CBOR. It satisfies both
// connect.Codec and grpc's encoding.Codec.
type Codec struct{}

// Name returns CodecName.
func (Codec) Name() string { return CodecName }

// Marshal encodes v.
func (Codec) Marshal(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

// Unmarshal decodes data into v.
func (Codec) Unmarshal(data []byte, v any) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("api: unmarshal %T: %w", v, err)
	}
	return nil
}
