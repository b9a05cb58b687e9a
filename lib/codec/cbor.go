// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// MaxArchiveItems bounds any single array or map in decoded data. An
// archive holds one element per committed message, so this is far
// above anything a real run produces.
const MaxArchiveItems = 1 << 20

// Encoder writes a stream of CBOR items.
type Encoder = cbor.Encoder

// Decoder reads a stream of CBOR items.
type Decoder = cbor.Decoder

type modes struct {
	encode cbor.EncMode
	decode cbor.DecMode
}

var loadModes = sync.OnceValues(func() (modes, error) {
	encodeOptions := cbor.CoreDetEncOptions()
	encodeOptions.Time = cbor.TimeRFC3339Nano
	encode, err := encodeOptions.EncMode()
	if err != nil {
		return modes{}, fmt.Errorf("codec: building encoder: %w", err)
	}

	// Unknown fields are ignored so an older binary can replay a newer
	// archive. Untyped maps decode as map[string]any like encoding/json.
	decode, err := cbor.DecOptions{
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		MaxArrayElements: MaxArchiveItems,
		MaxMapPairs:      MaxArchiveItems,
	}.DecMode()
	if err != nil {
		return modes{}, fmt.Errorf("codec: building decoder: %w", err)
	}
	return modes{encode: encode, decode: decode}, nil
})

// Marshal encodes value with Core Deterministic Encoding.
func Marshal(value any) ([]byte, error) {
	current, err := loadModes()
	if err != nil {
		return nil, err
	}
	return current.encode.Marshal(value)
}

// Unmarshal decodes data into target.
func Unmarshal(data []byte, target any) error {
	current, err := loadModes()
	if err != nil {
		return err
	}
	return current.decode.Unmarshal(data, target)
}

// NewEncoder returns a deterministic encoder writing to w.
func NewEncoder(w io.Writer) (*Encoder, error) {
	current, err := loadModes()
	if err != nil {
		return nil, err
	}
	return current.encode.NewEncoder(w), nil
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) (*Decoder, error) {
	current, err := loadModes()
	if err != nil {
		return nil, err
	}
	return current.decode.NewDecoder(r), nil
}
