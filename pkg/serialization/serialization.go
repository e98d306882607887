// Package serialization encodes event payloads for outbound observers.
package serialization

import (
	"bytes"
	"fmt"
	"io"
)

const (
	// JSONType represents the serialization type for JSON format.
	JSONType = "json"

	// GobType represents the serialization type for Gob format.
	GobType = "gob"
)

// Decoder and Encoder are the interface for serialization.
type Decoder interface {
	Decode(v any) error
}

// Encoder and Decoder are the interface for serialization.
type Encoder interface {
	Encode(v any) error
}

// Codec turns values into self-contained byte slices and back.
type Codec struct {
	name       string
	newEncoder func(io.Writer) Encoder
	newDecoder func(io.Reader) Decoder
}

// NewCodec returns the codec registered under name.
func NewCodec(name string) (*Codec, error) {
	switch name {
	case JSONType:
		return &Codec{name: name, newEncoder: JSONEncoder, newDecoder: JSONDecoder}, nil
	case GobType:
		return &Codec{name: name, newEncoder: GobEncoder, newDecoder: GobDecoder}, nil
	default:
		return nil, fmt.Errorf("unsupported serialization type: %s", name)
	}
}

// Name returns the codec type.
func (c *Codec) Name() string {
	return c.name
}

// Marshal encodes v into a new byte slice.
func (c *Codec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.newEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", c.name, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v.
func (c *Codec) Unmarshal(data []byte, v any) error {
	if err := c.newDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", c.name, err)
	}
	return nil
}
