// Package message defines the binary message contract shared by every
// connection in the mesh: a stable 16-bit identity per message type, an
// encode/decode pair that reads and writes fields in a fixed order, and the
// frame layout used on the wire.
//
// A frame is the big-endian message id followed by the payload produced by
// Encode. Framing of whole frames is left to the transport.
package message

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/maxpoletaev/gamemesh/internal/binario"
)

// ByteOrder is used for the frame header and every payload field.
var ByteOrder = binary.BigEndian

// ID is the stable identity of a message type. An ID is never reused for a
// different payload shape.
type ID uint16

func (id ID) String() string {
	return fmt.Sprintf("0x%04X", uint16(id))
}

// Meta is a structured record that knows how to write and read its own fields.
// Messages are Meta values with an identity; list elements are plain Meta.
type Meta interface {
	Encode(w *binario.Writer) error
	Decode(r *binario.Reader) error
}

// Message is a unit of communication between cluster nodes.
type Message interface {
	Meta
	MessageID() ID
}

func NewWriter(w io.Writer) *binario.Writer {
	return binario.NewWriter(w, ByteOrder)
}

func NewReader(r io.Reader) *binario.Reader {
	return binario.NewReader(r, ByteOrder)
}

// Marshal encodes m into a single frame.
func Marshal(m Message) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := NewWriter(buf)

	if err := w.WriteUint16(uint16(m.MessageID())); err != nil {
		return nil, err
	}

	if err := m.Encode(w); err != nil {
		return nil, fmt.Errorf("encode %T: %w", m, err)
	}

	return buf.Bytes(), nil
}

// Name returns a human-readable name of the message type for logs.
func Name(m Message) string {
	if m == nil {
		return "<nil>"
	}

	return fmt.Sprintf("%T", m)
}
