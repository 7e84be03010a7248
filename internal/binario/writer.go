package binario

import (
	"encoding/binary"
	"fmt"
	"io"
)

type Writer struct {
	writer    io.Writer
	byteOrder binary.ByteOrder
	buf       [8]byte
}

func NewWriter(writer io.Writer, byteOrder binary.ByteOrder) *Writer {
	return &Writer{
		writer:    writer,
		byteOrder: byteOrder,
	}
}

func (w *Writer) write(bs []byte) error {
	_, err := w.writer.Write(bs)
	return err
}

func (w *Writer) WriteUint8(value uint8) error {
	w.buf[0] = value
	return w.write(w.buf[:1])
}

func (w *Writer) WriteBool(value bool) error {
	if value {
		return w.WriteUint8(1)
	}

	return w.WriteUint8(0)
}

func (w *Writer) WriteUint16(value uint16) error {
	w.byteOrder.PutUint16(w.buf[:2], value)
	return w.write(w.buf[:2])
}

func (w *Writer) WriteUint32(value uint32) error {
	w.byteOrder.PutUint32(w.buf[:4], value)
	return w.write(w.buf[:4])
}

func (w *Writer) WriteUint64(value uint64) error {
	w.byteOrder.PutUint64(w.buf[:8], value)
	return w.write(w.buf[:8])
}

func (w *Writer) WriteInt32(value int32) error {
	return w.WriteUint32(uint32(value))
}

func (w *Writer) WriteInt64(value int64) error {
	return w.WriteUint64(uint64(value))
}

func (w *Writer) WriteBytes(value []byte) error {
	if len(value) > MaxBytesLen {
		return fmt.Errorf("%w: %d", ErrTooLong, len(value))
	}

	if err := w.WriteUint32(uint32(len(value))); err != nil {
		return err
	}

	return w.write(value)
}

func (w *Writer) WriteString(value string) error {
	return w.WriteBytes([]byte(value))
}

func (w *Writer) WriteVarUint(value uint64) error {
	for value >= 0x80 {
		if err := w.WriteUint8(uint8(value) | 0x80); err != nil {
			return err
		}

		value >>= 7
	}

	return w.WriteUint8(uint8(value))
}
