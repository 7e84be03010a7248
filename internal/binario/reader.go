package binario

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxBytesLen bounds length-prefixed fields so that a corrupted or hostile
// length cannot force a huge allocation.
const MaxBytesLen = 16 << 20

var ErrTooLong = errors.New("length exceeds limit")

type Reader struct {
	byteOrder binary.ByteOrder
	reader    io.Reader
	buf       [8]byte
}

func NewReader(reader io.Reader, byteOrder binary.ByteOrder) *Reader {
	return &Reader{
		reader:    reader,
		byteOrder: byteOrder,
	}
}

// read fills the first n bytes of the scratch buffer. A partial read is
// reported as io.ErrUnexpectedEOF, a read of nothing as io.EOF.
func (r *Reader) read(n int) ([]byte, error) {
	bs := r.buf[:n]
	if _, err := io.ReadFull(r.reader, bs); err != nil {
		return nil, err
	}

	return bs, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	bs, err := r.read(1)
	if err != nil {
		return 0, err
	}

	return bs[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadUint8()
	if err != nil {
		return false, err
	}

	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool value: %d", b)
	}
}

func (r *Reader) ReadUint16() (uint16, error) {
	bs, err := r.read(2)
	if err != nil {
		return 0, err
	}

	return r.byteOrder.Uint16(bs), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	bs, err := r.read(4)
	if err != nil {
		return 0, err
	}

	return r.byteOrder.Uint32(bs), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	bs, err := r.read(8)
	if err != nil {
		return 0, err
	}

	return r.byteOrder.Uint64(bs), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadBytes() ([]byte, error) {
	length, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	if length > MaxBytesLen {
		return nil, fmt.Errorf("%w: %d", ErrTooLong, length)
	}

	bs := make([]byte, length)
	if _, err := io.ReadFull(r.reader, bs); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return nil, err
	}

	return bs, nil
}

func (r *Reader) ReadString() (string, error) {
	bs, err := r.ReadBytes()
	return string(bs), err
}

func (r *Reader) ReadVarUint() (uint64, error) {
	var value uint64
	var shift uint

	for i := 0; ; i++ {
		if i == binary.MaxVarintLen64 {
			return 0, errors.New("varint overflows 64 bits")
		}

		b, err := r.ReadUint8()
		if err != nil {
			return 0, err
		}

		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}

		shift += 7
	}

	return value, nil
}
