package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/crypto/blake2b"
)

// ErrCorrupt is returned by Decode for blobs that fail the checksum or do
// not parse.
var ErrCorrupt = errors.New("record: corrupt record set")

const (
	codecVersion = 1
	checksumSize = blake2b.Size256
)

var magic = [4]byte{'W', 'S', 'A', 'V'}

// Encode serialises a set as: magic, version, uvarint count, then one
// (key, kind, value-bytes) triple per record in set order, each part
// length-prefixed, followed by a BLAKE2b-256 checksum of everything before it.
func Encode(s *Set) ([]byte, error) {
	w := newWriter()
	w.writeBytes(magic[:])
	w.writeByte(codecVersion)
	w.writeUvarint(uint64(s.Len()))

	var err error
	s.Each(func(key string, v Value) {
		if err != nil {
			return
		}
		payload, perr := encodeValue(v)
		if perr != nil {
			err = fmt.Errorf("encode %q: %w", key, perr)
			return
		}
		w.writeString(key)
		w.writeByte(byte(v.kind))
		w.writeUvarint(uint64(len(payload)))
		w.writeBytes(payload)
	})
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(w.buf)
	w.writeBytes(sum[:])
	return w.buf, nil
}

// Decode parses a blob produced by Encode. Nothing is returned unless the
// whole blob verifies.
func Decode(data []byte) (*Set, error) {
	if len(data) < len(magic)+1+checksumSize {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrCorrupt, len(data))
	}
	body, trailer := data[:len(data)-checksumSize], data[len(data)-checksumSize:]
	sum := blake2b.Sum256(body)
	if !bytes.Equal(sum[:], trailer) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	r := newReader(body)
	head, err := r.readBytes(len(magic))
	if err != nil || !bytes.Equal(head, magic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	version, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}
	count, err := r.readUvarint()
	if err != nil {
		return nil, err
	}

	s := NewSet()
	for i := uint64(0); i < count; i++ {
		key, err := r.readString()
		if err != nil {
			return nil, fmt.Errorf("record %d key: %w", i, err)
		}
		kb, err := r.readByte()
		if err != nil {
			return nil, fmt.Errorf("record %q kind: %w", key, err)
		}
		n, err := r.readUvarint()
		if err != nil {
			return nil, fmt.Errorf("record %q length: %w", key, err)
		}
		payload, err := r.readBytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("record %q value: %w", key, err)
		}
		v, err := decodeValue(Kind(kb), payload)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", key, err)
		}
		s.AddValue(key, v)
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.remaining())
	}
	return s, nil
}

func encodeValue(v Value) ([]byte, error) {
	w := newWriter()
	switch v.kind {
	case KindBool:
		if v.data.(bool) {
			w.writeByte(1)
		} else {
			w.writeByte(0)
		}
	case KindInt:
		w.writeVarint(v.data.(int64))
	case KindUint:
		w.writeUvarint(v.data.(uint64))
	case KindFloat:
		w.writeFloat(v.data.(float64))
	case KindString:
		w.writeBytes([]byte(v.data.(string)))
	case KindBytes:
		w.writeBytes(v.data.([]byte))
	case KindFloats:
		fs := v.data.([]float64)
		w.writeUvarint(uint64(len(fs)))
		for _, f := range fs {
			w.writeFloat(f)
		}
	case KindInts:
		is := v.data.([]int64)
		w.writeUvarint(uint64(len(is)))
		for _, i := range is {
			w.writeVarint(i)
		}
	case KindStrings:
		ss := v.data.([]string)
		w.writeUvarint(uint64(len(ss)))
		for _, s := range ss {
			w.writeString(s)
		}
	default:
		return nil, fmt.Errorf("cannot encode %s value", v.kind)
	}
	return w.buf, nil
}

func decodeValue(kind Kind, payload []byte) (Value, error) {
	r := newReader(payload)
	var v Value
	switch kind {
	case KindBool:
		b, err := r.readByte()
		if err != nil {
			return Value{}, err
		}
		v = Bool(b != 0)
	case KindInt:
		i, err := r.readVarint()
		if err != nil {
			return Value{}, err
		}
		v = Int(i)
	case KindUint:
		u, err := r.readUvarint()
		if err != nil {
			return Value{}, err
		}
		v = Uint(u)
	case KindFloat:
		f, err := r.readFloat()
		if err != nil {
			return Value{}, err
		}
		v = Float(f)
	case KindString:
		return String(string(payload)), nil
	case KindBytes:
		return Bytes(payload), nil
	case KindFloats:
		n, err := r.readCount()
		if err != nil {
			return Value{}, err
		}
		fs := make([]float64, n)
		for i := range fs {
			if fs[i], err = r.readFloat(); err != nil {
				return Value{}, err
			}
		}
		v = Value{kind: KindFloats, data: fs}
	case KindInts:
		n, err := r.readCount()
		if err != nil {
			return Value{}, err
		}
		is := make([]int64, n)
		for i := range is {
			if is[i], err = r.readVarint(); err != nil {
				return Value{}, err
			}
		}
		v = Value{kind: KindInts, data: is}
	case KindStrings:
		n, err := r.readCount()
		if err != nil {
			return Value{}, err
		}
		ss := make([]string, n)
		for i := range ss {
			if ss[i], err = r.readString(); err != nil {
				return Value{}, err
			}
		}
		v = Value{kind: KindStrings, data: ss}
	default:
		return Value{}, fmt.Errorf("%w: unknown kind %d", ErrCorrupt, uint8(kind))
	}
	if r.remaining() != 0 {
		return Value{}, fmt.Errorf("%w: %s value has %d trailing bytes", ErrCorrupt, kind, r.remaining())
	}
	return v, nil
}

// writer appends little-endian and varint fields to a growing buffer.
type writer struct {
	buf []byte
}

func newWriter() *writer {
	return &writer{buf: make([]byte, 0, 256)}
}

func (w *writer) writeByte(b byte)      { w.buf = append(w.buf, b) }
func (w *writer) writeBytes(b []byte)   { w.buf = append(w.buf, b...) }
func (w *writer) writeUvarint(v uint64) { w.buf = binary.AppendUvarint(w.buf, v) }
func (w *writer) writeVarint(v int64)   { w.buf = binary.AppendVarint(w.buf, v) }
func (w *writer) writeFloat(f float64)  { w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(f)) }

// writeString writes a uvarint length followed by the raw UTF-8 bytes.
func (w *writer) writeString(s string) {
	w.writeUvarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// reader consumes fields written by writer. Every read past the end
// reports ErrCorrupt instead of returning zero values.
type reader struct {
	data []byte
	off  int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) remaining() int { return len(r.data) - r.off }

func (r *reader) short(n int) error {
	return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrCorrupt, n, r.off, r.remaining())
}

func (r *reader) readByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, r.short(1)
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, r.short(n)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) readUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.off:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: bad uvarint at offset %d", ErrCorrupt, r.off)
	}
	r.off += n
	return v, nil
}

func (r *reader) readVarint() (int64, error) {
	v, n := binary.Varint(r.data[r.off:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: bad varint at offset %d", ErrCorrupt, r.off)
	}
	r.off += n
	return v, nil
}

func (r *reader) readFloat() (float64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// readCount reads an element count and bounds it by the bytes left, so a
// corrupt count cannot trigger a huge allocation.
func (r *reader) readCount() (int, error) {
	n, err := r.readUvarint()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.remaining()) {
		return 0, fmt.Errorf("%w: count %d exceeds %d remaining bytes", ErrCorrupt, n, r.remaining())
	}
	return int(n), nil
}

func (r *reader) readString() (string, error) {
	n, err := r.readCount()
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
