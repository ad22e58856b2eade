// Package cser is a compact canonical binary encoding.
//
// A value is split into two streams. Fixed-width payload goes to a byte
// stream, while flags and the byte lengths of variable-width integers go to a
// bit stream. Every value has exactly one valid encoding: readers reject
// padded integers, negative zero and leftover data.
package cser

import (
	"errors"

	"github.com/rony4d/go-opera-poa/utils/bits"
	"github.com/rony4d/go-opera-poa/utils/fast"
)

var (
	ErrNonCanonicalEncoding = errors.New("non canonical encoding")
	ErrMalformedEncoding    = errors.New("malformed encoding")
	ErrTooLargeAlloc        = errors.New("too large allocation")
)

// MaxAlloc bounds any single length-prefixed allocation made while decoding.
const MaxAlloc = 100 * 1024

// Writer accumulates both streams of an encoding.
type Writer struct {
	BitsW  *bits.Writer
	BytesW *fast.Writer
}

// Reader consumes both streams of an encoding.
type Reader struct {
	BitsR  *bits.Reader
	BytesR *fast.Reader
}

func NewWriter() *Writer {
	return &Writer{
		BitsW:  bits.NewWriter(&bits.Array{Bytes: make([]byte, 0, 32)}),
		BytesW: fast.NewWriter(make([]byte, 0, 200)),
	}
}

// putUvarint is a little-endian base-128 varint whose final group carries the
// high bit, the reverse of encoding/binary. It frames the bit stream size.
func putUvarint(w *fast.Writer, v uint64) {
	for {
		group := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			w.WriteByte(group | 0x80)
			return
		}
		w.WriteByte(group)
	}
}

func getUvarint(r *fast.Reader) uint64 {
	var v uint64
	for i := uint(0); ; i++ {
		group := r.ReadByte()
		v |= uint64(group&0x7f) << (7 * i)
		if group&0x80 != 0 {
			if i > 0 && group&0x7f == 0 {
				panic(ErrNonCanonicalEncoding)
			}
			return v
		}
	}
}

// putTrimmed writes v little-endian using the fewest bytes, never fewer
// than min.
func putTrimmed(w *fast.Writer, v uint64, min int) (size int) {
	for size < min || v != 0 {
		w.WriteByte(byte(v))
		v >>= 8
		size++
	}
	return size
}

func getTrimmed(r *fast.Reader, size int) uint64 {
	var v uint64
	buf := r.Read(size)
	for i, b := range buf {
		v |= uint64(b) << (8 * uint(i))
	}
	if size > 1 && buf[size-1] == 0 {
		panic(ErrNonCanonicalEncoding)
	}
	return v
}

// uint writes v with its byte length, minus min, stored in sizeBits bits.
func (w *Writer) uint(v uint64, min int, sizeBits int) {
	size := putTrimmed(w.BytesW, v, min)
	w.BitsW.Write(sizeBits, uint(size-min))
}

func (r *Reader) uint(min int, sizeBits int) uint64 {
	size := int(r.BitsR.Read(sizeBits)) + min
	return getTrimmed(r.BytesR, size)
}

func (w *Writer) U8(v uint8) {
	w.BytesW.WriteByte(v)
}

func (r *Reader) U8() uint8 {
	return r.BytesR.ReadByte()
}

func (w *Writer) U16(v uint16) {
	w.uint(uint64(v), 1, 1)
}

func (r *Reader) U16() uint16 {
	return uint16(r.uint(1, 1))
}

func (w *Writer) U32(v uint32) {
	w.uint(uint64(v), 1, 2)
}

func (r *Reader) U32() uint32 {
	return uint32(r.uint(1, 2))
}

func (w *Writer) U64(v uint64) {
	w.uint(v, 1, 3)
}

func (r *Reader) U64() uint64 {
	return r.uint(1, 3)
}

// U56 is used for lengths. Zero costs no payload bytes.
func (w *Writer) U56(v uint64) {
	if v >= 1<<56 {
		panic("cser: U56 overflow")
	}
	w.uint(v, 0, 3)
}

func (r *Reader) U56() uint64 {
	return r.uint(0, 3)
}

func (w *Writer) I64(v int64) {
	w.Bool(v < 0)
	if v < 0 {
		w.U64(uint64(-v))
		return
	}
	w.U64(uint64(v))
}

func (r *Reader) I64() int64 {
	neg := r.Bool()
	abs := r.U64()
	if neg && abs == 0 {
		panic(ErrNonCanonicalEncoding)
	}
	if neg {
		return -int64(abs)
	}
	return int64(abs)
}

func (w *Writer) Bool(v bool) {
	var bit uint
	if v {
		bit = 1
	}
	w.BitsW.Write(1, bit)
}

func (r *Reader) Bool() bool {
	return r.BitsR.Read(1) != 0
}

// FixedBytes writes v with no length prefix.
func (w *Writer) FixedBytes(v []byte) {
	w.BytesW.Write(v)
}

// FixedBytes fills v completely.
func (r *Reader) FixedBytes(v []byte) {
	copy(v, r.BytesR.Read(len(v)))
}

// SliceBytes writes v prefixed with its length.
func (w *Writer) SliceBytes(v []byte) {
	w.U56(uint64(len(v)))
	w.FixedBytes(v)
}

func (r *Reader) SliceBytes(maxLen int) []byte {
	size := r.U56()
	if size > uint64(maxLen) {
		panic(ErrTooLargeAlloc)
	}
	buf := make([]byte, size)
	r.FixedBytes(buf)
	return buf
}
