package cser

import (
	"github.com/rony4d/go-opera-poa/utils/bits"
	"github.com/rony4d/go-opera-poa/utils/fast"
)

// Layout of a packed value:
//
//	[byte stream][bit stream][size of bit stream, varint written backwards]
//
// The trailing size is reversed so a reader can locate it from the end.

// MarshalBinaryAdapter runs marshal against a fresh Writer and packs the
// result.
func MarshalBinaryAdapter(marshal func(*Writer) error) ([]byte, error) {
	w := NewWriter()
	if err := marshal(w); err != nil {
		return nil, err
	}
	return pack(w.BitsW.Array, w.BytesW.Bytes()), nil
}

// UnmarshalBinaryAdapter unpacks raw and runs unmarshal against it. Anything
// left unread, or any panic raised by a primitive, fails the decode.
func UnmarshalBinaryAdapter(raw []byte, unmarshal func(*Reader) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && (e == ErrNonCanonicalEncoding || e == ErrTooLargeAlloc) {
				err = e
				return
			}
			err = ErrMalformedEncoding
		}
	}()

	bbits, bbytes, err := unpack(raw)
	if err != nil {
		return err
	}
	r := &Reader{
		BitsR:  bits.NewReader(bbits),
		BytesR: fast.NewReader(bbytes),
	}
	if err := unmarshal(r); err != nil {
		return err
	}

	if r.BitsR.NonReadBytes() > 1 {
		return ErrNonCanonicalEncoding
	}
	if r.BitsR.Read(r.BitsR.NonReadBits()) != 0 {
		return ErrNonCanonicalEncoding
	}
	if !r.BytesR.Empty() {
		return ErrNonCanonicalEncoding
	}
	return nil
}

func pack(bbits *bits.Array, bbytes []byte) []byte {
	out := fast.NewWriter(bbytes)
	out.Write(bbits.Bytes)

	size := fast.NewWriter(make([]byte, 0, 4))
	putUvarint(size, uint64(len(bbits.Bytes)))
	out.Write(reversed(size.Bytes()))
	return out.Bytes()
}

func unpack(raw []byte) (*bits.Array, []byte, error) {
	if len(raw) == 0 {
		return nil, nil, ErrMalformedEncoding
	}
	sizeR := fast.NewReader(reversed(lastN(raw, 9)))
	bitsSize := getUvarint(sizeR)

	raw = raw[:len(raw)-sizeR.Position()]
	if uint64(len(raw)) < bitsSize {
		return nil, nil, ErrMalformedEncoding
	}
	split := uint64(len(raw)) - bitsSize
	return &bits.Array{Bytes: raw[split:]}, raw[:split], nil
}

func lastN(b []byte, n int) []byte {
	if len(b) > n {
		return b[len(b)-n:]
	}
	return b
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
