// Package bits packs values narrower than a byte into a contiguous stream.
// Values are laid out least significant bit first; the unused tail of the last
// byte is always zero.
package bits

type (
	// Array is the backing storage of a bit stream.
	Array struct {
		Bytes []byte
	}

	// Writer appends bit fields to an Array.
	Writer struct {
		*Array
		bitOffset int // next free bit in the last byte, 0 means a fresh byte is needed
	}

	// Reader consumes bit fields from an Array.
	Reader struct {
		*Array
		byteOffset int
		bitOffset  int
	}
)

// NewWriter returns a Writer appending to arr.
func NewWriter(arr *Array) *Writer {
	return &Writer{Array: arr}
}

// NewReader returns a Reader positioned at the first bit of arr.
func NewReader(arr *Array) *Reader {
	return &Reader{Array: arr}
}

func lowBits(v uint, n int) uint {
	return v & (1<<uint(n) - 1)
}

// Write appends the n low bits of v.
func (w *Writer) Write(n int, v uint) {
	for n > 0 {
		if w.bitOffset == 0 {
			w.Bytes = append(w.Bytes, 0)
		}
		take := 8 - w.bitOffset
		if n < take {
			take = n
		}
		w.Bytes[len(w.Bytes)-1] |= byte(lowBits(v, take) << uint(w.bitOffset))
		w.bitOffset = (w.bitOffset + take) % 8
		v >>= uint(take)
		n -= take
	}
}

// Read consumes n bits. It panics when fewer than n bits remain.
func (r *Reader) Read(n int) uint {
	var (
		v     uint
		shift int
	)
	for n > 0 {
		take := 8 - r.bitOffset
		if n < take {
			take = n
		}
		chunk := lowBits(uint(r.Bytes[r.byteOffset])>>uint(r.bitOffset), take)
		v |= chunk << uint(shift)
		shift += take
		n -= take
		r.bitOffset += take
		if r.bitOffset == 8 {
			r.bitOffset = 0
			r.byteOffset++
		}
	}
	return v
}

// View returns the next n bits without consuming them.
func (r *Reader) View(n int) uint {
	cp := *r
	return cp.Read(n)
}

// NonReadBytes counts the bytes not yet fully consumed.
func (r *Reader) NonReadBytes() int {
	return len(r.Bytes) - r.byteOffset
}

// NonReadBits counts the bits not yet consumed, zero padding included.
func (r *Reader) NonReadBits() int {
	return r.NonReadBytes()*8 - r.bitOffset
}
