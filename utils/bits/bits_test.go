package bits

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

type word struct {
	bits int
	v    uint
}

func bytesToFit(bits int) int {
	return (bits + 7) / 8
}

func randomWords(r *rand.Rand, maxCount int, maxBits int) []word {
	words := make([]word, r.Intn(maxCount))
	for i := range words {
		words[i].bits = 1
		if maxBits > 1 {
			words[i].bits += r.Intn(maxBits - 1)
		}
		words[i].v = uint(r.Intn(1 << uint(words[i].bits)))
	}
	return words
}

// checkStream writes words, reads them back and checks cursor bookkeeping
// along the way.
func checkStream(t *testing.T, words []word, name string) {
	arr := Array{make([]byte, 0, 100)}
	writer := NewWriter(&arr)
	reader := NewReader(&arr)

	total := 0
	for _, w := range words {
		writer.Write(w.bits, w.v)
		total += w.bits
	}
	assert.Equalf(t, bytesToFit(total), len(arr.Bytes), "%s: stream length", name)

	read := 0
	for _, w := range words {
		assert.Equalf(t, bytesToFit(total)*8-read, reader.NonReadBits(), "%s: bits left", name)
		assert.Equalf(t, bytesToFit(reader.NonReadBits()), reader.NonReadBytes(), "%s: bytes left", name)

		assert.EqualValuesf(t, w.v, reader.Read(w.bits), "%s: value", name)
		read += w.bits
	}

	assert.Panicsf(t, func() {
		reader.Read(reader.NonReadBits() + 1)
	}, "%s: overread", name)

	assert.EqualValuesf(t, 0, reader.Read(reader.NonReadBits()), "%s: padding", name)
	assert.Equalf(t, 0, reader.NonReadBits(), "%s: drained", name)
	assert.Equalf(t, 0, reader.NonReadBytes(), "%s: drained", name)
}

func TestFixedPatterns(t *testing.T) {
	for _, tc := range []struct {
		name  string
		words []word
	}{
		{"empty", nil},
		{"single zero", []word{{1, 0}}},
		{"single one", []word{{1, 1}}},
		{"9 bits", []word{{9, 0b010101010}}},
		{"17 bits", []word{{17, 0b01010101010101010}}},
		{"aligned byte", []word{{8, 0xFF}}},
		{"byte then nibble", []word{{8, 0xFF}, {4, 0xA}}},
		{"nibble then byte", []word{{4, 0xA}, {8, 0xFF}}},
		{"16 bits", []word{{16, 0xFFFF}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			checkStream(t, tc.words, tc.name)
		})
	}
}

func TestRandomStreams(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for _, maxBits := range []int{1, 8, 17} {
		for i := 0; i < 50; i++ {
			name := fmt.Sprintf("%d bits, case#%d", maxBits, i)
			checkStream(t, randomWords(r, 60, maxBits), name)
		}
	}
}

func TestWriteMasksHighBits(t *testing.T) {
	arr := Array{}
	NewWriter(&arr).Write(3, 0xFF)
	assert.Equal(t, []byte{0b111}, arr.Bytes)
}

func TestView(t *testing.T) {
	arr := Array{}
	writer := NewWriter(&arr)
	reader := NewReader(&arr)
	writer.Write(8, 0xAA)
	writer.Write(8, 0x55)

	assert.EqualValues(t, 0xAA, reader.View(8))
	assert.Equal(t, 16, reader.NonReadBits())
	assert.EqualValues(t, 0xAA, reader.Read(8))
	assert.EqualValues(t, 0x55, reader.View(8))
	assert.EqualValues(t, 0x55, reader.Read(8))
}

func BenchmarkWrite(b *testing.B) {
	for bits := 1; bits <= 9; bits++ {
		b.Run(fmt.Sprintf("%d bits", bits), func(b *testing.B) {
			arr := Array{make([]byte, 0, bytesToFit(bits*b.N))}
			writer := NewWriter(&arr)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				writer.Write(bits, 0xff)
			}
		})
	}
}
