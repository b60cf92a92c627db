package bits

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type word struct {
	n int
	v uint
}

func TestWriteReadWords(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		words := make([]word, r.Intn(40))
		total := 0
		for i := range words {
			words[i].n = 1 + r.Intn(16)
			words[i].v = uint(r.Intn(1 << uint(words[i].n)))
			total += words[i].n
		}

		arr := &Array{}
		w := NewWriter(arr)
		for _, wd := range words {
			w.Write(wd.n, wd.v)
		}
		require.Equal(t, (total+7)/8, len(arr.Bytes))

		rd := NewReader(arr)
		for i, wd := range words {
			require.Equal(t, wd.v, rd.View(wd.n), "word %d", i)
			require.Equal(t, wd.v, rd.Read(wd.n), "word %d", i)
		}
		require.Equal(t, len(arr.Bytes)*8-total, rd.NonReadBits())
	}
}

func TestLayoutIsLSBFirst(t *testing.T) {
	arr := &Array{}
	w := NewWriter(arr)
	w.Write(1, 1)
	w.Write(3, 0b101)
	w.Write(6, 0b110011)
	require.Equal(t, []byte{0b00111011, 0b00000011}, arr.Bytes)
}

func TestReadPastEndPanics(t *testing.T) {
	rd := NewReader(&Array{Bytes: []byte{0xff}})
	rd.Read(8)
	require.Equal(t, 0, rd.NonReadBits())
	require.PanicsWithValue(t, ErrUnexpectedEnd, func() { rd.Read(1) })
}
