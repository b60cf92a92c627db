package fast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	require := require.New(t)

	w := NewWriter(make([]byte, 0, 4))
	for i := byte(0); i < 10; i++ {
		require.NoError(w.WriteByte(i))
	}
	w.Write([]byte{0xAA, 0xBB})
	require.Equal(12, w.Len())

	r := NewReader(w.Bytes())
	for i := byte(0); i < 10; i++ {
		require.Equal(i, r.ReadByte())
	}
	require.Equal(2, r.Remaining())
	require.Equal([]byte{0xAA, 0xBB}, r.Read(2))
	require.True(r.Empty())
	require.Equal(12, r.Position())
}

func TestReaderOverrunPanics(t *testing.T) {
	r := NewReader([]byte{1})
	r.ReadByte()

	require.PanicsWithValue(t, ErrUnexpectedEnd, func() { r.ReadByte() })
	require.PanicsWithValue(t, ErrUnexpectedEnd, func() { r.Read(1) })
	require.PanicsWithValue(t, ErrUnexpectedEnd, func() { NewReader(nil).Read(-1) })
}

func TestReadAliasesBuffer(t *testing.T) {
	buf := []byte{1, 2, 3}
	r := NewReader(buf)
	got := r.Read(2)
	got[0] = 9
	require.Equal(t, byte(9), buf[0])
}
