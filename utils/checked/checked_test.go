package checked

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddSubMul(t *testing.T) {
	require := require.New(t)

	v, err := Add(1, 2)
	require.NoError(err)
	require.Equal(uint64(3), v)

	_, err = Add(math.MaxUint64, 1)
	require.ErrorIs(err, ErrOverflow)

	_, err = Sub(1, 2)
	require.ErrorIs(err, ErrUnderflow)

	v, err = Mul(1<<32, 1<<31)
	require.NoError(err)
	require.Equal(uint64(1<<63), v)

	_, err = Mul(1<<32, 1<<32)
	require.ErrorIs(err, ErrOverflow)
}

func TestMulDivKeepsPrecision(t *testing.T) {
	tests := []struct {
		a, b, d uint64
		want    uint64
		err     error
	}{
		{5000, 2, 10, 1000, nil},
		{5000, 3, 10, 1500, nil},
		{math.MaxUint64, 3, 4, 3<<62 - 1, nil},
		{7, 1, 2, 3, nil},
		{1, 1, 0, 0, ErrDivideByZero},
		{math.MaxUint64, 2, 1, 0, ErrOverflow},
	}
	for _, tt := range tests {
		got, err := MulDiv(tt.a, tt.b, tt.d)
		if tt.err != nil {
			require.ErrorIs(t, err, tt.err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "%d*%d/%d", tt.a, tt.b, tt.d)
	}
}

func TestSumAndSigned(t *testing.T) {
	v, err := Sum(1, 2, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(6), v)

	_, err = Sum(math.MaxUint64, 0, 1)
	require.ErrorIs(t, err, ErrOverflow)

	v, err = AddSigned(10, -4)
	require.NoError(t, err)
	require.Equal(t, uint64(6), v)

	_, err = AddSigned(3, -4)
	require.ErrorIs(t, err, ErrUnderflow)

	_, err = ToInt64(math.MaxUint64)
	require.ErrorIs(t, err, ErrOverflow)

	v, err = Percent(1000, 25)
	require.NoError(t, err)
	require.Equal(t, uint64(1250), v)
}
