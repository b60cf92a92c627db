package validatorpk

import (
	"bytes"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const compressed = "02b4632d08485ff1df2db55b9dafd23347d1c47a457072a1e87be26896549a8737"

func TestFromString(t *testing.T) {
	require := require.New(t)
	exp := PubKey{Type: Types.Secp256k1, Raw: common.FromHex(compressed)}

	for _, in := range []string{"c0" + compressed, "0xc0" + compressed} {
		got, err := FromString(in)
		require.NoError(err)
		require.Equal(exp, got)
		require.Equal("0xc0"+compressed, got.String())
	}
	for _, in := range []string{"", "0x", "-"} {
		_, err := FromString(in)
		require.ErrorIs(err, ErrEmpty, in)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		pk PubKey
		ok bool
	}{
		"secp256k1 compressed": {PubKey{Types.Secp256k1, make([]byte, 33)}, true},
		"secp256k1 full":       {PubKey{Types.Secp256k1, make([]byte, 65)}, true},
		"secp256k1 short":      {PubKey{Types.Secp256k1, make([]byte, 32)}, false},
		"bls":                  {PubKey{Types.BLS12381, make([]byte, 48)}, true},
		"bls long":             {PubKey{Types.BLS12381, make([]byte, 96)}, false},
		"unknown":              {PubKey{0x01, make([]byte, 33)}, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.pk.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestEmptyAndCopy(t *testing.T) {
	require := require.New(t)
	require.True(PubKey{}.Empty())

	original := PubKey{Type: 0x01, Raw: []byte{0xAA, 0xBB}}
	require.False(original.Empty())
	require.Equal([]byte{0x01, 0xAA, 0xBB}, original.Bytes())

	cp := original.Copy()
	require.Equal(original, cp)
	cp.Raw[0] = 0xFF
	require.Equal(uint8(0xAA), original.Raw[0])
}

func TestFromBytesDoesNotAlias(t *testing.T) {
	in := []byte{0xc0, 0x01, 0x02}
	pk, err := FromBytes(in)
	require.NoError(t, err)
	in[1] = 0xff
	require.Equal(t, []byte{0x01, 0x02}, pk.Raw)
}

func TestTOMLText(t *testing.T) {
	type entry struct {
		Key PubKey `toml:"key"`
	}
	original := entry{Key: PubKey{Type: Types.BLS12381, Raw: bytes.Repeat([]byte{0xab}, 48)}}

	var buf bytes.Buffer
	require.NoError(t, toml.NewEncoder(&buf).Encode(original))
	require.Contains(t, buf.String(), `key = "0xb1abab`)

	var decoded entry
	_, err := toml.Decode(buf.String(), &decoded)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}
