package consensus

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashpay/platform-sub039/inter"
)

func TestErrorText(t *testing.T) {
	id := inter.DeriveIdentifier([]byte("alice"))
	err := New(NonceAlreadyUsed, ID("identity", id), Uint("claimed", 5), Uint("last", 5))

	want := fmt.Sprintf("NonceAlreadyUsed(40001){identity=%s, claimed=5, last=5}", id)
	require.Equal(t, want, err.Error())
	require.Equal(t, "InsufficientBalance(30001)", New(InsufficientBalance).Error())
	require.Equal(t, "Unknown(99)", New(Code(99)).Error())
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(DuplicateUniqueIndex, Text("index", "byName")))
	require.True(t, errors.Is(err, New(DuplicateUniqueIndex)))
	require.False(t, errors.Is(err, New(DocumentNotFound)))

	var ce *Error
	require.True(t, errors.As(err, &ce))
	p, ok := ce.Param("index")
	require.True(t, ok)
	require.Equal(t, "byName", p.Text)
}

func TestPayloadRoundTrip(t *testing.T) {
	in := New(InsufficientBalance,
		ID("identity", inter.DeriveIdentifier([]byte("a"))),
		Uint("balance", 1000),
		Uint("required", 1010),
		Bytes("raw", []byte{1, 2}),
	)
	b1, err := in.Payload()
	require.NoError(t, err)
	b2, err := in.Payload()
	require.NoError(t, err)
	require.Equal(t, b1, b2)

	out, err := DecodePayload(b1)
	require.NoError(t, err)
	require.Equal(t, in.Error(), out.Error())
}

func TestCodeClass(t *testing.T) {
	require.Equal(t, ClassStructure, NonceOutOfBounds.Class())
	require.Equal(t, ClassSignature, InvalidSignature.Class())
	require.Equal(t, ClassFee, InsufficientBalance.Class())
	require.Equal(t, ClassState, TokenUnauthorized.Class())
	require.Equal(t, Class(0), Code(7).Class())

	seen := map[string]Code{}
	for c, name := range codeNames {
		prev, dup := seen[name]
		require.False(t, dup, "%s used by %d and %d", name, prev, c)
		seen[name] = c
	}
}

func TestValidationResult(t *testing.T) {
	r := Valid(7)
	require.True(t, r.IsValid())
	require.Nil(t, r.FirstError())

	r.AddError(New(InvalidAmount), New(EmptyBatch))
	require.False(t, r.IsValid())
	require.Equal(t, InvalidAmount, r.FirstError().Code)

	other := Invalid[string](New(InvalidSignature))
	Merge(&r, other)
	require.Len(t, r.Errors, 3)

	m := Map(r, func(v int) string { return fmt.Sprint(v * 2) })
	require.Equal(t, "14", m.Data)
	require.Len(t, m.Errors, 3)

	empty := Map(Invalid[int](New(InvalidAmount)), func(v int) string { return "x" })
	require.False(t, empty.HasData)
	require.Equal(t, "", empty.Data)
}
