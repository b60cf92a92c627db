package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecp256k1(t *testing.T) {
	s := DeterministicSigner("alice")
	msg := []byte("transition")
	sig := s.Sign(msg)

	v := Native{}
	require.NoError(t, v.VerifySecp256k1(s.PublicKey(), Digest(msg), sig))
	require.ErrorIs(t, v.VerifySecp256k1(DeterministicSigner("bob").PublicKey(), Digest(msg), sig), ErrInvalidSignature)
	require.Error(t, v.VerifySecp256k1(s.PublicKey(), Digest([]byte("other")), sig))
	require.ErrorIs(t, v.VerifySecp256k1(s.PublicKey(), Digest(msg), sig[:64]), ErrMalformedSignature)

	h := s.PublicKeyHash()
	require.NoError(t, v.VerifyHash160(h[:], Digest(msg), sig))
	require.ErrorIs(t, v.VerifyHash160(make([]byte, 20), Digest(msg), sig), ErrInvalidSignature)
}

func TestDeterministicSigner(t *testing.T) {
	require.Equal(t, DeterministicSigner("x").PublicKey(), DeterministicSigner("x").PublicKey())
	require.NotEqual(t, DeterministicSigner("x").PublicKey(), DeterministicSigner("y").PublicKey())
	require.Len(t, DeterministicSigner("x").PublicKey(), 33)
}

func TestBLS(t *testing.T) {
	s := DeterministicBLSSigner("validator")
	msg := []byte("quorum")
	sig := s.Sign(msg)
	require.Len(t, s.PublicKey(), 48)
	require.Len(t, sig, 96)

	v := Native{}
	require.NoError(t, v.VerifyBLS(s.PublicKey(), msg, sig))
	require.ErrorIs(t, v.VerifyBLS(s.PublicKey(), []byte("other"), sig), ErrInvalidSignature)
	require.ErrorIs(t, v.VerifyBLS(s.PublicKey()[:10], msg, sig), ErrMalformedPublicKey)
}
