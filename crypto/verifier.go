// Package crypto verifies the signatures carried by state transitions.
//
// The execution pipeline only sees the Verifier interface. Native is the
// implementation used by nodes: secp256k1 recovery from go-ethereum and
// BLS12-381 pairings from gnark-crypto.
package crypto

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcutil"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is R || S || V for recoverable ECDSA signatures.
const SignatureLength = 65

// BLSDomain separates platform BLS signatures from other uses of the curve.
var BLSDomain = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_PLATFORM_V1")

var (
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrMalformedSignature = errors.New("malformed signature")
	ErrMalformedPublicKey = errors.New("malformed public key")
)

// Verifier checks signatures over a 32-byte digest, or over the message
// itself for BLS.
type Verifier interface {
	VerifySecp256k1(pubKey, digest, sig []byte) error
	VerifyHash160(pubKeyHash, digest, sig []byte) error
	VerifyBLS(pubKey, msg, sig []byte) error
}

// Native is the production Verifier.
type Native struct{}

var _ Verifier = Native{}

// Digest is the signable hash of a transition's signable bytes.
func Digest(signable []byte) []byte {
	return crypto.Keccak256(signable)
}

// Hash160 is RIPEMD160(SHA256(b)).
func Hash160(b []byte) [20]byte {
	var out [20]byte
	copy(out[:], btcutil.Hash160(b))
	return out
}

// Recover returns the compressed public key that produced sig over digest.
// High-S signatures are rejected so every signature has one encoding.
func Recover(digest, sig []byte) ([]byte, error) {
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedSignature, len(sig))
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[64], r, s, true) {
		return nil, fmt.Errorf("%w: non-canonical values", ErrMalformedSignature)
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.CompressPubkey(pub), nil
}

func (Native) VerifySecp256k1(pubKey, digest, sig []byte) error {
	rec, err := Recover(digest, sig)
	if err != nil {
		return err
	}
	if !bytes.Equal(rec, pubKey) {
		return ErrInvalidSignature
	}
	return nil
}

func (Native) VerifyHash160(pubKeyHash, digest, sig []byte) error {
	rec, err := Recover(digest, sig)
	if err != nil {
		return err
	}
	h := Hash160(rec)
	if !bytes.Equal(h[:], pubKeyHash) {
		return ErrInvalidSignature
	}
	return nil
}

func (Native) VerifyBLS(pubKey, msg, sig []byte) error {
	if len(pubKey) != bls12381.SizeOfG1AffineCompressed {
		return fmt.Errorf("%w: %d bytes", ErrMalformedPublicKey, len(pubKey))
	}
	if len(sig) != bls12381.SizeOfG2AffineCompressed {
		return fmt.Errorf("%w: %d bytes", ErrMalformedSignature, len(sig))
	}
	var pk bls12381.G1Affine
	if _, err := pk.SetBytes(pubKey); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPublicKey, err)
	}
	var s bls12381.G2Affine
	if _, err := s.SetBytes(sig); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	h, err := bls12381.HashToG2(msg, BLSDomain)
	if err != nil {
		return err
	}
	_, _, g1, _ := bls12381.Generators()
	var negG1 bls12381.G1Affine
	negG1.Neg(&g1)

	ok, err := bls12381.PairingCheck([]bls12381.G1Affine{pk, negG1}, []bls12381.G2Affine{h, s})
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}
