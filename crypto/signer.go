package crypto

import (
	"crypto/ecdsa"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer produces signatures accepted by Native. Nodes never sign
// transitions; it exists for genesis tooling and tests.
type Signer struct {
	key *ecdsa.PrivateKey
}

// DeterministicSigner derives a secp256k1 key from seed.
func DeterministicSigner(seed string) *Signer {
	k, err := crypto.ToECDSA(crypto.Keccak256([]byte("secp256k1"), []byte(seed)))
	if err != nil {
		panic(err)
	}
	return &Signer{key: k}
}

// PublicKey returns the 33-byte compressed public key.
func (s *Signer) PublicKey() []byte {
	return crypto.CompressPubkey(&s.key.PublicKey)
}

// PublicKeyHash returns the HASH160 of the compressed public key.
func (s *Signer) PublicKeyHash() [20]byte {
	return Hash160(s.PublicKey())
}

// Sign signs the digest of signable.
func (s *Signer) Sign(signable []byte) []byte {
	sig, err := crypto.Sign(Digest(signable), s.key)
	if err != nil {
		panic(err)
	}
	return sig
}

// BLSSigner produces BLS12-381 signatures with public keys in G1.
type BLSSigner struct {
	sk *big.Int
}

func DeterministicBLSSigner(seed string) *BLSSigner {
	var e fr.Element
	e.SetBytes(crypto.Keccak256([]byte("bls12381"), []byte(seed)))
	return &BLSSigner{sk: e.BigInt(new(big.Int))}
}

func (s *BLSSigner) PublicKey() []byte {
	_, _, g1, _ := bls12381.Generators()
	var pk bls12381.G1Affine
	pk.ScalarMultiplication(&g1, s.sk)
	b := pk.Bytes()
	return b[:]
}

func (s *BLSSigner) Sign(msg []byte) []byte {
	h, err := bls12381.HashToG2(msg, BLSDomain)
	if err != nil {
		panic(err)
	}
	var sig bls12381.G2Affine
	sig.ScalarMultiplication(&h, s.sk)
	b := sig.Bytes()
	return b[:]
}
