package dpp

import (
	"github.com/ethereum/go-ethereum/rlp"
)

// EncodeContract returns the canonical stored form of a contract.
func EncodeContract(c *DataContract) ([]byte, error) {
	return rlp.EncodeToBytes(c)
}

func DecodeContract(b []byte) (*DataContract, error) {
	var c DataContract
	if err := rlp.DecodeBytes(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func EncodeDocument(d *Document) ([]byte, error) {
	return rlp.EncodeToBytes(d)
}

func DecodeDocument(b []byte) (*Document, error) {
	var d Document
	if err := rlp.DecodeBytes(b, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func EncodeKey(k *IdentityPublicKey) ([]byte, error) {
	return rlp.EncodeToBytes(k)
}

func DecodeKey(b []byte) (*IdentityPublicKey, error) {
	var k IdentityPublicKey
	if err := rlp.DecodeBytes(b, &k); err != nil {
		return nil, err
	}
	return &k, nil
}
