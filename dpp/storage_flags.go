package dpp

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/dashpay/platform-sub039/inter"
)

// StorageFlags records who prepaid an element's storage and in which epoch.
// They travel with the element so removal can refund the original payer.
type StorageFlags struct {
	OwnerID    inter.Identifier
	EpochIndex uint16
	Bytes      uint32
}

func (f StorageFlags) Encode() []byte {
	b, err := rlp.EncodeToBytes(&f)
	if err != nil {
		panic("can't encode storage flags: " + err.Error())
	}
	return b
}

// DecodeStorageFlags parses flags written by Encode. Empty input means the
// element carries no refundable storage.
func DecodeStorageFlags(b []byte) (*StorageFlags, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var f StorageFlags
	if err := rlp.DecodeBytes(b, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
