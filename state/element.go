package state

import (
	"github.com/ethereum/go-ethereum/rlp"
)

// Element is a stored value with optional storage flags.
type Element struct {
	Value []byte
	Flags []byte
}

// KeyElement is a query result item.
type KeyElement struct {
	Key     []byte
	Element Element
}

func encodeElement(e Element) []byte {
	b, err := rlp.EncodeToBytes(&e)
	if err != nil {
		panic("can't encode element: " + err.Error())
	}
	return b
}

func decodeElement(b []byte) (Element, error) {
	var e Element
	if err := rlp.DecodeBytes(b, &e); err != nil {
		return Element{}, err
	}
	return e, nil
}
