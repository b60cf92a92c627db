package dpp

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/dashpay/platform-sub039/inter"
)

// WithdrawalStatus tracks a queued withdrawal through the core chain.
type WithdrawalStatus uint8

const (
	WithdrawalQueued WithdrawalStatus = iota
	WithdrawalPooled
	WithdrawalBroadcasted
	WithdrawalComplete
)

// Withdrawal is a queued credit withdrawal to a core-chain output script.
// Amount is in credits.
type Withdrawal struct {
	IdentityID     inter.Identifier
	Amount         uint64
	CoreFeePerByte uint32
	OutputScript   []byte
	Status         WithdrawalStatus
	CreatedAt      inter.Timestamp
	Height         uint64
}

func DecodeWithdrawal(b []byte) (*Withdrawal, error) {
	var w Withdrawal
	if err := rlp.DecodeBytes(b, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// HistoryKind names the operation a ledger record describes.
type HistoryKind uint8

const (
	HistoryContractUpdate HistoryKind = iota + 1
	HistoryDocumentCreate
	HistoryDocumentReplace
	HistoryDocumentDelete
	HistoryDocumentTransfer
	HistoryDocumentPurchase
	HistoryDocumentPrice
	HistoryTokenMint
	HistoryTokenBurn
	HistoryTokenTransfer
	HistoryTokenFreeze
	HistoryTokenUnfreeze
)

// HistoryRecord is an append-only ledger entry written for contracts,
// document types and tokens that keep history.
type HistoryRecord struct {
	Kind     HistoryKind
	Contract inter.Identifier
	// Entity is the document or token the record is about.
	Entity  inter.Identifier
	Actor   inter.Identifier
	Subject inter.Identifier
	Amount  uint64
	Time    inter.Timestamp
	Height  uint64
	Data    []byte
}

func DecodeHistoryRecord(b []byte) (*HistoryRecord, error) {
	var r HistoryRecord
	if err := rlp.DecodeBytes(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
