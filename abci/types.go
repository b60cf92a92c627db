package abci

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/inter/drivertype"
	"github.com/dashpay/platform-sub039/inter/ier"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/validators"
)

// CodeOK is the result code of an accepted transition. Any other code is a
// consensus error code.
const CodeOK uint32 = 0

// BlockRequest is a block as delivered by the BFT engine.
type BlockRequest struct {
	Height                idx.Block
	Time                  inter.Timestamp
	CoreChainLockedHeight uint32
	Proposer              inter.ProTxHash
	// ProposedAppVersion is the protocol version the proposer votes for.
	ProposedAppVersion uint32
	Txs                [][]byte
	// Masternodes is the masternode list change observed at
	// CoreChainLockedHeight.
	Masternodes validators.MasternodeListDiff
}

// TxResult is the outcome of one transition.
type TxResult struct {
	Code uint32
	// Info is the readable form of the first consensus error.
	Info string
	// Data is the encoded first consensus error.
	Data []byte
	Fee  inter.FeeResult
}

func (r TxResult) OK() bool { return r.Code == CodeOK }

type InitChainResponse struct {
	AppHash            hash.Hash
	ValidatorSetUpdate *drivertype.ValidatorSetUpdate
}

type PrepareProposalResponse struct {
	// Txs is the proposal: decodable, structurally valid transitions in
	// delivery order.
	Txs       [][]byte
	TxResults []TxResult
	AppHash   hash.Hash
}

type ProcessProposalResponse struct {
	Accept    bool
	Reason    string
	TxResults []TxResult
	AppHash   hash.Hash
}

type FinalizeBlockResponse struct {
	AppHash            hash.Hash
	TxResults          []TxResult
	ValidatorSetUpdate *drivertype.ValidatorSetUpdate
	Fees               inter.BlockFees
	// ProtocolVersion is the version the next block runs.
	ProtocolVersion uint32
	// EpochClosed is set when the block sealed an epoch.
	EpochClosed *ier.EpochRecord
}

type CommitResponse struct {
	Height  idx.Block
	AppHash hash.Hash
}

type CheckTxResponse struct {
	Code uint32
	Info string
	Data []byte
}

func (r CheckTxResponse) OK() bool { return r.Code == CodeOK }

type QueryRequest struct {
	Path       state.Path
	Key        []byte
	StartAfter []byte
	Limit      int
	Prove      bool
}

type QueryResponse struct {
	Height idx.Block
	Items  []state.KeyElement
	// Proof is the encoded proof against the root at Height, set when
	// requested.
	Proof []byte
}

type InfoResponse struct {
	ChainID         string
	LastHeight      idx.Block
	LastAppHash     hash.Hash
	ProtocolVersion uint32
	Epoch           uint16
}
