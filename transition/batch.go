package transition

import (
	"fmt"

	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
)

// DocumentAction selects a document sub-transition.
type DocumentAction uint8

const (
	DocumentCreate DocumentAction = iota
	DocumentReplace
	DocumentDelete
	DocumentTransfer
	DocumentPurchase
	DocumentUpdatePrice
)

func (a DocumentAction) String() string {
	switch a {
	case DocumentCreate:
		return "create"
	case DocumentReplace:
		return "replace"
	case DocumentDelete:
		return "delete"
	case DocumentTransfer:
		return "transfer"
	case DocumentPurchase:
		return "purchase"
	case DocumentUpdatePrice:
		return "updatePrice"
	}
	return fmt.Sprintf("DocumentAction(%d)", uint8(a))
}

// DocumentTransition is one operation of a documents batch. Which fields
// are meaningful depends on Action:
//   - create: Entropy, Fields (DocumentID must be derived from Entropy)
//   - replace: Revision, Fields
//   - delete: nothing else
//   - transfer: Revision, Recipient
//   - purchase: Revision, Price (the price the buyer agrees to pay)
//   - updatePrice: Revision, Price (0 withdraws the document from sale)
type DocumentTransition struct {
	Action       DocumentAction
	ContractID   inter.Identifier
	DocumentType string
	DocumentID   inter.Identifier
	Nonce        uint64
	Revision     uint64
	Entropy      [32]byte
	Fields       []dpp.Field
	Recipient    inter.Identifier
	Price        uint64
}

// DocumentsBatchV0 applies document operations all-or-nothing.
type DocumentsBatchV0 struct {
	Owner       inter.Identifier
	Transitions []DocumentTransition
	Signed
}

func (t *DocumentsBatchV0) Kind() Kind                              { return KindDocumentsBatch }
func (t *DocumentsBatchV0) FeatureVersion() platform.FeatureVersion { return 0 }
func (t *DocumentsBatchV0) OwnerID() inter.Identifier               { return t.Owner }
func (t *DocumentsBatchV0) SignableBytes() ([]byte, error)          { return signable(t) }

// TokenAction selects a token sub-transition.
type TokenAction uint8

const (
	TokenMint TokenAction = iota
	TokenBurn
	TokenTransfer
	TokenFreeze
	TokenUnfreeze
)

func (a TokenAction) String() string {
	switch a {
	case TokenMint:
		return "mint"
	case TokenBurn:
		return "burn"
	case TokenTransfer:
		return "transfer"
	case TokenFreeze:
		return "freeze"
	case TokenUnfreeze:
		return "unfreeze"
	}
	return fmt.Sprintf("TokenAction(%d)", uint8(a))
}

// TokenTransition is one operation of a tokens batch. Recipient is the
// receiver of a mint or transfer and the target of a freeze or unfreeze.
type TokenTransition struct {
	Action     TokenAction
	ContractID inter.Identifier
	Position   uint16
	Nonce      uint64
	Amount     uint64
	Recipient  inter.Identifier
}

// TokenID is the id of the token the transition operates on.
func (t *TokenTransition) TokenID() inter.Identifier {
	return dpp.TokenID(t.ContractID, t.Position)
}

// TokensBatchV0 applies token operations all-or-nothing.
type TokensBatchV0 struct {
	Owner       inter.Identifier
	Transitions []TokenTransition
	Signed
}

func (t *TokensBatchV0) Kind() Kind                              { return KindTokensBatch }
func (t *TokensBatchV0) FeatureVersion() platform.FeatureVersion { return 0 }
func (t *TokensBatchV0) OwnerID() inter.Identifier               { return t.Owner }
func (t *TokensBatchV0) SignableBytes() ([]byte, error)          { return signable(t) }
