package transition

import (
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
)

// ContractCreateV0 registers a contract. Its id must be derived from the
// owner and the identity nonce.
type ContractCreateV0 struct {
	Contract dpp.DataContract
	Nonce    uint64
	Signed
}

func (t *ContractCreateV0) Kind() Kind                              { return KindContractCreate }
func (t *ContractCreateV0) FeatureVersion() platform.FeatureVersion { return 0 }
func (t *ContractCreateV0) OwnerID() inter.Identifier               { return t.Contract.OwnerID }
func (t *ContractCreateV0) SignableBytes() ([]byte, error)          { return signable(t) }
func (t *ContractCreateV0) IdentityNonce() uint64                   { return t.Nonce }

// ContractUpdateV0 replaces a contract with its next version.
type ContractUpdateV0 struct {
	Contract dpp.DataContract
	Nonce    uint64
	Signed
}

func (t *ContractUpdateV0) Kind() Kind                              { return KindContractUpdate }
func (t *ContractUpdateV0) FeatureVersion() platform.FeatureVersion { return 0 }
func (t *ContractUpdateV0) OwnerID() inter.Identifier               { return t.Contract.OwnerID }
func (t *ContractUpdateV0) SignableBytes() ([]byte, error)          { return signable(t) }

func (t *ContractUpdateV0) ContractNonce() (inter.Identifier, uint64) {
	return t.Contract.ID, t.Nonce
}
