package drive

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"

	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
)

// IdentityExists reports whether id has been created.
func (d *Drive) IdentityExists(tx state.Transaction, id inter.Identifier) (bool, error) {
	e, err := d.Get(tx, IdentityPath(id), KeyRevision)
	return e != nil, err
}

// Balance returns the credit balance of id, 0 when absent.
func (d *Drive) Balance(tx state.Transaction, id inter.Identifier) (uint64, error) {
	v, _, err := d.GetU64(tx, BalancesPath, id.Bytes())
	return v, err
}

// FetchIdentity returns nil when id does not exist.
func (d *Drive) FetchIdentity(tx state.Transaction, id inter.Identifier) (*dpp.Identity, error) {
	revision, ok, err := d.GetU64(tx, IdentityPath(id), KeyRevision)
	if err != nil || !ok {
		return nil, err
	}
	balance, err := d.Balance(tx, id)
	if err != nil {
		return nil, err
	}
	keys, err := d.FetchKeys(tx, id)
	if err != nil {
		return nil, err
	}
	return &dpp.Identity{ID: id, Balance: balance, Revision: revision, PublicKeys: keys}, nil
}

// FetchKeys returns the keys of id ordered by key ID.
func (d *Drive) FetchKeys(tx state.Transaction, id inter.Identifier) ([]dpp.IdentityPublicKey, error) {
	items, err := d.Query(tx, state.PathQuery{Path: KeysPath(id)})
	if err != nil {
		return nil, err
	}
	keys := make([]dpp.IdentityPublicKey, 0, len(items))
	for _, it := range items {
		k, err := dpp.DecodeKey(it.Element.Value)
		if err != nil {
			return nil, platform.Corrupted("key %x of %s: %v", it.Key, id, err)
		}
		keys = append(keys, *k)
	}
	return keys, nil
}

// IdentityNonce returns the stored identity nonce word, 0 when none. Its low
// 40 bits are the highest accepted nonce.
func (d *Drive) IdentityNonce(tx state.Transaction, id inter.Identifier) (uint64, error) {
	v, _, err := d.GetU64(tx, IdentityPath(id), KeyNonce)
	return v, err
}

// IdentityContractNonce returns the stored nonce word of id for contract.
func (d *Drive) IdentityContractNonce(tx state.Transaction, id, contract inter.Identifier) (uint64, error) {
	v, _, err := d.GetU64(tx, ContractNoncesPath(id), contract.Bytes())
	return v, err
}

// KeyHashOwner returns the identity a key hash is registered to.
func (d *Drive) KeyHashOwner(tx state.Transaction, h [20]byte) (inter.Identifier, bool, error) {
	e, err := d.Get(tx, KeyHashesPath, h[:])
	if err != nil || e == nil {
		return inter.ZeroIdentifier, false, err
	}
	id, err := inter.IdentifierFromBytes(e.Value)
	if err != nil {
		return inter.ZeroIdentifier, false, platform.Corrupted("key hash %x: %v", h, err)
	}
	return id, true, nil
}

func SetBalanceOp(id inter.Identifier, balance uint64) state.Op {
	return PutU64(BalancesPath, id.Bytes(), balance)
}

func SetRevisionOp(id inter.Identifier, revision uint64) state.Op {
	return PutU64(IdentityPath(id), KeyRevision, revision)
}

func SetNonceOp(id inter.Identifier, nonce uint64) state.Op {
	return PutU64(IdentityPath(id), KeyNonce, nonce)
}

func SetContractNonceOp(id, contract inter.Identifier, nonce uint64) state.Op {
	return PutU64(ContractNoncesPath(id), contract.Bytes(), nonce)
}

// AddKeyOps stores key on id and registers its hash.
func AddKeyOps(id inter.Identifier, key dpp.IdentityPublicKey) ([]state.Op, error) {
	b, err := dpp.EncodeKey(&key)
	if err != nil {
		return nil, err
	}
	h := key.Hash()
	return []state.Op{
		state.Insert(KeysPath(id), bigendian.Uint32ToBytes(key.ID), b),
		state.Insert(KeyHashesPath, h[:], id.Bytes()),
	}, nil
}

// ReplaceKeyOp rewrites an existing key, e.g. to disable it.
func ReplaceKeyOp(id inter.Identifier, key dpp.IdentityPublicKey) (state.Op, error) {
	b, err := dpp.EncodeKey(&key)
	if err != nil {
		return state.Op{}, err
	}
	return state.Replace(KeysPath(id), bigendian.Uint32ToBytes(key.ID), b), nil
}

// CreateIdentityOps writes a new identity with its keys.
func CreateIdentityOps(identity *dpp.Identity) ([]state.Op, error) {
	ops := []state.Op{
		SetBalanceOp(identity.ID, identity.Balance),
		SetRevisionOp(identity.ID, identity.Revision),
	}
	for _, k := range identity.PublicKeys {
		kops, err := AddKeyOps(identity.ID, k)
		if err != nil {
			return nil, err
		}
		ops = append(ops, kops...)
	}
	return ops, nil
}
