package dpp

import (
	"sort"

	"github.com/dashpay/platform-sub039/inter"
)

// Identity is a platform account. Keys are kept sorted by ID.
type Identity struct {
	ID         inter.Identifier
	Balance    uint64
	Revision   uint64
	PublicKeys []IdentityPublicKey
}

// Key returns the key with the given ID.
func (i *Identity) Key(id uint32) (*IdentityPublicKey, bool) {
	n := sort.Search(len(i.PublicKeys), func(j int) bool { return i.PublicKeys[j].ID >= id })
	if n < len(i.PublicKeys) && i.PublicKeys[n].ID == id {
		return &i.PublicKeys[n], true
	}
	return nil, false
}

// MaxKeyID returns the highest key ID in use.
func (i *Identity) MaxKeyID() (uint32, bool) {
	if len(i.PublicKeys) == 0 {
		return 0, false
	}
	return i.PublicKeys[len(i.PublicKeys)-1].ID, true
}

// SortKeys restores key order after external construction.
func (i *Identity) SortKeys() {
	sort.Slice(i.PublicKeys, func(a, b int) bool { return i.PublicKeys[a].ID < i.PublicKeys[b].ID })
}

// HasActiveMaster reports whether any enabled authentication key is MASTER.
func (i *Identity) HasActiveMaster() bool {
	for _, k := range i.PublicKeys {
		if k.Purpose == PurposeAuthentication && k.SecurityLevel == SecurityLevelMaster && !k.IsDisabled() {
			return true
		}
	}
	return false
}
