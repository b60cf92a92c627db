// Package genesis defines the initial state of a platform chain.
//
// A genesis file is TOML. It names the network whose rules apply, the
// genesis time, the protocol version activated at height 1, the identities
// funded at genesis and the masternodes the first quorum is derived from.
// Every node of a network must start from the same file: the genesis state
// root is the first app hash.
package genesis

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Fantom-foundation/lachesis-base/inter/pos"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/dashpay/platform-sub039/crypto"
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/inter/drivertype"
	"github.com/dashpay/platform-sub039/inter/validatorpk"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/utils/checked"
)

var (
	ErrUnknownNetwork    = errors.New("unknown network")
	ErrChainIDMismatch   = errors.New("chain id does not match network")
	ErrDuplicateIdentity = errors.New("duplicate genesis identity")
	ErrDuplicateNode     = errors.New("duplicate genesis masternode")
	ErrNoMasternodes     = errors.New("genesis has no eligible masternode")
)

// Key is an identity public key in its file form.
type Key struct {
	ID       uint32
	Type     dpp.KeyType
	Purpose  dpp.Purpose
	Level    dpp.SecurityLevel
	Data     hexutil.Bytes
	ReadOnly bool `toml:",omitempty"`
}

// Identity is an identity funded at genesis.
type Identity struct {
	ID      inter.Identifier
	Balance uint64
	Keys    []Key
}

// Masternode is a masternode registered at genesis.
type Masternode struct {
	ProTxHash common.Hash
	Weight    pos.Weight
	PubKey    validatorpk.PubKey
	Banned    bool `toml:",omitempty"`
}

// Genesis is the content of a genesis file.
type Genesis struct {
	Network         string
	ChainID         string
	Time            time.Time
	ProtocolVersion uint32

	Identities  []Identity   `toml:"Identity"`
	Masternodes []Masternode `toml:"Masternode"`
}

// Load reads a genesis file.
func Load(path string) (*Genesis, error) {
	var g Genesis
	if _, err := toml.DecodeFile(path, &g); err != nil {
		return nil, fmt.Errorf("genesis %s: %w", path, err)
	}
	return &g, nil
}

// Write encodes g in its file form.
func (g *Genesis) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(g)
}

// Save writes g to path.
func (g *Genesis) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := g.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Rules returns the network rules named by the file.
func (g *Genesis) Rules() (platform.Rules, error) {
	rules, ok := platform.RulesByName(g.Network)
	if !ok {
		return platform.Rules{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, g.Network)
	}
	return rules, nil
}

// Timestamp is the genesis time in block time units.
func (g *Genesis) Timestamp() inter.Timestamp {
	return inter.FromTime(g.Time)
}

// Validate checks the file against the network rules.
func (g *Genesis) Validate() error {
	rules, err := g.Rules()
	if err != nil {
		return err
	}
	if g.ChainID != rules.ChainID {
		return fmt.Errorf("%w: %q, want %q", ErrChainIDMismatch, g.ChainID, rules.ChainID)
	}
	if !rules.Versions.Has(g.ProtocolVersion) {
		return &platform.UnknownProtocolVersion{Version: g.ProtocolVersion, Known: rules.Versions.Versions()}
	}
	if _, err := g.TotalCredits(); err != nil {
		return fmt.Errorf("genesis balances: %w", err)
	}

	seen := make(map[inter.Identifier]bool, len(g.Identities))
	for i, id := range g.Identities {
		if id.ID.IsZero() {
			return fmt.Errorf("identity %d: zero identifier", i)
		}
		if seen[id.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateIdentity, id.ID)
		}
		seen[id.ID] = true
		if len(id.Keys) == 0 {
			return fmt.Errorf("identity %s: no keys", id.ID)
		}
	}

	nodes := make(map[common.Hash]bool, len(g.Masternodes))
	var eligible int
	for _, mn := range g.Masternodes {
		if nodes[mn.ProTxHash] {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, mn.ProTxHash.Hex())
		}
		nodes[mn.ProTxHash] = true
		if err := mn.PubKey.Validate(); err != nil {
			return fmt.Errorf("masternode %s: %w", mn.ProTxHash.Hex(), err)
		}
		if mn.node().Eligible() {
			eligible++
		}
	}
	if eligible == 0 {
		return ErrNoMasternodes
	}
	return nil
}

// TotalCredits is the number of credits issued at genesis.
func (g *Genesis) TotalCredits() (uint64, error) {
	var total uint64
	for _, id := range g.Identities {
		var err error
		if total, err = checked.Add(total, id.Balance); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// PlatformIdentities converts the identities, keys ordered by id.
func (g *Genesis) PlatformIdentities() []dpp.Identity {
	out := make([]dpp.Identity, 0, len(g.Identities))
	for _, id := range g.Identities {
		identity := dpp.Identity{ID: id.ID, Balance: id.Balance}
		for _, k := range id.Keys {
			identity.PublicKeys = append(identity.PublicKeys, dpp.IdentityPublicKey{
				ID:            k.ID,
				Type:          k.Type,
				Purpose:       k.Purpose,
				SecurityLevel: k.Level,
				Data:          common.CopyBytes(k.Data),
				ReadOnly:      k.ReadOnly,
			})
		}
		sort.Slice(identity.PublicKeys, func(i, j int) bool {
			return identity.PublicKeys[i].ID < identity.PublicKeys[j].ID
		})
		out = append(out, identity)
	}
	return out
}

func (mn Masternode) node() drivertype.Masternode {
	status := drivertype.OkStatus
	if mn.Banned {
		status |= drivertype.BannedBit
	}
	return drivertype.Masternode{
		ProTxHash: inter.ProTxHash(mn.ProTxHash),
		Weight:    mn.Weight,
		PubKey:    mn.PubKey.Copy(),
		Status:    status,
	}
}

// MasternodeList converts the masternodes.
func (g *Genesis) MasternodeList() []drivertype.Masternode {
	out := make([]drivertype.Masternode, len(g.Masternodes))
	for i, mn := range g.Masternodes {
		out[i] = mn.node()
	}
	return out
}

// FakeKeyRoles are the keys every fake identity gets, in key id order.
var FakeKeyRoles = []struct {
	Purpose dpp.Purpose
	Level   dpp.SecurityLevel
}{
	{dpp.PurposeAuthentication, dpp.SecurityLevelMaster},
	{dpp.PurposeTransfer, dpp.SecurityLevelCritical},
	{dpp.PurposeWithdraw, dpp.SecurityLevelCritical},
	{dpp.PurposeAuthentication, dpp.SecurityLevelHigh},
}

// FakeIdentityID is the identifier of fake identity i.
func FakeIdentityID(i int) inter.Identifier {
	return inter.DeriveIdentifier([]byte(fmt.Sprintf("fake/identity/%d", i)))
}

// FakeSigner is the signer of key of fake identity i.
func FakeSigner(i int, key uint32) *crypto.Signer {
	return crypto.DeterministicSigner(fmt.Sprintf("fake/identity/%d/key/%d", i, key))
}

// FakeProTxHash is the registration hash of fake masternode i.
func FakeProTxHash(i int) inter.ProTxHash {
	return inter.ProTxHash(inter.DeriveIdentifier([]byte(fmt.Sprintf("fake/masternode/%d", i))))
}

// FakeGenesis builds a fakenet genesis with deterministic keys: identities
// funded with balance each and masternodes of equal weight. Masternode i
// also gets an identity so it can be paid.
func FakeGenesis(identities, masternodes int, balance uint64, at time.Time) *Genesis {
	rules := platform.FakeNetRules()
	g := &Genesis{
		Network:         rules.Name,
		ChainID:         rules.ChainID,
		Time:            at.UTC().Truncate(time.Millisecond),
		ProtocolVersion: rules.InitialProtocolVersion,
	}
	for i := 0; i < identities; i++ {
		id := Identity{ID: FakeIdentityID(i), Balance: balance}
		for k, role := range FakeKeyRoles {
			id.Keys = append(id.Keys, Key{
				ID:      uint32(k),
				Type:    dpp.KeyTypeECDSASecp256k1,
				Purpose: role.Purpose,
				Level:   role.Level,
				Data:    FakeSigner(i, uint32(k)).PublicKey(),
			})
		}
		g.Identities = append(g.Identities, id)
	}
	for i := 0; i < masternodes; i++ {
		pro := FakeProTxHash(i)
		signer := crypto.DeterministicSigner(fmt.Sprintf("fake/masternode/%d/operator", i))
		g.Masternodes = append(g.Masternodes, Masternode{
			ProTxHash: common.Hash(pro),
			Weight:    1,
			PubKey:    validatorpk.PubKey{Type: validatorpk.Types.Secp256k1, Raw: signer.PublicKey()},
		})
		g.Identities = append(g.Identities, Identity{
			ID: inter.Identifier(pro),
			Keys: []Key{{
				Type:    dpp.KeyTypeECDSASecp256k1,
				Purpose: dpp.PurposeAuthentication,
				Level:   dpp.SecurityLevelMaster,
				Data:    signer.PublicKey(),
			}},
		})
	}
	return g
}
