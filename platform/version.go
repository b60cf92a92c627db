package platform

import (
	"encoding/json"
	"sort"

	"github.com/dashpay/platform-sub039/inter"
)

// FeatureVersion selects one implementation of a named operation.
type FeatureVersion uint16

// FeatureVersionBounds limits the feature versions clients may submit.
type FeatureVersionBounds struct {
	Min FeatureVersion
	Max FeatureVersion
}

// Contains reports whether v is accepted.
func (b FeatureVersionBounds) Contains(v FeatureVersion) bool {
	return v >= b.Min && v <= b.Max
}

// TransitionMethodVersions selects the algorithm of every validation stage
// for one transition kind.
type TransitionMethodVersions struct {
	Structure FeatureVersion
	Signature FeatureVersion
	State     FeatureVersion
	Accepted  FeatureVersionBounds
}

// ValidationVersions covers every transition kind.
type ValidationVersions struct {
	IdentityCreate   TransitionMethodVersions
	IdentityTopUp    TransitionMethodVersions
	IdentityUpdate   TransitionMethodVersions
	CreditTransfer   TransitionMethodVersions
	CreditWithdrawal TransitionMethodVersions
	ContractCreate   TransitionMethodVersions
	ContractUpdate   TransitionMethodVersions
	DocumentsBatch   TransitionMethodVersions
	TokensBatch      TransitionMethodVersions
}

// DriveVersions selects how actions become store operations.
type DriveVersions struct {
	Apply    FeatureVersion
	Estimate FeatureVersion
}

// FeeSchedule holds the credit prices. Values are consensus constants of a
// protocol version and are never taken from runtime configuration.
type FeeSchedule struct {
	// StorageDiskUsageCreditPerByte prices one byte kept for the full
	// prepaid storage life (all eras).
	StorageDiskUsageCreditPerByte uint64
	// StorageProcessingCreditPerByte prices writing, replacing or removing a byte.
	StorageProcessingCreditPerByte uint64
	// StorageLoadCreditPerByte prices reading a stored byte.
	StorageLoadCreditPerByte uint64
	// NonStorageLoadCreditPerByte prices hashing and decoding input bytes.
	NonStorageLoadCreditPerByte uint64
	// StorageSeekCost prices one tree traversal.
	StorageSeekCost uint64

	EcdsaSecp256k1VerifyCost uint64
	EcdsaHash160VerifyCost   uint64
	Bls12381VerifyCost       uint64

	// BaseTransitionFee is added to the processing fee of every transition.
	BaseTransitionFee uint64
	// BumpNonceFee is the flat processing fee of a nonce-only action.
	BumpNonceFee uint64

	// Minimum fees a submitter must be able to cover on top of any moved amount.
	CreditTransferMinFee   uint64
	CreditWithdrawalMinFee uint64
	IdentityUpdateMinFee   uint64
	ContractCreateMinFee   uint64
	ContractUpdateMinFee   uint64
	DocumentMinFee         uint64
	TokenMinFee            uint64

	// DefaultUserFeeIncrease is the tip, in percent, wallets apply by default.
	DefaultUserFeeIncrease uint16
}

// FeeVersion selects fee algorithms and constants.
type FeeVersion struct {
	Calculation  FeatureVersion
	Distribution FeatureVersion
	Schedule     FeeSchedule
}

// NonceVersions configures replay protection.
type NonceVersions struct {
	Validation FeatureVersion
	// ForwardWindow is how far above the stored nonce a claimed nonce may be.
	ForwardWindow uint64
	// MaxValue bounds claimed nonces; the upper bits are reserved.
	MaxValue uint64
}

// EpochVersions configures epochs, eras and upgrade voting.
type EpochVersions struct {
	Manager   FeatureVersion
	StateHash FeatureVersion

	// Length is the wall time an epoch lasts, in milliseconds. The first block
	// later than EpochStart+Length closes the epoch.
	Length inter.Timestamp
	// Eras and EpochsPerEra bound the prepaid life of stored data.
	Eras         uint16
	EpochsPerEra uint16
	// UpgradeVoteThreshold is the percentage of an epoch's blocks that must
	// vote for a version before it activates.
	UpgradeVoteThreshold uint64
}

// PrepaidEpochs is the number of epochs a storage fee is spread across.
func (e EpochVersions) PrepaidEpochs() uint32 {
	return uint32(e.Eras) * uint32(e.EpochsPerEra)
}

// ValidatorSetVersions configures quorum derivation.
type ValidatorSetVersions struct {
	Rotation   FeatureVersion
	QuorumSize int
}

// Limits are structural bounds checked before any state access.
type Limits struct {
	MaxTransitionBytes      int
	MaxBlockTransitions     int
	MaxPublicKeysInCreation int
	MaxPublicKeysPerUpdate  int
	MaxBatchTransitions     int
	MaxDocumentTypes        int
	MaxDocumentProperties   int
	MaxIndices              int
	MaxFieldBytes           int
	MaxTokensPerContract    int
	MinWithdrawalAmount     uint64
	MinTransferAmount       uint64
	// CreditsPerDuff converts locked core-chain duffs into platform credits.
	CreditsPerDuff uint64
}

// PlatformVersion is the per-block snapshot of every algorithm version and
// versioned constant. It is immutable; share it freely.
type PlatformVersion struct {
	Protocol   uint32
	Validation ValidationVersions
	Drive      DriveVersions
	Fees       FeeVersion
	Nonce      NonceVersions
	Epochs     EpochVersions
	Validators ValidatorSetVersions
	Limits     Limits
}

func (pv PlatformVersion) String() string {
	b, _ := json.Marshal(&pv)
	return string(b)
}

// VersionTable maps protocol versions to platform versions for one network.
type VersionTable struct {
	versions map[uint32]*PlatformVersion
	sorted   []uint32
}

// NewVersionTable builds a table. Later entries win on duplicate numbers.
func NewVersionTable(versions ...PlatformVersion) *VersionTable {
	t := &VersionTable{versions: make(map[uint32]*PlatformVersion, len(versions))}
	for i := range versions {
		pv := versions[i]
		t.versions[pv.Protocol] = &pv
	}
	for v := range t.versions {
		t.sorted = append(t.sorted, v)
	}
	sort.Slice(t.sorted, func(i, j int) bool { return t.sorted[i] < t.sorted[j] })
	return t
}

// Get returns the platform version for protocol, or UnknownProtocolVersion.
func (t *VersionTable) Get(protocol uint32) (*PlatformVersion, error) {
	pv, ok := t.versions[protocol]
	if !ok {
		return nil, &UnknownProtocolVersion{Version: protocol, Known: t.Versions()}
	}
	return pv, nil
}

// Has reports whether protocol can be activated on this network.
func (t *VersionTable) Has(protocol uint32) bool {
	_, ok := t.versions[protocol]
	return ok
}

// Latest returns the highest known version.
func (t *VersionTable) Latest() *PlatformVersion {
	if len(t.sorted) == 0 {
		return nil
	}
	return t.versions[t.sorted[len(t.sorted)-1]]
}

// Versions lists the known protocol versions in ascending order.
func (t *VersionTable) Versions() []uint32 {
	out := make([]uint32, len(t.sorted))
	copy(out, t.sorted)
	return out
}
