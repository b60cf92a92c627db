// Package platform defines the protocol versions and network rules of the
// platform chain.
//
// This package provides:
//   - Network identification (MainNet, TestNet, FakeNet)
//   - The VersionTable of every network, mapping a protocol version to a
//     PlatformVersion snapshot
//   - Fee schedules, nonce windows, epoch and era geometry, structural limits
//   - The fatal error classes raised when a node cannot interpret the protocol
//
// A PlatformVersion is resolved once per block from the activated protocol
// version and handed to every component. Nothing in it is runtime
// configurable: changing any value is a protocol upgrade.
package platform

import (
	"encoding/json"
	"time"

	"github.com/dashpay/platform-sub039/inter"
)

// Network identification constants
const (
	MainNetChainID = "platform-1"
	TestNetChainID = "platform-testnet-1"
	FakeNetChainID = "platform-fakenet"

	// MaxNonceValue keeps the upper 24 bits of a nonce reserved.
	MaxNonceValue = 1<<40 - 1

	// DefaultNonceWindow is how many nonces a client may skip ahead.
	DefaultNonceWindow = 24
)

// Rules identifies a network and the protocol versions it knows.
type Rules struct {
	Name    string
	ChainID string

	// InitialProtocolVersion is activated at genesis.
	InitialProtocolVersion uint32

	// Versions is every protocol version this node can execute on the network.
	Versions *VersionTable `json:"-"`
}

// MainNetRules returns the production network configuration.
func MainNetRules() Rules {
	return Rules{
		Name:                   "main",
		ChainID:                MainNetChainID,
		InitialProtocolVersion: 1,
		Versions:               NewVersionTable(MainNetV1(), MainNetV2()),
	}
}

// TestNetRules mirrors mainnet with one-hour epochs so rollover can be
// observed within a day.
func TestNetRules() Rules {
	v1, v2 := MainNetV1(), MainNetV2()
	v1.Epochs.Length = inter.Timestamp(time.Hour / time.Millisecond)
	v2.Epochs.Length = v1.Epochs.Length
	return Rules{
		Name:                   "test",
		ChainID:                TestNetChainID,
		InitialProtocolVersion: 1,
		Versions:               NewVersionTable(v1, v2),
	}
}

// FakeNetRules returns accelerated rules for local networks and tests:
//   - one-minute epochs
//   - 2 eras x 2 epochs of prepaid storage
//   - fees scaled down so test identities can hold small balances
//   - a quorum of four
func FakeNetRules() Rules {
	return Rules{
		Name:                   "fake",
		ChainID:                FakeNetChainID,
		InitialProtocolVersion: 1,
		Versions:               NewVersionTable(FakeNetV1(), FakeNetV2()),
	}
}

// RulesByName returns the rules of a named network.
func RulesByName(name string) (Rules, bool) {
	switch name {
	case "main", "mainnet":
		return MainNetRules(), true
	case "test", "testnet":
		return TestNetRules(), true
	case "fake", "fakenet":
		return FakeNetRules(), true
	}
	return Rules{}, false
}

// defaultTransitionVersions accepts feature version 0 of every kind and runs
// version 0 of every stage.
func defaultTransitionVersions() TransitionMethodVersions {
	return TransitionMethodVersions{Accepted: FeatureVersionBounds{Min: 0, Max: 0}}
}

func defaultValidationVersions() ValidationVersions {
	v := defaultTransitionVersions()
	return ValidationVersions{
		IdentityCreate:   v,
		IdentityTopUp:    v,
		IdentityUpdate:   v,
		CreditTransfer:   v,
		CreditWithdrawal: v,
		ContractCreate:   v,
		ContractUpdate:   v,
		DocumentsBatch:   v,
		TokensBatch:      v,
	}
}

// DefaultFeeSchedule returns the mainnet credit prices of protocol version 1.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		StorageDiskUsageCreditPerByte:  27000,
		StorageProcessingCreditPerByte: 400,
		StorageLoadCreditPerByte:       20,
		NonStorageLoadCreditPerByte:    10,
		StorageSeekCost:                2000,
		EcdsaSecp256k1VerifyCost:       3000,
		EcdsaHash160VerifyCost:         4000,
		Bls12381VerifyCost:             6000,
		BaseTransitionFee:              10000,
		BumpNonceFee:                   10000,
		CreditTransferMinFee:           100000,
		CreditWithdrawalMinFee:         400000,
		IdentityUpdateMinFee:           100000,
		ContractCreateMinFee:           100000,
		ContractUpdateMinFee:           100000,
		DocumentMinFee:                 100000,
		TokenMinFee:                    100000,
		DefaultUserFeeIncrease:         0,
	}
}

// DefaultLimits returns the structural limits shared by all networks.
func DefaultLimits() Limits {
	return Limits{
		MaxTransitionBytes:      20 * 1024,
		MaxBlockTransitions:     1000,
		MaxPublicKeysInCreation: 6,
		MaxPublicKeysPerUpdate:  10,
		MaxBatchTransitions:     10,
		MaxDocumentTypes:        16,
		MaxDocumentProperties:   32,
		MaxIndices:              10,
		MaxFieldBytes:           5 * 1024,
		MaxTokensPerContract:    4,
		MinWithdrawalAmount:     190000,
		MinTransferAmount:       1,
		CreditsPerDuff:          1000,
	}
}

// MainNetV1 is the genesis protocol version.
func MainNetV1() PlatformVersion {
	return PlatformVersion{
		Protocol:   1,
		Validation: defaultValidationVersions(),
		Fees:       FeeVersion{Schedule: DefaultFeeSchedule()},
		Nonce: NonceVersions{
			ForwardWindow: DefaultNonceWindow,
			MaxValue:      MaxNonceValue,
		},
		Epochs: EpochVersions{
			StateHash:            0,
			Length:               inter.Timestamp(788400 * time.Second / time.Millisecond),
			Eras:                 50,
			EpochsPerEra:         40,
			UpgradeVoteThreshold: 75,
		},
		Validators: ValidatorSetVersions{QuorumSize: 100},
		Limits:     DefaultLimits(),
	}
}

// MainNetV2 hashes the full epoch state, vote counters included, and lowers
// the storage processing price.
func MainNetV2() PlatformVersion {
	pv := MainNetV1()
	pv.Protocol = 2
	pv.Epochs.StateHash = 1
	pv.Fees.Schedule.StorageProcessingCreditPerByte = 350
	return pv
}

// FakeNetFeeSchedule keeps every price small and non-zero.
func FakeNetFeeSchedule() FeeSchedule {
	return FeeSchedule{
		StorageDiskUsageCreditPerByte:  4,
		StorageProcessingCreditPerByte: 1,
		StorageLoadCreditPerByte:       1,
		NonStorageLoadCreditPerByte:    0,
		StorageSeekCost:                1,
		EcdsaSecp256k1VerifyCost:       5,
		EcdsaHash160VerifyCost:         5,
		Bls12381VerifyCost:             8,
		BaseTransitionFee:              10,
		BumpNonceFee:                   10,
		CreditTransferMinFee:           10,
		CreditWithdrawalMinFee:         10,
		IdentityUpdateMinFee:           10,
		ContractCreateMinFee:           10,
		ContractUpdateMinFee:           10,
		DocumentMinFee:                 10,
		TokenMinFee:                    10,
	}
}

// FakeNetV1 is protocol version 1 with accelerated parameters.
func FakeNetV1() PlatformVersion {
	pv := MainNetV1()
	pv.Fees.Schedule = FakeNetFeeSchedule()
	pv.Epochs.Length = inter.Timestamp(time.Minute / time.Millisecond)
	pv.Epochs.Eras = 2
	pv.Epochs.EpochsPerEra = 2
	pv.Validators.QuorumSize = 4
	pv.Limits.MinWithdrawalAmount = 1
	return pv
}

// FakeNetV2 is FakeNetV1 with the v2 epoch state hashing.
func FakeNetV2() PlatformVersion {
	pv := FakeNetV1()
	pv.Protocol = 2
	pv.Epochs.StateHash = 1
	return pv
}

// String returns a JSON representation for logs.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
