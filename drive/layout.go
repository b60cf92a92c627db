package drive

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"

	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/state"
)

// Root subtrees of the platform state.
var (
	BalancesPath     = state.P("balances")
	IdentitiesPath   = state.P("identities")
	KeyHashesPath    = state.P("unique_key_hashes")
	ContractsPath    = state.P("contracts")
	ContractHistPath = state.P("contract_history")
	DocumentsPath    = state.P("documents")
	TokensPath       = state.P("tokens")
	PoolsPath        = state.P("pools")
	StorageBuckets   = state.P("pools", "storage")
	EpochsPath       = state.P("epochs")
	SettlementsPath  = state.P("epochs", "settlements")
	BlocksPath       = state.P("blocks")
	MasternodesPath  = state.P("masternodes")
	QuorumPath       = state.P("quorum")
	WithdrawalsPath  = state.P("withdrawals", "queue")
	AssetLocksPath   = state.P("asset_locks")
	HistoryPath      = state.P("history")
	CountersPath     = state.P("counters")
)

// Item keys of singleton values.
var (
	KeyRevision        = []byte("revision")
	KeyNonce           = []byte("nonce")
	KeyProcessingPool  = []byte("processing")
	KeyCarry           = []byte("carry")
	KeySystemCredits   = []byte("system_credits")
	KeyCurrentEpoch    = []byte("current")
	KeyActiveQuorum    = []byte("active")
	KeySupply          = []byte("supply")
	KeyWithdrawalIndex = []byte("withdrawal_index")
	KeyHistoryIndex    = []byte("history_index")
)

func IdentityPath(id inter.Identifier) state.Path {
	return IdentitiesPath.Child(id.Bytes())
}

func KeysPath(id inter.Identifier) state.Path {
	return IdentityPath(id).Child([]byte("keys"))
}

func ContractNoncesPath(id inter.Identifier) state.Path {
	return IdentityPath(id).Child([]byte("contract_nonces"))
}

func DocumentTypePath(contract inter.Identifier, typeName string) state.Path {
	return DocumentsPath.Child(contract.Bytes()).Child([]byte(typeName))
}

func IndexPath(contract inter.Identifier, typeName, index string) state.Path {
	return DocumentTypePath(contract, typeName).Child([]byte("idx")).Child([]byte(index))
}

func ContractVersionsPath(contract inter.Identifier) state.Path {
	return ContractHistPath.Child(contract.Bytes())
}

func TokenPath(token inter.Identifier) state.Path {
	return TokensPath.Child(token.Bytes())
}

func TokenBalancesPath(token inter.Identifier) state.Path {
	return TokenPath(token).Child([]byte("balances"))
}

func TokenFrozenPath(token inter.Identifier) state.Path {
	return TokenPath(token).Child([]byte("frozen"))
}

func U64(v uint64) []byte { return bigendian.Uint64ToBytes(v) }

func U32(v uint32) []byte { return bigendian.Uint32ToBytes(v) }
