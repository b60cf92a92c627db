package consensus

// Code identifies a consensus error. Codes are grouped by the validation
// stage that raises them and are part of the protocol: a code, once
// assigned, is never reused.
type Code uint32

// Structure stage.
const (
	UnsupportedFeatureVersion Code = 10001 + iota
	InvalidEncoding
	MaxTransitionSizeExceeded
	InvalidIdentifier
	InvalidAmount
	NonceOutOfBounds
	TooManyPublicKeys
	DuplicatePublicKeyID
	InvalidPublicKeyData
	MissingMasterPublicKey
	InvalidAssetLockProof
	EmptyBatch
	TooManyBatchTransitions
	InvalidContractStructure
	InvalidDocumentStructure
	InvalidTokenStructure
	WithdrawalBelowMinimum
	SelfTransfer
)

// Identity and signature stage.
const (
	IdentityNotFound Code = 20001 + iota
	PublicKeyNotFound
	PublicKeyDisabled
	InvalidSignaturePublicKeySecurityLevel
	InvalidSignaturePublicKeyPurpose
	InvalidSignature
	AssetLockAlreadySpent
	AssetLockNotChainLocked
	AssetLockVerificationFailed
)

// Fee checks.
const (
	InsufficientBalance Code = 30001 + iota
)

// State stage.
const (
	NonceAlreadyUsed Code = 40001 + iota
	NonceTooFarInFuture
	IdentityAlreadyExists
	DuplicatePublicKeyHash
	InvalidIdentityRevision
	MasterKeyCannotBeDisabled
	RecipientNotFound
	DataContractNotFound
	DataContractAlreadyExists
	InvalidDataContractVersion
	DataContractOwnerMismatch
	IncompatibleDataContractUpdate
	DocumentTypeNotFound
	DocumentNotFound
	DocumentAlreadyExists
	InvalidDocumentRevision
	DocumentOwnerMismatch
	DuplicateUniqueIndex
	DocumentNotMutable
	DocumentNotDeletable
	DocumentNotTransferable
	DocumentNotForSale
	DocumentPriceMismatch
	TokenNotFound
	InsufficientTokenBalance
	TokenAccountFrozen
	TokenMaxSupplyExceeded
	TokenUnauthorized
)

var codeNames = map[Code]string{
	UnsupportedFeatureVersion: "UnsupportedFeatureVersion",
	InvalidEncoding:           "InvalidEncoding",
	MaxTransitionSizeExceeded: "MaxTransitionSizeExceeded",
	InvalidIdentifier:         "InvalidIdentifier",
	InvalidAmount:             "InvalidAmount",
	NonceOutOfBounds:          "NonceOutOfBounds",
	TooManyPublicKeys:         "TooManyPublicKeys",
	DuplicatePublicKeyID:      "DuplicatePublicKeyID",
	InvalidPublicKeyData:      "InvalidPublicKeyData",
	MissingMasterPublicKey:    "MissingMasterPublicKey",
	InvalidAssetLockProof:     "InvalidAssetLockProof",
	EmptyBatch:                "EmptyBatch",
	TooManyBatchTransitions:   "TooManyBatchTransitions",
	InvalidContractStructure:  "InvalidContractStructure",
	InvalidDocumentStructure:  "InvalidDocumentStructure",
	InvalidTokenStructure:     "InvalidTokenStructure",
	WithdrawalBelowMinimum:    "WithdrawalBelowMinimum",
	SelfTransfer:              "SelfTransfer",

	IdentityNotFound:                       "IdentityNotFound",
	PublicKeyNotFound:                      "PublicKeyNotFound",
	PublicKeyDisabled:                      "PublicKeyDisabled",
	InvalidSignaturePublicKeySecurityLevel: "InvalidSignaturePublicKeySecurityLevel",
	InvalidSignaturePublicKeyPurpose:       "InvalidSignaturePublicKeyPurpose",
	InvalidSignature:                       "InvalidSignature",
	AssetLockAlreadySpent:                  "AssetLockAlreadySpent",
	AssetLockNotChainLocked:                "AssetLockNotChainLocked",
	AssetLockVerificationFailed:            "AssetLockVerificationFailed",

	InsufficientBalance: "InsufficientBalance",

	NonceAlreadyUsed:               "NonceAlreadyUsed",
	NonceTooFarInFuture:            "NonceTooFarInFuture",
	IdentityAlreadyExists:          "IdentityAlreadyExists",
	DuplicatePublicKeyHash:         "DuplicatePublicKeyHash",
	InvalidIdentityRevision:        "InvalidIdentityRevision",
	MasterKeyCannotBeDisabled:      "MasterKeyCannotBeDisabled",
	RecipientNotFound:              "RecipientNotFound",
	DataContractNotFound:           "DataContractNotFound",
	DataContractAlreadyExists:      "DataContractAlreadyExists",
	InvalidDataContractVersion:     "InvalidDataContractVersion",
	DataContractOwnerMismatch:      "DataContractOwnerMismatch",
	IncompatibleDataContractUpdate: "IncompatibleDataContractUpdate",
	DocumentTypeNotFound:           "DocumentTypeNotFound",
	DocumentNotFound:               "DocumentNotFound",
	DocumentAlreadyExists:          "DocumentAlreadyExists",
	InvalidDocumentRevision:        "InvalidDocumentRevision",
	DocumentOwnerMismatch:          "DocumentOwnerMismatch",
	DuplicateUniqueIndex:           "DuplicateUniqueIndex",
	DocumentNotMutable:             "DocumentNotMutable",
	DocumentNotDeletable:           "DocumentNotDeletable",
	DocumentNotTransferable:        "DocumentNotTransferable",
	DocumentNotForSale:             "DocumentNotForSale",
	DocumentPriceMismatch:          "DocumentPriceMismatch",
	TokenNotFound:                  "TokenNotFound",
	InsufficientTokenBalance:       "InsufficientTokenBalance",
	TokenAccountFrozen:             "TokenAccountFrozen",
	TokenMaxSupplyExceeded:         "TokenMaxSupplyExceeded",
	TokenUnauthorized:              "TokenUnauthorized",
}

// Class is the validation stage family of a code.
type Class uint8

const (
	ClassStructure Class = iota + 1
	ClassSignature
	ClassFee
	ClassState
)

// Class returns the family of c, or 0 for unassigned codes.
func (c Code) Class() Class {
	switch c / 10000 {
	case 1:
		return ClassStructure
	case 2:
		return ClassSignature
	case 3:
		return ClassFee
	case 4:
		return ClassState
	}
	return 0
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Unknown"
}
