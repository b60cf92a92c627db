package validation

import (
	"context"
	"fmt"

	"github.com/dashpay/platform-sub039/consensus"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/transition"
)

type (
	structureFn func(v *Validator, st transition.StateTransition) []*consensus.Error
	signatureFn func(ctx context.Context, v *Validator, st transition.StateTransition, info inter.BlockInfo, tx state.Transaction) (*authorization, []*consensus.Error, error)
	stateFn     func(v *Validator, st transition.StateTransition, auth *authorization, info inter.BlockInfo, tx state.Transaction) (Result, error)
)

// strategy is the resolved implementation of every stage of one kind.
type strategy struct {
	accepted  platform.FeatureVersionBounds
	structure structureFn
	signature signatureFn
	state     stateFn
}

var structureVersions = map[platform.FeatureVersion]map[transition.Kind]structureFn{
	0: {
		transition.KindIdentityCreate:   identityCreateStructureV0,
		transition.KindIdentityTopUp:    identityTopUpStructureV0,
		transition.KindIdentityUpdate:   identityUpdateStructureV0,
		transition.KindCreditTransfer:   creditTransferStructureV0,
		transition.KindCreditWithdrawal: creditWithdrawalStructureV0,
		transition.KindContractCreate:   contractCreateStructureV0,
		transition.KindContractUpdate:   contractUpdateStructureV0,
		transition.KindDocumentsBatch:   documentsBatchStructureV0,
		transition.KindTokensBatch:      tokensBatchStructureV0,
	},
}

var signatureVersions = map[platform.FeatureVersion]map[transition.Kind]signatureFn{
	0: {
		transition.KindIdentityCreate:   identityCreateSignatureV0,
		transition.KindIdentityTopUp:    identityTopUpSignatureV0,
		transition.KindIdentityUpdate:   identitySignedV0,
		transition.KindCreditTransfer:   identitySignedV0,
		transition.KindCreditWithdrawal: identitySignedV0,
		transition.KindContractCreate:   identitySignedV0,
		transition.KindContractUpdate:   identitySignedV0,
		transition.KindDocumentsBatch:   identitySignedV0,
		transition.KindTokensBatch:      identitySignedV0,
	},
}

var stateVersions = map[platform.FeatureVersion]map[transition.Kind]stateFn{
	0: {
		transition.KindIdentityCreate:   identityCreateStateV0,
		transition.KindIdentityTopUp:    identityTopUpStateV0,
		transition.KindIdentityUpdate:   identityUpdateStateV0,
		transition.KindCreditTransfer:   creditTransferStateV0,
		transition.KindCreditWithdrawal: creditWithdrawalStateV0,
		transition.KindContractCreate:   contractCreateStateV0,
		transition.KindContractUpdate:   contractUpdateStateV0,
		transition.KindDocumentsBatch:   documentsBatchStateV0,
		transition.KindTokensBatch:      tokensBatchStateV0,
	},
}

func methodVersions(pv *platform.PlatformVersion, kind transition.Kind) platform.TransitionMethodVersions {
	vv := pv.Validation
	switch kind {
	case transition.KindIdentityCreate:
		return vv.IdentityCreate
	case transition.KindIdentityTopUp:
		return vv.IdentityTopUp
	case transition.KindIdentityUpdate:
		return vv.IdentityUpdate
	case transition.KindCreditTransfer:
		return vv.CreditTransfer
	case transition.KindCreditWithdrawal:
		return vv.CreditWithdrawal
	case transition.KindContractCreate:
		return vv.ContractCreate
	case transition.KindContractUpdate:
		return vv.ContractUpdate
	case transition.KindDocumentsBatch:
		return vv.DocumentsBatch
	default:
		return vv.TokensBatch
	}
}

func resolveStrategy(kind transition.Kind, mv platform.TransitionMethodVersions) (*strategy, error) {
	name := func(stage string) string { return fmt.Sprintf("validation.%s.%s", kind, stage) }

	structures, err := platform.Dispatch(name("structure"), mv.Structure, structureVersions)
	if err != nil {
		return nil, err
	}
	signatures, err := platform.Dispatch(name("signature"), mv.Signature, signatureVersions)
	if err != nil {
		return nil, err
	}
	states, err := platform.Dispatch(name("state"), mv.State, stateVersions)
	if err != nil {
		return nil, err
	}
	s := &strategy{
		accepted:  mv.Accepted,
		structure: structures[kind],
		signature: signatures[kind],
		state:     states[kind],
	}
	if s.structure == nil || s.signature == nil || s.state == nil {
		return nil, &platform.UnknownVersionMismatch{Method: name("all"), Received: mv.Structure}
	}
	return s, nil
}
