package validation

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/dashpay/platform-sub039/consensus"
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/utils/checked"
)

// AssetLockVerifier confirms with the core chain that an asset lock exists
// and is final. Implementations must honour ctx.
type AssetLockVerifier interface {
	VerifyAssetLock(ctx context.Context, proof *dpp.AssetLockProof) error
}

// ErrAssetLockVerifierTimeout is reported when the core chain did not
// answer in time.
var ErrAssetLockVerifierTimeout = errors.New("asset lock verification timed out")

// verifyAssetLock checks proof against the store, the block's chain-locked
// height and the core chain. It returns the locked amount in credits.
func (v *Validator) verifyAssetLock(ctx context.Context, proof *dpp.AssetLockProof, info inter.BlockInfo, tx state.Transaction) (uint64, *consensus.Error, error) {
	credits, err := checked.Mul(proof.Amount, v.pv.Limits.CreditsPerDuff)
	if err != nil {
		return 0, consensus.New(consensus.InvalidAssetLockProof, consensus.Text("reason", "amount"), consensus.Uint("amount", proof.Amount)), nil
	}
	spent, err := v.drive.AssetLockSpent(tx, proof.OutPoint)
	if err != nil {
		return 0, nil, err
	}
	if spent {
		return 0, consensus.New(consensus.AssetLockAlreadySpent, consensus.Bytes("outpoint", proof.OutPoint[:])), nil
	}
	if proof.Type == dpp.AssetLockChain && proof.CoreChainLockedHeight > info.CoreChainLockedHeight {
		return 0, consensus.New(consensus.AssetLockNotChainLocked,
			consensus.Uint("height", uint64(proof.CoreChainLockedHeight)),
			consensus.Uint("locked", uint64(info.CoreChainLockedHeight))), nil
	}
	if v.cfg.AssetLocks == nil {
		return credits, nil, nil
	}

	cctx, cancel := context.WithTimeout(ctx, v.cfg.AssetLockTimeout)
	defer cancel()
	err = v.cfg.AssetLocks.VerifyAssetLock(cctx, proof)
	if err == nil {
		return credits, nil, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded) {
		err = ErrAssetLockVerifierTimeout
	}
	v.cfg.Log.WithFields(logrus.Fields{
		"outpoint": proof.OutPoint,
		"err":      err,
	}).Warn("Asset lock verification failed")
	return 0, consensus.New(consensus.AssetLockVerificationFailed, consensus.Text("reason", err.Error())), nil
}
