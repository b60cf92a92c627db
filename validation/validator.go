// Package validation turns decoded state transitions into executable
// actions.
//
// Every transition passes three stages against the block transaction:
// structure (stateless), identity and signature (read-only), and state.
// Consensus rejections are returned in the result; the error return carries
// only fatal conditions. A billable transition rejected after its owner has
// authenticated still consumes its nonce through a degraded bump action.
package validation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dashpay/platform-sub039/action"
	"github.com/dashpay/platform-sub039/consensus"
	"github.com/dashpay/platform-sub039/crypto"
	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/nonce"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/transition"
)

// DefaultAssetLockTimeout bounds one call to the core-chain verifier.
const DefaultAssetLockTimeout = 5 * time.Second

// Config holds the collaborators of a Validator.
type Config struct {
	Verifier         crypto.Verifier
	AssetLocks       AssetLockVerifier
	AssetLockTimeout time.Duration
	// Parallelism bounds structure pre-validation; 0 means GOMAXPROCS.
	Parallelism int
	Log         logrus.FieldLogger
}

// Result is the outcome of validating one transition.
type Result = consensus.ValidationResult[action.Action]

// Validator runs the validation stages bound to one platform version.
type Validator struct {
	drive      *drive.Drive
	contracts  *drive.ContractCache
	exec       *action.Executor
	nonces     *nonce.Validator
	pv         *platform.PlatformVersion
	strategies map[transition.Kind]*strategy
	cfg        Config
	tracer     trace.Tracer
}

// Resolve binds the stage implementations selected by pv. It fails with
// platform.UnknownVersionMismatch when pv asks for a version this node
// does not implement.
func Resolve(pv *platform.PlatformVersion, d *drive.Drive, contracts *drive.ContractCache, exec *action.Executor, cfg Config) (*Validator, error) {
	nonces, err := nonce.New(d, pv)
	if err != nil {
		return nil, err
	}
	strategies := make(map[transition.Kind]*strategy, len(transition.Kinds()))
	for _, kind := range transition.Kinds() {
		s, err := resolveStrategy(kind, methodVersions(pv, kind))
		if err != nil {
			return nil, err
		}
		strategies[kind] = s
	}
	if cfg.Verifier == nil {
		cfg.Verifier = crypto.Native{}
	}
	if cfg.AssetLockTimeout == 0 {
		cfg.AssetLockTimeout = DefaultAssetLockTimeout
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	return &Validator{
		drive:      d,
		contracts:  contracts,
		exec:       exec,
		nonces:     nonces,
		pv:         pv,
		strategies: strategies,
		cfg:        cfg,
		tracer:     otel.Tracer("platform/validation"),
	}, nil
}

// PlatformVersion returns the version the validator is bound to.
func (v *Validator) PlatformVersion() *platform.PlatformVersion { return v.pv }

// Process validates st against tx.
func (v *Validator) Process(ctx context.Context, st transition.StateTransition, info inter.BlockInfo, tx state.Transaction) (Result, error) {
	return v.ProcessChecked(ctx, st, v.CheckStructure(st), info, tx)
}

// ProcessChecked is Process with the structure stage already run, e.g. by
// PreValidate.
func (v *Validator) ProcessChecked(ctx context.Context, st transition.StateTransition, structure []*consensus.Error, info inter.BlockInfo, tx state.Transaction) (Result, error) {
	ctx, span := v.tracer.Start(ctx, "validation.process",
		trace.WithAttributes(attribute.String("kind", st.Kind().String())))
	defer span.End()

	res, err := v.process(ctx, st, structure, info, tx)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !res.IsValid():
		span.SetAttributes(attribute.Int64("code", int64(res.FirstError().Code)))
		span.SetStatus(codes.Ok, "rejected")
	default:
		span.SetStatus(codes.Ok, "accepted")
	}
	return res, err
}

// Admit runs the structure and signature stages only. It never produces an
// action and never writes, so tx may be nil to read committed state.
func (v *Validator) Admit(ctx context.Context, st transition.StateTransition, info inter.BlockInfo, tx state.Transaction) ([]*consensus.Error, error) {
	if errs := v.CheckStructure(st); len(errs) > 0 {
		return errs, nil
	}
	_, errs, err := v.strategies[st.Kind()].signature(ctx, v, st, info, tx)
	return errs, err
}

func (v *Validator) process(ctx context.Context, st transition.StateTransition, structure []*consensus.Error, info inter.BlockInfo, tx state.Transaction) (Result, error) {
	s := v.strategies[st.Kind()]
	billable := isBillable(st)
	if len(structure) > 0 && !billable {
		return consensus.Invalid[action.Action](structure...), nil
	}

	auth, sigErrs, err := s.signature(ctx, v, st, info, tx)
	if err != nil {
		return Result{}, err
	}
	if len(structure) > 0 {
		if len(sigErrs) > 0 {
			return consensus.Invalid[action.Action](structure...), nil
		}
		return v.reject(st, structure, v.pv.Fees.Schedule.BumpNonceFee, tx)
	}
	if len(sigErrs) > 0 {
		return consensus.Invalid[action.Action](sigErrs...), nil
	}

	res, err := s.state(v, st, auth, info, tx)
	if err != nil {
		return Result{}, err
	}
	if res.IsValid() || !billable {
		return res, nil
	}
	charge := v.pv.Fees.Schedule.BumpNonceFee
	if res.FirstError().Code == consensus.InsufficientBalance {
		charge = 0
	}
	return v.reject(st, res.Errors, charge, tx)
}

// isBillable reports whether a rejection of st can consume a nonce.
func isBillable(st transition.StateTransition) bool {
	switch st.(type) {
	case transition.IdentityNonced, transition.ContractNonced,
		*transition.DocumentsBatchV0, *transition.TokensBatchV0:
		return true
	}
	return false
}

// reject returns errs together with a bump of every claimed nonce that is
// still acceptable. Nonces that are themselves invalid are left alone, so a
// replayed transition never changes state.
func (v *Validator) reject(st transition.StateTransition, errs []*consensus.Error, charge uint64, tx state.Transaction) (Result, error) {
	bumps, err := v.acceptableBumps(st, tx)
	if err != nil {
		return Result{}, err
	}
	if len(bumps) == 0 {
		return consensus.Invalid[action.Action](errs...), nil
	}
	return consensus.InvalidWithData(action.NewBump(st.Kind(), st.OwnerID(), bumps, charge), errs...), nil
}

func (v *Validator) acceptableBumps(st transition.StateTransition, tx state.Transaction) ([]nonce.Bump, error) {
	owner := st.OwnerID()
	switch t := st.(type) {
	case transition.IdentityNonced:
		res, err := v.nonces.ValidateIdentityNonce(tx, owner, t.IdentityNonce())
		if err != nil || !res.IsValid() {
			return nil, err
		}
		return []nonce.Bump{res.Data}, nil
	case transition.ContractNonced:
		contract, n := t.ContractNonce()
		res, err := v.nonces.ValidateIdentityContractNonce(tx, owner, contract, n)
		if err != nil || !res.IsValid() {
			return nil, err
		}
		return []nonce.Bump{res.Data}, nil
	}

	var claims []contractClaim
	switch t := st.(type) {
	case *transition.DocumentsBatchV0:
		for _, d := range t.Transitions {
			claims = append(claims, contractClaim{d.ContractID, d.Nonce})
		}
	case *transition.TokensBatchV0:
		for _, tt := range t.Transitions {
			claims = append(claims, contractClaim{tt.ContractID, tt.Nonce})
		}
	}
	chain := newNonceChain(v, owner, tx)
	var bumps []nonce.Bump
	for _, c := range claims {
		res, err := chain.claim(c.contract, c.nonce)
		if err != nil {
			return nil, err
		}
		if res.IsValid() {
			bumps = append(bumps, res.Data)
		}
	}
	return chain.final(bumps), nil
}

type contractClaim struct {
	contract inter.Identifier
	nonce    uint64
}

// nonceChain validates several identity-contract nonces of one owner in
// order, each seeing the ones accepted before it.
type nonceChain struct {
	v     *Validator
	owner inter.Identifier
	tx    state.Transaction
	words map[inter.Identifier]uint64
}

func newNonceChain(v *Validator, owner inter.Identifier, tx state.Transaction) *nonceChain {
	return &nonceChain{v: v, owner: owner, tx: tx, words: make(map[inter.Identifier]uint64)}
}

func (c *nonceChain) claim(contract inter.Identifier, claimed uint64) (consensus.ValidationResult[nonce.Bump], error) {
	stored, ok := c.words[contract]
	if !ok {
		var err error
		if stored, err = c.v.drive.IdentityContractNonce(c.tx, c.owner, contract); err != nil {
			return consensus.ValidationResult[nonce.Bump]{}, err
		}
	}
	contractID := contract
	res := c.v.nonces.Check(nonce.Bump{IdentityID: c.owner, Contract: &contractID, Nonce: claimed}, stored)
	if res.IsValid() {
		c.words[contract] = res.Data.Stored
	}
	return res, nil
}

// final keeps only the latest bump per contract, in first-claim order. The
// latest carries the word every earlier claim of the batch led to.
func (c *nonceChain) final(bumps []nonce.Bump) []nonce.Bump {
	seen := make(map[inter.Identifier]int)
	var out []nonce.Bump
	for _, b := range bumps {
		if i, ok := seen[*b.Contract]; ok {
			out[i] = b
			continue
		}
		seen[*b.Contract] = len(out)
		out = append(out, b)
	}
	return out
}

// feeInputs prices the parts of st that are not store work.
func (v *Validator) feeInputs(st transition.StateTransition, auth *authorization) action.FeeInputs {
	return action.FeeInputs{
		InputBytes:      auth.inputBytes,
		SignatureCost:   auth.signatureCost,
		BaseFee:         v.pv.Fees.Schedule.BaseTransitionFee,
		UserFeeIncrease: st.UserFeeIncrease(),
	}
}
