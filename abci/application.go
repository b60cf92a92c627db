// Package abci drives block execution for a BFT consensus engine.
//
// The engine calls InitChain once, then for every height any number of
// PrepareProposal and ProcessProposal calls, one FinalizeBlock and one
// Commit. Prepare and Process never leave state behind. FinalizeBlock keeps
// its transaction pending until Commit; a new FinalizeBlock at the same
// height discards it. A fatal condition halts the application.
package abci

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dashpay/platform-sub039/action"
	"github.com/dashpay/platform-sub039/crypto"
	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/epoch"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/observability/metrics"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/platform/genesis"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/transition"
	"github.com/dashpay/platform-sub039/validation"
	"github.com/dashpay/platform-sub039/validators"
)

var (
	metaProtocolVersion = []byte("protocol-version")
	metaCoreHeight      = []byte("core-chain-locked-height")
)

// Config holds the application's collaborators.
type Config struct {
	Rules platform.Rules
	// Meta receives node bookkeeping on commit. Optional.
	Meta       state.MetaDB
	Verifier   crypto.Verifier
	AssetLocks validation.AssetLockVerifier
	// Parallelism bounds structure pre-validation; 0 means GOMAXPROCS.
	Parallelism int
	// VerifyConservation re-sums every credit at the end of each block.
	VerifyConservation bool
	Metrics            *metrics.PlatformMetrics
	Log                logrus.FieldLogger
}

// Application executes blocks against one store.
type Application struct {
	cfg    Config
	rules  platform.Rules
	store  state.Store
	drive  *drive.Drive
	epochs *epoch.Manager
	quorum *validators.Coordinator

	guard   *LifecycleGuard
	metrics *metrics.PlatformMetrics
	tracer  trace.Tracer
	log     logrus.FieldLogger

	// mu serializes block calls; the store allows one open transaction.
	mu      sync.Mutex
	pending *pendingBlock
}

type pendingBlock struct {
	ctx *BlockExecutionContext
	out *blockOutcome
	req *BlockRequest
}

// NewApplication opens the application on store. A store holding an epoch
// state is treated as initialized at its last persisted height.
func NewApplication(store state.Store, cfg Config) (*Application, error) {
	if cfg.Rules.Versions == nil {
		return nil, fmt.Errorf("rules %q carry no versions", cfg.Rules.Name)
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	log := cfg.Log.WithField("module", "abci")
	d := drive.New(store)
	es, err := d.EpochState(nil)
	if err != nil {
		return nil, err
	}
	height, root := store.LastPersisted()
	if es != nil {
		log.WithFields(logrus.Fields{
			"height":   height,
			"root":     root.String(),
			"epoch":    es.Epoch,
			"protocol": es.ProtocolVersion,
		}).Info("Resuming chain")
	}
	return &Application{
		cfg:     cfg,
		rules:   cfg.Rules,
		store:   store,
		drive:   d,
		epochs:  epoch.NewManager(d, cfg.Rules.Versions, cfg.Log.WithField("module", "epoch")),
		quorum:  validators.NewCoordinator(d, cfg.Log.WithField("module", "validators")),
		guard:   NewLifecycleGuard(es != nil, height),
		metrics: cfg.Metrics,
		tracer:  otel.Tracer("platform/abci"),
		log:     log,
	}, nil
}

func (a *Application) validationConfig() validation.Config {
	return validation.Config{
		Verifier:    a.cfg.Verifier,
		AssetLocks:  a.cfg.AssetLocks,
		Parallelism: a.cfg.Parallelism,
		Log:         a.cfg.Log.WithField("module", "validation"),
	}
}

// fail turns a fatal error into a halt. Everything else is returned as is
// and leaves the application usable.
func (a *Application) fail(height idx.Block, err error) error {
	if !platform.IsFatal(err) {
		return err
	}
	a.guard.Halt()
	a.log.WithError(err).WithField("height", height).Error("Halting")
	return NewHaltError(height, err)
}

// dropPending discards a pending FinalizeBlock. The caller holds a.mu.
func (a *Application) dropPending() {
	if a.pending == nil {
		return
	}
	a.log.WithField("height", a.pending.req.Height).Warn("Discarding finalized block")
	a.pending.ctx.discard()
	a.pending = nil
}

// InitChain writes the genesis state and activates the first quorum.
func (a *Application) InitChain(ctx context.Context, g *genesis.Genesis) (*InitChainResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if g.ChainID != a.rules.ChainID {
		return nil, fmt.Errorf("%w: genesis %q, node %q", genesis.ErrChainIDMismatch, g.ChainID, a.rules.ChainID)
	}
	switch err := a.guard.Serving(); err {
	case ErrNotInitialized:
	case nil:
		return nil, ErrAlreadyInitialized
	default:
		return nil, err
	}
	_, span := a.tracer.Start(ctx, "abci.init_chain")
	defer span.End()

	resp, err := a.initChain(g)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, a.fail(0, err)
	}
	if err := a.guard.InitChain(0); err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{
		"chain":      g.ChainID,
		"identities": len(g.Identities),
		"nodes":      len(g.Masternodes),
		"protocol":   g.ProtocolVersion,
		"app_hash":   resp.AppHash.String(),
	}).Info("Chain initialized")
	return resp, nil
}

func (a *Application) initChain(g *genesis.Genesis) (*InitChainResponse, error) {
	pv, err := a.rules.Versions.Get(g.ProtocolVersion)
	if err != nil {
		return nil, err
	}
	total, err := g.TotalCredits()
	if err != nil {
		return nil, err
	}
	tx, err := a.store.StartTransaction()
	if err != nil {
		return nil, platform.NewStorageError("start transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			a.store.RollbackTransaction(tx)
		}
	}()

	ops := []state.Op{drive.SetSystemCreditsOp(total)}
	for _, identity := range g.PlatformIdentities() {
		identity := identity
		created, err := drive.CreateIdentityOps(&identity)
		if err != nil {
			return nil, err
		}
		ops = append(ops, created...)
	}
	if _, err := a.drive.Apply(tx, ops); err != nil {
		return nil, err
	}
	if _, err := a.epochs.Init(tx, g.Timestamp(), g.ProtocolVersion); err != nil {
		return nil, err
	}
	update, err := a.quorum.Apply(tx, validators.MasternodeListDiff{Added: g.MasternodeList()}, pv)
	if err != nil {
		return nil, err
	}
	if err := a.drive.VerifyConservation(tx); err != nil {
		return nil, err
	}
	if err := a.store.CommitTransaction(tx); err != nil {
		return nil, platform.NewStorageError("commit genesis", err)
	}
	committed = true
	root, err := a.store.Persist(0)
	if err != nil {
		return nil, platform.NewStorageError("persist genesis", err)
	}
	if err := a.writeMeta(g.ProtocolVersion, 0); err != nil {
		return nil, err
	}
	a.metrics.ObserveCommit(0, 0, g.ProtocolVersion)
	return &InitChainResponse{AppHash: root, ValidatorSetUpdate: update}, nil
}

func (a *Application) writeMeta(protocol, coreHeight uint32) error {
	if a.cfg.Meta == nil {
		return nil
	}
	if err := a.cfg.Meta.Put(metaProtocolVersion, bigendian.Uint32ToBytes(protocol)); err != nil {
		return platform.NewStorageError("write meta", err)
	}
	if err := a.cfg.Meta.Put(metaCoreHeight, bigendian.Uint32ToBytes(coreHeight)); err != nil {
		return platform.NewStorageError("write meta", err)
	}
	return nil
}

// PrepareProposal builds a proposal from candidate transitions. Undecodable
// and structurally invalid transitions are left out, as is everything past
// the block limit. Nothing is committed.
func (a *Application) PrepareProposal(ctx context.Context, req *BlockRequest) (*PrepareProposalResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	discard, err := a.guard.Block("PrepareProposal", req.Height)
	if err != nil {
		return nil, err
	}
	if discard {
		a.dropPending()
	}
	ctx, span := a.tracer.Start(ctx, "abci.prepare_proposal",
		trace.WithAttributes(attribute.Int64("height", int64(req.Height))))
	defer span.End()

	bc, err := a.openBlock(req)
	if err != nil {
		return nil, a.fail(req.Height, err)
	}
	defer bc.discard()

	sts, _ := decode(req.Txs)
	structure, err := bc.structure(ctx, sts)
	if err != nil {
		return nil, a.fail(req.Height, err)
	}
	limit := bc.pv.Limits.MaxBlockTransitions
	var txs [][]byte
	for i, st := range sts {
		if st == nil || len(structure[i]) > 0 {
			continue
		}
		if limit > 0 && len(txs) == limit {
			break
		}
		txs = append(txs, req.Txs[i])
	}
	proposal := *req
	proposal.Txs = txs
	results, out, err := bc.execute(ctx, &proposal)
	if err != nil {
		return nil, a.fail(req.Height, err)
	}
	bc.log.WithFields(logrus.Fields{
		"candidates": len(req.Txs),
		"proposed":   len(txs),
	}).Debug("Prepared proposal")
	return &PrepareProposalResponse{Txs: txs, TxResults: results, AppHash: out.appHash}, nil
}

// ProcessProposal executes a proposal without committing it. Proposals that
// carry undecodable transitions or exceed the block limit are rejected.
func (a *Application) ProcessProposal(ctx context.Context, req *BlockRequest) (*ProcessProposalResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	discard, err := a.guard.Block("ProcessProposal", req.Height)
	if err != nil {
		return nil, err
	}
	if discard {
		a.dropPending()
	}
	ctx, span := a.tracer.Start(ctx, "abci.process_proposal",
		trace.WithAttributes(attribute.Int64("height", int64(req.Height))))
	defer span.End()

	bc, err := a.openBlock(req)
	if err != nil {
		return nil, a.fail(req.Height, err)
	}
	defer bc.discard()

	if limit := bc.pv.Limits.MaxBlockTransitions; limit > 0 && len(req.Txs) > limit {
		return &ProcessProposalResponse{
			Reason: fmt.Sprintf("%d transitions exceed the block limit %d", len(req.Txs), limit),
		}, nil
	}
	for i, raw := range req.Txs {
		if _, err := transition.Decode(raw); err != nil {
			return &ProcessProposalResponse{Reason: fmt.Sprintf("transition %d: %v", i, err)}, nil
		}
	}
	results, out, err := bc.execute(ctx, req)
	if err != nil {
		return nil, a.fail(req.Height, err)
	}
	return &ProcessProposalResponse{Accept: true, TxResults: results, AppHash: out.appHash}, nil
}

// FinalizeBlock executes the decided block and keeps it pending until
// Commit.
func (a *Application) FinalizeBlock(ctx context.Context, req *BlockRequest) (*FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	discard, err := a.guard.Block("FinalizeBlock", req.Height)
	if err != nil {
		return nil, err
	}
	if discard {
		a.dropPending()
	}
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "abci.finalize_block",
		trace.WithAttributes(
			attribute.Int64("height", int64(req.Height)),
			attribute.Int("txs", len(req.Txs)),
		))
	defer span.End()

	bc, err := a.openBlock(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, a.fail(req.Height, err)
	}
	bc.final = true
	results, out, err := bc.execute(ctx, req)
	if err != nil {
		bc.discard()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, a.fail(req.Height, err)
	}
	a.pending = &pendingBlock{ctx: bc, out: out, req: req}
	a.guard.Finalized()

	a.metrics.ObserveFees(bc.fees.ProcessingFee, bc.fees.StorageFee, bc.fees.RefundsTotal)
	if out.update != nil {
		a.metrics.ObserveRotation()
	}
	if rec := out.epoch.Closed; rec != nil {
		a.metrics.ObserveEpochClose(rec.Paid(), rec.CarryOut)
	}
	a.metrics.ObserveBlockDuration(time.Since(start))
	span.SetAttributes(attribute.String("app_hash", out.appHash.String()))

	bc.log.WithFields(logrus.Fields{
		"accepted":   bc.accepted,
		"rejected":   bc.rejected,
		"processing": bc.fees.ProcessingFee,
		"storage":    bc.fees.StorageFee,
		"app_hash":   out.appHash.String(),
		"elapsed":    time.Since(start),
	}).Info("Block finalized")

	return &FinalizeBlockResponse{
		AppHash:            out.appHash,
		TxResults:          results,
		ValidatorSetUpdate: out.update,
		Fees:               bc.fees,
		ProtocolVersion:    out.protocol,
		EpochClosed:        out.epoch.Closed,
	}, nil
}

// Commit makes the pending block durable.
func (a *Application) Commit(ctx context.Context) (*CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.pending
	height, err := a.guard.Commit()
	if err != nil {
		return nil, err
	}
	_, span := a.tracer.Start(ctx, "abci.commit",
		trace.WithAttributes(attribute.Int64("height", int64(height))))
	defer span.End()

	a.pending = nil
	if err := p.ctx.commit(); err != nil {
		return nil, a.fail(height, platform.NewStorageError("commit", err))
	}
	root, err := a.store.Persist(height)
	if err != nil {
		return nil, a.fail(height, platform.NewStorageError("persist", err))
	}
	if root != p.out.appHash {
		return nil, a.fail(height, platform.Corrupted("persisted root %s, finalized %s", root, p.out.appHash))
	}
	if err := a.writeMeta(p.out.protocol, p.req.CoreChainLockedHeight); err != nil {
		return nil, a.fail(height, err)
	}
	a.metrics.ObserveCommit(uint64(height), p.out.epoch.State.Epoch, p.out.protocol)
	a.log.WithFields(logrus.Fields{"height": height, "app_hash": root.String()}).Debug("Block committed")
	return &CommitResponse{Height: height, AppHash: root}, nil
}

// CheckTx admits a transition to the mempool. It runs the structure and
// signature stages against committed state.
func (a *Application) CheckTx(ctx context.Context, raw []byte) (*CheckTxResponse, error) {
	if err := a.guard.Serving(); err != nil {
		return nil, err
	}
	sts, decodeErrs := decode([][]byte{raw})
	if sts[0] == nil {
		r := rejected(decodeErrs[0], inter.FeeResult{})
		return &CheckTxResponse{Code: r.Code, Info: r.Info, Data: r.Data}, nil
	}
	es, err := a.epochs.Current(nil)
	if err != nil {
		return nil, err
	}
	pv, err := a.rules.Versions.Get(es.ProtocolVersion)
	if err != nil {
		return nil, err
	}
	height := a.guard.Height() + 1
	current, err := epoch.EpochAt(es, height)
	if err != nil {
		return nil, err
	}
	contracts := drive.NewContractCache(a.drive)
	exec := action.NewExecutor(a.drive, pv, a.cfg.Log.WithField("module", "action"))
	v, err := validation.Resolve(pv, a.drive, contracts, exec, a.validationConfig())
	if err != nil {
		return nil, err
	}
	info := inter.BlockInfo{Height: height, Time: es.EpochStart, PreviousTime: es.EpochStart, Epoch: current}
	if rec, err := a.drive.BlockRecord(nil, height-1); err != nil {
		return nil, err
	} else if rec != nil {
		info.Time, info.PreviousTime = rec.Time, rec.Time
	}
	errs, err := v.Admit(ctx, sts[0], info, nil)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		r := rejected(errs[0], inter.FeeResult{})
		return &CheckTxResponse{Code: r.Code, Info: r.Info, Data: r.Data}, nil
	}
	return &CheckTxResponse{Code: CodeOK}, nil
}

// Query reads committed state, optionally with a proof against the last
// persisted root.
func (a *Application) Query(ctx context.Context, q QueryRequest) (*QueryResponse, error) {
	if err := a.guard.Serving(); err != nil {
		return nil, err
	}
	pq := state.PathQuery{Path: q.Path, Key: q.Key, StartAfter: q.StartAfter, Limit: q.Limit}
	height, _ := a.store.LastPersisted()
	items, err := a.store.Query(nil, pq)
	if err != nil {
		return nil, err
	}
	resp := &QueryResponse{Height: height, Items: items}
	if q.Prove {
		proof, err := a.store.Prove(pq)
		if err != nil {
			return nil, err
		}
		if resp.Proof, err = proof.Encode(); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Info reports the last committed block.
func (a *Application) Info(ctx context.Context) (*InfoResponse, error) {
	height, root := a.store.LastPersisted()
	resp := &InfoResponse{ChainID: a.rules.ChainID, LastHeight: height, LastAppHash: root}
	es, err := a.drive.EpochState(nil)
	if err != nil {
		return nil, err
	}
	if es != nil {
		resp.ProtocolVersion = es.ProtocolVersion
		resp.Epoch = es.Epoch
	}
	return resp, nil
}

// Drive exposes the state accessors over the application's store.
func (a *Application) Drive() *drive.Drive { return a.drive }
