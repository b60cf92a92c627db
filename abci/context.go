package abci

import (
	"context"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dashpay/platform-sub039/action"
	"github.com/dashpay/platform-sub039/consensus"
	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/epoch"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/inter/drivertype"
	"github.com/dashpay/platform-sub039/inter/ibr"
	"github.com/dashpay/platform-sub039/observability/metrics"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/transition"
	"github.com/dashpay/platform-sub039/validation"
)

// BlockExecutionContext is one attempt at executing a block. It owns the
// store transaction until it is committed or discarded and is never shared
// across goroutines.
type BlockExecutionContext struct {
	app *Application
	tx  state.Transaction

	info      inter.BlockInfo
	pv        *platform.PlatformVersion
	contracts *drive.ContractCache
	exec      *action.Executor
	validator *validation.Validator
	log       logrus.FieldLogger

	fees     inter.BlockFees
	accepted uint32
	rejected uint32
	// final is set for FinalizeBlock; only final executions are counted in
	// metrics.
	final bool
	done  bool
}

// openBlock starts a transaction and resolves everything the block runs
// with from the committed epoch state.
func (a *Application) openBlock(req *BlockRequest) (*BlockExecutionContext, error) {
	tx, err := a.store.StartTransaction()
	if err != nil {
		return nil, platform.NewStorageError("start transaction", err)
	}
	bc := &BlockExecutionContext{app: a, tx: tx}
	if err := bc.resolve(req); err != nil {
		bc.discard()
		return nil, err
	}
	return bc, nil
}

func (bc *BlockExecutionContext) resolve(req *BlockRequest) error {
	a := bc.app
	es, err := a.epochs.Current(bc.tx)
	if err != nil {
		return err
	}
	current, err := epoch.EpochAt(es, req.Height)
	if err != nil {
		return err
	}
	pv, err := a.rules.Versions.Get(es.ProtocolVersion)
	if err != nil {
		return err
	}
	prevTime := es.EpochStart
	if req.Height > 1 {
		prev, err := a.drive.BlockRecord(bc.tx, req.Height-1)
		if err != nil {
			return err
		}
		if prev == nil {
			return platform.Corrupted("block record %d missing", req.Height-1)
		}
		prevTime = prev.Time
	}

	bc.pv = pv
	bc.info = inter.BlockInfo{
		Height:                req.Height,
		Time:                  req.Time,
		PreviousTime:          prevTime,
		CoreChainLockedHeight: req.CoreChainLockedHeight,
		ProposerProTxHash:     req.Proposer,
		Epoch:                 current,
		ProposedAppVersion:    req.ProposedAppVersion,
	}
	bc.log = a.log.WithFields(logrus.Fields{"height": req.Height, "epoch": current.Index})
	bc.contracts = drive.NewContractCache(a.drive)
	bc.exec = action.NewExecutor(a.drive, pv, a.log.WithField("module", "action"))
	bc.validator, err = validation.Resolve(pv, a.drive, bc.contracts, bc.exec, a.validationConfig())
	return err
}

// decode parses raws. Undecodable entries are nil in the returned slice and
// get an InvalidEncoding result.
func decode(raws [][]byte) ([]transition.StateTransition, []*consensus.Error) {
	sts := make([]transition.StateTransition, len(raws))
	errs := make([]*consensus.Error, len(raws))
	for i, raw := range raws {
		st, err := transition.Decode(raw)
		if err != nil {
			errs[i] = consensus.New(consensus.InvalidEncoding, consensus.Text("reason", err.Error()))
			continue
		}
		sts[i] = st
	}
	return sts, errs
}

// structure pre-validates the decoded transitions; the result is aligned
// with sts.
func (bc *BlockExecutionContext) structure(ctx context.Context, sts []transition.StateTransition) ([][]*consensus.Error, error) {
	decoded := make([]transition.StateTransition, 0, len(sts))
	for _, st := range sts {
		if st != nil {
			decoded = append(decoded, st)
		}
	}
	checked, err := bc.validator.PreValidate(ctx, decoded)
	if err != nil {
		return nil, err
	}
	out := make([][]*consensus.Error, len(sts))
	j := 0
	for i, st := range sts {
		if st != nil {
			out[i] = checked[j]
			j++
		}
	}
	return out, nil
}

// run executes the transitions in order. Only fatal conditions are
// returned as errors.
func (bc *BlockExecutionContext) run(ctx context.Context, raws [][]byte) ([]TxResult, error) {
	ctx, span := bc.app.tracer.Start(ctx, "abci.execute_transitions",
		trace.WithAttributes(attribute.Int("txs", len(raws))))
	defer span.End()

	var m *metrics.PlatformMetrics
	if bc.final {
		m = bc.app.metrics
	}
	sts, decodeErrs := decode(raws)
	structure, err := bc.structure(ctx, sts)
	if err != nil {
		return nil, err
	}
	results := make([]TxResult, len(raws))
	for i, st := range sts {
		if st == nil {
			results[i] = rejected(decodeErrs[i], inter.FeeResult{})
			bc.rejected++
			m.ObserveTransition("undecodable", "rejected")
			continue
		}
		res, err := bc.validator.ProcessChecked(ctx, st, structure[i], bc.info, bc.tx)
		if err != nil {
			return nil, fmt.Errorf("transition %d: %w", i, err)
		}
		var fee inter.FeeResult
		if res.HasData {
			if fee, err = bc.exec.Execute(ctx, res.Data, bc.info, bc.tx); err != nil {
				return nil, fmt.Errorf("transition %d: %w", i, err)
			}
			if err := bc.fees.Add(fee); err != nil {
				return nil, err
			}
		}
		kind := st.Kind().String()
		if !res.IsValid() {
			results[i] = rejected(res.FirstError(), fee)
			bc.rejected++
			outcome := "rejected"
			if res.HasData {
				outcome = "bumped"
			}
			m.ObserveTransition(kind, outcome)
			continue
		}
		switch act := res.Data.(type) {
		case *action.ContractCreate:
			bc.contracts.Put(act.Contract)
		case *action.ContractUpdate:
			bc.contracts.Put(act.Contract)
		}
		results[i] = TxResult{Code: CodeOK, Fee: fee}
		bc.accepted++
		m.ObserveTransition(kind, "accepted")
	}
	return results, nil
}

func rejected(e *consensus.Error, fee inter.FeeResult) TxResult {
	r := TxResult{Code: uint32(e.Code), Info: e.Error(), Fee: fee}
	// the payload only fails to encode on a codec bug; the code still
	// identifies the rejection
	r.Data, _ = e.Payload()
	return r
}

// blockOutcome is what the end-of-block steps produced.
type blockOutcome struct {
	appHash  hash.Hash
	update   *drivertype.ValidatorSetUpdate
	epoch    epoch.Outcome
	record   ibr.BlockRecord
	protocol uint32
}

// finish rotates the quorum, books the block into the epoch, writes the
// block record and computes the app hash.
func (bc *BlockExecutionContext) finish(ctx context.Context, req *BlockRequest) (*blockOutcome, error) {
	_, span := bc.app.tracer.Start(ctx, "abci.end_block")
	defer span.End()

	a := bc.app
	update, err := a.quorum.Apply(bc.tx, req.Masternodes, bc.pv)
	if err != nil {
		return nil, err
	}
	out, err := a.epochs.ProcessBlock(bc.tx, bc.info, bc.fees, bc.pv)
	if err != nil {
		return nil, err
	}
	record := ibr.BlockRecord{
		Height:          bc.info.Height,
		Time:            bc.info.Time,
		Epoch:           bc.info.Epoch.Index,
		Proposer:        bc.info.ProposerProTxHash,
		TxHash:          ibr.CalcTxHash(req.Txs),
		EpochStateHash:  out.StateHash,
		Accepted:        bc.accepted,
		Rejected:        bc.rejected,
		ProcessingFee:   bc.fees.ProcessingFee,
		StorageFee:      bc.fees.StorageFee,
		Refunds:         bc.fees.RefundsTotal,
		ProtocolVersion: bc.pv.Protocol,
	}
	op, err := drive.BlockRecordOp(&record)
	if err != nil {
		return nil, err
	}
	if _, err := a.drive.Apply(bc.tx, []state.Op{op}); err != nil {
		return nil, err
	}
	if a.cfg.VerifyConservation {
		if err := a.drive.VerifyConservation(bc.tx); err != nil {
			return nil, err
		}
	}
	root, err := a.store.RootHash(bc.tx)
	if err != nil {
		return nil, platform.NewStorageError("root hash", err)
	}
	span.SetAttributes(attribute.String("app_hash", root.String()))
	return &blockOutcome{
		appHash:  root,
		update:   update,
		epoch:    out,
		record:   record,
		protocol: out.ProtocolVersion(),
	}, nil
}

// execute runs the whole block inside the context's transaction.
func (bc *BlockExecutionContext) execute(ctx context.Context, req *BlockRequest) ([]TxResult, *blockOutcome, error) {
	results, err := bc.run(ctx, req.Txs)
	if err != nil {
		return nil, nil, err
	}
	out, err := bc.finish(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return results, out, nil
}

func (bc *BlockExecutionContext) commit() error {
	if bc.done {
		return fmt.Errorf("%w: block context already closed", ErrOutOfOrder)
	}
	bc.done = true
	bc.app.metrics.ObserveContractCache(bc.contracts.Stats())
	bc.contracts.Clear()
	return bc.app.store.CommitTransaction(bc.tx)
}

// discard rolls the transaction back; the block leaves no effect.
func (bc *BlockExecutionContext) discard() {
	if bc.done {
		return
	}
	bc.done = true
	if bc.contracts != nil {
		bc.contracts.Clear()
	}
	bc.app.store.RollbackTransaction(bc.tx)
}
