package action

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/fees"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/utils/checked"
)

// refundable marks ops whose flags are stamped with the payer and epoch
// before the batch is priced.
var refundable = []byte{0}

// Executor turns actions into store operations, prices them and settles
// balances, storage buckets and the issued credit counter.
type Executor struct {
	drive  *drive.Drive
	pv     *platform.PlatformVersion
	tracer trace.Tracer
	log    logrus.FieldLogger
}

// NewExecutor binds an executor to the platform version of one block.
func NewExecutor(d *drive.Drive, pv *platform.PlatformVersion, log logrus.FieldLogger) *Executor {
	return &Executor{
		drive:  d,
		pv:     pv,
		tracer: otel.Tracer("platform/action"),
		log:    log,
	}
}

type credit struct {
	id     inter.Identifier
	amount uint64
}

type plan struct {
	ops      []state.Op
	deposits []credit
	debits   []credit
	// issued credits enter the platform, burned credits leave it.
	issued uint64
	burned uint64
}

func (p *plan) deposit(id inter.Identifier, amount uint64) {
	p.deposits = append(p.deposits, credit{id, amount})
}

func (p *plan) debit(id inter.Identifier, amount uint64) {
	p.debits = append(p.debits, credit{id, amount})
}

// Estimate prices act without applying it. The estimate is exact: the
// same operations measured by Apply cost the same.
func (e *Executor) Estimate(act Action, info inter.BlockInfo, tx state.Transaction) (inter.FeeResult, error) {
	if b := bumpOf(act); b != nil {
		return inter.FeeResult{ProcessingFee: b.Charge, FeeMultiplier: 100}, nil
	}
	p, err := e.plan(act, info, tx)
	if err != nil {
		return inter.FeeResult{}, err
	}
	costs, err := e.drive.Estimate(tx, p.ops)
	if err != nil {
		return inter.FeeResult{}, err
	}
	return e.price(act, costs, info)
}

// Execute applies act inside tx and returns what it was charged. Every
// error is fatal to the block.
func (e *Executor) Execute(ctx context.Context, act Action, info inter.BlockInfo, tx state.Transaction) (inter.FeeResult, error) {
	_, span := e.tracer.Start(ctx, "action.execute",
		trace.WithAttributes(attribute.String("kind", act.Kind().String())))
	defer span.End()

	res, err := e.execute(act, info, tx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return inter.FeeResult{}, err
	}
	span.SetStatus(codes.Ok, "executed")
	return res, nil
}

func (e *Executor) execute(act Action, info inter.BlockInfo, tx state.Transaction) (inter.FeeResult, error) {
	if b := bumpOf(act); b != nil {
		return e.executeBump(b, tx)
	}
	p, err := e.plan(act, info, tx)
	if err != nil {
		return inter.FeeResult{}, err
	}
	costs, err := e.drive.Apply(tx, p.ops)
	if err != nil {
		return inter.FeeResult{}, err
	}
	res, err := e.price(act, costs, info)
	if err != nil {
		return inter.FeeResult{}, err
	}

	settle, err := e.settleBalances(act.Payer(), p, res, tx)
	if err != nil {
		return inter.FeeResult{}, err
	}
	buckets, err := e.settleBuckets(costs, res, info.Epoch, tx)
	if err != nil {
		return inter.FeeResult{}, err
	}
	settle = append(settle, buckets...)
	if p.issued != 0 || p.burned != 0 {
		system, err := e.drive.SystemCredits(tx)
		if err != nil {
			return inter.FeeResult{}, err
		}
		if system, err = checked.Add(system, p.issued); err != nil {
			return inter.FeeResult{}, err
		}
		if system, err = checked.Sub(system, p.burned); err != nil {
			return inter.FeeResult{}, platform.Corrupted("system credits below withdrawal of %d", p.burned)
		}
		settle = append(settle, drive.SetSystemCreditsOp(system))
	}
	if _, err := e.drive.Apply(tx, settle); err != nil {
		return inter.FeeResult{}, err
	}

	e.log.WithFields(logrus.Fields{
		"kind":       act.Kind(),
		"payer":      act.Payer(),
		"storage":    res.StorageFee,
		"processing": res.ProcessingFee,
		"refunds":    len(res.Refunds),
	}).Debug("Action executed")
	return res, nil
}

func (e *Executor) price(act Action, costs state.OperationCosts, info inter.BlockInfo) (inter.FeeResult, error) {
	in := act.Fees()
	return fees.Calculate(fees.Usage{
		Costs:         costs,
		InputBytes:    in.InputBytes,
		SignatureCost: in.SignatureCost,
		BaseFee:       in.BaseFee,
	}, info.Epoch, in.UserFeeIncrease, e.pv)
}

func bumpOf(act Action) *BumpNonce {
	switch b := act.(type) {
	case *BumpIdentityNonce:
		return &b.BumpNonce
	case *BumpIdentityContractNonce:
		return &b.BumpNonce
	}
	return nil
}

// executeBump writes the nonces and takes the flat charge, never more than
// the payer holds.
func (e *Executor) executeBump(b *BumpNonce, tx state.Transaction) (inter.FeeResult, error) {
	ops := make([]state.Op, 0, len(b.Bumps)+1)
	for _, bump := range b.Bumps {
		ops = append(ops, bump.Op())
	}
	balance, err := e.drive.Balance(tx, b.Owner)
	if err != nil {
		return inter.FeeResult{}, err
	}
	charge := b.Charge
	if charge > balance {
		charge = balance
	}
	if charge != 0 {
		ops = append(ops, drive.SetBalanceOp(b.Owner, balance-charge))
	}
	if _, err := e.drive.Apply(tx, ops); err != nil {
		return inter.FeeResult{}, err
	}
	return inter.FeeResult{ProcessingFee: charge, FeeMultiplier: 100}, nil
}

// settleBalances nets every credit movement per identity and returns one
// balance write each, in first-touch order.
func (e *Executor) settleBalances(payer inter.Identifier, p *plan, res inter.FeeResult, tx state.Transaction) ([]state.Op, error) {
	var order []inter.Identifier
	in := make(map[inter.Identifier]uint64)
	out := make(map[inter.Identifier]uint64)
	touch := func(id inter.Identifier) {
		if _, ok := in[id]; !ok {
			in[id] = 0
			out[id] = 0
			order = append(order, id)
		}
	}
	add := func(m map[inter.Identifier]uint64, id inter.Identifier, v uint64) error {
		touch(id)
		var err error
		m[id], err = checked.Add(m[id], v)
		return err
	}

	charged, err := res.TotalCharged()
	if err != nil {
		return nil, err
	}
	if err := add(out, payer, charged); err != nil {
		return nil, err
	}
	for _, c := range p.deposits {
		if err := add(in, c.id, c.amount); err != nil {
			return nil, err
		}
	}
	for _, c := range p.debits {
		if err := add(out, c.id, c.amount); err != nil {
			return nil, err
		}
	}
	for _, r := range res.Refunds {
		if err := add(in, r.IdentityID, r.Credits); err != nil {
			return nil, err
		}
	}

	ops := make([]state.Op, 0, len(order))
	for _, id := range order {
		balance, err := e.drive.Balance(tx, id)
		if err != nil {
			return nil, err
		}
		if balance, err = checked.Add(balance, in[id]); err != nil {
			return nil, err
		}
		if balance, err = checked.Sub(balance, out[id]); err != nil {
			return nil, fmt.Errorf("balance of %s: %w", id, err)
		}
		ops = append(ops, drive.SetBalanceOp(id, balance))
	}
	return ops, nil
}

// settleBuckets adds the storage fee allocations to future epoch buckets and
// takes refunds back out of the buckets that funded them.
func (e *Executor) settleBuckets(costs state.OperationCosts, res inter.FeeResult, current inter.Epoch, tx state.Transaction) ([]state.Op, error) {
	alloc, err := fees.StorageAllocations(costs, current, e.pv)
	if err != nil {
		return nil, err
	}
	refunds := make(map[uint16]uint64)
	for _, r := range res.Refunds {
		if refunds[r.Epoch.Index], err = checked.Add(refunds[r.Epoch.Index], r.Credits); err != nil {
			return nil, err
		}
		if _, ok := alloc[r.Epoch.Index]; !ok {
			alloc[r.Epoch.Index] = 0
		}
	}

	var ops []state.Op
	for _, idx := range fees.SortedEpochs(alloc) {
		epoch, err := inter.NewEpoch(idx)
		if err != nil {
			return nil, err
		}
		bucket, exists, err := e.drive.StorageBucket(tx, epoch)
		if err != nil {
			return nil, err
		}
		if bucket, err = checked.Add(bucket, alloc[idx]); err != nil {
			return nil, err
		}
		if bucket, err = checked.Sub(bucket, refunds[idx]); err != nil {
			return nil, platform.Corrupted("storage bucket %d cannot cover refund of %d", idx, refunds[idx])
		}
		if op, ok := drive.SetStorageBucketOp(epoch, bucket, exists); ok {
			ops = append(ops, op)
		}
	}
	return ops, nil
}

// stamp replaces refundable markers with flags recording the payer, the
// epoch and the priced size of each element.
func stamp(ops []state.Op, owner inter.Identifier, epoch inter.Epoch) {
	for i := range ops {
		op := &ops[i]
		if len(op.Flags) == 0 {
			continue
		}
		flags := dpp.StorageFlags{
			OwnerID:    owner,
			EpochIndex: epoch.Index,
			Bytes:      uint32(state.ElementSize(op.Path, op.Key, op.Value)),
		}
		op.Flags = flags.Encode()
	}
}
