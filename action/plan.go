package action

import (
	"fmt"

	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/state"
)

// plan builds the priced operations and credit movements of act.
func (e *Executor) plan(act Action, info inter.BlockInfo, tx state.Transaction) (*plan, error) {
	p := &plan{}
	var err error
	switch a := act.(type) {
	case *IdentityCreate:
		err = e.planIdentityCreate(p, a)
	case *IdentityTopUp:
		p.ops = append(p.ops, drive.SpendAssetLockOp(a.OutPoint, a.Owner))
		p.deposit(a.Owner, a.Credits)
		p.issued = a.Credits
	case *IdentityUpdate:
		err = e.planIdentityUpdate(p, a)
	case *CreditTransfer:
		p.ops = append(p.ops, a.Bump.Op())
		p.debit(a.Owner, a.Amount)
		p.deposit(a.Recipient, a.Amount)
	case *CreditWithdrawal:
		err = e.planWithdrawal(p, a, info, tx)
	case *ContractCreate:
		err = e.planContract(p, a.Contract, false)
		p.ops = append(p.ops, a.Bump.Op())
		p.ops = append(p.ops, baseSupplyOps(a.Contract)...)
	case *ContractUpdate:
		err = e.planContract(p, a.Contract, true)
		p.ops = append(p.ops, a.Bump.Op())
	case *DocumentsBatch:
		err = e.planDocuments(p, a, info, tx)
	case *TokensBatch:
		err = e.planTokens(p, a, info, tx)
	default:
		return nil, fmt.Errorf("unsupported action %T", act)
	}
	if err != nil {
		return nil, err
	}
	stamp(p.ops, act.Payer(), info.Epoch)
	return p, nil
}

func (e *Executor) planIdentityCreate(p *plan, a *IdentityCreate) error {
	identity := a.Identity
	identity.Balance = 0
	ops, err := drive.CreateIdentityOps(&identity)
	if err != nil {
		return err
	}
	p.ops = append(ops, drive.SpendAssetLockOp(a.OutPoint, a.Owner))
	p.deposit(a.Owner, a.Credits)
	p.issued = a.Credits
	return nil
}

func (e *Executor) planIdentityUpdate(p *plan, a *IdentityUpdate) error {
	p.ops = append(p.ops, drive.SetRevisionOp(a.Owner, a.Revision))
	for _, k := range a.AddKeys {
		ops, err := drive.AddKeyOps(a.Owner, k)
		if err != nil {
			return err
		}
		p.ops = append(p.ops, ops...)
	}
	for _, k := range a.Disabled {
		op, err := drive.ReplaceKeyOp(a.Owner, k)
		if err != nil {
			return err
		}
		p.ops = append(p.ops, op)
	}
	p.ops = append(p.ops, a.Bump.Op())
	return nil
}

func (e *Executor) planWithdrawal(p *plan, a *CreditWithdrawal, info inter.BlockInfo, tx state.Transaction) error {
	index, err := e.drive.NextWithdrawalIndex(tx)
	if err != nil {
		return err
	}
	ops, err := drive.QueueWithdrawalOps(index, &dpp.Withdrawal{
		IdentityID:     a.Owner,
		Amount:         a.Amount,
		CoreFeePerByte: a.CoreFeePerByte,
		OutputScript:   a.OutputScript,
		Status:         dpp.WithdrawalQueued,
		CreatedAt:      info.Time,
		Height:         uint64(info.Height),
	})
	if err != nil {
		return err
	}
	p.ops = append(append(p.ops, ops...), a.Bump.Op())
	p.debit(a.Owner, a.Amount)
	p.burned = a.Amount
	return nil
}

func (e *Executor) planContract(p *plan, c *dpp.DataContract, replace bool) error {
	ops, err := drive.ContractOps(c, refundable, replace)
	if err != nil {
		return err
	}
	p.ops = append(p.ops, ops...)
	return nil
}

// baseSupplyOps issues the base supply of every token to the contract owner.
func baseSupplyOps(c *dpp.DataContract) []state.Op {
	var ops []state.Op
	for _, t := range c.Tokens {
		if t.BaseSupply == 0 {
			continue
		}
		token := dpp.TokenID(c.ID, t.Position)
		ops = append(ops, drive.SetTokenSupplyOp(token, t.BaseSupply))
		if op, ok := drive.SetTokenBalanceOp(token, c.OwnerID, t.BaseSupply, false); ok {
			ops = append(ops, op)
		}
	}
	return ops
}

func (e *Executor) planDocuments(p *plan, a *DocumentsBatch, info inter.BlockInfo, tx state.Transaction) error {
	for _, w := range a.Writes {
		var (
			ops []state.Op
			err error
		)
		switch w.Kind {
		case WriteInsert:
			ops, err = drive.InsertDocumentOps(w.Contract, w.Type, w.Document, refundable)
		case WriteReplace:
			ops, err = drive.ReplaceDocumentOps(w.Contract, w.Type, w.Previous, w.Document, refundable)
		case WriteDelete:
			ops = drive.DeleteDocumentOps(w.Contract, w.Type, w.Document)
		default:
			err = fmt.Errorf("unknown document write %d", w.Kind)
		}
		if err != nil {
			return err
		}
		p.ops = append(p.ops, ops...)
	}
	for _, pay := range a.Payments {
		p.debit(a.Owner, pay.Amount)
		p.deposit(pay.To, pay.Amount)
	}
	if err := e.planHistory(p, a.History, info, tx); err != nil {
		return err
	}
	for _, b := range a.Bumps {
		p.ops = append(p.ops, b.Op())
	}
	return nil
}

func (e *Executor) planTokens(p *plan, a *TokensBatch, info inter.BlockInfo, tx state.Transaction) error {
	for _, b := range a.Balances {
		if op, ok := drive.SetTokenBalanceOp(b.Token, b.Holder, b.Balance, b.Existed); ok {
			p.ops = append(p.ops, op)
		}
	}
	for _, s := range a.Supplies {
		p.ops = append(p.ops, drive.SetTokenSupplyOp(s.Token, s.Supply))
	}
	for _, f := range a.Freezes {
		if f.Frozen {
			p.ops = append(p.ops, drive.FreezeOp(f.Token, f.Holder))
		} else {
			p.ops = append(p.ops, drive.UnfreezeOp(f.Token, f.Holder))
		}
	}
	if err := e.planHistory(p, a.History, info, tx); err != nil {
		return err
	}
	for _, b := range a.Bumps {
		p.ops = append(p.ops, b.Op())
	}
	return nil
}

func (e *Executor) planHistory(p *plan, records []dpp.HistoryRecord, info inter.BlockInfo, tx state.Transaction) error {
	if len(records) == 0 {
		return nil
	}
	index, err := e.drive.NextHistoryIndex(tx)
	if err != nil {
		return err
	}
	stamped := make([]dpp.HistoryRecord, len(records))
	for i, r := range records {
		r.Time = info.Time
		r.Height = uint64(info.Height)
		stamped[i] = r
	}
	ops, err := drive.HistoryOps(index, stamped)
	if err != nil {
		return err
	}
	p.ops = append(p.ops, ops...)
	return nil
}
