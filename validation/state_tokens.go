package validation

import (
	"github.com/dashpay/platform-sub039/action"
	"github.com/dashpay/platform-sub039/consensus"
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/nonce"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/transition"
	"github.com/dashpay/platform-sub039/utils/checked"
)

type account struct {
	token, holder inter.Identifier
}

type frozenState struct {
	stored, current bool
}

// tokenLedger overlays the token state a batch has changed so far. The
// order slices keep the emitted action deterministic.
type tokenLedger struct {
	v  *Validator
	tx state.Transaction

	balances     map[account]*action.TokenBalance
	stored       map[account]uint64
	balanceOrder []account
	supplies     map[inter.Identifier]*action.TokenSupply
	supplyOrder  []inter.Identifier
	frozen       map[account]*frozenState
	frozenOrder  []account
}

func newTokenLedger(v *Validator, tx state.Transaction) *tokenLedger {
	return &tokenLedger{
		v:        v,
		tx:       tx,
		balances: make(map[account]*action.TokenBalance),
		stored:   make(map[account]uint64),
		supplies: make(map[inter.Identifier]*action.TokenSupply),
		frozen:   make(map[account]*frozenState),
	}
}

func (l *tokenLedger) balance(a account) (*action.TokenBalance, error) {
	if b, ok := l.balances[a]; ok {
		return b, nil
	}
	v, err := l.v.drive.TokenBalance(l.tx, a.token, a.holder)
	if err != nil {
		return nil, err
	}
	b := &action.TokenBalance{Token: a.token, Holder: a.holder, Balance: v, Existed: v != 0}
	l.balances[a] = b
	l.stored[a] = v
	l.balanceOrder = append(l.balanceOrder, a)
	return b, nil
}

func (l *tokenLedger) supply(token inter.Identifier) (*action.TokenSupply, error) {
	if s, ok := l.supplies[token]; ok {
		return s, nil
	}
	v, err := l.v.drive.TokenSupply(l.tx, token)
	if err != nil {
		return nil, err
	}
	s := &action.TokenSupply{Token: token, Supply: v}
	l.supplies[token] = s
	l.supplyOrder = append(l.supplyOrder, token)
	return s, nil
}

func (l *tokenLedger) freezeState(a account) (*frozenState, error) {
	if f, ok := l.frozen[a]; ok {
		return f, nil
	}
	v, err := l.v.drive.TokenFrozen(l.tx, a.token, a.holder)
	if err != nil {
		return nil, err
	}
	f := &frozenState{stored: v, current: v}
	l.frozen[a] = f
	l.frozenOrder = append(l.frozenOrder, a)
	return f, nil
}

func (l *tokenLedger) isFrozen(a account) (bool, error) {
	f, err := l.freezeState(a)
	if err != nil {
		return false, err
	}
	return f.current, nil
}

// emit writes the state that differs from the store into act.
func (l *tokenLedger) emit(act *action.TokensBatch, touched map[inter.Identifier]bool) {
	for _, a := range l.balanceOrder {
		if b := l.balances[a]; b.Balance != l.stored[a] {
			act.Balances = append(act.Balances, *b)
		}
	}
	for _, t := range l.supplyOrder {
		if touched[t] {
			act.Supplies = append(act.Supplies, *l.supplies[t])
		}
	}
	for _, a := range l.frozenOrder {
		if f := l.frozen[a]; f.current != f.stored {
			act.Freezes = append(act.Freezes, action.TokenFreeze{Token: a.token, Holder: a.holder, Frozen: f.current})
		}
	}
}

func tokensBatchStateV0(v *Validator, st transition.StateTransition, auth *authorization, info inter.BlockInfo, tx state.Transaction) (Result, error) {
	t := st.(*transition.TokensBatchV0)
	act := action.NewTokensBatch(t.Owner, v.feeInputs(st, auth))
	ledger := newTokenLedger(v, tx)
	touched := make(map[inter.Identifier]bool)
	chain := newNonceChain(v, t.Owner, tx)
	var bumps []nonce.Bump
	for i := range t.Transitions {
		tt := &t.Transitions[i]
		res, err := chain.claim(tt.ContractID, tt.Nonce)
		if err != nil || !res.IsValid() {
			return consensus.Invalid[action.Action](res.Errors...), err
		}
		bumps = append(bumps, res.Data)

		cerr, err := applyToken(v, ledger, act, touched, t.Owner, tt, tx)
		if err != nil || cerr != nil {
			return consensus.Invalid[action.Action](consensusErrs(cerr)...), err
		}
	}
	ledger.emit(act, touched)
	act.Bumps = chain.final(bumps)
	return v.finish(act, info, tx, auth.identity.Balance, 0, v.pv.Fees.Schedule.TokenMinFee)
}

func applyToken(v *Validator, l *tokenLedger, act *action.TokensBatch, touched map[inter.Identifier]bool, owner inter.Identifier, tt *transition.TokenTransition, tx state.Transaction) (*consensus.Error, error) {
	contract, err := v.contracts.Fetch(tx, tt.ContractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return consensus.New(consensus.DataContractNotFound, consensus.ID("contract", tt.ContractID)), nil
	}
	cfg, ok := contract.Token(tt.Position)
	if !ok {
		return consensus.New(consensus.TokenNotFound,
			consensus.ID("contract", contract.ID), consensus.Uint("position", uint64(tt.Position))), nil
	}
	token := dpp.TokenID(contract.ID, tt.Position)
	self := account{token, owner}
	unauthorized := consensus.New(consensus.TokenUnauthorized, consensus.ID("token", token), consensus.ID("identity", owner))
	frozenErr := func(holder inter.Identifier) *consensus.Error {
		return consensus.New(consensus.TokenAccountFrozen, consensus.ID("token", token), consensus.ID("holder", holder))
	}
	recipientExists := func(id inter.Identifier) (*consensus.Error, error) {
		exists, err := v.drive.IdentityExists(tx, id)
		if err != nil || exists {
			return nil, err
		}
		return consensus.New(consensus.RecipientNotFound, consensus.ID("recipient", id)), nil
	}
	debit := func(a account) (*consensus.Error, error) {
		if frozen, err := l.isFrozen(a); err != nil || frozen {
			if err != nil {
				return nil, err
			}
			return frozenErr(a.holder), nil
		}
		b, err := l.balance(a)
		if err != nil {
			return nil, err
		}
		if b.Balance < tt.Amount {
			return consensus.New(consensus.InsufficientTokenBalance,
				consensus.ID("token", token), consensus.Uint("balance", b.Balance), consensus.Uint("required", tt.Amount)), nil
		}
		b.Balance -= tt.Amount
		return nil, nil
	}
	credit := func(a account) error {
		b, err := l.balance(a)
		if err != nil {
			return err
		}
		b.Balance, err = checked.Add(b.Balance, tt.Amount)
		return err
	}

	var (
		kind    dpp.HistoryKind
		subject inter.Identifier
	)
	switch tt.Action {
	case transition.TokenMint:
		if owner != contract.OwnerID {
			return unauthorized, nil
		}
		recipient := tt.Recipient
		if recipient.IsZero() {
			recipient = owner
		}
		if cerr, err := recipientExists(recipient); err != nil || cerr != nil {
			return cerr, err
		}
		s, err := l.supply(token)
		if err != nil {
			return nil, err
		}
		next, err := checked.Add(s.Supply, tt.Amount)
		if err != nil || next > cfg.SupplyCap() {
			return consensus.New(consensus.TokenMaxSupplyExceeded,
				consensus.ID("token", token), consensus.Uint("supply", s.Supply), consensus.Uint("max", cfg.MaxSupply)), nil
		}
		if err := credit(account{token, recipient}); err != nil {
			return nil, err
		}
		s.Supply = next
		touched[token] = true
		kind, subject = dpp.HistoryTokenMint, recipient

	case transition.TokenBurn:
		if cerr, err := debit(self); err != nil || cerr != nil {
			return cerr, err
		}
		s, err := l.supply(token)
		if err != nil {
			return nil, err
		}
		if s.Supply, err = checked.Sub(s.Supply, tt.Amount); err != nil {
			return nil, err
		}
		touched[token] = true
		kind = dpp.HistoryTokenBurn

	case transition.TokenTransfer:
		if cerr, err := recipientExists(tt.Recipient); err != nil || cerr != nil {
			return cerr, err
		}
		if cerr, err := debit(self); err != nil || cerr != nil {
			return cerr, err
		}
		if err := credit(account{token, tt.Recipient}); err != nil {
			return nil, err
		}
		kind, subject = dpp.HistoryTokenTransfer, tt.Recipient

	case transition.TokenFreeze, transition.TokenUnfreeze:
		if owner != contract.OwnerID {
			return unauthorized, nil
		}
		f, err := l.freezeState(account{token, tt.Recipient})
		if err != nil {
			return nil, err
		}
		f.current = tt.Action == transition.TokenFreeze
		kind, subject = dpp.HistoryTokenFreeze, tt.Recipient
		if !f.current {
			kind = dpp.HistoryTokenUnfreeze
		}
	}

	if cfg.KeepsHistory || contract.KeepsHistory {
		act.History = append(act.History, dpp.HistoryRecord{
			Kind:     kind,
			Contract: contract.ID,
			Entity:   token,
			Actor:    owner,
			Subject:  subject,
			Amount:   tt.Amount,
		})
	}
	return nil, nil
}
