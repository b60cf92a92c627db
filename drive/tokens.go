package drive

import (
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/state"
)

var frozenMarker = []byte{1}

func (d *Drive) TokenBalance(tx state.Transaction, token, holder inter.Identifier) (uint64, error) {
	v, _, err := d.GetU64(tx, TokenBalancesPath(token), holder.Bytes())
	return v, err
}

func (d *Drive) TokenSupply(tx state.Transaction, token inter.Identifier) (uint64, error) {
	v, _, err := d.GetU64(tx, TokenPath(token), KeySupply)
	return v, err
}

func (d *Drive) TokenFrozen(tx state.Transaction, token, holder inter.Identifier) (bool, error) {
	e, err := d.Get(tx, TokenFrozenPath(token), holder.Bytes())
	return e != nil, err
}

// SetTokenBalanceOp writes a holder balance. A zero balance removes the
// entry, which requires it to exist.
func SetTokenBalanceOp(token, holder inter.Identifier, balance uint64, exists bool) (state.Op, bool) {
	if balance == 0 {
		if !exists {
			return state.Op{}, false
		}
		return state.Delete(TokenBalancesPath(token), holder.Bytes()), true
	}
	return PutU64(TokenBalancesPath(token), holder.Bytes(), balance), true
}

func SetTokenSupplyOp(token inter.Identifier, supply uint64) state.Op {
	return PutU64(TokenPath(token), KeySupply, supply)
}

func FreezeOp(token, holder inter.Identifier) state.Op {
	return state.Insert(TokenFrozenPath(token), holder.Bytes(), frozenMarker)
}

func UnfreezeOp(token, holder inter.Identifier) state.Op {
	return state.Delete(TokenFrozenPath(token), holder.Bytes())
}
