package drive

import (
	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/state"
)

// ContractCache keeps contracts fetched during one block. It is owned by a
// single block execution and must be cleared when that block commits or is
// discarded. Contracts are shared by pointer and never mutated.
type ContractCache struct {
	drive     *Drive
	contracts map[inter.Identifier]*dpp.DataContract
	hits      uint64
	misses    uint64
}

func NewContractCache(d *Drive) *ContractCache {
	return &ContractCache{drive: d, contracts: make(map[inter.Identifier]*dpp.DataContract)}
}

// Fetch returns the contract, reading through tx on a miss. Missing
// contracts are not cached.
func (c *ContractCache) Fetch(tx state.Transaction, id inter.Identifier) (*dpp.DataContract, error) {
	if dc, ok := c.contracts[id]; ok {
		c.hits++
		return dc, nil
	}
	c.misses++
	dc, err := c.drive.FetchContract(tx, id)
	if err != nil || dc == nil {
		return nil, err
	}
	c.contracts[id] = dc
	return dc, nil
}

// Put records a contract written in the current block.
func (c *ContractCache) Put(dc *dpp.DataContract) {
	c.contracts[dc.ID] = dc
}

// Clear drops every entry.
func (c *ContractCache) Clear() {
	c.contracts = make(map[inter.Identifier]*dpp.DataContract)
	c.hits, c.misses = 0, 0
}

// Stats returns hit and miss counts since the last Clear.
func (c *ContractCache) Stats() (hits, misses uint64) {
	return c.hits, c.misses
}
