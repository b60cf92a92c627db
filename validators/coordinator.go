// Package validators keeps the masternode list announced by the core chain
// and derives the quorum that validates platform blocks from it.
package validators

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/Fantom-foundation/lachesis-base/inter/pos"
	"github.com/sirupsen/logrus"

	"github.com/dashpay/platform-sub039/drive"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/inter/drivertype"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/state"
)

// MasternodeListDiff is the change of the masternode list between two core
// chain-locked heights.
type MasternodeListDiff struct {
	Added   []drivertype.Masternode
	Updated []drivertype.Masternode
	Removed []inter.ProTxHash
}

// Empty reports whether the diff changes nothing.
func (d MasternodeListDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// Coordinator applies masternode diffs and rotates the quorum.
type Coordinator struct {
	drive *drive.Drive
	log   logrus.FieldLogger
}

func NewCoordinator(d *drive.Drive, log logrus.FieldLogger) *Coordinator {
	return &Coordinator{drive: d, log: log}
}

type rotateFn func(c *Coordinator, tx state.Transaction, pv *platform.PlatformVersion) (*drivertype.ValidatorSetUpdate, error)

var rotations = map[platform.FeatureVersion]rotateFn{
	0: (*Coordinator).rotateV0,
}

// Apply stores diff and returns the new quorum if it differs from the active
// one, nil otherwise.
func (c *Coordinator) Apply(tx state.Transaction, diff MasternodeListDiff, pv *platform.PlatformVersion) (*drivertype.ValidatorSetUpdate, error) {
	rotate, err := platform.Dispatch("validators.rotation", pv.Validators.Rotation, rotations)
	if err != nil {
		return nil, err
	}
	ops := make([]state.Op, 0, len(diff.Added)+len(diff.Updated)+len(diff.Removed))
	for _, list := range [][]drivertype.Masternode{diff.Added, diff.Updated} {
		for i := range list {
			op, err := drive.PutMasternodeOp(&list[i])
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
	}
	for _, pro := range diff.Removed {
		mn, err := c.drive.Masternode(tx, pro)
		if err != nil {
			return nil, err
		}
		if mn == nil {
			c.log.WithField("protx", fmt.Sprintf("%x", pro[:])).Debug("Removed masternode was never registered")
			continue
		}
		ops = append(ops, drive.DeleteMasternodeOp(pro))
	}
	if len(ops) != 0 {
		if _, err := c.drive.Apply(tx, ops); err != nil {
			return nil, err
		}
	}
	return rotate(c, tx, pv)
}

// Quorum derives the quorum from the stored masternode list.
func (c *Coordinator) Quorum(tx state.Transaction, size int) (*drivertype.ValidatorSetUpdate, *pos.Validators, error) {
	all, err := c.drive.Masternodes(tx)
	if err != nil {
		return nil, nil, err
	}
	eligible := make([]drivertype.Masternode, 0, len(all))
	for _, mn := range all {
		if mn.Eligible() && mn.PubKey.Validate() == nil {
			eligible = append(eligible, mn)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Weight != eligible[j].Weight {
			return eligible[i].Weight > eligible[j].Weight
		}
		return bytes.Compare(eligible[i].ProTxHash[:], eligible[j].ProTxHash[:]) < 0
	})
	if size >= 0 && len(eligible) > size {
		eligible = eligible[:size]
	}

	builder := pos.NewBuilder()
	byID := make(map[idx.ValidatorID]drivertype.Masternode, len(eligible))
	for i, mn := range eligible {
		id := idx.ValidatorID(i + 1)
		builder.Set(id, mn.Weight)
		byID[id] = mn
	}
	set := builder.Build()

	update := &drivertype.ValidatorSetUpdate{Validators: make([]drivertype.Validator, 0, len(eligible))}
	for _, id := range set.SortedIDs() {
		mn := byID[id]
		update.Validators = append(update.Validators, drivertype.Validator{
			ProTxHash:   mn.ProTxHash,
			ValidatorID: id,
			Power:       mn.Weight,
			PubKey:      mn.PubKey.Copy(),
		})
	}
	update.QuorumHash = QuorumHash(update.Validators)
	return update, set, nil
}

func (c *Coordinator) rotateV0(tx state.Transaction, pv *platform.PlatformVersion) (*drivertype.ValidatorSetUpdate, error) {
	update, set, err := c.Quorum(tx, pv.Validators.QuorumSize)
	if err != nil {
		return nil, err
	}
	if len(update.Validators) == 0 {
		c.log.Warn("No eligible masternodes, keeping the active quorum")
		return nil, nil
	}
	active, _, err := c.drive.ActiveQuorum(tx)
	if err != nil {
		return nil, err
	}
	if active == update.QuorumHash {
		return nil, nil
	}
	ops, err := drive.SetActiveQuorumOps(update)
	if err != nil {
		return nil, err
	}
	if _, err := c.drive.Apply(tx, ops); err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"quorum":  update.QuorumHash.String(),
		"members": len(update.Validators),
		"power":   set.TotalWeight(),
	}).Info("Validator set rotated")
	return update, nil
}

// QuorumHash commits to the members in order.
func QuorumHash(members []drivertype.Validator) hash.Hash {
	parts := make([][]byte, 0, 3*len(members))
	for _, v := range members {
		parts = append(parts, v.ProTxHash[:], bigendian.Uint32ToBytes(uint32(v.Power)), v.PubKey.Bytes())
	}
	return hash.Of(parts...)
}
