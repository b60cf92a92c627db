package launcher

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/dashpay/platform-sub039/abci"
	"github.com/dashpay/platform-sub039/flags"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/nonce"
	"github.com/dashpay/platform-sub039/platform/genesis"
	"github.com/dashpay/platform-sub039/state"
	"github.com/dashpay/platform-sub039/transition"
)

var (
	initCommand = cli.Command{
		Action:    withNode(initChain),
		Name:      "init",
		Usage:     "Write the genesis state",
		ArgsUsage: "",
		Description: `
Initializes the state database from --genesis, or from a generated fakenet
genesis with --fakenet <identities>/<masternodes>.`,
	}
	inspectCommand = cli.Command{
		Action: withNode(inspect),
		Name:   "inspect",
		Usage:  "Print the last committed block, epoch and quorum",
	}
	proveCommand = cli.Command{
		Action: withNode(prove),
		Name:   "prove",
		Usage:  "Query committed state and print a proof against the app hash",
		Flags:  flags.QueryFlags(),
	}
	simulateCommand = cli.Command{
		Action: withNode(simulate),
		Name:   "simulate",
		Usage:  "Produce fakenet blocks of signed credit transfers",
		Flags:  flags.SimulateFlags(),
		Description: `
Runs PrepareProposal, ProcessProposal, FinalizeBlock and Commit for every
block, initializing the chain first when needed. Requires --fakenet so the
identity keys are known.`,
	}
	dumpConfigCommand = cli.Command{
		Action: dumpConfig,
		Name:   "dumpconfig",
		Usage:  "Print the effective configuration as TOML",
	}
	dumpGenesisCommand = cli.Command{
		Action: dumpGenesis,
		Name:   "dumpgenesis",
		Usage:  "Print the genesis file the node would use",
	}
)

// withNode opens the node around action.
func withNode(action func(*cli.Context, *Node) error) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		cfg, err := MakeAllConfigs(ctx)
		if err != nil {
			return err
		}
		log, err := SetupLogging(cfg.Node.Logging, ctx.App.ErrWriter)
		if err != nil {
			return err
		}
		n, err := OpenNode(cfg, log)
		if err != nil {
			return err
		}
		defer n.Close()
		return action(ctx, n)
	}
}

func initChain(ctx *cli.Context, n *Node) error {
	g, err := LoadGenesis(n.Config.Network, time.Now())
	if err != nil {
		return err
	}
	resp, err := n.App.InitChain(context.Background(), g)
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	fmt.Fprintf(w, "chain:    %s\n", g.ChainID)
	fmt.Fprintf(w, "app hash: %s\n", resp.AppHash)
	if u := resp.ValidatorSetUpdate; u != nil {
		fmt.Fprintf(w, "quorum:   %s (%d members)\n", u.QuorumHash, len(u.Validators))
	}
	return nil
}

func inspect(ctx *cli.Context, n *Node) error {
	info, err := n.App.Info(context.Background())
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	fmt.Fprintf(w, "chain:     %s\n", info.ChainID)
	fmt.Fprintf(w, "height:    %d\n", info.LastHeight)
	fmt.Fprintf(w, "app hash:  %s\n", info.LastAppHash)
	fmt.Fprintf(w, "protocol:  %d\n", info.ProtocolVersion)

	d := n.App.Drive()
	es, err := d.EpochState(nil)
	if err != nil {
		return err
	}
	if es == nil {
		fmt.Fprintln(w, "chain not initialized")
		return nil
	}
	fmt.Fprintf(w, "epoch:     %d since block %d at %s\n", es.Epoch, es.StartHeight, es.EpochStart.Time().UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "proposed:  %d blocks by %d masternodes\n", es.Blocks(), len(es.Proposers))
	for _, v := range es.Votes {
		fmt.Fprintf(w, "vote:      v%d in %d blocks\n", v.Version, v.Blocks)
	}

	qh, members, err := d.ActiveQuorum(nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "quorum:    %s\n", qh)
	for _, m := range members {
		fmt.Fprintf(w, "  %3d  %x  power %d\n", m.ValidatorID, m.ProTxHash[:], m.Power)
	}

	if info.LastHeight > 0 {
		rec, err := d.BlockRecord(nil, info.LastHeight)
		if err != nil {
			return err
		}
		if rec != nil {
			fmt.Fprintf(w, "last block: %d accepted, %d rejected, processing %d, storage %d\n",
				rec.Accepted, rec.Rejected, rec.ProcessingFee, rec.StorageFee)
		}
	}
	if es.Epoch > 0 {
		rec, err := d.Settlement(nil, inter.MustEpoch(es.Epoch-1))
		if err != nil {
			return err
		}
		if rec != nil {
			fmt.Fprintf(w, "epoch %d settled: pool %d, paid %d, carry %d, next protocol %d\n",
				es.Epoch-1, rec.Pool(), rec.Paid(), rec.CarryOut, rec.NextProtocolVersion)
		}
	}
	return nil
}

// parseKey accepts 0x-prefixed hex or a base58 identifier.
func parseKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "0x") {
		return hexutil.Decode(s)
	}
	id, err := inter.IdentifierFromString(s)
	if err != nil {
		return nil, err
	}
	return id.Bytes(), nil
}

func prove(ctx *cli.Context, n *Node) error {
	path, err := state.ParsePath(ctx.String("path"))
	if err != nil {
		return err
	}
	key, err := parseKey(ctx.String("key"))
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	startAfter, err := parseKey(ctx.String("start-after"))
	if err != nil {
		return fmt.Errorf("start-after: %w", err)
	}
	req := abci.QueryRequest{Path: path, Key: key, StartAfter: startAfter, Limit: ctx.Int("limit"), Prove: true}
	resp, err := n.App.Query(context.Background(), req)
	if err != nil {
		return err
	}
	info, err := n.App.Info(context.Background())
	if err != nil {
		return err
	}
	proof, err := state.DecodeProof(resp.Proof)
	if err != nil {
		return err
	}
	q := state.PathQuery{Path: path, Key: key, StartAfter: startAfter, Limit: req.Limit}
	if _, err := state.VerifyProof(info.LastAppHash, q, proof); err != nil {
		return err
	}

	w := ctx.App.Writer
	fmt.Fprintf(w, "height:   %d\n", resp.Height)
	fmt.Fprintf(w, "app hash: %s\n", info.LastAppHash)
	for _, item := range resp.Items {
		fmt.Fprintf(w, "%s/%s = %s\n", path, hexutil.Encode(item.Key), hexutil.Encode(item.Element.Value))
	}
	if len(resp.Items) == 0 {
		fmt.Fprintln(w, "no items")
	}
	fmt.Fprintf(w, "proof:    %s\n", hexutil.Encode(resp.Proof))
	return nil
}

func simulate(ctx *cli.Context, n *Node) error {
	if n.Config.Network.FakeNet == "" {
		return fmt.Errorf("simulate needs --fakenet")
	}
	identities, _, err := ParseFakeNet(n.Config.Network.FakeNet)
	if err != nil {
		return err
	}
	if identities < 2 {
		return fmt.Errorf("simulate needs at least two identities")
	}
	c, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := n.ServeMetrics(c); err != nil {
		return err
	}

	sim := &simulator{
		node:       n,
		identities: identities,
		perBlock:   ctx.Int("txs"),
		step:       inter.Timestamp(ctx.Duration("block.time") / time.Millisecond),
		log:        n.Log.WithField("module", "simulate"),
	}
	if err := sim.ensureInitialized(c); err != nil {
		return err
	}
	for i := 0; i < ctx.Int("blocks"); i++ {
		if err := sim.block(c, ctx.App.Writer); err != nil {
			return err
		}
	}
	return nil
}

type simulator struct {
	node       *Node
	identities int
	perBlock   int
	step       inter.Timestamp
	log        logrus.FieldLogger
	next       int
}

func (s *simulator) ensureInitialized(ctx context.Context) error {
	es, err := s.node.App.Drive().EpochState(nil)
	if err != nil || es != nil {
		return err
	}
	g, err := LoadGenesis(s.node.Config.Network, time.Now())
	if err != nil {
		return err
	}
	resp, err := s.node.App.InitChain(ctx, g)
	if err != nil {
		return err
	}
	s.log.WithField("app_hash", resp.AppHash).Info("Initialized fakenet chain")
	return nil
}

// request builds the next block from committed state.
func (s *simulator) request() (*abci.BlockRequest, error) {
	d := s.node.App.Drive()
	info, err := s.node.App.Info(context.Background())
	if err != nil {
		return nil, err
	}
	es, err := d.EpochState(nil)
	if err != nil {
		return nil, err
	}
	last := es.EpochStart
	if info.LastHeight > 0 {
		rec, err := d.BlockRecord(nil, info.LastHeight)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("no record of block %d", info.LastHeight)
		}
		last = rec.Time
	}
	_, members, err := d.ActiveQuorum(nil)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("no active quorum")
	}
	height := info.LastHeight + 1
	req := &abci.BlockRequest{
		Height:             height,
		Time:               last + s.step,
		Proposer:           members[int(height)%len(members)].ProTxHash,
		ProposedAppVersion: info.ProtocolVersion,
	}

	nonces := make(map[int]uint64)
	for i := 0; i < s.perBlock; i++ {
		from := s.next % s.identities
		to := (from + 1) % s.identities
		s.next++
		if _, ok := nonces[from]; !ok {
			stored, err := d.IdentityNonce(nil, genesis.FakeIdentityID(from))
			if err != nil {
				return nil, err
			}
			nonces[from] = nonce.Last(stored)
		}
		nonces[from]++
		raw, err := signedTransfer(from, to, 1000, nonces[from])
		if err != nil {
			return nil, err
		}
		req.Txs = append(req.Txs, raw)
	}
	return req, nil
}

func signedTransfer(from, to int, amount, nonce uint64) ([]byte, error) {
	st := &transition.CreditTransferV0{
		IdentityID:  genesis.FakeIdentityID(from),
		RecipientID: genesis.FakeIdentityID(to),
		Amount:      amount,
		Nonce:       nonce,
		Signed:      transition.Signed{KeyID: fakeTransferKey},
	}
	signable, err := st.SignableBytes()
	if err != nil {
		return nil, err
	}
	st.SetSignature(genesis.FakeSigner(from, fakeTransferKey).Sign(signable))
	return transition.Encode(st)
}

// fakeTransferKey is the transfer key of every fake identity.
const fakeTransferKey = 1

func (s *simulator) block(ctx context.Context, w io.Writer) error {
	app := s.node.App
	req, err := s.request()
	if err != nil {
		return err
	}
	prepared, err := app.PrepareProposal(ctx, req)
	if err != nil {
		return err
	}
	req.Txs = prepared.Txs
	processed, err := app.ProcessProposal(ctx, req)
	if err != nil {
		return err
	}
	if !processed.Accept {
		return fmt.Errorf("own proposal at %d rejected: %s", req.Height, processed.Reason)
	}
	final, err := app.FinalizeBlock(ctx, req)
	if err != nil {
		return err
	}
	if final.AppHash != processed.AppHash {
		return fmt.Errorf("block %d: finalized %s, processed %s", req.Height, final.AppHash, processed.AppHash)
	}
	committed, err := app.Commit(ctx)
	if err != nil {
		return err
	}
	accepted := 0
	for _, r := range final.TxResults {
		if r.OK() {
			accepted++
		}
	}
	fmt.Fprintf(w, "block %d: %d/%d accepted, app hash %s\n", committed.Height, accepted, len(final.TxResults), committed.AppHash)
	if rec := final.EpochClosed; rec != nil {
		fmt.Fprintf(w, "  epoch %d closed: paid %d, carry %d\n", rec.State.Epoch, rec.Paid(), rec.CarryOut)
	}
	return nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	return WriteConfig(ctx.App.Writer, cfg)
}

func dumpGenesis(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	g, err := LoadGenesis(cfg.Network, time.Now())
	if err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}
	return g.Write(ctx.App.Writer)
}
