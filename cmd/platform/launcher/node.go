package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dashpay/platform-sub039/abci"
	"github.com/dashpay/platform-sub039/observability/metrics"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/platform/genesis"
	"github.com/dashpay/platform-sub039/state"
)

// FakeBalance funds every identity of a generated fakenet genesis.
const FakeBalance = 1_000_000_000_000

var ErrNoGenesis = errors.New("no genesis: set --genesis or --fakenet")

// Node is an application opened on the on-disk store.
type Node struct {
	Config   Config
	Rules    platform.Rules
	Store    *state.TrieStore
	App      *abci.Application
	Registry *prometheus.Registry
	Log      *logrus.Logger
}

// OpenNode opens the state database and the application over it.
func OpenNode(cfg Config, log *logrus.Logger) (*Node, error) {
	rules, ok := platform.RulesByName(cfg.Network.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", genesis.ErrUnknownNetwork, cfg.Network.Name)
	}
	store, err := state.OpenLevelStore(cfg.StatePath(), state.DBConfig{
		Cache:   cfg.Store.CacheMB,
		Handles: cfg.Store.Handles,
	})
	if err != nil {
		return nil, err
	}
	store.Log = log.WithField("module", "state")

	n := &Node{Config: cfg, Rules: rules, Store: store, Registry: prometheus.NewRegistry(), Log: log}
	var pm *metrics.PlatformMetrics
	if cfg.Metrics.Enabled {
		pm = metrics.NewPlatform(n.Registry)
	}
	n.App, err = abci.NewApplication(store, abci.Config{
		Rules:              rules,
		Meta:               store.Meta(),
		Parallelism:        cfg.Execution.Parallelism,
		VerifyConservation: cfg.Execution.VerifyConservation,
		Metrics:            pm,
		Log:                log.WithField("node", cfg.Node.Name),
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"network": rules.Name,
		"state":   cfg.StatePath(),
		"preset":  cfg.Store.Preset,
	}).Debug("Node opened")
	return n, nil
}

func (n *Node) Close() error {
	return n.Store.Close()
}

// ServeMetrics exposes the registry over HTTP until ctx is done.
func (n *Node) ServeMetrics(ctx context.Context) error {
	if !n.Config.Metrics.Enabled {
		return nil
	}
	addr := net.JoinHostPort(n.Config.Metrics.Addr, strconv.Itoa(n.Config.Metrics.Port))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(n.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			n.Log.WithError(err).Error("Metrics server failed")
		}
	}()
	n.Log.WithField("addr", addr).Info("Serving metrics")
	return nil
}

// LoadGenesis reads the genesis file or, on fakenet, generates one.
func LoadGenesis(cfg NetworkConfig, now time.Time) (*genesis.Genesis, error) {
	switch {
	case cfg.Genesis != "":
		return genesis.Load(cfg.Genesis)
	case cfg.FakeNet != "":
		ids, nodes, err := ParseFakeNet(cfg.FakeNet)
		if err != nil {
			return nil, err
		}
		return genesis.FakeGenesis(ids, nodes, FakeBalance, now), nil
	}
	return nil, ErrNoGenesis
}

// ParseFakeNet parses "<identities>/<masternodes>".
func ParseFakeNet(s string) (identities, masternodes int, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("fakenet %q: want <identities>/<masternodes>", s)
	}
	if identities, err = strconv.Atoi(parts[0]); err != nil || identities < 0 {
		return 0, 0, fmt.Errorf("fakenet %q: bad identity count", s)
	}
	if masternodes, err = strconv.Atoi(parts[1]); err != nil || masternodes < 1 {
		return 0, 0, fmt.Errorf("fakenet %q: need at least one masternode", s)
	}
	return identities, masternodes, nil
}
