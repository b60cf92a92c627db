package launcher

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/dashpay/platform-sub039/platform/genesis"
)

// launch runs the launcher app and returns what the command printed.
func launch(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := Launch(append([]string{"platform"}, args...))
	return out.String(), err
}

func TestParseFakeNet(t *testing.T) {
	ids, mns, err := ParseFakeNet("3/4")
	require.NoError(t, err)
	require.Equal(t, 3, ids)
	require.Equal(t, 4, mns)

	for _, bad := range []string{"", "3", "3/0", "x/4", "-1/4", "1/2/3"} {
		_, _, err := ParseFakeNet(bad)
		require.Error(t, err, bad)
	}
}

func TestLoadGenesis(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := LoadGenesis(NetworkConfig{Name: "fake"}, now)
	require.ErrorIs(t, err, ErrNoGenesis)

	g, err := LoadGenesis(NetworkConfig{Name: "fake", FakeNet: "2/3"}, now)
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	require.Len(t, g.Masternodes, 3)
	require.Equal(t, now, g.Time)

	// a written genesis reads back through --genesis
	path := filepath.Join(t.TempDir(), "genesis.toml")
	var buf bytes.Buffer
	require.NoError(t, g.Write(&buf))
	writeFile(t, filepath.Dir(path), filepath.Base(path), buf.String())

	loaded, err := LoadGenesis(NetworkConfig{Name: "fake", Genesis: path}, now.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, g.ChainID, loaded.ChainID)
	require.Equal(t, g.Identities, loaded.Identities)
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	log, err := SetupLogging(LoggingConfig{Verbosity: 3, Format: "json"}, &buf)
	require.NoError(t, err)
	require.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.Info("hidden")
	log.WithField("height", 7).Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"height":7`)

	_, err = SetupLogging(LoggingConfig{Verbosity: 9}, &buf)
	require.Error(t, err)
	_, err = SetupLogging(LoggingConfig{Verbosity: 4, Format: "xml"}, &buf)
	require.Error(t, err)
}

func TestInitSimulateInspect(t *testing.T) {
	dir := t.TempDir()
	global := []string{"--datadir", dir, "--fakenet", "3/4", "--log.verbosity", "0"}
	run := func(args ...string) string {
		out, err := launch(t, append(append([]string{}, global...), args...)...)
		require.NoError(t, err, strings.Join(args, " "))
		return out
	}

	out := run("init")
	require.Contains(t, out, genesis.FakeGenesis(3, 4, FakeBalance, time.Now()).ChainID)
	require.Contains(t, out, "4 members")

	_, err := launch(t, append(append([]string{}, global...), "init")...)
	require.Error(t, err, "second init must fail")

	out = run("simulate", "--blocks", "3", "--txs", "2")
	require.Equal(t, 3, strings.Count(out, "2/2 accepted"), out)

	out = run("inspect")
	require.Contains(t, out, "height:    3")
	require.Contains(t, out, "last block: 2 accepted, 0 rejected")

	// simulate resumes from the committed height
	out = run("simulate", "--blocks", "1", "--txs", "1")
	require.Contains(t, out, "block 4: 1/1 accepted")
}

func TestProveIdentityBalance(t *testing.T) {
	dir := t.TempDir()
	global := []string{"--datadir", dir, "--fakenet", "2/2", "--log.verbosity", "0"}
	_, err := launch(t, append(global, "init")...)
	require.NoError(t, err)

	id := genesis.FakeIdentityID(0)
	out, err := launch(t, append(global, "prove", "--path", "balances", "--key", id.String())...)
	require.NoError(t, err)
	require.Contains(t, out, "proof:")
	require.NotContains(t, out, "no items")
}

func TestSimulateNeedsFakenet(t *testing.T) {
	_, err := launch(t, "--datadir", t.TempDir(), "--log.verbosity", "0", "simulate")
	require.Error(t, err)
}
