package firewall

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/micrictor/fwrules/internal/loader"
	"github.com/micrictor/fwrules/internal/rules"
)

type staticSource struct {
	rules []rules.Rule
	err   error
}

func (s *staticSource) Load(ctx context.Context) ([]rules.Rule, error) {
	return s.rules, s.err
}

func (s *staticSource) String() string {
	return "static"
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func TestFirewallDeniesBeforeReload(t *testing.T) {
	fw := New(&staticSource{}, testLogger())

	require.False(t, fw.Accept("inbound", "tcp", 80, "192.168.1.2"))
	require.Equal(t, Stats{Total: 1, Denied: 1}, fw.Stats())
}

func TestFirewallReload(t *testing.T) {
	src := &staticSource{rules: []rules.Rule{
		{Direction: "inbound", Protocol: "tcp", Port: "80", Address: "192.168.1.2"},
	}}
	fw := New(src, testLogger())
	require.NoError(t, fw.Reload(context.Background()))

	require.True(t, fw.Accept("inbound", "tcp", 80, "192.168.1.2"))
	require.False(t, fw.Accept("inbound", "tcp", 81, "192.168.1.2"))
	require.Equal(t, Stats{Total: 2, Accepted: 1, Denied: 1, Reloads: 1}, fw.Stats())
}

func TestFirewallKeepsIndexOnFailedReload(t *testing.T) {
	src := &staticSource{rules: []rules.Rule{
		{Direction: "inbound", Protocol: "tcp", Port: "80", Address: "192.168.1.2"},
	}}
	fw := New(src, testLogger())
	require.NoError(t, fw.Reload(context.Background()))
	published := fw.Index()

	src.rules = []rules.Rule{{Direction: "inbound", Protocol: "tcp", Port: "80-", Address: "192.168.1.2"}}
	err := fw.Reload(context.Background())
	var verr *rules.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Same(t, published, fw.Index())

	src.err = loader.ErrNotFound
	require.True(t, errors.Is(fw.Reload(context.Background()), loader.ErrNotFound))
	require.True(t, fw.Accept("inbound", "tcp", 80, "192.168.1.2"))
}

func TestFirewallWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.csv")
	require.NoError(t, os.WriteFile(path, []byte("inbound,tcp,80,192.168.1.2\n"), 0o600))

	fw := New(loader.File{Path: path}, testLogger())
	require.NoError(t, fw.Reload(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Watch(ctx, path) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("inbound,tcp,443,192.168.1.2\n"), 0o600)
		return fw.Index().Accept("inbound", "tcp", 443, "192.168.1.2")
	}, 5*time.Second, 200*time.Millisecond)
	require.False(t, fw.Index().Accept("inbound", "tcp", 80, "192.168.1.2"))
}
