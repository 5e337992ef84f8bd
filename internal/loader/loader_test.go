package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micrictor/fwrules/internal/config"
	"github.com/micrictor/fwrules/internal/rules"
)

const sampleCSV = `direction,protocol,port,ip_address
inbound,tcp,80,192.168.1.2
# maintenance window
inbound,udp,53,192.168.2.1

outbound, tcp, 10000-20000, 192.168.10.11
inbound,tcp,81-100,192.168.1.2
`

var sampleRules = []rules.Rule{
	{Direction: "inbound", Protocol: "tcp", Port: "80", Address: "192.168.1.2"},
	{Direction: "inbound", Protocol: "udp", Port: "53", Address: "192.168.2.1"},
	{Direction: "outbound", Protocol: "tcp", Port: "10000-20000", Address: "192.168.10.11"},
	{Direction: "inbound", Protocol: "tcp", Port: "81-100", Address: "192.168.1.2"},
}

func TestParseCSV(t *testing.T) {
	got, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Equal(t, sampleRules, got)
}

func TestParseCSVWithoutHeader(t *testing.T) {
	got, err := ParseCSV(strings.NewReader("inbound,tcp,80,192.168.1.2\n"))
	require.NoError(t, err)
	require.Equal(t, sampleRules[:1], got)
}

func TestParseCSVMalformedRecord(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("inbound,tcp,80,192.168.1.2\ninbound,tcp,80\n"))
	require.ErrorIs(t, err, ErrMalformedRecord)
	require.Contains(t, err.Error(), "line 2")
}

func TestParseRecord(t *testing.T) {
	rule, err := ParseRecord(" inbound ,tcp,80, 10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, rules.Rule{Direction: "inbound", Protocol: "tcp", Port: "80", Address: "10.0.0.1"}, rule)

	_, err = ParseRecord("inbound,tcp")
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestFileLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	got, err := File{Path: path}.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, sampleRules, got)
}

func TestFileNotFound(t *testing.T) {
	_, err := File{Path: filepath.Join(t.TempDir(), "missing.csv")}.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)

	_, err = YAMLFile{Path: filepath.Join(t.TempDir(), "missing.yaml")}.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestYAMLFileLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	contents := `rules:
  - {direction: inbound, protocol: tcp, port: "80", address: 192.168.1.2}
  - {direction: inbound, protocol: udp, port: "53", address: 192.168.2.1}
  - {direction: outbound, protocol: tcp, port: "10000-20000", address: 192.168.10.11}
  - {direction: inbound, protocol: tcp, port: "81-100", address: 192.168.1.2}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	got, err := YAMLFile{Path: path}.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, sampleRules, got)
}

func TestYAMLFileUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - {direction: inbound, proto: tcp}\n"), 0o600))

	_, err := YAMLFile{Path: path}.Load(context.Background())
	require.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	src, closeFn, err := FromConfig(context.Background(), config.RulesConfig{Source: "yaml", Path: "/tmp/r.yaml"})
	require.NoError(t, err)
	require.NoError(t, closeFn())
	require.Equal(t, "yaml:/tmp/r.yaml", src.String())

	src, closeFn, err = FromConfig(context.Background(), config.RulesConfig{Source: "redis", Redis: config.RedisConfig{Address: "127.0.0.1:1", Key: "k"}})
	require.NoError(t, err)
	require.Equal(t, "redis:k", src.String())
	require.NoError(t, closeFn())

	_, _, err = FromConfig(context.Background(), config.RulesConfig{Source: "ftp"})
	require.Error(t, err)
}
