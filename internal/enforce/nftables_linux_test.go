//go:build linux

package enforce

import (
	"testing"

	"github.com/google/nftables/expr"
	"github.com/stretchr/testify/require"

	"github.com/micrictor/fwrules/internal/rules"
)

func TestTermExprs(t *testing.T) {
	term := rules.Term{
		Key:       rules.Key{Direction: "outbound", Protocol: "udp"},
		Ports:     rules.NewPortRange(10000, 20000),
		Addresses: rules.NewAddressRange(rules.Address{10, 0, 0, 1}, rules.Address{10, 0, 0, 9}),
	}
	exprs := termExprs(term)
	require.Len(t, exprs, 7)

	require.Equal(t, []byte{17}, exprs[1].(*expr.Cmp).Data)

	ports := exprs[3].(*expr.Range)
	require.Equal(t, []byte{0x27, 0x10}, ports.FromData)
	require.Equal(t, []byte{0x4e, 0x20}, ports.ToData)

	require.Equal(t, uint32(offsetDaddr), exprs[4].(*expr.Payload).Offset)
	addrs := exprs[5].(*expr.Range)
	require.Equal(t, []byte{10, 0, 0, 1}, addrs.FromData)
	require.Equal(t, []byte{10, 0, 0, 9}, addrs.ToData)

	require.Equal(t, expr.VerdictAccept, exprs[6].(*expr.Verdict).Kind)
}

func TestTermExprsSingleValues(t *testing.T) {
	term := rules.Term{
		Key:       rules.Key{Direction: "inbound", Protocol: "tcp"},
		Ports:     rules.SinglePort(80),
		Addresses: rules.SingleAddress(rules.Address{192, 168, 1, 2}),
	}
	exprs := termExprs(term)

	require.Equal(t, []byte{6}, exprs[1].(*expr.Cmp).Data)
	ports := exprs[3].(*expr.Range)
	require.Equal(t, ports.FromData, ports.ToData)
	require.Equal(t, uint32(offsetSaddr), exprs[4].(*expr.Payload).Offset)
	addrs := exprs[5].(*expr.Range)
	require.Equal(t, []byte{192, 168, 1, 2}, addrs.ToData)
}

func TestNftablesOwnTable(t *testing.T) {
	e, err := newNftables(Options{Backend: "nftables", Table: DEFAULT_TABLE})
	require.NoError(t, err)
	require.Equal(t, RULE_COMMENT, e.(*nftablesEnforcer).table().Name)

	e, err = newNftables(Options{Backend: "nftables", Table: "edge"})
	require.NoError(t, err)
	require.Equal(t, "edge", e.(*nftablesEnforcer).table().Name)
}
