//go:build linux

package enforce

import (
	"fmt"
	"strings"

	"github.com/google/nftables"
	"github.com/google/nftables/binaryutil"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"

	"github.com/micrictor/fwrules/internal/rules"
)

// IPv4 header offsets of the source and destination address, and the
// transport header offset of the destination port.
const (
	offsetSaddr = 12
	offsetDaddr = 16
	offsetDport = 2
)

type nftablesEnforcer struct {
	conn *nftables.Conn
	opts Options
}

// newNftables manages its own table. The iptables default "filter" is mapped to
// "fwrules" so that Remove never drops a table other tools share.
func newNftables(opts Options) (Enforcer, error) {
	if opts.Table == DEFAULT_TABLE {
		opts.Table = RULE_COMMENT
	}
	return &nftablesEnforcer{conn: &nftables.Conn{}, opts: opts}, nil
}

func (e *nftablesEnforcer) table() *nftables.Table {
	return &nftables.Table{Family: nftables.TableFamilyIPv4, Name: e.opts.Table}
}

func (e *nftablesEnforcer) chains(table *nftables.Table) (inbound, outbound *nftables.Chain) {
	inbound = &nftables.Chain{
		Name:     strings.ToLower(e.opts.InboundChain),
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookInput,
		Priority: nftables.ChainPriorityFilter,
	}
	outbound = &nftables.Chain{
		Name:     strings.ToLower(e.opts.OutboundChain),
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookOutput,
		Priority: nftables.ChainPriorityFilter,
	}
	return inbound, outbound
}

// Apply installs the plan into a dedicated table, replacing what a previous
// Apply installed there.
func (e *nftablesEnforcer) Apply(plan Plan) error {
	table := e.conn.AddTable(e.table())
	inbound, outbound := e.chains(table)
	e.conn.AddChain(inbound)
	e.conn.AddChain(outbound)
	e.conn.FlushChain(inbound)
	e.conn.FlushChain(outbound)

	for _, term := range plan.Terms {
		chain := inbound
		if term.Key.Direction == "outbound" {
			chain = outbound
		}
		e.conn.AddRule(&nftables.Rule{
			Table: table,
			Chain: chain,
			Exprs: termExprs(term),
		})
	}

	if err := e.conn.Flush(); err != nil {
		return fmt.Errorf("failed to apply nftables rules: %w", err)
	}
	return nil
}

// Remove deletes the dedicated table and everything in it.
func (e *nftablesEnforcer) Remove(plan Plan) error {
	e.conn.DelTable(e.table())
	if err := e.conn.Flush(); err != nil {
		return fmt.Errorf("failed to delete nftables table %s: %w", e.opts.Table, err)
	}
	return nil
}

// termExprs matches l4 protocol, destination port range and address range.
func termExprs(term rules.Term) []expr.Any {
	offset := uint32(offsetSaddr)
	if term.Key.Direction == "outbound" {
		offset = offsetDaddr
	}
	first, last := term.Addresses.Start, term.Addresses.Last()

	return []expr.Any{
		&expr.Meta{Key: expr.MetaKeyL4PROTO, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{l4proto(term.Key.Protocol)}},
		&expr.Payload{
			DestRegister: 1,
			Base:         expr.PayloadBaseTransportHeader,
			Offset:       offsetDport,
			Len:          2,
		},
		&expr.Range{
			Op:       expr.CmpOpEq,
			Register: 1,
			FromData: binaryutil.BigEndian.PutUint16(uint16(term.Ports.Start)),
			ToData:   binaryutil.BigEndian.PutUint16(uint16(term.Ports.Last())),
		},
		&expr.Payload{
			DestRegister: 1,
			Base:         expr.PayloadBaseNetworkHeader,
			Offset:       offset,
			Len:          4,
		},
		&expr.Range{
			Op:       expr.CmpOpEq,
			Register: 1,
			FromData: first[:],
			ToData:   last[:],
		},
		&expr.Verdict{Kind: expr.VerdictAccept},
	}
}

func l4proto(protocol string) byte {
	if protocol == "udp" {
		return unix.IPPROTO_UDP
	}
	return unix.IPPROTO_TCP
}
