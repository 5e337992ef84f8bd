package rules

import (
	"bytes"
	"fmt"
)

const MAX_PORT = 65535

// Rule is one raw access rule as handed over by a loader, fields in file order.
type Rule struct {
	Direction string
	Protocol  string
	Port      string
	Address   string
}

func (r Rule) String() string {
	return fmt.Sprintf("%s,%s,%s,%s", r.Direction, r.Protocol, r.Port, r.Address)
}

// Key identifies a bucket. Both parts are matched exactly.
type Key struct {
	Direction string
	Protocol  string
}

// PortRange is an inclusive port interval. Without an end it is the single port Start.
type PortRange struct {
	Start  int
	End    int
	HasEnd bool
}

func SinglePort(port int) PortRange {
	return PortRange{Start: port}
}

func NewPortRange(start, end int) PortRange {
	return PortRange{Start: start, End: end, HasEnd: true}
}

// Covers reports whether port is Start or falls inside [Start, End].
func (p PortRange) Covers(port int) bool {
	if p.Start == port {
		return true
	}
	return p.HasEnd && p.Start <= port && port <= p.End
}

// Last returns the highest port in the range.
func (p PortRange) Last() int {
	if p.HasEnd {
		return p.End
	}
	return p.Start
}

func (p PortRange) String() string {
	if p.HasEnd {
		return fmt.Sprintf("%d-%d", p.Start, p.End)
	}
	return fmt.Sprintf("%d", p.Start)
}

// Address is an IPv4 address, most significant component first.
type Address [4]byte

// Compare orders addresses component by component.
func (a Address) Compare(b Address) int {
	return bytes.Compare(a[:], b[:])
}

func (a Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3])
}

// AddressRange is an inclusive address interval. Without an end it is the single address Start.
type AddressRange struct {
	Start  Address
	End    Address
	HasEnd bool
}

func SingleAddress(a Address) AddressRange {
	return AddressRange{Start: a}
}

func NewAddressRange(start, end Address) AddressRange {
	return AddressRange{Start: start, End: end, HasEnd: true}
}

func (r AddressRange) Contains(a Address) bool {
	c := r.Start.Compare(a)
	if c == 0 {
		return true
	}
	return r.HasEnd && c < 0 && r.End.Compare(a) >= 0
}

// Last returns the highest address in the range.
func (r AddressRange) Last() Address {
	if r.HasEnd {
		return r.End
	}
	return r.Start
}

func (r AddressRange) String() string {
	if r.HasEnd {
		return r.Start.String() + "-" + r.End.String()
	}
	return r.Start.String()
}

// Term is a rule after its port and address fields have been parsed.
type Term struct {
	Key       Key
	Ports     PortRange
	Addresses AddressRange
}
