package rules

import (
	"strconv"
	"strings"
)

const rangeSeparator = "-"

// ParsePortRange parses "<int>" or "<int>-<int>".
func ParsePortRange(spec string) (PortRange, error) {
	startSpec, endSpec, ranged := strings.Cut(spec, rangeSeparator)

	start, err := parsePort(startSpec)
	if err != nil {
		return PortRange{}, err
	}
	if !ranged {
		return SinglePort(start), nil
	}

	end, err := parsePort(endSpec)
	if err != nil {
		return PortRange{}, err
	}
	if end < start {
		return PortRange{}, ErrReversedRange
	}
	return NewPortRange(start, end), nil
}

func parsePort(s string) (int, error) {
	if s == "" {
		return 0, ErrEmptyBound
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrNotNumeric
	}
	if port < 0 || port > MAX_PORT {
		return 0, ErrOutOfRange
	}
	return port, nil
}

// ParseAddress parses a dotted IPv4 address.
func ParseAddress(s string) (Address, error) {
	var addr Address
	if s == "" {
		return addr, ErrEmptyBound
	}

	parts := strings.Split(s, ".")
	if len(parts) != len(addr) {
		return addr, ErrComponentCount
	}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return addr, ErrNotNumeric
		}
		if n < 0 || n > 255 {
			return addr, ErrOutOfRange
		}
		addr[i] = byte(n)
	}
	return addr, nil
}

// ParseAddressRange parses "<a.b.c.d>" or "<a.b.c.d>-<a.b.c.d>".
func ParseAddressRange(spec string) (AddressRange, error) {
	startSpec, endSpec, ranged := strings.Cut(spec, rangeSeparator)

	start, err := ParseAddress(startSpec)
	if err != nil {
		return AddressRange{}, err
	}
	if !ranged {
		return SingleAddress(start), nil
	}

	end, err := ParseAddress(endSpec)
	if err != nil {
		return AddressRange{}, err
	}
	if end.Compare(start) < 0 {
		return AddressRange{}, ErrReversedRange
	}
	return NewAddressRange(start, end), nil
}

// Parse turns the rule at the given input position into a Term.
func Parse(position int, rule Rule) (Term, error) {
	invalid := func(field, value string, err error) (Term, error) {
		return Term{}, &ValidationError{Position: position, Rule: rule, Field: field, Value: value, Err: err}
	}

	if rule.Direction == "" {
		return invalid("direction", rule.Direction, ErrMissingField)
	}
	if rule.Protocol == "" {
		return invalid("protocol", rule.Protocol, ErrMissingField)
	}

	ports, err := ParsePortRange(rule.Port)
	if err != nil {
		return invalid("port", rule.Port, err)
	}
	addresses, err := ParseAddressRange(rule.Address)
	if err != nil {
		return invalid("address", rule.Address, err)
	}

	return Term{
		Key:       Key{Direction: rule.Direction, Protocol: rule.Protocol},
		Ports:     ports,
		Addresses: addresses,
	}, nil
}
