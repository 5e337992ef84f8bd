package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePortRange(t *testing.T) {
	testCases := []struct {
		spec string
		want PortRange
	}{
		{"80", SinglePort(80)},
		{"0", SinglePort(0)},
		{"65535", SinglePort(65535)},
		{"10000-20000", NewPortRange(10000, 20000)},
		{"53-53", NewPortRange(53, 53)},
	}
	for _, tc := range testCases {
		got, err := ParsePortRange(tc.spec)
		require.NoError(t, err, tc.spec)
		require.Equal(t, tc.want, got, tc.spec)
	}
}

func TestParsePortRangeInvalid(t *testing.T) {
	testCases := []struct {
		spec string
		want error
	}{
		{"", ErrEmptyBound},
		{"80-", ErrEmptyBound},
		{"-80", ErrEmptyBound},
		{"http", ErrNotNumeric},
		{"80-9o", ErrNotNumeric},
		{"65536", ErrOutOfRange},
		{"1-70000", ErrOutOfRange},
		{"90-80", ErrReversedRange},
	}
	for _, tc := range testCases {
		_, err := ParsePortRange(tc.spec)
		require.ErrorIs(t, err, tc.want, tc.spec)
	}
}

func TestParseAddressRange(t *testing.T) {
	got, err := ParseAddressRange("192.168.1.2")
	require.NoError(t, err)
	require.Equal(t, SingleAddress(Address{192, 168, 1, 2}), got)

	got, err = ParseAddressRange("10.0.0.1-10.0.0.5")
	require.NoError(t, err)
	require.Equal(t, NewAddressRange(Address{10, 0, 0, 1}, Address{10, 0, 0, 5}), got)
	require.Equal(t, "10.0.0.1-10.0.0.5", got.String())
}

func TestParseAddressRangeInvalid(t *testing.T) {
	testCases := []struct {
		spec string
		want error
	}{
		{"", ErrEmptyBound},
		{"1.2.3", ErrComponentCount},
		{"1.2.3.4.5", ErrComponentCount},
		{"1.2.3.256", ErrOutOfRange},
		{"1.2.3.-4", ErrNotNumeric},
		{"a.b.c.d", ErrNotNumeric},
		{"1.2.3.4-", ErrEmptyBound},
		{"10.0.0.9-10.0.0.1", ErrReversedRange},
	}
	for _, tc := range testCases {
		_, err := ParseAddressRange(tc.spec)
		require.ErrorIs(t, err, tc.want, tc.spec)
	}
}

func TestParseReportsOffendingRule(t *testing.T) {
	rule := Rule{Direction: "inbound", Protocol: "tcp", Port: "80-", Address: "10.0.0.1"}
	_, err := Parse(3, rule)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, 3, verr.Position)
	require.Equal(t, rule, verr.Rule)
	require.Equal(t, "port", verr.Field)
	require.ErrorIs(t, err, ErrEmptyBound)
	require.Contains(t, err.Error(), "inbound,tcp,80-,10.0.0.1")
}

func TestParseMissingKey(t *testing.T) {
	_, err := Parse(0, Rule{Protocol: "tcp", Port: "80", Address: "10.0.0.1"})
	require.ErrorIs(t, err, ErrMissingField)

	_, err = Parse(0, Rule{Direction: "inbound", Port: "80", Address: "10.0.0.1"})
	require.ErrorIs(t, err, ErrMissingField)
}

func TestAddressCompare(t *testing.T) {
	require.Equal(t, 0, Address{10, 0, 0, 1}.Compare(Address{10, 0, 0, 1}))
	require.Equal(t, -1, Address{9, 255, 255, 255}.Compare(Address{10, 0, 0, 0}))
	require.Equal(t, 1, Address{192, 168, 1, 10}.Compare(Address{192, 168, 1, 9}))
}
