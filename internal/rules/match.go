package rules

// Accept reports whether any rule admits the packet. Unknown buckets,
// uncovered ports and unparsable addresses are denied.
func (ix *Index) Accept(direction, protocol string, port int, address string) bool {
	addr, err := ParseAddress(address)
	if err != nil {
		return false
	}
	return ix.AcceptAddress(direction, protocol, port, addr)
}

func (ix *Index) AcceptAddress(direction, protocol string, port int, addr Address) bool {
	if ix == nil {
		return false
	}
	bucket, ok := ix.buckets[Key{Direction: direction, Protocol: protocol}]
	if !ok {
		return false
	}

	idx := findPortRange(bucket.entries, port)
	if idx < 0 {
		return false
	}
	return findAddress(bucket.entries[idx].Addresses, addr)
}

// findPortRange binary searches entries by port start. Once the window has
// shrunk to two neighbours both are checked for coverage; a covering range
// further left of the convergence point is not found. Returns -1 when
// nothing covers port.
func findPortRange(entries []Entry, port int) int {
	if len(entries) == 0 {
		return -1
	}

	lo, hi := 0, len(entries)-1
	for lo+1 < hi {
		mid := lo + (hi-lo)/2
		switch start := entries[mid].Ports.Start; {
		case start == port:
			return mid
		case start < port:
			lo = mid
		default:
			hi = mid
		}
	}

	if entries[hi].Ports.Start <= port && entries[hi].Ports.Covers(port) {
		return hi
	}
	if entries[lo].Ports.Start <= port && entries[lo].Ports.Covers(port) {
		return lo
	}
	return -1
}

// findAddress binary searches ranges, sorted by start, for one containing addr.
func findAddress(ranges []AddressRange, addr Address) bool {
	lo, hi := 0, len(ranges)-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		r := ranges[mid]
		c := r.Start.Compare(addr)

		switch {
		case r.Contains(addr):
			return true
		case c > 0:
			hi = mid - 1
		default:
			lo = mid + 1
		}
	}
	return false
}
