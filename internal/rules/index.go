package rules

import (
	"sort"
)

// Entry holds every address range registered under one port range.
type Entry struct {
	Ports     PortRange
	Addresses []AddressRange
}

// Bucket is the rule set of one (direction, protocol) pair, sorted by port start.
type Bucket struct {
	entries []Entry
}

func (b *Bucket) Entries() []Entry {
	return b.entries
}

// Index maps bucket keys to sorted buckets. It is never mutated after Build
// returns, so it may be queried from any number of goroutines.
type Index struct {
	buckets map[Key]*Bucket
	rules   int
}

type Stats struct {
	Rules     int
	Buckets   int
	Entries   int
	Addresses int
}

func (ix *Index) Stats() Stats {
	stats := Stats{Rules: ix.rules, Buckets: len(ix.buckets)}
	for _, b := range ix.buckets {
		stats.Entries += len(b.entries)
		for _, e := range b.entries {
			stats.Addresses += len(e.Addresses)
		}
	}
	return stats
}

// Terms lists the indexed rules as the index sees them: merged port ranges,
// keys in sorted order, entries and addresses in bucket order.
func (ix *Index) Terms() []Term {
	keys := make([]Key, 0, len(ix.buckets))
	for key := range ix.buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Direction != keys[j].Direction {
			return keys[i].Direction < keys[j].Direction
		}
		return keys[i].Protocol < keys[j].Protocol
	})

	var terms []Term
	for _, key := range keys {
		for _, e := range ix.buckets[key].entries {
			for _, addr := range e.Addresses {
				terms = append(terms, Term{Key: key, Ports: e.Ports, Addresses: addr})
			}
		}
	}
	return terms
}

// Bucket returns the bucket for key, or nil when no rule uses it.
func (ix *Index) Bucket(key Key) *Bucket {
	return ix.buckets[key]
}

// Builder groups terms into buckets. Terms that share a port start are merged
// into the first entry registered with that start, keeping that entry's end.
type Builder struct {
	entries map[Key][]Entry
	starts  map[Key]map[int]int
	rules   int
}

func NewBuilder() *Builder {
	return &Builder{
		entries: make(map[Key][]Entry),
		starts:  make(map[Key]map[int]int),
	}
}

// Add parses rule and registers it. position is only used for error reporting.
func (b *Builder) Add(position int, rule Rule) error {
	term, err := Parse(position, rule)
	if err != nil {
		return err
	}
	b.AddTerm(term)
	return nil
}

func (b *Builder) AddTerm(term Term) {
	b.rules++

	starts, ok := b.starts[term.Key]
	if !ok {
		starts = make(map[int]int)
		b.starts[term.Key] = starts
	}
	entries := b.entries[term.Key]

	if idx, ok := starts[term.Ports.Start]; ok {
		entries[idx].Addresses = append(entries[idx].Addresses, term.Addresses)
		return
	}

	starts[term.Ports.Start] = len(entries)
	b.entries[term.Key] = append(entries, Entry{
		Ports:     term.Ports,
		Addresses: []AddressRange{term.Addresses},
	})
}

// Index sorts every bucket and hands the result over. The builder is reset
// and may be reused.
func (b *Builder) Index() *Index {
	ix := &Index{
		buckets: make(map[Key]*Bucket, len(b.entries)),
		rules:   b.rules,
	}

	for key, entries := range b.entries {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Ports.Start < entries[j].Ports.Start
		})
		for _, e := range entries {
			addrs := e.Addresses
			sort.SliceStable(addrs, func(i, j int) bool {
				return addrs[i].Start.Compare(addrs[j].Start) < 0
			})
		}
		ix.buckets[key] = &Bucket{entries: entries}
	}

	b.entries = make(map[Key][]Entry)
	b.starts = make(map[Key]map[int]int)
	b.rules = 0
	return ix
}

// Build indexes rules in input order. The first malformed rule aborts the
// build with a *ValidationError.
func Build(rules []Rule) (*Index, error) {
	b := NewBuilder()
	for i, rule := range rules {
		if err := b.Add(i, rule); err != nil {
			return nil, err
		}
	}
	return b.Index(), nil
}
