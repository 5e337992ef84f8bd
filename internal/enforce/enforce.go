// Package enforce installs an index's accept rules into the kernel packet
// filter. Inbound terms match on source address in the inbound chain,
// outbound terms on destination address in the outbound chain.
package enforce

import (
	"errors"
	"fmt"

	"github.com/micrictor/fwrules/internal/config"
	"github.com/micrictor/fwrules/internal/rules"
)

const DEFAULT_TABLE = "filter"
const DEFAULT_INBOUND_CHAIN = "INPUT"
const DEFAULT_OUTBOUND_CHAIN = "OUTPUT"
const DEFAULT_ACTION = "ACCEPT"
const RULE_COMMENT = "fwrules"

var (
	ErrUnsupportedPlatform = errors.New("kernel enforcement is only supported on linux")
	ErrUnsupportedBackend  = errors.New("unsupported enforcement backend")
)

// Options selects where rules are installed.
type Options struct {
	Backend       string
	Table         string
	InboundChain  string
	OutboundChain string
}

func OptionsFromConfig(cfg config.EnforceConfig) Options {
	opts := Options{
		Backend:       cfg.Backend,
		Table:         cfg.Table,
		InboundChain:  cfg.InboundChain,
		OutboundChain: cfg.OutboundChain,
	}
	if opts.Backend == "" {
		opts.Backend = "iptables"
	}
	if opts.Table == "" {
		opts.Table = DEFAULT_TABLE
	}
	if opts.InboundChain == "" {
		opts.InboundChain = DEFAULT_INBOUND_CHAIN
	}
	if opts.OutboundChain == "" {
		opts.OutboundChain = DEFAULT_OUTBOUND_CHAIN
	}
	return opts
}

// Spec is one iptables rule in a chain.
type Spec struct {
	Chain string
	Args  []string
}

// Plan is the set of kernel rules derived from an index, plus the terms
// that cannot be expressed (unknown direction or a protocol without ports).
type Plan struct {
	Terms   []rules.Term
	Skipped []rules.Term
}

// NewPlan splits the index's terms into renderable and skipped ones.
func NewPlan(ix *rules.Index) Plan {
	var plan Plan
	for _, term := range ix.Terms() {
		if !renderable(term) {
			plan.Skipped = append(plan.Skipped, term)
			continue
		}
		plan.Terms = append(plan.Terms, term)
	}
	return plan
}

func renderable(term rules.Term) bool {
	switch term.Key.Direction {
	case "inbound", "outbound":
	default:
		return false
	}
	switch term.Key.Protocol {
	case "tcp", "udp":
		return true
	default:
		return false
	}
}

// IptablesSpecs converts the plan into iptables rule specs.
func (p Plan) IptablesSpecs(opts Options) []Spec {
	specs := make([]Spec, 0, len(p.Terms))
	for _, term := range p.Terms {
		chain := opts.InboundChain
		if term.Key.Direction == "outbound" {
			chain = opts.OutboundChain
		}
		specs = append(specs, Spec{Chain: chain, Args: convertTerm(term)})
	}
	return specs
}

// Convert internal term struct into the proper rule spec for IPTables
func convertTerm(term rules.Term) []string {
	spec := []string{
		"--protocol",
		term.Key.Protocol,
		"--dport",
		portSpec(term.Ports),
	}

	addressFlag, rangeFlag := "--source", "--src-range"
	if term.Key.Direction == "outbound" {
		addressFlag, rangeFlag = "--destination", "--dst-range"
	}
	if term.Addresses.HasEnd {
		spec = append(spec, "-m", "iprange", rangeFlag, term.Addresses.String())
	} else {
		spec = append(spec, addressFlag, term.Addresses.Start.String())
	}

	return append(spec,
		"-m", "comment", "--comment", RULE_COMMENT,
		"--jump", DEFAULT_ACTION,
	)
}

func portSpec(ports rules.PortRange) string {
	if ports.HasEnd {
		return fmt.Sprintf("%d:%d", ports.Start, ports.End)
	}
	return fmt.Sprintf("%d", ports.Start)
}

// Enforcer installs and removes a plan.
type Enforcer interface {
	Apply(plan Plan) error
	Remove(plan Plan) error
}

// New returns the enforcer for opts.Backend.
func New(opts Options) (Enforcer, error) {
	switch opts.Backend {
	case "iptables":
		return newIptables(opts)
	case "nftables":
		return newNftables(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, opts.Backend)
	}
}
