//go:build linux

package enforce

import (
	"fmt"

	"github.com/coreos/go-iptables/iptables"
)

type iptablesEnforcer struct {
	ipt  *iptables.IPTables
	opts Options
}

func newIptables(opts Options) (Enforcer, error) {
	ipt, err := iptables.NewWithProtocol(iptables.ProtocolIPv4)
	if err != nil {
		return nil, fmt.Errorf("failed to open iptables: %v", err)
	}
	return &iptablesEnforcer{ipt: ipt, opts: opts}, nil
}

func (e *iptablesEnforcer) Apply(plan Plan) error {
	for _, spec := range plan.IptablesSpecs(e.opts) {
		if err := e.ipt.AppendUnique(e.opts.Table, spec.Chain, spec.Args...); err != nil {
			return fmt.Errorf("failed to add rule %v: %w", spec.Args, err)
		}
	}
	return nil
}

func (e *iptablesEnforcer) Remove(plan Plan) error {
	for _, spec := range plan.IptablesSpecs(e.opts) {
		if err := e.ipt.DeleteIfExists(e.opts.Table, spec.Chain, spec.Args...); err != nil {
			return fmt.Errorf("failed to delete rule %v: %w", spec.Args, err)
		}
	}
	return nil
}
