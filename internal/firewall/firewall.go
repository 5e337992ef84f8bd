// Package firewall publishes rule indexes built from a loader.Source and
// answers queries against the most recently published one.
package firewall

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/micrictor/fwrules/internal/loader"
	"github.com/micrictor/fwrules/internal/rules"
)

type Stats struct {
	Total    int64
	Accepted int64
	Denied   int64
	Reloads  int64
}

type Firewall struct {
	source loader.Source
	log    logrus.FieldLogger

	index atomic.Pointer[rules.Index]

	total    atomic.Int64
	accepted atomic.Int64
	denied   atomic.Int64
	reloads  atomic.Int64
}

// New returns a Firewall with an empty index; every query is denied until
// Reload succeeds.
func New(source loader.Source, log logrus.FieldLogger) *Firewall {
	fw := &Firewall{source: source, log: log}
	fw.index.Store(rules.NewBuilder().Index())
	return fw
}

// Reload loads and indexes the source. On failure the previous index stays published.
func (fw *Firewall) Reload(ctx context.Context) error {
	records, err := fw.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", fw.source, err)
	}

	ix, err := rules.Build(records)
	if err != nil {
		return fmt.Errorf("index %s: %w", fw.source, err)
	}

	fw.Publish(ix)
	stats := ix.Stats()
	fw.log.WithFields(logrus.Fields{
		"source":  fw.source.String(),
		"rules":   stats.Rules,
		"buckets": stats.Buckets,
		"entries": stats.Entries,
	}).Info("rule index published")
	return nil
}

// Publish replaces the current index. ix must not be modified afterwards.
func (fw *Firewall) Publish(ix *rules.Index) {
	fw.index.Store(ix)
	fw.reloads.Add(1)
}

func (fw *Firewall) Index() *rules.Index {
	return fw.index.Load()
}

func (fw *Firewall) Accept(direction, protocol string, port int, address string) bool {
	accept := fw.index.Load().Accept(direction, protocol, port, address)

	fw.total.Add(1)
	if accept {
		fw.accepted.Add(1)
	} else {
		fw.denied.Add(1)
	}
	return accept
}

func (fw *Firewall) Stats() Stats {
	return Stats{
		Total:    fw.total.Load(),
		Accepted: fw.accepted.Load(),
		Denied:   fw.denied.Load(),
		Reloads:  fw.reloads.Load(),
	}
}
