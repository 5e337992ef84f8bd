// Package loader reads raw rule records from files, Redis lists or Postgres
// tables. Records are handed to the rules package unvalidated, in source order.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/micrictor/fwrules/internal/rules"
)

var (
	ErrNotFound        = errors.New("rule source not found")
	ErrMalformedRecord = errors.New("rule record must have 4 fields")
)

// Source yields the ordered rule records of one backing store.
type Source interface {
	Load(ctx context.Context) ([]rules.Rule, error)
	String() string
}

var header = []string{"direction", "protocol", "port", "ip_address"}

// ParseCSV reads one rule per line. Blank lines, "#" comments and a leading
// header row are skipped.
func ParseCSV(r io.Reader) ([]rules.Rule, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var result []rules.Rule
	for first := true; ; first = false {
		record, err := reader.Read()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if first && isHeader(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		rule, err := fromFields(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		result = append(result, rule)
	}
}

// ParseRecord splits a single comma separated rule.
func ParseRecord(record string) (rules.Rule, error) {
	return fromFields(strings.Split(record, ","))
}

func fromFields(fields []string) (rules.Rule, error) {
	if len(fields) != 4 {
		return rules.Rule{}, fmt.Errorf("%w, got %d", ErrMalformedRecord, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return rules.Rule{
		Direction: fields[0],
		Protocol:  fields[1],
		Port:      fields[2],
		Address:   fields[3],
	}, nil
}

func isHeader(record []string) bool {
	if len(record) != len(header) {
		return false
	}
	for i, name := range header {
		if !strings.EqualFold(strings.TrimSpace(record[i]), name) {
			return false
		}
	}
	return true
}
