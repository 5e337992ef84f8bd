package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/micrictor/fwrules/internal/rules"
)

// File is a CSV rule file.
type File struct {
	Path string
}

func (f File) Load(ctx context.Context) ([]rules.Rule, error) {
	fileHandle, err := openRules(f.Path)
	if err != nil {
		return nil, err
	}
	defer fileHandle.Close()

	result, err := ParseCSV(fileHandle)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return result, nil
}

func (f File) String() string {
	return "file:" + f.Path
}

type yamlRule struct {
	Direction string `yaml:"direction"`
	Protocol  string `yaml:"protocol"`
	Port      string `yaml:"port"`
	Address   string `yaml:"address"`
}

type yamlRules struct {
	Rules []yamlRule `yaml:"rules"`
}

// YAMLFile is a rule file of the form
//
//	rules:
//	  - {direction: inbound, protocol: tcp, port: "80", address: 192.168.1.2}
type YAMLFile struct {
	Path string
}

func (f YAMLFile) Load(ctx context.Context) ([]rules.Rule, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", f.Path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}

	var parsed yamlRules
	if err := yaml.UnmarshalStrict(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}

	result := make([]rules.Rule, 0, len(parsed.Rules))
	for _, r := range parsed.Rules {
		result = append(result, rules.Rule{
			Direction: r.Direction,
			Protocol:  r.Protocol,
			Port:      r.Port,
			Address:   r.Address,
		})
	}
	return result, nil
}

func (f YAMLFile) String() string {
	return "yaml:" + f.Path
}

func openRules(path string) (*os.File, error) {
	fileHandle, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return fileHandle, nil
}
