package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/stupid-simple/jpf/fingerprint"
)

type Config struct {
	Packages []Package `json:"packages,omitempty" yaml:"packages,omitempty"`
}

// Package is one archive built from a list of inputs.
type Package struct {
	Name         string       `json:"name" yaml:"name"`
	Output       string       `json:"output" yaml:"output"`
	Inputs       []string     `json:"inputs" yaml:"inputs"`
	Fingerprint  string       `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Concurrency  int          `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	MaxAssetSize SizeArgument `json:"max_asset_size,omitempty" yaml:"max_asset_size,omitempty"`
	Overwrite    bool         `json:"overwrite,omitempty" yaml:"overwrite,omitempty"`
	Enable       bool         `json:"enable" yaml:"enable"`
	Schedule     string       `json:"cron,omitempty" yaml:"cron,omitempty"`
}

func (p Package) MarshalZerologObject(e *zerolog.Event) {
	e.Str("name", p.Name)
	e.Str("output", p.Output)
	e.Strs("inputs", p.Inputs)
	e.Bool("enable", p.Enable)

	if p.Fingerprint != "" {
		e.Str("fingerprint", p.Fingerprint)
	}
	if p.Concurrency > 0 {
		e.Int("concurrency", p.Concurrency)
	}
	if p.MaxAssetSize.Size > 0 {
		e.Int64("max_asset_size", p.MaxAssetSize.Size)
	}
	if p.Schedule != "" {
		e.Str("schedule", p.Schedule)
	}
}

// FingerprintAlgorithm returns the configured algorithm, the default when
// none is set.
func (p Package) FingerprintAlgorithm() (fingerprint.Algorithm, error) {
	return fingerprint.ParseAlgorithm(p.Fingerprint)
}

func (p Package) Validate() error {
	var errs []error
	if p.Output == "" {
		errs = append(errs, errors.New("missing output"))
	}
	if len(p.Inputs) == 0 {
		errs = append(errs, errors.New("missing inputs"))
	}
	if _, err := p.FingerprintAlgorithm(); err != nil {
		errs = append(errs, err)
	}
	if p.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("invalid concurrency %d", p.Concurrency))
	}
	if p.Enable && p.Schedule != "" {
		if _, err := cron.ParseStandard(p.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid cron %q: %w", p.Schedule, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("package %q: %w", p.Name, err)
	}
	return nil
}

// Find returns the package with the given name.
func (c *Config) Find(name string) (Package, bool) {
	for _, p := range c.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}

func (c *Config) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for _, p := range c.Packages {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("package for %q has no name", p.Output))
		} else if seen[p.Name] {
			errs = append(errs, fmt.Errorf("duplicate package name %q", p.Name))
		}
		seen[p.Name] = true

		if err := p.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
