// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates the per-job configuration: where to
// list files, where to upload them, which fields to anonymize and with what
// credentials.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📦 SourceArgs configures the source filesystem and listing.
type SourceArgs struct {
	Provider          string   `json:"provider,omitempty" yaml:"provider,omitempty" hcl:"provider,optional"`
	Path              string   `json:"path" yaml:"path" hcl:"path"`
	Recursive         bool     `json:"recursive,omitempty" yaml:"recursive,omitempty" hcl:"recursive,optional"`
	Include           []string `json:"include,omitempty" yaml:"include,omitempty" hcl:"include,optional"`
	Ignore            []string `json:"ignore,omitempty" yaml:"ignore,omitempty" hcl:"ignore,optional"`
	Keyring           string   `json:"keyring,omitempty" yaml:"keyring,omitempty" hcl:"keyring,optional"`
	KeyringPassphrase string   `json:"keyring_passphrase,omitempty" yaml:"keyring_passphrase,omitempty" hcl:"keyring_passphrase,optional"`
}

// 📦 DestinationArgs configures the destination object store.
type DestinationArgs struct {
	Path        string `json:"path" yaml:"path" hcl:"path"`
	Suffix      string `json:"suffix,omitempty" yaml:"suffix,omitempty" hcl:"suffix,optional"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty" hcl:"content_type,optional"`
}

// 🔐 ProtectionArgs configures the protection capability, supplied once per
// job.
type ProtectionArgs struct {
	PolicyURL      string `json:"policy_url,omitempty" yaml:"policy_url,omitempty" hcl:"policy_url,optional"`
	Identity       string `json:"identity" yaml:"identity" hcl:"identity"`
	SharedSecret   string `json:"shared_secret" yaml:"shared_secret" hcl:"shared_secret"`
	TrustStorePath string `json:"trust_store,omitempty" yaml:"trust_store,omitempty" hcl:"trust_store,optional"`
	CachePath      string `json:"cache_path,omitempty" yaml:"cache_path,omitempty" hcl:"cache_path,optional"`
}

// 📚 Config represents the complete job configuration
type Config struct {
	Source      SourceArgs      `json:"source" yaml:"source" hcl:"source,block"`
	Destination DestinationArgs `json:"destination" yaml:"destination" hcl:"destination,block"`
	Protection  ProtectionArgs  `json:"protection" yaml:"protection" hcl:"protection,block"`

	// Fields is the field-anonymization spec string, e.g.
	// "ssn:Yes:digits,name:No:alnum"
	Fields string `json:"fields" yaml:"fields" hcl:"fields"`

	BufferSize int  `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty" hcl:"buffer_size,optional"`
	Parallel   int  `json:"parallel,omitempty" yaml:"parallel,omitempty" hcl:"parallel,optional"`
	FailFast   bool `json:"fail_fast,omitempty" yaml:"fail_fast,omitempty" hcl:"fail_fast,optional"`
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks required fields and applies defaults.
func (cfg *Config) Validate() error {
	if cfg.Source.Path == "" {
		return errors.Errorf("source.path is required")
	}
	if cfg.Destination.Path == "" {
		return errors.Errorf("destination.path is required")
	}
	if cfg.Fields == "" {
		return errors.Errorf("fields is required")
	}
	if cfg.Protection.Identity == "" {
		return errors.Errorf("protection.identity is required")
	}
	if cfg.Protection.SharedSecret == "" {
		return errors.Errorf("protection.shared_secret is required")
	}

	if cfg.Source.Provider == "" {
		cfg.Source.Provider = "local"
	}
	if cfg.Destination.ContentType == "" {
		cfg.Destination.ContentType = "text/csv"
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.Parallel <= 0 {
		cfg.Parallel = 1
	}

	return nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%s:%s -> %s (fields: %s)", cfg.Source.Provider, cfg.Source.Path, cfg.Destination.Path, cfg.Fields)
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func init() {
	Register(&YAMLParser{})
}

func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

func init() {
	Register(&HCLParser{})
}

func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var cfg Config
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	return &cfg, nil
}
