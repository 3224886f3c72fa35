// FILENAME: internal/config/campaign.go
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/mutafuzz/internal/filter"
	"github.com/xkilldash9x/mutafuzz/internal/payload"
)

// Campaign is the on-disk description of one fuzzing run.
type Campaign struct {
	Target       string            `yaml:"target"`
	Template     string            `yaml:"template"`
	TemplateFile string            `yaml:"template_file"`
	Templates    []string          `yaml:"templates"` // files holding one raw request each
	Script       string            `yaml:"script"`
	Wordlists    []string          `yaml:"wordlists"`
	Params       map[string]string `yaml:"params"`

	Engine  EngineConfig `yaml:"engine"`
	Case    payload.Case `yaml:"case"`
	Filters filter.Spec  `yaml:"filters"`
	Output  OutputConfig `yaml:"output"`
}

// EngineConfig mirrors the engine options that are worth tuning per run.
type EngineConfig struct {
	Threads              int           `yaml:"threads"`
	Retries              int           `yaml:"retries"`
	Timeout              time.Duration `yaml:"timeout"`
	Delay                time.Duration `yaml:"delay"`
	Protocol             string        `yaml:"protocol"` // h1, h2 or h3
	FollowRedirects      bool          `yaml:"follow_redirects"`
	KeepHostHeader       bool          `yaml:"keep_host_header"`
	ForceCloseConnection bool          `yaml:"force_close_connection"`
	Insecure             bool          `yaml:"insecure"`
	MaxConnsPerHost      int           `yaml:"max_conns_per_host"`
	QuarantineThreshold  int           `yaml:"quarantine_threshold"`
	QuarantineCooldown   time.Duration `yaml:"quarantine_cooldown"`
}

type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"` // json, csv, sqlite
	Console bool     `yaml:"console"`
	LogFile string   `yaml:"log_file"`
}

var (
	ValidProtocols = []string{"h1", "h2", "h3"}
	ValidFormats   = []string{"json", "csv", "sqlite"}
)

// Default returns a campaign with every engine default filled in.
func Default() *Campaign {
	return &Campaign{
		Script: DefaultScript,
		Params: map[string]string{},
		Engine: EngineConfig{
			Threads:            DefaultThreads,
			Retries:            DefaultRetries,
			Timeout:            DefaultTimeout,
			Protocol:           DefaultProtocol,
			MaxConnsPerHost:    DefaultMaxConnsPerHost,
			QuarantineCooldown: DefaultQuarantineCooldown,
		},
		Output: OutputConfig{
			Dir:     DefaultOutputDir,
			Formats: []string{"json"},
			Console: true,
			LogFile: DefaultLogFile,
		},
	}
}

// Load reads a campaign file on top of the defaults. A missing file is an error.
func Load(path string) (*Campaign, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read campaign: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse campaign: %w", err)
	}
	if c.Params == nil {
		c.Params = map[string]string{}
	}
	return c, nil
}

// ResolveTemplate returns the inline template, or the contents of
// TemplateFile when no inline template is set.
func (c *Campaign) ResolveTemplate() (string, error) {
	if c.Template != "" || c.TemplateFile == "" {
		return c.Template, nil
	}
	data, err := os.ReadFile(c.TemplateFile)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return string(data), nil
}

func (c *Campaign) Validate() error {
	var errs []error
	if c.Engine.Threads < 1 {
		errs = append(errs, fmt.Errorf("engine.threads must be at least 1, got %d", c.Engine.Threads))
	}
	if c.Engine.Retries < 0 {
		errs = append(errs, fmt.Errorf("engine.retries must not be negative"))
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("engine.timeout must be positive"))
	}
	if !slices.Contains(ValidProtocols, c.Engine.Protocol) {
		errs = append(errs, fmt.Errorf("invalid protocol: %s (valid: %v)", c.Engine.Protocol, ValidProtocols))
	}
	if c.Engine.QuarantineThreshold < 0 {
		errs = append(errs, fmt.Errorf("engine.quarantine_threshold must not be negative"))
	}
	if len(c.Wordlists) > payload.Slots {
		errs = append(errs, fmt.Errorf("at most %d wordlists are supported, got %d", payload.Slots, len(c.Wordlists)))
	}
	for _, f := range c.Output.Formats {
		if !slices.Contains(ValidFormats, f) {
			errs = append(errs, fmt.Errorf("invalid output format: %s (valid: %v)", f, ValidFormats))
		}
	}
	if c.Template != "" && c.TemplateFile != "" {
		errs = append(errs, errors.New("template and template_file are mutually exclusive"))
	}
	return errors.Join(errs...)
}
