package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the tailer's named configuration-profile file: a boundary
// artifact written and edited by the (out-of-core) CLI front-end, but
// whose schema and loader live here since the tailer (cmd/livetrace)
// needs a concrete type to merge against environment and flag
// precedence.
//
// Grounded on internal/patterns/patterns.go's LoadPatterns: read file,
// yaml.Unmarshal into a typed struct, wrap errors with fmt.Errorf.
type Profile struct {
	LogGroupPatterns []string          `yaml:"log_group_patterns,omitempty"`
	StackName        string            `yaml:"stack_name,omitempty"`
	OTLPEndpoint     string            `yaml:"otlp_endpoint,omitempty"`
	OTLPHeaders      map[string]string `yaml:"otlp_headers,omitempty"`
	AWSRegion        string            `yaml:"aws_region,omitempty"`
	AWSProfile       string            `yaml:"aws_profile,omitempty"`
	PollIntervalSec  int               `yaml:"poll_interval_seconds,omitempty"`
	SessionTimeoutSec int              `yaml:"session_timeout_seconds,omitempty"`
	AttributeGlobs   []string          `yaml:"attribute_globs,omitempty"`
	Theme            string            `yaml:"theme,omitempty"`
	ColorBy          string            `yaml:"color_by,omitempty"`
	ForwardOnly      bool              `yaml:"forward_only,omitempty"`
	EventsOnly       bool              `yaml:"events_only,omitempty"`
}

// LoadProfile reads and parses a tailer configuration-profile YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile YAML: %w", err)
	}
	return &p, nil
}

// MergeProfile overlays flag-supplied overrides onto a loaded profile.
// Non-zero-value overrides win, matching the precedence rule applied
// elsewhere in this package: explicit beats configured beats default.
func MergeProfile(base *Profile, overrides Profile) Profile {
	merged := Profile{}
	if base != nil {
		merged = *base
	}

	if len(overrides.LogGroupPatterns) > 0 {
		merged.LogGroupPatterns = overrides.LogGroupPatterns
	}
	if overrides.StackName != "" {
		merged.StackName = overrides.StackName
	}
	if overrides.OTLPEndpoint != "" {
		merged.OTLPEndpoint = overrides.OTLPEndpoint
	}
	if len(overrides.OTLPHeaders) > 0 {
		if merged.OTLPHeaders == nil {
			merged.OTLPHeaders = make(map[string]string)
		}
		for k, v := range overrides.OTLPHeaders {
			merged.OTLPHeaders[k] = v
		}
	}
	if overrides.AWSRegion != "" {
		merged.AWSRegion = overrides.AWSRegion
	}
	if overrides.AWSProfile != "" {
		merged.AWSProfile = overrides.AWSProfile
	}
	if overrides.PollIntervalSec != 0 {
		merged.PollIntervalSec = overrides.PollIntervalSec
	}
	if overrides.SessionTimeoutSec != 0 {
		merged.SessionTimeoutSec = overrides.SessionTimeoutSec
	}
	if len(overrides.AttributeGlobs) > 0 {
		merged.AttributeGlobs = overrides.AttributeGlobs
	}
	if overrides.Theme != "" {
		merged.Theme = overrides.Theme
	}
	if overrides.ColorBy != "" {
		merged.ColorBy = overrides.ColorBy
	}
	merged.ForwardOnly = merged.ForwardOnly || overrides.ForwardOnly
	merged.EventsOnly = merged.EventsOnly || overrides.EventsOnly

	return merged
}
