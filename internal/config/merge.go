package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names.
const (
	keyBatch    = "batch"
	keyLogging  = "logging"
	keyDatabase = "database"
	keyExport   = "export"
	keyMetrics  = "metrics"
)

// knownTopLevelKeys lists the YAML keys that correspond to Config sections.
// Keys not in this list are ignored during merge.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyBatch:    true,
	keyLogging:  true,
	keyDatabase: true,
	keyExport:   true,
	keyMetrics:  true,
}

// ShallowMergeYAML loads a YAML file and merges its top-level sections onto
// target. Sections absent from the file are left unchanged. A section that is
// present is decoded over the current values, so the file only needs to name
// the fields it changes.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", overlayPath, err)
	}

	var overlay map[string]any
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing config YAML from %s: %w", overlayPath, err)
	}

	// Empty or comment-only file.
	if len(overlay) == 0 {
		return nil
	}

	for key, value := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}

		sectionBytes, marshalErr := yaml.Marshal(value)
		if marshalErr != nil {
			return fmt.Errorf("re-marshalling config section %q: %w", key, marshalErr)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying config section %q: %w", key, err)
		}
	}

	return nil
}

// unmarshalSection decodes one section onto the matching field of target.
// Decoding goes through a copy so a section that fails halfway leaves target
// untouched.
func unmarshalSection(target *Config, key string, data []byte) error {
	switch key {
	case keyBatch:
		v := target.Batch
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Batch = v
	case keyLogging:
		v := target.Logging
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Logging = v
	case keyDatabase:
		v := target.Database
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Database = v
	case keyExport:
		v := target.Export
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Export = v
	case keyMetrics:
		v := target.Metrics
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Metrics = v
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
