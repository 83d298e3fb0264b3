package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Bundle file names inside the configuration directory.
const (
	thresholdsFile    = "thresholds.yml"
	llmValidationFile = "llm_validation.yml"
	qualityGatesFile  = "quality_gates.yml"
	normalizationFile = "normalization.yml"
	mappingRulesFile  = "mapping_rules.yml"
)

// ConfigDirEnvVar is the environment variable naming the configuration directory.
const ConfigDirEnvVar = "UNISCORE_CONFIG_DIR"

// DefaultConfigDir is used when UNISCORE_CONFIG_DIR is not set.
const DefaultConfigDir = "config"

// ErrInvalidConfig indicates a configuration file that exists but cannot be parsed.
var ErrInvalidConfig = errors.New("invalid configuration file")

// Bundle is the immutable configuration set loaded once at startup and passed
// down to matchers, the validation router and the quality gates. A missing
// file yields that section's defaults; a file that exists but fails to parse
// is an error, because silently ignoring operator thresholds would change
// matching decisions.
type Bundle struct {
	Thresholds    Thresholds
	LLM           LLMValidation
	Gates         QualityGates
	Normalization Normalization
	Rules         MappingRules
}

// LoadBundle reads the five configuration files from dir.
func LoadBundle(dir string) (*Bundle, error) {
	bundle := &Bundle{
		Thresholds:    DefaultThresholds(),
		LLM:           DefaultLLMValidation(),
		Gates:         DefaultQualityGates(),
		Normalization: DefaultNormalization(),
		Rules:         DefaultMappingRules(),
	}

	if err := loadSection(filepath.Join(dir, thresholdsFile), &bundle.Thresholds); err != nil {
		return nil, err
	}

	// llm_validation.yml nests its settings under a single top-level key.
	llmFile := struct {
		LLMValidation *LLMValidation `yaml:"llm_validation"`
	}{LLMValidation: &bundle.LLM}
	if err := loadSection(filepath.Join(dir, llmValidationFile), &llmFile); err != nil {
		return nil, err
	}

	if err := loadSection(filepath.Join(dir, qualityGatesFile), &bundle.Gates); err != nil {
		return nil, err
	}

	if err := loadSection(filepath.Join(dir, normalizationFile), &bundle.Normalization); err != nil {
		return nil, err
	}

	if err := loadSection(filepath.Join(dir, mappingRulesFile), &bundle.Rules); err != nil {
		return nil, err
	}

	if bundle.LLM.GrayZone == nil {
		bundle.LLM.GrayZone = make(map[string]GrayZone)
	}

	if bundle.Normalization.Countries == nil {
		bundle.Normalization.Countries = make(map[string]string)
	}

	if bundle.Rules.TeamNameAliases == nil {
		bundle.Rules.TeamNameAliases = make(map[string]string)
	}

	return bundle, nil
}

// LoadBundleFromEnv loads the bundle from the directory named by
// UNISCORE_CONFIG_DIR, falling back to ./config.
func LoadBundleFromEnv() (*Bundle, error) {
	return LoadBundle(GetEnvStr(ConfigDirEnvVar, DefaultConfigDir))
}

// loadSection unmarshals a single YAML file into out, which must arrive
// pre-populated with its defaults. Missing files are not an error.
func loadSection(path string, out any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Config file not found, using defaults",
				slog.String("path", path))

			return nil
		}

		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	// Empty file keeps the defaults.
	if len(data) == 0 {
		return nil
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	return nil
}
