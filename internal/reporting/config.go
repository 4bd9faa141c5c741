// Package reporting turns a period summary into a reflection report: a
// generator-written narrative when one is supplied and passes validation,
// otherwise the deterministic rule-based template.
package reporting

import "time"

// DefaultModel is the model name passed to the generator.
const DefaultModel = "claude-sonnet-4-5"

// Config holds narrative thresholds.
type Config struct {
	Model            string        `yaml:"model"`
	HighConfidence   float64       `yaml:"high_confidence"`   // losing trades above this are mistakes
	ReasoningSample  int           `yaml:"reasoning_sample"`  // trades quoted in the prompt
	ReasoningMaxLen  int           `yaml:"reasoning_max_len"` // characters kept per quoted field
	GeneratorTimeout time.Duration `yaml:"generator_timeout"`
}

// DefaultConfig returns the default narrative configuration.
func DefaultConfig() Config {
	return Config{
		Model:            DefaultModel,
		HighConfidence:   0.7,
		ReasoningSample:  10,
		ReasoningMaxLen:  280,
		GeneratorTimeout: 60 * time.Second,
	}
}
