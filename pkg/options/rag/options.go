// Package rag provides retrieval-augmented answer configuration options.
package rag

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/medbot/pkg/options"
	"github.com/kart-io/medbot/pkg/validator"
)

var _ options.IOptions = (*Options)(nil)

// Options contains answer pipeline configuration.
type Options struct {
	// TopK is the number of passages retrieved per query.
	TopK int `json:"top-k" mapstructure:"top-k" validate:"gte=1,lte=100"`

	// PromptFile optionally replaces the built-in system prompt.
	PromptFile string `json:"prompt-file" mapstructure:"prompt-file"`

	// RequestTimeout bounds a whole answer; 0 disables it.
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout" validate:"gte=0"`

	// LegacyStatus answers every request with 200, errors included.
	LegacyStatus bool `json:"legacy-status" mapstructure:"legacy-status"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		TopK:           3,
		RequestTimeout: 60 * time.Second,
	}
}

// AddFlags adds flags under "<prefixes>.rag.".
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "rag")...)
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Number of passages retrieved per query.")
	fs.StringVar(&o.PromptFile, p+"prompt-file", o.PromptFile, "Plain text file replacing the built-in system prompt.")
	fs.DurationVar(&o.RequestTimeout, p+"request-timeout", o.RequestTimeout, "Deadline for a whole answer, 0 disables it.")
	fs.BoolVar(&o.LegacyStatus, p+"legacy-status", o.LegacyStatus, "Always reply with HTTP 200, errors included.")
}

// Validate validates the RAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	errs := validator.Struct(o)
	if o.PromptFile != "" {
		if _, err := os.Stat(o.PromptFile); err != nil {
			errs = append(errs, fmt.Errorf("rag.prompt-file: %w", err))
		}
	}
	return errs
}
