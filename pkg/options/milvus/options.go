// Package milvusopts provides options for Milvus client configuration.
package milvusopts

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/medbot/pkg/options"
	"github.com/kart-io/medbot/pkg/validator"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Milvus client configuration.
type Options struct {
	// Address is the Milvus server address (host:port) or a Zilliz Cloud endpoint.
	Address string `json:"address" mapstructure:"address" validate:"notblank"`

	// Database is the database name to use.
	Database string `json:"database" mapstructure:"database"`

	// Username for authentication.
	Username string `json:"username" mapstructure:"username"`

	// Password for authentication.
	Password string `json:"-" mapstructure:"password"`

	// EnableTLS turns on TLS for the gRPC connection.
	EnableTLS bool `json:"enable-tls" mapstructure:"enable-tls"`

	// VectorField is the ANNS field searched by the retriever.
	VectorField string `json:"vector-field" mapstructure:"vector-field" validate:"notblank"`

	// Timeout for connection and collection checks.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Address:     "localhost:19530",
		Database:    "default",
		VectorField: "vector",
		Timeout:     30 * time.Second,
	}
}

// AddFlags adds flags under "<prefixes>.milvus.".
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "milvus")...)
	fs.StringVar(&o.Address, p+"address", o.Address, "Milvus server address (host:port).")
	fs.StringVar(&o.Database, p+"database", o.Database, "Milvus database name.")
	fs.StringVar(&o.Username, p+"username", o.Username, "Milvus username for authentication.")
	fs.StringVar(&o.Password, p+"password", o.Password, "Milvus password for authentication.")
	fs.BoolVar(&o.EnableTLS, p+"enable-tls", o.EnableTLS, "Use TLS for the Milvus connection.")
	fs.StringVar(&o.VectorField, p+"vector-field", o.VectorField, "Vector field searched in the collection.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Connection and operation timeout.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	return validator.Struct(o)
}
