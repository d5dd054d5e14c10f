package postgres

import options "github.com/kart-io/medbot/pkg/options/postgres"

// Options is re-exported from pkg/options/postgres for convenience.
type Options = options.Options

// NewOptions is re-exported from pkg/options/postgres for convenience.
var NewOptions = options.NewOptions
