// Package postgres provides PostgreSQL connection options for the pgvector
// backend.
package postgres

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/medbot/pkg/options"
	"github.com/kart-io/medbot/pkg/validator"
)

var _ options.IOptions = (*Options)(nil)

// redactedPassword is the placeholder used when serializing passwords.
const redactedPassword = "[REDACTED]"

// Options defines connection options for PostgreSQL.
type Options struct {
	Host            string        `json:"host" mapstructure:"host" validate:"notblank"`
	Port            int           `json:"port" mapstructure:"port" validate:"gte=1,lte=65535"`
	Username        string        `json:"username" mapstructure:"username"`
	Password        string        `json:"-" mapstructure:"password"`
	Database        string        `json:"database" mapstructure:"database" validate:"notblank"`
	SSLMode         string        `json:"ssl-mode" mapstructure:"ssl-mode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns        int32         `json:"max-conns" mapstructure:"max-conns" validate:"gte=1"`
	MinConns        int32         `json:"min-conns" mapstructure:"min-conns" validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime time.Duration `json:"max-conn-lifetime" mapstructure:"max-conn-lifetime"`
	ConnectTimeout  time.Duration `json:"connect-timeout" mapstructure:"connect-timeout" validate:"gt=0"`
}

// MarshalJSON implements json.Marshaler with password redaction.
func (o *Options) MarshalJSON() ([]byte, error) {
	type plain Options
	out := struct {
		*plain
		Password string `json:"password,omitempty"`
	}{plain: (*plain)(o)}
	if o.Password != "" {
		out.Password = redactedPassword
	}
	return json.Marshal(out)
}

// String returns a string representation with password redacted.
func (o *Options) String() string {
	password := ""
	if o.Password != "" {
		password = redactedPassword
	}
	return fmt.Sprintf("PostgreSQL{host=%s, port=%d, user=%s, password=%s, database=%s, sslmode=%s}",
		o.Host, o.Port, o.Username, password, o.Database, o.SSLMode)
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Host:            "127.0.0.1",
		Port:            5432,
		Username:        "postgres",
		Database:        "medbot",
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        0,
		MaxConnLifetime: time.Hour,
		ConnectTimeout:  10 * time.Second,
	}
}

// AddFlags adds flags for PostgreSQL options under "<prefixes>.postgres.".
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "postgres")...)
	fs.StringVar(&o.Host, p+"host", o.Host, "PostgreSQL host.")
	fs.IntVar(&o.Port, p+"port", o.Port, "PostgreSQL port.")
	fs.StringVar(&o.Username, p+"username", o.Username, "PostgreSQL username.")
	fs.StringVar(&o.Password, p+"password", o.Password, "PostgreSQL password (prefer the POSTGRES_PASSWORD env var).")
	fs.StringVar(&o.Database, p+"database", o.Database, "PostgreSQL database.")
	fs.StringVar(&o.SSLMode, p+"ssl-mode", o.SSLMode, "PostgreSQL SSL mode.")
	fs.Int32Var(&o.MaxConns, p+"max-conns", o.MaxConns, "Maximum pool connections.")
	fs.Int32Var(&o.MinConns, p+"min-conns", o.MinConns, "Minimum idle pool connections.")
	fs.DurationVar(&o.MaxConnLifetime, p+"max-conn-lifetime", o.MaxConnLifetime, "Maximum lifetime of a pooled connection.")
	fs.DurationVar(&o.ConnectTimeout, p+"connect-timeout", o.ConnectTimeout, "Timeout for establishing the pool.")
}

// Complete fills the password from POSTGRES_PASSWORD when it was not given.
func (o *Options) Complete() error {
	if o.Password == "" {
		o.Password = os.Getenv("POSTGRES_PASSWORD")
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	return validator.Struct(o)
}

// URI builds a postgres:// connection URI.
func (o *Options) URI() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", o.Host, o.Port),
		Path:   "/" + o.Database,
	}
	if o.Password != "" {
		u.User = url.UserPassword(o.Username, o.Password)
	} else if o.Username != "" {
		u.User = url.User(o.Username)
	}
	q := url.Values{}
	q.Set("sslmode", o.SSLMode)
	if o.ConnectTimeout > 0 {
		q.Set("connect_timeout", fmt.Sprintf("%d", int(o.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
