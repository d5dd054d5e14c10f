package tracing

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr int
	}{
		{name: "disabled skips checks", mutate: func(o *Options) { o.ExporterType = "zipkin" }},
		{name: "enabled defaults", mutate: func(o *Options) { o.Enabled = true }},
		{name: "bad exporter", mutate: func(o *Options) { o.Enabled = true; o.ExporterType = "zipkin" }, wantErr: 1},
		{name: "missing endpoint", mutate: func(o *Options) { o.Enabled = true; o.Endpoint = "" }, wantErr: 1},
		{name: "stdout without endpoint", mutate: func(o *Options) { o.Enabled = true; o.ExporterType = ExporterStdout; o.Endpoint = "" }},
		{name: "ratio out of range", mutate: func(o *Options) { o.Enabled = true; o.SamplerRatio = 2 }, wantErr: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)
			assert.Len(t, o.Validate(), tt.wantErr)
		})
	}
}

func TestAddFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--tracing.enabled", "--tracing.exporter-type=stdout", "--tracing.headers=k=v"}))
	assert.True(t, o.Enabled)
	assert.Equal(t, ExporterStdout, o.ExporterType)
	assert.Equal(t, map[string]string{"k": "v"}, o.Headers)
}
