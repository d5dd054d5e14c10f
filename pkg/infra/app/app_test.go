package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medbot/pkg/app/cliflag"
)

type chatSection struct {
	APIKey  string        `mapstructure:"api-key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type testOptions struct {
	Chat     *chatSection `mapstructure:"chat"`
	Tags     []string     `mapstructure:"tags"`
	complete bool
	err      error
}

func newTestOptions() *testOptions {
	return &testOptions{Chat: &chatSection{Model: "gemini-1.5-flash", Timeout: time.Minute}}
}

func (o *testOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("chat")
	fs.StringVar(&o.Chat.APIKey, "chat.api-key", o.Chat.APIKey, "API key.")
	fs.StringVar(&o.Chat.Model, "chat.model", o.Chat.Model, "Model name.")
	fs.DurationVar(&o.Chat.Timeout, "chat.timeout", o.Chat.Timeout, "Timeout.")
	fss.FlagSet("misc").StringSliceVar(&o.Tags, "tags", o.Tags, "Tags.")
	return fss
}

func (o *testOptions) Complete() error {
	o.complete = true
	return nil
}

func (o *testOptions) Validate() error { return o.err }

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestAppLoadConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		env       map[string]string
		args      []string
		wantKey   string
		wantModel string
		wantTags  []string
		wantTO    time.Duration
	}{
		{
			name:      "defaults",
			wantModel: "gemini-1.5-flash",
			wantTO:    time.Minute,
		},
		{
			name:      "config file",
			config:    "chat:\n  model: gpt-4o-mini\n  timeout: 5s\n",
			wantModel: "gpt-4o-mini",
			wantTO:    5 * time.Second,
		},
		{
			name:      "alias env",
			env:       map[string]string{"LLM_API_KEY": "alias-key"},
			wantKey:   "alias-key",
			wantModel: "gemini-1.5-flash",
			wantTO:    time.Minute,
		},
		{
			name:      "prefixed env beats config",
			config:    "chat:\n  model: from-file\n",
			env:       map[string]string{"MEDBOT_CHAT_MODEL": "from-env"},
			wantModel: "from-env",
			wantTO:    time.Minute,
		},
		{
			name:      "expand variables in config",
			config:    "chat:\n  api-key: ${MEDBOT_TEST_SECRET}\n",
			env:       map[string]string{"MEDBOT_TEST_SECRET": "expanded"},
			wantKey:   "expanded",
			wantModel: "gemini-1.5-flash",
			wantTO:    time.Minute,
		},
		{
			name:      "flag beats env and config",
			config:    "chat:\n  model: from-file\n",
			env:       map[string]string{"MEDBOT_CHAT_MODEL": "from-env"},
			args:      []string{"--chat.model=from-flag", "--tags=a,b"},
			wantModel: "from-flag",
			wantTags:  []string{"a", "b"},
			wantTO:    time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := newTestOptions()
			var ran bool
			a := NewApp(
				WithName("medbot"),
				WithOptions(opts),
				WithNoVersion(),
				WithSilence(),
				WithEnvAliases(map[string]string{"chat.api-key": "LLM_API_KEY"}),
				WithRunFunc(func() error { ran = true; return nil }),
			)

			args := tt.args
			if tt.config != "" {
				args = append(args, "-c", writeConfig(t, tt.config))
			} else {
				args = append(args, "-c", writeConfig(t, "{}\n"))
			}
			a.Command().SetArgs(args)
			require.NoError(t, a.Command().Execute())

			assert.True(t, ran)
			assert.True(t, opts.complete)
			assert.Equal(t, tt.wantKey, opts.Chat.APIKey)
			assert.Equal(t, tt.wantModel, opts.Chat.Model)
			assert.Equal(t, tt.wantTO, opts.Chat.Timeout)
			if tt.wantTags != nil {
				assert.Equal(t, tt.wantTags, opts.Tags)
			}
		})
	}
}

func TestAppValidateFails(t *testing.T) {
	opts := newTestOptions()
	opts.err = errors.New("vector-index.name must not be blank")

	var ran bool
	a := NewApp(
		WithName("medbot"),
		WithOptions(opts),
		WithNoVersion(),
		WithSilence(),
		WithRunFunc(func() error { ran = true; return nil }),
	)
	a.Command().SetArgs([]string{"-c", writeConfig(t, "{}\n")})

	err := a.Command().Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector-index.name")
	assert.False(t, ran)
}

func TestAppFlagSections(t *testing.T) {
	a := NewApp(WithName("medbot"), WithOptions(newTestOptions()), WithNoVersion())

	var names []string
	a.Command().Flags().VisitAll(func(f *pflag.Flag) { names = append(names, f.Name) })
	assert.Contains(t, names, "chat.api-key")
	assert.Contains(t, names, "tags")
	assert.NotNil(t, a.Command().PersistentFlags().Lookup("config"))
	assert.NotNil(t, a.Viper())
}
