package json

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingPayload struct {
	Inputs  []string `json:"inputs"`
	Options *struct {
		WaitForModel bool `json:"wait_for_model,omitempty"`
	} `json:"options,omitempty"`
}

func TestBackendSelection(t *testing.T) {
	want := runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
	assert.Equal(t, want, IsUsingSonic())
}

func TestNestedFloatArrays(t *testing.T) {
	var flat [][]float32
	require.NoError(t, Unmarshal([]byte(`[[0.5,1.5],[2,3]]`), &flat))
	assert.Equal(t, [][]float32{{0.5, 1.5}, {2, 3}}, flat)

	// token-level output does not fit a 2D slice
	var wrong [][]float32
	assert.Error(t, Unmarshal([]byte(`[[[0.5,1.5]]]`), &wrong))
}

func TestEncoderOmitEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(embeddingPayload{Inputs: []string{"fever"}}))
	assert.JSONEq(t, `{"inputs":["fever"]}`, buf.String())

	var decoded embeddingPayload
	require.NoError(t, NewDecoder(&buf).Decode(&decoded))
	assert.Equal(t, []string{"fever"}, decoded.Inputs)
	assert.Nil(t, decoded.Options)
}
