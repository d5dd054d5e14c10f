// Package biz implements the retrieval-augmented answer pipeline:
// embed the query, retrieve the nearest passages, render the prompt and ask
// the language model.
package biz

import "context"

// Passage is a piece of indexed text returned by the retriever.
type Passage struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]any
}

// Embedder turns a query into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever returns up to k passages ordered by descending similarity.
type Retriever interface {
	Retrieve(ctx context.Context, vector []float32, k int) ([]Passage, error)
}

// Generator produces the answer for a rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Observer receives per-stage outcomes. metrics.Metrics implements it.
type Observer interface {
	ObserveStage(stage, outcome string, seconds float64)
	ObservePassages(n int)
}

// Stage names used in logs, spans and metrics.
const (
	StageEmbed    = "embed"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
)

// Stage outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
)

type nopObserver struct{}

func (nopObserver) ObserveStage(string, string, float64) {}
func (nopObserver) ObservePassages(int)                  {}
