package biz

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Template slots.
const (
	SlotContext = "{context}"
	SlotInput   = "{input}"
)

// DefaultSystemPrompt is the built-in medical assistant instruction.
const DefaultSystemPrompt = "You are a professional Medical Assistant designed to provide accurate and helpful medical information. " +
	"Your role is to assist users with general medical questions based on the provided context.\n\n" +
	"IMPORTANT GUIDELINES:\n" +
	"- Answer must be of three lines max. Use the following pieces of retrieved context to answer the question accurately\n" +
	"- If the context doesn't contain enough information to answer the question, clearly state that you don't have enough information\n" +
	"- Always emphasize that you are providing general information and users should consult healthcare professionals for personal medical advice\n" +
	"- Keep your answers clear, concise, and easy to understand\n" +
	"- If asked about symptoms, treatments, or diagnoses, remind users to consult with qualified healthcare providers\n" +
	"- Do not provide specific dosages or treatment recommendations without professional medical consultation\n\n" +
	"Context from knowledge base:\n" + SlotContext + "\n\n" +
	"Based on the above context, please answer the user's question in a helpful and responsible manner."

// DefaultUserPrompt carries the user's question unchanged.
const DefaultUserPrompt = SlotInput

// Prompt is a rendered two-part prompt.
type Prompt struct {
	System string
	User   string
}

// PromptTemplate holds the system and user parts with their slots.
// It is immutable once built.
type PromptTemplate struct {
	system string
	user   string
}

// NewPromptTemplate validates and builds a template. The system part must
// contain {context} and the user part must contain {input}.
func NewPromptTemplate(system, user string) (*PromptTemplate, error) {
	if strings.TrimSpace(system) == "" {
		return nil, errors.New("system prompt is empty")
	}
	if !strings.Contains(system, SlotContext) {
		return nil, fmt.Errorf("system prompt has no %s slot", SlotContext)
	}
	if !strings.Contains(user, SlotInput) {
		return nil, fmt.Errorf("user prompt has no %s slot", SlotInput)
	}
	return &PromptTemplate{system: system, user: user}, nil
}

// DefaultPromptTemplate returns the built-in template.
func DefaultPromptTemplate() *PromptTemplate {
	return &PromptTemplate{system: DefaultSystemPrompt, user: DefaultUserPrompt}
}

// LoadPromptTemplate reads the system part from path. An empty path yields
// the built-in template.
func LoadPromptTemplate(path string) (*PromptTemplate, error) {
	if path == "" {
		return DefaultPromptTemplate(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}
	t, err := NewPromptTemplate(string(data), DefaultUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt file %s: %w", path, err)
	}
	return t, nil
}

// Render fills both slots in one pass, so text coming from passages or the
// user is never scanned for slots again.
func (t *PromptTemplate) Render(passages []Passage, input string) Prompt {
	r := strings.NewReplacer(SlotContext, JoinPassages(passages), SlotInput, input)
	return Prompt{
		System: r.Replace(t.system),
		User:   r.Replace(t.user),
	}
}

// System returns the unrendered system part.
func (t *PromptTemplate) System() string {
	return t.system
}

// JoinPassages joins passage contents in order, separated by a blank line.
func JoinPassages(passages []Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Content
	}
	return strings.Join(parts, "\n\n")
}
