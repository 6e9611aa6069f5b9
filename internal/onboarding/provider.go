// Package onboarding backs the first-run wizard: provider selection,
// project mounting and the launch payload it produces.
package onboarding

import "strings"

// Provider is an LLM provider preset.
type Provider struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	BaseURL     string   `yaml:"base_url" json:"base_url"`
	Models      []string `yaml:"models" json:"models"`
	RequiresKey bool     `yaml:"requires_key" json:"requires_key"`
	Enabled     bool     `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// DefaultModel returns the first preset model.
func (p Provider) DefaultModel() string {
	if len(p.Models) == 0 {
		return ""
	}
	return p.Models[0]
}

var presets = []Provider{
	{
		ID:          "anthropic",
		Name:        "Anthropic",
		BaseURL:     "https://api.anthropic.com",
		Models:      []string{"claude-3-5-sonnet-20240620", "claude-3-opus-20240229"},
		RequiresKey: true,
	},
	{
		ID:          "openai",
		Name:        "OpenAI",
		BaseURL:     "https://api.openai.com/v1",
		Models:      []string{"gpt-4o", "gpt-4-turbo"},
		RequiresKey: true,
	},
	{
		ID:      "ollama",
		Name:    "Ollama",
		BaseURL: "http://localhost:11434",
		Models:  []string{"llama3", "mistral", "qwen:7b"},
	},
	{
		ID:          "custom",
		Name:        "Custom / Compatible",
		BaseURL:     "https://api.deepseek.com",
		Models:      []string{"deepseek-coder"},
		RequiresKey: true,
	},
}

// Presets returns the built-in providers in display order.
func Presets() []Provider {
	out := make([]Provider, len(presets))
	for i, p := range presets {
		p.Models = append([]string(nil), p.Models...)
		out[i] = p
	}
	return out
}

// LookupProvider finds a preset by id.
func LookupProvider(id string) (Provider, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range Presets() {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// Templates lists the official starter templates.
func Templates() []string {
	return []string{"Vue Admin Starter", "React SaaS Boilerplate", "Python FastAPI Service", "Next.js Blog"}
}

// IntentChips are quick-insert prefixes for the intent field.
func IntentChips() []string {
	return []string{"Refactor Component", "Generate Tests", "Explain Architecture", "Add Feature"}
}

// AppendChip appends a chip prefix on its own line.
func AppendChip(intent, chip string) string {
	if intent == "" {
		return chip + ": "
	}
	return intent + "\n" + chip + ": "
}
