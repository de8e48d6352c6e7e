package nlp

import (
	"context"
	"errors"
	"fmt"

	"github.com/bbkanego/seerbot/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Model is the training document of a classifier.
type Model struct {
	Name       string     `yaml:"name"`
	Tokenizer  string     `yaml:"tokenizer,omitempty"`
	Categories []Category `yaml:"categories"`
}

// Category lists the sample utterances of one intent.
type Category struct {
	Name    string   `yaml:"name"`
	Samples []string `yaml:"samples"`
}

// ErrEmptyModel is returned when a model declares no usable samples.
var ErrEmptyModel = errors.New("model has no samples")

// ParseModel decodes a YAML model.
func ParseModel(data []byte) (Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Model{}, fmt.Errorf("failed to parse model: %w", err)
	}
	return m, nil
}

// Loader implements ports.ModelLoader for YAML models.
type Loader struct {
	tokenizer ports.Tokenizer
}

// NewLoader creates a loader that tokenizes training samples with the simple tokenizer.
func NewLoader() *Loader {
	return &Loader{tokenizer: SimpleTokenizer{}}
}

// LoadClassifier parses and trains a model.
func (l *Loader) LoadClassifier(ctx context.Context, data []byte) (ports.Classifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := ParseModel(data)
	if err != nil {
		return nil, err
	}

	tok := l.tokenizer
	if m.Tokenizer != "" {
		if tok, err = TokenizerFor(m.Tokenizer); err != nil {
			return nil, err
		}
	}

	samples := make(map[string][][]string, len(m.Categories))
	n := 0
	for _, c := range m.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("model %q: category without a name", m.Name)
		}
		for _, s := range c.Samples {
			if tokens := tok.Tokenize(s); len(tokens) > 0 {
				samples[c.Name] = append(samples[c.Name], tokens)
				n++
			}
		}
	}
	if n == 0 {
		return nil, fmt.Errorf("model %q: %w", m.Name, ErrEmptyModel)
	}
	return Train(m.Name, samples), nil
}

// LoadTokenizer resolves a built-in tokenizer by name.
func (l *Loader) LoadTokenizer(_ context.Context, ref string) (ports.Tokenizer, error) {
	return TokenizerFor(ref)
}
