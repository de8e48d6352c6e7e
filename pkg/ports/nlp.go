package ports

import (
	"context"

	"github.com/bbkanego/seerbot/pkg/domain"
)

// Tokenizer splits an utterance into tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Classifier scores tokens against the categories of a trained model.
// It is consumed as an oracle: the engine only orders and thresholds its output.
type Classifier interface {
	Categorize(ctx context.Context, tokens []string) ([]domain.CategoryScore, error)
}

// ModelLoader turns ML artifacts into usable models.
type ModelLoader interface {
	LoadClassifier(ctx context.Context, data []byte) (Classifier, error)
	LoadTokenizer(ctx context.Context, ref string) (Tokenizer, error)
}

// ModelSource fetches the bytes of a trained model by reference.
type ModelSource interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// TemplateRenderer turns a response key and a variable bag into user-facing text.
type TemplateRenderer interface {
	Render(ctx context.Context, key domain.ResponseKey, vars map[string]any) (string, error)
}
