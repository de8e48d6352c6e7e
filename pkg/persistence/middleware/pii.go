package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
)

// Mask replaces the value of every masked key.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMasking returns a middleware that masks session attributes and
// conversation variables whose keys match one of the patterns before they are persisted.
func NewPIIMasking(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pii pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, snap domain.SessionSnapshot) error {
	// The caller keeps using its maps; mask a copy.
	snap.Attributes = deepCopyMap(snap.Attributes)
	maskMap(snap.Attributes, m.patterns)
	if snap.Conversation != nil {
		conv := *snap.Conversation
		conv.Vars = deepCopyMap(conv.Vars)
		maskMap(conv.Vars, m.patterns)
		snap.Conversation = &conv
	}
	return m.next.Save(ctx, sessionID, snap)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(sub)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if sub, ok := v.(map[string]any); ok && !masked {
			maskMap(sub, patterns)
		}
	}
}
