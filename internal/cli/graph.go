package cli

import (
	"github.com/bbkanego/seerbot/internal/presentation/graph"
	"github.com/bbkanego/seerbot/pkg/domain"
)

// Overlay traces the path a saved session took through the conversation of intent.
// It is nil when the session holds no conversation started by intent.
func Overlay(snap domain.SessionSnapshot, intent string) *graph.Overlay {
	conv := snap.Conversation
	if conv == nil || conv.Intent != intent {
		return nil
	}
	return &graph.Overlay{Visited: conv.History, Current: conv.State}
}
