package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestConfigError_Taxonomy(t *testing.T) {
	notFound := &domain.ConfigError{BotID: "b1", Cause: domain.CauseLaunchInfo, Err: domain.ErrNotFound}
	assert.ErrorIs(t, notFound, domain.ErrConfigNotFound)
	assert.ErrorIs(t, notFound, domain.ErrNotFound)
	assert.NotErrorIs(t, notFound, domain.ErrConfigLoadFailure)

	cause := errors.New("no tokenizer model defined")
	loadFail := &domain.ConfigError{BotID: "b1", Cause: domain.CauseTokenizer, Err: cause}
	assert.ErrorIs(t, loadFail, domain.ErrConfigLoadFailure)
	assert.ErrorIs(t, loadFail, cause)
	assert.Contains(t, loadFail.Error(), "tokenizer")
}

func TestToClientError(t *testing.T) {
	configMissing := fmt.Errorf("get config: %w", &domain.ConfigError{BotID: "b1", Cause: domain.CauseLaunchInfo})
	ce := domain.ToClientError(configMissing, "ref-1")
	assert.Equal(t, domain.CodeConfigNotFound, ce.Code)
	assert.False(t, ce.Internal())
	assert.Equal(t, "ref-1", ce.ReferenceCode)

	active := domain.ToClientError(domain.ErrConversationAlreadyActive, "ref-2")
	assert.Equal(t, domain.CodeConversationActive, active.Code)

	ambiguous := &domain.ResponseError{Intent: "Hours", Locale: "en", Count: 2}
	masked := domain.ToClientError(ambiguous, "ref-3")
	assert.True(t, masked.Internal())
	assert.NotContains(t, masked.Message, "Hours")
	assert.ErrorIs(t, masked, domain.ErrAmbiguousResponse)

	classifier := &domain.ClassifierError{BotID: "b1", Err: errors.New("boom")}
	assert.True(t, domain.ToClientError(classifier, "ref-4").Internal())

	// Already translated errors pass through unchanged.
	assert.Same(t, ce, domain.ToClientError(fmt.Errorf("wrapped: %w", ce), "other"))
}
