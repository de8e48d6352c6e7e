package response_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bbkanego/seerbot/internal/botconfig"
	"github.com/bbkanego/seerbot/internal/response"
	"github.com/bbkanego/seerbot/pkg/conversations/reservation"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/registry"
	"github.com/bbkanego/seerbot/pkg/session"
	"github.com/bbkanego/seerbot/pkg/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "owner-1"

// intentStore answers FindByName from a map keyed by intent name.
type intentStore struct {
	byName map[string]domain.IntentDef
	err    error
	calls  int
}

func (s *intentStore) FindCustomIntents(context.Context, string, string) ([]domain.IntentDef, error) {
	return nil, nil
}

func (s *intentStore) FindByName(_ context.Context, name, ownerID string) (domain.IntentDef, error) {
	s.calls++
	if s.err != nil {
		return domain.IntentDef{}, s.err
	}
	def, ok := s.byName[name]
	if !ok || ownerID != owner {
		return domain.IntentDef{}, domain.ErrNotFound
	}
	return def, nil
}

func en(text string) domain.LocalizedResponse { return domain.LocalizedResponse{Locale: "en", Text: text} }

func config(intents ...domain.IntentDef) *botconfig.Config {
	return botconfig.New(domain.LaunchInfo{BotID: "bot-1", OwnerID: owner, Locale: "en_US"}, nil, nil, intents, botconfig.Settings{})
}

func newSession(t *testing.T) *session.ChatSession {
	t.Helper()
	r := registry.NewRegistry()
	require.NoError(t, r.Bind("Reservation", reservation.Name))
	r.Register("Survey", func() (*statemachine.Template, error) {
		return statemachine.New("survey").
			Initial("AskRating").
			Transition("AskRating", "Thanks").
			OnEntry("Thanks", func(_ context.Context, inst *statemachine.Instance, _ string) {
				inst.Attributes().SetAttribute(session.AttrChainedConversation, "Reservation")
			}).
			Terminal("Thanks").
			Build()
	})
	return session.New("s1", r)
}

func definite(intent string) domain.MatchResult {
	return domain.MatchResult{Intent: intent, Tier: domain.TierDefinite, Score: 0.9}
}

func TestResolve_CustomIntent(t *testing.T) {
	ctx := context.Background()
	store := &intentStore{}
	r := response.NewResolver(store)

	t.Run("single english response", func(t *testing.T) {
		cfg := config(domain.IntentDef{Name: "Hours", Responses: []domain.LocalizedResponse{en("We open at 9."), {Locale: "fr", Text: "9h."}}})
		res, err := r.Resolve(ctx, "when are you open", definite("Hours"), newSession(t), cfg)
		require.NoError(t, err)
		assert.Equal(t, domain.TextKey("Hours", "We open at 9."), res.Key)
		assert.False(t, res.Conversation)
		assert.Zero(t, store.calls, "custom intents are answered from the config")
	})

	t.Run("two english responses", func(t *testing.T) {
		cfg := config(domain.IntentDef{Name: "Hours", Responses: []domain.LocalizedResponse{en("9."), {Locale: "en-GB", Text: "Nine."}}})
		_, err := r.Resolve(ctx, "when are you open", definite("Hours"), newSession(t), cfg)
		assert.ErrorIs(t, err, domain.ErrAmbiguousResponse)
		var rerr *domain.ResponseError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, 2, rerr.Count)
	})

	t.Run("exact locale wins over sibling region", func(t *testing.T) {
		cfg := config(domain.IntentDef{Name: "Hours", Responses: []domain.LocalizedResponse{
			{Locale: "en-GB", Text: "Nine."},
			{Locale: "en-US", Text: "9 AM."},
		}})
		res, err := r.Resolve(ctx, "when are you open", definite("Hours"), newSession(t), cfg)
		require.NoError(t, err)
		assert.Equal(t, domain.TextKey("Hours", "9 AM."), res.Key)
	})

	t.Run("no english response", func(t *testing.T) {
		cfg := config(domain.IntentDef{Name: "Hours", Responses: []domain.LocalizedResponse{{Locale: "fr", Text: "9h."}}})
		_, err := r.Resolve(ctx, "when are you open", definite("Hours"), newSession(t), cfg)
		assert.ErrorIs(t, err, domain.ErrNoResponseFound)
	})
}

func TestResolve_NamedAndFallback(t *testing.T) {
	ctx := context.Background()
	store := &intentStore{byName: map[string]domain.IntentDef{
		"HI": {Name: "HI", Responses: []domain.LocalizedResponse{en("Hello!")}},
	}}
	r := response.NewResolver(store)
	cfg := config()

	res, err := r.Resolve(ctx, "hello", domain.MatchResult{Intent: "HI", Tier: domain.TierDefinite, Score: 1, Greeting: true}, newSession(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.TextKey("HI", "Hello!"), res.Key)

	res, err = r.Resolve(ctx, "hello?", domain.MatchResult{Intent: "HI", Tier: domain.TierMaybe, Score: 0.5}, newSession(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.TextKey("HI", "Hello!"), res.Key)

	res, err = r.Resolve(ctx, "menu", definite("Menu"), newSession(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageKey(domain.MessageDoNotUnderstand), res.Key, "unknown intent falls back")

	res, err = r.Resolve(ctx, "asdkjasd", domain.NoMatch(0.1), newSession(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageKey(domain.MessageDoNotUnderstand), res.Key)
}

func TestResolve_DoNotUnderstandIntent(t *testing.T) {
	store := &intentStore{byName: map[string]domain.IntentDef{
		domain.IntentDoNotUnderstand: {Name: domain.IntentDoNotUnderstand, Responses: []domain.LocalizedResponse{en("Say again?")}},
	}}
	r := response.NewResolver(store)

	res, err := r.Resolve(context.Background(), "asdkjasd", domain.NoMatch(0), newSession(t), config())
	require.NoError(t, err)
	assert.Equal(t, domain.TextKey(domain.IntentDoNotUnderstand, "Say again?"), res.Key)
}

func TestResolve_DoNotUnderstandIntentWithoutResponse(t *testing.T) {
	store := &intentStore{byName: map[string]domain.IntentDef{
		domain.IntentDoNotUnderstand: {Name: domain.IntentDoNotUnderstand, Responses: []domain.LocalizedResponse{{Locale: "fr", Text: "Pardon?"}}},
	}}
	r := response.NewResolver(store)

	_, err := r.Resolve(context.Background(), "asdkjasd", domain.NoMatch(0), newSession(t), config())
	assert.ErrorIs(t, err, domain.ErrNoResponseFound)
	var rerr *domain.ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, domain.IntentDoNotUnderstand, rerr.Intent)
}

func TestResolve_StoreFailure(t *testing.T) {
	boom := errors.New("connection reset")
	r := response.NewResolver(&intentStore{err: boom})
	_, err := r.Resolve(context.Background(), "x", domain.NoMatch(0), newSession(t), config())
	assert.ErrorIs(t, err, boom)
}

func TestResolve_Conversation(t *testing.T) {
	ctx := context.Background()
	r := response.NewResolver(&intentStore{})
	cfg := config()
	sess := newSession(t)

	res, err := r.Resolve(ctx, "book a table", definite("Reservation"), sess, cfg)
	require.NoError(t, err)
	assert.True(t, res.Conversation)
	assert.Equal(t, "Reservation", res.ConversationID)
	assert.Equal(t, string(reservation.StartReservation), res.Key.Ref)
	assert.Equal(t, domain.ResponseMessage, res.Key.Kind)

	// Inside a conversation the match result is ignored.
	res, err = r.Resolve(ctx, "4", domain.NoMatch(0), sess, cfg)
	require.NoError(t, err)
	assert.Equal(t, string(reservation.ValidGuestCount), res.Key.Ref)

	res, err = r.Resolve(ctx, "quit", definite("Hours"), sess, cfg)
	require.NoError(t, err)
	assert.True(t, res.Conversation)
	assert.Equal(t, string(reservation.Quit), res.Key.Ref)
	assert.False(t, sess.IsConversationActive())
}

func TestResolve_MaybeStarterDoesNotStart(t *testing.T) {
	r := response.NewResolver(&intentStore{})
	sess := newSession(t)

	res, err := r.Resolve(context.Background(), "table?", domain.MatchResult{Intent: "Reservation", Tier: domain.TierMaybe, Score: 0.4}, sess, config())
	require.NoError(t, err)
	assert.False(t, res.Conversation)
	assert.False(t, sess.IsConversationActive())
}

func TestResolve_ChainedConversation(t *testing.T) {
	ctx := context.Background()
	r := response.NewResolver(&intentStore{})
	cfg := config()
	sess := newSession(t)

	_, err := r.Resolve(ctx, "feedback", definite("Survey"), sess, cfg)
	require.NoError(t, err)

	res, err := r.Resolve(ctx, "5 stars", domain.NoMatch(0), sess, cfg)
	require.NoError(t, err)
	assert.Equal(t, "Reservation", res.ConversationID)
	assert.Equal(t, string(reservation.StartReservation), res.Key.Ref)
	assert.True(t, sess.IsConversationActive())
	_, marked := sess.Attribute(session.AttrChainedConversation)
	assert.False(t, marked, "the chain marker is consumed")
}

func TestInitiate(t *testing.T) {
	ctx := context.Background()

	r := response.NewResolver(&intentStore{})
	res, err := r.Initiate(ctx, config())
	require.NoError(t, err)
	assert.Equal(t, domain.MessageKey(domain.MessageInitialResponse), res.Key)

	r = response.NewResolver(&intentStore{byName: map[string]domain.IntentDef{
		domain.IntentInitiate: {Name: domain.IntentInitiate, Responses: []domain.LocalizedResponse{
			{Locale: "fr", Text: "Bonjour|butt=Menu&resp=menu"},
		}},
	}})
	res, err = r.Initiate(ctx, config())
	require.NoError(t, err)
	assert.Equal(t, domain.TextKey(domain.IntentInitiate, "Bonjour|butt=Menu&resp=menu"), res.Key, "the first response is used when none fits the locale")
}
