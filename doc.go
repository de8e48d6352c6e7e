/*
Package seerbot is a multi-turn dialogue engine for customer-facing chat bots.

For every utterance it resolves an intent, decides whether the utterance belongs to
a pending guided conversation, advances or starts that conversation's state machine,
and renders the selected response.

# Concept

A deployed bot is described by its launch info (owner, category, allowed origins,
trained model) and a set of custom intents, each with localized responses. The
engine caches an assembled runtime configuration per bot, classifies utterances
against the bot's model, and keeps one ChatSession per visitor. Some intents start
a conversation: a small named state machine that asks questions and validates the
answers until it reaches a terminal state.

# Key Features

  - Bot config cache: lazy, coalesced builds with LRU and idle eviction.
  - Greeting fast path and a two-threshold (definite / maybe) intent matcher.
  - Conversations as explicit templates with ordered, guarded choice points.
  - Per-session serialization, optionally across processes through Redis.
  - Ports for every store, with in-memory, SQLite, Postgres and Redis adapters.

# Usage

	bot, err := seerbot.New(
		seerbot.WithCatalog(catalog, catalog),
		seerbot.WithLogger(logging.New(slog.LevelInfo)),
	)
	if err != nil {
		log.Fatal(err)
	}

	reply, err := bot.HandleInboundMessage(ctx, sessionID, "bot-1", "I want to book a table", "")
	if err != nil {
		var ce *domain.ClientError
		errors.As(err, &ce)
		log.Printf("%s (ref %s)", ce.Message, ce.ReferenceCode)
	}
	fmt.Println(reply.ResponseText)

The response text is a JSON payload of type "text", "options" or "custom".

# Architecture

The root package is a facade. The engine lives in internal/ (botconfig, intent,
response, runtime) and the reusable building blocks in pkg/ (domain, ports,
statemachine, session, registry, observability).
*/
package seerbot
