/*
Package domain contains the core domain models of the SeerBot dialogue engine.

It defines the records that flow between the orchestrator and its collaborators:
launch metadata for a deployed bot, custom intent definitions with localized
responses, match results produced by the intent matcher, chat and transaction
records, and the serialisable snapshot of a chat session. The package is kept
pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - LaunchInfo: deployment metadata resolved by bot identifier.
  - IntentDef: a named intent with its localized responses.
  - MatchResult: the outcome of intent matching (Definite, Maybe or None).
  - ResponseKey: the abstract reference a renderer turns into user-facing text.
  - Transaction: the append-only audit record written once per message.
  - SessionSnapshot: the persisted form of a chat session.
*/
package domain
