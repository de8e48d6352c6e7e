/*
Package ports defines the driven ports (interfaces) of the SeerBot dialogue engine.

These interfaces decouple the orchestration core from persistence, rendering and
NLP model implementations, so the same core runs against in-memory fixtures,
SQLite, Postgres or Redis.

# Key Interfaces

  - LaunchInfoStore, IntentStore: read-only catalog of deployed bots and their intents.
  - ChatStore, TransactionStore: append-only chat history and audit trail.
  - SessionStore: persists chat session snapshots between requests.
  - DistributedLocker: serializes one session's messages across replicas.
  - UnitOfWork: groups the writes of one inbound message.
  - ModelLoader, ModelSource, Classifier, Tokenizer: externalized ML artifacts.
  - TemplateRenderer: turns a response key into user-facing text.

Each store interface has a Run*Contract helper that adapters use in their tests.
*/
package ports
