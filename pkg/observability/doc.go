/*
Package observability provides metrics and lifecycle hooks for the dialogue engine.

Metrics are Prometheus collectors registered on a caller-supplied registerer.
Hooks turns them, plus structured logging, into domain.LifecycleHooks that the
session, matcher and orchestrator fire.
*/
package observability
