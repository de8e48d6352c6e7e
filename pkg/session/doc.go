/*
Package session holds the per-visitor chat session and serializes access to it.

A ChatSession owns at most one active conversation instance and a bag of
attributes that conversation actions may share. The Manager loads a session,
hands it to a callback while holding the session's lock, and persists it on
success. Locks are local, ref-counted mutexes, optionally backed by a
DistributedLocker when several replicas serve the same sessions.
*/
package session
