// Package sync implements the offline-first synchronization engine: the
// operation queue and coordinator, conflict detection and resolution, the
// tombstone tracker and the realtime change channel, assembled per session
// into an Engine.
//
// Concurrency model: one queue-drain loop per signed-in session, with the
// realtime channel running as an independent task. Both mutate the local
// store only while holding a per-document lock keyed by sync identifier, so
// a document's record is never concurrently written by drain and
// channel-apply logic.
package sync
