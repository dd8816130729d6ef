// Package cli implements the interactive docsync client: a small REPL over
// the sync engine. Typical flow: login (or register), add documents and
// attachments, and let the engine push them in the background; list, show,
// delete, resolve conflicts, and inspect sync status on demand.
//
// Commands
//
//	Not logged in:   register, login, exit
//	Logged in:       add, addfile, list, show, delete, sync, status,
//	                 resolve, tombstones, purge, logout, exit
//
// Command handlers log their own errors; the REPL loop itself never fails on
// a handler error.
package cli
