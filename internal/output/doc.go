// Package output delivers finished transcripts to their destinations:
// the system clipboard, an append-only text file, or standard output.
// Multi fans out to several sinks at once and keeps delivering even when
// one of them fails.
package output
