// Package segment turns a stream of classified audio chunks into speech
// segments. The Segmenter is a chunk-driven state machine: a voice chunk
// opens a segment, a long enough run of silence or the max-interval cap
// closes it, and a manual flush closes whatever is in flight. Timing is
// derived from chunk counts rather than the wall clock, so the same input
// always yields the same segments. Closed segments travel to the consumer
// through a bounded Queue.
package segment
