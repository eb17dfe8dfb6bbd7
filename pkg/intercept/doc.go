// Package intercept lets a caller divert individual chunks of a transfer
// before they reach the sink.
//
// A Hook inspects a chunk and answers with an Interception: NotHandled leaves
// the chunk to the default write path, Handle takes it over. Only a handled
// Interception ever receives the completion callback, so a hook cannot
// complete a chunk it did not claim.
//
// Ready-made hooks:
// - Observe: side effect per chunk, never handles
// - Digest: running hash of the payload, never handles
// - Divert: forward matching chunks to another sink
// - Drop: swallow matching chunks
// - Chain: first hook that handles wins
package intercept
