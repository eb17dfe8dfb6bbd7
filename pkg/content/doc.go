// Package content defines the unit moved by a transfer, the Chunk, together
// with the pull-based Source and push-based Sink contracts and a handful of
// ready-made implementations: in-memory sources, a producer pipe, an io.Reader
// source, writer sinks and adapters for go-luigi streams.
package content
