//go:build cgo

package main

import "github.com/dusk-indust/treegraph/internal/graph"

// openKuzuSink opens an embedded Kuzu database, in memory when path is empty.
func openKuzuSink(path string) (graph.Sink, error) {
	if path == "" {
		return graph.NewKuzuSink()
	}
	return graph.NewKuzuFileSink(path)
}
