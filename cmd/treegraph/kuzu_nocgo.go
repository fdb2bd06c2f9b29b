//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/treegraph/internal/graph"
)

func openKuzuSink(string) (graph.Sink, error) {
	return nil, errors.New("the kuzu sink requires a cgo build; use --sink age or --sink memory")
}
