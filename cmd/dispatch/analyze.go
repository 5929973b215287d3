package main

import (
	"fmt"

	"github.com/osirislab/dispatch/internal/analysis"
	"github.com/osirislab/dispatch/internal/elfx"
	"github.com/osirislab/dispatch/internal/logging"
	"github.com/osirislab/dispatch/internal/model"
)

// loadAndAnalyze opens a binary, runs discovery, and partitions the result
// into the symbol-defined functions. The cross-reference index is installed
// on the image before any rendering happens.
func loadAndAnalyze(path string) (*elfx.File, []*model.Function, error) {
	ef, err := elfx.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	prof := analysis.ProfileFor(ef.Arch())
	eng := analysis.New(ef, prof, analysis.WithLogger(logging.New()))
	res, err := eng.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("analyze: %w", err)
	}

	ef.SetXrefs(analysis.BuildXrefs(ef, res))

	var bounds []analysis.Boundary
	for _, fn := range ef.Functions() {
		bounds = append(bounds, analysis.Boundary{
			Addr: fn.Addr,
			Size: fn.Size,
			Name: fn.Name,
			Type: fn.Type,
		})
	}
	fns := analysis.AssembleFunctions(ef, res, bounds)
	return ef, fns, nil
}
