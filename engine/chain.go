package engine

import (
	"fmt"
	"strings"

	"rusti/common"
	"rusti/driver"

	"github.com/pkg/errors"
)

// ArtifactRecord describes the artifact of one accepted evaluation.
type ArtifactRecord struct {
	Generation     int
	CrateName      string
	ArtifactPath   string
	SourcePath     string
	ExportedSymbol string
}

// Dependency is a prior generation a compilation depends on.
type Dependency struct {
	Generation int
	CrateName  string
	Path       string
}

// Chain is the ordered list of accepted artifacts.  The index of a record is
// its generation: the chain only ever grows by appending the next generation.
type Chain struct {
	records []ArtifactRecord
}

// Len returns the number of accepted generations.
func (c *Chain) Len() int {
	return len(c.records)
}

// Records returns a copy of the records of the chain.
func (c *Chain) Records() []ArtifactRecord {
	return append([]ArtifactRecord(nil), c.records...)
}

// At returns the record of generation gen.
func (c *Chain) At(gen int) ArtifactRecord {
	return c.records[gen]
}

// CurrentDependencies returns one dependency per accepted generation, most
// recent first.
func (c *Chain) CurrentDependencies() []Dependency {
	deps := make([]Dependency, 0, len(c.records))
	for i := len(c.records) - 1; i >= 0; i-- {
		rec := c.records[i]
		deps = append(deps, Dependency{Generation: rec.Generation, CrateName: rec.CrateName, Path: rec.ArtifactPath})
	}

	return deps
}

// Append adds the record of the next generation to the chain and returns its
// generation.
func (c *Chain) Append(rec ArtifactRecord) (int, error) {
	if rec.Generation != len(c.records) {
		return 0, errors.Errorf("cannot append generation %d to a chain of length %d", rec.Generation, len(c.records))
	}

	c.records = append(c.records, rec)
	return rec.Generation, nil
}

// preludeLints are the lints silenced in every generated crate.
var preludeLints = []string{
	"unknown_lints",
	"dead_code",
	"unused_imports",
	"unused_variables",
	"unused_mut",
	"unused_features",
	"non_snake_case",
}

// PreludeForNext returns the prelude of the next generation.  Only the
// directly preceding generation is imported: it re-exports its own
// predecessor, so the whole history stays visible.
func (c *Chain) PreludeForNext() string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "#![allow(%s)]\n", strings.Join(preludeLints, ", "))

	if n := len(c.records); n > 0 {
		prev := common.CrateName(n - 1)
		fmt.Fprintf(&sb, "extern crate %s;\npub use %s::*;\n", prev, prev)
	}

	return sb.String()
}

// NewUnit builds the compilation unit of the next generation.  Items of the
// body without a visibility are made public so later generations see them.
func (c *Chain) NewUnit(body, entry string) *CompilationUnit {
	return &CompilationUnit{
		Generation:   len(c.records),
		Prelude:      c.PreludeForNext(),
		Body:         driver.Publicize(body),
		Entry:        entry,
		Dependencies: c.CurrentDependencies(),
	}
}
