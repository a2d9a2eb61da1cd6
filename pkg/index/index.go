// Package index provides the project index used to augment chat prompts with
// relevant code from the active project.
package index

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by indexes whose backend cannot serve queries.
var ErrUnavailable = errors.New("project index unavailable")

// Chunk is a piece of a project file returned by a query.
type Chunk struct {
	FileName string `json:"fileName"`
	Content  string `json:"content"`
}

// Result is the answer to a query. Completed is false when the index of the
// project is partial and results may be inaccurate.
type Result struct {
	Chunks    []Chunk `json:"chunks"`
	Completed bool    `json:"completed"`
}

// Querier looks up code relevant to a prompt.
type Querier interface {
	Query(ctx context.Context, projectPath, prompt string, topK int) (Result, error)
	// Available reports whether the backend is installed and able to answer.
	Available() bool
}

// Unavailable is the Querier used when no index backend is configured.
type Unavailable struct{}

func (Unavailable) Query(context.Context, string, string, int) (Result, error) {
	return Result{}, ErrUnavailable
}

func (Unavailable) Available() bool { return false }
