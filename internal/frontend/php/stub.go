//go:build !cgo

package php

import (
	"context"
	"errors"
)

// ErrNoCGO is returned when PHP parsing is unavailable due to missing CGO.
var ErrNoCGO = errors.New("PHP parsing requires CGO (tree-sitter)")

// Parser is a stub implementation for non-CGO builds.
type Parser struct{}

// NewParser creates a stub parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile always fails with ErrNoCGO.
func (p *Parser) ParseFile(ctx context.Context, file string, src []byte) (*FileResult, error) {
	return nil, ErrNoCGO
}
