// Package source locates and downloads plan documents.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/abts/buildmonitor/internal/config"
	"github.com/abts/buildmonitor/pkg/plan"
)

var ErrNotFound = errors.New("plan document not found")

type Source interface {
	// Discover lists the plan documents currently available.
	Discover(ctx context.Context) ([]plan.Ref, error)
	// Fetch returns the raw bytes of one document.
	Fetch(ctx context.Context, ref plan.Ref) ([]byte, error)
}

func New(ctx context.Context, cfg config.Source) (Source, error) {
	switch cfg.Type {
	case "", "http":
		return NewHTTPSource(ctx, cfg)
	case "file":
		return NewFileSource(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

// refsFromFilenames keeps .json names only and drops repeated ids.
func refsFromFilenames(names []string) []plan.Ref {
	seen := make(map[string]bool, len(names))
	refs := make([]plan.Ref, 0, len(names))
	for _, name := range names {
		if !isPlanFile(name) {
			continue
		}
		ref := plan.RefFromFilename(name)
		if ref.Id == "" || seen[ref.Id] {
			continue
		}
		seen[ref.Id] = true
		refs = append(refs, ref)
	}
	return refs
}
