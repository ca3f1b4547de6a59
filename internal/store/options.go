package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/petermattis/goid"
	"golang.org/x/sync/singleflight"

	"github.com/emmanuel-ferdman/roslyn/internal/format"
)

// ErrReentrantFetch reports a formatting-options fetch that re-entered the
// blocking accessor from its own context. The accessor would wait on itself;
// the contract is that providers never call back into the same file's
// blocking accessors while serving a fetch.
var ErrReentrantFetch = errors.New("formatting options fetch re-entered from its own context")

// OptionsProvider fetches the formatting configuration for a path. Fetches
// may involve an editor round-trip and take arbitrarily long; File bridges
// them into blocking accessors.
type OptionsProvider interface {
	FormattingOptions(ctx context.Context, path string) (format.Options, error)
}

// optionsCell caches the fetched options per file. Concurrent first fetches
// are collapsed into one provider call; an installed edit invalidates the
// cache.
type optionsCell struct {
	group    singleflight.Group
	cached   atomic.Pointer[format.Options]
	fetching atomic.Int64 // goid of the goroutine running the provider call
}

func (c *optionsCell) invalidate() {
	c.cached.Store(nil)
}

// FormattingOptions blocks until the per-document formatting configuration
// is available. The calling context must be safe to block on: a provider
// that calls back into this method for the same file while serving its own
// fetch fails with ErrReentrantFetch instead of deadlocking.
func (f *File) FormattingOptions(ctx context.Context) (format.Options, error) {
	if cached := f.options.cached.Load(); cached != nil {
		return *cached, nil
	}

	self := goid.Get()
	if f.options.fetching.Load() == self {
		return format.Options{}, fmt.Errorf("%s: %w", f.path, ErrReentrantFetch)
	}

	value, err, _ := f.options.group.Do(f.path, func() (any, error) {
		f.options.fetching.Store(goid.Get())
		defer f.options.fetching.Store(0)

		if f.provider == nil {
			return format.DefaultOptions(), nil
		}
		return f.provider.FormattingOptions(ctx, f.path)
	})
	if err != nil {
		return format.Options{}, fmt.Errorf("failed to fetch formatting options for %s: %w", f.path, err)
	}

	opts := value.(format.Options)
	f.options.cached.Store(&opts)
	return opts, nil
}
