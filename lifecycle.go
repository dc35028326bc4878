package registry

import (
	"context"
	"fmt"

	"github.com/junioryono/registry/internal/cache"
)

// dispose closes every disposable instance in entries in reverse order
// (LIFO) and collects the failures into a DisposalError.
func dispose(ctx context.Context, label string, entries []cache.Entry) error {
	var errs []error

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]

		var err error
		switch d := e.Instance.(type) {
		case DisposableWithContext:
			err = d.Close(ctx)
		case Disposable:
			err = d.Close()
		default:
			continue
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", formatType(e.Key), err))
		}
	}

	if len(errs) > 0 {
		return DisposalError{Context: label, Errors: errs}
	}
	return nil
}
