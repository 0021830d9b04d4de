package loader

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/skosovsky/sftkit"
)

// Ensures Router implements sftkit.Loader.
var _ sftkit.Loader = (*Router)(nil)

// Router sends http(s) locators to an HTTPLoader and everything else to a FileLoader.
type Router struct {
	File *FileLoader
	HTTP *HTTPLoader
}

// NewRouter returns a Router with default File and HTTP loaders.
func NewRouter() *Router {
	return &Router{File: NewFileLoader(), HTTP: NewHTTPLoader()}
}

// Load implements sftkit.Loader.
func (r *Router) Load(ctx context.Context, locator, split string) ([]sftkit.Record, error) {
	if IsRemote(locator) {
		return r.HTTP.Load(ctx, locator, split)
	}
	return r.File.Load(ctx, locator, split)
}

// Exists reports whether a locator can be attempted. Remote locators are assumed to exist;
// their absence surfaces as a load error instead.
func Exists(locator string) (bool, error) {
	if IsRemote(locator) {
		return true, nil
	}
	_, err := os.Stat(locator)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
