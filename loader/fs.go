package loader

import (
	"context"
	"io/fs"
	"runtime"

	"github.com/skosovsky/sftkit"
)

// Ensures FSLoader implements sftkit.Loader.
var _ sftkit.Loader = (*FSLoader)(nil)

// FSLoader loads dataset splits from an fs.FS (e.g. embed.FS). No cache: every Load decodes again.
type FSLoader struct {
	fsys        fs.FS
	concurrency int
}

// NewFS returns an FSLoader resolving locators as slash-separated paths inside fsys.
func NewFS(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys, concurrency: runtime.GOMAXPROCS(0)}
}

// Load returns the records of split at locator within the filesystem.
func (l *FSLoader) Load(ctx context.Context, locator, split string) ([]sftkit.Record, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	src := fsSource{fsys: l.fsys}
	files, err := resolveFiles(src, locator, split)
	if err != nil {
		return nil, err
	}
	return loadFiles(ctx, src, files, l.concurrency)
}
