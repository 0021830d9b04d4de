package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/skosovsky/sftkit"

	"golang.org/x/sync/errgroup"
)

// dataSubdir is the conventional directory holding shards inside a dataset repository.
const dataSubdir = "data"

// source abstracts the filesystem a locator is resolved against (disk or fs.FS).
type source interface {
	stat(name string) (fs.FileInfo, error)
	readDir(name string) ([]fs.DirEntry, error)
	readFile(name string) ([]byte, error)
	join(elem ...string) string
}

type diskSource struct{}

func (diskSource) stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (diskSource) readDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (diskSource) readFile(name string) ([]byte, error) {
	return os.ReadFile(name) // #nosec G304 -- locator is supplied by the training config
}
func (diskSource) join(elem ...string) string { return filepath.Join(elem...) }

type fsSource struct{ fsys fs.FS }

func (s fsSource) stat(name string) (fs.FileInfo, error)      { return fs.Stat(s.fsys, name) }
func (s fsSource) readDir(name string) ([]fs.DirEntry, error) { return fs.ReadDir(s.fsys, name) }
func (s fsSource) readFile(name string) ([]byte, error)       { return fs.ReadFile(s.fsys, name) }
func (fsSource) join(elem ...string) string                   { return path.Join(elem...) }

// resolveFiles returns the data files making up split at locator, sorted.
func resolveFiles(src source, locator, split string) ([]string, error) {
	info, err := src.stat(locator)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", sftkit.ErrDatasetNotFound, locator)
		}
		return nil, err
	}
	if !info.IsDir() {
		if FormatOf(locator) == "" {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, locator)
		}
		if split != string(sftkit.SplitTrain) {
			return nil, fmt.Errorf("%w: split %q in single file %q", sftkit.ErrDatasetNotFound, split, locator)
		}
		return []string{locator}, nil
	}
	var all []string
	for _, dir := range []string{locator, src.join(locator, dataSubdir)} {
		entries, err := src.readDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") || FormatOf(e.Name()) == "" {
				continue
			}
			all = append(all, src.join(dir, e.Name()))
		}
	}
	var matched []string
	for _, f := range all {
		if matchesSplit(path.Base(filepath.ToSlash(f)), split) {
			matched = append(matched, f)
		}
	}
	if len(matched) == 0 && split == string(sftkit.SplitTrain) && !anySplitNamed(all) {
		matched = all
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: split %q in %q", sftkit.ErrDatasetNotFound, split, locator)
	}
	slices.Sort(matched)
	return matched, nil
}

// knownSplits are the split names recognized in data file names. A directory with none of them
// is a single unnamed train split.
var knownSplits = []string{"train", "validation", "valid", "val", "dev", "test"}

// anySplitNamed reports whether any file is named after a known split.
func anySplitNamed(files []string) bool {
	for _, f := range files {
		base := path.Base(filepath.ToSlash(f))
		for _, split := range knownSplits {
			if matchesSplit(base, split) {
				return true
			}
		}
	}
	return false
}

// matchesSplit reports whether a data file name belongs to split: "train.jsonl", "train-00000-of-00002.parquet", "train_part1.json".
func matchesSplit(name, split string) bool {
	rest, ok := strings.CutPrefix(strings.ToLower(name), strings.ToLower(split))
	if !ok || rest == "" {
		return false
	}
	switch rest[0] {
	case '.', '-', '_':
		return true
	default:
		return false
	}
}

// loadFiles decodes files concurrently (at most limit at once) and concatenates them in order.
func loadFiles(ctx context.Context, src source, files []string, limit int) ([]sftkit.Record, error) {
	parts := make([][]sftkit.Record, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := src.readFile(name)
			if err != nil {
				return fmt.Errorf("loader: read %s: %w", name, err)
			}
			records, err := Decode(name, data)
			if err != nil {
				return err
			}
			parts[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]sftkit.Record, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}
