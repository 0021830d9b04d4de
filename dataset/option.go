package dataset

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/skosovsky/sftkit"
	"github.com/skosovsky/sftkit/loader"
)

// Option configures an OpenAIFormat adapter (functional options pattern).
type Option func(*config)

type config struct {
	valPath    string
	normalizer []sftkit.NormalizerOption
	loader     sftkit.Loader
	logger     *slog.Logger
	exists     func(locator string) (bool, error)
}

// WithValPath sets the optional validation dataset locator.
func WithValPath(path string) Option {
	return func(c *config) { c.valPath = path }
}

// WithChatKey sets the record field holding the message list (default "conversations").
func WithChatKey(key string) Option {
	return func(c *config) { c.normalizer = append(c.normalizer, sftkit.WithChatKey(key)) }
}

// WithSystemKey sets the record field holding a per-example system prompt.
func WithSystemKey(key string) Option {
	return func(c *config) { c.normalizer = append(c.normalizer, sftkit.WithSystemKey(key)) }
}

// WithSystemPrompt sets a fixed system prompt used when the per-example field is absent.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) { c.normalizer = append(c.normalizer, sftkit.WithSystemPrompt(prompt)) }
}

// WithLoader sets the dataset loader. Default is loader.NewRouter(). Nil is ignored.
func WithLoader(l sftkit.Loader) Option {
	return func(c *config) {
		if l != nil {
			c.loader = l
		}
	}
}

// WithLogger sets the logger used for validation warnings. Default is the logger in ctx (see nodelog.FromContext).
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithExists sets the existence check applied to the validation locator. Default is loader.Exists.
func WithExists(exists func(locator string) (bool, error)) Option {
	return func(c *config) {
		if exists != nil {
			c.exists = exists
		}
	}
}

// WithFS loads both splits from fsys and checks validation existence there.
func WithFS(fsys fs.FS) Option {
	return func(c *config) {
		c.loader = loader.NewFS(fsys)
		c.exists = func(locator string) (bool, error) {
			_, err := fs.Stat(fsys, locator)
			if err == nil {
				return true, nil
			}
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
	}
}
