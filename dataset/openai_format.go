package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skosovsky/sftkit"
	"github.com/skosovsky/sftkit/loader"
	"github.com/skosovsky/sftkit/nodelog"
)

// TaskName identifies the output shape of OpenAIFormat for downstream pipelines.
const TaskName = "json_dataset"

// OpenAIFormat is a conversation dataset in the OpenAI chat format:
//
//	{"conversations": [
//	  {"role": "system", "content": "You are a helpful assistant."},
//	  {"role": "user", "content": "What is the capital of France?"},
//	  {"role": "assistant", "content": "The capital of France is Paris."}
//	]}
//
// Multi-turn conversations are supported; the last message must be from the assistant.
// Immutable after construction; accessors return copies.
type OpenAIFormat struct {
	formatted  sftkit.Bundle
	taskSpec   sftkit.TaskDataSpec
	normalizer *sftkit.Normalizer
}

// NewOpenAIFormat loads trainPath (the source's "train" split) and, when configured, the validation
// locator, then normalizes every record. A train load failure wraps sftkit.ErrLoadTrain; a malformed
// record aborts with *sftkit.RecordError. Validation problems only produce a warning.
func NewOpenAIFormat(ctx context.Context, trainPath string, opts ...Option) (*OpenAIFormat, error) {
	cfg := config{exists: loader.Exists}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.loader == nil {
		cfg.loader = loader.NewRouter()
	}
	logger := cfg.logger
	if logger == nil {
		logger = nodelog.FromContext(ctx)
	}
	n := sftkit.NewNormalizer(cfg.normalizer...)

	train, err := cfg.loader.Load(ctx, trainPath, string(sftkit.SplitTrain))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sftkit.ErrLoadTrain, trainPath, err)
	}
	val := loadValidation(ctx, &cfg, logger)

	formattedTrain, err := n.Normalize(sftkit.SplitTrain, train)
	if err != nil {
		return nil, err
	}
	formatted := sftkit.Bundle{sftkit.SplitTrain: formattedTrain}
	if val != nil {
		formattedVal, err := n.Normalize(sftkit.SplitValidation, val)
		if err != nil {
			return nil, err
		}
		formatted[sftkit.SplitValidation] = formattedVal
	}
	logger.InfoContext(ctx, "dataset loaded",
		slog.String("task", TaskName),
		slog.Int("train", len(formattedTrain)),
		slog.Int("validation", len(formatted[sftkit.SplitValidation])),
	)
	return &OpenAIFormat{
		formatted:  formatted,
		taskSpec:   sftkit.TaskDataSpec{TaskName: TaskName},
		normalizer: n,
	}, nil
}

// NewFromConfig builds an OpenAIFormat from a DatasetConfig (e.g. parsed by package manifest).
// Options are applied after the config, so they win.
func NewFromConfig(ctx context.Context, dc sftkit.DatasetConfig, opts ...Option) (*OpenAIFormat, error) {
	base := []Option{
		WithValPath(dc.ValPath),
		WithChatKey(dc.ChatKey),
		WithSystemKey(dc.SystemKey),
		WithSystemPrompt(dc.SystemPrompt),
	}
	return NewOpenAIFormat(ctx, dc.TrainPath, append(base, opts...)...)
}

// loadValidation returns nil when no validation locator is set, it does not exist, or it fails to load.
// The validation source is read as its own "train" split.
func loadValidation(ctx context.Context, cfg *config, logger *slog.Logger) []sftkit.Record {
	if cfg.valPath == "" {
		return nil
	}
	ok, err := cfg.exists(cfg.valPath)
	if err != nil {
		logger.WarnContext(ctx, "could not load validation dataset, continuing with training dataset only",
			slog.String("path", cfg.valPath), slog.Any("error", err))
		return nil
	}
	if !ok {
		logger.WarnContext(ctx, "validation path does not exist, skipping validation dataset",
			slog.String("path", cfg.valPath))
		return nil
	}
	records, err := cfg.loader.Load(ctx, cfg.valPath, string(sftkit.SplitTrain))
	if err != nil {
		logger.WarnContext(ctx, "could not load validation dataset, continuing with training dataset only",
			slog.String("path", cfg.valPath), slog.Any("error", err))
		return nil
	}
	return records
}

// FormattedDS returns a copy of the split -> examples bundle.
func (d *OpenAIFormat) FormattedDS() sftkit.Bundle {
	return sftkit.CloneBundle(d.formatted)
}

// Split returns a copy of one split's examples and whether it was loaded.
func (d *OpenAIFormat) Split(name sftkit.Split) ([]sftkit.Example, bool) {
	examples, ok := d.formatted[name]
	if !ok {
		return nil, false
	}
	return sftkit.CloneBundle(sftkit.Bundle{name: examples})[name], true
}

// HasValidation reports whether a validation split was loaded.
func (d *OpenAIFormat) HasValidation() bool {
	_, ok := d.formatted[sftkit.SplitValidation]
	return ok
}

// TaskSpec returns the task descriptor ("json_dataset").
func (d *OpenAIFormat) TaskSpec() sftkit.TaskDataSpec { return d.taskSpec }

// AddMessagesKey normalizes one record with this dataset's chat/system settings.
func (d *OpenAIFormat) AddMessagesKey(rec sftkit.Record) (sftkit.Example, error) {
	return d.normalizer.AddMessagesKey(rec)
}
