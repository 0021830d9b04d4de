// Package loader implements sftkit.Loader for conversation datasets stored as JSON, JSON Lines,
// YAML or Parquet files.
//
// A locator is either a single data file or a directory. In a directory the files whose name
// starts with the split name (train.jsonl, train-00000-of-00002.parquet, data/train.json) form
// that split; when nothing matches and the split is "train", every data file in the directory is
// used. Shards are loaded concurrently and concatenated in lexical order.
//
// FileLoader reads from disk lazily and caches; FSLoader reads from an fs.FS (e.g. embed.FS);
// HTTPLoader fetches a single file over HTTP. Router picks HTTPLoader for http(s) locators and
// FileLoader otherwise.
package loader
