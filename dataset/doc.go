// Package dataset builds conversation datasets for supervised fine-tuning.
//
// NewOpenAIFormat loads a required train split and an optional validation split through an
// sftkit.Loader and normalizes every record to the {"messages": [...]} shape. A missing or
// unloadable validation split is logged as a warning and skipped; a missing train split or a
// malformed record fails construction.
package dataset
