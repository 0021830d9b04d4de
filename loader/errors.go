package loader

import "errors"

// Sentinel errors for loader operations.
// Missing datasets are reported with sftkit.ErrDatasetNotFound. Callers should use errors.Is to check.
var (
	// ErrUnsupportedFormat indicates a data file extension no decoder handles.
	ErrUnsupportedFormat = errors.New("loader: unsupported data file format")
	// ErrDecode indicates a data file could not be decoded into records.
	ErrDecode = errors.New("loader: decode failed")
	// ErrFetchFailed indicates HTTPLoader could not retrieve the file.
	ErrFetchFailed = errors.New("loader: fetch failed")
	// ErrHTTPStatus indicates an unexpected HTTP status (e.g. 500) when using HTTPLoader.
	ErrHTTPStatus = errors.New("loader: unexpected HTTP status")
)
