package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/skosovsky/sftkit"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"
	"gopkg.in/yaml.v3"
)

// maxLineSize bounds a single JSON Lines record (long multi-turn conversations included).
const maxLineSize = 64 << 20

// parquetParallelism is the number of goroutines the Parquet reader uses per file.
const parquetParallelism = 4

// Format is a data file encoding.
type Format string

// Supported data file formats.
const (
	FormatJSON    Format = "json"
	FormatJSONL   Format = "jsonl"
	FormatYAML    Format = "yaml"
	FormatParquet Format = "parquet"
)

// FormatOf returns the format implied by name's extension, or "" when it is not a data file.
func FormatOf(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".yaml", ".yml":
		return FormatYAML
	case ".parquet":
		return FormatParquet
	default:
		return ""
	}
}

// Decode parses data according to the extension of name.
func Decode(name string, data []byte) ([]sftkit.Record, error) {
	var (
		records []sftkit.Record
		err     error
	)
	switch FormatOf(name) {
	case FormatJSON:
		records, err = decodeJSON(data)
	case FormatJSONL:
		records, err = decodeJSONLines(data)
	case FormatYAML:
		records, err = decodeYAML(data)
	case FormatParquet:
		records, err = decodeParquet(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, name, err)
	}
	return records, nil
}

// decodeJSON accepts a top-level array of objects, JSON Lines, or a single object.
func decodeJSON(data []byte) ([]sftkit.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var records []sftkit.Record
		if err := sonic.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	records, err := decodeJSONLines(trimmed)
	if err == nil {
		return records, nil
	}
	// A pretty-printed single object is not valid JSON Lines.
	var single sftkit.Record
	if objErr := sonic.Unmarshal(trimmed, &single); objErr != nil {
		return nil, err
	}
	return []sftkit.Record{single}, nil
}

func decodeJSONLines(data []byte) ([]sftkit.Record, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var records []sftkit.Record
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec sftkit.Record
		if err := sonic.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func decodeYAML(data []byte) ([]sftkit.Record, error) {
	var records []sftkit.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// decodeParquet reads every row without a predefined schema. The reader builds untagged row structs
// whose field names are exported variants of the column names ("conversations" becomes
// "Conversations"), so after the JSON round trip the keys are mapped back to the names stored in the file.
func decodeParquet(data []byte) ([]sftkit.Record, error) {
	pf := buffer.NewBufferFileFromBytesNoAlloc(data)
	pr, err := reader.NewParquetReader(pf, nil, parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("open parquet reader: %w", err)
	}
	defer pr.ReadStop()
	rows, err := pr.ReadByNumber(int(pr.GetNumRows()))
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	raw, err := sonic.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal rows: %w", err)
	}
	var decoded []map[string]any
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal rows: %w", err)
	}
	columns := make(map[string]string, len(pr.SchemaHandler.Infos))
	for _, info := range pr.SchemaHandler.Infos {
		if info.ExName != "" {
			columns[info.InName] = info.ExName
		}
	}
	records := make([]sftkit.Record, len(decoded))
	for i, row := range decoded {
		renamed, ok := renameColumns(row, columns).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("row %d: not an object", i)
		}
		records[i] = renamed
	}
	return records, nil
}

// renameColumns rewrites map keys from reader field names to column names, recursively.
// Lists written with a non-standard repeated group ({"list": [{"item": v}]}) are flattened to [v].
func renameColumns(v any, columns map[string]string) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if name, ok := columns[k]; ok {
				k = name
			}
			out[k] = renameColumns(val, columns)
		}
		if items, ok := flattenList(out); ok {
			return items
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = renameColumns(val, columns)
		}
		return out
	default:
		return v
	}
}

func flattenList(m map[string]any) ([]any, bool) {
	if len(m) != 1 {
		return nil, false
	}
	groups, ok := m["list"].([]any)
	if !ok {
		return nil, false
	}
	items := make([]any, 0, len(groups))
	for _, g := range groups {
		gm, ok := g.(map[string]any)
		if !ok || len(gm) != 1 {
			return nil, false
		}
		item, ok := gm["element"]
		if !ok {
			item, ok = gm["item"]
		}
		if !ok {
			return nil, false
		}
		items = append(items, item)
	}
	return items, true
}
