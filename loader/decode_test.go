package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/skosovsky/sftkit"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOf(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		want Format
	}{
		{"train.json", FormatJSON},
		{"train.JSONL", FormatJSONL},
		{"train.ndjson", FormatJSONL},
		{"data/train.yaml", FormatYAML},
		{"train.yml", FormatYAML},
		{"train-00000-of-00001.parquet", FormatParquet},
		{"README.md", ""},
		{"train", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatOf(tt.name))
		})
	}
}

func TestDecode_JSONArray(t *testing.T) {
	t.Parallel()
	data := heredoc.Doc(`
		[
		  {"conversations": [{"role": "user", "content": "Hi"}, {"role": "assistant", "content": "Hello"}]},
		  {"conversations": [{"role": "user", "content": "Bye"}, {"role": "assistant", "content": "Later"}], "id": 2}
		]
	`)
	records, err := Decode("train.json", []byte(data))
	require.NoError(t, err)
	require.Len(t, records, 2)
	msgs, ok := records[0]["conversations"].([]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"role": "user", "content": "Hi"}, msgs[0])
	assert.InDelta(t, 2.0, records[1]["id"], 1e-9)
}

func TestDecode_JSONLines(t *testing.T) {
	t.Parallel()
	data := heredoc.Doc(`
		{"conversations": [{"role": "user", "content": "a"}, {"role": "assistant", "content": "b"}]}

		{"conversations": [{"role": "user", "content": "c"}, {"role": "assistant", "content": "d"}]}
	`)
	for _, name := range []string{"train.jsonl", "train.json"} {
		records, err := Decode(name, []byte(data))
		require.NoError(t, err, name)
		assert.Len(t, records, 2, name)
	}
}

func TestDecode_JSONSingleObject(t *testing.T) {
	t.Parallel()
	data := heredoc.Doc(`
		{
		  "conversations": [
		    {"role": "user", "content": "Hi"},
		    {"role": "assistant", "content": "Hello"}
		  ]
		}
	`)
	records, err := Decode("train.json", []byte(data))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0], "conversations")
}

func TestDecode_JSONEmpty(t *testing.T) {
	t.Parallel()
	records, err := Decode("train.json", []byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecode_JSONInvalid(t *testing.T) {
	t.Parallel()
	_, err := Decode("train.jsonl", []byte("{\"conversations\": [}\n"))
	require.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "line 1")

	_, err = Decode("train.json", []byte("{not json"))
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecode_YAML(t *testing.T) {
	t.Parallel()
	data := heredoc.Doc(`
		- conversations:
		    - role: user
		      content: Hi
		    - role: assistant
		      content: Hello
		  system: Be kind.
	`)
	records, err := Decode("train.yaml", []byte(data))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Be kind.", records[0]["system"])

	ex, err := sftkit.NewNormalizer(sftkit.WithSystemKey("system")).AddMessagesKey(records[0])
	require.NoError(t, err)
	assert.Len(t, ex.Messages, 3)
}

func TestDecode_YAMLInvalid(t *testing.T) {
	t.Parallel()
	_, err := Decode("train.yml", []byte("conversations: [unclosed"))
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecode_Unsupported(t *testing.T) {
	t.Parallel()
	_, err := Decode("train.csv", []byte("a,b"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

type parquetTurn struct {
	Role    string `parquet:"name=role, type=BYTE_ARRAY, convertedtype=UTF8"`
	Content string `parquet:"name=content, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type parquetRow struct {
	Conversations []parquetTurn `parquet:"name=conversations, type=LIST"`
	System        *string       `parquet:"name=system, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func writeParquet(t *testing.T, name string, rows ...parquetRow) {
	t.Helper()
	fw, err := local.NewLocalFileWriter(name)
	require.NoError(t, err)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, pw.Write(row))
	}
	require.NoError(t, pw.WriteStop())
	require.NoError(t, fw.Close())
}

func TestDecode_ParquetColumnNames(t *testing.T) {
	t.Parallel()
	system := "S"
	name := filepath.Join(t.TempDir(), "train.parquet")
	writeParquet(t, name,
		parquetRow{
			Conversations: []parquetTurn{{Role: "user", Content: "Hi"}, {Role: "assistant", Content: "Hello"}},
			System:        &system,
		},
		parquetRow{
			Conversations: []parquetTurn{{Role: "user", Content: "Bye"}, {Role: "assistant", Content: "Later"}},
		},
	)
	data, err := os.ReadFile(name)
	require.NoError(t, err)

	records, err := Decode(name, data)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, sftkit.Record{
		"conversations": []any{
			map[string]any{"role": "user", "content": "Hi"},
			map[string]any{"role": "assistant", "content": "Hello"},
		},
		"system": "S",
	}, records[0])
	assert.Contains(t, records[1], "system")
	assert.Nil(t, records[1]["system"])

	ex, err := sftkit.NewNormalizer(sftkit.WithSystemKey("system")).AddMessagesKey(records[0])
	require.NoError(t, err)
	require.Len(t, ex.Messages, 3)
	assert.Equal(t, sftkit.Message{Role: sftkit.RoleSystem, Content: "S"}, ex.Messages[0])
	assert.Equal(t, sftkit.Message{Role: sftkit.RoleAssistant, Content: "Hello"}, ex.Messages[2])
}

func TestFileLoader_Load_ParquetShards(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "data"), 0o750))
	writeParquet(t, filepath.Join(dir, "data", "train-00000-of-00002.parquet"),
		parquetRow{Conversations: []parquetTurn{{Role: "user", Content: "a"}, {Role: "assistant", Content: "A"}}})
	writeParquet(t, filepath.Join(dir, "data", "train-00001-of-00002.parquet"),
		parquetRow{Conversations: []parquetTurn{{Role: "user", Content: "b"}, {Role: "assistant", Content: "B"}}})

	records, err := NewFileLoader().Load(context.Background(), dir, "train")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, userContents(t, records))
}

func TestRenameColumns_FlattensItemLists(t *testing.T) {
	t.Parallel()
	columns := map[string]string{"Conversations": "conversations", "List": "list", "Item": "item", "Role": "role"}
	got := renameColumns(map[string]any{
		"Conversations": map[string]any{"List": []any{
			map[string]any{"Item": map[string]any{"Role": "user"}},
			map[string]any{"Item": map[string]any{"Role": "assistant"}},
		}},
	}, columns)
	assert.Equal(t, map[string]any{
		"conversations": []any{map[string]any{"role": "user"}, map[string]any{"role": "assistant"}},
	}, got)
}
