package sftkit

import (
	"context"
	"slices"

	"github.com/tiendc/go-deepcopy"
)

// Role is the message role in a conversation (system, user, assistant, tool).
type Role string

// Conversation message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Split is a named partition of a dataset.
type Split string

// Dataset splits produced by the adapters.
const (
	SplitTrain      Split = "train"
	SplitValidation Split = "validation"
)

// DefaultChatKey is the record field holding the message list when none is configured.
const DefaultChatKey = "conversations"

// Message is a single conversation turn.
// Extra keeps any other fields of the source message object (e.g. "name", "tool_calls").
type Message struct {
	Role    Role           `json:"role" yaml:"role"`
	Content string         `json:"content" yaml:"content"`
	Extra   map[string]any `json:"-" yaml:"-"`
}

// Map renders the message as a plain field map, Extra first so role and content always win.
func (m Message) Map() map[string]any {
	out := cloneExtra(m.Extra)
	if out == nil {
		out = make(map[string]any, 2)
	}
	out["role"] = string(m.Role)
	out["content"] = m.Content
	return out
}

// Record is one raw dataset row as decoded by a Loader.
type Record map[string]any

// Example is a normalized record: only the message list survives.
// Invariants: at most one system message and only in first position; the last message is from the assistant.
type Example struct {
	Messages []Message `json:"messages" yaml:"messages"`
}

// Map renders the example in the {"messages": [...]} shape consumed by training pipelines.
func (e Example) Map() map[string]any {
	msgs := make([]any, 0, len(e.Messages))
	for _, m := range e.Messages {
		msgs = append(msgs, m.Map())
	}
	return map[string]any{"messages": msgs}
}

// Bundle maps split name to its normalized examples.
type Bundle map[Split][]Example

// TaskDataSpec identifies the shape of a dataset adapter's output for downstream consumers.
type TaskDataSpec struct {
	TaskName         string
	PromptFile       string
	SystemPromptFile string
}

// DatasetConfig holds construction inputs for a conversation dataset adapter.
type DatasetConfig struct {
	TrainPath    string `yaml:"train_path"`
	ValPath      string `yaml:"val_path"`
	ChatKey      string `yaml:"chat_key"`
	SystemKey    string `yaml:"system_key"`
	SystemPrompt string `yaml:"system_prompt"`
}

// Loader loads one split of a dataset. locator is whatever the implementation resolves (path, URL).
type Loader interface {
	Load(ctx context.Context, locator, split string) ([]Record, error)
}

// CloneMessages returns a deep copy of msgs; Extra maps are copied recursively.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := slices.Clone(msgs)
	for i := range out {
		out[i].Extra = cloneExtra(out[i].Extra)
	}
	return out
}

// CloneBundle returns a deep copy of b. Adapters use this so callers cannot mutate stored splits.
func CloneBundle(b Bundle) Bundle {
	if b == nil {
		return nil
	}
	out := make(Bundle, len(b))
	for split, examples := range b {
		cloned := make([]Example, len(examples))
		for i, ex := range examples {
			cloned[i] = Example{Messages: CloneMessages(ex.Messages)}
		}
		out[split] = cloned
	}
	return out
}

// CloneRecords returns a deep copy of records.
func CloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Record(cloneExtra(r))
	}
	return out
}

func cloneExtra(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	var out map[string]any
	if err := deepcopy.Copy(&out, m); err != nil {
		// Values decoded from JSON/YAML/Parquet are always copyable; fall back to a shallow copy.
		out = make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
