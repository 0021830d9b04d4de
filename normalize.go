package sftkit

import (
	"errors"
	"fmt"

	"github.com/skosovsky/sftkit/internal/cast"
)

// Normalizer maps raw conversation records onto Example.
// Fields must not be mutated after construction to ensure goroutine safety.
type Normalizer struct {
	ChatKey      string
	SystemKey    string
	SystemPrompt string
}

// NewNormalizer returns a Normalizer reading messages from DefaultChatKey unless overridden.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{ChatKey: DefaultChatKey}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// AddMessagesKey builds the normalized example for one record.
// The message list is copied from the record, a system message is prepended from SystemKey
// (when present and not null in the record) or SystemPrompt (when non-empty), and every other record field is dropped.
// Prepending onto a conversation that already starts with a system message returns ErrSystemPlacement.
// Returns ErrTerminalRole when the resulting list is empty or does not end with an assistant message.
func (n *Normalizer) AddMessagesKey(rec Record) (Example, error) {
	chatKey := n.ChatKey
	if chatKey == "" {
		chatKey = DefaultChatKey
	}
	raw, ok := rec[chatKey]
	if !ok {
		return Example{}, fmt.Errorf("%w: %q", ErrMissingChatKey, chatKey)
	}
	messages, err := parseMessages(raw)
	if err != nil {
		return Example{}, err
	}
	var (
		system *Message
		source string
	)
	if v, ok := rec[n.SystemKey]; n.SystemKey != "" && ok && v != nil {
		content, ok := cast.ToString(v)
		if !ok {
			return Example{}, fmt.Errorf("%w: system field %q is %T, want string", ErrInvalidMessage, n.SystemKey, v)
		}
		system = &Message{Role: RoleSystem, Content: content}
		source = fmt.Sprintf("system field %q", n.SystemKey)
	} else if n.SystemPrompt != "" {
		system = &Message{Role: RoleSystem, Content: n.SystemPrompt}
		source = "configured system prompt"
	}
	if system != nil {
		if len(messages) > 0 && messages[0].Role == RoleSystem {
			return Example{}, fmt.Errorf("%w: %s collides with the conversation's own system message", ErrSystemPlacement, source)
		}
		messages = append([]Message{*system}, messages...)
	}
	if err := checkSystemPlacement(messages); err != nil {
		return Example{}, err
	}
	if len(messages) == 0 {
		return Example{}, fmt.Errorf("%w, got an empty conversation", ErrTerminalRole)
	}
	if last := messages[len(messages)-1].Role; last != RoleAssistant {
		return Example{}, fmt.Errorf("%w, got: %s", ErrTerminalRole, last)
	}
	return Example{Messages: messages}, nil
}

// MustAddMessagesKey is like AddMessagesKey but panics on a malformed record.
func (n *Normalizer) MustAddMessagesKey(rec Record) Example {
	ex, err := n.AddMessagesKey(rec)
	if err != nil {
		panic(err)
	}
	return ex
}

// Normalize maps every record of a split, stopping at the first malformed one.
// The failure is reported as *RecordError carrying split and index.
func (n *Normalizer) Normalize(split Split, records []Record) ([]Example, error) {
	out := make([]Example, 0, len(records))
	for i, rec := range records {
		ex, err := n.AddMessagesKey(rec)
		if err != nil {
			return nil, &RecordError{Split: split, Index: i, Err: err}
		}
		out = append(out, ex)
	}
	return out, nil
}

// parseMessages copies the raw message list into Messages. Source maps are never retained.
func parseMessages(raw any) ([]Message, error) {
	if msgs, ok := raw.([]Message); ok {
		return CloneMessages(msgs), nil
	}
	items, ok := cast.ToSlice(raw)
	if !ok {
		return nil, fmt.Errorf("%w: chat field is %T, want a list of messages", ErrInvalidMessage, raw)
	}
	out := make([]Message, 0, len(items))
	for i, item := range items {
		fields, ok := cast.ToStringMap(item)
		if !ok {
			return nil, fmt.Errorf("%w: message %d is %T, want an object", ErrInvalidMessage, i, item)
		}
		msg, err := parseMessage(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %w", ErrInvalidMessage, i, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func parseMessage(fields map[string]any) (Message, error) {
	role, ok := cast.ToString(fields["role"])
	if !ok || role == "" {
		return Message{}, errors.New("missing role")
	}
	var content string
	if v := fields["content"]; v != nil {
		content, ok = cast.ToString(v)
		if !ok {
			return Message{}, fmt.Errorf("content is %T, want string", v)
		}
	}
	msg := Message{Role: Role(role), Content: content}
	var extra map[string]any
	for k, v := range fields {
		if k == "role" || k == "content" {
			continue
		}
		if extra == nil {
			extra = make(map[string]any, len(fields))
		}
		extra[k] = v
	}
	msg.Extra = cloneExtra(extra)
	return msg, nil
}

// checkSystemPlacement reports a system message anywhere but the first position.
func checkSystemPlacement(messages []Message) error {
	for i, m := range messages {
		if m.Role == RoleSystem && i > 0 {
			return fmt.Errorf("%w: message %d", ErrSystemPlacement, i)
		}
	}
	return nil
}
