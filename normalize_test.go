package sftkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func chat(pairs ...string) []any {
	out := make([]any, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, map[string]any{"role": pairs[i], "content": pairs[i+1]})
	}
	return out
}

func TestNormalizer_AddMessagesKey_EndToEnd(t *testing.T) {
	t.Parallel()
	rec := Record{"conversations": chat("user", "Hi", "assistant", "Hello")}
	ex, err := NewNormalizer().AddMessagesKey(rec)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"messages": []any{
			map[string]any{"role": "user", "content": "Hi"},
			map[string]any{"role": "assistant", "content": "Hello"},
		},
	}, ex.Map())
}

func TestNormalizer_AddMessagesKey_NoSystemConfig(t *testing.T) {
	t.Parallel()
	rec := Record{
		"conversations": chat("system", "Be brief.", "user", "2+2?", "assistant", "4", "user", "and 3+3?", "assistant", "6"),
		"id":            "row-1",
	}
	ex, err := NewNormalizer().AddMessagesKey(rec)
	require.NoError(t, err)
	require.Len(t, ex.Messages, 5)
	assert.Equal(t, Message{Role: RoleSystem, Content: "Be brief."}, ex.Messages[0])
	assert.Equal(t, Message{Role: RoleUser, Content: "and 3+3?"}, ex.Messages[3])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "6"}, ex.Messages[4])
	// Only messages survive.
	assert.Len(t, ex.Map(), 1)
}

func TestNormalizer_AddMessagesKey_SystemKeyWins(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(WithSystemKey("system"), WithSystemPrompt("fixed prompt"))
	rec := Record{
		"conversations": chat("user", "Hi", "assistant", "Hello"),
		"system":        "per-example prompt",
	}
	ex, err := n.AddMessagesKey(rec)
	require.NoError(t, err)
	require.Len(t, ex.Messages, 3)
	assert.Equal(t, Message{Role: RoleSystem, Content: "per-example prompt"}, ex.Messages[0])
}

func TestNormalizer_AddMessagesKey_SystemPromptFallback(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(WithSystemKey("system"), WithSystemPrompt("fixed prompt"))
	rec := Record{"conversations": chat("user", "Hi", "assistant", "Hello")}
	ex, err := n.AddMessagesKey(rec)
	require.NoError(t, err)
	require.Len(t, ex.Messages, 3)
	assert.Equal(t, Message{Role: RoleSystem, Content: "fixed prompt"}, ex.Messages[0])
}

func TestNormalizer_AddMessagesKey_SystemKeyNonString(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(WithSystemKey("system"))
	rec := Record{
		"conversations": chat("user", "Hi", "assistant", "Hello"),
		"system":        []any{"not", "a", "prompt"},
	}
	_, err := n.AddMessagesKey(rec)
	require.ErrorIs(t, err, ErrInvalidMessage)
}

func TestNormalizer_AddMessagesKey_SystemKeyNull(t *testing.T) {
	t.Parallel()
	rec := Record{
		"conversations": chat("user", "Hi", "assistant", "Hello"),
		"system":        nil,
	}
	ex, err := NewNormalizer(WithSystemKey("system")).AddMessagesKey(rec)
	require.NoError(t, err)
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleAssistant, Content: "Hello"},
	}, ex.Messages)

	ex, err = NewNormalizer(WithSystemKey("system"), WithSystemPrompt("fallback")).AddMessagesKey(rec)
	require.NoError(t, err)
	assert.Equal(t, Message{Role: RoleSystem, Content: "fallback"}, ex.Messages[0])
}

func TestNormalizer_AddMessagesKey_CustomChatKey(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(WithChatKey("messages"))
	ex, err := n.AddMessagesKey(Record{"messages": chat("user", "Hi", "assistant", "Hello")})
	require.NoError(t, err)
	assert.Len(t, ex.Messages, 2)

	_, err = n.AddMessagesKey(Record{"conversations": chat("user", "Hi", "assistant", "Hello")})
	require.ErrorIs(t, err, ErrMissingChatKey)
}

func TestNormalizer_AddMessagesKey_TerminalRole(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		rec  Record
	}{
		{"last user", Record{"conversations": chat("user", "Hi", "assistant", "Hello", "user", "Bye")}},
		{"only user", Record{"conversations": chat("user", "Hi")}},
		{"empty", Record{"conversations": []any{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewNormalizer().AddMessagesKey(tt.rec)
			require.ErrorIs(t, err, ErrTerminalRole)
		})
	}
}

func TestNormalizer_AddMessagesKey_TerminalRoleMessage(t *testing.T) {
	t.Parallel()
	_, err := NewNormalizer().AddMessagesKey(Record{"conversations": chat("user", "Hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got: user")
}

func TestNormalizer_AddMessagesKey_SystemPlacement(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(WithSystemPrompt("fixed prompt"))
	_, err := n.AddMessagesKey(Record{"conversations": chat("system", "inline", "user", "Hi", "assistant", "Hello")})
	require.ErrorIs(t, err, ErrSystemPlacement)
	assert.Contains(t, err.Error(), "configured system prompt collides with the conversation's own system message")

	_, err = NewNormalizer(WithSystemKey("system")).AddMessagesKey(Record{
		"conversations": chat("system", "inline", "user", "Hi", "assistant", "Hello"),
		"system":        "per-example",
	})
	require.ErrorIs(t, err, ErrSystemPlacement)
	assert.Contains(t, err.Error(), `system field "system" collides`)

	ex, err := NewNormalizer().AddMessagesKey(Record{"conversations": chat("system", "inline", "user", "Hi", "assistant", "Hello")})
	require.NoError(t, err)
	assert.Equal(t, Message{Role: RoleSystem, Content: "inline"}, ex.Messages[0])

	_, err = NewNormalizer().AddMessagesKey(Record{"conversations": chat("user", "Hi", "system", "late", "assistant", "Hello")})
	require.ErrorIs(t, err, ErrSystemPlacement)
}

func TestNormalizer_AddMessagesKey_Malformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  any
	}{
		{"not a list", "hello"},
		{"element not object", []any{"hello"}},
		{"missing role", []any{map[string]any{"content": "Hi"}}},
		{"non-string content", []any{map[string]any{"role": "assistant", "content": []any{1, 2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewNormalizer().AddMessagesKey(Record{"conversations": tt.raw})
			require.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestNormalizer_AddMessagesKey_NullContent(t *testing.T) {
	t.Parallel()
	rec := Record{"conversations": []any{
		map[string]any{"role": "user", "content": "call it"},
		map[string]any{"role": "assistant", "content": nil, "tool_calls": []any{map[string]any{"id": "1"}}},
	}}
	ex, err := NewNormalizer().AddMessagesKey(rec)
	require.NoError(t, err)
	assert.Empty(t, ex.Messages[1].Content)
	assert.Equal(t, []any{map[string]any{"id": "1"}}, ex.Messages[1].Extra["tool_calls"])
}

func TestNormalizer_AddMessagesKey_DoesNotAlias(t *testing.T) {
	t.Parallel()
	toolCalls := []any{map[string]any{"id": "call-1"}}
	src := []any{
		map[string]any{"role": "user", "content": "Hi"},
		map[string]any{"role": "assistant", "content": "Hello", "tool_calls": toolCalls},
	}
	rec := Record{"conversations": src}
	ex, err := NewNormalizer().AddMessagesKey(rec)
	require.NoError(t, err)

	ex.Messages[0].Content = "changed"
	ex.Messages[1].Extra["tool_calls"].([]any)[0].(map[string]any)["id"] = "changed"
	assert.Equal(t, "Hi", src[0].(map[string]any)["content"])
	assert.Equal(t, "call-1", toolCalls[0].(map[string]any)["id"])
}

func TestNormalizer_AddMessagesKey_TypedMessages(t *testing.T) {
	t.Parallel()
	src := []Message{{Role: RoleUser, Content: "Hi"}, {Role: RoleAssistant, Content: "Hello"}}
	ex, err := NewNormalizer().AddMessagesKey(Record{"conversations": src})
	require.NoError(t, err)
	ex.Messages[0].Content = "changed"
	assert.Equal(t, "Hi", src[0].Content)
}

func TestNormalizer_MustAddMessagesKey(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()
	assert.NotPanics(t, func() {
		n.MustAddMessagesKey(Record{"conversations": chat("user", "Hi", "assistant", "Hello")})
	})
	assert.Panics(t, func() {
		n.MustAddMessagesKey(Record{"conversations": chat("user", "Hi")})
	})
}

func TestNormalizer_Normalize(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()
	records := []Record{
		{"conversations": chat("user", "a", "assistant", "b")},
		{"conversations": chat("user", "c", "assistant", "d")},
	}
	out, err := n.Normalize(SplitTrain, records)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	records = append(records, Record{"conversations": chat("user", "e")})
	out, err = n.Normalize(SplitValidation, records)
	require.ErrorIs(t, err, ErrTerminalRole)
	assert.Nil(t, out)
	var re *RecordError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, SplitValidation, re.Split)
	assert.Equal(t, 2, re.Index)
}
