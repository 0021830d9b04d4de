package sftkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_Map(t *testing.T) {
	t.Parallel()
	m := Message{
		Role:    RoleAssistant,
		Content: "ok",
		Extra:   map[string]any{"name": "helper", "role": "ignored"},
	}
	assert.Equal(t, map[string]any{"role": "assistant", "content": "ok", "name": "helper"}, m.Map())
	// Map must not write through to Extra.
	assert.Equal(t, "ignored", m.Extra["role"])
}

func TestCloneMessages_Nil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, CloneMessages(nil))
	assert.Nil(t, CloneBundle(nil))
	assert.Nil(t, CloneRecords(nil))
}

func TestCloneBundle_Deep(t *testing.T) {
	t.Parallel()
	b := Bundle{
		SplitTrain: {{Messages: []Message{
			{Role: RoleUser, Content: "Hi"},
			{Role: RoleAssistant, Content: "Hello", Extra: map[string]any{"meta": map[string]any{"k": "v"}}},
		}}},
	}
	c := CloneBundle(b)
	require.Equal(t, b, c)
	c[SplitTrain][0].Messages[0].Content = "changed"
	c[SplitTrain][0].Messages[1].Extra["meta"].(map[string]any)["k"] = "changed"
	c[SplitValidation] = nil
	assert.Equal(t, "Hi", b[SplitTrain][0].Messages[0].Content)
	assert.Equal(t, "v", b[SplitTrain][0].Messages[1].Extra["meta"].(map[string]any)["k"])
	assert.NotContains(t, b, SplitValidation)
}

func TestCloneRecords_Deep(t *testing.T) {
	t.Parallel()
	records := []Record{{"conversations": []any{map[string]any{"role": "user"}}}}
	c := CloneRecords(records)
	c[0]["conversations"].([]any)[0].(map[string]any)["role"] = "assistant"
	assert.Equal(t, "user", records[0]["conversations"].([]any)[0].(map[string]any)["role"])
}
