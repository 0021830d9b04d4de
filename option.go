package sftkit

// NormalizerOption configures a Normalizer (functional options pattern).
type NormalizerOption func(*Normalizer)

// WithChatKey sets the record field holding the message list. Empty keeps DefaultChatKey.
func WithChatKey(key string) NormalizerOption {
	return func(n *Normalizer) {
		if key != "" {
			n.ChatKey = key
		}
	}
}

// WithSystemKey sets the record field holding a per-example system prompt.
// When the field is present in a record it takes precedence over WithSystemPrompt.
func WithSystemKey(key string) NormalizerOption {
	return func(n *Normalizer) {
		n.SystemKey = key
	}
}

// WithSystemPrompt sets a fixed system prompt used when no per-example prompt is found.
func WithSystemPrompt(prompt string) NormalizerOption {
	return func(n *Normalizer) {
		n.SystemPrompt = prompt
	}
}
