package core

import (
	"strings"

	"aspada.com/assistant/internal/store"
)

// Turn is one prior message supplied by the client.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NormalizeQuestion is the cache key form of a message.
func NormalizeQuestion(message string) string {
	return strings.TrimSpace(strings.ToLower(message))
}

// SanitizeHistory drops a leading model turn; Gemini rejects histories that
// do not start with the user.
func SanitizeHistory(history []Turn) []Turn {
	if len(history) > 0 && history[0].Role == store.RoleModel {
		return history[1:]
	}
	return history
}

// TrimHistory keeps the most recent limit turns. limit <= 0 keeps everything.
func TrimHistory(history []Turn, limit int) []Turn {
	if limit > 0 && len(history) > limit {
		return history[len(history)-limit:]
	}
	return history
}

// Normalize returns the normalized question and the history to send to the
// generator.
func Normalize(message string, history []Turn, historyLimit int) (string, []Turn) {
	return NormalizeQuestion(message), SanitizeHistory(TrimHistory(history, historyLimit))
}
