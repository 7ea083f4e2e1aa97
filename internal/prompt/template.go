// Package prompt renders chat prompt templates.
//
// Templates are ordered (role, text) pairs with {name} placeholders. Render
// emits conversation history first, then the template turns, matching the
// message ordering the assistant was designed around.
package prompt

import (
	"fmt"
	"regexp"

	"github.com/fklc-labs/chatbot-service/internal/app/domain/chat"
	"github.com/fklc-labs/chatbot-service/internal/llm"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Turn is one templated message.
type Turn struct {
	Role chat.Role
	Text string
}

// Template is an ordered list of templated messages.
type Template struct {
	turns []Turn
}

// New builds a template from the given turns.
func New(turns ...Turn) (*Template, error) {
	for i, turn := range turns {
		if !chat.ValidRole(turn.Role) {
			return nil, fmt.Errorf("turn %d: %w", i, chat.ErrInvalidRole)
		}
		if turn.Text == "" {
			return nil, fmt.Errorf("turn %d: %w", i, chat.ErrEmptyContent)
		}
	}
	return &Template{turns: turns}, nil
}

// Render expands the template against vars and prepends history. Placeholders
// without a matching var are left intact.
func (t *Template) Render(history []chat.Message, vars map[string]string) []llm.Message {
	out := llm.FromHistory(history)
	for _, turn := range t.turns {
		out = append(out, llm.Message{
			Role:    string(turn.Role),
			Content: Expand(turn.Text, vars),
		})
	}
	return out
}

// Expand substitutes {name} placeholders in text from vars.
func Expand(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}
