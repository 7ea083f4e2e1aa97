package llm

import "github.com/fklc-labs/chatbot-service/internal/app/domain/chat"

// Message is one chat-completion message as sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FromHistory converts stored transcript messages to provider messages.
func FromHistory(msgs []chat.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, Message{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}
