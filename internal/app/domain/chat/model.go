// Package chat defines the conversation domain model.
package chat

import (
	"errors"
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	// ErrEmptyContent indicates a message without content.
	ErrEmptyContent = errors.New("message content is required")
	// ErrInvalidRole indicates an unsupported message role.
	ErrInvalidRole = errors.New("message role is invalid")
	// ErrInvalidKey indicates an incomplete transcript key.
	ErrInvalidKey = errors.New("user_id, orgn_id and session_id are required")
)

// Message is one entry in a conversation transcript.
type Message struct {
	ID        int64     `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	OrgnID    string    `json:"orgn_id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Key identifies a transcript: one conversation of one user within one
// organisation.
type Key struct {
	UserID    string
	OrgnID    string
	SessionID string
}

// NewKey builds a trimmed, validated transcript key.
func NewKey(userID, orgnID, sessionID string) (Key, error) {
	key := Key{
		UserID:    strings.TrimSpace(userID),
		OrgnID:    strings.TrimSpace(orgnID),
		SessionID: strings.TrimSpace(sessionID),
	}
	if key.UserID == "" || key.OrgnID == "" || key.SessionID == "" {
		return Key{}, ErrInvalidKey
	}
	return key, nil
}

// ValidRole reports whether role is one of the supported message roles.
func ValidRole(role Role) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// NewMessage builds a message for the given transcript key.
func NewMessage(key Key, role Role, content string) (Message, error) {
	if !ValidRole(role) {
		return Message{}, ErrInvalidRole
	}
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyContent
	}
	return Message{
		UserID:    key.UserID,
		OrgnID:    key.OrgnID,
		SessionID: key.SessionID,
		Role:      role,
		Content:   content,
	}, nil
}

// NewUserMessage builds a user-authored message.
func NewUserMessage(key Key, content string) (Message, error) {
	return NewMessage(key, RoleUser, content)
}

// NewAssistantMessage builds an assistant-authored message.
func NewAssistantMessage(key Key, content string) (Message, error) {
	return NewMessage(key, RoleAssistant, content)
}
