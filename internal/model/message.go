package model

import (
	"encoding/json"
	"time"
)

// MessageRole identifies who produced a Message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// FunctionCall is the accumulated (id, name, arguments) of a tool/function
// call intercepted mid-turn (§4.1). Arguments are stored only once the
// post-stream phase has finished assembling and parsing them.
type FunctionCall struct {
	ToolCallID string          `json:"toolCallId"`
	Name       string          `json:"name"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
}

// Message is one immutable turn in a Conversation's transcript.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	Role           MessageRole     `json:"role"`
	Content        string          `json:"content"`
	AgentName      *string         `json:"agentName,omitempty"`
	FunctionCall   *FunctionCall   `json:"functionCall,omitempty"`
	DocumentIDs    []string        `json:"documentIds,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}
