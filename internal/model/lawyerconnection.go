package model

import "time"

// ConnectionStatus is a LawyerConnection's place in its lifecycle.
type ConnectionStatus string

const (
	ConnectionPending   ConnectionStatus = "pending"
	ConnectionAccepted  ConnectionStatus = "accepted"
	ConnectionRejected  ConnectionStatus = "rejected"
	ConnectionCancelled ConnectionStatus = "cancelled"
)

// LawyerConnection records a handoff of a Conversation to the external
// lawyer directory and its eventual response (§4.3).
type LawyerConnection struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	ConversationID  string           `json:"conversationId"`
	SummaryID       *string          `json:"summaryId,omitempty"`
	LawyerID        int64            `json:"lawyerId"`
	LawyerName      string           `json:"lawyerName"`
	UserMessage     *string          `json:"userMessage,omitempty"`
	RejectionReason *string          `json:"rejectionReason,omitempty"`
	Status          ConnectionStatus `json:"status"`
	StatusChangedAt time.Time        `json:"statusChangedAt"`
	CaseID          *string          `json:"caseId,omitempty"`
	LawyerResponseAt *time.Time      `json:"lawyerResponseAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}
