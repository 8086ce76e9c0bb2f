package model

import (
	"encoding/json"
	"time"
)

// ConversationStatus is the conversation's place in its state machine (§4.7).
type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationCompleted ConversationStatus = "completed"
	ConversationArchived  ConversationStatus = "archived"
)

// LegalArea classifies the conversation's subject matter.
type LegalArea string

const (
	LegalAreaMietrecht    LegalArea = "Mietrecht"
	LegalAreaArbeitsrecht LegalArea = "Arbeitsrecht"
	LegalAreaVertragsrecht LegalArea = "Vertragsrecht"
	LegalAreaOther        LegalArea = "Other"
)

// CaseStrength is the orchestrator's inferred assessment of the case.
type CaseStrength string

const (
	CaseStrengthStrong CaseStrength = "strong"
	CaseStrengthMedium CaseStrength = "medium"
	CaseStrengthWeak   CaseStrength = "weak"
)

// Urgency is the inferred time-sensitivity of the case.
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyWeeks     Urgency = "weeks"
	UrgencyMonths    Urgency = "months"
)

// FiveW holds one of the five structured-fact slots (who/what/when/where/why).
// Each slot is a small JSON object with a collected flag plus domain fields
// the remote agent populates; the core stores it opaquely.
type FiveW struct {
	Collected bool            `json:"collected"`
	Fields    json.RawMessage `json:"fields,omitempty"`
}

// Conversation is one dialogue thread between a User and the remote agent.
type Conversation struct {
	ID                   string             `json:"id"`
	UserID               string             `json:"userId"`
	Title                string             `json:"title"`
	Status               ConversationStatus `json:"status"`
	LegalArea            *LegalArea         `json:"legalArea,omitempty"`
	CaseStrength         *CaseStrength      `json:"caseStrength,omitempty"`
	Urgency              *Urgency           `json:"urgency,omitempty"`
	CurrentAgent         string             `json:"currentAgent"`
	RemoteConversationID *string            `json:"remoteConversationId,omitempty"`
	Who                  FiveW              `json:"who"`
	What                 FiveW              `json:"what"`
	When                 FiveW              `json:"when"`
	Where                FiveW              `json:"where"`
	Why                  FiveW              `json:"why"`
	AnalysisDone         bool               `json:"analysisDone"`
	SummaryGenerated     bool               `json:"summaryGenerated"`
	WrapupConfirmed      bool               `json:"wrapupConfirmed"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// FactsComplete reports whether all five structured-fact slots are collected,
// mirroring original_source's orchestrator._check_facts_completeness.
func (c *Conversation) FactsComplete() bool {
	return c.Who.Collected && c.What.Collected && c.When.Collected && c.Where.Collected && c.Why.Collected
}
