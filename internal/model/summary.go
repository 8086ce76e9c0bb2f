package model

import "time"

// Summary is the one-to-one generated case document for a Conversation.
type Summary struct {
	ID              string        `json:"id"`
	ConversationID  string        `json:"conversationId"`
	UserID          string        `json:"userId"`
	MarkdownContent string        `json:"markdownContent"`
	ReferenceNumber string        `json:"referenceNumber"`
	MarkdownBlobKey string        `json:"markdownBlobKey"`
	PDFBlobKey      string        `json:"pdfBlobKey"`
	PDFURL          string        `json:"pdfUrl"`
	LegalArea       *LegalArea    `json:"legalArea,omitempty"`
	CaseStrength    *CaseStrength `json:"caseStrength,omitempty"`
	Urgency         *Urgency      `json:"urgency,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}
