package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sumii/sumii-core/internal/apierr"
	"github.com/sumii/sumii-core/internal/artifact"
	"github.com/sumii/sumii-core/internal/model"
)

// GeneratedCaseData is the optional structured payload a generate_summary
// function call carries (§4.1 post-stream phase / §4.5 step 3): when
// present it is used directly instead of invoking the summary agent.
type GeneratedCaseData struct {
	MarkdownSummary    string          `json:"markdown_summary"`
	StructuredCaseData json.RawMessage `json:"structured_case_data"`
}

type caseClassification struct {
	LegalArea    *model.LegalArea    `json:"legal_area,omitempty"`
	CaseStrength *model.CaseStrength `json:"case_strength,omitempty"`
	Urgency      *model.Urgency      `json:"urgency,omitempty"`
}

// SummaryService implements the artifact pipeline (spec §4.5): idempotency
// check, reference-number minting, markdown production, PDF rendering,
// dual blob upload, signed URL, and Summary persistence — grounded on the
// teacher's internal/service/forge.go generate-upload-sign shape, with
// the pure production steps delegated to internal/artifact.
type SummaryService struct {
	Summaries     SummaryRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	Storage       StorageClient
	Agent         RemoteAgent
	Bucket        string
	URLExpiry     time.Duration
	Now           func() time.Time
}

func NewSummaryService(summaries SummaryRepository, conversations ConversationRepository, messages MessageRepository, storage StorageClient, agent RemoteAgent, bucket string, urlExpiry time.Duration) *SummaryService {
	return &SummaryService{
		Summaries: summaries, Conversations: conversations, Messages: messages,
		Storage: storage, Agent: agent, Bucket: bucket, URLExpiry: urlExpiry,
		Now: time.Now,
	}
}

// Generate runs the pipeline for conv (§4.5 steps 1-8). payload carries
// case data already extracted from a generate_summary function call, if
// any; when nil the summary agent is invoked in non-streaming mode.
// Idempotent: an existing Summary for the conversation is returned as-is.
func (s *SummaryService) Generate(ctx context.Context, conv *model.Conversation, payload *GeneratedCaseData) (*model.Summary, error) {
	if existing, err := s.Summaries.GetByConversationID(ctx, conv.ID); err == nil {
		return existing, nil
	} else if apierr.KindOf(err) != apierr.KindNotFound {
		return nil, err
	}

	referenceNumber := artifact.GenerateReferenceNumber(uuid.NewString(), s.Now())
	summaryID := uuid.NewString()

	summary, err := s.build(ctx, conv, summaryID, referenceNumber, payload)
	if err != nil {
		return nil, err
	}

	if err := s.Summaries.Create(ctx, summary); err != nil {
		// A racing duplicate trigger (spec §5 "at-most-once-per-fingerprint")
		// surfaces as a conflict; the caller's intent is satisfied by the row
		// that won the race.
		if apierr.KindOf(err) == apierr.KindConflict {
			if existing, getErr := s.Summaries.GetByConversationID(ctx, conv.ID); getErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	if err := s.Conversations.MarkSummaryGenerated(ctx, conv.ID); err != nil {
		return nil, err
	}
	if conv.Status == model.ConversationActive {
		completed := model.ConversationCompleted
		if err := s.Conversations.UpdatePatch(ctx, conv.ID, nil, &completed); err != nil {
			return nil, err
		}
	}

	return summary, nil
}

// Regenerate deletes the prior blobs and reuses the existing Summary's id
// and reference number (§4.5 "Regeneration").
func (s *SummaryService) Regenerate(ctx context.Context, conv *model.Conversation, payload *GeneratedCaseData) (*model.Summary, error) {
	existing, err := s.Summaries.GetByConversationID(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	if existing.MarkdownBlobKey != "" {
		_ = s.Storage.Delete(ctx, s.Bucket, existing.MarkdownBlobKey)
	}
	if existing.PDFBlobKey != "" {
		_ = s.Storage.Delete(ctx, s.Bucket, existing.PDFBlobKey)
	}

	summary, err := s.build(ctx, conv, existing.ID, existing.ReferenceNumber, payload)
	if err != nil {
		return nil, err
	}
	if err := s.Summaries.Replace(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// build produces markdown + PDF bytes, uploads both, mints the download
// URL, and returns the fully-populated (but not yet persisted) Summary.
func (s *SummaryService) build(ctx context.Context, conv *model.Conversation, summaryID, referenceNumber string, payload *GeneratedCaseData) (*model.Summary, error) {
	markdownContent, classification, err := s.resolveMarkdown(ctx, conv, payload)
	if err != nil {
		return nil, err
	}

	pdfBytes, err := artifact.RenderPDF(markdownContent, referenceNumber)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "artifact pipeline: render pdf", err)
	}

	mdKey := fmt.Sprintf("summaries/%s.md", referenceNumber)
	pdfKey := fmt.Sprintf("summaries/%s.pdf", referenceNumber)

	if err := s.Storage.Upload(ctx, s.Bucket, mdKey, []byte(markdownContent), "text/markdown"); err != nil {
		return nil, apierr.Wrap(apierr.KindRemoteDependency, "artifact pipeline: upload markdown", err)
	}
	if err := s.Storage.Upload(ctx, s.Bucket, pdfKey, pdfBytes, "application/pdf"); err != nil {
		return nil, apierr.Wrap(apierr.KindRemoteDependency, "artifact pipeline: upload pdf", err)
	}

	pdfURL, err := s.Storage.SignedURL(ctx, s.Bucket, pdfKey, s.URLExpiry)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindRemoteDependency, "artifact pipeline: sign pdf url", err)
	}

	legalArea, caseStrength, urgency := conv.LegalArea, conv.CaseStrength, conv.Urgency
	if classification != nil {
		if classification.LegalArea != nil {
			legalArea = classification.LegalArea
		}
		if classification.CaseStrength != nil {
			caseStrength = classification.CaseStrength
		}
		if classification.Urgency != nil {
			urgency = classification.Urgency
		}
	}

	return &model.Summary{
		ID:              summaryID,
		ConversationID:  conv.ID,
		UserID:          conv.UserID,
		MarkdownContent: markdownContent,
		ReferenceNumber: referenceNumber,
		MarkdownBlobKey: mdKey,
		PDFBlobKey:      pdfKey,
		PDFURL:          pdfURL,
		LegalArea:       legalArea,
		CaseStrength:    caseStrength,
		Urgency:         urgency,
	}, nil
}

// resolveMarkdown implements §4.5 step 3's extraction chain: use the
// function-call-supplied markdown directly when present; otherwise invoke
// the summary agent non-streaming and extract markdown from its function
// call args, else from a fenced markdown block inside its text output, else
// use the whole text output.
func (s *SummaryService) resolveMarkdown(ctx context.Context, conv *model.Conversation, payload *GeneratedCaseData) (string, *caseClassification, error) {
	if payload != nil && strings.TrimSpace(payload.MarkdownSummary) != "" {
		return payload.MarkdownSummary, parseClassification(payload.StructuredCaseData), nil
	}

	agentInput, err := s.buildContext(ctx, conv)
	if err != nil {
		return "", nil, err
	}

	result, err := s.Agent.Run(ctx, "", agentInput)
	if err != nil {
		return "", nil, apierr.Wrap(apierr.KindRemoteDependency, "artifact pipeline: summary agent", err)
	}

	if len(result.FunctionArgs) > 0 {
		var args GeneratedCaseData
		if err := json.Unmarshal(result.FunctionArgs, &args); err == nil && strings.TrimSpace(args.MarkdownSummary) != "" {
			return args.MarkdownSummary, parseClassification(args.StructuredCaseData), nil
		}
	}

	if md := extractFencedMarkdown(result.Text); md != "" {
		return md, nil, nil
	}

	if strings.TrimSpace(result.Text) == "" {
		return "", nil, apierr.New(apierr.KindRemoteDependency, "artifact pipeline: summary agent returned no content")
	}
	return result.Text, nil, nil
}

func parseClassification(raw json.RawMessage) *caseClassification {
	if len(raw) == 0 {
		return nil
	}
	var c caseClassification
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	return &c
}

var fencedMarkdownBlock = regexp.MustCompile("(?s)```markdown\\s*\\n(.*?)```")

func extractFencedMarkdown(text string) string {
	m := fencedMarkdownBlock.FindStringSubmatch(text)
	if len(m) != 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// buildContext assembles the summary agent's non-streaming input: title,
// legal area, role-labelled transcript, accumulated 5W facts, and a
// directive to emit markdown via generate_summary (§4.5 step 3).
func (s *SummaryService) buildContext(ctx context.Context, conv *model.Conversation) (string, error) {
	messages, err := s.Messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Case title: %s\n", conv.Title)
	if conv.LegalArea != nil {
		fmt.Fprintf(&b, "Legal area: %s\n", *conv.LegalArea)
	}

	b.WriteString("\n--- TRANSCRIPT ---\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	b.WriteString("\n--- COLLECTED FACTS ---\n")
	writeFact := func(label string, f model.FiveW) {
		if !f.Collected {
			return
		}
		fmt.Fprintf(&b, "%s: %s\n", label, string(f.Fields))
	}
	writeFact("who", conv.Who)
	writeFact("what", conv.What)
	writeFact("when", conv.When)
	writeFact("where", conv.Where)
	writeFact("why", conv.Why)

	b.WriteString("\nProduce the final case summary now by calling generate_summary with a complete German-language markdown summary.\n")
	return b.String(), nil
}
