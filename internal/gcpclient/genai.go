package gcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/sumii/sumii-core/internal/service"
)

// transferToolName names the function call this adapter treats as a
// handoff rather than a data-collection signal — the Vertex AI equivalent
// of the Mistral Conversations API's server-side handoff_execution that
// original_source/app/api/v1/websocket.py relies on. Vertex has no native
// handoff concept, so the adapter declares this tool itself and interprets
// calls to it as agent-handoff-done events instead of forwarding them as
// function-call events.
const transferToolName = "transfer_to_agent"

// generateSummaryToolName is the function call the orchestrator's
// post-stream phase intercepts (spec §4.1).
const generateSummaryToolName = "generate_summary"

// GenAIAdapter implements service.RemoteAgent over Vertex AI Gemini,
// grounded on the teacher's internal/gcpclient/genai.go
// GenerateContent/GenerateContentStream channel pattern, extended with
// function-calling tools so its event stream carries the full RemoteEvent
// taxonomy spec §4.1 names. A remote-conversation handle is this adapter's
// own concern (Vertex has no conversation resource): StartStream mints a
// uuid and keeps the chat session alive in-process, keyed by that handle,
// so AppendStream can continue it.
type GenAIAdapter struct {
	client *genai.Client
	model  string

	mu       sync.Mutex
	sessions map[string]*genai.ChatSession
}

func NewGenAIAdapter(ctx context.Context, project, location, model string) (*GenAIAdapter, error) {
	client, err := genai.NewClient(ctx, project, location)
	if err != nil {
		return nil, fmt.Errorf("gcpclient.NewGenAIAdapter: %w", err)
	}
	return &GenAIAdapter{
		client:   client,
		model:    model,
		sessions: make(map[string]*genai.ChatSession),
	}, nil
}

func (a *GenAIAdapter) Close() {
	a.client.Close()
}

// newModel builds a GenerativeModel carrying the fixed tool roster and an
// agent-specific system instruction.
func (a *GenAIAdapter) newModel(agentID string) *genai.GenerativeModel {
	m := a.client.GenerativeModel(a.model)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPromptFor(agentID))}}
	m.Tools = dialogueTools()
	return m
}

func systemPromptFor(agentID string) string {
	if agentID == "summary" {
		return "You are the case-summary agent for a German civil-law legal-intake platform. " +
			"Given a conversation transcript, the collected who/what/when/where/why facts and a " +
			"classification directive, call generate_summary exactly once with a complete markdown " +
			"case summary (in German unless instructed otherwise) and a structured_case_data object " +
			"capturing legal_area, case_strength and urgency. Never ask follow-up questions here."
	}
	return fmt.Sprintf(
		"You are the '%s' agent in a multi-agent German legal-intake dialogue. Ask the client "+
			"clarifying questions about their legal matter and record facts with the "+
			"collect_who/collect_what/collect_when/collect_where/collect_why tools as they become "+
			"known. When another agent should take over — a legal-area specialist, or the wrap_up "+
			"agent once all five facts are collected — call transfer_to_agent naming the target "+
			"agent. Respond in the language the client is using. Never fabricate legal advice beyond "+
			"triage.", agentID)
}

func dialogueTools() []*genai.Tool {
	factTool := func(name, label string) *genai.FunctionDeclaration {
		return &genai.FunctionDeclaration{
			Name:        name,
			Description: fmt.Sprintf("Record the %s fact slot once known.", label),
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"fields": {Type: genai.TypeObject, Description: "Free-form structured fact payload."},
				},
			},
		}
	}
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        transferToolName,
				Description: "Hand the conversation off to a different named agent.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"agent": {Type: genai.TypeString, Description: "The target agent's label."},
					},
					Required: []string{"agent"},
				},
			},
			{
				Name:        generateSummaryToolName,
				Description: "Emit the final case summary and trigger artifact generation.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"structured_case_data": {Type: genai.TypeObject, Description: "Classification metadata."},
						"markdown_summary":     {Type: genai.TypeString, Description: "The full markdown case summary."},
					},
					Required: []string{"markdown_summary"},
				},
			},
			factTool("collect_who", "who"),
			factTool("collect_what", "what"),
			factTool("collect_when", "when"),
			factTool("collect_where", "where"),
			factTool("collect_why", "why"),
		},
	}}
}

// StartStream implements service.RemoteAgent.
func (a *GenAIAdapter) StartStream(ctx context.Context, agentID string, input string) (service.EventIterator, error) {
	cs := a.newModel(agentID).StartChat()
	handle := uuid.NewString()

	a.mu.Lock()
	a.sessions[handle] = cs
	a.mu.Unlock()

	iter := cs.SendMessageStream(ctx, genai.Text(input))
	return &streamIterator{iter: iter, handle: handle, emitHandle: true}, nil
}

// AppendStream implements service.RemoteAgent.
func (a *GenAIAdapter) AppendStream(ctx context.Context, handle string, input string) (service.EventIterator, error) {
	a.mu.Lock()
	cs, ok := a.sessions[handle]
	a.mu.Unlock()
	if !ok {
		return nil, service.ErrRemoteHandleInvalid
	}

	iter := cs.SendMessageStream(ctx, genai.Text(input))
	return &streamIterator{iter: iter}, nil
}

// Run implements service.RemoteAgent's non-streaming call, used by the
// artifact pipeline (§4.5 step 3). A handle from an ongoing dialogue is
// reused when present so the summary agent sees that conversation's
// context; otherwise (e.g. an explicit regenerate call with no live
// session) a fresh ephemeral session is used with input expected to carry
// the full built context.
func (a *GenAIAdapter) Run(ctx context.Context, handle string, input string) (service.RunResult, error) {
	var cs *genai.ChatSession
	if handle != "" {
		a.mu.Lock()
		cs = a.sessions[handle]
		a.mu.Unlock()
	}
	if cs == nil {
		cs = a.newModel("summary").StartChat()
	}

	resp, err := cs.SendMessage(ctx, genai.Text(input))
	if err != nil {
		return service.RunResult{}, fmt.Errorf("gcpclient.Run: %w", err)
	}
	return extractRunResult(resp)
}

func extractRunResult(resp *genai.GenerateContentResponse) (service.RunResult, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return service.RunResult{}, fmt.Errorf("gcpclient.Run: empty response from model")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.FunctionCall:
			if p.Name == generateSummaryToolName {
				args, err := json.Marshal(p.Args)
				if err != nil {
					return service.RunResult{}, fmt.Errorf("gcpclient.Run: marshal function args: %w", err)
				}
				return service.RunResult{FunctionArgs: args}, nil
			}
		case genai.Text:
			text += string(p)
		}
	}
	return service.RunResult{Text: text}, nil
}

// streamIterator adapts Vertex AI's response iterator to service.EventIterator,
// translating each candidate's parts into zero or more RemoteEvents (a
// single model turn may contain a text chunk and a function call together).
type streamIterator struct {
	iter       *genai.GenerateContentResponseIterator
	handle     string
	emitHandle bool

	pending []service.RemoteEvent
	done    bool
}

func (s *streamIterator) Next(ctx context.Context) (*service.RemoteEvent, error) {
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			return &ev, nil
		}
		if s.done {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := s.iter.Next()
		if err == iterator.Done {
			s.done = true
			return nil, nil
		}
		if err != nil {
			s.done = true
			return &service.RemoteEvent{Kind: service.EventResponseError, ErrorMessage: err.Error()}, nil
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}

		events := translateParts(resp.Candidates[0].Content.Parts)
		if len(events) == 0 {
			continue
		}
		if s.emitHandle {
			events[0].RemoteConversationID = s.handle
			s.emitHandle = false
		}
		s.pending = events
	}
}

func (s *streamIterator) Close() error { return nil }

func translateParts(parts []genai.Part) []service.RemoteEvent {
	var events []service.RemoteEvent
	for _, part := range parts {
		switch p := part.(type) {
		case genai.Text:
			if string(p) != "" {
				events = append(events, service.RemoteEvent{Kind: service.EventMessageOutput, TextChunk: string(p)})
			}
		case genai.FunctionCall:
			if p.Name == transferToolName {
				next, _ := p.Args["agent"].(string)
				events = append(events, service.RemoteEvent{Kind: service.EventAgentHandoffDone, NextAgent: next})
				continue
			}
			argsJSON, err := json.Marshal(p.Args)
			if err != nil {
				argsJSON = []byte("{}")
			}
			events = append(events,
				service.RemoteEvent{Kind: service.EventToolExecutionStart, Tool: p.Name},
				service.RemoteEvent{
					Kind:         service.EventFunctionCall,
					ToolCallID:   p.Name,
					FunctionName: p.Name,
					ArgsChunk:    string(argsJSON),
				},
			)
		}
	}
	return events
}
