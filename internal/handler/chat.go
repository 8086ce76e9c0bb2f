package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sumii/sumii-core/internal/apierr"
	"github.com/sumii/sumii-core/internal/model"
	"github.com/sumii/sumii-core/internal/service"
)

// chatUpgrader mirrors AleutianLocal's orchestrator websocket handler:
// permissive origin check (the mobile client is not served from this
// origin) and generous buffers for document-augmented turns.
var chatUpgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1 << 20,
	WriteBufferSize: 1 << 20,
}

// chatInbound is one client-sent websocket frame (§4.1 step 1 / §6).
type chatInbound struct {
	Kind        string   `json:"type"`
	Content     string   `json:"content"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// chatOutbound is one server-sent websocket frame. Only the fields
// relevant to Kind are populated, matching the frame table in spec §4.1
// and the close/frame contract in spec §6.
type chatOutbound struct {
	Kind            string `json:"type"`
	Content         string `json:"content,omitempty"`
	Agent           string `json:"agent,omitempty"`
	FromAgent       string `json:"fromAgent,omitempty"`
	ToAgent         string `json:"toAgent,omitempty"`
	Tool            string `json:"tool,omitempty"`
	ToolCallID      string `json:"tool_call_id,omitempty"`
	Function        string `json:"function,omitempty"`
	Arguments       string `json:"arguments,omitempty"`
	ConversationID  string `json:"conversation_id,omitempty"`
	MessageID       string `json:"id,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	SummaryID       string `json:"summary_id,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	PDFURL          string `json:"pdf_url,omitempty"`
	Error           string `json:"error,omitempty"`
	Code            string `json:"code,omitempty"`
}

// ChatHandler implements the duplex dialogue channel (spec §4.1), grounded
// on original_source/app/api/v1/websocket.py's process_with_agents
// procedure and transported the way AleutianLocal's orchestrator websocket
// handler does (gorilla/websocket, per-connection receive loop).
type ChatHandler struct {
	Conversations service.ConversationRepository
	Messages      service.MessageRepository
	Docs          *service.DocumentService
	Users         service.UserRepository
	Agent         service.RemoteAgent
	Orchestrator  *service.ConversationOrchestrator
	Summaries     *service.SummaryService
	Auth          *service.AuthService
}

func NewChatHandler(
	conversations service.ConversationRepository,
	messages service.MessageRepository,
	docs *service.DocumentService,
	users service.UserRepository,
	agent service.RemoteAgent,
	orchestrator *service.ConversationOrchestrator,
	summaries *service.SummaryService,
	auth *service.AuthService,
) *ChatHandler {
	return &ChatHandler{
		Conversations: conversations, Messages: messages, Docs: docs, Users: users,
		Agent: agent, Orchestrator: orchestrator, Summaries: summaries, Auth: auth,
	}
}

// closeDuringHandshake sends a close control frame carrying one of the
// §6 close codes and closes the socket. Serve uses it for handshake
// failures (the "fails to establish the channel with distinct close codes"
// contract) and for fatal errors inside the message loop.
func closeDuringHandshake(ws *websocket.Conn, code int, reason string) {
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	_ = ws.Close()
}

// Serve handles GET /ws/chat/{conversation_id}?token=<jwt> (spec §6). The
// JWT travels as a query parameter because the transport does not forward
// arbitrary headers to the upgrade request.
func (h *ChatHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	conversationID := chi.URLParam(r, "conversationId")

	ws, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("chat websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	userID, err := h.Auth.VerifyToken(r.Context(), token)
	if err != nil {
		closeDuringHandshake(ws, websocket.ClosePolicyViolation, "invalid or missing token")
		return
	}

	if !validateUUID(conversationID) {
		closeDuringHandshake(ws, websocket.CloseUnsupportedData, "malformed conversation id")
		return
	}

	conv, err := h.Conversations.GetByID(r.Context(), conversationID)
	if err != nil {
		closeDuringHandshake(ws, websocket.ClosePolicyViolation, "conversation not found")
		return
	}
	if conv.UserID != userID {
		closeDuringHandshake(ws, websocket.ClosePolicyViolation, "conversation does not belong to requester")
		return
	}

	for {
		var in chatInbound
		if err := ws.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("chat websocket read error", "conversation_id", conversationID, "error", err)
			}
			return
		}

		if in.Kind != "" && in.Kind != "message" {
			sendJSON(ws, chatOutbound{Kind: "error", Error: "unknown frame kind", Code: "unsupported_frame"})
			continue
		}
		if in.Content == "" {
			sendJSON(ws, chatOutbound{Kind: "error", Error: "Empty message", Code: "empty_message"})
			continue
		}

		conv, err = h.Conversations.GetByID(r.Context(), conversationID)
		if err != nil {
			sendJSON(ws, chatOutbound{Kind: "error", Error: "conversation not found", Code: "not_found"})
			closeDuringHandshake(ws, websocket.CloseInternalServerErr, "conversation vanished")
			return
		}

		if err := h.processTurn(r.Context(), ws, conv, in); err != nil {
			slog.Error("chat turn failed", "conversation_id", conversationID, "error", err)
			sendJSON(ws, chatOutbound{Kind: "error", Error: err.Error(), Code: "agent_processing_error"})
			closeDuringHandshake(ws, websocket.CloseInternalServerErr, "internal error")
			return
		}
	}
}

func sendJSON(ws *websocket.Conn, v interface{}) {
	if err := ws.WriteJSON(v); err != nil {
		slog.Warn("chat websocket write failed", "error", err)
	}
}

// processTurn implements §4.1 steps 2-6: build the augmented body, persist
// the user's literal message, drive the remote-agent stream, relay events,
// persist the assistant reply, and run any post-stream side effects.
func (h *ChatHandler) processTurn(ctx context.Context, ws *websocket.Conn, conv *model.Conversation, in chatInbound) error {
	var docCtx []service.DocumentContext
	var validDocIDs []string
	for _, id := range in.DocumentIDs {
		if !validateUUID(id) {
			continue
		}
		doc, err := h.Docs.Repo.GetByID(ctx, id)
		if err != nil || doc.ConversationID != conv.ID || doc.UserID != conv.UserID {
			continue
		}
		if doc.OCRStatus == model.OCRPending {
			h.Docs.EnsureOCR(ctx, doc)
			doc, err = h.Docs.Repo.GetByID(ctx, id)
			if err != nil {
				continue
			}
		}
		validDocIDs = append(validDocIDs, id)
		docCtx = append(docCtx, service.DocumentContext{Filename: doc.Filename, OCRText: doc.OCRText})
	}

	augmented := service.BuildAugmentedBody(docCtx, in.Content)

	userMsg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        in.Content,
		DocumentIDs:    validDocIDs,
	}
	if err := h.Messages.Create(ctx, userMsg); err != nil {
		return err
	}

	locale := model.LocaleDE
	if user, err := h.Users.GetByID(ctx, conv.UserID); err == nil && user.Locale != "" {
		locale = user.Locale
	}
	body := service.PrependLanguageDirective(augmented, string(locale))

	agentLabel := conv.CurrentAgent
	if agentLabel == "" {
		agentLabel = h.Orchestrator.DetermineInitialAgent()
	}

	var iter service.EventIterator
	var err error
	if conv.RemoteConversationID == nil {
		iter, err = h.Agent.StartStream(ctx, h.Orchestrator.DetermineInitialAgent(), body)
	} else {
		iter, err = h.Agent.AppendStream(ctx, *conv.RemoteConversationID, body)
	}
	if err != nil {
		if err == service.ErrRemoteHandleInvalid {
			return apierr.New(apierr.KindRemoteDependency, "remote conversation handle is no longer valid")
		}
		return apierr.Wrap(apierr.KindRemoteDependency, "remote agent stream failed", err)
	}
	defer iter.Close()

	sendJSON(ws, chatOutbound{Kind: "agent_start", Agent: agentLabel})

	return h.drainStream(ctx, ws, conv, iter, agentLabel, 0)
}

// drainStream relays RemoteEvents to the socket as they arrive (§4.1's
// event table) and performs the post-stream phase (function-call
// interception, assistant-message persistence, summary triggering).
// depth is 0 for the turn's primary stream and 1 for the one-level-deep
// reentrant continuation after a generate_summary function result is
// posted back.
func (h *ChatHandler) drainStream(ctx context.Context, ws *websocket.Conn, conv *model.Conversation, iter service.EventIterator, startAgent string, depth int) error {
	var assistantText string
	var pendingCall *pendingFunctionCall
	currentAgent := startAgent

	for {
		ev, err := iter.Next(ctx)
		if err != nil {
			return apierr.Wrap(apierr.KindRemoteDependency, "remote agent stream error", err)
		}
		if ev == nil {
			break
		}

		if ev.RemoteConversationID != "" && conv.RemoteConversationID == nil {
			if err := h.Conversations.SetRemoteConversationID(ctx, conv.ID, ev.RemoteConversationID); err != nil {
				return err
			}
			conv.RemoteConversationID = &ev.RemoteConversationID
		}

		switch ev.Kind {
		case service.EventMessageOutput:
			assistantText += ev.TextChunk
			sendJSON(ws, chatOutbound{Kind: "message_chunk", Content: ev.TextChunk, Agent: currentAgent})

		case service.EventAgentHandoffDone:
			from := currentAgent
			next := service.NormalizeAgentLabel(ev.NextAgent)
			currentAgent = next
			sendJSON(ws, chatOutbound{Kind: "agent_handoff", FromAgent: from, ToAgent: next})
			sendJSON(ws, chatOutbound{Kind: "agent_start", Agent: next})
			if h.Orchestrator.IsWrapupLabel(next) {
				sendJSON(ws, chatOutbound{Kind: "wrapup_ready", ConversationID: conv.ID})
			}

		case service.EventToolExecutionStart:
			sendJSON(ws, chatOutbound{Kind: "tool_execution", Tool: ev.Tool})

		case service.EventFunctionCall:
			if pendingCall == nil || pendingCall.toolCallID != ev.ToolCallID {
				pendingCall = &pendingFunctionCall{toolCallID: ev.ToolCallID, name: ev.FunctionName}
			}
			pendingCall.argsBuf += ev.ArgsChunk
			sendJSON(ws, chatOutbound{
				Kind: "function_call", ToolCallID: ev.ToolCallID, Function: ev.FunctionName, Arguments: ev.ArgsChunk,
			})

		case service.EventResponseError:
			return apierr.New(apierr.KindRemoteDependency, ev.ErrorMessage)
		}
	}

	if pendingCall != nil {
		if err := h.handleFunctionCall(ctx, ws, conv, pendingCall, currentAgent, depth); err != nil {
			return err
		}
	}

	if err := h.Conversations.UpdateAfterTurn(ctx, conv.ID, currentAgent); err != nil {
		return err
	}

	if assistantText != "" {
		agentName := currentAgent
		assistantMsg := &model.Message{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			Role:           model.RoleAssistant,
			Content:        assistantText,
			AgentName:      &agentName,
		}
		if pendingCall != nil {
			assistantMsg.FunctionCall = &model.FunctionCall{
				ToolCallID: pendingCall.toolCallID, Name: pendingCall.name, Arguments: []byte(pendingCall.argsBuf),
			}
		}
		if err := h.Messages.Create(ctx, assistantMsg); err != nil {
			return err
		}
		sendJSON(ws, chatOutbound{Kind: "message_complete", MessageID: assistantMsg.ID, Content: assistantText, Agent: agentName, CreatedAt: assistantMsg.CreatedAt.UTC().Format(time.RFC3339)})
	}

	return nil
}

type pendingFunctionCall struct {
	toolCallID string
	name       string
	argsBuf    string
}

const functionResultStub = `{"status":"success"}`

// factSlotByToolName maps the remote agent's collect_* tool names to the
// Conversation fact-slot column genai.go's dialogueTools declares them for.
var factSlotByToolName = map[string]string{
	"collect_who":   "who",
	"collect_what":  "what",
	"collect_when":  "when",
	"collect_where": "where",
	"collect_why":   "why",
}

// handleFunctionCall implements §4.1's post-stream phase: generate_summary
// triggers the artifact pipeline (after posting a function-result back and
// draining one level of continuation events); collect_who/what/when/where/why
// persist their fact slot via UpdateFacts; every other call is a pure
// data-collection signal answered with the same success stub and never
// executed locally.
func (h *ChatHandler) handleFunctionCall(ctx context.Context, ws *websocket.Conn, conv *model.Conversation, call *pendingFunctionCall, currentAgent string, depth int) error {
	if call.name != "generate_summary" {
		if slot, ok := factSlotByToolName[call.name]; ok {
			var wrapped struct {
				Fields json.RawMessage `json:"fields"`
			}
			json.Unmarshal([]byte(call.argsBuf), &wrapped)
			blob, err := json.Marshal(model.FiveW{Collected: true, Fields: wrapped.Fields})
			if err != nil {
				slog.Warn("chat: marshaling fact slot failed", "conversation_id", conv.ID, "slot", slot, "error", err)
			} else if err := h.Conversations.UpdateFacts(ctx, conv.ID, slot, true, blob); err != nil {
				slog.Warn("chat: persisting fact slot failed", "conversation_id", conv.ID, "slot", slot, "error", err)
			}
		}
		if conv.RemoteConversationID != nil && depth == 0 {
			if _, err := h.Agent.AppendStream(ctx, *conv.RemoteConversationID, functionResultStub); err == nil {
				// Result acknowledged in-band; the tool is a pure signal, no
				// local execution and no continuation draining needed.
			}
		}
		return nil
	}

	sendJSON(ws, chatOutbound{Kind: "summary_generating", ConversationID: conv.ID})

	if depth == 0 && conv.RemoteConversationID != nil {
		iter, err := h.Agent.AppendStream(ctx, *conv.RemoteConversationID, functionResultStub)
		if err == nil {
			if err := h.drainStream(ctx, ws, conv, iter, currentAgent, 1); err != nil {
				iter.Close()
				slog.Warn("chat: continuation after generate_summary failed", "conversation_id", conv.ID, "error", err)
			} else {
				iter.Close()
			}
		}
	}

	var payload *service.GeneratedCaseData
	if len(call.argsBuf) > 0 {
		var parsed service.GeneratedCaseData
		if err := json.Unmarshal([]byte(call.argsBuf), &parsed); err == nil {
			payload = &parsed
		}
	}

	fresh, err := h.Conversations.GetByID(ctx, conv.ID)
	if err != nil {
		sendJSON(ws, chatOutbound{Kind: "summary_error", Error: err.Error()})
		return nil
	}

	summary, err := h.Summaries.Generate(ctx, fresh, payload)
	if err != nil {
		sendJSON(ws, chatOutbound{Kind: "summary_error", Error: err.Error()})
		return nil
	}

	sendJSON(ws, chatOutbound{
		Kind:            "summary_ready",
		SummaryID:       summary.ID,
		ReferenceNumber: summary.ReferenceNumber,
		PDFURL:          summary.PDFURL,
	})
	return nil
}
