package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/sumii/sumii-core/internal/apierr"
	"github.com/sumii/sumii-core/internal/model"
	"github.com/sumii/sumii-core/internal/service"
)

// --- fakes grounded on the repository interfaces in service/interfaces.go ---

type fakeConvRepo struct {
	byID        map[string]*model.Conversation
	factUpdates []factUpdate
}

type factUpdate struct {
	id, slot string
	fields   []byte
}

func newFakeConvRepo(convs ...*model.Conversation) *fakeConvRepo {
	f := &fakeConvRepo{byID: map[string]*model.Conversation{}}
	for _, c := range convs {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeConvRepo) Create(ctx context.Context, c *model.Conversation) error {
	f.byID[c.ID] = c
	return nil
}
func (f *fakeConvRepo) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, apierr.New(apierr.KindNotFound, "conversation not found")
	}
	cp := *c
	return &cp, nil
}
func (f *fakeConvRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error) {
	return nil, nil
}
func (f *fakeConvRepo) SetRemoteConversationID(ctx context.Context, id, remoteID string) error {
	f.byID[id].RemoteConversationID = &remoteID
	return nil
}
func (f *fakeConvRepo) UpdateAfterTurn(ctx context.Context, id, currentAgent string) error {
	f.byID[id].CurrentAgent = currentAgent
	f.byID[id].UpdatedAt = time.Now()
	return nil
}
func (f *fakeConvRepo) UpdateFacts(ctx context.Context, id, slot string, collected bool, fields []byte) error {
	f.factUpdates = append(f.factUpdates, factUpdate{id: id, slot: slot, fields: fields})
	return nil
}
func (f *fakeConvRepo) MarkSummaryGenerated(ctx context.Context, id string) error {
	f.byID[id].SummaryGenerated = true
	return nil
}
func (f *fakeConvRepo) UpdatePatch(ctx context.Context, id string, title *string, status *model.ConversationStatus) error {
	if status != nil {
		f.byID[id].Status = *status
	}
	if title != nil {
		f.byID[id].Title = *title
	}
	return nil
}
func (f *fakeConvRepo) Delete(ctx context.Context, id string) error {
	delete(f.byID, id)
	return nil
}
func (f *fakeConvRepo) UpdatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Conversation, error) {
	return nil, nil
}

type fakeMsgRepo struct {
	created []model.Message
}

func (f *fakeMsgRepo) Create(ctx context.Context, m *model.Message) error {
	f.created = append(f.created, *m)
	return nil
}
func (f *fakeMsgRepo) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	return f.created, nil
}
func (f *fakeMsgRepo) CreatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Message, error) {
	return nil, nil
}

// fakeEventIterator replays a fixed script of RemoteEvents.
type fakeEventIterator struct {
	events []*service.RemoteEvent
	i      int
}

func (f *fakeEventIterator) Next(ctx context.Context) (*service.RemoteEvent, error) {
	if f.i >= len(f.events) {
		return nil, nil
	}
	ev := f.events[f.i]
	f.i++
	return ev, nil
}
func (f *fakeEventIterator) Close() error { return nil }

// fakeAgent is a scripted remote-agent adapter: each StartStream/AppendStream
// call pops the next queued iterator.
type fakeAgent struct {
	queue      []*fakeEventIterator
	lastInputs []string
}

func (f *fakeAgent) StartStream(ctx context.Context, agentID, input string) (service.EventIterator, error) {
	f.lastInputs = append(f.lastInputs, input)
	return f.pop()
}
func (f *fakeAgent) AppendStream(ctx context.Context, handle, input string) (service.EventIterator, error) {
	f.lastInputs = append(f.lastInputs, input)
	return f.pop()
}
func (f *fakeAgent) Run(ctx context.Context, handle, input string) (service.RunResult, error) {
	return service.RunResult{Text: "# Summary\n\nSome case."}, nil
}
func (f *fakeAgent) pop() (service.EventIterator, error) {
	if len(f.queue) == 0 {
		return &fakeEventIterator{}, nil
	}
	it := f.queue[0]
	f.queue = f.queue[1:]
	return it, nil
}

func testJWT(t *testing.T, secret, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: subject}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newChatTestServer(t *testing.T, conv *model.Conversation, agent *fakeAgent, summarySvc *service.SummaryService) (*httptest.Server, string, *fakeConvRepo, *fakeMsgRepo) {
	t.Helper()
	const secret = "test-signing-secret"

	convRepo := newFakeConvRepo(conv)
	msgRepo := &fakeMsgRepo{}
	docRepo := newFakeDocRepo()
	docSvc := service.NewDocumentService(docRepo, convRepo, fakeStorage{}, fakeOCR{}, "test-bucket", model.MaxFileSizeBytes, 7*24*time.Hour)
	userRepo := &fakeUserRepo{byID: map[string]*model.User{conv.UserID: {ID: conv.UserID, Locale: model.LocaleDE}}}
	orchestrator := service.NewConversationOrchestrator("router", "wrap_up")
	auth := service.NewAuthService(secret)

	h := NewChatHandler(convRepo, msgRepo, docSvc, userRepo, agent, orchestrator, summarySvc, auth)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/ws/chat/")
		r = withChiParam(r, "conversationId", id)
		h.Serve(w, r)
	})
	srv := httptest.NewServer(mux)

	token := testJWT(t, secret, conv.UserID)
	return srv, token, convRepo, msgRepo
}

func dialChat(t *testing.T, srv *httptest.Server, convID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/" + convID + "?token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) chatOutbound {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var out chatOutbound
	if err := ws.ReadJSON(&out); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return out
}

func newTestConversation(id, userID string) *model.Conversation {
	return &model.Conversation{
		ID:     id,
		UserID: userID,
		Title:  "Heizung kaputt",
		Status: model.ConversationActive,
	}
}

// Scenario 1 (spec §8): empty content is rejected with a non-fatal error
// frame and the channel stays open; no Message rows are written.
func TestChatHandler_EmptyMessageRejected(t *testing.T) {
	conv := newTestConversation("11111111-1111-1111-1111-111111111111", "user-1")
	agent := &fakeAgent{}
	srv, token, _, msgRepo := newChatTestServer(t, conv, agent, nil)
	defer srv.Close()

	ws := dialChat(t, srv, conv.ID, token)
	defer ws.Close()

	if err := ws.WriteJSON(map[string]string{"type": "message", "content": ""}); err != nil {
		t.Fatal(err)
	}
	out := readFrame(t, ws)
	if out.Kind != "error" || out.Error != "Empty message" || out.Code != "empty_message" {
		t.Fatalf("unexpected frame: %+v", out)
	}
	if len(msgRepo.created) != 0 {
		t.Fatalf("expected no persisted messages, got %d", len(msgRepo.created))
	}

	// channel must remain open: a further valid frame still gets processed.
	if err := ws.WriteJSON(map[string]string{"type": "message", "content": "hallo"}); err != nil {
		t.Fatal(err)
	}
	_ = readFrame(t, ws) // agent_start
}

// §4.6's alternate OCR trigger: a document still ocr_status=pending at the
// moment it's referenced in a chat turn is extracted on the spot rather than
// left to the async upload-time path, and its text reaches the agent body.
type fakeTextOCR struct{ text string }

func (f fakeTextOCR) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return f.text, nil
}

func TestChatHandler_ReferencedPendingDocumentOCRsOnFirstTurn(t *testing.T) {
	conv := newTestConversation("77777777-7777-7777-7777-777777777777", "user-1")
	docID := "88888888-8888-8888-8888-888888888888"

	agent := &fakeAgent{queue: []*fakeEventIterator{{events: []*service.RemoteEvent{}}}}

	const secret = "test-signing-secret"
	convRepo := newFakeConvRepo(conv)
	msgRepo := &fakeMsgRepo{}
	docRepo := newFakeDocRepo()
	docRepo.byID[docID] = &model.Document{
		ID: docID, ConversationID: conv.ID, UserID: conv.UserID,
		Filename: "mietvertrag.pdf", BlobKey: "users/u/conv/c/doc/d/mietvertrag.pdf",
		OCRStatus: model.OCRPending,
	}
	docSvc := service.NewDocumentService(docRepo, convRepo, fakeStorage{}, fakeTextOCR{text: "Kündigungsfrist: 3 Monate"}, "test-bucket", model.MaxFileSizeBytes, 7*24*time.Hour)
	userRepo := &fakeUserRepo{byID: map[string]*model.User{conv.UserID: {ID: conv.UserID, Locale: model.LocaleDE}}}
	orchestrator := service.NewConversationOrchestrator("router", "wrap_up")
	auth := service.NewAuthService(secret)

	h := NewChatHandler(convRepo, msgRepo, docSvc, userRepo, agent, orchestrator, nil, auth)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/ws/chat/")
		r = withChiParam(r, "conversationId", id)
		h.Serve(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	token := testJWT(t, secret, conv.UserID)
	ws := dialChat(t, srv, conv.ID, token)
	defer ws.Close()

	if err := ws.WriteJSON(map[string]interface{}{"type": "message", "content": "Was steht im Vertrag?", "document_ids": []string{docID}}); err != nil {
		t.Fatal(err)
	}
	readFrame(t, ws) // agent_start

	if len(agent.lastInputs) != 1 {
		t.Fatalf("expected one agent call, got %d", len(agent.lastInputs))
	}
	if !strings.Contains(agent.lastInputs[0], "Kündigungsfrist: 3 Monate") {
		t.Fatalf("expected extracted OCR text in augmented body, got %q", agent.lastInputs[0])
	}
	if docRepo.byID[docID].OCRStatus != model.OCRCompleted {
		t.Fatalf("expected OCR status completed after first reference, got %v", docRepo.byID[docID].OCRStatus)
	}
}

// Scenario 2 (spec §8): a simple turn emits agent_start, message chunks and
// a message_complete whose content is the concatenation of those chunks.
func TestChatHandler_SimpleTurn(t *testing.T) {
	conv := newTestConversation("22222222-2222-2222-2222-222222222222", "user-1")
	agent := &fakeAgent{queue: []*fakeEventIterator{{
		events: []*service.RemoteEvent{
			{Kind: service.EventMessageOutput, TextChunk: "Das ", RemoteConversationID: "remote-1"},
			{Kind: service.EventMessageOutput, TextChunk: "tut mir leid."},
		},
	}}}
	srv, token, convRepo, msgRepo := newChatTestServer(t, conv, agent, nil)
	defer srv.Close()

	ws := dialChat(t, srv, conv.ID, token)
	defer ws.Close()

	if err := ws.WriteJSON(map[string]string{"type": "message", "content": "Meine Heizung ist kaputt."}); err != nil {
		t.Fatal(err)
	}

	start := readFrame(t, ws)
	if start.Kind != "agent_start" || start.Agent != "router" {
		t.Fatalf("expected agent_start{router}, got %+v", start)
	}
	chunk1 := readFrame(t, ws)
	chunk2 := readFrame(t, ws)
	if chunk1.Kind != "message_chunk" || chunk2.Kind != "message_chunk" {
		t.Fatalf("expected message_chunk frames, got %+v %+v", chunk1, chunk2)
	}
	complete := readFrame(t, ws)
	if complete.Kind != "message_complete" {
		t.Fatalf("expected message_complete, got %+v", complete)
	}
	want := chunk1.Content + chunk2.Content
	if complete.Content != want {
		t.Fatalf("message_complete content = %q, want %q", complete.Content, want)
	}

	if len(msgRepo.created) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgRepo.created))
	}
	if msgRepo.created[0].Role != model.RoleUser || msgRepo.created[0].Content != "Meine Heizung ist kaputt." {
		t.Fatalf("unexpected user message: %+v", msgRepo.created[0])
	}
	if msgRepo.created[1].Role != model.RoleAssistant || msgRepo.created[1].Content != want {
		t.Fatalf("unexpected assistant message: %+v", msgRepo.created[1])
	}
	if msgRepo.created[1].AgentName == nil || *msgRepo.created[1].AgentName != "router" {
		t.Fatalf("expected non-empty agent_name, got %+v", msgRepo.created[1].AgentName)
	}
	if convRepo.byID[conv.ID].RemoteConversationID == nil || *convRepo.byID[conv.ID].RemoteConversationID != "remote-1" {
		t.Fatalf("expected remote conversation id to be persisted")
	}
}

// §4.1 step 4: the language directive follows the user's stored locale,
// not a hardcoded default.
func TestChatHandler_LanguageDirectiveFollowsUserLocale(t *testing.T) {
	conv := newTestConversation("66666666-6666-6666-6666-666666666666", "user-en")
	agent := &fakeAgent{queue: []*fakeEventIterator{{events: []*service.RemoteEvent{}}}}

	const secret = "test-signing-secret"
	convRepo := newFakeConvRepo(conv)
	msgRepo := &fakeMsgRepo{}
	docRepo := newFakeDocRepo()
	docSvc := service.NewDocumentService(docRepo, convRepo, fakeStorage{}, fakeOCR{}, "test-bucket", model.MaxFileSizeBytes, 7*24*time.Hour)
	userRepo := &fakeUserRepo{byID: map[string]*model.User{conv.UserID: {ID: conv.UserID, Locale: model.LocaleEN}}}
	orchestrator := service.NewConversationOrchestrator("router", "wrap_up")
	auth := service.NewAuthService(secret)

	h := NewChatHandler(convRepo, msgRepo, docSvc, userRepo, agent, orchestrator, nil, auth)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/ws/chat/")
		r = withChiParam(r, "conversationId", id)
		h.Serve(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	token := testJWT(t, secret, conv.UserID)
	ws := dialChat(t, srv, conv.ID, token)
	defer ws.Close()

	if err := ws.WriteJSON(map[string]string{"type": "message", "content": "My landlord won't fix the heater."}); err != nil {
		t.Fatal(err)
	}
	readFrame(t, ws) // agent_start

	if len(agent.lastInputs) != 1 {
		t.Fatalf("expected one agent call, got %d", len(agent.lastInputs))
	}
	if !strings.HasPrefix(agent.lastInputs[0], "Respond in English.") {
		t.Fatalf("expected English directive for en-locale user, got %q", agent.lastInputs[0])
	}
}

// Scenario 3 (spec §8): a handoff is immediately followed by an agent_start
// for the target agent, and a wrap-up-labelled target additionally emits
// wrapup_ready.
func TestChatHandler_HandoffAndWrapupReady(t *testing.T) {
	conv := newTestConversation("33333333-3333-3333-3333-333333333333", "user-1")
	agent := &fakeAgent{queue: []*fakeEventIterator{{
		events: []*service.RemoteEvent{
			{Kind: service.EventAgentHandoffDone, NextAgent: "Legal Wrap Up"},
			{Kind: service.EventMessageOutput, TextChunk: "Alles klar."},
		},
	}}}
	srv, token, _, _ := newChatTestServer(t, conv, agent, nil)
	defer srv.Close()

	ws := dialChat(t, srv, conv.ID, token)
	defer ws.Close()

	if err := ws.WriteJSON(map[string]string{"type": "message", "content": "Ok."}); err != nil {
		t.Fatal(err)
	}

	_ = readFrame(t, ws) // agent_start{router}
	handoff := readFrame(t, ws)
	if handoff.Kind != "agent_handoff" || handoff.FromAgent != "router" || handoff.ToAgent != "wrap_up" {
		t.Fatalf("unexpected handoff frame: %+v", handoff)
	}
	start2 := readFrame(t, ws)
	if start2.Kind != "agent_start" || start2.Agent != "wrap_up" {
		t.Fatalf("expected agent_start{wrap_up} immediately after handoff, got %+v", start2)
	}
	wrapup := readFrame(t, ws)
	if wrapup.Kind != "wrapup_ready" || wrapup.ConversationID != conv.ID {
		t.Fatalf("expected wrapup_ready, got %+v", wrapup)
	}
}

// A collect_who call persists the who fact slot via UpdateFacts rather than
// triggering the summary pipeline.
func TestChatHandler_FactCollectionPersisted(t *testing.T) {
	conv := newTestConversation("55555555-5555-5555-5555-555555555555", "user-1")
	remote := "remote-5"
	conv.RemoteConversationID = &remote

	args := `{"fields":{"name":"Herr Schmidt"}}`
	agent := &fakeAgent{queue: []*fakeEventIterator{
		{events: []*service.RemoteEvent{
			{Kind: service.EventFunctionCall, ToolCallID: "call-1", FunctionName: "collect_who", ArgsChunk: args},
		}},
		{events: []*service.RemoteEvent{}}, // function-result post-back, no continuation draining
	}}
	srv, token, convRepo, _ := newChatTestServer(t, conv, agent, nil)
	defer srv.Close()

	ws := dialChat(t, srv, conv.ID, token)
	defer ws.Close()

	if err := ws.WriteJSON(map[string]string{"type": "message", "content": "Ich bin Herr Schmidt."}); err != nil {
		t.Fatal(err)
	}

	_ = readFrame(t, ws) // agent_start
	fc := readFrame(t, ws)
	if fc.Kind != "function_call" || fc.Function != "collect_who" {
		t.Fatalf("expected function_call{collect_who}, got %+v", fc)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(convRepo.factUpdates) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(convRepo.factUpdates) != 1 {
		t.Fatalf("expected one UpdateFacts call, got %d", len(convRepo.factUpdates))
	}
	got := convRepo.factUpdates[0]
	if got.id != conv.ID || got.slot != "who" {
		t.Fatalf("unexpected fact update: %+v", got)
	}
	var blob model.FiveW
	if err := json.Unmarshal(got.fields, &blob); err != nil {
		t.Fatalf("unmarshal persisted fact slot: %v", err)
	}
	if !blob.Collected {
		t.Fatalf("expected collected=true")
	}
	var inner struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(blob.Fields, &inner); err != nil {
		t.Fatalf("unmarshal inner fields: %v", err)
	}
	if inner.Name != "Herr Schmidt" {
		t.Fatalf("expected name Herr Schmidt, got %q", inner.Name)
	}
}

// Scenario 4 (spec §8): a generate_summary function call produces
// function_call, summary_generating, then summary_ready frames, and
// persists exactly one Summary whose reference number matches the
// required shape.
func TestChatHandler_SummaryInterception(t *testing.T) {
	conv := newTestConversation("44444444-4444-4444-4444-444444444444", "user-1")
	remote := "remote-9"
	conv.RemoteConversationID = &remote

	args := `{"structured_case_data":{},"markdown_summary":"# Fall\n\nZusammenfassung."}`
	agent := &fakeAgent{queue: []*fakeEventIterator{
		{events: []*service.RemoteEvent{
			{Kind: service.EventFunctionCall, ToolCallID: "call-1", FunctionName: "generate_summary", ArgsChunk: args},
		}},
		{events: []*service.RemoteEvent{}}, // continuation after function-result post-back
	}}

	summaryRepo := newFakeSummaryRepo()
	convRepo := newFakeConvRepo(conv)
	msgRepo := &fakeMsgRepo{}
	summarySvc := service.NewSummaryService(summaryRepo, convRepo, msgRepo, fakeStorage{}, agent, "test-bucket", 7*24*time.Hour)

	orchestrator := service.NewConversationOrchestrator("router", "wrap_up")
	auth := service.NewAuthService("test-signing-secret")
	docRepo := newFakeDocRepo()
	docSvc := service.NewDocumentService(docRepo, convRepo, fakeStorage{}, fakeOCR{}, "test-bucket", model.MaxFileSizeBytes, 7*24*time.Hour)
	userRepo := &fakeUserRepo{byID: map[string]*model.User{conv.UserID: {ID: conv.UserID, Locale: model.LocaleDE}}}
	h := NewChatHandler(convRepo, msgRepo, docSvc, userRepo, agent, orchestrator, summarySvc, auth)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/ws/chat/")
		r = withChiParam(r, "conversationId", id)
		h.Serve(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	token := testJWT(t, "test-signing-secret", conv.UserID)
	ws := dialChat(t, srv, conv.ID, token)
	defer ws.Close()

	if err := ws.WriteJSON(map[string]string{"type": "message", "content": "Bitte Zusammenfassung."}); err != nil {
		t.Fatal(err)
	}

	_ = readFrame(t, ws) // agent_start
	fc := readFrame(t, ws)
	if fc.Kind != "function_call" || fc.Function != "generate_summary" {
		t.Fatalf("expected function_call, got %+v", fc)
	}
	generating := readFrame(t, ws)
	if generating.Kind != "summary_generating" {
		t.Fatalf("expected summary_generating, got %+v", generating)
	}
	ready := readFrame(t, ws)
	if ready.Kind != "summary_ready" {
		t.Fatalf("expected summary_ready, got %+v", ready)
	}
	if !referenceNumberRe.MatchString(ready.ReferenceNumber) {
		t.Fatalf("reference number %q does not match required shape", ready.ReferenceNumber)
	}
	if !strings.HasPrefix(ready.PDFURL, "http") {
		t.Fatalf("expected pdf_url, got %q", ready.PDFURL)
	}

	if summaryRepo.byConv[conv.ID] == nil {
		t.Fatalf("expected a persisted summary for the conversation")
	}
	if !convRepo.byID[conv.ID].SummaryGenerated {
		t.Fatalf("expected conversation.SummaryGenerated = true")
	}
	if convRepo.byID[conv.ID].Status != model.ConversationCompleted {
		t.Fatalf("expected conversation to transition to completed, got %q", convRepo.byID[conv.ID].Status)
	}
}

var referenceNumberRe = regexp.MustCompile(`^SUM-\d{8}-[A-Z0-9]{5}$`)

// fakeSummaryRepo is a minimal in-memory SummaryRepository.
type fakeSummaryRepo struct {
	byConv map[string]*model.Summary
}

func newFakeSummaryRepo() *fakeSummaryRepo {
	return &fakeSummaryRepo{byConv: map[string]*model.Summary{}}
}
func (f *fakeSummaryRepo) Create(ctx context.Context, s *model.Summary) error {
	if _, ok := f.byConv[s.ConversationID]; ok {
		return apierr.New(apierr.KindConflict, "summary already exists")
	}
	cp := *s
	f.byConv[s.ConversationID] = &cp
	return nil
}
func (f *fakeSummaryRepo) GetByID(ctx context.Context, id string) (*model.Summary, error) {
	for _, s := range f.byConv {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, apierr.New(apierr.KindNotFound, "summary not found")
}
func (f *fakeSummaryRepo) GetByConversationID(ctx context.Context, conversationID string) (*model.Summary, error) {
	s, ok := f.byConv[conversationID]
	if !ok {
		return nil, apierr.New(apierr.KindNotFound, "summary not found")
	}
	return s, nil
}
func (f *fakeSummaryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Summary, error) {
	return nil, nil
}
func (f *fakeSummaryRepo) Replace(ctx context.Context, s *model.Summary) error {
	cp := *s
	f.byConv[s.ConversationID] = &cp
	return nil
}
func (f *fakeSummaryRepo) UpdateMetadata(ctx context.Context, id string, legalArea *model.LegalArea, caseStrength *model.CaseStrength, urgency *model.Urgency) error {
	for convID, s := range f.byConv {
		if s.ID != id {
			continue
		}
		if legalArea != nil {
			s.LegalArea = legalArea
		}
		if caseStrength != nil {
			s.CaseStrength = caseStrength
		}
		if urgency != nil {
			s.Urgency = urgency
		}
		f.byConv[convID] = s
		return nil
	}
	return apierr.New(apierr.KindNotFound, "summary not found")
}
func (f *fakeSummaryRepo) Delete(ctx context.Context, id string) error {
	for convID, s := range f.byConv {
		if s.ID == id {
			delete(f.byConv, convID)
			return nil
		}
	}
	return apierr.New(apierr.KindNotFound, "summary not found")
}
func (f *fakeSummaryRepo) CreatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Summary, error) {
	return nil, nil
}

// Auth/ownership handshake failures close with the spec §6 close codes.
func TestChatHandler_HandshakeCloseCodes(t *testing.T) {
	conv := newTestConversation("55555555-5555-5555-5555-555555555555", "user-1")
	agent := &fakeAgent{}
	srv, token, _, _ := newChatTestServer(t, conv, agent, nil)
	defer srv.Close()

	t.Run("bad token", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/" + conv.ID + "?token=garbage"
		ws, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer ws.Close()
		_, _, err = ws.ReadMessage()
		if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
			t.Fatalf("expected policy-violation close, got %v", err)
		}
	})

	t.Run("malformed conversation id", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/not-a-uuid?token=" + token
		ws, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer ws.Close()
		_, _, err = ws.ReadMessage()
		if !websocket.IsCloseError(err, websocket.CloseUnsupportedData) {
			t.Fatalf("expected unsupported-data close, got %v", err)
		}
	})

	t.Run("foreign conversation", func(t *testing.T) {
		otherToken := testJWT(t, "test-signing-secret", "someone-else")
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/" + conv.ID + "?token=" + otherToken
		ws, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer ws.Close()
		_, _, err = ws.ReadMessage()
		if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
			t.Fatalf("expected policy-violation close, got %v", err)
		}
	})
}
