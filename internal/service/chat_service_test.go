package service

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"

	"answerhub-be/internal/constant"
	"answerhub-be/internal/dto"
	"answerhub-be/internal/entity"
	"answerhub-be/internal/repository/contract"
	"answerhub-be/internal/repository/memory"
	"answerhub-be/internal/repository/specification"
	"answerhub-be/internal/repository/unitofwork"
	"answerhub-be/pkg/llm"
	"answerhub-be/pkg/pipeline/domain"
	"answerhub-be/pkg/pipeline/orchestrate"
	"answerhub-be/pkg/pipeline/retrieve"
	"answerhub-be/pkg/pipeline/stream"
	"answerhub-be/pkg/store"

	"github.com/google/uuid"
)

// --- repository fakes ---

type fakeSessionRepo struct {
	session *entity.ChatSession
	created []*entity.ChatSession
	updated []*entity.ChatSession
	deleted []uuid.UUID
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *entity.ChatSession) error {
	f.created = append(f.created, s)
	return nil
}

func (f *fakeSessionRepo) Update(ctx context.Context, s *entity.ChatSession) error {
	f.updated = append(f.updated, s)
	return nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	return f.session, nil
}

func (f *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	if f.session == nil {
		return nil, nil
	}
	return []*entity.ChatSession{f.session}, nil
}

func (f *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	if f.session == nil {
		return 0, nil
	}
	return 1, nil
}

type fakeMessageRepo struct {
	history        []*entity.ChatMessage
	created        []*entity.ChatMessage
	deletedSession []uuid.UUID
}

func (f *fakeMessageRepo) Create(ctx context.Context, m *entity.ChatMessage) error {
	f.created = append(f.created, m)
	return nil
}

func (f *fakeMessageRepo) Update(ctx context.Context, m *entity.ChatMessage) error { return nil }
func (f *fakeMessageRepo) Delete(ctx context.Context, id uuid.UUID) error          { return nil }

func (f *fakeMessageRepo) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	f.deletedSession = append(f.deletedSession, sessionId)
	return nil
}

func (f *fakeMessageRepo) FindSourcesByMessageIds(ctx context.Context, ids []uuid.UUID) ([]*entity.MessageSource, error) {
	return nil, nil
}

func (f *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	return nil, nil
}

func (f *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	return f.history, nil
}

func (f *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(f.history)), nil
}

type fakeRoutingRepo struct {
	events []*entity.RoutingEvent
	counts map[string]int64
}

func (f *fakeRoutingRepo) Create(ctx context.Context, e *entity.RoutingEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeRoutingRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RoutingEvent, error) {
	return f.events, nil
}

func (f *fakeRoutingRepo) CountByDomain(ctx context.Context) (map[string]int64, error) {
	return f.counts, nil
}

type fakeUow struct {
	sessions *fakeSessionRepo
	messages *fakeMessageRepo
	routing  *fakeRoutingRepo

	begins, commits, rollbacks int
}

func (f *fakeUow) Begin(ctx context.Context) error { f.begins++; return nil }
func (f *fakeUow) Commit() error                   { f.commits++; return nil }
func (f *fakeUow) Rollback() error                 { f.rollbacks++; return nil }

func (f *fakeUow) ChatSessionRepository() contract.ChatSessionRepository   { return f.sessions }
func (f *fakeUow) ChatMessageRepository() contract.ChatMessageRepository   { return f.messages }
func (f *fakeUow) RoutingEventRepository() contract.RoutingEventRepository { return f.routing }

type fakeUowFactory struct {
	uow *fakeUow
}

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

type fakePublisher struct {
	payloads [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, payload []byte) error {
	f.payloads = append(f.payloads, payload)
	return nil
}

// --- pipeline collaborator fakes ---

type fakeLLM struct {
	rewriteText  string
	streamChunks []string

	generatePrompts []string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.generatePrompts = append(f.generatePrompts, prompt)
	return f.rewriteText, nil
}

func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, options ...llm.Option) (<-chan llm.StreamResult, error) {
	out := make(chan llm.StreamResult, len(f.streamChunks))
	for _, c := range f.streamChunks {
		out <- llm.StreamResult{Content: c}
	}
	close(out)
	return out, nil
}

type fakeClassifier struct {
	result domain.Domain
}

func (f *fakeClassifier) Classify(ctx context.Context, query string) domain.Domain { return f.result }

type fakeRetriever struct {
	result  retrieve.Result
	limits  []int
	filters [][]string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, d domain.Domain, query string, limit int, filters []string) retrieve.Result {
	f.limits = append(f.limits, limit)
	f.filters = append(f.filters, filters)
	return f.result
}

type fakeOperational struct{}

func (f *fakeOperational) RespondStream(ctx context.Context, query string) (<-chan llm.StreamResult, []store.EvidenceItem, error) {
	out := make(chan llm.StreamResult)
	close(out)
	return out, nil, nil
}

// --- harness ---

type harness struct {
	service   IChatService
	uow       *fakeUow
	publisher *fakePublisher
	retriever *fakeRetriever
	llm       *fakeLLM
	cache     memory.ConversationCache
}

func newHarness(session *entity.ChatSession, history []*entity.ChatMessage, retrieved retrieve.Result, chunks []string) *harness {
	discard := log.New(io.Discard, "", 0)

	uow := &fakeUow{
		sessions: &fakeSessionRepo{session: session},
		messages: &fakeMessageRepo{history: history},
		routing:  &fakeRoutingRepo{},
	}
	provider := &fakeLLM{streamChunks: chunks}
	retriever := &fakeRetriever{result: retrieved}
	pipeline := orchestrate.NewPipeline(provider, &fakeClassifier{result: domain.HelpGuides}, retriever, &fakeOperational{}, discard)
	publisher := &fakePublisher{}
	cache := memory.NewConversationRepository()

	svc := NewChatService(&fakeUowFactory{uow: uow}, pipeline, stream.NewRelay(discard), cache, publisher, discard)

	return &harness{
		service:   svc,
		uow:       uow,
		publisher: publisher,
		retriever: retriever,
		llm:       provider,
		cache:     cache,
	}
}

func testSession(userId uuid.UUID) *entity.ChatSession {
	return &entity.ChatSession{
		Id:     uuid.New(),
		UserId: userId,
		Title:  "Unnamed session",
	}
}

// --- tests ---

func TestCreateSessionDefaultTitle(t *testing.T) {
	h := newHarness(nil, nil, retrieve.Result{}, nil)

	res, err := h.service.CreateSession(context.Background(), uuid.New(), &dto.CreateSessionRequest{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if res.Id == uuid.Nil {
		t.Error("expected a session id")
	}
	if len(h.uow.sessions.created) != 1 {
		t.Fatalf("expected 1 created session, got %d", len(h.uow.sessions.created))
	}
	if got := h.uow.sessions.created[0].Title; got != "Unnamed session" {
		t.Errorf("unexpected default title %q", got)
	}
	if h.uow.commits != 1 {
		t.Errorf("expected 1 commit, got %d", h.uow.commits)
	}
}

func TestCreateSessionTruncatesTitle(t *testing.T) {
	h := newHarness(nil, nil, retrieve.Result{}, nil)

	long := strings.Repeat("x", 80)
	if _, err := h.service.CreateSession(context.Background(), uuid.New(), &dto.CreateSessionRequest{Title: long}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if got := h.uow.sessions.created[0].Title; len([]rune(got)) != constant.ChatSessionTitleMaxLen {
		t.Errorf("title not truncated, got %d runes", len([]rune(got)))
	}
}

func TestGetAllSessionsPaged(t *testing.T) {
	userId := uuid.New()
	session := testSession(userId)
	session.Title = "first conversation"
	h := newHarness(session, nil, retrieve.Result{}, nil)

	res, err := h.service.GetAllSessions(context.Background(), userId, 0, 0)
	if err != nil {
		t.Fatalf("GetAllSessions failed: %v", err)
	}
	if res.Page != 1 || res.Size != 20 {
		t.Errorf("expected defaulted paging, got page=%d size=%d", res.Page, res.Size)
	}
	if res.Total != 1 || len(res.Items) != 1 {
		t.Fatalf("expected one session, got total=%d items=%d", res.Total, len(res.Items))
	}
	if res.Items[0].Title != "first conversation" {
		t.Errorf("unexpected title %q", res.Items[0].Title)
	}
}

func TestSendChatPersistsBothTurns(t *testing.T) {
	userId := uuid.New()
	session := testSession(userId)
	retrieved := retrieve.Result{Items: []store.EvidenceItem{
		{Title: "Guide", URL: "https://example.org/guide", Hierarchy: "Individuals"},
	}}
	h := newHarness(session, nil, retrieved, []string{"grounded ", "answer"})

	res, err := h.service.SendChat(context.Background(), userId, &dto.SendChatRequest{
		ChatSessionId: session.Id,
		Message:       "how do I lodge a return",
	})
	if err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}

	if res.Response != "grounded answer" {
		t.Errorf("unexpected answer %q", res.Response)
	}
	if res.ClassifiedIndex != domain.HelpGuides.Key() {
		t.Errorf("unexpected classified index %q", res.ClassifiedIndex)
	}
	if len(res.RelevantDocuments) != 1 {
		t.Errorf("expected 1 relevant document, got %d", len(res.RelevantDocuments))
	}

	if len(h.uow.messages.created) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(h.uow.messages.created))
	}
	userMsg, assistantMsg := h.uow.messages.created[0], h.uow.messages.created[1]
	if userMsg.Role != constant.ChatMessageRoleUser || userMsg.Chat != "how do I lodge a return" {
		t.Errorf("unexpected user message %+v", userMsg)
	}
	if assistantMsg.Role != constant.ChatMessageRoleAssistant || assistantMsg.Chat != "grounded answer" {
		t.Errorf("unexpected assistant message %+v", assistantMsg)
	}
	if assistantMsg.Domain != domain.HelpGuides.Key() {
		t.Errorf("assistant message should carry the domain, got %q", assistantMsg.Domain)
	}
	if len(assistantMsg.Sources) != 1 || assistantMsg.Sources[0].URL != "https://example.org/guide" {
		t.Errorf("assistant sources not persisted: %+v", assistantMsg.Sources)
	}
}

func TestSendChatTitlesSessionFromFirstMessage(t *testing.T) {
	userId := uuid.New()
	session := testSession(userId)
	h := newHarness(session, nil, retrieve.Result{}, []string{"ok"})

	if _, err := h.service.SendChat(context.Background(), userId, &dto.SendChatRequest{
		ChatSessionId: session.Id,
		Message:       "what plans do you offer",
	}); err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}

	if len(h.uow.sessions.updated) != 1 {
		t.Fatalf("expected the session title update, got %d updates", len(h.uow.sessions.updated))
	}
	if got := h.uow.sessions.updated[0].Title; got != "what plans do you offer" {
		t.Errorf("unexpected session title %q", got)
	}
}

func TestSendChatDefaultsRetrievalLimit(t *testing.T) {
	userId := uuid.New()
	session := testSession(userId)
	h := newHarness(session, nil, retrieve.Result{}, []string{"ok"})

	if _, err := h.service.SendChat(context.Background(), userId, &dto.SendChatRequest{
		ChatSessionId:    session.Id,
		Message:          "q",
		HierarchyFilters: []string{"Business"},
	}); err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}

	if h.retriever.limits[0] != 4 {
		t.Errorf("stored-session default limit should be 4, got %d", h.retriever.limits[0])
	}
	if len(h.retriever.filters[0]) != 1 || h.retriever.filters[0][0] != "Business" {
		t.Errorf("filters not forwarded: %v", h.retriever.filters[0])
	}
}

func TestSendChatPublishesRoutingEvent(t *testing.T) {
	userId := uuid.New()
	session := testSession(userId)
	h := newHarness(session, nil, retrieve.Result{}, []string{"ok"})

	if _, err := h.service.SendChat(context.Background(), userId, &dto.SendChatRequest{
		ChatSessionId: session.Id,
		Message:       "q",
	}); err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}

	if len(h.publisher.payloads) != 1 {
		t.Fatalf("expected 1 routing event, got %d", len(h.publisher.payloads))
	}
	var payload dto.PublishQueryRoutedMessage
	if err := json.Unmarshal(h.publisher.payloads[0], &payload); err != nil {
		t.Fatalf("routing payload not JSON: %v", err)
	}
	if payload.ChatSessionId != session.Id || payload.Domain != domain.HelpGuides.Key() {
		t.Errorf("unexpected routing payload %+v", payload)
	}
}

func TestSendChatUnknownSession(t *testing.T) {
	h := newHarness(nil, nil, retrieve.Result{}, nil)

	_, err := h.service.SendChat(context.Background(), uuid.New(), &dto.SendChatRequest{
		ChatSessionId: uuid.New(),
		Message:       "q",
	})
	if err == nil {
		t.Fatal("expected an error for an unknown session")
	}
	if len(h.uow.messages.created) != 0 {
		t.Error("nothing should be persisted for an unknown session")
	}
}

func TestSendChatUsesHistoryForRewrite(t *testing.T) {
	userId := uuid.New()
	session := testSession(userId)
	session.Title = "existing"
	history := []*entity.ChatMessage{
		{Role: constant.ChatMessageRoleUser, Chat: "what is the Standard plan"},
		{Role: constant.ChatMessageRoleAssistant, Chat: "it is our mid tier"},
	}
	h := newHarness(session, history, retrieve.Result{}, []string{"ok"})
	h.llm.rewriteText = "how much does the Standard plan cost"

	if _, err := h.service.SendChat(context.Background(), userId, &dto.SendChatRequest{
		ChatSessionId: session.Id,
		Message:       "how much is it",
	}); err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}

	if len(h.llm.generatePrompts) != 1 {
		t.Fatalf("expected one rewrite call, got %d", len(h.llm.generatePrompts))
	}
	if !strings.Contains(h.llm.generatePrompts[0], "what is the Standard plan") {
		t.Error("rewrite prompt should contain the stored history")
	}
}

func TestStreamChatFrameOrderAndPersistence(t *testing.T) {
	userId := uuid.New()
	session := testSession(userId)
	retrieved := retrieve.Result{Items: []store.EvidenceItem{{Title: "Doc"}}}
	h := newHarness(session, nil, retrieved, []string{"a", "b"})

	var frames []stream.Frame
	err := h.service.StreamChat(context.Background(), userId, &dto.SendChatRequest{
		ChatSessionId: session.Id,
		Message:       "q",
		Stream:        true,
	}, func(f stream.Frame) error {
		frames = append(frames, f)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}

	types := make([]string, 0, len(frames))
	for _, f := range frames {
		types = append(types, f.Type)
	}
	want := []string{stream.FrameChunk, stream.FrameChunk, stream.FrameReferences, stream.FrameDone}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected frame order %v", types)
	}

	// user turn then assistant turn, assistant persisted by the relay
	if len(h.uow.messages.created) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(h.uow.messages.created))
	}
	if got := h.uow.messages.created[1].Chat; got != "ab" {
		t.Errorf("assistant text should be the drained stream, got %q", got)
	}
}

func TestWidgetChatStoresNothing(t *testing.T) {
	h := newHarness(nil, nil, retrieve.Result{}, []string{"hello"})

	res, err := h.service.WidgetChat(context.Background(), &dto.WidgetChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("WidgetChat failed: %v", err)
	}
	if res.Response != "hello" {
		t.Errorf("unexpected answer %q", res.Response)
	}
	if len(h.uow.messages.created) != 0 {
		t.Error("widget chats must not be persisted")
	}

	// routing analytics still fire, with the nil session id
	if len(h.publisher.payloads) != 1 {
		t.Fatalf("expected 1 routing event, got %d", len(h.publisher.payloads))
	}
	var payload dto.PublishQueryRoutedMessage
	if err := json.Unmarshal(h.publisher.payloads[0], &payload); err != nil {
		t.Fatalf("routing payload not JSON: %v", err)
	}
	if payload.ChatSessionId != uuid.Nil {
		t.Errorf("widget routing events should carry the nil session id, got %s", payload.ChatSessionId)
	}
}

func TestDeleteSessionRemovesMessagesAndCache(t *testing.T) {
	userId := uuid.New()
	session := testSession(userId)
	h := newHarness(session, nil, retrieve.Result{}, nil)
	h.cache.Save(&store.Conversation{ID: session.Id.String(), Turns: []store.Turn{{Role: "user", Content: "q"}}})

	if err := h.service.DeleteSession(context.Background(), userId, &dto.DeleteSessionRequest{
		ChatSessionId: session.Id,
	}); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	if len(h.uow.messages.deletedSession) != 1 || h.uow.messages.deletedSession[0] != session.Id {
		t.Error("session messages should be deleted")
	}
	if len(h.uow.sessions.deleted) != 1 || h.uow.sessions.deleted[0] != session.Id {
		t.Error("session should be deleted")
	}
	if _, found := h.cache.Get(session.Id.String()); found {
		t.Error("cached conversation should be evicted")
	}
}

func TestGetChatHistoryMapsSources(t *testing.T) {
	userId := uuid.New()
	session := testSession(userId)
	history := []*entity.ChatMessage{
		{
			Id:   uuid.New(),
			Role: constant.ChatMessageRoleAssistant,
			Chat: "answer",
			Sources: []entity.MessageSource{
				{Title: "Doc", URL: "https://example.org", Hierarchy: "Individuals"},
			},
		},
	}
	h := newHarness(session, history, retrieve.Result{}, nil)

	resp, err := h.service.GetChatHistory(context.Background(), userId, session.Id)
	if err != nil {
		t.Fatalf("GetChatHistory failed: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected 1 message, got %d", len(resp))
	}
	if len(resp[0].Sources) != 1 || resp[0].Sources[0].URL != "https://example.org" {
		t.Errorf("sources not mapped: %+v", resp[0].Sources)
	}
}

func TestGetRoutingStats(t *testing.T) {
	h := newHarness(nil, nil, retrieve.Result{}, nil)
	h.uow.routing.counts = map[string]int64{"help_guides": 7}

	resp, err := h.service.GetRoutingStats(context.Background())
	if err != nil {
		t.Fatalf("GetRoutingStats failed: %v", err)
	}
	if resp.Counts["help_guides"] != 7 {
		t.Errorf("unexpected counts %+v", resp.Counts)
	}
}
