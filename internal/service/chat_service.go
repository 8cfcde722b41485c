package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"answerhub-be/internal/constant"
	"answerhub-be/internal/dto"
	"answerhub-be/internal/entity"
	"answerhub-be/internal/repository/memory"
	"answerhub-be/internal/repository/specification"
	"answerhub-be/internal/repository/unitofwork"
	"answerhub-be/pkg/pipeline/orchestrate"
	"answerhub-be/pkg/pipeline/stream"
	"answerhub-be/pkg/store"

	"github.com/google/uuid"
)

// IChatService is the conversational surface: session CRUD plus the
// question-answering turns, streaming and one-shot.
type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID, page, size int) (*dto.GetSessionsPageResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error

	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	StreamChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest, emit stream.EmitFunc) error

	WidgetChat(ctx context.Context, request *dto.WidgetChatRequest) (*dto.SendChatResponse, error)
	WidgetStreamChat(ctx context.Context, request *dto.WidgetChatRequest, emit stream.EmitFunc) error

	GetRoutingStats(ctx context.Context) (*dto.RoutingStatsResponse, error)
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	pipeline         *orchestrate.Pipeline
	relay            *stream.Relay
	conversations    memory.ConversationCache
	publisherService IPublisherService
	llmLogger        *log.Logger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	pipeline *orchestrate.Pipeline,
	relay *stream.Relay,
	conversations memory.ConversationCache,
	publisherService IPublisherService,
	llmLogger *log.Logger,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		pipeline:         pipeline,
		relay:            relay,
		conversations:    conversations,
		publisherService: publisherService,
		llmLogger:        llmLogger,
	}
}

// InitPipelineLogger opens the dedicated pipeline log file. The request log
// stays clean; prompt and routing detail goes here.
func InitPipelineLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_pipeline.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM-PIPELINE] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// CreateSession starts a new chat session for the user.
func (cs *chatService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	title := "Unnamed session"
	if request != nil && request.Title != "" {
		title = truncateTitle(request.Title)
	}

	chatSession := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		CreatedAt: time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

func (cs *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID, page, size int) (*dto.GetSessionsPageResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	total, err := uow.ChatSessionRepository().Count(ctx,
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: size, Offset: (page - 1) * size},
	)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		items = append(items, &dto.GetAllSessionsResponse{
			Id:        s.Id,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return &dto.GetSessionsPageResponse{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
	}, nil
}

func (cs *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.verifySession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.WithSources{},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.GetChatHistoryResponse, 0, len(chatMessages))
	for _, msg := range chatMessages {
		sources := make([]dto.SourceDTO, 0, len(msg.Sources))
		for _, s := range msg.Sources {
			sources = append(sources, dto.SourceDTO{
				Title:     s.Title,
				URL:       s.URL,
				Hierarchy: s.Hierarchy,
			})
		}
		resp = append(resp, &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Chat:      msg.Chat,
			Domain:    msg.Domain,
			CreatedAt: msg.CreatedAt,
			Sources:   sources,
		})
	}

	return resp, nil
}

func (cs *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, request.ChatSessionId); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, request.ChatSessionId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	cs.conversations.Delete(request.ChatSessionId.String())
	return nil
}

// SendChat runs one non-streaming turn against a stored session.
func (cs *chatService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId)
	if err != nil {
		return nil, err
	}

	history, err := cs.loadHistory(ctx, uow, request.ChatSessionId)
	if err != nil {
		return nil, err
	}

	if err := cs.saveUserMessage(ctx, uow, chatSession, request.Message); err != nil {
		return nil, err
	}

	answer, outcome := cs.pipeline.RunOnce(ctx, orchestrate.Input{
		RawInput: request.Message,
		History:  history,
		Limit:    sessionRetrieveLimit(request.Limit),
		Filters:  request.HierarchyFilters,
	})

	if err := cs.saveAssistantMessage(ctx, uow, request.ChatSessionId, answer, outcome); err != nil {
		return nil, err
	}

	cs.rememberTurns(request.ChatSessionId.String(), request.Message, answer)
	cs.publishRoutingEvent(ctx, request.ChatSessionId, outcome)

	documents := outcome.References
	if documents == nil {
		documents = []store.EvidenceItem{}
	}
	return &dto.SendChatResponse{
		Response:          answer,
		RelevantDocuments: documents,
		ClassifiedIndex:   outcome.Domain.Key(),
	}, nil
}

// StreamChat runs one streaming turn; frames go out through emit.
func (cs *chatService) StreamChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest, emit stream.EmitFunc) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId)
	if err != nil {
		return err
	}

	history, err := cs.loadHistory(ctx, uow, request.ChatSessionId)
	if err != nil {
		return err
	}

	if err := cs.saveUserMessage(ctx, uow, chatSession, request.Message); err != nil {
		return err
	}

	outcome := cs.pipeline.Run(ctx, orchestrate.Input{
		RawInput: request.Message,
		History:  history,
		Limit:    sessionRetrieveLimit(request.Limit),
		Filters:  request.HierarchyFilters,
	})
	cs.publishRoutingEvent(ctx, request.ChatSessionId, outcome)

	persist := func(answer string, references []store.EvidenceItem) error {
		saved := outcome
		saved.References = references
		if err := cs.saveAssistantMessage(ctx, uow, request.ChatSessionId, answer, saved); err != nil {
			return err
		}
		cs.rememberTurns(request.ChatSessionId.String(), request.Message, answer)
		return nil
	}

	return cs.relay.Pump(ctx, outcome, emit, persist)
}

// WidgetChat answers an unauthenticated embed request. Nothing is stored;
// the caller supplies its own history.
func (cs *chatService) WidgetChat(ctx context.Context, request *dto.WidgetChatRequest) (*dto.SendChatResponse, error) {
	answer, outcome := cs.pipeline.RunOnce(ctx, orchestrate.Input{
		RawInput: request.Message,
		History:  request.History,
		Limit:    request.Limit,
		Filters:  request.HierarchyFilters,
	})

	cs.publishRoutingEvent(ctx, uuid.Nil, outcome)

	documents := outcome.References
	if documents == nil {
		documents = []store.EvidenceItem{}
	}
	return &dto.SendChatResponse{
		Response:          answer,
		RelevantDocuments: documents,
		ClassifiedIndex:   outcome.Domain.Key(),
	}, nil
}

func (cs *chatService) WidgetStreamChat(ctx context.Context, request *dto.WidgetChatRequest, emit stream.EmitFunc) error {
	outcome := cs.pipeline.Run(ctx, orchestrate.Input{
		RawInput: request.Message,
		History:  request.History,
		Limit:    request.Limit,
		Filters:  request.HierarchyFilters,
	})
	cs.publishRoutingEvent(ctx, uuid.Nil, outcome)

	return cs.relay.Pump(ctx, outcome, emit, nil)
}

func (cs *chatService) GetRoutingStats(ctx context.Context) (*dto.RoutingStatsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	counts, err := uow.RoutingEventRepository().CountByDomain(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.RoutingStatsResponse{Counts: counts}, nil
}

// --- helpers ---

func (cs *chatService) verifySession(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId uuid.UUID) (*entity.ChatSession, error) {
	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}
	return sess, nil
}

// loadHistory prefers the conversation cache and falls back to the stored
// messages, warming the cache on the way out.
func (cs *chatService) loadHistory(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID) ([]store.Turn, error) {
	if conversation, found := cs.conversations.Get(sessionId.String()); found {
		return conversation.Turns, nil
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	turns := make([]store.Turn, 0, len(chatMessages))
	for _, msg := range chatMessages {
		turns = append(turns, store.Turn{Role: msg.Role, Content: msg.Chat})
	}

	cs.conversations.Save(&store.Conversation{
		ID:    sessionId.String(),
		Turns: turns,
	})
	return turns, nil
}

func (cs *chatService) saveUserMessage(ctx context.Context, uow unitofwork.UnitOfWork, chatSession *entity.ChatSession, message string) error {
	now := time.Now()

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	userMessage := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          message,
		Role:          constant.ChatMessageRoleUser,
		ChatSessionId: chatSession.Id,
		CreatedAt:     now,
	}
	if err := uow.ChatMessageRepository().Create(ctx, &userMessage); err != nil {
		return err
	}

	// First user message names the session
	if chatSession.Title == "Unnamed session" {
		chatSession.Title = truncateTitle(message)
		updatedAt := now
		chatSession.UpdatedAt = &updatedAt
		if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
			return err
		}
	}

	return uow.Commit()
}

func (cs *chatService) saveAssistantMessage(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID, answer string, outcome orchestrate.Outcome) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	assistantMessage := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          answer,
		Role:          constant.ChatMessageRoleAssistant,
		Domain:        outcome.Domain.Key(),
		ChatSessionId: sessionId,
		CreatedAt:     time.Now(),
	}
	for _, ref := range outcome.References {
		assistantMessage.Sources = append(assistantMessage.Sources, entity.MessageSource{
			Id:            uuid.New(),
			ChatMessageId: assistantMessage.Id,
			Title:         ref.Title,
			URL:           ref.URL,
			Hierarchy:     ref.Hierarchy,
		})
	}

	if err := uow.ChatMessageRepository().Create(ctx, &assistantMessage); err != nil {
		return err
	}
	return uow.Commit()
}

func (cs *chatService) rememberTurns(sessionID, userMessage, answer string) {
	cs.conversations.AppendTurn(sessionID, store.Turn{Role: store.TurnRoleUser, Content: userMessage})
	cs.conversations.AppendTurn(sessionID, store.Turn{Role: store.TurnRoleAssistant, Content: answer})
}

func (cs *chatService) publishRoutingEvent(ctx context.Context, sessionId uuid.UUID, outcome orchestrate.Outcome) {
	payload, err := json.Marshal(dto.PublishQueryRoutedMessage{
		ChatSessionId: sessionId,
		Query:         outcome.StandaloneQuestion,
		Domain:        outcome.Domain.Key(),
	})
	if err != nil {
		cs.llmLogger.Printf("[CHAT] Failed to marshal routing event: %v", err)
		return
	}
	if err := cs.publisherService.Publish(ctx, payload); err != nil {
		cs.llmLogger.Printf("[CHAT] Failed to publish routing event: %v", err)
	}
}

// sessionRetrieveLimit fills in the stored-session default. The widget path
// leaves zero alone and takes the pipeline's own default instead.
func sessionRetrieveLimit(requested int) int {
	if requested <= 0 {
		return 4
	}
	return requested
}

func truncateTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= constant.ChatSessionTitleMaxLen {
		return message
	}
	return string(runes[:constant.ChatSessionTitleMaxLen])
}
