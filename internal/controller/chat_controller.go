package controller

import (
	"bufio"

	"answerhub-be/internal/dto"
	"answerhub-be/internal/pkg/serverutils"
	"answerhub-be/internal/service"
	"answerhub-be/pkg/pipeline/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
	WidgetChat(ctx *fiber.Ctx) error
	RoutingStats(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")

	// Public embed-widget endpoint, no auth
	h.Post("widget", c.WidgetChat)

	h.Use(serverutils.JwtMiddleware)
	h.Post("session", c.CreateSession)
	h.Get("sessions", c.GetAllSessions)
	h.Get("session/:id/history", c.GetChatHistory)
	h.Delete("session/:id", c.DeleteSession)
	h.Post("chat", c.SendChat)
	h.Get("routing-stats", c.RoutingStats)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	res, err := c.chatService.CreateSession(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatController) GetAllSessions(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	page := ctx.QueryInt("page", 1)
	size := ctx.QueryInt("size", 20)

	res, err := c.chatService.GetAllSessions(ctx.Context(), userId, page, size)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get sessions", res))
}

func (c *chatController) GetChatHistory(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.chatService.GetChatHistory(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	if err := c.chatService.DeleteSession(ctx.Context(), userId, &dto.DeleteSessionRequest{ChatSessionId: sessionId}); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete session", fiber.Map{}))
}

// SendChat answers one turn against a stored session. stream=true switches
// the response to server-sent events.
func (c *chatController) SendChat(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx.Set("X-Chat-Id", req.ChatSessionId.String())

	if !req.Stream {
		res, err := c.chatService.SendChat(ctx.Context(), userId, &req)
		if err != nil {
			return err
		}
		return ctx.JSON(res)
	}

	setStreamHeaders(ctx)
	reqCtx := ctx.Context()
	reqCtx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		emit := streamEmitter(w)
		_ = c.chatService.StreamChat(reqCtx, userId, &req, emit)
	}))
	return nil
}

// WidgetChat is the unauthenticated embed endpoint. History travels with the
// request instead of a stored session.
func (c *chatController) WidgetChat(ctx *fiber.Ctx) error {
	var req dto.WidgetChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if !req.Stream {
		res, err := c.chatService.WidgetChat(ctx.Context(), &req)
		if err != nil {
			return err
		}
		return ctx.JSON(res)
	}

	setStreamHeaders(ctx)
	reqCtx := ctx.Context()
	reqCtx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		emit := streamEmitter(w)
		_ = c.chatService.WidgetStreamChat(reqCtx, &req, emit)
	}))
	return nil
}

func (c *chatController) RoutingStats(ctx *fiber.Ctx) error {
	res, err := c.chatService.GetRoutingStats(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get routing stats", res))
}

// --- helpers ---

func userIdFromLocals(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid user ID")
	}
	return userId, nil
}

func setStreamHeaders(ctx *fiber.Ctx) {
	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
}

func streamEmitter(w *bufio.Writer) stream.EmitFunc {
	return func(frame stream.Frame) error {
		b, err := stream.Encode(frame)
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		return w.Flush()
	}
}
