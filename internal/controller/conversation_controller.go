package controller

import (
	"ai-consultation-be/internal/dto"
	"ai-consultation-be/internal/pkg/serverutils"
	"ai-consultation-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IConversationController interface {
	RegisterRoutes(r fiber.Router)
	Continue(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
}

type conversationController struct {
	conversationService service.IConversationService
}

func NewConversationController(conversationService service.IConversationService) IConversationController {
	return &conversationController{
		conversationService: conversationService,
	}
}

func (c *conversationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/conversation/v1")
	h.Post("continue", c.Continue)
	h.Get(":id", c.Show)
}

func (c *conversationController) Continue(ctx *fiber.Ctx) error {
	var req dto.ContinueConversationRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.conversationService.Continue(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success continue conversation", res))
}

func (c *conversationController) Show(ctx *fiber.Ctx) error {
	res, err := c.conversationService.GetSession(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}
