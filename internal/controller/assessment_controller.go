package controller

import (
	"fmt"
	"strings"

	"ai-consultation-be/internal/dto"
	"ai-consultation-be/internal/pkg/serverutils"
	"ai-consultation-be/internal/service"
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/extraction"
	"ai-consultation-be/pkg/intake"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAssessmentController interface {
	RegisterRoutes(r fiber.Router)
	Questions(ctx *fiber.Ctx) error
	Assess(ctx *fiber.Ctx) error
	ListArchived(ctx *fiber.Ctx) error
	ShowArchived(ctx *fiber.Ctx) error
}

type assessmentController struct {
	assessmentService service.IAssessmentService
	maxUploadBytes    int64
}

func NewAssessmentController(assessmentService service.IAssessmentService, maxUploadBytes int64) IAssessmentController {
	return &assessmentController{
		assessmentService: assessmentService,
		maxUploadBytes:    maxUploadBytes,
	}
}

func (c *assessmentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/assessment/v1")
	h.Post("questions", c.Questions)
	h.Post("assess", c.Assess)
	h.Get("archive", c.ListArchived)
	h.Get("archive/:id", c.ShowArchived)
}

func (c *assessmentController) Questions(ctx *fiber.Ctx) error {
	var req dto.QuestionsRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.assessmentService.GenerateQuestions(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate questions", res))
}

// Assess accepts multipart text_input and/or file_input (image or audio).
func (c *assessmentController) Assess(ctx *fiber.Ctx) error {
	text := strings.TrimSpace(ctx.FormValue("text_input"))

	file, err := formUpload(ctx, "file_input", c.maxUploadBytes)
	if err != nil {
		return err
	}
	if text == "" && file == nil {
		return fmt.Errorf("%w: provide text_input or file_input", consultation.ErrEmptyInput)
	}

	var media *intake.Media
	if file != nil {
		mimeType, _ := extraction.ResolveType(file.MimeType, file.Filename, file.Data)
		media = &intake.Media{Data: file.Data, MimeType: mimeType, Filename: file.Filename}
	}

	res, err := c.assessmentService.Assess(ctx.UserContext(), text, media)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success assess consultation", res))
}

func (c *assessmentController) ListArchived(ctx *fiber.Ctx) error {
	var req dto.ListArchivedRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fmt.Errorf("%w: invalid query", serverutils.ErrBadRequest)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.assessmentService.ListArchived(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list assessments", res))
}

func (c *assessmentController) ShowArchived(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fmt.Errorf("%w: id must be a uuid", serverutils.ErrBadRequest)
	}

	res, err := c.assessmentService.GetArchived(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show assessment", res))
}
