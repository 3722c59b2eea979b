package controller

import (
	"fmt"

	"ai-consultation-be/internal/dto"
	"ai-consultation-be/internal/pkg/serverutils"
	"ai-consultation-be/internal/service"
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/extraction"

	"github.com/gofiber/fiber/v2"
)

type IReportController interface {
	RegisterRoutes(r fiber.Router)
	Analyze(ctx *fiber.Ctx) error
	GeneratePDF(ctx *fiber.Ctx) error
}

type reportController struct {
	reportService  service.IReportService
	maxUploadBytes int64
}

func NewReportController(reportService service.IReportService, maxUploadBytes int64) IReportController {
	return &reportController{
		reportService:  reportService,
		maxUploadBytes: maxUploadBytes,
	}
}

func (c *reportController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/report/v1")
	h.Post("analyze", c.Analyze)
	h.Post("pdf", c.GeneratePDF)
}

func (c *reportController) Analyze(ctx *fiber.Ctx) error {
	file, err := formUpload(ctx, "report_file", c.maxUploadBytes)
	if err != nil {
		return err
	}
	if file == nil {
		return fmt.Errorf("%w: report_file is required", consultation.ErrEmptyInput)
	}

	res, err := c.reportService.Analyze(ctx.UserContext(), extraction.Input{
		Data:     file.Data,
		MimeType: file.MimeType,
		Filename: file.Filename,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success analyze report", res))
}

func (c *reportController) GeneratePDF(ctx *fiber.Ctx) error {
	var req dto.GeneratePDFRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	pdf, err := c.reportService.GeneratePDF(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "application/pdf")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, pdf.Filename))
	return ctx.Send(pdf.Content)
}
