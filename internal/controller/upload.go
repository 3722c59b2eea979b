package controller

import (
	"fmt"
	"io"
	"mime/multipart"

	"ai-consultation-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type upload struct {
	Data     []byte
	MimeType string
	Filename string
}

// formUpload reads an optional multipart file. A missing field yields nil.
func formUpload(ctx *fiber.Ctx, field string, maxBytes int64) (*upload, error) {
	fileHeader, err := ctx.FormFile(field)
	if err != nil {
		return nil, nil
	}
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", serverutils.ErrPayloadTooLarge, field, maxBytes)
	}

	data, err := readFile(fileHeader, maxBytes)
	if err != nil {
		return nil, err
	}
	return &upload{
		Data:     data,
		MimeType: fileHeader.Header.Get(fiber.HeaderContentType),
		Filename: fileHeader.Filename,
	}, nil
}

func readFile(fileHeader *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if maxBytes > 0 {
		r = io.LimitReader(file, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: upload exceeds %d bytes", serverutils.ErrPayloadTooLarge, maxBytes)
	}
	return data, nil
}

func parseBody(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		return fmt.Errorf("%w: invalid request body", serverutils.ErrBadRequest)
	}
	return serverutils.ValidateRequest(out)
}
