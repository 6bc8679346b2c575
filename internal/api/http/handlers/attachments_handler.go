package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cityreport/incident-service/internal/api/dto"
	"github.com/cityreport/incident-service/internal/service"
)

// AttachmentsHandler issues upload URLs for incident images.
type AttachmentsHandler struct {
	service *service.AttachmentService
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(attachmentService *service.AttachmentService) *AttachmentsHandler {
	return &AttachmentsHandler{service: attachmentService}
}

// UploadURLs POST /attachments/upload-urls.
func (h *AttachmentsHandler) UploadURLs(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.UploadURLsRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}

	files := make([]service.UploadFile, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, service.UploadFile{Name: f.Name, ContentType: f.Type})
	}
	batch, err := h.service.IssueUploadURLs(c.UserContext(), caller, files)
	if err != nil {
		return err
	}

	resp := dto.UploadURLsResponse{
		UploadURLs: make([]dto.UploadURLResponse, 0, len(batch.Targets)),
		ExpiresIn:  int64(batch.ExpiresIn.Seconds()),
	}
	for _, t := range batch.Targets {
		resp.UploadURLs = append(resp.UploadURLs, dto.UploadURLResponse{
			OriginalFilename: t.OriginalFilename,
			UploadURL:        t.UploadURL,
			FileURL:          t.FileURL,
			S3Key:            t.Key,
		})
	}
	return c.JSON(resp)
}
