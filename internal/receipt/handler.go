package receipt

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/identity"
)

const formField = "receipt"

// Handler exposes receipt upload and download.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Upload stores the multipart file in the "receipt" field.
func (h *Handler) Upload(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	fh, err := c.FormFile(formField)
	if err != nil {
		return apperror.Validation("multipart field %q is required", formField)
	}
	f, err := fh.Open()
	if err != nil {
		return apperror.Validation("open upload: %v", err)
	}
	defer f.Close()

	rec, err := h.service.Upload(c.UserContext(), UploadInput{
		OwnerID:     uid,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Body:        f,
		Size:        fh.Size,
	}, func(pct int) {
		h.logger.Debug("receipt upload progress", slog.String("user_id", uid), slog.Int("percent", pct))
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(rec)
}

// Download streams a receipt to its owner or an admin.
func (h *Handler) Download(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	role, _ := c.Locals("role").(string)
	rec, data, err := h.service.Open(c.UserContext(), c.Params("receiptId"))
	if err != nil {
		return err
	}
	if rec.OwnerID != uid && role != identity.RoleAdmin {
		return ErrNotFound
	}
	c.Set(fiber.HeaderContentType, rec.ContentType)
	return c.Send(data)
}
