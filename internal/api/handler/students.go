package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// StudentStore manages reference images in the gallery directory
type StudentStore interface {
	List() ([]string, error)
	Add(name string, data []byte) (string, error)
	Delete(name string) error
}

type StudentHandler struct {
	auditor
	store  StudentStore
	logger *slog.Logger
}

func NewStudentHandler(store StudentStore, logger *slog.Logger) *StudentHandler {
	return &StudentHandler{store: store, logger: logger}
}

// WithAudit records enrollments and removals to l
func (h *StudentHandler) WithAudit(l audit.Logger) *StudentHandler {
	h.auditor.log = l
	return h
}

type StudentListResponse struct {
	Students []string `json:"students"`
	Total    int      `json:"total"`
}

type StudentResponse struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// List GET /v1/students - identities with a reference image on disk
func (h *StudentHandler) List(c *fiber.Ctx) error {
	names, err := h.store.List()
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}

	return c.JSON(StudentListResponse{Students: names, Total: len(names)})
}

// Add POST /v1/students - multipart name + image. Used from the next session on.
func (h *StudentHandler) Add(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return domain.ErrValidationFailed.WithError(errors.New("name is required"))
	}

	imageBytes, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	path, err := h.store.Add(name, imageBytes)
	h.record(c, audit.EventStudentEnrolled, name, err, nil)
	if err != nil {
		return err
	}

	h.logger.Info("student added", "name", name, "file", path)

	return c.Status(fiber.StatusCreated).JSON(StudentResponse{
		Name: name,
		File: filepath.Base(path),
	})
}

// Delete DELETE /v1/students/:name
func (h *StudentHandler) Delete(c *fiber.Ctx) error {
	name, err := nameParam(c)
	if err != nil {
		return err
	}

	err = h.store.Delete(name)
	h.record(c, audit.EventStudentRemoved, name, err, nil)
	if err != nil {
		return err
	}

	h.logger.Info("student deleted", "name", name)

	return c.SendStatus(fiber.StatusNoContent)
}

// nameParam returns the unescaped :name route parameter
func nameParam(c *fiber.Ctx) (string, error) {
	// Params aliases the request buffer, which fasthttp reuses
	name, err := url.PathUnescape(strings.Clone(c.Params("name")))
	if err != nil {
		return "", domain.ErrValidationFailed.WithError(err)
	}
	if strings.TrimSpace(name) == "" {
		return "", domain.ErrValidationFailed.WithError(errors.New("name is required"))
	}
	return name, nil
}

func extractAndValidateImage(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	if file.Size == 0 || file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage
	}

	if !validImageTypes[file.Header.Get("Content-Type")] {
		return nil, domain.ErrInvalidImage
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return imageBytes, nil
}
