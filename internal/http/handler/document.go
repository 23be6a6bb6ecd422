package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docflow/internal/http/middleware"
	"docflow/internal/model"
	"docflow/internal/service"
	"docflow/internal/storage"
	"docflow/internal/workflow"
)

type renameRequest struct {
	Name string `json:"name"`
}

type changeStatusRequest struct {
	Status model.Status `json:"status"`
}

// documentID returns the :id param, or "" after writing a 400.
func documentID(c *fiber.Ctx) string {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		return ""
	}
	return id
}

func queryInt(c *fiber.Ctx, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ListDocuments godoc
// @Summary List documents visible to the caller
// @Tags documents
// @Produce json
// @Param page query int false "1-based page" default(1)
// @Param size query int false "page size (max 100)" default(10)
// @Param sort query string false "field,dir" default(createdAt,desc)
// @Success 200 {object} model.Page
// @Failure 400 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/document [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, ok := middleware.ActorFrom(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}
		page, ok := queryInt(c, "page", 1)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid page")
		}
		size, ok := queryInt(c, "size", model.DefaultPageSize)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid size")
		}

		res, err := svc.List(c.UserContext(), a, service.ListParams{Page: page, Size: size, Sort: c.Query("sort")})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// CreateDocument godoc
// @Summary Upload a PDF as a new DRAFT document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "document name"
// @Param status formData string false "initial status (DRAFT)"
// @Param file formData file true "PDF file"
// @Success 201 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/document [post]
func CreateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, ok := middleware.ActorFrom(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FILE", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FILE", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := svc.Create(c.UserContext(), a, c.FormValue("name"), model.Status(c.FormValue("status")), f, fh.Filename)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument godoc
// @Summary Get a document
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} model.Document
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/document/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, ok := middleware.ActorFrom(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}
		id := documentID(c)
		if id == "" {
			return nil
		}
		doc, err := svc.Get(c.UserContext(), a, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DocumentContent godoc
// @Summary Stream the PDF content of a document
// @Tags documents
// @Produce application/pdf
// @Param id path string true "document id"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/document/{id}/content [get]
func DocumentContent(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, ok := middleware.ActorFrom(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}
		id := documentID(c)
		if id == "" {
			return nil
		}
		rc, info, err := svc.Content(c.UserContext(), a, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		ct := info.ContentType
		if ct == "" {
			ct = storage.ContentTypePDF
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderContentDisposition, `inline; filename="`+id+`.pdf"`)
		// fasthttp closes rc once the body is written.
		size := -1
		if info.Size > 0 {
			size = int(info.Size)
		}
		return c.SendStream(rc, size)
	}
}

// UpdateDocument godoc
// @Summary Rename a document
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "document id"
// @Param body body renameRequest true "new name"
// @Success 200 {object} model.Document
// @Failure 400 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/document/{id} [patch]
func UpdateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, ok := middleware.ActorFrom(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}
		id := documentID(c)
		if id == "" {
			return nil
		}
		var req renameRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		doc, err := svc.UpdateName(c.UserContext(), a, id, req.Name)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// ReplaceContent godoc
// @Summary Replace the PDF of a DRAFT document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "document id"
// @Param file formData file true "PDF file"
// @Success 200 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/document/{id}/content [put]
func ReplaceContent(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, ok := middleware.ActorFrom(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}
		id := documentID(c)
		if id == "" {
			return nil
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FILE", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FILE", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := svc.ReplaceContent(c.UserContext(), a, id, f, fh.Filename)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument godoc
// @Summary Delete a document
// @Tags documents
// @Param id path string true "document id"
// @Success 204
// @Failure 404 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/document/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, ok := middleware.ActorFrom(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}
		id := documentID(c)
		if id == "" {
			return nil
		}
		if err := svc.Delete(c.UserContext(), a, id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// TransitionDocument handles the fixed-transition endpoints
// (send-to-review, revoke-review).
//
// @Summary Apply a workflow transition
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} model.Document
// @Failure 403 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/document/{id}/send-to-review [post]
// @Router /api/v1/document/{id}/revoke-review [post]
func TransitionDocument(svc service.DocumentService, t workflow.Transition) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, ok := middleware.ActorFrom(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}
		id := documentID(c)
		if id == "" {
			return nil
		}
		doc, err := svc.Transition(c.UserContext(), a, id, t)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// ChangeStatus godoc
// @Summary Move a document to a target status
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "document id"
// @Param body body changeStatusRequest true "target status"
// @Success 200 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/document/{id}/change-status [post]
func ChangeStatus(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, ok := middleware.ActorFrom(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}
		id := documentID(c)
		if id == "" {
			return nil
		}
		var req changeStatusRequest
		if err := c.BodyParser(&req); err != nil || req.Status == "" {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "status is required")
		}
		doc, err := svc.ChangeStatus(c.UserContext(), a, id, req.Status)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}
