package handler

import (
	"io"
	"strconv"
	"strings"

	"ragchat-api/internal/delivery/http/dto"
	"ragchat-api/internal/usecase/document"

	"github.com/gofiber/fiber/v2"
)

type DocumentHandler struct {
	docUsecase *document.DocumentUsecase
}

func NewDocumentHandler(docUsecase *document.DocumentUsecase) *DocumentHandler {
	return &DocumentHandler{docUsecase: docUsecase}
}

// Upload godoc
// @Summary      Upload a document
// @Description  Upload a PDF file; indexing runs in the background
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "PDF file to upload"
// @Success      201  {object}  dto.UploadDocumentResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/documents/upload [post]
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("ownerID").(string)

	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to get file")
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		return fiber.NewError(fiber.StatusBadRequest, "only PDF files are supported")
	}

	fileData, err := file.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to open file")
	}
	defer fileData.Close()

	buf, err := io.ReadAll(fileData)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read file")
	}

	doc, err := h.docUsecase.UploadDocument(c.Context(), ownerID, file.Filename, buf)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(dto.UploadDocumentResponse{
		ID:       doc.ID,
		Filename: doc.Filename,
		Status:   string(doc.Status),
		Message:  "Document uploaded successfully. Indexing in background.",
	})
}

// List godoc
// @Summary      List documents
// @Tags         Documents
// @Produce      json
// @Param        page   query  int  false  "Page number" default(1)
// @Param        limit  query  int  false  "Items per page" default(10)
// @Success      200  {object}  dto.ListDocumentsResponse
// @Router       /api/documents [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("ownerID").(string)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	docs, total, err := h.docUsecase.ListDocuments(c.Context(), ownerID, page, limit)
	if err != nil {
		return err
	}

	infos := make([]dto.DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		infos = append(infos, dto.DocumentInfo{
			ID:          doc.ID,
			Filename:    doc.Filename,
			FileSize:    doc.FileSize,
			PageCount:   doc.PageCount,
			Status:      string(doc.Status),
			TotalChunks: doc.TotalChunks,
			CreatedAt:   doc.CreatedAt,
		})
	}

	totalPages := (total + limit - 1) / limit

	return c.Status(fiber.StatusOK).JSON(dto.ListDocumentsResponse{
		Data: infos,
		Meta: dto.PaginationMeta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	})
}

// GetByID godoc
// @Summary      Get document by ID
// @Tags         Documents
// @Produce      json
// @Param        id  path  string  true  "Document ID"
// @Success      200  {object}  dto.DocumentInfo
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("ownerID").(string)
	documentID := c.Params("id")

	doc, err := h.docUsecase.GetDocumentByID(c.Context(), documentID, ownerID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(dto.DocumentInfo{
		ID:          doc.ID,
		Filename:    doc.Filename,
		FileSize:    doc.FileSize,
		PageCount:   doc.PageCount,
		Status:      string(doc.Status),
		TotalChunks: doc.TotalChunks,
		CreatedAt:   doc.CreatedAt,
	})
}

// Delete godoc
// @Summary      Delete a document
// @Description  Remove the document and all of its indexed chunks
// @Tags         Documents
// @Produce      json
// @Param        id  path  string  true  "Document ID"
// @Success      200  {object}  dto.MessageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [delete]
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("ownerID").(string)
	documentID := c.Params("id")

	if err := h.docUsecase.DeleteDocument(c.Context(), documentID, ownerID); err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(dto.MessageResponse{Message: "Document deleted successfully"})
}
