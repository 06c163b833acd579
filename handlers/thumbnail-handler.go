package handler

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/snap-thumbs/middleware"
	"github.com/krishkalaria12/snap-thumbs/models"
	"github.com/krishkalaria12/snap-thumbs/oops"
	"github.com/krishkalaria12/snap-thumbs/thumbnails"
)

type ThumbnailResponse struct {
	Path string `json:"path"`
	Size *int   `json:"size"`
}

func (h *Handler) ListThumbnails(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	active, err := h.thumbnails.List(c.UserContext(), user)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(h.present(active))
}

// UploadThumbnail expects a multipart form with "file" and an optional
// "expire_after" in seconds.
func (h *Handler) UploadThumbnail(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return fail(c, models.ValidationError{Field: "file", Message: "No file was submitted."})
	}

	// tiers without expiry ignore the field entirely, even when it is malformed
	var expireAfter *int
	if user.Tier.CanSetExpire {
		expireAfter, err = parseExpireAfter(c.FormValue("expire_after"))
		if err != nil {
			return fail(c, err)
		}
	}

	data, err := readUpload(file)
	if err != nil {
		return fail(c, err)
	}

	created, err := h.thumbnails.Generate(c.UserContext(), user, thumbnails.Upload{
		Filename: file.Filename,
		Data:     data,
	}, expireAfter)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(h.present(created))
}

func (h *Handler) present(rows []models.Thumbnail) []ThumbnailResponse {
	response := make([]ThumbnailResponse, 0, len(rows))
	for _, t := range rows {
		response = append(response, ThumbnailResponse{
			Path: h.thumbnails.URL(t),
			Size: t.Size,
		})
	}
	return response
}

// parseExpireAfter treats a blank value as not supplied.
func parseExpireAfter(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return nil, models.ValidationError{Field: "expire_after", Message: "A valid integer is required."}
	}
	return &seconds, nil
}

// readUpload copies the upload into memory once; every variant is produced
// from this copy.
func readUpload(file *multipart.FileHeader) ([]byte, error) {
	blobFile, err := file.Open()
	if err != nil {
		return nil, oops.New(err, "failed to open upload")
	}
	defer blobFile.Close()

	data, err := io.ReadAll(blobFile)
	if err != nil {
		return nil, oops.New(err, "failed to read upload")
	}
	if len(data) == 0 {
		return nil, models.ValidationError{Field: "file", Message: "The submitted file is empty."}
	}
	return data, nil
}
