package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
)

const maxAttachmentBytes = 10 * 1024 * 1024

var (
	ErrFileTooLarge    = errors.New("file exceeds the 10MB limit")
	ErrUnsupportedType = errors.New("unsupported file format")
	ErrFeedbackClosed  = errors.New("feedback can no longer be submitted for this request")
)

// Mirrors the server's allow-list so bad uploads fail before any bytes
// leave the client.
var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

type FileUpload struct {
	Filename string
	MimeType string
	Content  []byte
}

func ValidateUpload(file FileUpload) error {
	if int64(len(file.Content)) > maxAttachmentBytes {
		return ErrFileTooLarge
	}
	if !allowedUploadTypes[file.MimeType] {
		return ErrUnsupportedType
	}
	return nil
}

type CreateMaintenanceInput struct {
	Title       string
	Description string
	Priority    string
	Category    string
	Files       []FileUpload
}

// MyRequests fetches the signed-in tenant's requests, normalized out of
// the {requests, totalPages} envelope.
func (c *Client) MyRequests(ctx context.Context, page, size int) (Page[MaintenanceRequest], error) {
	return c.requestPage(ctx, "/api/maintenance/my-requests", url.Values{}, page, size)
}

// ListRequests is the admin view with optional status and priority
// filters.
func (c *Client) ListRequests(ctx context.Context, status, priority string, page, size int) (Page[MaintenanceRequest], error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if priority != "" {
		query.Set("priority", priority)
	}
	return c.requestPage(ctx, "/api/maintenance", query, page, size)
}

func (c *Client) requestPage(ctx context.Context, path string, query url.Values, page, size int) (Page[MaintenanceRequest], error) {
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	var envelope struct {
		Requests   []MaintenanceRequest `json:"requests"`
		TotalPages int                  `json:"totalPages"`
	}
	if err := c.do(ctx, http.MethodGet, path+"?"+query.Encode(), nil, &envelope); err != nil {
		return Page[MaintenanceRequest]{}, err
	}
	return Page[MaintenanceRequest]{Items: envelope.Requests, TotalPages: envelope.TotalPages}, nil
}

func (c *Client) GetRequest(ctx context.Context, requestID string) (MaintenanceRequest, error) {
	var request MaintenanceRequest
	err := c.do(ctx, http.MethodGet, "/api/maintenance/"+requestID, nil, &request)
	return request, err
}

// CreateRequest validates attachments locally, then submits the multipart
// form.
func (c *Client) CreateRequest(ctx context.Context, input CreateMaintenanceInput) (MaintenanceRequest, error) {
	var request MaintenanceRequest
	for _, file := range input.Files {
		if err := ValidateUpload(file); err != nil {
			return request, err
		}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("title", input.Title)
	_ = writer.WriteField("description", input.Description)
	if input.Priority != "" {
		_ = writer.WriteField("priority", input.Priority)
	}
	if input.Category != "" {
		_ = writer.WriteField("category", input.Category)
	}
	for _, file := range input.Files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, file.Filename))
		header.Set("Content-Type", file.MimeType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return request, err
		}
		if _, err := part.Write(file.Content); err != nil {
			return request, err
		}
	}
	if err := writer.Close(); err != nil {
		return request, err
	}

	err := c.doMultipart(ctx, "/api/maintenance", writer.FormDataContentType(), body.Bytes(), &request)
	return request, err
}

type feedbackPayload struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty"`
}

// SubmitFeedback rates a completed request. Eligibility is checked
// locally first; the server enforces it again.
func (c *Client) SubmitFeedback(ctx context.Context, request MaintenanceRequest, rating int, comment *string) (MaintenanceRequest, error) {
	var updated MaintenanceRequest
	if !request.CanSubmitFeedback() {
		return updated, ErrFeedbackClosed
	}
	if rating < 1 || rating > 5 {
		return updated, errors.New("rating must be between 1 and 5")
	}

	err := c.do(ctx, http.MethodPost, "/api/maintenance/"+request.ID+"/feedback", feedbackPayload{
		Rating:  rating,
		Comment: comment,
	}, &updated)
	return updated, err
}

func (c *Client) DeleteRequest(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodDelete, "/api/maintenance/"+requestID, nil, nil)
}
