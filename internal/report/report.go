package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/vbonduro/obras/internal/domain"
)

// ErrNotConfigured is returned by Send when no endpoint is set.
var ErrNotConfigured = errors.New("report endpoint not configured")

type Kind string

const (
	KindSite       Kind = "site"
	KindInspection Kind = "inspection"
)

// Request is one report to deliver: a record plus who receives it.
type Request struct {
	Kind           Kind   `json:"type" validate:"required,oneof=site inspection"`
	Recipient      string `json:"recipient" validate:"required,email"`
	Payload        any    `json:"payload" validate:"-"`
	Attachment     []byte `json:"-"`
	AttachmentName string `json:"-"`
	AttachmentType string `json:"-"`
}

// Client posts reports to the email relay as multipart/form-data. Only the
// status code of the response is looked at.
type Client struct {
	endpoint string
	client   *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Send(ctx context.Context, r Request) error {
	if c.endpoint == "" {
		return ErrNotConfigured
	}
	if err := domain.Validate(r); err != nil {
		return err
	}

	body, contentType, err := encode(r)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call report endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("report endpoint returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

func encode(r Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("type", string(r.Kind)); err != nil {
		return nil, "", fmt.Errorf("failed to write form: %w", err)
	}
	if err := w.WriteField("recipient", r.Recipient); err != nil {
		return nil, "", fmt.Errorf("failed to write form: %w", err)
	}

	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="payload"`)
	h.Set("Content-Type", "application/json")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to write form: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", fmt.Errorf("failed to write form: %w", err)
	}

	if len(r.Attachment) > 0 {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachment"; filename=%q`, r.AttachmentName))
		h.Set("Content-Type", r.AttachmentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to write form: %w", err)
		}
		if _, err := part.Write(r.Attachment); err != nil {
			return nil, "", fmt.Errorf("failed to write form: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
