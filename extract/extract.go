// Package extract turns uploaded resume and job description files into plain
// text. PDFs route through an external parsing service; text files are
// decoded directly.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jobtalk/jobtalk/errors"
)

// Client calls the hosted PDF parsing service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a PDF parse client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type parseResponse struct {
	Text string `json:"text"`
}

// ParsePDF uploads PDF bytes to the parsing service and returns the extracted
// text.
func (c *Client) ParsePDF(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", errors.Wrap(err, "failed to build multipart request")
	}
	if _, err := part.Write(data); err != nil {
		return "", errors.Wrap(err, "failed to write file part")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "failed to finalize multipart request")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/parse-pdf", &body)
	if err != nil {
		return "", errors.Wrap(err, "failed to create parse request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeUpstream, "pdf parse request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeUpstream, "failed to read parse response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Upstream("pdf parse service", resp.StatusCode, string(respBody))
	}

	var parsed parseResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errors.MalformedResponse("failed to parse pdf service response", errors.WithCause(err))
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", errors.Upstream("pdf parse service", resp.StatusCode, "no text extracted from PDF")
	}
	return parsed.Text, nil
}

// IsPDF reports whether the upload looks like a PDF by extension or content type.
func IsPDF(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	return strings.HasPrefix(contentType, "application/pdf")
}

// IsText reports whether the upload looks like a plain text file.
func IsText(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".txt") {
		return true
	}
	return strings.HasPrefix(contentType, "text/plain")
}

// FromUpload extracts text from an uploaded file. PDFs go through the parse
// service; text files must be valid UTF-8; anything else is unsupported.
func (c *Client) FromUpload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.InvalidInput("uploaded file is empty")
	}

	switch {
	case IsPDF(filename, contentType):
		return c.ParsePDF(ctx, filename, data)
	case IsText(filename, contentType):
		if !utf8.Valid(data) {
			return "", errors.InvalidInput("text file is not valid UTF-8")
		}
		return string(data), nil
	default:
		return "", errors.Unsupported("unsupported file type; upload a PDF or TXT file",
			errors.WithMetadata("filename", filename))
	}
}
