package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ServiceClient talks to a running conversion endpoint
type ServiceClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewServiceClient creates a client for the service at baseURL
func NewServiceClient(baseURL string) *ServiceClient {
	return &ServiceClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// ServiceError is a failure reported by the conversion endpoint
type ServiceError struct {
	StatusCode int
	Kind       ErrorKind
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("conversion service returned %d (%s): %s", e.StatusCode, e.Kind, e.Message)
}

// CallConvert uploads the PDF at pdfPath and returns the base64 JPEG pages.
// quality <= 0 leaves calidad out so the server default applies.
func (sc *ServiceClient) CallConvert(ctx context.Context, pdfPath string, quality int) ([]string, error) {
	file, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	// Create multipart form data
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(pdfPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err = io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}

	if quality > 0 {
		if err := writer.WriteField("calidad", strconv.Itoa(quality)); err != nil {
			return nil, fmt.Errorf("failed to write quality field: %w", err)
		}
	}

	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	url := fmt.Sprintf("%s/api/convertPdfToJpg", sc.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := sc.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call conversion service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil || errResp.Error == "" {
			return nil, &ServiceError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(bodyBytes))}
		}
		return nil, &ServiceError{StatusCode: resp.StatusCode, Kind: errResp.Kind, Message: errResp.Error}
	}

	var convertResp ConvertResponse
	if err := json.NewDecoder(resp.Body).Decode(&convertResp); err != nil {
		return nil, fmt.Errorf("failed to decode conversion response: %w", err)
	}

	return convertResp.Images, nil
}
