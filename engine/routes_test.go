package engine

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/drummonds/pdf2jpg/config"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// setupTestServer creates an echo server with the API routes backed by renderer
func setupTestServer(t *testing.T, renderer *fakeRenderer) (*echo.Echo, config.ServerConfig) {
	t.Helper()
	serverConfig := config.ServerConfig{
		TempRoot:       t.TempDir(),
		MaxUploadMB:    8,
		ConvertTimeout: 30,
		RenderConfig:   config.RenderConfig{Density: 100, Width: 1920, DefaultQuality: 20},
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	serverHandler := &ServerHandler{
		Echo:         e,
		ServerConfig: serverConfig,
		Converter: &Converter{
			Renderer: renderer,
			TempRoot: serverConfig.TempRoot,
			Density:  serverConfig.Density,
			Width:    serverConfig.Width,
		},
	}
	serverHandler.AddRoutes()
	return e, serverConfig
}

// uploadBody builds a multipart body with the file and an optional calidad field
func uploadBody(t *testing.T, fileName string, content []byte, calidad *string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write file content: %v", err)
	}
	if calidad != nil {
		if err := writer.WriteField("calidad", *calidad); err != nil {
			t.Fatalf("Failed to write calidad field: %v", err)
		}
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func postConvert(e *echo.Echo, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/convertPdfToJpg", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func stringPtr(s string) *string { return &s }

func TestConvertPdfToJpg_Success(t *testing.T) {
	renderer := &fakeRenderer{pages: 3}
	e, serverConfig := setupTestServer(t, renderer)

	body, contentType := uploadBody(t, "three.pdf", fakePDF(300), nil)
	rec := postConvert(e, body, contentType)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		t.Errorf("Expected JSON content type, got %s", ct)
	}

	var response ConvertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v\nBody: %s", err, rec.Body.String())
	}
	if len(response.Images) != 3 {
		t.Fatalf("Expected 3 images, got %d", len(response.Images))
	}
	for i, cfg := range decodeImages(t, response.Images) {
		if cfg.Width != 11+i {
			t.Errorf("Image %d has width %d, pages out of order", i, cfg.Width)
		}
	}
	assertEmptyDir(t, serverConfig.TempRoot)
}

func TestConvertPdfToJpg_Quality(t *testing.T) {
	t.Run("calidad omitted uses 20", func(t *testing.T) {
		renderer := &fakeRenderer{pages: 1}
		e, _ := setupTestServer(t, renderer)
		body, contentType := uploadBody(t, "a.pdf", fakePDF(100), nil)
		if rec := postConvert(e, body, contentType); rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if renderer.quality() != 20 {
			t.Errorf("Expected quality 20, got %d", renderer.quality())
		}
	})

	t.Run("calidad 55", func(t *testing.T) {
		renderer := &fakeRenderer{pages: 1}
		e, _ := setupTestServer(t, renderer)
		body, contentType := uploadBody(t, "a.pdf", fakePDF(100), stringPtr("55"))
		if rec := postConvert(e, body, contentType); rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if renderer.quality() != 55 {
			t.Errorf("Expected quality 55, got %d", renderer.quality())
		}
	})

	t.Run("calidad non-numeric uses 20", func(t *testing.T) {
		renderer := &fakeRenderer{pages: 1}
		e, _ := setupTestServer(t, renderer)
		body, contentType := uploadBody(t, "a.pdf", fakePDF(100), stringPtr("alta"))
		if rec := postConvert(e, body, contentType); rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if renderer.quality() != 20 {
			t.Errorf("Expected quality 20, got %d", renderer.quality())
		}
	})
}

func TestConvertPdfToJpg_Failures(t *testing.T) {
	t.Run("non-PDF upload", func(t *testing.T) {
		e, serverConfig := setupTestServer(t, &fakeRenderer{pages: 1})
		body, contentType := uploadBody(t, "notes.txt", []byte("hello, this is plain text"), nil)
		rec := postConvert(e, body, contentType)
		assertErrorResponse(t, rec, KindConversion)
		assertEmptyDir(t, serverConfig.TempRoot)
	})

	t.Run("renderer failure", func(t *testing.T) {
		e, serverConfig := setupTestServer(t, &fakeRenderer{err: testError("corrupt xref table")})
		body, contentType := uploadBody(t, "broken.pdf", fakePDF(100), nil)
		rec := postConvert(e, body, contentType)
		response := assertErrorResponse(t, rec, KindConversion)
		if !strings.Contains(response["error"].(string), "corrupt xref table") {
			t.Errorf("Expected renderer message in error, got %v", response["error"])
		}
		assertEmptyDir(t, serverConfig.TempRoot)
	})

	t.Run("not multipart", func(t *testing.T) {
		e, _ := setupTestServer(t, &fakeRenderer{pages: 1})
		rec := postConvert(e, bytes.NewBufferString(`{"file":"x"}`), echo.MIMEApplicationJSON)
		response := assertErrorResponse(t, rec, KindFormParse)
		if response["error"] != formParseMessage {
			t.Errorf("Expected fixed form parse message, got %v", response["error"])
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		e, _ := setupTestServer(t, &fakeRenderer{pages: 1})
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.WriteField("calidad", "40")
		writer.Close()
		rec := postConvert(e, body, writer.FormDataContentType())
		assertErrorResponse(t, rec, KindFormParse)
	})
}

type testError string

func (e testError) Error() string { return string(e) }

func assertErrorResponse(t *testing.T, rec *httptest.ResponseRecorder, kind ErrorKind) map[string]interface{} {
	t.Helper()
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d: %s", rec.Code, rec.Body.String())
	}
	var response map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v\nBody: %s", err, rec.Body.String())
	}
	if msg, _ := response["error"].(string); msg == "" {
		t.Errorf("Expected non-empty error field, got %v", response)
	}
	if _, ok := response["images"]; ok {
		t.Errorf("Error response should not carry images: %v", response)
	}
	if response["kind"] != string(kind) {
		t.Errorf("Expected kind %s, got %v", kind, response["kind"])
	}
	return response
}

func TestConvertPdfToJpg_ConcurrentRequestsIsolated(t *testing.T) {
	renderer := &fakeRenderer{pages: 2, delay: 50 * time.Millisecond}
	e, serverConfig := setupTestServer(t, renderer)

	// Heights encode the upload size, so each response must only carry its own height
	sizes := []int{200, 400, 600, 800}
	var wg sync.WaitGroup
	results := make([]*httptest.ResponseRecorder, len(sizes))
	for i, size := range sizes {
		body, contentType := uploadBody(t, "same-name.pdf", fakePDF(size), nil)
		wg.Add(1)
		go func(i int, body *bytes.Buffer, contentType string) {
			defer wg.Done()
			results[i] = postConvert(e, body, contentType)
		}(i, body, contentType)
	}
	wg.Wait()

	for i, rec := range results {
		if rec.Code != http.StatusOK {
			t.Fatalf("Request %d: expected status 200, got %d: %s", i, rec.Code, rec.Body.String())
		}
		var response ConvertResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Request %d: failed to parse response: %v", i, err)
		}
		if len(response.Images) != 2 {
			t.Fatalf("Request %d: expected 2 images, got %d", i, len(response.Images))
		}
		for _, cfg := range decodeImages(t, response.Images) {
			if cfg.Height != sizes[i]/10 {
				t.Errorf("Request %d received an image of height %d, expected %d", i, cfg.Height, sizes[i]/10)
			}
		}
	}
	assertEmptyDir(t, serverConfig.TempRoot)
}

func TestHealth(t *testing.T) {
	e, _ := setupTestServer(t, &fakeRenderer{pages: 1})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["status"] != "healthy" || response["renderer"] != "fake" {
		t.Errorf("Unexpected health response: %v", response)
	}
}
