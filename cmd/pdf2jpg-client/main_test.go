package main

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	engine "github.com/drummonds/pdf2jpg/engine"
)

func TestMain(m *testing.M) {
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	engine.Logger = Logger
	os.Exit(m.Run())
}

func TestConvertFile_WritesPages(t *testing.T) {
	pages := [][]byte{[]byte("\xff\xd8first"), []byte("\xff\xd8second")}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/convertPdfToJpg" {
			http.NotFound(w, r)
			return
		}
		if r.FormValue("calidad") != "45" {
			t.Errorf("Expected calidad 45, got %q", r.FormValue("calidad"))
		}
		response := engine.ConvertResponse{}
		for _, page := range pages {
			response.Images = append(response.Images, base64.StdEncoding.EncodeToString(page))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")

	written, err := convertFile(t.Context(), engine.NewServiceClient(server.URL), pdfPath, 45, outDir)
	if err != nil {
		t.Fatalf("convertFile failed: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(written))
	}
	for i, want := range []string{"report-1.jpg", "report-2.jpg"} {
		if filepath.Base(written[i]) != want {
			t.Errorf("Expected %s, got %s", want, written[i])
		}
		data, err := os.ReadFile(written[i])
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != string(pages[i]) {
			t.Errorf("Page %d content mismatch", i+1)
		}
	}
}

func TestConvertFile_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(engine.ErrorResponse{Error: "Error procesando PDF", Kind: engine.KindFormParse})
	}))
	defer server.Close()

	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "report.pdf")
	os.WriteFile(pdfPath, []byte("%PDF-1.4\n"), 0644)

	outDir := filepath.Join(dir, "out")
	if _, err := convertFile(t.Context(), engine.NewServiceClient(server.URL), pdfPath, 0, outDir); err == nil {
		t.Fatal("Expected error from failing server")
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("Output directory should not be created on failure")
	}
}
