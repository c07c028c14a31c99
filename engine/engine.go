package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/drummonds/pdf2jpg/engine/pdfrenderer"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

const pdfMIME = "application/pdf"

// UploadedFile is the PDF as written into the request workspace
type UploadedFile struct {
	Path string // absolute path inside the workspace
	Name string // original base name sent by the client
	Size int64
}

// ConversionRequest holds the per-request conversion parameters
type ConversionRequest struct {
	Quality int
}

// Converter turns an uploaded PDF into base64 encoded JPEG pages
type Converter struct {
	Renderer pdfrenderer.Renderer
	TempRoot string
	Density  int
	Width    int
}

// Convert runs the whole request lifecycle: workspace, upload, rasterize, encode, cleanup.
// The workspace is removed on every path and no partial result is returned on failure.
func (c *Converter) Convert(ctx context.Context, src io.Reader, name string, request ConversionRequest) (images []string, err error) {
	start := time.Now()
	ws, err := NewWorkspace(c.TempRoot)
	if err != nil {
		return nil, filesystemError("create workspace", err)
	}
	defer func() {
		if cleanupErr := ws.Cleanup(); cleanupErr != nil {
			Logger.Error("Unable to clean up workspace", "workspace", ws.Dir, "error", cleanupErr)
			if err == nil {
				images, err = nil, filesystemError("cleanup", cleanupErr)
			}
		}
	}()

	path, size, err := ws.SaveUpload(src)
	if err != nil {
		return nil, filesystemError("save upload", err)
	}
	upload := UploadedFile{Path: path, Name: filepath.Base(name), Size: size}
	Logger.Info("Converting PDF to JPEG",
		"file", upload.Name,
		"size", humanize.Bytes(uint64(size)),
		"quality", request.Quality,
		"renderer", c.Renderer.Name(),
		"workspace", ws.ID.String())

	images, err = c.convertUpload(ctx, ws, upload, request)
	if err != nil {
		return nil, err
	}

	Logger.Info("PDF converted", "file", upload.Name, "pages", len(images), "duration", time.Since(start))
	return images, nil
}

func (c *Converter) convertUpload(ctx context.Context, ws *Workspace, upload UploadedFile, request ConversionRequest) ([]string, error) {
	if upload.Size == 0 {
		return nil, conversionError("inspect upload", errors.New("uploaded file is empty"))
	}
	mime, err := mimetype.DetectFile(upload.Path)
	if err != nil {
		return nil, filesystemError("inspect upload", err)
	}
	if !mime.Is(pdfMIME) {
		return nil, conversionError("inspect upload", fmt.Errorf("uploaded file is not a PDF (detected %s)", mime.String()))
	}

	opts := pdfrenderer.Options{Density: c.Density, Width: c.Width, Quality: request.Quality}
	paths, err := c.Renderer.Rasterize(ctx, upload.Path, ws.OutDir, opts)
	if err != nil {
		return nil, conversionError("rasterize", err)
	}
	if len(paths) == 0 {
		return nil, conversionError("rasterize", pdfrenderer.ErrNoPages)
	}

	images := make([]string, 0, len(paths))
	for _, pagePath := range paths {
		encoded, err := encodePage(pagePath)
		if err != nil {
			return nil, err
		}
		images = append(images, encoded)
	}

	if err := os.Remove(upload.Path); err != nil {
		return nil, filesystemError("remove upload", err)
	}
	return images, nil
}

// encodePage reads one page image, deletes it and returns its base64 form
func encodePage(pagePath string) (string, error) {
	data, err := os.ReadFile(pagePath)
	if err != nil {
		return "", filesystemError("read page image", err)
	}
	if err := os.Remove(pagePath); err != nil {
		return "", filesystemError("remove page image", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ParseQuality reads the leading integer of value the way the upload form
// always has: surrounding text is ignored, and a missing, non-numeric or
// zero value falls back to defaultQuality. Range is left to the encoder.
func ParseQuality(value string, defaultQuality int) int {
	value = strings.TrimSpace(value)
	sign := 1
	if value != "" && (value[0] == '-' || value[0] == '+') {
		if value[0] == '-' {
			sign = -1
		}
		value = value[1:]
	}

	quality, digits := 0, 0
	for _, r := range value {
		if r < '0' || r > '9' {
			break
		}
		quality = quality*10 + int(r-'0')
		digits++
		if quality > 1_000_000 {
			break
		}
	}
	if digits == 0 || quality == 0 {
		return defaultQuality
	}
	return sign * quality
}
