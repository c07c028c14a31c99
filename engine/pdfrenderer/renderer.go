package pdfrenderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ErrNoPages is returned when a rasterizer produced no page images
var ErrNoPages = errors.New("PDF produced no page images")

// Options controls how pages are rasterized
type Options struct {
	Density int // DPI
	Width   int // target width in pixels, 0 keeps the rendered width
	Quality int // JPEG quality, clamped to 1..100
}

// Renderer defines the interface for PDF to JPEG conversion
type Renderer interface {
	// Rasterize converts every page of inputPath into a JPEG file inside outputDir
	// Returns the file paths in ascending page order
	Rasterize(ctx context.Context, inputPath string, outputDir string, opts Options) ([]string, error)

	// Name identifies the backend in logs and health output
	Name() string

	// Close cleans up any resources used by the renderer
	Close() error
}

// NewRenderer creates the renderer matching the rasterizer name
func NewRenderer(name string, magickPath string, magickMode string) (Renderer, error) {
	switch name {
	case "fitz", "":
		return NewFitzRenderer()
	case "pdfium":
		return NewPDFiumRenderer()
	case "magick":
		return NewMagickRenderer(magickPath, magickMode)
	default:
		return nil, fmt.Errorf("unknown rasterizer %q", name)
	}
}

// pageFileName is the naming convention for page images, pages numbered from 1
func pageFileName(outputDir string, page int) string {
	return filepath.Join(outputDir, fmt.Sprintf("page-%d.jpg", page))
}

// clampQuality keeps quality in the range accepted by JPEG encoders
func clampQuality(quality int) int {
	if quality < 1 {
		return 1
	}
	if quality > 100 {
		return 100
	}
	return quality
}

// savePage resizes img to the target width and writes it as a JPEG
func savePage(img image.Image, path string, opts Options) error {
	var out image.Image = img
	if opts.Width > 0 && img.Bounds().Dx() != opts.Width {
		out = imaging.Resize(img, opts.Width, 0, imaging.Lanczos)
	}
	if err := imaging.Save(out, path, imaging.JPEGQuality(clampQuality(opts.Quality))); err != nil {
		return fmt.Errorf("unable to save page image %s: %w", filepath.Base(path), err)
	}
	return nil
}
