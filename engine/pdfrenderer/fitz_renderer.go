package pdfrenderer

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer implements PDF rendering using go-fitz (requires CGo and MuPDF)
type FitzRenderer struct {
}

// NewFitzRenderer creates a new Fitz-based PDF renderer
func NewFitzRenderer() (*FitzRenderer, error) {
	return &FitzRenderer{}, nil
}

// Name returns the backend name
func (r *FitzRenderer) Name() string {
	return "fitz"
}

// Rasterize converts all pages of a PDF file to JPEG files using go-fitz
func (r *FitzRenderer) Rasterize(ctx context.Context, inputPath string, outputDir string, opts Options) ([]string, error) {
	doc, err := fitz.New(inputPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	if numPages == 0 {
		return nil, ErrNoPages
	}

	paths := make([]string, 0, numPages)
	for pageNum := 0; pageNum < numPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		img, err := doc.ImageDPI(pageNum, float64(opts.Density))
		if err != nil {
			return paths, fmt.Errorf("unable to render page %d: %w", pageNum+1, err)
		}
		path := pageFileName(outputDir, pageNum+1)
		if err := savePage(img, path, opts); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// Close cleans up resources (no-op for Fitz renderer as doc is closed per-render)
func (r *FitzRenderer) Close() error {
	return nil
}
