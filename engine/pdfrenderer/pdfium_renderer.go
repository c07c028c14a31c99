package pdfrenderer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PDFiumRenderer implements PDF rendering using go-pdfium with WebAssembly (pure Go, no CGo)
type PDFiumRenderer struct {
	mu       sync.Mutex // a single PDFium instance is not safe for concurrent use
	pool     pdfium.Pool
	instance pdfium.Pdfium
}

// NewPDFiumRenderer creates a new PDFium-based PDF renderer using WebAssembly
func NewPDFiumRenderer() (*PDFiumRenderer, error) {
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	return &PDFiumRenderer{
		pool:     pool,
		instance: instance,
	}, nil
}

// Name returns the backend name
func (r *PDFiumRenderer) Name() string {
	return "pdfium"
}

// Rasterize converts all pages of a PDF file to JPEG files using go-pdfium WebAssembly
func (r *PDFiumRenderer) Rasterize(ctx context.Context, inputPath string, outputDir string, opts Options) ([]string, error) {
	pdfBytes, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read PDF file: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == nil {
		return nil, fmt.Errorf("PDFium renderer is closed")
	}

	doc, err := r.instance.OpenDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc.Document,
	})

	pageCountResp, err := r.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get page count: %w", err)
	}

	numPages := pageCountResp.PageCount
	if numPages == 0 {
		return nil, ErrNoPages
	}

	paths := make([]string, 0, numPages)
	for pageIndex := 0; pageIndex < numPages; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		pageRender, err := r.instance.RenderPageInDPI(&requests.RenderPageInDPI{
			DPI: opts.Density,
			Page: requests.Page{
				ByIndex: &requests.PageByIndex{
					Document: doc.Document,
					Index:    pageIndex,
				},
			},
		})
		if err != nil {
			return paths, fmt.Errorf("unable to render page %d: %w", pageIndex+1, err)
		}

		path := pageFileName(outputDir, pageIndex+1)
		err = savePage(pageRender.Result.Image, path, opts)

		// Clean up WebAssembly resources for this page
		pageRender.Cleanup()
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// Close cleans up resources used by the PDFium renderer
func (r *PDFiumRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	r.instance = nil
	return nil
}
