package pdfrenderer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// MagickRenderer shells out to the ImageMagick command line (Ghostscript does the PDF work)
type MagickRenderer struct {
	path    string
	perPage bool
}

// NewMagickRenderer creates a renderer around an ImageMagick binary. mode is
// "bulk" (one invocation for all pages) or "per-page" (one invocation per page).
func NewMagickRenderer(path string, mode string) (*MagickRenderer, error) {
	if path == "" {
		return nil, fmt.Errorf("ImageMagick executable not configured")
	}
	switch mode {
	case "", "bulk":
		return &MagickRenderer{path: path}, nil
	case "per-page":
		return &MagickRenderer{path: path, perPage: true}, nil
	default:
		return nil, fmt.Errorf("unknown magick mode %q", mode)
	}
}

// Name returns the backend name
func (r *MagickRenderer) Name() string {
	if r.perPage {
		return "magick/per-page"
	}
	return "magick"
}

// Rasterize converts all pages of a PDF file to JPEG files using ImageMagick
func (r *MagickRenderer) Rasterize(ctx context.Context, inputPath string, outputDir string, opts Options) ([]string, error) {
	if r.perPage {
		return r.rasterizePerPage(ctx, inputPath, outputDir, opts)
	}

	// ImageMagick numbers %d from 0, the bulk convention is page-<index>.jpg
	if err := r.run(ctx, inputPath, filepath.Join(outputDir, "page-%d.jpg"), opts); err != nil {
		return nil, err
	}

	paths, err := collectPages(outputDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoPages
	}
	return paths, nil
}

func (r *MagickRenderer) rasterizePerPage(ctx context.Context, inputPath string, outputDir string, opts Options) ([]string, error) {
	numPages, err := CountPages(inputPath)
	if err != nil {
		return nil, err
	}
	if numPages == 0 {
		return nil, ErrNoPages
	}

	paths := make([]string, 0, numPages)
	for page := 1; page <= numPages; page++ {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := pageFileName(outputDir, page)
		// ImageMagick page selectors are zero based
		input := fmt.Sprintf("%s[%d]", inputPath, page-1)
		if err := r.run(ctx, input, path, opts); err != nil {
			return paths, fmt.Errorf("unable to render page %d: %w", page, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// run executes one ImageMagick invocation and surfaces its output on failure
func (r *MagickRenderer) run(ctx context.Context, input string, output string, opts Options) error {
	args := magickArgs(input, output, opts)
	cmd := exec.CommandContext(ctx, r.path, args...)
	var stdBuffer bytes.Buffer
	cmd.Stdout = &stdBuffer
	cmd.Stderr = &stdBuffer

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		detail := strings.TrimSpace(stdBuffer.String())
		if detail == "" {
			return fmt.Errorf("ImageMagick failed: %w", err)
		}
		return fmt.Errorf("ImageMagick failed: %w: %s", err, detail)
	}
	return nil
}

// magickArgs builds the argument list; density must precede the input to affect rasterization
func magickArgs(input string, output string, opts Options) []string {
	args := []string{}
	if opts.Density > 0 {
		args = append(args, "-density", strconv.Itoa(opts.Density))
	}
	args = append(args, input, "-background", "white", "-alpha", "remove")
	if opts.Width > 0 {
		args = append(args, "-resize", fmt.Sprintf("%dx", opts.Width))
	}
	args = append(args, "-quality", strconv.Itoa(clampQuality(opts.Quality)), output)
	return args
}

// collectPages finds page-<n>.jpg files and orders them by n, not lexically
func collectPages(outputDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, "page-*.jpg"))
	if err != nil {
		return nil, err
	}

	type numbered struct {
		index int
		path  string
	}
	pages := make([]numbered, 0, len(matches))
	for _, match := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(match), "page-"), ".jpg")
		index, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		pages = append(pages, numbered{index: index, path: match})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].index < pages[j].index })

	paths := make([]string, len(pages))
	for i, page := range pages {
		paths[i] = page.path
	}
	return paths, nil
}

// Close is a no-op, nothing is kept between invocations
func (r *MagickRenderer) Close() error {
	return nil
}
