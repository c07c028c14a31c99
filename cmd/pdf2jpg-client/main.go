package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	engine "github.com/drummonds/pdf2jpg/engine"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

func main() {
	server := flag.String("server", "http://localhost:8000", "Base URL of the pdf2jpg server")
	quality := flag.Int("quality", 0, "JPEG quality 1-100, 0 uses the server default")
	outDir := flag.String("out", ".", "Directory to write the page images to")
	timeout := flag.Duration("timeout", 2*time.Minute, "Request timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] document.pdf\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	engine.Logger = Logger

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	written, err := convertFile(ctx, engine.NewServiceClient(*server), flag.Arg(0), *quality, *outDir)
	if err != nil {
		Logger.Error("Conversion failed", "file", flag.Arg(0), "error", err)
		os.Exit(1)
	}
	Logger.Info("Conversion complete", "file", flag.Arg(0), "pages", len(written))
}

// convertFile sends pdfPath to the server and writes each returned page as <base>-<n>.jpg in outDir
func convertFile(ctx context.Context, client *engine.ServiceClient, pdfPath string, quality int, outDir string) ([]string, error) {
	images, err := client.CallConvert(ctx, pdfPath, quality)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	written := make([]string, 0, len(images))
	for i, encoded := range images {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return written, fmt.Errorf("page %d is not valid base64: %w", i+1, err)
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s-%d.jpg", base, i+1))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return written, fmt.Errorf("failed to write page %d: %w", i+1, err)
		}
		Logger.Info("Wrote page", "path", path, "size", humanize.Bytes(uint64(len(data))))
		written = append(written, path)
	}
	return written, nil
}
