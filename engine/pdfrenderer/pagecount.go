package pdfrenderer

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// CountPages returns the number of pages declared by a PDF file
func CountPages(inputPath string) (int, error) {
	file, reader, err := pdf.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("unable to inspect PDF: %w", err)
	}
	defer file.Close()

	return reader.NumPage(), nil
}
