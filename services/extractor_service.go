package services

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github/vikram-s/docchat/models"
)

func init() {

	// Load .env file from the current directory
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	err := license.SetMeteredKey(os.Getenv("UNIDOC_LICENSE_KEY"))
	if err != nil {
		fmt.Printf("ERROR: Failed to set Unidoc license key: %v. PDF processing will fail.\n", err)
	}
}

// ExtractPages parses a PDF and returns the plain text of each page with its
// 1-based page number. Pages whose text cannot be extracted are skipped with
// a warning; if no page yields any text the document is rejected.
func ExtractPages(data []byte) ([]models.PageText, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document payload", ErrExtraction)
	}

	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	var pages []models.PageText
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			log.Printf("EXTRACT WARN: could not load page %d: %v", i, err)
			continue
		}

		ex, err := extractor.New(page)
		if err != nil {
			log.Printf("EXTRACT WARN: could not build extractor for page %d: %v", i, err)
			continue
		}

		text, err := ex.ExtractText()
		if err != nil {
			log.Printf("EXTRACT WARN: could not extract text from page %d: %v", i, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, models.PageText{Text: text, PageNumber: i})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, ErrEmptyDocument)
	}
	return pages, nil
}
