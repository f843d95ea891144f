package recognizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"carecount/internal"
	"carecount/internal/config"
)

// OCRStage posts the image to a hosted OCR engine that answers in hOCR
// (HTML with positioned word spans) and flattens the words back into plain
// text for normalization.
type OCRStage struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewOCRStage(cfg config.Config) (*OCRStage, error) {
	if err := cfg.Require("OCR_BASE_URL", cfg.OCRBaseURL); err != nil {
		return nil, err
	}
	return &OCRStage{
		baseURL:    strings.TrimRight(cfg.OCRBaseURL, "/"),
		apiKey:     cfg.OCRAPIKey,
		httpClient: &http.Client{Timeout: time.Duration(cfg.RecognizerTimeout) * time.Millisecond},
	}, nil
}

func (s *OCRStage) Source() internal.ObservationSource { return internal.SourceOCR }

func (s *OCRStage) Recognize(ctx context.Context, image []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/ocr", bytes.NewReader(image))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "text/html")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr HTTP %d", resp.StatusCode)
	}

	return ExtractHOCRText(string(body))
}

// ExtractHOCRText joins the recognized words of an hOCR document in reading
// order. Falls back to the document text when the page carries no hOCR
// classes at all.
func ExtractHOCRText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	words := []string{}
	doc.Find(".ocr_line, .ocrx_line").Each(func(_ int, line *goquery.Selection) {
		lineWords := []string{}
		line.Find(".ocrx_word, .ocr_word").Each(func(_ int, word *goquery.Selection) {
			if w := strings.TrimSpace(word.Text()); w != "" {
				lineWords = append(lineWords, w)
			}
		})
		if len(lineWords) == 0 {
			if w := strings.TrimSpace(line.Text()); w != "" {
				lineWords = append(lineWords, w)
			}
		}
		if len(lineWords) > 0 {
			words = append(words, strings.Join(lineWords, " "))
		}
	})

	if len(words) == 0 {
		doc.Find(".ocrx_word, .ocr_word").Each(func(_ int, word *goquery.Selection) {
			if w := strings.TrimSpace(word.Text()); w != "" {
				words = append(words, w)
			}
		})
	}
	if len(words) == 0 {
		return strings.TrimSpace(doc.Text()), nil
	}
	return strings.Join(words, " "), nil
}
