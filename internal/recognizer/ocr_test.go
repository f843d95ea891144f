package recognizer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractHOCRText(t *testing.T) {
	cases := []struct {
		name string
		html string
		want string
	}{
		{
			name: "lines of words",
			html: `<div class="ocr_page">
<span class="ocr_line"><span class="ocrx_word">HEINZ</span> <span class="ocrx_word">Tomato</span></span>
<span class="ocr_line"><span class="ocrx_word">Soup</span></span>
</div>`,
			want: "HEINZ Tomato Soup",
		},
		{
			name: "line without word spans",
			html: `<span class="ocrx_line">Tetley Green Tea</span>`,
			want: "Tetley Green Tea",
		},
		{
			name: "words outside any line",
			html: `<span class="ocrx_word">Rice</span> <span class="ocrx_word">5kg</span>`,
			want: "Rice 5kg",
		},
		{
			name: "plain html fallback",
			html: `<html><body>Canned Beans</body></html>`,
			want: "Canned Beans",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractHOCRText(tc.html)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestOCRStageRecognize(t *testing.T) {
	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`<span class="ocr_line"><span class="ocrx_word">Pasta</span></span>`))
	}))
	defer server.Close()

	stage := &OCRStage{
		baseURL:    server.URL,
		apiKey:     "ocr-key",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}

	text, err := stage.Recognize(context.Background(), []byte("fake-png"))
	if err != nil {
		t.Fatal(err)
	}
	if text != "Pasta" {
		t.Fatalf("text = %q", text)
	}
	if gotAuth != "Bearer ocr-key" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotContentType != "image/png" {
		t.Fatalf("content type = %q", gotContentType)
	}
}

func TestOCRStageHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	stage := &OCRStage{baseURL: server.URL, httpClient: server.Client()}
	if _, err := stage.Recognize(context.Background(), []byte("img")); err == nil {
		t.Fatal("expected error on HTTP 503")
	}
}
