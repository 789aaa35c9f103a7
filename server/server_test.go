package server_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tmc/langchaingo/llms"

	"github.com/BuragaIonut/daisler/analyze"
	"github.com/BuragaIonut/daisler/extend"
	"github.com/BuragaIonut/daisler/pipeline"
	"github.com/BuragaIonut/daisler/raster"
	"github.com/BuragaIonut/daisler/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeModel struct {
	reply string
}

func (m *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.reply}},
	}, nil
}

func (m *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return m.reply, nil
}

func testImagePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	data, err := raster.Encode(img, raster.PNG)
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return data
}

func multipartUpload(t *testing.T, contentType string, payload []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="upload.bin"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("creating part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("writing field %s: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

type stubExtender struct{}

func (stubExtender) Extend(_ context.Context, req extend.Request) (extend.Result, error) {
	return extend.Result{
		Image: image.NewNRGBA(image.Rect(0, 0, req.TargetWidth, req.TargetHeight)),
	}, nil
}

func newTestServer(analyzer *analyze.Analyzer) *server.Server {
	pipe := pipeline.New(nil, nil)
	return server.New(server.Config{}, analyzer, pipe, nil)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestAnalyzeReturnsReport(t *testing.T) {
	model := &fakeModel{reply: "# Verdict\n\nResolution is **adequate**."}
	analyzer := analyze.NewWithModel(model, analyze.DefaultConfig(), nil)
	srv := newTestServer(analyzer)

	body, ct := multipartUpload(t, "image/png", testImagePNG(t, 40, 30), map[string]string{
		"use_case": "sticker printing",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", ct)
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if !strings.Contains(resp["result"], "# Verdict") {
		t.Errorf("result missing markdown: %q", resp["result"])
	}
	if !strings.Contains(resp["html"], "<strong>adequate</strong>") {
		t.Errorf("html missing rendering: %q", resp["html"])
	}
}

func TestAnalyzeValidation(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	analyzer := analyze.NewWithModel(model, analyze.DefaultConfig(), nil)
	srv := newTestServer(analyzer)
	router := srv.Router()

	t.Run("missing use case", func(t *testing.T) {
		body, ct := multipartUpload(t, "image/png", testImagePNG(t, 10, 10), nil)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/analyze", body)
		req.Header.Set("Content-Type", ct)
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("wrong content type", func(t *testing.T) {
		body, ct := multipartUpload(t, "text/plain", []byte("nope"), map[string]string{"use_case": "x"})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/analyze", body)
		req.Header.Set("Content-Type", ct)
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("corrupt image", func(t *testing.T) {
		body, ct := multipartUpload(t, "image/png", []byte("not a png"), map[string]string{"use_case": "x"})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/analyze", body)
		req.Header.Set("Content-Type", ct)
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestAnalyzeUnconfigured(t *testing.T) {
	srv := newTestServer(nil)
	body, ct := multipartUpload(t, "image/png", testImagePNG(t, 10, 10), map[string]string{"use_case": "x"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", ct)
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestProcessPreview(t *testing.T) {
	srv := newTestServer(nil)
	body, ct := multipartUpload(t, "image/png", testImagePNG(t, 10, 8), map[string]string{
		"bleed_px": "5",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", ct)
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("content type = %q", got)
	}
	preview, err := raster.Decode(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decoding preview: %v", err)
	}
	b := preview.Bounds()
	if b.Dx() != 20 || b.Dy() != 18 {
		t.Fatalf("preview size = %dx%d, want 20x18", b.Dx(), b.Dy())
	}

	// The cut rectangle sits on the inner edge of the bleed band.
	r, g, _, _ := preview.At(5, 5).RGBA()
	if r>>8 != 60 || g>>8 != 235 {
		t.Errorf("cut outline pixel = %v", preview.At(5, 5))
	}
	// Bleed corner mirrors the red source.
	r, g, _, _ = preview.At(0, 0).RGBA()
	if r>>8 != 200 || g>>8 != 40 {
		t.Errorf("bleed corner pixel = %v", preview.At(0, 0))
	}
	// Centre keeps the original content.
	r, _, _, _ = preview.At(10, 9).RGBA()
	if r>>8 != 200 {
		t.Errorf("centre pixel = %v", preview.At(10, 9))
	}
}

func TestPrepareNoExtension(t *testing.T) {
	srv := newTestServer(nil)
	body, ct := multipartUpload(t, "image/png", testImagePNG(t, 100, 100), map[string]string{
		"width":    "50",
		"height":   "50",
		"unit":     "mm",
		"dpi":      "25.4",
		"bleed_mm": "-1",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/prepare", body)
	req.Header.Set("Content-Type", ct)
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("content type = %q", got)
	}
	if got := rec.Header().Get("X-Extension-Strategy"); got != "no_extension_needed" {
		t.Errorf("strategy header = %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Errorf("body does not start with a PDF header")
	}
}

func TestVariants(t *testing.T) {
	pipe := pipeline.New(stubExtender{}, nil)
	srv := server.New(server.Config{}, nil, pipe, nil)

	body, ct := multipartUpload(t, "image/png", testImagePNG(t, 100, 80), map[string]string{
		"width":    "100",
		"height":   "100",
		"dpi":      "300",
		"overlaps": "5,3",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/variants", body)
	req.Header.Set("Content-Type", ct)
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Strategy string `json:"strategy"`
		Variants []struct {
			OverlapPercent int    `json:"overlap_percent"`
			Image          string `json:"image"`
		} `json:"variants"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Strategy != "landscape_to_square" {
		t.Errorf("strategy = %q", resp.Strategy)
	}
	if len(resp.Variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(resp.Variants))
	}
	if resp.Variants[0].OverlapPercent != 3 || resp.Variants[1].OverlapPercent != 5 {
		t.Errorf("variant order = %d, %d", resp.Variants[0].OverlapPercent, resp.Variants[1].OverlapPercent)
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Variants[0].Image)
	if err != nil {
		t.Fatalf("variant image is not base64: %v", err)
	}
	img, err := raster.Decode(raw)
	if err != nil {
		t.Fatalf("decoding variant image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1024 || b.Dy() != 1024 {
		t.Errorf("variant canvas = %dx%d, want 1024x1024", b.Dx(), b.Dy())
	}
}

func TestVariantsNoExtensionNeeded(t *testing.T) {
	pipe := pipeline.New(stubExtender{}, nil)
	srv := server.New(server.Config{}, nil, pipe, nil)

	body, ct := multipartUpload(t, "image/png", testImagePNG(t, 50, 50), map[string]string{
		"width":  "100",
		"height": "100",
		"dpi":    "300",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/variants", body)
	req.Header.Set("Content-Type", ct)
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Strategy string  `json:"strategy"`
		Variants []gin.H `json:"variants"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Strategy != "no_extension_needed" {
		t.Errorf("strategy = %q", resp.Strategy)
	}
	if len(resp.Variants) != 0 {
		t.Errorf("variants = %d, want none", len(resp.Variants))
	}
}

func TestPrepareValidation(t *testing.T) {
	srv := newTestServer(nil)
	router := srv.Router()

	t.Run("missing dimensions", func(t *testing.T) {
		body, ct := multipartUpload(t, "image/png", testImagePNG(t, 10, 10), nil)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/prepare", body)
		req.Header.Set("Content-Type", ct)
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("out of range ratio", func(t *testing.T) {
		body, ct := multipartUpload(t, "image/png", testImagePNG(t, 10, 10), map[string]string{
			"width":  "300",
			"height": "100",
			"dpi":    "300",
		})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/prepare", body)
		req.Header.Set("Content-Type", ct)
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("bad number", func(t *testing.T) {
		body, ct := multipartUpload(t, "image/png", testImagePNG(t, 10, 10), map[string]string{
			"width":  "abc",
			"height": "50",
		})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/prepare", body)
		req.Header.Set("Content-Type", ct)
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})
}
