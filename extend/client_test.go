package extend_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/BuragaIonut/daisler/extend"
	"github.com/BuragaIonut/daisler/raster"
)

func encodePNG(t *testing.T, w, h int, c color.NRGBA) string {
	t.Helper()
	data, err := raster.Encode(imaging.New(w, h, c), raster.PNG)
	if err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func TestClientExtend(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/infer" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatal(err)
		}
		gotForm = map[string]string{}
		for key, vals := range r.MultipartForm.Value {
			gotForm[key] = vals[0]
		}
		if _, _, err := r.FormFile("image"); err != nil {
			t.Errorf("image file missing: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"image": encodePNG(t, 1280, 960, color.NRGBA{1, 2, 3, 255}),
			"mask":  encodePNG(t, 1280, 960, color.NRGBA{255, 255, 255, 255}),
		})
	}))
	defer srv.Close()

	client := extend.NewClient(srv.URL)
	res, err := client.Extend(context.Background(), extend.Request{
		Image:          imaging.New(640, 480, color.NRGBA{9, 9, 9, 255}),
		TargetWidth:    1280,
		TargetHeight:   960,
		Overlap:        extend.HorizontalOverlap(),
		OverlapPercent: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if b := res.Image.Bounds(); b.Dx() != 1280 || b.Dy() != 960 {
		t.Errorf("image bounds = %v", b)
	}
	if res.Mask == nil {
		t.Error("mask missing")
	}

	want := map[string]string{
		"width":               "1280",
		"height":              "960",
		"overlap_percentage":  "10",
		"num_inference_steps": "12",
		"resize_option":       "Full",
		"alignment":           "Middle",
		"overlap_left":        "true",
		"overlap_right":       "true",
		"overlap_top":         "false",
		"overlap_bottom":      "false",
	}
	for key, val := range want {
		if gotForm[key] != val {
			t.Errorf("form[%s] = %q, want %q", key, gotForm[key], val)
		}
	}
}

func TestClientExtendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := extend.NewClient(srv.URL)
	_, err := client.Extend(context.Background(), extend.Request{
		Image:       imaging.New(8, 8, color.NRGBA{}),
		TargetWidth: 1024, TargetHeight: 1024,
	})
	var svcErr *extend.ExternalServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("err = %v, want ExternalServiceError", err)
	}
}
