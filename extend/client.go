package extend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/BuragaIonut/daisler/observability"
	"github.com/BuragaIonut/daisler/raster"
)

const serviceName = "outpaint"

// DefaultCallTimeout bounds a single inference call.
const DefaultCallTimeout = 120 * time.Second

// Client talks to the outpainting HTTP deployment. A call uploads the source
// image plus the geometric parameters as a multipart form to /infer and
// receives the extended image and its generation mask base64-encoded.
type Client struct {
	baseURL string
	http    *http.Client
	log     observability.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log observability.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient returns a client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultCallTimeout},
		log:     observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type inferResponse struct {
	Image string `json:"image"`
	Mask  string `json:"mask"`
}

// Extend implements Extender.
func (c *Client) Extend(ctx context.Context, req Request) (Result, error) {
	body, contentType, err := encodeForm(req)
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/infer", body)
	if err != nil {
		return Result{}, &ExternalServiceError{Service: serviceName, Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)

	c.log.Debug("outpaint call",
		observability.Int("target_width", req.TargetWidth),
		observability.Int("target_height", req.TargetHeight),
		observability.Int("overlap_percent", req.OverlapPercent))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Result{}, &ExternalServiceError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, &ExternalServiceError{
			Service: serviceName,
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, snippet),
		}
	}

	var decoded inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, &ExternalServiceError{Service: serviceName, Err: fmt.Errorf("decode response: %w", err)}
	}

	img, err := decodeBase64Image(decoded.Image)
	if err != nil {
		return Result{}, &ExternalServiceError{Service: serviceName, Err: fmt.Errorf("decode image: %w", err)}
	}
	var mask image.Image
	if decoded.Mask != "" {
		mask, err = decodeBase64Image(decoded.Mask)
		if err != nil {
			return Result{}, &ExternalServiceError{Service: serviceName, Err: fmt.Errorf("decode mask: %w", err)}
		}
	}
	return Result{Image: img, Mask: mask}, nil
}

func encodeForm(req Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", "source.png")
	if err != nil {
		return nil, "", err
	}
	encoded, err := raster.Encode(req.Image, raster.PNG)
	if err != nil {
		return nil, "", fmt.Errorf("encode source image: %w", err)
	}
	if _, err := part.Write(encoded); err != nil {
		return nil, "", err
	}

	steps := req.InferenceSteps
	if steps <= 0 {
		steps = DefaultInferenceSteps
	}
	alignment := req.Alignment
	if alignment == "" {
		alignment = DefaultAlignment
	}
	resize := req.ResizeOption
	if resize == "" {
		resize = DefaultResizeOption
	}

	fields := map[string]string{
		"width":                    strconv.Itoa(req.TargetWidth),
		"height":                   strconv.Itoa(req.TargetHeight),
		"overlap_percentage":       strconv.Itoa(req.OverlapPercent),
		"num_inference_steps":      strconv.Itoa(steps),
		"resize_option":            resize,
		"custom_resize_percentage": "100",
		"prompt_input":             req.Prompt,
		"alignment":                alignment,
		"overlap_left":             strconv.FormatBool(req.Overlap.Left),
		"overlap_right":            strconv.FormatBool(req.Overlap.Right),
		"overlap_top":              strconv.FormatBool(req.Overlap.Top),
		"overlap_bottom":           strconv.FormatBool(req.Overlap.Bottom),
	}
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func decodeBase64Image(s string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return raster.Decode(raw)
}
