package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"github.com/BuragaIonut/daisler/observability"
	"github.com/BuragaIonut/daisler/pipeline"
	"github.com/BuragaIonut/daisler/raster"
	"github.com/BuragaIonut/daisler/rasterize"
	"github.com/BuragaIonut/daisler/trimbox"
	"github.com/BuragaIonut/daisler/units"
)

const (
	// analyzeRenderDPI renders PDF pages at twice the PDF point density so
	// the vision model sees enough detail.
	analyzeRenderDPI = 144

	defaultBleedPx = 30
)

var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// cutRectColor is the preview outline drawn by /process.
var cutRectColor = color.NRGBA{R: 60, G: 235, B: 120, A: 255}

func readUpload(c *gin.Context) ([]byte, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("missing file upload: %w", err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, fh.Header.Get("Content-Type"), nil
}

func (s *Server) handleAnalyze(c *gin.Context) {
	if s.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis is not configured"})
		return
	}
	useCase := c.PostForm("use_case")
	if useCase == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "use_case is required"})
		return
	}
	data, contentType, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !imageContentTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}
	img, err := raster.Decode(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data"})
		return
	}

	report, err := s.analyzer.AnalyzeImage(c.Request.Context(), img, useCase)
	if err != nil {
		s.log.Error("analysis failed", observability.Error("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": report.Markdown, "html": report.HTML})
}

func (s *Server) handleAnalyzePDF(c *gin.Context) {
	if s.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis is not configured"})
		return
	}
	data, contentType, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if contentType != "application/pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type; expected application/pdf"})
		return
	}

	img, err := rasterize.Page(c.Request.Context(), data, 0, analyzeRenderDPI)
	if errors.Is(err, rasterize.ErrUnavailable) {
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid PDF: %v", err)})
		return
	}

	useCase := c.PostForm("use_case")
	if useCase == "" {
		useCase = "PDF page analysis"
	}
	report, err := s.analyzer.AnalyzeImage(c.Request.Context(), img, useCase)
	if err != nil {
		s.log.Error("analysis failed", observability.Error("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": report.Markdown, "html": report.HTML})
}

// handleProcess answers a mirror-bleed preview: the source padded on every
// side with the cut rectangle drawn over the original content.
func (s *Server) handleProcess(c *gin.Context) {
	data, contentType, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !imageContentTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}
	img, err := raster.Decode(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data"})
		return
	}

	pad := defaultBleedPx
	if v := c.PostForm("bleed_px"); v != "" {
		pad, err = strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bleed_px must be an integer"})
			return
		}
	}
	pad = max(pad, 0)

	expanded, box := raster.AddMirrorBleed(img, pad)
	preview := drawCutRect(expanded, box, 2)

	out, err := raster.Encode(preview, raster.PNG)
	if err != nil {
		s.log.Error("preview encoding failed", observability.Error("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", out)
}

func (s *Server) handlePrepare(c *gin.Context) {
	if s.pipe == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline is not configured"})
		return
	}
	data, contentType, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !imageContentTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}
	img, err := raster.Decode(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data"})
		return
	}

	params, err := prepareParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.pipe.Run(c.Request.Context(), img, params)
	if err != nil {
		s.abortError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="print_ready.pdf"`)
	c.Header("X-Extension-Strategy", res.Strategy.String())
	c.Data(http.StatusOK, "application/pdf", res.PDF)
}

// handleVariants runs the extension stage across several overlap
// percentages and answers the candidate canvases as base64 PNG, so a
// client can let the user pick a blend before committing to /prepare.
func (s *Server) handleVariants(c *gin.Context) {
	if s.pipe == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline is not configured"})
		return
	}
	data, contentType, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !imageContentTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}
	img, err := raster.Decode(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data"})
		return
	}
	params, err := prepareParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	percents, err := overlapList(c.PostForm("overlaps"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	strategy, variants, err := s.pipe.RunVariants(c.Request.Context(), img, params, percents)
	if errors.Is(err, pipeline.ErrNoExtensionNeeded) {
		c.JSON(http.StatusOK, gin.H{"strategy": strategy.String(), "variants": []gin.H{}})
		return
	}
	if err != nil {
		s.abortError(c, err)
		return
	}

	out := make([]gin.H, 0, len(variants))
	for _, v := range variants {
		png, err := raster.Encode(v.Image, raster.PNG)
		if err != nil {
			s.log.Error("variant encoding failed", observability.Error("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out = append(out, gin.H{
			"overlap_percent": v.OverlapPercent,
			"image":           base64.StdEncoding.EncodeToString(png),
		})
	}
	c.JSON(http.StatusOK, gin.H{"strategy": strategy.String(), "variants": out})
}

// overlapList parses a comma-separated list of overlap percentages; empty
// input selects the default set.
func overlapList(v string) ([]int, error) {
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	percents := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 100 {
			return nil, fmt.Errorf("overlaps must be percentages in [0, 100], got %q", p)
		}
		percents = append(percents, n)
	}
	return percents, nil
}

func prepareParams(c *gin.Context) (pipeline.Params, error) {
	var p pipeline.Params

	width, err := formFloat(c, "width", 0)
	if err != nil {
		return p, err
	}
	height, err := formFloat(c, "height", 0)
	if err != nil {
		return p, err
	}
	dpi, err := formFloat(c, "dpi", 300)
	if err != nil {
		return p, err
	}
	bleed, err := formFloat(c, "bleed_mm", 0)
	if err != nil {
		return p, err
	}
	unit, err := units.ParseUnit(c.DefaultPostForm("unit", string(units.Millimetre)))
	if err != nil {
		return p, err
	}
	overlap := 0
	if v := c.PostForm("overlap_percent"); v != "" {
		overlap, err = strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("overlap_percent must be an integer")
		}
	}

	p.Width = width
	p.Height = height
	p.Unit = unit
	p.DPI = dpi
	p.BleedMM = bleed
	p.OverlapPercent = overlap
	p.ConvertCMYK = c.PostForm("cmyk") == "true"
	return p, nil
}

func formFloat(c *gin.Context, field string, def float64) (float64, error) {
	v := c.PostForm(field)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", field)
	}
	return f, nil
}

// drawCutRect clones img and draws a rectangle outline on the inner edge of
// box, thickness pixels wide growing inward.
func drawCutRect(img image.Image, box trimbox.Box, thickness int) *image.NRGBA {
	dst := imaging.Clone(img)
	for t := 0; t < thickness; t++ {
		x1, y1 := box.X1+t, box.Y1+t
		x2, y2 := box.X2-1-t, box.Y2-1-t
		if x1 > x2 || y1 > y2 {
			break
		}
		for x := x1; x <= x2; x++ {
			dst.SetNRGBA(x, y1, cutRectColor)
			dst.SetNRGBA(x, y2, cutRectColor)
		}
		for y := y1; y <= y2; y++ {
			dst.SetNRGBA(x1, y, cutRectColor)
			dst.SetNRGBA(x2, y, cutRectColor)
		}
	}
	return dst
}
