// SPDX-License-Identifier: Apache-2.0

// Package render produces placeholder preview images for each iteration.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kusari-oss/cadsmith/internal/core/config"
	"github.com/kusari-oss/cadsmith/internal/core/models"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const requirementPreview = 60

var (
	background = color.RGBA{R: 8, G: 20, B: 40, A: 255}
	foreground = color.RGBA{R: 240, G: 240, B: 240, A: 255}
)

// Renderer writes one PNG per configured view
type Renderer struct {
	cfg    config.RendererConfig
	dir    string
	logger *slog.Logger
}

// New creates a Renderer writing into dir
func New(cfg config.RendererConfig, dir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{cfg: cfg, dir: dir, logger: logger}
}

// Render draws every view for the iteration, overwriting earlier files.
// Failures are logged and the affected view is left out of the result.
func (r *Renderer) Render(ctx context.Context, requirement string, iteration int) []models.RenderResult {
	if !r.cfg.Enabled {
		return nil
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		r.logger.Error("failed to create render directory", "path", r.dir, "error", err)
		return nil
	}

	var results []models.RenderResult
	for _, view := range r.cfg.Views {
		if ctx.Err() != nil {
			break
		}
		path := filepath.Join(r.dir, fmt.Sprintf("%02d_%s.png", iteration, view))
		if err := r.drawPlaceholder(requirement, view, path); err != nil {
			r.logger.Warn("failed to render view", "view", view, "path", path, "error", err)
			continue
		}
		r.logger.Info("rendered view", "view", view, "path", path)
		results = append(results, models.RenderResult{View: view, ImagePath: path})
	}
	return results
}

func (r *Renderer) drawPlaceholder(requirement, view, path string) error {
	img := image.NewRGBA(image.Rect(0, 0, r.cfg.Width, r.cfg.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(foreground), Face: face}
	lineHeight := face.Metrics().Height.Ceil() + 4
	for i, line := range []string{
		fmt.Sprintf("Requirement: %s...", truncate(requirement, requirementPreview)),
		fmt.Sprintf("View: %s", view),
	} {
		d.Dot = fixed.P(20, 20+face.Metrics().Ascent.Ceil()+i*lineHeight)
		d.DrawString(line)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("error encoding image: %w", err)
	}
	return f.Close()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
