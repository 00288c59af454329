//go:build tesseract

package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"ocrcache/internal/recognition"
)

func init() {
	recognition.Register(New())
}

// Engine runs Tesseract on single images.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract engine.
func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Supports(format recognition.Format) bool {
	switch format {
	case recognition.FormatPNG, recognition.FormatJPEG, recognition.FormatTIFF:
		return true
	}
	return false
}

// Recognize reads one image. Each text line becomes a block with the mean
// confidence Tesseract reports for it, scaled to 0..1.
func (e *Engine) Recognize(ctx context.Context, in recognition.Input) (recognition.Result, error) {
	if !e.Supports(in.Format) {
		return recognition.Result{}, fmt.Errorf("%w: tesseract cannot read %s", recognition.ErrUnsupportedInput, in.Format)
	}
	if err := ctx.Err(); err != nil {
		return recognition.Result{}, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(in.Data); err != nil {
		return recognition.Result{}, fmt.Errorf("set image: %w", err)
	}
	if langs := languageCodes(in.Settings.Languages()); len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return recognition.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if in.Settings.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.Settings.DPI)); err != nil {
			return recognition.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	if in.Settings.UseAngleCls {
		if err := c.SetPageSegMode(gosseract.PSM_AUTO_OSD); err != nil {
			return recognition.Result{}, fmt.Errorf("set page segmentation: %w", err)
		}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return recognition.Result{}, fmt.Errorf("recognize text: %w", err)
	}

	page := recognition.Page{Number: 1, Blocks: make([]recognition.Block, 0, len(boxes))}
	lines := make([]string, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, text)
		page.Blocks = append(page.Blocks, recognition.Block{
			Text:       text,
			Confidence: b.Confidence / 100.0,
			Box: &recognition.Box{
				X:      float64(b.Box.Min.X),
				Y:      float64(b.Box.Min.Y),
				Width:  float64(b.Box.Dx()),
				Height: float64(b.Box.Dy()),
			},
		})
	}
	page.Text = strings.Join(lines, "\n")
	return recognition.Result{Engine: e.Name(), Pages: []recognition.Page{page}}, nil
}
