package recognition

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedInput reports a file type the selected engine cannot read.
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrUnknownEngine reports an engine name with no registration.
	ErrUnknownEngine = errors.New("unknown recognition engine")
	// ErrFileTooLarge reports an input above the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrInvalidSettings reports an option value outside its accepted range.
	ErrInvalidSettings = errors.New("invalid recognition settings")
)

// Format identifies an input document type by its extension.
type Format string

const (
	FormatText Format = "txt"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatTIFF Format = "tiff"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

var extensionFormats = map[string]Format{
	".txt":  FormatText,
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
}

// FormatFromName maps a filename extension to a Format.
func FormatFromName(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if format, ok := extensionFormats[ext]; ok {
		return format, nil
	}
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedInput, name)
	}
	return "", fmt.Errorf("%w: extension %s", ErrUnsupportedInput, ext)
}

// Box is a rectangle in pixel coordinates, origin at the upper-left corner.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Block is one recognized run of text.
type Block struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Box        *Box    `json:"box,omitempty"`
}

// Page holds the blocks recognized on one page, numbered from 1.
type Page struct {
	Number int     `json:"page"`
	Text   string  `json:"text"`
	Blocks []Block `json:"structured_data"`
}

// Statistics summarizes a Result.
type Statistics struct {
	TotalPages        int     `json:"total_pages"`
	TotalTextBlocks   int     `json:"total_text_blocks"`
	TotalCharacters   int     `json:"total_characters"`
	AverageConfidence float64 `json:"average_confidence"`
	MinConfidence     float64 `json:"min_confidence"`
	MaxConfidence     float64 `json:"max_confidence"`
}

// Result is the cached payload of one recognition pass.
type Result struct {
	Engine     string     `json:"engine"`
	Pages      []Page     `json:"results"`
	Statistics Statistics `json:"statistics"`
}

// Input is one document handed to an engine.
type Input struct {
	Name     string
	Format   Format
	Data     []byte
	Settings Settings
}

// Engine turns a document into recognized text.
type Engine interface {
	Name() string
	Supports(format Format) bool
	Recognize(ctx context.Context, input Input) (Result, error)
}

// ComputeStatistics derives totals and confidence bounds from pages.
func ComputeStatistics(pages []Page) Statistics {
	stats := Statistics{TotalPages: len(pages)}
	var sum float64
	for _, page := range pages {
		for _, block := range page.Blocks {
			stats.TotalCharacters += len([]rune(block.Text))
			if stats.TotalTextBlocks == 0 || block.Confidence < stats.MinConfidence {
				stats.MinConfidence = block.Confidence
			}
			if block.Confidence > stats.MaxConfidence {
				stats.MaxConfidence = block.Confidence
			}
			sum += block.Confidence
			stats.TotalTextBlocks++
		}
	}
	if stats.TotalTextBlocks > 0 {
		stats.AverageConfidence = sum / float64(stats.TotalTextBlocks)
	}
	return stats
}
