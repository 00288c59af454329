package recognition

import (
	"fmt"
	"strings"

	"ocrcache/internal/config"
	"ocrcache/internal/resultcache"
)

// Settings are the recognition options that affect output. Every field feeds
// the cache key, so two requests share a cached result only when all match.
type Settings struct {
	Engine             string
	Language           string
	UseAngleCls        bool
	DetectTables       bool
	TableConfThreshold float64
	DPI                int
}

// SettingsFromConfig returns the configured defaults. Multiple languages are
// joined with '+'.
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	rc := cfg.Recognition
	return Settings{
		Engine:             rc.Engine,
		Language:           strings.Join(rc.Languages, "+"),
		UseAngleCls:        rc.UseAngleCls,
		DetectTables:       rc.DetectTables,
		TableConfThreshold: rc.TableConfThreshold,
		DPI:                rc.DPI,
	}.Normalize()
}

// Normalize trims and lowercases names so equivalent requests derive the
// same key.
func (s Settings) Normalize() Settings {
	s.Engine = strings.ToLower(strings.TrimSpace(s.Engine))
	if s.Engine == "" {
		s.Engine = "text"
	}
	s.Language = strings.TrimSpace(s.Language)
	return s
}

// Validate rejects option values no engine accepts.
func (s Settings) Validate() error {
	// NaN fails both comparisons and must not reach key derivation.
	if !(s.TableConfThreshold >= 0 && s.TableConfThreshold <= 1) {
		return fmt.Errorf("%w: table_conf_threshold must be between 0 and 1, got %v", ErrInvalidSettings, s.TableConfThreshold)
	}
	if s.DPI < 0 {
		return fmt.Errorf("%w: dpi must be non-negative, got %d", ErrInvalidSettings, s.DPI)
	}
	return nil
}

// Params converts the settings into cache key input.
func (s Settings) Params() resultcache.Params {
	return resultcache.Params{
		"engine":               s.Engine,
		"lang":                 s.Language,
		"use_angle_cls":        s.UseAngleCls,
		"detect_tables":        s.DetectTables,
		"table_conf_threshold": s.TableConfThreshold,
		"dpi":                  s.DPI,
	}
}

// Languages splits Language on '+'.
func (s Settings) Languages() []string {
	var out []string
	for _, part := range strings.Split(s.Language, "+") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
