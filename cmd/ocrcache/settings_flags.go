package main

import (
	"github.com/spf13/cobra"

	"ocrcache/internal/config"
	"ocrcache/internal/recognition"
)

// settingsFlags overrides configured recognition defaults for one command.
type settingsFlags struct {
	engine       string
	lang         string
	angleCls     bool
	detectTables bool
	threshold    float64
	dpi          int
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.engine, "engine", "", "Recognition engine (text, tesseract)")
	flags.StringVar(&f.lang, "lang", "", "Language hint, '+' separated for several")
	flags.BoolVar(&f.angleCls, "use-angle-cls", true, "Detect text orientation")
	flags.BoolVar(&f.detectTables, "detect-tables", false, "Request table detection")
	flags.Float64Var(&f.threshold, "table-conf-threshold", 0.5, "Table detection confidence threshold")
	flags.IntVar(&f.dpi, "dpi", 0, "Rendering resolution hint")
}

// resolve starts from the configured defaults and applies only flags the
// user set explicitly.
func (f *settingsFlags) resolve(cmd *cobra.Command, cfg *config.Config) recognition.Settings {
	s := recognition.SettingsFromConfig(cfg)
	flags := cmd.Flags()
	if flags.Changed("engine") {
		s.Engine = f.engine
	}
	if flags.Changed("lang") {
		s.Language = f.lang
	}
	if flags.Changed("use-angle-cls") {
		s.UseAngleCls = f.angleCls
	}
	if flags.Changed("detect-tables") {
		s.DetectTables = f.detectTables
	}
	if flags.Changed("table-conf-threshold") {
		s.TableConfThreshold = f.threshold
	}
	if flags.Changed("dpi") {
		s.DPI = f.dpi
	}
	return s.Normalize()
}
