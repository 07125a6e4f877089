package config

import (
	"fmt"
	"strconv"
	"strings"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/foundation/normalization"
	"git.home.luguber.info/inful/faultline/internal/severity"
)

// Mode is the presentation mode of a rendered fault.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeOverlay Mode = "overlay"
	ModeAppend  Mode = "append"
)

// Modes lists every presentation mode.
var Modes = []Mode{ModeFull, ModeOverlay, ModeAppend}

var modeNormalizer = normalization.NewNormalizer("presentation mode", map[string]Mode{
	"full":    ModeFull,
	"page":    ModeFull,
	"overlay": ModeOverlay,
	"append":  ModeAppend,
	"inline":  ModeAppend,
}, ModeFull)

// NormalizeMode parses a presentation mode.
func NormalizeMode(raw string) (Mode, error) {
	return modeNormalizer.NormalizeWithError(raw)
}

// Environment selects development or production rendering.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

var envNormalizer = normalization.NewNormalizer("environment", map[string]Environment{
	"development": EnvDevelopment,
	"dev":         EnvDevelopment,
	"local":       EnvDevelopment,
	"production":  EnvProduction,
	"prod":        EnvProduction,
}, EnvProduction)

// NormalizeEnvironment parses an environment name.
func NormalizeEnvironment(raw string) (Environment, error) {
	return envNormalizer.NormalizeWithError(raw)
}

// RenderConfig controls the fault pipeline. It is built once and never
// consulted mid-pipeline.
type RenderConfig struct {
	Environment               Environment     `yaml:"environment"`
	ConvertRecoverableToFatal bool            `yaml:"convert_recoverable_to_fatal"`
	DisplayEnabled            bool            `yaml:"display"`
	LogEnabled                bool            `yaml:"log_enabled"`
	LogThreshold              severity.Code   `yaml:"log_threshold"`
	PresentationMode          Mode            `yaml:"mode"`
	TemplatePathByMode        map[Mode]string `yaml:"templates,omitempty"`
	FallbackTemplatePath      string          `yaml:"fallback_template,omitempty"`
	DebugPanel                bool            `yaml:"debug_panel"`
	SnippetRadius             int             `yaml:"snippet_radius"`
}

// Development reports whether development rendering applies.
func (c RenderConfig) Development() bool { return c.Environment == EnvDevelopment }

// DefaultSnippetRadius is the number of lines shown on each side of the
// faulting line.
const DefaultSnippetRadius = 5

// Keys read by NewRenderConfig.
const (
	KeyEnvironment    = "environment"
	KeyConvertToFatal = "render.convert_recoverable_to_fatal"
	KeyDisplay        = "render.display"
	KeyLogEnabled     = "render.log.enabled"
	KeyLogThreshold   = "render.log.threshold"
	KeyMode           = "render.mode"
	KeyTemplatePrefix = "render.templates."
	KeyFallback       = "render.fallback_template"
	KeyDebugPanel     = "render.debug_panel"
	KeySnippetRadius  = "render.snippet_radius"
)

// NewRenderConfig reads a RenderConfig from src. Display defaults to on in
// development and off in production.
func NewRenderConfig(src Source) (RenderConfig, error) {
	var rc RenderConfig
	var err error

	if rc.Environment, err = NormalizeEnvironment(String(src, KeyEnvironment, "")); err != nil {
		return rc, invalid(KeyEnvironment, err)
	}
	if rc.PresentationMode, err = NormalizeMode(String(src, KeyMode, "")); err != nil {
		return rc, invalid(KeyMode, err)
	}
	if rc.ConvertRecoverableToFatal, err = Bool(src, KeyConvertToFatal, false); err != nil {
		return rc, invalid(KeyConvertToFatal, err)
	}
	if rc.DisplayEnabled, err = Bool(src, KeyDisplay, rc.Development()); err != nil {
		return rc, invalid(KeyDisplay, err)
	}
	if rc.LogEnabled, err = Bool(src, KeyLogEnabled, true); err != nil {
		return rc, invalid(KeyLogEnabled, err)
	}
	if rc.DebugPanel, err = Bool(src, KeyDebugPanel, true); err != nil {
		return rc, invalid(KeyDebugPanel, err)
	}
	if rc.SnippetRadius, err = Int(src, KeySnippetRadius, DefaultSnippetRadius); err != nil {
		return rc, invalid(KeySnippetRadius, err)
	}
	if rc.SnippetRadius < 0 {
		return rc, invalid(KeySnippetRadius, fmt.Errorf("must not be negative"))
	}
	if rc.LogThreshold, err = ParseThreshold(src.Get(KeyLogThreshold, nil)); err != nil {
		return rc, invalid(KeyLogThreshold, err)
	}

	for _, m := range Modes {
		if p := String(src, KeyTemplatePrefix+string(m), ""); p != "" {
			if rc.TemplatePathByMode == nil {
				rc.TemplatePathByMode = map[Mode]string{}
			}
			rc.TemplatePathByMode[m] = p
		}
	}
	rc.FallbackTemplatePath = String(src, KeyFallback, "")
	return rc, nil
}

func invalid(key string, err error) error {
	return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid render configuration").
		WithContext("key", key).
		Build()
}

// ParseThreshold accepts an integer mask, a label expression such as
// "ERROR|WARNING" (an optional "E_" prefix is ignored; "ALL" means every
// code) or a list of either. nil yields every code. A mask selecting no code
// is rejected; logging is switched off with render.log.enabled instead.
func ParseThreshold(v any) (severity.Code, error) {
	mask, err := parseThreshold(v)
	if err != nil {
		return 0, err
	}
	if mask <= 0 {
		return 0, fmt.Errorf("threshold %v selects no severity", v)
	}
	return mask, nil
}

func parseThreshold(v any) (severity.Code, error) {
	switch t := v.(type) {
	case nil:
		return severity.CodeAll, nil
	case int:
		return severity.Code(t), nil
	case severity.Code:
		return t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return severity.CodeAll, nil
		}
		return parseThresholdParts(strings.FieldsFunc(t, func(r rune) bool { return r == '|' || r == ',' }))
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return parseThresholdParts(parts)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func parseThresholdParts(parts []string) (severity.Code, error) {
	var mask severity.Code
	for _, p := range parts {
		p = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(p)), "E_")
		if p == "" {
			continue
		}
		if p == "ALL" {
			mask |= severity.CodeAll
			continue
		}
		if n, err := strconv.Atoi(p); err == nil {
			mask |= severity.Code(n)
			continue
		}
		code, ok := severity.ParseLabel(p)
		if !ok {
			return 0, fmt.Errorf("unknown severity %q", p)
		}
		mask |= code
	}
	return mask, nil
}
