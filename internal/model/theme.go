package model

import (
	"fmt"
	"strings"
)

type Theme string

const (
	ThemeClassic   Theme = "classic"
	ThemeModern    Theme = "modern"
	ThemeCorporate Theme = "corporate"
)

var Themes = []Theme{ThemeClassic, ThemeModern, ThemeCorporate}

// Palette describes how a themed certificate is dressed. Values are tailwind classes and hex colors.
type Palette struct {
	BgGradient      string `json:"bg_gradient"`
	PrimaryColor    string `json:"primary_color"`
	AccentColor     string `json:"accent_color"`
	HighlightColor  string `json:"highlight_color"`
	SealColor       string `json:"seal_color"`
	SealStrokeColor string `json:"seal_stroke_color"`
	DetailsBg       string `json:"details_bg"`
	BorderColor     string `json:"border_color"`
	FontFamily      string `json:"font_family"`
	TitleClass      string `json:"title_class"`
	BadgeBg         string `json:"badge_bg"`
}

var palettes = map[Theme]Palette{
	ThemeClassic: {
		BgGradient:      "from-white to-gray-50",
		PrimaryColor:    "text-gray-800",
		AccentColor:     "text-blue-700",
		HighlightColor:  "text-blue-700",
		SealColor:       "#3b82f6",
		SealStrokeColor: "#2563eb",
		DetailsBg:       "bg-gray-50",
		BorderColor:     "border-gray-200",
		FontFamily:      "font-serif",
		TitleClass:      "font-serif text-3xl text-center",
		BadgeBg:         "bg-blue-500",
	},
	ThemeModern: {
		BgGradient:      "from-white to-slate-50",
		PrimaryColor:    "text-black",
		AccentColor:     "text-black",
		HighlightColor:  "text-gray-800",
		SealColor:       "#000000",
		SealStrokeColor: "#000000",
		DetailsBg:       "bg-gray-50",
		BorderColor:     "border-gray-200",
		FontFamily:      "font-sans",
		TitleClass:      "font-sans text-4xl font-black tracking-tight text-center",
		BadgeBg:         "bg-black",
	},
	ThemeCorporate: {
		BgGradient:      "from-white to-sky-50",
		PrimaryColor:    "text-gray-900",
		AccentColor:     "text-sky-700",
		HighlightColor:  "text-sky-700",
		SealColor:       "#0284c7",
		SealStrokeColor: "#0369a1",
		DetailsBg:       "bg-sky-50",
		BorderColor:     "border-gray-200",
		FontFamily:      "font-sans",
		TitleClass:      "font-sans text-3xl font-bold text-center",
		BadgeBg:         "bg-sky-600",
	},
}

func (t Theme) Valid() bool {
	_, ok := palettes[t]
	return ok
}

func (t Theme) Palette() Palette {
	return palettes[t.OrDefault()]
}

// OrDefault maps anything outside the enumerated set to classic.
func (t Theme) OrDefault() Theme {
	if t.Valid() {
		return t
	}
	return ThemeClassic
}

func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.TrimSpace(s))
	if !t.Valid() {
		return "", fmt.Errorf("invalid theme option %q. Must be one of: %s", s, ThemeList())
	}
	return t, nil
}

func ThemeList() string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
