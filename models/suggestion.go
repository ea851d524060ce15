package models

import (
	"errors"
	"fmt"
	"strings"
)

// SuggestionCount is the fixed number of partner outfits returned by one analysis.
const SuggestionCount = 3

type StyleCategory int

const (
	ToneOnTone StyleCategory = iota
	Contrast
	Matching
)

// StyleCategories lists the categories in the order an analysis must return them.
var StyleCategories = []StyleCategory{ToneOnTone, Contrast, Matching}

func (c StyleCategory) String() string {
	switch c {
	case ToneOnTone:
		return "tone_on_tone"
	case Contrast:
		return "contrast"
	case Matching:
		return "matching"
	default:
		return "unknown"
	}
}

type StyleLabels struct {
	Chinese string
	English string
}

var styleLabels = map[StyleCategory]StyleLabels{
	ToneOnTone: {Chinese: "同色系和諧風", English: "Tone-on-Tone"},
	Contrast:   {Chinese: "時尚對比風", English: "Contrast & Depth"},
	Matching:   {Chinese: "簡約情侶裝", English: "Matching Vibe"},
}

func (c StyleCategory) Labels() StyleLabels {
	return styleLabels[c]
}

// Accepts reports whether a model-produced style name names this category.
func (c StyleCategory) Accepts(name string) bool {
	labels, ok := styleLabels[c]
	if !ok {
		return false
	}
	name = strings.TrimSpace(name)
	return name == labels.Chinese || strings.EqualFold(name, labels.English)
}

var (
	ErrWrongSuggestionCount = errors.New("analysis must contain exactly 3 suggestions")
	ErrStyleOrder           = errors.New("suggestion style does not match its position")
)

type OutfitSuggestion struct {
	StyleName                string        `json:"styleName" validate:"required"`
	PartnerOutfitDescription string        `json:"partnerOutfitDescription" validate:"required"`
	FashionAdvice            string        `json:"fashionAdvice" validate:"required"`
	ImageGenerationPrompt    string        `json:"imageGenerationPrompt" validate:"required"`
	StyleKeywords            []string      `json:"styleKeywords" validate:"min=3,max=5,dive,required"`
	Category                 StyleCategory `json:"category"`
}

type OutfitAnalysis struct {
	Suggestions []OutfitSuggestion `json:"suggestions" validate:"required,dive"`
}

// Normalize trims every free-text field so blank values fail validation.
func (a *OutfitAnalysis) Normalize() {
	for i := range a.Suggestions {
		s := &a.Suggestions[i]
		s.StyleName = strings.TrimSpace(s.StyleName)
		s.PartnerOutfitDescription = strings.TrimSpace(s.PartnerOutfitDescription)
		s.FashionAdvice = strings.TrimSpace(s.FashionAdvice)
		s.ImageGenerationPrompt = strings.TrimSpace(s.ImageGenerationPrompt)
		for k := range s.StyleKeywords {
			s.StyleKeywords[k] = strings.TrimSpace(s.StyleKeywords[k])
		}
	}
}

// AssignCategories checks the fixed category order and stamps each suggestion with it.
func (a *OutfitAnalysis) AssignCategories() error {
	if len(a.Suggestions) != SuggestionCount {
		return fmt.Errorf("%w: got %d", ErrWrongSuggestionCount, len(a.Suggestions))
	}
	for i, category := range StyleCategories {
		if !category.Accepts(a.Suggestions[i].StyleName) {
			return fmt.Errorf("%w: index %d has %q, want %s", ErrStyleOrder, i, a.Suggestions[i].StyleName, category)
		}
		a.Suggestions[i].Category = category
	}
	return nil
}
