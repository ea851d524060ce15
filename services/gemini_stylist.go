package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"studioguideapi/languageutil"
	"studioguideapi/models"

	"github.com/go-playground/validator"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/text/language"
	"google.golang.org/genai"
)

// LLMModelName is the Gemini model a request is sent to.
type LLMModelName int32

const (
	Flash25 LLMModelName = iota
	Flash25Image
)

func (t LLMModelName) String() string {
	switch t {
	case Flash25:
		return "gemini-2.5-flash"
	case Flash25Image:
		return "gemini-2.5-flash-image"
	default:
		return "gemini-2.5-flash"
	}
}

const partnerLookAspectRatio = "3:4"

var (
	ErrAnalysisFailed   = errors.New("outfit analysis failed")
	ErrNoImageGenerated = errors.New("no image generated")
	ErrContentBlocked   = errors.New("content blocked by safety settings")
)

type StylistOptions struct {
	AnalysisModel string
	ImageModel    string
	Logger        zerolog.Logger
}

// GeminiStylist talks to Gemini for outfit analysis, partner look generation
// and background normalization. All calls share one circuit breaker.
type GeminiStylist struct {
	client        *genai.Client
	analysisModel string
	imageModel    string
	breaker       *gobreaker.CircuitBreaker
	log           zerolog.Logger
	validate      *validator.Validate
}

// NewGeminiClient builds a Gemini API client. baseURL is only set in tests.
func NewGeminiClient(ctx context.Context, apiKey string, baseURL string) (*genai.Client, error) {
	config := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

func NewGeminiStylist(client *genai.Client, opts StylistOptions) *GeminiStylist {
	if opts.AnalysisModel == "" {
		opts.AnalysisModel = Flash25.String()
	}
	if opts.ImageModel == "" {
		opts.ImageModel = Flash25Image.String()
	}
	logger := opts.Logger.With().Str("component", "gemini_stylist").Logger()

	settings := gobreaker.Settings{
		Name:        "gemini-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a user leaving the page is not an upstream failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}

	return &GeminiStylist{
		client:        client,
		analysisModel: opts.AnalysisModel,
		imageModel:    opts.ImageModel,
		breaker:       gobreaker.NewCircuitBreaker(settings),
		log:           logger,
		validate:      validator.New(),
	}
}

func (s *GeminiStylist) generate(ctx context.Context, model string, parts []*genai.Part, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Models.GenerateContent(ctx, model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	})
	if err != nil {
		return nil, err
	}
	response := result.(*genai.GenerateContentResponse)

	if response.UsageMetadata != nil {
		s.log.Debug().
			Str("model", model).
			Int32("input_tokens", response.UsageMetadata.PromptTokenCount).
			Int32("output_tokens", response.UsageMetadata.CandidatesTokenCount).
			Int32("total_tokens", response.UsageMetadata.TotalTokenCount).
			Msg("gemini usage")
	}
	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s %s", ErrContentBlocked, response.PromptFeedback.BlockReason, response.PromptFeedback.BlockReasonMessage)
	}
	return response, nil
}

func analysisSchema(locale language.Tag) *genai.Schema {
	text := &genai.Schema{Type: genai.TypeString}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"suggestions": {
				Type:     genai.TypeArray,
				MinItems: genai.Ptr[int64](models.SuggestionCount),
				MaxItems: genai.Ptr[int64](models.SuggestionCount),
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"styleName":                {Type: genai.TypeString, Enum: styleNames(locale)},
						"partnerOutfitDescription": text,
						"fashionAdvice":            text,
						"imageGenerationPrompt":    text,
						"styleKeywords": {
							Type:     genai.TypeArray,
							Items:    text,
							MinItems: genai.Ptr[int64](3),
							MaxItems: genai.Ptr[int64](5),
						},
					},
					Required:         []string{"styleName", "partnerOutfitDescription", "fashionAdvice", "imageGenerationPrompt", "styleKeywords"},
					PropertyOrdering: []string{"styleName", "partnerOutfitDescription", "fashionAdvice", "imageGenerationPrompt", "styleKeywords"},
				},
			},
		},
		Required: []string{"suggestions"},
	}
}

// AnalyzeOutfit asks for exactly three partner outfits, one per style category
// and in category order. Anything else is reported as ErrAnalysisFailed.
func (s *GeminiStylist) AnalyzeOutfit(ctx context.Context, image models.ImagePayload, userGender, partnerGender models.Gender, locale language.Tag) (*models.OutfitAnalysis, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(image.Data, image.MIMEType),
		genai.NewPartFromText(buildAnalysisPrompt(userGender, partnerGender, locale)),
	}
	response, err := s.generate(ctx, s.analysisModel, parts, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema(locale),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	text := cleanAIResponseText(response.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrAnalysisFailed)
	}
	var analysis models.OutfitAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %w", ErrAnalysisFailed, err)
	}
	analysis.Normalize()
	if err := s.validate.Struct(&analysis); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	if err := analysis.AssignCategories(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	if languageutil.IsEnglish(locale) {
		for i := range analysis.Suggestions {
			analysis.Suggestions[i].StyleKeywords = languageutil.NormalizeKeywords(analysis.Suggestions[i].StyleKeywords)
		}
	}
	return &analysis, nil
}

// GeneratePartnerLook renders a full body studio shot of the partner outfit.
func (s *GeminiStylist) GeneratePartnerLook(ctx context.Context, prompt string) (*models.ImagePayload, error) {
	parts := []*genai.Part{genai.NewPartFromText(buildPartnerLookPrompt(prompt))}
	response, err := s.generate(ctx, s.imageModel, parts, &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: partnerLookAspectRatio},
	})
	if err != nil {
		return nil, err
	}
	img := GetFirstInlineImage(response)
	if img == nil {
		return nil, ErrNoImageGenerated
	}
	return img, nil
}

// NormalizeBackground swaps the photo background for plain studio white.
// It never fails; on any error the input image is returned unchanged.
func (s *GeminiStylist) NormalizeBackground(ctx context.Context, image models.ImagePayload) models.ImagePayload {
	parts := []*genai.Part{
		genai.NewPartFromBytes(image.Data, image.MIMEType),
		genai.NewPartFromText(whiteBackgroundPrompt),
	}
	response, err := s.generate(ctx, s.imageModel, parts, &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: partnerLookAspectRatio},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("background normalization failed, keeping original photo")
		return image
	}
	img := GetFirstInlineImage(response)
	if img == nil {
		s.log.Warn().Msg("background normalization returned no image, keeping original photo")
		return image
	}
	return *img
}

// GetFirstInlineImage returns the first inline image part of the first
// candidate, or nil.
func GetFirstInlineImage(result *genai.GenerateContentResponse) *models.ImagePayload {
	if result == nil || len(result.Candidates) == 0 {
		return nil
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil {
		return nil
	}
	for _, part := range candidate.Content.Parts {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		if !strings.HasPrefix(mime, "image/") {
			continue
		}
		return &models.ImagePayload{MIMEType: mime, Data: part.InlineData.Data}
	}
	return nil
}

func cleanAIResponseText(text string) string {
	cleanContent := strings.TrimSpace(text)
	cleanContent = strings.TrimPrefix(cleanContent, "```json")
	cleanContent = strings.TrimPrefix(cleanContent, "```")
	cleanContent = strings.TrimSuffix(cleanContent, "```")
	return strings.TrimSpace(cleanContent)
}
