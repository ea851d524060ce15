package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"studioguideapi/models"

	"golang.org/x/text/language"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func NewJSONAuthRequest(method string, target string, token string, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	if token != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	return req
}

func NewImageUploadRequest(target string, token string, fieldName string, fileName string, content []byte) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fieldName, fileName)
	if err != nil {
		log.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(content)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	return req
}

// FakePNG renders a solid colored PNG of the given size.
func FakePNG(width, height int, fill color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Fatalf("Failed to encode fake png: %v", err)
	}
	return buf.Bytes()
}

func FakeAnalysis() *models.OutfitAnalysis {
	return &models.OutfitAnalysis{
		Suggestions: []models.OutfitSuggestion{
			{
				StyleName:                "同色系和諧風",
				PartnerOutfitDescription: "米白色亞麻恤衫配卡其色西褲",
				FashionAdvice:            "大地色系令畫面柔和統一",
				ImageGenerationPrompt:    "a man in a cream linen shirt and khaki trousers",
				StyleKeywords:            []string{"Clean", "Soft", "Timeless"},
				Category:                 models.ToneOnTone,
			},
			{
				StyleName:                "時尚對比風",
				PartnerOutfitDescription: "黑色針織衫配白色直筒褲",
				FashionAdvice:            "黑白對比突出兩人個性",
				ImageGenerationPrompt:    "a man in a black knit sweater and white straight trousers",
				StyleKeywords:            []string{"Bold", "Balanced", "Modern"},
				Category:                 models.Contrast,
			},
			{
				StyleName:                "簡約情侶裝",
				PartnerOutfitDescription: "白色T恤配淺藍牛仔褲",
				FashionAdvice:            "相同單品建立視覺連結",
				ImageGenerationPrompt:    "a man in a plain white t-shirt and light blue jeans",
				StyleKeywords:            []string{"Casual", "Together", "Fresh", "Denim"},
				Category:                 models.Matching,
			},
		},
	}
}

// StylistMock is an in-memory stylist. Hold channels, when set, block the
// matching call until a value is received or the context is cancelled.
type StylistMock struct {
	mu sync.Mutex

	Analysis       *models.OutfitAnalysis
	AnalysisErr    error
	GenerateErr    error
	NormalizeFails bool

	AnalyzeHold   chan struct{}
	GenerateHold  chan struct{}
	NormalizeHold chan struct{}

	AnalyzeCalls   int
	NormalizeCalls int
	GenerateCalls  map[string]int
	LastLocale     language.Tag
	LastGenders    [2]models.Gender
}

func NewStylistMock() *StylistMock {
	return &StylistMock{Analysis: FakeAnalysis(), GenerateCalls: map[string]int{}}
}

func wait(ctx context.Context, hold chan struct{}) error {
	if hold == nil {
		return nil
	}
	select {
	case <-hold:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *StylistMock) AnalyzeOutfit(ctx context.Context, img models.ImagePayload, userGender, partnerGender models.Gender, locale language.Tag) (*models.OutfitAnalysis, error) {
	m.mu.Lock()
	m.AnalyzeCalls++
	m.LastLocale = locale
	m.LastGenders = [2]models.Gender{userGender, partnerGender}
	hold, analysis, analysisErr := m.AnalyzeHold, m.Analysis, m.AnalysisErr
	m.mu.Unlock()

	if err := wait(ctx, hold); err != nil {
		return nil, err
	}
	if analysisErr != nil {
		return nil, analysisErr
	}
	return analysis, nil
}

func (m *StylistMock) GeneratePartnerLook(ctx context.Context, prompt string) (*models.ImagePayload, error) {
	m.mu.Lock()
	m.GenerateCalls[prompt]++
	hold, generateErr := m.GenerateHold, m.GenerateErr
	m.mu.Unlock()

	if err := wait(ctx, hold); err != nil {
		return nil, err
	}
	if generateErr != nil {
		return nil, generateErr
	}
	return &models.ImagePayload{MIMEType: "image/png", Data: FakePNG(30, 40, color.RGBA{R: 20, G: 20, B: 20, A: 255})}, nil
}

func (m *StylistMock) NormalizeBackground(ctx context.Context, img models.ImagePayload) models.ImagePayload {
	m.mu.Lock()
	m.NormalizeCalls++
	hold, fails := m.NormalizeHold, m.NormalizeFails
	m.mu.Unlock()

	if err := wait(ctx, hold); err != nil || fails {
		return img
	}
	return models.ImagePayload{MIMEType: "image/png", Data: FakePNG(30, 40, color.White)}
}

func (m *StylistMock) GenerateCount(prompt string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GenerateCalls[prompt]
}

func (m *StylistMock) TotalGenerateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.GenerateCalls {
		total += n
	}
	return total
}

func (m *StylistMock) Counts() (analyze int, normalize int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AnalyzeCalls, m.NormalizeCalls
}
