package controllers

import (
	"net/http"
	"strconv"

	"studioguideapi/languageutil"
	"studioguideapi/models"

	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"
)

type PageController struct{}

type pageText struct {
	Title        string
	Subtitle     string
	Upload       string
	Analyze      string
	Analyzing    string
	Reset        string
	You          string
	Partner      string
	Generating   string
	Advice       string
	Download     string
	ToggleGender string
}

type PageData struct {
	Embed        bool
	Lang         string
	Text         pageText
	StyleNames   []string
	GenderLabels map[models.Gender]string
}

func textFor(locale language.Tag) pageText {
	if languageutil.IsEnglish(locale) {
		return pageText{
			Title:        "Studio Couple Look",
			Subtitle:     "Upload your outfit and get three minimalist looks for your partner.",
			Upload:       "Upload photo",
			Analyze:      "Get suggestions",
			Analyzing:    "Analyzing...",
			Reset:        "Start over",
			You:          "You",
			Partner:      "Partner",
			Generating:   "Generating partner look...",
			Advice:       "Stylist notes",
			Download:     "Download couple look",
			ToggleGender: "Switch",
		}
	}
	return pageText{
		Title:        "影樓情侶造型顧問",
		Subtitle:     "上載你的穿搭照片，即時獲得三款簡約伴侶配搭。",
		Upload:       "上載照片",
		Analyze:      "獲取建議",
		Analyzing:    "分析中...",
		Reset:        "重新諮詢",
		You:          "你",
		Partner:      "伴侶",
		Generating:   "正在生成伴侶造型...",
		Advice:       "造型師建議",
		Download:     "下載情侶造型圖",
		ToggleGender: "切換",
	}
}

// Index serves the consultation page. ?embed=true hides the header and turns
// on height reporting to the host frame.
func (controller PageController) Index(c echo.Context) error {
	embed, _ := strconv.ParseBool(c.QueryParam("embed"))
	locale := languageutil.MatchLocale(c.QueryParam("lang"), c.Request().Header.Get("Accept-Language"))

	styleNames := make([]string, 0, len(models.StyleCategories))
	for _, category := range models.StyleCategories {
		styleNames = append(styleNames, languageutil.StyleName(locale, category))
	}

	genderLabels := map[models.Gender]string{}
	for _, g := range models.AllGenders {
		genderLabels[g] = languageutil.GenderLabel(locale, g)
	}

	return c.Render(http.StatusOK, "index.html", PageData{
		Embed:        embed,
		Lang:         locale.String(),
		Text:         textFor(locale),
		StyleNames:   styleNames,
		GenderLabels: genderLabels,
	})
}
