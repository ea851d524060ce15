package languageutil

import (
	"strings"

	"studioguideapi/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var TraditionalChinese = language.MustParse("zh-Hant")

// Supported lists the locales in preference order; the first one is the fallback.
var Supported = []language.Tag{TraditionalChinese, language.English}

var matcher = language.NewMatcher(Supported)

type MessageKey int

const (
	MsgAnalysisFailed MessageKey = iota
	MsgUnknownError
	MsgImageGenerationFailed
	MsgSessionNotFound
	MsgInvalidImage
	MsgAnalysisInFlight
	MsgAnalysisExists
	MsgPartnerImageNotReady
)

var chineseMessages = map[MessageKey]string{
	MsgAnalysisFailed:        "分析失敗，請重試。",
	MsgUnknownError:          "發生未知錯誤",
	MsgImageGenerationFailed: "無法生成圖片。",
	MsgSessionNotFound:       "諮詢已過期，請重新開始。",
	MsgInvalidImage:          "請上載 JPG/PNG 照片。",
	MsgAnalysisInFlight:      "正在分析中，請稍候。",
	MsgAnalysisExists:        "已有搭配建議，請重新諮詢。",
	MsgPartnerImageNotReady:  "伴侶造型圖片生成中。",
}

var englishMessages = map[MessageKey]string{
	MsgAnalysisFailed:        "Analysis failed, please try again.",
	MsgUnknownError:          "An unknown error occurred.",
	MsgImageGenerationFailed: "Could not generate the image.",
	MsgSessionNotFound:       "This consultation has expired, please start again.",
	MsgInvalidImage:          "Please upload a JPG or PNG photo.",
	MsgAnalysisInFlight:      "Analysis is already running, please wait.",
	MsgAnalysisExists:        "Suggestions are ready, start a new consultation to analyze again.",
	MsgPartnerImageNotReady:  "The partner look is still being generated.",
}

// MatchLocale picks a supported locale from any number of Accept-Language style
// values, earlier values winning. Unparseable values are skipped.
func MatchLocale(preferred ...string) language.Tag {
	var tags []language.Tag
	for _, value := range preferred {
		if strings.TrimSpace(value) == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(value)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return Supported[0]
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Supported[0]
	}
	return Supported[index]
}

func IsEnglish(tag language.Tag) bool {
	base, _ := tag.Base()
	return base.String() == "en"
}

func Message(tag language.Tag, key MessageKey) string {
	if IsEnglish(tag) {
		return englishMessages[key]
	}
	return chineseMessages[key]
}

func GenderLabel(tag language.Tag, g models.Gender) string {
	english := IsEnglish(tag)
	switch g {
	case models.Female:
		if english {
			return "female"
		}
		return "女"
	case models.Male:
		if english {
			return "male"
		}
		return "男"
	case models.NonBinary:
		if english {
			return "non-binary"
		}
		return "非二元性別"
	}
	return string(g)
}

func StyleName(tag language.Tag, c models.StyleCategory) string {
	if IsEnglish(tag) {
		return c.Labels().English
	}
	return c.Labels().Chinese
}

// NormalizeKeywords title-cases latin keywords so tags render consistently.
func NormalizeKeywords(keywords []string) []string {
	caser := cases.Title(language.English)
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		out = append(out, caser.String(strings.TrimSpace(k)))
	}
	return out
}
