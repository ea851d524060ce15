package services

import (
	"fmt"
	"strings"

	"studioguideapi/languageutil"
	"studioguideapi/models"

	"golang.org/x/text/language"
)

const partnerLookQualifiers = ", wearing plain minimalist clothing without logos or text, standing on a seamless pure white background, studio photography, high key lighting, full body shot, photorealistic, 8k."

const whiteBackgroundPrompt = "Keep the person exactly as they are, maintaining their face, body shape, and outfit details perfectly. Only change the background to a seamless pure white studio background. High quality, photorealistic."

const analysisPromptChinese = `
你是一位專業的影樓造型師，專門負責「簡約風格 (Minimalist Style)」的情侶寫真拍攝。
客戶準備來影樓拍攝便服情侶相。相中客戶的性別是「%s」，你的任務是分析照片，並為其伴侶（性別：「%s」）提供搭配建議。

**影樓拍攝守則 (必須嚴格遵守):**
1. **極簡約 (Minimalist)**: 服裝必須乾淨俐落。
2. **拒絕 Logo**: 絕對不要建議有大 Logo、文字或圖案的衣服。
3. **拒絕花巧**: 避免複雜的格紋或波點，以純色 (Solid colors) 為主。
4. **質感優先**: 強調布料質感 (如亞麻、棉質、牛仔、針織)。

請生成以下 **3種特定類型的搭配方案** (請嚴格按照此順序):

**方案 1: %s**
- 使用與用戶相近的色調（如大地色配米白、深藍配淺藍），營造溫柔、統一、高級的感覺。

**方案 2: %s**
- 使用對比鮮明但協調的顏色（如黑配白、牛仔藍配卡其），突出兩人的獨立性，但畫面依然平衡。

**方案 3: %s**
- 兩人都穿著類似的單品或材質（例如大家都穿白T恤+牛仔褲），強調 "We belong together" 的視覺連結。

請以 JSON 格式回傳，包含一個 "suggestions" 陣列，每個建議包含：
- styleName: 必須是上述三個類別名稱之一，並與方案次序一致。
- partnerOutfitDescription: 詳細描述伴侶應該穿什麼 (緊記無Logo、純色)。
- fashionAdvice: 解釋為什麼這個搭配適合影樓拍攝。
- imageGenerationPrompt: 一個用來生成圖片的英文 Prompt。必須強調全身照，純白色背景 (Pure white background studio shot)，無Logo (plain clothing, no logos)，簡約風格 (minimalist style)。
- styleKeywords: 3-5個關鍵字 (e.g. Clean, Timeless, Soft)。

所有文字描述請使用繁體中文 (廣東話口語風格)，imageGenerationPrompt 除外。
`

const analysisPromptEnglish = `
You are a professional studio stylist specialising in minimalist couple portraits.
The client in the photo is %s and is coming to the studio for a casual couple shoot. Analyse the photo and suggest outfits for their %s partner.

Studio rules (follow strictly):
1. Minimalist: clothing must be clean and simple.
2. No logos: never suggest clothes with large logos, text or prints.
3. No busy patterns: avoid complex checks or polka dots, prefer solid colors.
4. Texture first: emphasise fabric texture (linen, cotton, denim, knit).

Produce exactly these 3 plans in this order:

Plan 1: %s
- Use tones close to the client's outfit (earth tones with cream, navy with light blue) for a soft, unified, premium feel.

Plan 2: %s
- Use clearly contrasting but harmonious colors (black with white, denim blue with khaki) so each person stands out while the frame stays balanced.

Plan 3: %s
- Both wear similar pieces or materials (both in white tees and jeans) to show a "we belong together" connection.

Return JSON with a "suggestions" array. Each suggestion contains:
- styleName: exactly one of the three plan names above, matching the plan order.
- partnerOutfitDescription: what the partner should wear in detail (no logos, solid colors).
- fashionAdvice: why this pairing works for a studio shoot.
- imageGenerationPrompt: an English image prompt. It must ask for a full body shot, pure white background studio shot, plain clothing with no logos, minimalist style.
- styleKeywords: 3-5 keywords (e.g. Clean, Timeless, Soft).

Write every field in English.
`

func styleNames(locale language.Tag) []string {
	names := make([]string, 0, len(models.StyleCategories))
	for _, category := range models.StyleCategories {
		names = append(names, languageutil.StyleName(locale, category))
	}
	return names
}

// buildAnalysisPrompt renders the stylist instruction for the given couple.
func buildAnalysisPrompt(userGender, partnerGender models.Gender, locale language.Tag) string {
	names := styleNames(locale)
	template := analysisPromptChinese
	if languageutil.IsEnglish(locale) {
		template = analysisPromptEnglish
	}
	prompt := fmt.Sprintf(template,
		languageutil.GenderLabel(locale, userGender),
		languageutil.GenderLabel(locale, partnerGender),
		names[0], names[1], names[2],
	)
	return strings.TrimSpace(prompt)
}

func buildPartnerLookPrompt(prompt string) string {
	return strings.TrimRight(strings.TrimSpace(prompt), ".,") + partnerLookQualifiers
}
