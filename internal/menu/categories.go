package menu

// Categories is the fixed set of shopping categories, in display order.
var Categories = []string{
	"野菜・きのこ",
	"肉・ハム・ベーコン",
	"魚・海鮮",
	"卵・豆腐・納豆",
	"乳製品（牛乳・ヨーグルト・チーズ）",
	"調味料・油",
	"米・パン・麺類・シリアル",
	"冷凍食品",
	"缶詰・瓶詰め・乾物",
	"飲料・お菓子",
}

// FallbackCategory marks ingredients produced without the model.
const FallbackCategory = "その他（AI生成失敗）"

// IsKnownCategory reports whether c is one of Categories.
func IsKnownCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}
