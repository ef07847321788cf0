package selection

import (
	"strings"

	"phimhub/pkg/models"
)

// Language is the dub/sub bucket a server is displayed under.
type Language string

const (
	LongTieng  Language = "Lồng Tiếng"
	ThuyetMinh Language = "Thuyết Minh"
	PhuDe      Language = "Phụ Đề"
)

// Classify maps a server display name to its language bucket by
// case-insensitive substring match. Priority order is dub, voice-over,
// then subtitle as the default, so every server lands in exactly one
// bucket.
func Classify(serverName string) Language {
	lower := strings.ToLower(serverName)
	if strings.Contains(lower, "lồng tiếng") || strings.Contains(lower, "longtieng") {
		return LongTieng
	}
	if strings.Contains(lower, "thuyết minh") || strings.Contains(lower, "thuyetminh") {
		return ThuyetMinh
	}
	return PhuDe
}

// GroupByLanguage returns the server indexes belonging to each bucket, in
// original order. Buckets with no servers map to empty slices so the UI
// can decide which tabs to show.
func GroupByLanguage(groups []models.ServerGroup) map[Language][]int {
	out := map[Language][]int{
		PhuDe:      {},
		LongTieng:  {},
		ThuyetMinh: {},
	}
	for i, g := range groups {
		lang := Classify(g.ServerName)
		out[lang] = append(out[lang], i)
	}
	return out
}

// SelectForLanguage resolves the active server after a language-tab
// switch. When the active server already belongs to the chosen bucket
// nothing changes; otherwise the first server of that bucket becomes
// active and the caller must reset its pagination/chunk state (the second
// return value). A bucket with no servers leaves the selection untouched.
func SelectForLanguage(groups []models.ServerGroup, activeIndex int, lang Language) (serverIndex int, reset bool) {
	if len(groups) == 0 {
		return 0, false
	}
	activeIndex = clamp(activeIndex, 0, len(groups)-1)
	if Classify(groups[activeIndex].ServerName) == lang {
		return activeIndex, false
	}
	for i, g := range groups {
		if Classify(g.ServerName) == lang {
			return i, true
		}
	}
	return activeIndex, false
}
