package queryproc

import (
	"strings"

	"github.com/kasemsan-k/thai-search-core/internal/segmenter"
)

// intentRule matches surface patterns anywhere in the query. Rules are
// checked in order; the first hit wins and is tagged with the rule's fixed
// confidence.
type intentRule struct {
	intent     string
	confidence float64
	patterns   []string
}

var intentRules = []intentRule{
	{"how-to", 0.9, []string{"วิธี", "ทำยังไง", "ทำอย่างไร", "อย่างไร", "how to"}},
	{"what-is", 0.9, []string{"คืออะไร", "หมายถึง", "แปลว่า", "what is", "what are"}},
	{"why", 0.85, []string{"ทำไม", "เพราะอะไร", "why "}},
	{"when", 0.85, []string{"เมื่อไหร่", "เมื่อไร", "ตอนไหน", "กี่โมง", "when "}},
	{"where", 0.85, []string{"ที่ไหน", "แถวไหน", "where "}},
}

// modifierRule maps cue words to a modifier tag, recorded separately from
// intent so the ranking stage can apply recency or popularity boosts.
type modifierRule struct {
	tag      string
	keywords []string
}

var modifierRules = []modifierRule{
	{"recent", []string{"ล่าสุด", "ใหม่ล่าสุด", "วันนี้", "เมื่อวาน", "latest", "recent", "new"}},
	{"popular", []string{"ยอดนิยม", "ยอดฮิต", "ขายดี", "ฮิต", "popular", "trending", "best"}},
}

func detectIntent(query string) Intent {
	lower := strings.ToLower(query)
	for _, rule := range intentRules {
		for _, pattern := range rule.patterns {
			if strings.Contains(lower, pattern) {
				return Intent{Type: rule.intent, Confidence: rule.confidence}
			}
		}
	}
	return Intent{Type: "unknown"}
}

func detectModifiers(query string, terms []segmenter.Token) []string {
	lower := strings.ToLower(query)
	tags := []string{}
	for _, rule := range modifierRules {
		for _, kw := range rule.keywords {
			if containsWord(lower, terms, kw) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}
	return tags
}

// containsWord matches Thai cues as substrings (no word spacing) but Latin
// cues only against whole tokens, so "new" does not fire on "news".
func containsWord(lowerQuery string, terms []segmenter.Token, keyword string) bool {
	if keyword[0] >= 0x80 {
		return strings.Contains(lowerQuery, keyword)
	}
	for _, t := range terms {
		if strings.EqualFold(t.Text, keyword) {
			return true
		}
	}
	return false
}
