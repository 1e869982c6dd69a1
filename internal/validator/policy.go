package validator

// #region policy
// PolicyVersion tags the rule set compiled into this build.
const PolicyVersion = "narrative-policy/v1"

// Rule is one forbidden item. Pattern is a regular expression for English
// rules and a literal for Korean ones.
type Rule struct {
	Name    string
	Locale  string // "en" | "ko" | "any"
	Pattern string
	Literal bool
}

// Policy is a closed, versioned rule set.
type Policy struct {
	Version                string
	ForbiddenWords         []Rule
	RecommendationPatterns []Rule
	IdentityLeaks          []Rule
}

// DefaultPolicy returns the neutrality policy.
func DefaultPolicy() Policy {
	return Policy{
		Version: PolicyVersion,
		ForbiddenWords: []Rule{
			{Name: "guarantee", Locale: "en", Pattern: `\bguarantee(?:d|s)?\b`},
			{Name: "definitely", Locale: "en", Pattern: `\bdefinitely\b`},
			{Name: "obviously", Locale: "en", Pattern: `\bobviously\b`},
			{Name: "optimal", Locale: "en", Pattern: `\b(?:optimal|optimum)\b`},
			{Name: "superior", Locale: "en", Pattern: `\b(?:superior|inferior)\b`},
			{Name: "no-brainer", Locale: "en", Pattern: `\bno[- ]brainer\b`},
			{Name: "mujogeon", Locale: "ko", Pattern: "무조건", Literal: true},
			{Name: "bandeusi", Locale: "ko", Pattern: "반드시", Literal: true},
			{Name: "hwaksilhi", Locale: "ko", Pattern: "확실히", Literal: true},
			{Name: "choego", Locale: "ko", Pattern: "최고의", Literal: true},
			{Name: "bojang", Locale: "ko", Pattern: "보장", Literal: true},
		},
		RecommendationPatterns: []Rule{
			{Name: "i-recommend", Locale: "en", Pattern: `\b(?:i|we)\s+(?:would\s+|strongly\s+|highly\s+)*recommend\b`},
			{Name: "is-recommended", Locale: "en", Pattern: `\b(?:is|are)\s+(?:highly\s+|strongly\s+)?recommended\b`},
			{Name: "best-option", Locale: "en", Pattern: `\bthe\s+best\s+(?:option|choice|path|route|plan)\s+(?:is|would\s+be)\b`},
			{Name: "you-should", Locale: "en", Pattern: `\byou\s+should\s+(?:choose|pick|take|go\s+with|select|follow)\b`},
			{Name: "i-suggest", Locale: "en", Pattern: `\b(?:i|we)\s+(?:would\s+)?suggest\b`},
			{Name: "my-advice", Locale: "en", Pattern: `\bmy\s+(?:advice|recommendation|suggestion)\s+(?:is|would\s+be)\b`},
			{Name: "go-with", Locale: "en", Pattern: `\bgo\s+with\s+(?:path|option|plan)\b`},
			{Name: "choeseon", Locale: "ko", Pattern: "최선의 선택은", Literal: true},
			{Name: "chucheon-deurimnida", Locale: "ko", Pattern: "추천드립니다", Literal: true},
			{Name: "chucheon-hamnida", Locale: "ko", Pattern: "추천합니다", Literal: true},
			{Name: "gwonjang", Locale: "ko", Pattern: "권장합니다", Literal: true},
			{Name: "gwonhae", Locale: "ko", Pattern: "권해 드립니다", Literal: true},
			{Name: "seontaek-joh", Locale: "ko", Pattern: "선택하시는 것이 좋습니다", Literal: true},
			{Name: "haneun-geosi-joh", Locale: "ko", Pattern: "하는 것이 좋겠습니다", Literal: true},
		},
		IdentityLeaks: []Rule{
			{Name: "as-an-ai", Locale: "en", Pattern: `\bas\s+an?\s+(?:ai|artificial\s+intelligence|language\s+model|assistant)\b`},
			{Name: "i-am-an-ai", Locale: "en", Pattern: `\bi\s*(?:am|'m)\s+(?:an?\s+)?(?:ai|language\s+model|chatbot|bot)\b`},
			{Name: "language-model", Locale: "en", Pattern: `\blarge\s+language\s+model\b`},
			{Name: "ai-roseo", Locale: "ko", Pattern: "AI로서", Literal: true},
			{Name: "ingongjineung", Locale: "ko", Pattern: "저는 인공지능", Literal: true},
			{Name: "eoneo-model", Locale: "ko", Pattern: "언어 모델로서", Literal: true},
			{Name: "email", Locale: "any", Pattern: `[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`},
			{Name: "phone-kr", Locale: "ko", Pattern: `\b01[016789][- ]?\d{3,4}[- ]?\d{4}\b`},
			{Name: "phone-intl", Locale: "any", Pattern: `\+\d{1,3}[- ]?\d{1,4}[- ]?\d{3,4}[- ]?\d{4}\b`},
		},
	}
}

// #endregion policy
