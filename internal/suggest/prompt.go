package suggest

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const promptTemplate = `**Persona:** Expert Google Ads copywriter.
**Task:** Generate three new Responsive Search Ad variations for an underperforming ad.
**Context:**
* **Ad Group:** %q
* **Original Headline:** %q
* **Problem:** The ad has a low CTR (%.2f%%) because it doesn't match what people search for.
* **Problematic Phrases (High Impressions, Low CTR):** %s
* **Proven "Gold Nugget" Phrases (High Conversion):** %s
**Instructions:**
1. **Fix Relevance:** MUST use "Problematic Phrases" in the new headlines to increase CTR.
2. **Drive Conversions:** Use "Gold Nugget" phrases in the descriptions.
3. **Limits:** Headlines <= %d chars. Descriptions <= %d chars.
4. **Output:** Create 3 distinct variations (3 headlines, 2 descriptions each).
Return ONLY JSON of the form {"ad_variations":[{"headlines":["..."],"descriptions":["..."]}]}.
`

// BuildPrompt renders the copywriting prompt for one ad.
func BuildPrompt(req Request) string {
	return fmt.Sprintf(promptTemplate,
		req.Ad.AdGroup,
		req.Ad.Headline,
		req.Ad.CTR*100,
		phraseList(req.Mismatches),
		phraseList(req.GoldNuggets),
		maxHeadlineLen,
		maxDescriptionLen,
	)
}

func phraseList(p []string) string {
	if p == nil {
		p = []string{}
	}
	b, _ := json.Marshal(p)
	return string(b)
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// extractContentFromChoices pulls the JSON object out of choices[0].message.content.
func extractContentFromChoices(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}

	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	c0, _ := choices[0].(map[string]any)
	if c0 == nil {
		return ""
	}
	msg, _ := c0["message"].(map[string]any)
	if msg == nil {
		return ""
	}
	content, _ := msg["content"].(string)
	return extractJSON(content)
}

// extractJSON returns the first complete {...} object in s after dropping
// markdown code fences. Braces inside string literals are ignored.
func extractJSON(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, r := range []string{"```json", "```", "`json"} {
		s = strings.ReplaceAll(s, r, "")
	}

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}

	return ""
}
