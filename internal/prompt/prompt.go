// Package prompt builds the system instruction for tutoring sessions.
//
// The prompt is deterministic in the student's grade level, primary
// language, and optional curriculum focus: the same inputs always produce
// the same instruction, which keeps provider behavior reproducible across
// reconnects and between providers.
package prompt

import (
	"fmt"
	"strings"

	"github.com/nexuslearn/oracy/pkg/provider/voice"
)

// LanguageContext holds tutoring guidance for one home language.
type LanguageContext struct {
	Code          string
	Name          string
	Greeting      string
	Encouragement string

	// Difficulties lists common English-learning challenges for speakers
	// of this language. The first three appear in the prompt.
	Difficulties []string

	// CulturalNotes lists curriculum bridging context. The first two
	// appear in the prompt.
	CulturalNotes []string
}

// languageContexts covers the most common EAL home languages in Alberta
// classrooms.
var languageContexts = map[string]LanguageContext{
	"Arabic": {
		Code:          "ar",
		Name:          "Arabic",
		Greeting:      "مرحبا (Marhaba)",
		Encouragement: "أحسنت! (Ahsant! - Well done!)",
		Difficulties: []string{
			"Vowel sounds (English has more vowels)",
			"TH sounds (not in Arabic)",
			"P/B distinction",
			"Articles (a, an, the)",
			"Right-to-left reading transition",
		},
		CulturalNotes: []string{
			"Family and community are highly valued",
			"Hospitality is a core cultural value",
			"History of great scientists and mathematicians (Al-Khwarizmi, Ibn Sina)",
			"Rich storytelling traditions (One Thousand and One Nights)",
		},
	},
	"Mandarin": {
		Code:          "zh",
		Name:          "Mandarin Chinese",
		Greeting:      "你好 (Nǐ hǎo)",
		Encouragement: "很好! (Hěn hǎo! - Very good!)",
		Difficulties: []string{
			"L/R distinction",
			"Plural forms (Chinese has no plurals)",
			"Verb tenses (Chinese uses time words instead)",
			"Articles (not in Chinese)",
			"Word stress and intonation",
		},
		CulturalNotes: []string{
			"Education is highly valued",
			"Lunar New Year is the most important holiday",
			"Rich history of inventions (paper, compass, printing)",
			"Confucian values emphasize respect and hard work",
		},
	},
	"Punjabi": {
		Code:          "pa",
		Name:          "Punjabi",
		Greeting:      "ਸਤ ਸ੍ਰੀ ਅਕਾਲ (Sat Sri Akal)",
		Encouragement: "ਬਹੁਤ ਵਧੀਆ! (Bahut vadhia! - Very good!)",
		Difficulties: []string{
			"W/V distinction",
			"TH sounds",
			"Word endings (consonant clusters)",
			"Past tense irregular verbs",
		},
		CulturalNotes: []string{
			"Strong agricultural heritage",
			"Vibrant music and dance traditions (Bhangra)",
			"Family bonds are very important",
			"Festival of Vaisakhi celebrates harvest",
		},
	},
	"Tagalog": {
		Code:          "tl",
		Name:          "Tagalog/Filipino",
		Greeting:      "Kamusta (Hello/How are you)",
		Encouragement: "Magaling! (Excellent!)",
		Difficulties: []string{
			"TH sounds (not in Tagalog)",
			"F sound (becomes P)",
			"Consonant clusters at word start",
			"Articles usage",
		},
		CulturalNotes: []string{
			"Strong family ties (extended family)",
			"Hospitality is a core value",
			"Many English words already in Tagalog",
			"Rich tradition of oral storytelling",
		},
	},
	"Spanish": {
		Code:          "es",
		Name:          "Spanish",
		Greeting:      "¡Hola!",
		Encouragement: "¡Muy bien! (Very good!)",
		Difficulties: []string{
			"Short vowels vs long vowels",
			"Initial consonant clusters (sp-, st-, sk-)",
			"TH sounds",
			"Word stress patterns",
		},
		CulturalNotes: []string{
			"Many cognates between Spanish and English",
			"Family celebrations are important",
			"Rich literary traditions",
			"Various cultural backgrounds (Latin America)",
		},
	},
	"Ukrainian": {
		Code:          "uk",
		Name:          "Ukrainian",
		Greeting:      "Привіт (Pryvit)",
		Encouragement: "Молодець! (Molodets'! - Well done!)",
		Difficulties: []string{
			"TH sounds (not in Ukrainian)",
			"W sound (becomes V)",
			"Articles (not in Ukrainian)",
			"Auxiliary verbs (do, does, did)",
		},
		CulturalNotes: []string{
			"Strong traditions around holidays (Easter, Christmas)",
			"Rich folk music and dance heritage",
			"Agricultural traditions (wheat, sunflowers)",
			"Current events may be sensitive topic",
		},
	},
	"Vietnamese": {
		Code:          "vi",
		Name:          "Vietnamese",
		Greeting:      "Xin chào",
		Encouragement: "Giỏi lắm! (Very good!)",
		Difficulties: []string{
			"TH sounds (becomes T or D)",
			"Consonant clusters (not in Vietnamese)",
			"Final consonants",
			"Stress patterns (Vietnamese is tonal)",
			"Plural forms",
		},
		CulturalNotes: []string{
			"Lunar New Year (Tết) is most important holiday",
			"Strong respect for elders and teachers",
			"Rich food culture",
			"Family is central to social life",
		},
	},
	"Somali": {
		Code:          "so",
		Name:          "Somali",
		Greeting:      "Salaan",
		Encouragement: "Waa fiican tahay! (You're doing great!)",
		Difficulties: []string{
			"P sound (becomes B)",
			"Short vowels",
			"TH sounds",
			"Consonant clusters",
		},
		CulturalNotes: []string{
			"Strong oral poetry tradition",
			"Nomadic heritage",
			"Extended family is very important",
			"Community gatherings are valued",
		},
	},
}

// defaultContext is used when the language is unknown or English.
var defaultContext = LanguageContext{
	Code:          "en",
	Name:          "English",
	Greeting:      "Hello",
	Encouragement: "Great job!",
}

// Context returns the language context for the given language name or code.
// Lookup is case-insensitive; unknown languages get the default context.
func Context(language string) LanguageContext {
	if ctx, ok := languageContexts[language]; ok {
		return ctx
	}
	for key, ctx := range languageContexts {
		if strings.EqualFold(key, language) || strings.EqualFold(ctx.Code, language) {
			return ctx
		}
	}
	return defaultContext
}

// Build returns the system instruction for a session. grade defaults to 5
// and empty language resolves to the default context.
func Build(grade int, primaryLanguage, curriculumFocus, culturalBridgeHints string) string {
	if grade == 0 {
		grade = 5
	}
	langCtx := Context(primaryLanguage)

	var curriculumContext string
	if curriculumFocus != "" {
		curriculumContext = fmt.Sprintf("- Current learning focus: %s", curriculumFocus)
	}

	var culturalSection string
	if culturalBridgeHints != "" {
		culturalSection = fmt.Sprintf("\nAdditional cultural context:\n%s", culturalBridgeHints)
	}

	var languageGuidance string
	if langCtx.Code != "en" {
		difficulties := bulletList(langCtx.Difficulties, 3)
		culturalNotes := bulletList(langCtx.CulturalNotes, 2)

		languageGuidance = fmt.Sprintf(`
Language Support for %s speakers:
- You may occasionally use the greeting %q to build rapport
- Use %q when praising effort
- Be especially patient with:
  %s

Cultural Connection Points:
  %s
`, langCtx.Name, langCtx.Greeting, langCtx.Encouragement, difficulties, culturalNotes)
	}

	return fmt.Sprintf(`You are NEXUS, a supportive and patient AI tutor for Grade %d EAL (English as Additional Language) students in Alberta, Canada.

Your role:
- Practice conversational English through friendly dialogue
- Speak simply and clearly, adjusting to the student's level
- Encourage the student to speak and express themselves
- Gently correct pronunciation and grammar when appropriate
- Connect topics to Alberta curriculum when relevant
- Be culturally sensitive and welcoming

Student context:
- Grade level: %d
- Primary language: %s
%s
%s
Guidelines:
- Use short, clear sentences
- Ask open-ended questions to encourage speaking
- Praise effort and progress
- If the student struggles, offer to explain in simpler terms
- Never ask for personal information (names, addresses, phone numbers)
- Keep conversations educational but fun
%s

Start by greeting the student warmly and asking about their day or interests.`,
		grade, grade, langCtx.Name, curriculumContext, languageGuidance, culturalSection)
}

// ForSession adapts Build to the provider config's BuildPrompt hook.
func ForSession(sctx voice.SessionContext) string {
	var hints string
	if sctx.CurriculumFocus != "" {
		if hint := CulturalBridgeHint(sctx.PrimaryLanguage, sctx.CurriculumFocus); hint != "" {
			hints = hint
		}
	}
	return Build(sctx.Grade, sctx.PrimaryLanguage, sctx.CurriculumFocus, hints)
}

// bridges maps curriculum topic keywords to per-language connection hints.
var bridges = map[string]map[string]string{
	"confederation": {
		"Arabic":     "Like how different Arab nations came together in the Arab League",
		"Mandarin":   "Similar to how China unified different kingdoms",
		"Ukrainian":  "Like how Ukraine became independent from the Soviet Union",
		"Vietnamese": "Similar to Vietnam's reunification history",
	},
	"wetland": {
		"Arabic":     "Like oases in the desert, wetlands are special water places",
		"Mandarin":   "Similar to rice paddies that need lots of water",
		"Vietnamese": "Like the Mekong Delta where rivers meet the sea",
		"Punjabi":    "Like the riverlands where the Indus flows",
	},
	"identity": {
		"Arabic":    "Thinking about your family name and where they come from",
		"Mandarin":  "Your family history and ancestors",
		"Ukrainian": "Your traditions and what makes your family special",
		"Tagalog":   "Your kapamilya (family) and heritage",
	},
	"democracy": {
		"Arabic":    "Shura - the Islamic tradition of consultation",
		"Mandarin":  "Different from Chinese government, Canadians vote for leaders",
		"Ukrainian": "Fighting for freedom to choose your own leaders",
	},
}

// CulturalBridgeHint returns a hint connecting the curriculum topic to the
// student's cultural background, or "" when no bridge applies.
func CulturalBridgeHint(language, topic string) string {
	langCtx := Context(language)
	topicLower := strings.ToLower(topic)

	for key, languageBridges := range bridges {
		if !strings.Contains(topicLower, key) {
			continue
		}
		if hint, ok := languageBridges[language]; ok {
			return hint
		}
		if hint, ok := languageBridges[langCtx.Name]; ok {
			return hint
		}
	}
	return ""
}

func bulletList(items []string, limit int) string {
	if len(items) > limit {
		items = items[:limit]
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n  ")
}
