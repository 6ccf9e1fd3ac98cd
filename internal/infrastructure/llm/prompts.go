package llm

import (
	"fmt"
	"strings"

	"github.com/erdidoqan/postrella/internal/domain"
)

const systemPrompt = "You are an editorial assistant for a content site. Always answer using exactly the ---SECTION--- markers requested, with no text outside them."

func strategyPrompt(keyword string) string {
	return fmt.Sprintf(`Plan an article for the trending search term %q.

Answer with these sections:
---INTENT---
informational, commercial, navigational or transactional
---ANGLE---
the unique angle of the article
---AUDIENCE---
who the article is for
---TONE---
tone of voice
---SEO_KEYWORDS---
comma separated keywords
---SEO_TITLE---
at most 60 characters
---SEO_DESCRIPTION---
at most 155 characters
---SUGGESTED_TITLE---
the article headline
---SLUG---
url slug, lowercase with hyphens
---CONTENT_OUTLINE---
one section heading per line`, keyword)
}

func termNames(terms []domain.Term) string {
	if len(terms) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(terms))
	for _, t := range terms {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

func articlePrompt(keyword, locale string, strategy *domain.Strategy, categories, tags []domain.Term) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a complete article about %q in language %q.\n", keyword, locale)
	if strategy != nil {
		fmt.Fprintf(&b, "\nStrategy:\n- intent: %s\n- angle: %s\n- audience: %s\n- tone: %s\n",
			strategy.Intent, strategy.Angle, strategy.Audience, strategy.Tone)
		if strategy.SuggestedTitle != "" {
			fmt.Fprintf(&b, "- working title: %s\n", strategy.SuggestedTitle)
		}
		if len(strategy.Outline) > 0 {
			fmt.Fprintf(&b, "- outline: %s\n", strings.Join(strategy.Outline, " | "))
		}
		if len(strategy.SEOKeywords) > 0 {
			fmt.Fprintf(&b, "- keywords: %s\n", strings.Join(strategy.SEOKeywords, ", "))
		}
	}
	fmt.Fprintf(&b, "\nExisting categories: %s\n", termNames(categories))
	fmt.Fprintf(&b, "Existing tags: %s\n", termNames(tags))
	b.WriteString("Prefer an existing category and existing tags when they fit.\n")
	b.WriteString(`
Answer with these sections:
---TITLE---
---SLUG---
---BODY---
article body in HTML using h2, h3, p, ul, li, strong and em only
---SEO_TITLE---
---SEO_DESCRIPTION---
---SEO_KEYWORDS---
comma separated
---CATEGORY---
a single category name
---TAGS---
three to six comma separated tags`)
	return b.String()
}

func shortPostPrompt(keyword, platform string) string {
	switch platform {
	case domain.PlatformReddit:
		return fmt.Sprintf(`Write a Reddit post that starts a genuine discussion about %q. No marketing tone.

---TITLE---
---BODY---
---SUBREDDIT---
the best matching subreddit name without r/`, keyword)
	case domain.PlatformPinterest:
		return fmt.Sprintf(`Write a Pinterest pin about %q.

---TITLE---
at most 100 characters
---BODY---
pin description, at most 500 characters`, keyword)
	default:
		return fmt.Sprintf(`Write a short social post about %q for %s, at most 240 characters.

---BODY---
---HASHTAGS---
two to four hashtags`, keyword, platform)
	}
}

func quotePrompt(keyword, context string) string {
	prompt := fmt.Sprintf("Write one short, punchy line (at most eight words) for a cover image about %q.", keyword)
	if strings.TrimSpace(context) != "" {
		prompt += "\nArticle title: " + context
	}
	return prompt + "\nReply with the line only, no quotes."
}
