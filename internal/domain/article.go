package domain

// Strategy is the editorial plan produced before writing an article.
type Strategy struct {
	Intent         string   `json:"intent"`
	Angle          string   `json:"angle"`
	Audience       string   `json:"audience"`
	Tone           string   `json:"tone"`
	SEOKeywords    []string `json:"seo_keywords,omitempty"`
	SEOTitle       string   `json:"seo_title,omitempty"`
	SEODescription string   `json:"seo_description,omitempty"`
	SuggestedTitle string   `json:"suggested_title,omitempty"`
	Slug           string   `json:"slug,omitempty"`
	Outline        []string `json:"outline,omitempty"`
}

// SEO groups search metadata attached to a site article.
type SEO struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Article is a generated long-form post for the site.
type Article struct {
	Title             string
	Slug              string
	Body              string
	SEO               SEO
	SuggestedCategory string
	SuggestedTags     []string
}

// ShortPost is a generated social update.
type ShortPost struct {
	Title    string
	Body     string
	Metadata SocialMetadata
}
