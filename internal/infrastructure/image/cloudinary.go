package image

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/erdidoqan/postrella/internal/ports"
)

const maxWords = 8

type gradient struct {
	start string
	end   string
}

var gradients = map[string]gradient{
	"purple": {start: "667eea", end: "764ba2"},
	"blue":   {start: "4facfe", end: "00f2fe"},
	"green":  {start: "11998e", end: "38ef7d"},
	"orange": {start: "f093fb", end: "f5576c"},
	"dark":   {start: "434343", end: "000000"},
}

// keywordGradients is checked in order; the first contained keyword wins.
var keywordGradients = []struct {
	keyword  string
	gradient string
}{
	{"wishes", "purple"}, {"birthday", "purple"}, {"celebration", "purple"},
	{"party", "purple"}, {"anniversary", "purple"}, {"wedding", "purple"},
	{"christmas", "purple"}, {"new year", "purple"}, {"valentine", "purple"},
	{"tech", "blue"}, {"ai", "blue"}, {"software", "blue"}, {"coding", "blue"},
	{"programming", "blue"}, {"digital", "blue"}, {"computer", "blue"}, {"internet", "blue"},
	{"health", "green"}, {"nature", "green"}, {"eco", "green"}, {"fitness", "green"},
	{"wellness", "green"}, {"organic", "green"}, {"sustainable", "green"},
	{"business", "orange"}, {"money", "orange"}, {"finance", "orange"},
	{"investment", "orange"}, {"startup", "orange"}, {"entrepreneur", "orange"}, {"success", "orange"},
}

var (
	punctuation = regexp.MustCompile(`[?!.,:;()\[\]{}]`)
	unsafeChars = regexp.MustCompile(`[^\w\s'-]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Cloudinary renders text-on-gradient covers through URL transformations.
type Cloudinary struct{}

var _ ports.ImageURLBuilder = Cloudinary{}

// GradientFor picks the palette for a keyword, defaulting to dark.
func GradientFor(keyword string) string {
	lower := strings.ToLower(keyword)
	for _, kg := range keywordGradients {
		if strings.Contains(lower, kg.keyword) {
			return kg.gradient
		}
	}
	return "dark"
}

// EncodeText strips characters that break overlay URLs and keeps at most eight words.
func EncodeText(text string) string {
	cleaned := punctuation.ReplaceAllString(text, "")
	cleaned = unsafeChars.ReplaceAllString(cleaned, "")
	words := whitespace.Split(strings.TrimSpace(cleaned), -1)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	cleaned = strings.Join(words, " ")
	cleaned = strings.ReplaceAll(cleaned, " ", "%20")
	return strings.ReplaceAll(cleaned, "'", "%27")
}

// BuildImageURL returns the cover URL for cloudName; no request is made.
func (Cloudinary) BuildImageURL(cloudName, keyword, text string) string {
	g := gradients[GradientFor(keyword)]
	return fmt.Sprintf(
		"https://res.cloudinary.com/%s/image/upload/w_%d,h_%d,c_fill,b_rgb:%s/e_tint:100:%s:0p:%s:100p/l_text:Montserrat_52_bold_center:%s,co_white,g_center,w_960,c_fit/e_shadow:40/sample",
		cloudName, ports.CoverWidth, ports.CoverHeight, g.start, g.start, g.end, EncodeText(text),
	)
}
