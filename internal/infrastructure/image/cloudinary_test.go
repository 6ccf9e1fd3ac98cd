package image

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradientFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "purple", GradientFor("Birthday Wishes for Mom"))
	assert.Equal(t, "green", GradientFor("home fitness"))
	assert.Equal(t, "dark", GradientFor("fall recipes"))
}

func TestEncodeTextLimitsWords(t *testing.T) {
	t.Parallel()

	got := EncodeText("Don't wait! One, two three four five six seven eight nine.")
	assert.Equal(t, "Don%27t%20wait%20One%20two%20three%20four%20five%20six", got)
}

func TestBuildImageURL(t *testing.T) {
	t.Parallel()

	url := Cloudinary{}.BuildImageURL("demo", "ai tools", "Work smarter")
	assert.True(t, strings.HasPrefix(url, "https://res.cloudinary.com/demo/image/upload/w_1200,h_630,c_fill,b_rgb:4facfe/"))
	assert.Contains(t, url, "e_tint:100:4facfe:0p:00f2fe:100p")
	assert.Contains(t, url, "Montserrat_52_bold_center:Work%20smarter,co_white")
}
