package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail(" farmer@agro.ru "))
	for _, bad := range []string{"", "farmer", "a@b@c.ru", "@agro.ru", "farmer@agro", "farmer@.ru"} {
		assert.Error(t, ValidateEmail(bad), bad)
	}
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("ivan.petrov-2"))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("иван"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", MaxUsernameLength+1)))
}

func TestValidateProductTitle(t *testing.T) {
	assert.NoError(t, ValidateProductTitle("Картофель молодой", "кг"))
	assert.Error(t, ValidateProductTitle("", "кг"))
	assert.Error(t, ValidateProductTitle("Картофель", " "))
	assert.Error(t, ValidateProductTitle("К", "кг"))
}

func TestValidateEvidenceLink(t *testing.T) {
	assert.NoError(t, ValidateEvidenceLink(" https://cdn.example/1.jpg "))
	assert.Error(t, ValidateEvidenceLink("ftp://cdn.example/1.jpg"))
	assert.Error(t, ValidateEvidenceLink("https://"))
	assert.Error(t, ValidateEvidenceLink("https://cdn.example/"+strings.Repeat("x", MaxEvidenceLinkLength)))
}

func TestValidateOptionalLength(t *testing.T) {
	long := strings.Repeat("я", 11)
	short := "ок"
	assert.NoError(t, ValidateOptionalLength("описание", nil, 10))
	assert.NoError(t, ValidateOptionalLength("описание", &short, 10))
	assert.Error(t, ValidateOptionalLength("описание", &long, 10))
}
