package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength     = 3
	MaxUsernameLength     = 50
	MaxEmailLength        = 254
	MinProductTitleLength = 2
	MaxProductTitleLength = 120
	MaxUnitLength         = 20
	MaxEvidenceLinkLength = 500
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateOptionalLength то же для необязательного поля.
func ValidateOptionalLength(fieldName string, value *string, max int) error {
	if value == nil {
		return nil
	}
	return ValidateLength(fieldName, strings.TrimSpace(*value), 0, max)
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email обязателен")
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email слишком длинный")
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return fmt.Errorf("некорректный формат email")
	}
	if len(local) == 0 || len(local) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("некорректный домен email")
	}
	return nil
}

// ValidateUsername проверяет имя пользователя из провайдера идентификации.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}
	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только латиницу, цифры и символы _ . -")
	}
	return nil
}

// ValidateProductTitle проверяет название объявления и единицу измерения.
func ValidateProductTitle(title, unit string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(unit) == "" {
		return fmt.Errorf("title и unit обязательны")
	}
	if err := ValidateLength("название", strings.TrimSpace(title), MinProductTitleLength, MaxProductTitleLength); err != nil {
		return err
	}
	return ValidateLength("единица измерения", strings.TrimSpace(unit), 0, MaxUnitLength)
}

// ValidateEvidenceLink проверяет ссылку на доказательство в жалобе.
func ValidateEvidenceLink(link string) error {
	link = strings.TrimSpace(link)
	if err := ValidateLength("ссылка", link, 0, MaxEvidenceLinkLength); err != nil {
		return err
	}

	parsedURL, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("некорректный формат URL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("ссылка должна начинаться с http:// или https://")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("ссылка должна содержать доменное имя")
	}
	return nil
}
