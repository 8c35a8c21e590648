package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/logger"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/agromarket-backend/internal/validation"
)

const (
	WebhookUserCreated = "user.created"
	WebhookUserUpdated = "user.updated"
	WebhookUserDeleted = "user.deleted"

	signaturePrefix = "sha256="
)

type IdentityUserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// IdentityEvent событие провайдера идентификации.
type IdentityEvent struct {
	Type string       `json:"type"`
	Data IdentityUser `json:"data"`
}

type IdentityUser struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	FullName *string `json:"full_name"`
}

type WebhookService struct {
	users  IdentityUserRepository
	secret []byte
}

func NewWebhookService(users IdentityUserRepository, secret string) *WebhookService {
	return &WebhookService{users: users, secret: []byte(secret)}
}

// VerifySignature сверяет заголовок "sha256=<hex>" с HMAC-SHA256 тела.
// Без секрета подпись не проверяется.
func (s *WebhookService) VerifySignature(body []byte, header string) bool {
	if len(s.secret) == 0 {
		return true
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(s.secret, body))
}

// Sign HMAC-SHA256 тела.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// Handle применяет событие к локальной копии пользователя. Неизвестные
// типы событий игнорируются.
func (s *WebhookService) Handle(ctx context.Context, body []byte) error {
	var event IdentityEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return apperror.Validation("некорректное тело события")
	}

	id, err := uuid.Parse(event.Data.ID)
	if err != nil {
		return apperror.Validation("некорректный id пользователя")
	}

	switch event.Type {
	case WebhookUserCreated, WebhookUserUpdated:
		user, err := identityToUser(id, event.Data)
		if err != nil {
			return err
		}
		return mapRepoError(s.users.Upsert(ctx, user))
	case WebhookUserDeleted:
		return mapRepoError(s.users.SetStatus(ctx, id, models.UserStatusInactive))
	default:
		logger.Log.WithField("type", event.Type).Debug("пропущено событие провайдера")
		return nil
	}
}

func identityToUser(id uuid.UUID, data IdentityUser) (*models.User, error) {
	username := strings.TrimSpace(data.Username)
	email := strings.TrimSpace(data.Email)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	role := data.Role
	if role == "" {
		role = models.RoleBuyer
	}
	if _, ok := models.ValidRoles[role]; !ok {
		return nil, apperror.Validation("некорректная роль")
	}
	return &models.User{
		ID:       id,
		Username: username,
		Email:    email,
		Role:     role,
		FullName: trimmedOrNil(data.FullName),
	}, nil
}
