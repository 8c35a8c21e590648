package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/agromarket-backend/internal/validation"
)

const (
	maxFullNameLength = 255
	maxPhoneLength    = 20
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9 ()-]{5,20}$`)

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, fullName, phone *string) (*models.User, error)
	SetTrusted(ctx context.Context, id, actor uuid.UUID, trusted bool) (*models.User, error)
}

// ProfileUpdate частичное обновление профиля. Отсутствующее поле не меняется,
// пустая строка очищает его. Username и email приходят от провайдера
// идентификации, координаты меняются через PATCH /location.
type ProfileUpdate struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
}

type ProfileService struct {
	users ProfileRepository
}

func NewProfileService(users ProfileRepository) *ProfileService {
	return &ProfileService{users: users}
}

func (s *ProfileService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return user, nil
}

// Update меняет имя и телефон владельца профиля.
func (s *ProfileService) Update(ctx context.Context, actor Actor, in ProfileUpdate) (*models.User, error) {
	if in.FullName == nil && in.Phone == nil {
		return nil, apperror.Validation("нет полей для обновления")
	}

	current, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	fullName, phone := current.FullName, current.Phone
	if in.FullName != nil {
		if err := validation.ValidateOptionalLength("имя", in.FullName, maxFullNameLength); err != nil {
			return nil, apperror.Validation(err.Error())
		}
		fullName = clearable(*in.FullName)
	}
	if in.Phone != nil {
		phone = clearable(*in.Phone)
		if phone != nil && (len(*phone) > maxPhoneLength || !phoneRegex.MatchString(*phone)) {
			return nil, apperror.Validation("некорректный номер телефона")
		}
	}

	updated, err := s.users.UpdateProfile(ctx, actor.ID, fullName, phone)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return updated, nil
}

// SetTrusted ручная отметка доверенного продавца, только для администратора.
func (s *ProfileService) SetTrusted(ctx context.Context, actor Actor, userID uuid.UUID, trusted bool) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	user, err := s.users.SetTrusted(ctx, userID, actor.ID, trusted)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return user, nil
}

func clearable(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
