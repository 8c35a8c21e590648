package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/agromarket-backend/internal/geo"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/agromarket-backend/internal/validation"
)

const maxDescriptionLen = 1000

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByFarmer(ctx context.Context, farmerID uuid.UUID, includeInactive bool) ([]models.Product, error)
}

// VerificationStatusReader отдаёт производный статус верификации пользователя.
type VerificationStatusReader interface {
	GetUserVerification(ctx context.Context, userID uuid.UUID) (string, error)
}

type CreateProductInput struct {
	Title           string        `json:"title"`
	Description     *string       `json:"description"`
	Category        string        `json:"category"`
	Price           float64       `json:"price"`
	Unit            string        `json:"unit"`
	Quantity        int           `json:"quantity"`
	MinimumOrder    int           `json:"minimum_order"`
	HarvestDate     *time.Time    `json:"harvest_date"`
	ExpiryDate      *time.Time    `json:"expiry_date"`
	Location        LocationInput `json:"location"`
	Images          []string      `json:"images"`
	IsOrganic       bool          `json:"is_organic"`
	DiscountPercent int           `json:"discount_percent"`
}

// UpdateProductInput частичное обновление: nil-поля не меняются.
type UpdateProductInput struct {
	Description     *string        `json:"description"`
	Price           *float64       `json:"price"`
	Quantity        *int           `json:"quantity"`
	DiscountPercent *int           `json:"discount_percent"`
	Status          *string        `json:"status"`
	Location        *LocationInput `json:"location"`
}

type ProductService struct {
	repo         ProductRepository
	verification VerificationStatusReader
	resolution   int
}

func NewProductService(repo ProductRepository, verification VerificationStatusReader, resolution int) *ProductService {
	return &ProductService{repo: repo, verification: verification, resolution: resolution}
}

// Create публикует объявление. Доступно только верифицированным фермерам.
func (s *ProductService) Create(ctx context.Context, actor Actor, in CreateProductInput) (*models.Product, error) {
	if !actor.IsFarmer() {
		return nil, apperror.Forbidden("публиковать объявления могут только фермеры")
	}
	status, err := s.verification.GetUserVerification(ctx, actor.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if status != models.UserVerificationVerified {
		return nil, apperror.Forbidden("ферма не прошла верификацию")
	}

	if err := validation.ValidateProductTitle(in.Title, in.Unit); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	title := strings.TrimSpace(in.Title)
	unit := strings.TrimSpace(in.Unit)
	if _, ok := models.ProductCategories[in.Category]; !ok {
		return nil, apperror.Validation("неизвестная категория")
	}
	if _, err := valueobject.NewMoney(in.Price, ""); err != nil || in.Price == 0 {
		return nil, apperror.Validation("цена должна быть положительной")
	}
	if in.Quantity <= 0 {
		return nil, apperror.Validation("количество должно быть положительным")
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}
	loc, cell, err := s.locate(in.Location)
	if err != nil {
		return nil, err
	}

	minimum := in.MinimumOrder
	if minimum <= 0 {
		minimum = 1
	}

	images := models.StringList{}
	if len(in.Images) > 0 && strings.TrimSpace(in.Images[0]) != "" {
		images = models.StringList{strings.TrimSpace(in.Images[0])}
	}

	p := &models.Product{
		FarmerID:          actor.ID,
		Title:             title,
		Description:       in.Description,
		Category:          in.Category,
		Price:             in.Price,
		Unit:              unit,
		QuantityAvailable: in.Quantity,
		MinimumOrder:      minimum,
		HarvestDate:       in.HarvestDate,
		ExpiryDate:        in.ExpiryDate,
		Location:          loc,
		GeoCell:           &cell,
		Images:            images,
		IsOrganic:         in.IsOrganic,
		DiscountPercent:   valueobject.ClampDiscount(in.DiscountPercent),
		Status:            models.ProductStatusActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, mapRepoError(err)
	}
	return p, nil
}

// Update меняет объявление. Доступно владельцу и администратору.
func (s *ProductService) Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateProductInput) (*models.Product, error) {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Description != nil {
		if err := validateDescription(in.Description); err != nil {
			return nil, err
		}
		p.Description = in.Description
	}
	if in.Price != nil {
		if _, err := valueobject.NewMoney(*in.Price, ""); err != nil || *in.Price == 0 {
			return nil, apperror.Validation("цена должна быть положительной")
		}
		p.Price = *in.Price
	}
	if in.Quantity != nil {
		if *in.Quantity < 0 {
			return nil, apperror.Validation("количество не может быть отрицательным")
		}
		p.QuantityAvailable = *in.Quantity
	}
	if in.DiscountPercent != nil {
		p.DiscountPercent = valueobject.ClampDiscount(*in.DiscountPercent)
	}
	if in.Status != nil {
		if _, ok := models.ValidProductStatuses[*in.Status]; !ok {
			return nil, apperror.Validation("некорректный статус объявления")
		}
		p.Status = *in.Status
	}
	if in.Location != nil {
		loc, cell, err := s.locate(*in.Location)
		if err != nil {
			return nil, err
		}
		p.Location = loc
		p.GeoCell = &cell
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, mapRepoError(err)
	}
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return p, nil
}

// ListBySeller объявления фермера. Неактивные видят только сам фермер и администратор.
func (s *ProductService) ListBySeller(ctx context.Context, actor Actor, farmerID uuid.UUID) ([]models.Product, error) {
	includeInactive := actor.ID == farmerID || actor.IsAdmin()
	list, err := s.repo.ListByFarmer(ctx, farmerID, includeInactive)
	return list, mapRepoError(err)
}

// Delete удаляет объявление, если по нему не было заказов.
func (s *ProductService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	return mapRepoError(s.repo.Delete(ctx, id))
}

// Restore возвращает снятое объявление в продажу.
func (s *ProductService) Restore(ctx context.Context, actor Actor, id uuid.UUID) (*models.Product, error) {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.ProductStatusInactive {
		return nil, apperror.Conflict("восстановить можно только снятое объявление")
	}
	if err := s.repo.TransitionStatus(ctx, id, models.ProductStatusInactive, models.ProductStatusActive); err != nil {
		return nil, mapRepoError(err)
	}
	p.Status = models.ProductStatusActive
	return p, nil
}

func (s *ProductService) owned(ctx context.Context, actor Actor, id uuid.UUID) (*models.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if p.FarmerID != actor.ID && !actor.IsAdmin() {
		return nil, apperror.Forbidden("объявление принадлежит другому фермеру")
	}
	return p, nil
}

func (s *ProductService) locate(in LocationInput) (models.Location, string, error) {
	if in.Lat == nil || in.Lng == nil {
		return models.Location{}, "", apperror.Validation("у объявления должно быть местоположение")
	}
	if err := geo.ValidateCoordinates(*in.Lat, *in.Lng); err != nil {
		return models.Location{}, "", apperror.Validation(err.Error())
	}
	loc := models.Location{
		Lat:     *in.Lat,
		Lng:     *in.Lng,
		Address: strings.TrimSpace(in.Address),
		City:    strings.TrimSpace(in.City),
		Country: strings.TrimSpace(in.Country),
	}
	return loc, geo.CellOf(loc.Lat, loc.Lng, s.resolution), nil
}

func validateDescription(d *string) error {
	if err := validation.ValidateOptionalLength("описание", d, maxDescriptionLen); err != nil {
		return apperror.Validation(err.Error())
	}
	return nil
}
