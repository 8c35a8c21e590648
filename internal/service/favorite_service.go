package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/models"
)

type FavoriteRepository interface {
	Toggle(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	ListProducts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Product, error)
}

type FavoriteProductReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type FavoriteService struct {
	repo     FavoriteRepository
	products FavoriteProductReader
}

func NewFavoriteService(repo FavoriteRepository, products FavoriteProductReader) *FavoriteService {
	return &FavoriteService{repo: repo, products: products}
}

// Toggle добавляет объявление в избранное или убирает его. Возвращает новое состояние.
func (s *FavoriteService) Toggle(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return false, mapRepoError(err)
	}
	state, err := s.repo.Toggle(ctx, userID, productID)
	return state, mapRepoError(err)
}

func (s *FavoriteService) IsFavorite(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	ok, err := s.repo.Exists(ctx, userID, productID)
	return ok, mapRepoError(err)
}

func (s *FavoriteService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.repo.ListProducts(ctx, userID, limit, offset)
	return list, mapRepoError(err)
}
