package service

import (
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/geo"
	"github.com/ignatzorin/agromarket-backend/internal/metrics"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
)

// Параметры поиска поблизости.
const (
	DefaultRadiusKm     = 25.0
	MaxRadiusKm         = 200.0
	DefaultUsersLimit   = 20
	DefaultProductLimit = 30
	MaxNearbyLimit      = 100
)

type LocationUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, loc models.Location, geoCell string) (*models.User, error)
	ListNearbyCandidates(ctx context.Context, role string, cells []string) ([]models.User, error)
}

type LocationProductRepository interface {
	ListNearbyCandidates(ctx context.Context, cells []string, category string) ([]models.Product, error)
}

// LocationInput тело PATCH /api/location.
type LocationInput struct {
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Address string   `json:"address"`
	City    string   `json:"city"`
	Country string   `json:"country"`
}

// NearbyQuery параметры запроса. Нулевые значения заменяются умолчаниями.
type NearbyQuery struct {
	Lat      *float64
	Lng      *float64
	RadiusKm float64
	Limit    int
	Category string
}

type NearbyUser struct {
	ID           uuid.UUID       `json:"id"`
	Username     string          `json:"username"`
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	Location     models.Location `json:"location"`
	DistanceKm   float64         `json:"distanceKm"`
	FarmVerified bool            `json:"farmVerified"`
	RatingAvg    float64         `json:"ratingAvg"`
	RatingCount  int             `json:"ratingCount"`
}

type NearbyProduct struct {
	ID                uuid.UUID         `json:"id"`
	FarmerID          uuid.UUID         `json:"farmerId"`
	Name              string            `json:"name"`
	Category          string            `json:"category"`
	Price             float64           `json:"price"`
	Unit              string            `json:"unit"`
	QuantityAvailable int               `json:"quantityAvailable"`
	DiscountPercent   int               `json:"discountPercent"`
	IsOrganic         bool              `json:"isOrganic"`
	Images            models.StringList `json:"images"`
	Location          models.Location   `json:"location"`
	DistanceKm        float64           `json:"distanceKm"`
}

// NearbyResult ответ поиска: отсортированные элементы и фактические параметры.
type NearbyResult[T any] struct {
	Items    []T       `json:"items"`
	Origin   geo.Point `json:"origin"`
	RadiusKm float64   `json:"radiusKm"`
}

// LocationService хранит координаты пользователей и отвечает на запросы "рядом".
type LocationService struct {
	users      LocationUserRepository
	products   LocationProductRepository
	resolution int
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewLocationService(users LocationUserRepository, products LocationProductRepository, resolution int, m *metrics.Metrics) *LocationService {
	return &LocationService{
		users:      users,
		products:   products,
		resolution: resolution,
		metrics:    m,
		now:        time.Now,
	}
}

// UpdateLocation проверяет координаты и сохраняет их вместе с ячейкой сетки.
func (s *LocationService) UpdateLocation(ctx context.Context, userID uuid.UUID, in LocationInput) (*models.User, error) {
	if in.Lat == nil || in.Lng == nil {
		return nil, apperror.Validation("lat и lng обязательны")
	}
	if err := geo.ValidateCoordinates(*in.Lat, *in.Lng); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	now := s.now().UTC()
	loc := models.Location{
		Lat:       *in.Lat,
		Lng:       *in.Lng,
		Address:   strings.TrimSpace(in.Address),
		City:      strings.TrimSpace(in.City),
		Country:   strings.TrimSpace(in.Country),
		UpdatedAt: &now,
	}

	user, err := s.users.UpdateLocation(ctx, userID, loc, geo.CellOf(loc.Lat, loc.Lng, s.resolution))
	if err != nil {
		return nil, mapRepoError(err)
	}
	return user, nil
}

// GetMyLocation возвращает сохранённые координаты или nil.
func (s *LocationService) GetMyLocation(ctx context.Context, userID uuid.UUID) (*models.Location, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return user.Location, nil
}

// NearbyUsers ищет активных пользователей роли role в радиусе от точки отсчёта.
func (s *LocationService) NearbyUsers(ctx context.Context, requester uuid.UUID, role string, q NearbyQuery) (*NearbyResult[NearbyUser], error) {
	origin, err := s.resolveOrigin(ctx, requester, q)
	if err != nil {
		return nil, err
	}
	radius := normalizeRadius(q.RadiusKm)
	limit := normalizeLimit(q.Limit, DefaultUsersLimit)

	candidates, err := s.users.ListNearbyCandidates(ctx, role, geo.NeighborCells(origin.Lat, origin.Lng, radius, s.resolution))
	if err != nil {
		return nil, mapRepoError(err)
	}
	s.metrics.NearbyQuery(role, len(candidates))

	ranked := rankByDistance(origin, radius, limit, candidates, func(u models.User) *models.Location {
		return u.Location
	})

	items := make([]NearbyUser, 0, len(ranked))
	for _, r := range ranked {
		u := r.item
		items = append(items, NearbyUser{
			ID:           u.ID,
			Username:     u.Username,
			Name:         u.DisplayName(),
			Role:         u.Role,
			Location:     *u.Location,
			DistanceKm:   geo.RoundKm(r.distanceKm),
			FarmVerified: u.FarmVerified,
			RatingAvg:    u.RatingAvg,
			RatingCount:  u.RatingCount,
		})
	}
	return &NearbyResult[NearbyUser]{Items: items, Origin: origin, RadiusKm: radius}, nil
}

// NearbyProducts ищет активные объявления с остатком в радиусе.
func (s *LocationService) NearbyProducts(ctx context.Context, requester uuid.UUID, q NearbyQuery) (*NearbyResult[NearbyProduct], error) {
	origin, err := s.resolveOrigin(ctx, requester, q)
	if err != nil {
		return nil, err
	}
	radius := normalizeRadius(q.RadiusKm)
	limit := normalizeLimit(q.Limit, DefaultProductLimit)

	category := strings.TrimSpace(q.Category)
	if category != "" {
		if _, ok := models.ProductCategories[category]; !ok {
			return nil, apperror.Validation("неизвестная категория")
		}
	}

	candidates, err := s.products.ListNearbyCandidates(ctx, geo.NeighborCells(origin.Lat, origin.Lng, radius, s.resolution), category)
	if err != nil {
		return nil, mapRepoError(err)
	}
	s.metrics.NearbyQuery("products", len(candidates))

	ranked := rankByDistance(origin, radius, limit, candidates, func(p models.Product) *models.Location {
		return &p.Location
	})

	items := make([]NearbyProduct, 0, len(ranked))
	for _, r := range ranked {
		p := r.item
		items = append(items, NearbyProduct{
			ID:                p.ID,
			FarmerID:          p.FarmerID,
			Name:              p.Title,
			Category:          p.Category,
			Price:             p.Price,
			Unit:              p.Unit,
			QuantityAvailable: p.QuantityAvailable,
			DiscountPercent:   p.DiscountPercent,
			IsOrganic:         p.IsOrganic,
			Images:            p.Images,
			Location:          p.Location,
			DistanceKm:        geo.RoundKm(r.distanceKm),
		})
	}
	return &NearbyResult[NearbyProduct]{Items: items, Origin: origin, RadiusKm: radius}, nil
}

// resolveOrigin: явные координаты запроса, иначе сохранённые координаты
// пользователя. Неявной точки отсчёта нет.
func (s *LocationService) resolveOrigin(ctx context.Context, requester uuid.UUID, q NearbyQuery) (geo.Point, error) {
	if q.Lat != nil || q.Lng != nil {
		if q.Lat == nil || q.Lng == nil {
			return geo.Point{}, apperror.Validation("lat и lng передаются вместе")
		}
		if err := geo.ValidateCoordinates(*q.Lat, *q.Lng); err != nil {
			return geo.Point{}, apperror.Validation(err.Error())
		}
		return geo.Point{Lat: *q.Lat, Lng: *q.Lng}, nil
	}

	user, err := s.users.GetByID(ctx, requester)
	if err != nil {
		return geo.Point{}, mapRepoError(err)
	}
	if user.Location == nil || geo.ValidateCoordinates(user.Location.Lat, user.Location.Lng) != nil {
		return geo.Point{}, apperror.Validation("укажите lat/lng или сохраните своё местоположение")
	}
	return geo.Point{Lat: user.Location.Lat, Lng: user.Location.Lng}, nil
}

func normalizeRadius(r float64) float64 {
	if math.IsNaN(r) || r <= 0 {
		return DefaultRadiusKm
	}
	return math.Min(r, MaxRadiusKm)
}

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxNearbyLimit {
		return MaxNearbyLimit
	}
	return limit
}

type rankedItem[T any] struct {
	item       T
	distanceKm float64
}

// rankByDistance отбрасывает кандидатов без координат, отсекает по
// прямоугольнику, затем по гаверсинусу, сортирует и обрезает до limit.
func rankByDistance[T any](origin geo.Point, radiusKm float64, limit int, candidates []T, locate func(T) *models.Location) []rankedItem[T] {
	box := geo.NewBoundingBox(origin.Lat, origin.Lng, radiusKm)

	out := make([]rankedItem[T], 0, len(candidates))
	for _, c := range candidates {
		loc := locate(c)
		if loc == nil || !geo.IsFinite(loc.Lat) || !geo.IsFinite(loc.Lng) {
			continue
		}
		if !box.Contains(loc.Lat, loc.Lng) {
			continue
		}
		d := geo.HaversineKm(origin.Lat, origin.Lng, loc.Lat, loc.Lng)
		if d <= radiusKm {
			out = append(out, rankedItem[T]{item: c, distanceKm: d})
		}
	}

	slices.SortStableFunc(out, func(a, b rankedItem[T]) int {
		switch {
		case a.distanceKm < b.distanceKm:
			return -1
		case a.distanceKm > b.distanceKm:
			return 1
		}
		return 0
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
