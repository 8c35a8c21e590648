package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/agromarket-backend/internal/repository"
)

type mockLocationUsers struct {
	mock.Mock
}

func (m *mockLocationUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockLocationUsers) UpdateLocation(ctx context.Context, id uuid.UUID, loc models.Location, geoCell string) (*models.User, error) {
	args := m.Called(ctx, id, loc, geoCell)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockLocationUsers) ListNearbyCandidates(ctx context.Context, role string, cells []string) ([]models.User, error) {
	args := m.Called(ctx, role, cells)
	return args.Get(0).([]models.User), args.Error(1)
}

type mockLocationProducts struct {
	mock.Mock
}

func (m *mockLocationProducts) ListNearbyCandidates(ctx context.Context, cells []string, category string) ([]models.Product, error) {
	args := m.Called(ctx, cells, category)
	return args.Get(0).([]models.Product), args.Error(1)
}

func ptr[T any](v T) *T { return &v }

func farmerAt(name string, lat, lng float64) models.User {
	return models.User{
		ID:       uuid.New(),
		Username: name,
		Role:     models.RoleFarmer,
		Status:   models.UserStatusActive,
		Location: &models.Location{Lat: lat, Lng: lng},
	}
}

func TestLocationService_UpdateLocation(t *testing.T) {
	users := new(mockLocationUsers)
	svc := NewLocationService(users, new(mockLocationProducts), 10, nil)
	ctx := context.Background()
	userID := uuid.New()

	users.On("UpdateLocation", ctx, userID, mock.MatchedBy(func(loc models.Location) bool {
		return loc.Lat == 55.75 && loc.Lng == 37.62 && loc.City == "Москва" && loc.UpdatedAt != nil
	}), "557:376").Return(&models.User{ID: userID}, nil)

	user, err := svc.UpdateLocation(ctx, userID, LocationInput{Lat: ptr(55.75), Lng: ptr(37.62), City: " Москва "})
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	users.AssertExpectations(t)
}

func TestLocationService_UpdateLocation_Invalid(t *testing.T) {
	svc := NewLocationService(new(mockLocationUsers), new(mockLocationProducts), 10, nil)
	ctx := context.Background()

	_, err := svc.UpdateLocation(ctx, uuid.New(), LocationInput{Lat: ptr(91.0), Lng: ptr(10.0)})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.UpdateLocation(ctx, uuid.New(), LocationInput{Lat: ptr(10.0)})
	assert.True(t, apperror.IsValidation(err))
}

func TestLocationService_UpdateLocation_UnknownUser(t *testing.T) {
	users := new(mockLocationUsers)
	svc := NewLocationService(users, new(mockLocationProducts), 10, nil)
	ctx := context.Background()
	userID := uuid.New()

	users.On("UpdateLocation", ctx, userID, mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound)

	_, err := svc.UpdateLocation(ctx, userID, LocationInput{Lat: ptr(1.0), Lng: ptr(2.0)})
	assert.True(t, apperror.IsNotFound(err))
}

func TestLocationService_NearbyUsers_FiltersAndSorts(t *testing.T) {
	users := new(mockLocationUsers)
	svc := NewLocationService(users, new(mockLocationProducts), 10, nil)
	ctx := context.Background()

	far := farmerAt("far", 55.3, 37.0)    // ~33 км
	mid := farmerAt("mid", 55.2, 37.0)    // ~22 км
	near := farmerAt("near", 55.05, 37.0) // ~5.6 км
	noLoc := models.User{ID: uuid.New(), Role: models.RoleFarmer}

	users.On("ListNearbyCandidates", ctx, models.RoleFarmer, mock.Anything).
		Return([]models.User{far, mid, noLoc, near}, nil)

	res, err := svc.NearbyUsers(ctx, uuid.New(), models.RoleFarmer, NearbyQuery{Lat: ptr(55.0), Lng: ptr(37.0)})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "near", res.Items[0].Username)
	assert.Equal(t, "mid", res.Items[1].Username)
	assert.InDelta(t, 5.56, res.Items[0].DistanceKm, 0.01)
	assert.Equal(t, DefaultRadiusKm, res.RadiusKm)
	assert.Equal(t, 55.0, res.Origin.Lat)
}

func TestLocationService_NearbyUsers_LimitAndRadiusCap(t *testing.T) {
	users := new(mockLocationUsers)
	svc := NewLocationService(users, new(mockLocationProducts), 10, nil)
	ctx := context.Background()

	candidates := make([]models.User, 0, 5)
	for i := 0; i < 5; i++ {
		candidates = append(candidates, farmerAt("f", 10+float64(i)*0.01, 10))
	}
	users.On("ListNearbyCandidates", ctx, models.RoleFarmer, mock.Anything).Return(candidates, nil)

	res, err := svc.NearbyUsers(ctx, uuid.New(), models.RoleFarmer, NearbyQuery{
		Lat: ptr(10.0), Lng: ptr(10.0), RadiusKm: 5000, Limit: 3,
	})
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
	assert.Equal(t, MaxRadiusKm, res.RadiusKm)
	assert.Equal(t, 0.0, res.Items[0].DistanceKm)
}

func TestLocationService_NearbyUsers_StoredOrigin(t *testing.T) {
	users := new(mockLocationUsers)
	svc := NewLocationService(users, new(mockLocationProducts), 10, nil)
	ctx := context.Background()
	buyer := uuid.New()

	users.On("GetByID", ctx, buyer).Return(&models.User{ID: buyer, Location: &models.Location{Lat: 48.1, Lng: 11.5}}, nil)
	users.On("ListNearbyCandidates", ctx, models.RoleFarmer, mock.Anything).Return([]models.User{}, nil)

	res, err := svc.NearbyUsers(ctx, buyer, models.RoleFarmer, NearbyQuery{})
	require.NoError(t, err)
	assert.Equal(t, 48.1, res.Origin.Lat)
	assert.Empty(t, res.Items)
}

func TestLocationService_NearbyUsers_NoOrigin(t *testing.T) {
	users := new(mockLocationUsers)
	svc := NewLocationService(users, new(mockLocationProducts), 10, nil)
	ctx := context.Background()
	buyer := uuid.New()

	users.On("GetByID", ctx, buyer).Return(&models.User{ID: buyer}, nil)

	_, err := svc.NearbyUsers(ctx, buyer, models.RoleFarmer, NearbyQuery{})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.NearbyUsers(ctx, buyer, models.RoleFarmer, NearbyQuery{Lat: ptr(1.0)})
	assert.True(t, apperror.IsValidation(err))
}

func TestLocationService_NearbyProducts(t *testing.T) {
	products := new(mockLocationProducts)
	svc := NewLocationService(new(mockLocationUsers), products, 10, nil)
	ctx := context.Background()

	tomatoes := models.Product{ID: uuid.New(), Title: "Томаты", Category: "vegetables", QuantityAvailable: 10,
		Location: models.Location{Lat: 45.01, Lng: 39.0}}
	remote := models.Product{ID: uuid.New(), Title: "Далеко", Category: "vegetables", QuantityAvailable: 5,
		Location: models.Location{Lat: 46.0, Lng: 39.0}}

	products.On("ListNearbyCandidates", ctx, mock.Anything, "vegetables").Return([]models.Product{remote, tomatoes}, nil)

	res, err := svc.NearbyProducts(ctx, uuid.New(), NearbyQuery{Lat: ptr(45.0), Lng: ptr(39.0), Category: "vegetables"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Томаты", res.Items[0].Name)
	assert.InDelta(t, 1.11, res.Items[0].DistanceKm, 0.01)
}

func TestLocationService_NearbyProducts_UnknownCategory(t *testing.T) {
	svc := NewLocationService(new(mockLocationUsers), new(mockLocationProducts), 10, nil)

	_, err := svc.NearbyProducts(context.Background(), uuid.New(), NearbyQuery{Lat: ptr(1.0), Lng: ptr(1.0), Category: "cars"})
	assert.True(t, apperror.IsValidation(err))
}
