package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// destination возвращает точку на расстоянии distKm по азимуту bearingDeg.
func destination(lat, lng, bearingDeg, distKm float64) (float64, float64) {
	delta := distKm / EarthRadiusKm
	theta := toRad(bearingDeg)
	phi1 := toRad(lat)
	lambda1 := toRad(lng)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(phi1), math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2))

	outLng := math.Mod(toDeg(lambda2)+540, 360) - 180
	return toDeg(phi2), outLng
}

func TestValidateCoordinates(t *testing.T) {
	assert.NoError(t, ValidateCoordinates(0, 0))
	assert.NoError(t, ValidateCoordinates(-90, 180))
	assert.ErrorIs(t, ValidateCoordinates(91, 0), ErrInvalidCoordinates)
	assert.ErrorIs(t, ValidateCoordinates(0, -180.01), ErrInvalidCoordinates)
	assert.ErrorIs(t, ValidateCoordinates(math.NaN(), 0), ErrInvalidCoordinates)
	assert.ErrorIs(t, ValidateCoordinates(0, math.Inf(1)), ErrInvalidCoordinates)
}

func TestCellOf(t *testing.T) {
	assert.Equal(t, "557:376", CellOf(55.7558, 37.6173, 10))
	assert.Equal(t, "-339:1512", CellOf(-33.8688, 151.2093, 10))
	assert.Equal(t, "55:37", CellOf(55.7558, 37.6173, 1))
	assert.Equal(t, "0:-1800", CellOf(0, 180, 10))
	assert.Equal(t, CellOf(0, -180, 10), CellOf(0, 180, 10))

	// стабильность: одинаковый вход даёт одинаковый ключ
	for i := 0; i < 10; i++ {
		assert.Equal(t, "12:-45", CellOf(1.25, -4.45, 10))
	}
}

func TestCellOf_AdjacentBucketsDoNotOverlap(t *testing.T) {
	assert.Equal(t, "0:0", CellOf(0.0999, 0.0999, 10))
	assert.Equal(t, "1:1", CellOf(0.1001, 0.1001, 10))
	assert.Equal(t, "-1:-1", CellOf(-0.0001, -0.0001, 10))
}

func TestCellOf_ResolutionIsClamped(t *testing.T) {
	assert.Equal(t, CellOf(10.5, 20.5, 1), CellOf(10.5, 20.5, 0))
	assert.Equal(t, CellOf(10.5, 20.5, 100), CellOf(10.5, 20.5, 1000))
}

func TestNeighborCells_EquatorSquare(t *testing.T) {
	cells := NeighborCells(0.05, 0.05, 25, 10)
	require.NotNil(t, cells)

	assert.Len(t, cells, 49)
	assert.Contains(t, cells, "0:0")
	assert.Contains(t, cells, "3:3")
	assert.Contains(t, cells, "-3:-3")
}

func TestNeighborCells_ZeroRadiusIsOriginCell(t *testing.T) {
	cells := NeighborCells(55.7558, 37.6173, 0, 10)
	assert.Equal(t, []string{"557:376"}, cells)
}

func TestNeighborCells_WrapsAntimeridian(t *testing.T) {
	cells := NeighborCells(0, 179.95, 25, 10)
	require.NotNil(t, cells)

	assert.Contains(t, cells, "0:1799")
	assert.Contains(t, cells, "0:-1800")
	assert.NotContains(t, cells, "0:1800")
}

func TestNeighborCells_DegradesNearPole(t *testing.T) {
	assert.Nil(t, NeighborCells(89.9, 0, 50, 10))
}

func TestNeighborCells_DegradesWhenTooManyCells(t *testing.T) {
	assert.Nil(t, NeighborCells(10, 10, 200, 100))
}

func TestNeighborCells_NoDuplicates(t *testing.T) {
	cells := NeighborCells(60, 30, 200, 10)
	seen := map[string]bool{}
	for _, c := range cells {
		assert.False(t, seen[c], "duplicate cell %s", c)
		seen[c] = true
	}
}

func TestNeighborCells_SupersetOfRadius(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	origins := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 55.7558, Lng: 37.6173},
		{Lat: -1.2921, Lng: 36.8219},
		{Lat: 70, Lng: 25},
		{Lat: -75, Lng: 179.95},
		{Lat: 64.5, Lng: -179.99},
	}
	radii := []float64{1, 5, 25, 100, 200}
	resolutions := []int{1, 10, 50}

	for _, o := range origins {
		for _, radius := range radii {
			for _, res := range resolutions {
				cells := NeighborCells(o.Lat, o.Lng, radius, res)
				set := make(map[string]struct{}, len(cells))
				for _, c := range cells {
					set[c] = struct{}{}
				}
				box := NewBoundingBox(o.Lat, o.Lng, radius)

				for i := 0; i < 200; i++ {
					dist := rng.Float64() * radius * 0.999
					lat, lng := destination(o.Lat, o.Lng, rng.Float64()*360, dist)
					require.LessOrEqual(t, HaversineKm(o.Lat, o.Lng, lat, lng), radius)

					assert.True(t, box.Contains(lat, lng), "bbox miss origin=%v r=%v point=(%v,%v)", o, radius, lat, lng)
					if cells != nil {
						_, ok := set[CellOf(lat, lng, res)]
						assert.True(t, ok, "cell miss origin=%v r=%v res=%d point=(%v,%v)", o, radius, res, lat, lng)
					}
				}
			}
		}
	}
}

func TestBoundingBox_RejectsFarPoints(t *testing.T) {
	box := NewBoundingBox(0, 0, 25)

	assert.True(t, box.Contains(0, 0.05))
	assert.False(t, box.Contains(0, 1))
	assert.False(t, box.Contains(1, 0))
}

func TestBoundingBox_Antimeridian(t *testing.T) {
	box := NewBoundingBox(0, 179.9, 50)

	assert.True(t, box.Contains(0, -179.9))
	assert.False(t, box.Contains(0, -178))
}

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 0, HaversineKm(10, 10, 10, 10), 1e-9)
	assert.InDelta(t, 5.56, RoundKm(HaversineKm(0, 0, 0, 0.05)), 0.001)
	assert.InDelta(t, 111.19, RoundKm(HaversineKm(0, 0, 0, 1)), 0.001)
	// Москва - Санкт-Петербург
	assert.InDelta(t, 634, HaversineKm(55.7558, 37.6173, 59.9343, 30.3351), 5)
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 1.23, RoundKm(1.234))
	assert.Equal(t, 1.24, RoundKm(1.2351))
	assert.Equal(t, 0.0, RoundKm(0.001))
}
