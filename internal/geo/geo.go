// Package geo реализует грубую геосетку и точный расчёт расстояний
// для поиска "рядом со мной" без пространственных расширений БД.
package geo

import (
	"errors"
	"fmt"
	"math"
)

const (
	// EarthRadiusKm средний радиус Земли для формулы гаверсинуса.
	EarthRadiusKm = 6371.0
	// LatDegreeKm длина градуса широты, км.
	LatDegreeKm = 110.574
	// LngDegreeKmEquator длина градуса долготы на экваторе, км.
	LngDegreeKmEquator = 111.320

	// MaxNeighborCells ограничивает размер IN-списка; при превышении
	// вызывающий код сканирует всю роль.
	MaxNeighborCells = 4096

	minResolution = 1
	maxResolution = 100
)

var ErrInvalidCoordinates = errors.New("некорректные координаты: lat должен быть в [-90,90], lng в [-180,180]")

// Point точка на сфере в градусах.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ValidateCoordinates проверяет, что координаты конечны и в допустимых диапазонах.
func ValidateCoordinates(lat, lng float64) error {
	if !IsFinite(lat) || !IsFinite(lng) {
		return ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// CellOf возвращает ключ ячейки "floor(lat*res):floor(lng*res)".
// Долгота 180 совпадает с -180 и попадает в ту же ячейку.
func CellOf(lat, lng float64, res int) string {
	res = clampResolution(res)
	if lng >= 180 {
		lng = -180
	}
	r := float64(res)
	return cellKey(int(math.Floor(lat*r)), int(math.Floor(lng*r)))
}

// NeighborCells перечисляет ячейки, покрывающие круг radiusKm вокруг точки.
// Результат всегда надмножество истинного круга, поэтому кандидатов нужно
// дофильтровать по BoundingBox и HaversineKm. nil означает, что фильтр по
// ячейкам бесполезен (круг задевает полюс или ячеек слишком много).
func NeighborCells(lat, lng, radiusKm float64, res int) []string {
	res = clampResolution(res)
	if !IsFinite(radiusKm) || radiusKm < 0 {
		radiusKm = 0
	}
	r := float64(res)

	cellKm := LatDegreeKm / r
	latRange := int(math.Ceil(radiusKm / math.Max(cellKm, 1)))
	if latRange < 0 {
		latRange = 0
	}

	box := NewBoundingBox(lat, lng, radiusKm)
	if box.FullLongitude {
		return nil
	}
	// Вдали от экватора ячейка по долготе уже, поэтому шагов нужно больше.
	lngRange := int(math.Ceil(box.HalfWidthLng * r))
	if lngRange < latRange {
		lngRange = latRange
	}

	lngBuckets := 360 * res
	if 2*lngRange+1 >= lngBuckets {
		return nil
	}
	if (2*latRange+1)*(2*lngRange+1) > MaxNeighborCells {
		return nil
	}

	if lng >= 180 {
		lng = -180
	}
	baseLat := int(math.Floor(lat * r))
	baseLng := int(math.Floor(lng * r))
	minLatBucket, maxLatBucket := -90*res, 90*res

	seen := make(map[string]struct{}, (2*latRange+1)*(2*lngRange+1))
	cells := make([]string, 0, (2*latRange+1)*(2*lngRange+1))
	for dy := -latRange; dy <= latRange; dy++ {
		latBucket := baseLat + dy
		if latBucket < minLatBucket || latBucket > maxLatBucket {
			continue
		}
		for dx := -lngRange; dx <= lngRange; dx++ {
			key := cellKey(latBucket, wrapLngBucket(baseLng+dx, res))
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			cells = append(cells, key)
		}
	}
	return cells
}

// BoundingBox дешёвый прямоугольный префильтр перед гаверсинусом.
type BoundingBox struct {
	MinLat        float64
	MaxLat        float64
	CenterLng     float64
	HalfWidthLng  float64
	FullLongitude bool
}

// NewBoundingBox строит прямоугольник, гарантированно содержащий круг radiusKm.
// Полуширина по долготе берётся из сферической формулы и не бывает уже
// приближения radiusKm/(111.320*cos(lat)).
func NewBoundingBox(lat, lng, radiusKm float64) BoundingBox {
	dLat := radiusKm / LatDegreeKm
	box := BoundingBox{
		MinLat:    lat - dLat,
		MaxLat:    lat + dLat,
		CenterLng: lng,
	}

	angular := radiusKm / EarthRadiusKm
	latRad := toRad(lat)
	if angular >= math.Pi/2-math.Abs(latRad) {
		box.FullLongitude = true
		box.HalfWidthLng = 180
		return box
	}

	dLng := toDeg(math.Asin(math.Sin(angular) / math.Cos(latRad)))
	approx := radiusKm / math.Max(LngDegreeKmEquator*math.Cos(latRad), 1e-6)
	if approx > dLng {
		dLng = approx
	}
	box.HalfWidthLng = dLng
	return box
}

// Contains проверяет попадание точки с учётом перехода через 180-й меридиан.
func (b BoundingBox) Contains(lat, lng float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	if b.FullLongitude {
		return true
	}
	d := math.Abs(lng - b.CenterLng)
	if d > 180 {
		d = 360 - d
	}
	return d <= b.HalfWidthLng
}

// HaversineKm расстояние по большому кругу в километрах.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// RoundKm округляет расстояние до двух знаков.
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

func cellKey(latBucket, lngBucket int) string {
	return fmt.Sprintf("%d:%d", latBucket, lngBucket)
}

func wrapLngBucket(b, res int) int {
	span := 360 * res
	shifted := (b + 180*res) % span
	if shifted < 0 {
		shifted += span
	}
	return shifted - 180*res
}

func clampResolution(res int) int {
	if res < minResolution {
		return minResolution
	}
	if res > maxResolution {
		return maxResolution
	}
	return res
}

// IsFinite сообщает, что значение не NaN и не бесконечность.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }
