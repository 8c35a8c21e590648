package valueobject

import (
	"fmt"
	"math"

	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
)

const (
	MinDiscountPercent = 0
	MaxDiscountPercent = 90
)

// DefaultCurrency валюта цен и сводок, когда другая не указана.
const DefaultCurrency = "RUB"

type Money struct {
	Amount   float64
	Currency string
}

func NewMoney(amount float64, currency string) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// Times стоимость qty единиц, округлённая до копеек.
func (m Money) Times(qty int) Money {
	return Money{Amount: math.Round(m.Amount*float64(qty)*100) / 100, Currency: m.Currency}
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Amount, m.Currency)
}

// ClampDiscount приводит скидку к диапазону 0..90 процентов.
func ClampDiscount(percent int) int {
	if percent < MinDiscountPercent {
		return MinDiscountPercent
	}
	if percent > MaxDiscountPercent {
		return MaxDiscountPercent
	}
	return percent
}
