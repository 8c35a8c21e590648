package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
)

// OrderRepository описывает взаимодействие сервиса с хранилищем заказов.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order, expectedQty int) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Transition(ctx context.Context, id uuid.UUID, from, to string, actor uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]models.Order, error)
}

type OrderProductReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type OrderHistoryReader interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
}

type CreateOrderInput struct {
	ProductID       uuid.UUID      `json:"product_id"`
	Quantity        int            `json:"quantity"`
	DeliveryAddress models.JSONMap `json:"delivery_address"`
	Notes           *string        `json:"notes"`
}

type OrderService struct {
	orders   OrderRepository
	products OrderProductReader
	history  OrderHistoryReader
	notifier Notifier
}

func NewOrderService(orders OrderRepository, products OrderProductReader, history OrderHistoryReader, notifier Notifier) *OrderService {
	return &OrderService{orders: orders, products: products, history: history, notifier: notifier}
}

// Create оформляет заказ и списывает остаток. Если остаток изменился между
// чтением и списанием, возвращается конфликт без повторной попытки.
func (s *OrderService) Create(ctx context.Context, actor Actor, in CreateOrderInput) (*models.Order, error) {
	if actor.Role != models.RoleBuyer {
		return nil, apperror.Forbidden("заказы оформляют только покупатели")
	}
	if in.Quantity <= 0 {
		return nil, apperror.Validation("количество должно быть положительным")
	}

	product, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if product.Status != models.ProductStatusActive {
		return nil, apperror.Conflict("объявление недоступно для заказа")
	}
	if product.FarmerID == actor.ID {
		return nil, apperror.Validation("нельзя заказать собственный товар")
	}
	if in.Quantity < product.MinimumOrder {
		return nil, apperror.Validation(fmt.Sprintf("минимальный заказ %d %s", product.MinimumOrder, product.Unit))
	}
	if in.Quantity > product.QuantityAvailable {
		return nil, apperror.Validation("недостаточно товара")
	}

	unit, err := valueobject.NewMoney(discountedPrice(product.Price, product.DiscountPercent), "")
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		BuyerID:         actor.ID,
		FarmerID:        product.FarmerID,
		ProductID:       product.ID,
		Quantity:        in.Quantity,
		UnitPrice:       unit.Amount,
		TotalAmount:     unit.Times(in.Quantity).Amount,
		Status:          string(valueobject.OrderStatusPending),
		DeliveryAddress: in.DeliveryAddress,
		Notes:           in.Notes,
	}
	if err := s.orders.Create(ctx, order, product.QuantityAvailable); err != nil {
		return nil, mapRepoError(err)
	}

	s.notifier.Notify(ctx, order.FarmerID, models.NotificationOrderStatus, "Новый заказ",
		fmt.Sprintf("%s: %d %s", product.Title, order.Quantity, product.Unit),
		models.JSONMap{"orderId": order.ID.String(), "status": order.Status})
	return order, nil
}

// UpdateStatus смена статуса фермером-владельцем или администратором.
// delivered выставляет только администратор.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (*models.Order, error) {
	to, err := valueobject.NewOrderStatus(status)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if order.FarmerID != actor.ID && !actor.IsAdmin() {
		return nil, apperror.Forbidden("статус заказа меняет только фермер")
	}
	if to == valueobject.OrderStatusDelivered && !actor.IsAdmin() {
		return nil, apperror.Forbidden("доставку подтверждает покупатель")
	}

	return s.transition(ctx, actor, order, to)
}

// MarkDelivered покупатель подтверждает получение отгруженного заказа.
func (s *OrderService) MarkDelivered(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	return s.buyerTransition(ctx, actor, id, valueobject.OrderStatusShipped, valueobject.OrderStatusDelivered)
}

// Cancel покупатель отменяет заказ, пока фермер его не принял.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	return s.buyerTransition(ctx, actor, id, valueobject.OrderStatusPending, valueobject.OrderStatusCancelled)
}

func (s *OrderService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !order.IsParticipant(actor.ID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, actor Actor, status string, limit, offset int) ([]models.Order, error) {
	if status != "" {
		if _, err := valueobject.NewOrderStatus(status); err != nil {
			return nil, err
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.orders.ListForUser(ctx, actor.ID, status, limit, offset)
	return list, mapRepoError(err)
}

// History журнал переходов заказа, старые записи первыми.
func (s *OrderService) History(ctx context.Context, actor Actor, id uuid.UUID) ([]models.OrderStatusHistory, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	list, err := s.history.ListByOrder(ctx, id)
	return list, mapRepoError(err)
}

func (s *OrderService) buyerTransition(ctx context.Context, actor Actor, id uuid.UUID, from, to valueobject.OrderStatus) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if order.BuyerID != actor.ID {
		return nil, apperror.Forbidden("действие доступно только покупателю")
	}
	if valueobject.OrderStatus(order.Status) != from {
		return nil, apperror.Conflict(fmt.Sprintf("заказ в статусе %s", order.Status))
	}
	return s.transition(ctx, actor, order, to)
}

func (s *OrderService) transition(ctx context.Context, actor Actor, order *models.Order, to valueobject.OrderStatus) (*models.Order, error) {
	from := valueobject.OrderStatus(order.Status)
	if from == valueobject.OrderStatusPaused {
		return nil, apperror.Conflict("заказ приостановлен модерацией")
	}
	if !from.CanTransitionTo(to) {
		return nil, apperror.Conflict(fmt.Sprintf("переход %s -> %s недопустим", from, to))
	}

	updated, err := s.orders.Transition(ctx, order.ID, string(from), string(to), actor.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	for _, participant := range []uuid.UUID{updated.BuyerID, updated.FarmerID} {
		if participant == actor.ID {
			continue
		}
		s.notifier.Notify(ctx, participant, models.NotificationOrderStatus, "Статус заказа изменён",
			fmt.Sprintf("%s -> %s", from, to),
			models.JSONMap{"orderId": updated.ID.String(), "from": string(from), "status": string(to)})
	}
	return updated, nil
}

func discountedPrice(price float64, discount int) float64 {
	discount = valueobject.ClampDiscount(discount)
	return math.Round(price*float64(100-discount)) / 100
}
