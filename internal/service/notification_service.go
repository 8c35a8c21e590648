package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/agromarket-backend/internal/logger"
	"github.com/ignatzorin/agromarket-backend/internal/models"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// AuditLogReader читает журнал аудита.
type AuditLogReader interface {
	List(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// Notifier создаёт уведомления из других сервисов. Ошибки не возвращаются.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, data models.JSONMap)
}

// NotificationService содержит бизнес-логику работы с уведомлениями.
type NotificationService struct {
	repo  NotificationRepository
	audit AuditLogReader
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(repo NotificationRepository, audit AuditLogReader) *NotificationService {
	return &NotificationService{repo: repo, audit: audit}
}

// Notify сохраняет уведомление. Сбой только логируется: основное действие
// к этому моменту уже зафиксировано.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, data models.JSONMap) {
	n := &models.Notification{
		UserID: userID,
		Type:   kind,
		Title:  title,
		Data:   data,
	}
	if body != "" {
		n.Body = &body
	}

	if err := s.repo.Create(ctx, n); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"type":    kind,
		}).WithError(err).Warn("не удалось создать уведомление")
	}
}

// ListNotifications возвращает список уведомлений пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.repo.List(ctx, userID, limit, offset, unreadOnly)
	return list, mapRepoError(err)
}

// MarkAsRead отмечает уведомление как прочитанное. Чужое уведомление
// неотличимо от отсутствующего.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return mapRepoError(s.repo.MarkAsRead(ctx, id, userID))
}

// DeleteNotification удаляет уведомление.
func (s *NotificationService) DeleteNotification(ctx context.Context, id, userID uuid.UUID) error {
	return mapRepoError(s.repo.Delete(ctx, id, userID))
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	return count, mapRepoError(err)
}

// AuditLogs последние записи журнала аудита для администратора.
func (s *NotificationService) AuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	logs, err := s.audit.List(ctx, limit)
	return logs, mapRepoError(err)
}
