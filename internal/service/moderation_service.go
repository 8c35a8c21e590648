package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/agromarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/agromarket-backend/internal/logger"
	"github.com/ignatzorin/agromarket-backend/internal/metrics"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/agromarket-backend/internal/repository"
	"github.com/ignatzorin/agromarket-backend/internal/validation"
)

const (
	DefaultStrikeThreshold = 3
	maxEvidenceLinks       = 10
	maxReportDescription   = 2000
)

type ReportRepository interface {
	Create(ctx context.Context, report *models.UserReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserReport, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.UserReport, int, error)
	Validate(ctx context.Context, id, admin uuid.UUID, note *string, threshold int) (*repository.ValidationOutcome, error)
	Reject(ctx context.Context, id, admin uuid.UUID, note *string) (*models.UserReport, error)
	LatestValidatedAgainst(ctx context.Context, userID uuid.UUID) (*models.UserReport, error)
	CreateAppeal(ctx context.Context, reportID, userID uuid.UUID, reason *string) (*models.ReportAppeal, bool, error)
	ListAppealsByUser(ctx context.Context, userID uuid.UUID) ([]models.ReportAppeal, error)
	ListAppeals(ctx context.Context, status string) ([]models.ReportAppeal, error)
	ResolveAppeal(ctx context.Context, id, resolver uuid.UUID, note *string) (*models.ReportAppeal, error)
}

// AccountRepository блокировка и разблокировка аккаунтов с каскадом по заказам.
type AccountRepository interface {
	Suspend(ctx context.Context, userID, actor uuid.UUID) (*repository.SuspendResult, error)
	Unsuspend(ctx context.Context, userID, actor uuid.UUID) (*repository.UnsuspendResult, error)
	Ban(ctx context.Context, userID, actor uuid.UUID) error
}

type ModerationUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type CreateReportInput struct {
	ReportedUser       string   `json:"reported_user_id" binding:"required"`
	ReasonCode         string   `json:"reason_code" binding:"required"`
	Description        *string  `json:"description"`
	EvidenceMediaLinks []string `json:"evidence_media_links"`
}

// ValidationResult ответ на подтверждение жалобы.
type ValidationResult struct {
	Report       *models.UserReport `json:"report"`
	Strikes      int                `json:"strikes"`
	Suspended    bool               `json:"suspended"`
	PausedOrders int                `json:"paused_orders"`
}

type SuspensionResult struct {
	UserID           uuid.UUID `json:"user_id"`
	Status           string    `json:"status"`
	AlreadySuspended bool      `json:"already_suspended,omitempty"`
	PausedOrders     int       `json:"paused_orders"`
}

type ReactivationResult struct {
	UserID  uuid.UUID                 `json:"user_id"`
	Status  string                    `json:"status"`
	Resumed []repository.ResumedOrder `json:"resumed"`
}

type ModerationService struct {
	reports   ReportRepository
	accounts  AccountRepository
	users     ModerationUserRepository
	notifier  Notifier
	metrics   *metrics.Metrics
	threshold int
}

func NewModerationService(reports ReportRepository, accounts AccountRepository, users ModerationUserRepository, notifier Notifier, m *metrics.Metrics, threshold int) *ModerationService {
	if threshold <= 0 {
		threshold = DefaultStrikeThreshold
	}
	return &ModerationService{
		reports:   reports,
		accounts:  accounts,
		users:     users,
		notifier:  notifier,
		metrics:   m,
		threshold: threshold,
	}
}

// CreateReport жалоба на пользователя. Цель задаётся username или uuid.
func (s *ModerationService) CreateReport(ctx context.Context, reporterID uuid.UUID, in CreateReportInput) (*models.UserReport, error) {
	if _, ok := models.ValidReportReasons[in.ReasonCode]; !ok {
		return nil, apperror.Validation("некорректный код причины")
	}
	if err := validation.ValidateOptionalLength("описание", in.Description, maxReportDescription); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if len(in.EvidenceMediaLinks) > maxEvidenceLinks {
		return nil, apperror.Validation(fmt.Sprintf("не больше %d ссылок на доказательства", maxEvidenceLinks))
	}

	target, err := s.resolveUser(ctx, in.ReportedUser)
	if err != nil {
		return nil, err
	}
	if target.ID == reporterID {
		return nil, apperror.Validation("нельзя пожаловаться на себя")
	}

	links := make(models.StringList, 0, len(in.EvidenceMediaLinks))
	for _, l := range in.EvidenceMediaLinks {
		if l = strings.TrimSpace(l); l == "" {
			continue
		}
		if err := validation.ValidateEvidenceLink(l); err != nil {
			return nil, apperror.Validation(err.Error())
		}
		links = append(links, l)
	}

	report := &models.UserReport{
		ReportedUserID:     target.ID,
		ReporterID:         reporterID,
		ReasonCode:         in.ReasonCode,
		Description:        trimmedOrNil(in.Description),
		EvidenceMediaLinks: links,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, mapRepoError(err)
	}

	s.notifier.Notify(ctx, target.ID, models.NotificationReportReceived, "На вас поступила жалоба", "",
		models.JSONMap{"reportId": report.ID.String(), "reasonCode": report.ReasonCode})
	return report, nil
}

func (s *ModerationService) resolveUser(ctx context.Context, ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperror.Validation("reported_user_id обязателен")
	}
	var (
		user *models.User
		err  error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		user, err = s.users.GetByID(ctx, id)
	} else {
		user, err = s.users.GetByUsername(ctx, ref)
	}
	if err != nil {
		return nil, mapRepoError(err)
	}
	return user, nil
}

func (s *ModerationService) ListReports(ctx context.Context, status string, limit, offset int) ([]models.UserReport, int, error) {
	if status != "" {
		if _, err := valueobject.NewReportStatus(status); err != nil {
			return nil, 0, err
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	list, total, err := s.reports.List(ctx, status, limit, offset)
	return list, total, mapRepoError(err)
}

// ValidateReport подтверждает жалобу: страйк и, по достижении порога,
// блокировка с приостановкой заказов.
func (s *ModerationService) ValidateReport(ctx context.Context, admin, id uuid.UUID, note *string) (*ValidationResult, error) {
	outcome, err := s.reports.Validate(ctx, id, admin, trimmedOrNil(note), s.threshold)
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.metrics.Strike()
	target := outcome.Report.ReportedUserID
	data := models.JSONMap{
		"reportId": outcome.Report.ID.String(),
		"strikes":  outcome.Strikes,
	}
	if outcome.Suspended {
		s.metrics.Suspension(len(outcome.PausedOrders))
		data["pausedOrders"] = len(outcome.PausedOrders)
		s.notifier.Notify(ctx, target, models.NotificationModeration, "Аккаунт заблокирован",
			fmt.Sprintf("Получено страйков: %d. Активные заказы приостановлены.", outcome.Strikes), data)
		logger.Log.WithFields(logrus.Fields{
			"user_id":       target,
			"strikes":       outcome.Strikes,
			"paused_orders": len(outcome.PausedOrders),
		}).Info("пользователь заблокирован по страйкам")
	} else {
		s.notifier.Notify(ctx, target, models.NotificationModeration, "Начислен страйк",
			fmt.Sprintf("Страйков: %d из %d.", outcome.Strikes, s.threshold), data)
	}

	return &ValidationResult{
		Report:       outcome.Report,
		Strikes:      outcome.Strikes,
		Suspended:    outcome.Suspended,
		PausedOrders: len(outcome.PausedOrders),
	}, nil
}

func (s *ModerationService) RejectReport(ctx context.Context, admin, id uuid.UUID, note *string) (*models.UserReport, error) {
	report, err := s.reports.Reject(ctx, id, admin, trimmedOrNil(note))
	if err != nil {
		return nil, mapRepoError(err)
	}
	return report, nil
}

// Suspend ручная блокировка. Повторная блокировка заказы не трогает.
func (s *ModerationService) Suspend(ctx context.Context, admin, userID uuid.UUID) (*SuspensionResult, error) {
	res, err := s.accounts.Suspend(ctx, userID, admin)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := &SuspensionResult{
		UserID:           userID,
		Status:           models.UserStatusSuspended,
		AlreadySuspended: res.AlreadySuspended,
		PausedOrders:     len(res.PausedOrders),
	}
	if res.AlreadySuspended {
		return out, nil
	}

	s.metrics.Suspension(len(res.PausedOrders))
	s.notifier.Notify(ctx, userID, models.NotificationAccountSuspended, "Аккаунт заблокирован", "",
		models.JSONMap{"pausedOrders": len(res.PausedOrders)})
	return out, nil
}

// Unsuspend снимает блокировку и возвращает заказы в статус до паузы.
func (s *ModerationService) Unsuspend(ctx context.Context, admin, userID uuid.UUID) (*ReactivationResult, error) {
	res, err := s.accounts.Unsuspend(ctx, userID, admin)
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.metrics.OrdersResumed(len(res.Resumed))
	if res.WasSuspended {
		s.notifier.Notify(ctx, userID, models.NotificationAccountReactivated, "Аккаунт разблокирован", "",
			models.JSONMap{"resumedOrders": len(res.Resumed)})
	}
	return &ReactivationResult{UserID: userID, Status: models.UserStatusActive, Resumed: res.Resumed}, nil
}

func (s *ModerationService) Ban(ctx context.Context, admin, userID uuid.UUID) error {
	if admin == userID {
		return apperror.Validation("нельзя заблокировать себя")
	}
	if err := s.accounts.Ban(ctx, userID, admin); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// AppealReport апелляция на подтверждённую жалобу против самого пользователя.
func (s *ModerationService) AppealReport(ctx context.Context, userID, reportID uuid.UUID, reason *string) (*models.ReportAppeal, bool, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, false, mapRepoError(err)
	}
	if report.ReportedUserID != userID {
		return nil, false, apperror.ErrForbidden
	}
	if report.Status != string(valueobject.ReportStatusValidated) {
		return nil, false, apperror.Conflict("обжаловать можно только подтверждённую жалобу")
	}
	return s.openAppeal(ctx, report.ID, userID, reason)
}

// AppealLatest апелляция на последнюю подтверждённую жалобу.
func (s *ModerationService) AppealLatest(ctx context.Context, userID uuid.UUID, reason *string) (*models.ReportAppeal, bool, error) {
	report, err := s.reports.LatestValidatedAgainst(ctx, userID)
	if errors.Is(err, repository.ErrReportNotFound) {
		return nil, false, apperror.NotFound("нет подтверждённых жалоб для обжалования")
	}
	if err != nil {
		return nil, false, mapRepoError(err)
	}
	return s.openAppeal(ctx, report.ID, userID, reason)
}

func (s *ModerationService) openAppeal(ctx context.Context, reportID, userID uuid.UUID, reason *string) (*models.ReportAppeal, bool, error) {
	appeal, created, err := s.reports.CreateAppeal(ctx, reportID, userID, trimmedOrNil(reason))
	if err != nil {
		return nil, false, mapRepoError(err)
	}
	return appeal, created, nil
}

func (s *ModerationService) MyAppeals(ctx context.Context, userID uuid.UUID) ([]models.ReportAppeal, error) {
	list, err := s.reports.ListAppealsByUser(ctx, userID)
	return list, mapRepoError(err)
}

func (s *ModerationService) ListAppeals(ctx context.Context, status string) ([]models.ReportAppeal, error) {
	list, err := s.reports.ListAppeals(ctx, status)
	return list, mapRepoError(err)
}

func (s *ModerationService) ResolveReportAppeal(ctx context.Context, admin, id uuid.UUID, note *string) (*models.ReportAppeal, error) {
	appeal, err := s.reports.ResolveAppeal(ctx, id, admin, trimmedOrNil(note))
	if err != nil {
		return nil, mapRepoError(err)
	}
	s.notifier.Notify(ctx, appeal.UserID, models.NotificationModeration, "Апелляция рассмотрена", "",
		models.JSONMap{"appealId": appeal.ID.String(), "reportId": appeal.ReportID.String()})
	return appeal, nil
}
