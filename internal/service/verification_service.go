package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/agromarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/agromarket-backend/internal/logger"
	"github.com/ignatzorin/agromarket-backend/internal/metrics"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/agromarket-backend/internal/repository"
	"github.com/ignatzorin/agromarket-backend/internal/storage"
)

const (
	presignTTL          = 10 * time.Minute
	maxSubmissionImages = 3
	respondMoreImages   = 3
	appealPriority      = 2
)

type VerificationRepository interface {
	CreateSubmission(ctx context.Context, sub *models.VerificationSubmission) error
	GetSubmission(ctx context.Context, id uuid.UUID) (*models.VerificationSubmission, error)
	LatestForUser(ctx context.Context, userID uuid.UUID) (*models.VerificationSubmission, error)
	ListSubmissions(ctx context.Context, status string, limit, offset int) ([]models.VerificationSubmission, int, error)
	History(ctx context.Context, submissionID uuid.UUID) ([]models.VerificationStatusHistory, error)
	Transition(ctx context.Context, t repository.VerificationTransition) (*repository.TransitionResult, error)
	GetUserVerification(ctx context.Context, userID uuid.UUID) (string, error)
	CreateUploadToken(ctx context.Context, token *models.UploadToken) error
	OpenAppeal(ctx context.Context, submissionID, userID uuid.UUID, reason *string, retentionUntil time.Time, priority int) (*repository.AppealResult, error)
	ListAppeals(ctx context.Context, status string) ([]models.VerificationAppeal, error)
	ResolveAppeal(ctx context.Context, appealID, resolver uuid.UUID, note *string, reinstate bool) (*models.VerificationAppeal, *repository.TransitionResult, error)
}

// ObjectStore хранилище доказательств. nil означает, что хранилище не настроено.
type ObjectStore interface {
	PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Stat(ctx context.Context, key string) (*storage.ObjectInfo, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Mailer отправляет письмо в фоне. Enabled false у выключенной почты.
type Mailer interface {
	Enabled() bool
	SendAsync(to, subject, body string)
}

type VerificationConfig struct {
	KeyPrefix       string
	TokenTTL        time.Duration
	AppealRetention time.Duration
	MaxUploadBytes  int64
}

// ImageRef ссылка клиента на загруженный файл.
type ImageRef struct {
	UploadKey string                 `json:"uploadKey"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// UploadTicket выданный ключ загрузки. UploadURL пуст для прямой загрузки.
type UploadTicket struct {
	UploadKey string    `json:"uploadKey"`
	UploadURL string    `json:"uploadUrl,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SubmissionDetails заявка вместе с журналом переходов.
type SubmissionDetails struct {
	Submission *models.VerificationSubmission     `json:"submission"`
	History    []models.VerificationStatusHistory `json:"history"`
}

type VerificationService struct {
	repo     VerificationRepository
	store    ObjectStore
	users    UserReader
	notifier Notifier
	mailer   Mailer
	metrics  *metrics.Metrics
	cfg      VerificationConfig
	now      func() time.Time
}

func NewVerificationService(repo VerificationRepository, store ObjectStore, users UserReader, notifier Notifier, mailer Mailer, m *metrics.Metrics, cfg VerificationConfig) *VerificationService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = presignTTL
	}
	if cfg.AppealRetention <= 0 {
		cfg.AppealRetention = 60 * 24 * time.Hour
	}
	return &VerificationService{
		repo:     repo,
		store:    store,
		users:    users,
		notifier: notifier,
		mailer:   mailer,
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
	}
}

// IssueUploadToken выдаёт presigned PUT и запоминает ожидаемый ключ.
func (s *VerificationService) IssueUploadToken(ctx context.Context, userID uuid.UUID, filename, contentType string) (*UploadTicket, error) {
	if s.store == nil {
		return nil, apperror.ErrStorageDisabled
	}
	if strings.TrimSpace(filename) == "" {
		return nil, apperror.Validation("filename обязателен")
	}

	now := s.now()
	key := storage.VerificationKey(s.cfg.KeyPrefix, userID, filename, now)
	url, err := s.store.PresignPut(ctx, key, presignTTL)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	ticket, err := s.saveToken(ctx, userID, key, contentType, now)
	if err != nil {
		return nil, err
	}
	ticket.UploadURL = url
	return ticket, nil
}

// UploadDirect принимает файл через API: только изображения, не больше MaxUploadBytes.
func (s *VerificationService) UploadDirect(ctx context.Context, userID uuid.UUID, filename string, body io.Reader, size int64) (*UploadTicket, error) {
	if s.store == nil {
		return nil, apperror.ErrStorageDisabled
	}
	if s.cfg.MaxUploadBytes > 0 && size > s.cfg.MaxUploadBytes {
		return nil, apperror.Validation("файл слишком большой")
	}

	contentType, reader, err := storage.SniffImage(body)
	if errors.Is(err, storage.ErrNotImage) {
		return nil, apperror.Validation("допускаются только изображения")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	now := s.now()
	key := storage.VerificationKey(s.cfg.KeyPrefix, userID, filename, now)
	if err := s.store.Put(ctx, key, reader, size, contentType); err != nil {
		return nil, apperror.Internal(err)
	}
	return s.saveToken(ctx, userID, key, contentType, now)
}

func (s *VerificationService) saveToken(ctx context.Context, userID uuid.UUID, key, contentType string, now time.Time) (*UploadTicket, error) {
	token := &models.UploadToken{
		UserID:    userID,
		UploadKey: key,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	}
	if contentType != "" {
		token.ContentType = &contentType
	}
	if err := s.repo.CreateUploadToken(ctx, token); err != nil {
		return nil, mapRepoError(err)
	}
	return &UploadTicket{UploadKey: key, ExpiresAt: token.ExpiresAt}, nil
}

// Submit создаёт заявку. Берутся первые три изображения, каждое проверяется
// по наличию в хранилище, токены загрузки гасятся в транзакции создания
// заявки. Непроверенные изображения остаются в заявке с verified=false.
func (s *VerificationService) Submit(ctx context.Context, userID uuid.UUID, images []ImageRef, deviceInfo models.JSONMap) (*models.VerificationSubmission, error) {
	if len(images) == 0 {
		return nil, apperror.Validation("нужно от 1 до 3 изображений")
	}
	if len(images) > maxSubmissionImages {
		images = images[:maxSubmissionImages]
	}

	refs, err := imageKeys(images)
	if err != nil {
		return nil, err
	}
	checked := s.checkImages(ctx, userID, refs)

	sub := &models.VerificationSubmission{
		UserID:        userID,
		Images:        checked,
		DeviceInfo:    deviceInfo,
		AdminComments: models.AdminComments{},
	}
	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		return nil, mapRepoError(err)
	}
	s.metrics.VerificationTransition(sub.Status)
	return sub, nil
}

// imageKeys проверяет ключи всех изображений до любых записей.
func imageKeys(refs []ImageRef) ([]ImageRef, error) {
	out := make([]ImageRef, len(refs))
	for i, ref := range refs {
		ref.UploadKey = strings.TrimSpace(ref.UploadKey)
		if ref.UploadKey == "" {
			return nil, apperror.Validation("uploadKey обязателен для каждого изображения")
		}
		out[i] = ref
	}
	return out, nil
}

// checkImages сверяет файлы с хранилищем. TokenValid выставляет репозиторий,
// когда гасит токены; без действующего токена отметка verified снимается.
func (s *VerificationService) checkImages(ctx context.Context, userID uuid.UUID, refs []ImageRef) models.VerificationImages {
	now := s.now().UTC()
	out := make(models.VerificationImages, 0, len(refs))
	for _, ref := range refs {
		img := models.VerificationImage{UploadKey: ref.UploadKey, Meta: ref.Meta, AddedAt: now}
		if s.store != nil {
			info, err := s.store.Stat(ctx, ref.UploadKey)
			switch {
			case err == nil:
				img.Verified = true
				img.ETag = info.ETag
				img.Size = info.Size
				img.ContentType = info.ContentType
			case !errors.Is(err, storage.ErrObjectNotFound):
				logger.Log.WithFields(logrus.Fields{"user_id": userID, "key": ref.UploadKey}).
					WithError(err).Warn("не удалось проверить файл в хранилище")
			}
		}
		out = append(out, img)
	}
	return out
}

// GetStatus заявка по id для владельца или администратора.
func (s *VerificationService) GetStatus(ctx context.Context, actor Actor, id uuid.UUID) (*models.VerificationSubmission, error) {
	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if actor.IsAdmin() {
		return sub, nil
	}
	if sub.UserID != actor.ID {
		return nil, apperror.ErrForbidden
	}
	return ownerView(sub), nil
}

// MyStatus вычисляется по последней заявке, а не по кэшу user_verification.
func (s *VerificationService) MyStatus(ctx context.Context, userID uuid.UUID) (string, error) {
	sub, err := s.repo.LatestForUser(ctx, userID)
	if errors.Is(err, repository.ErrSubmissionNotFound) {
		return models.UserVerificationUnverified, nil
	}
	if err != nil {
		return "", mapRepoError(err)
	}
	return valueobject.VerificationStatus(sub.Status).UserFacing(), nil
}

// MyLatest последняя заявка пользователя с видимыми ему комментариями.
func (s *VerificationService) MyLatest(ctx context.Context, userID uuid.UUID) (*models.VerificationSubmission, error) {
	sub, err := s.repo.LatestForUser(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return ownerView(sub), nil
}

// RespondMore пользователь досылает ровно три изображения. В pending
// возвращается только flagged, остальные статусы сохраняются.
func (s *VerificationService) RespondMore(ctx context.Context, userID, id uuid.UUID, images []ImageRef, note *string) (*models.VerificationSubmission, error) {
	if len(images) != respondMoreImages {
		return nil, apperror.Validation("нужно ровно 3 изображения")
	}
	refs, err := imageKeys(images)
	if err != nil {
		return nil, err
	}
	// Статус проверяется до обращения к хранилищу и ещё раз под блокировкой в репозитории.
	if err := s.ensureOwner(ctx, userID, id, valueobject.RespondMoreSources); err != nil {
		return nil, err
	}
	checked := s.checkImages(ctx, userID, refs)

	var comments models.AdminComments
	if note != nil && strings.TrimSpace(*note) != "" {
		comments = models.AdminComments{{
			Author:        models.CommentAuthorUser,
			AuthorUserID:  userID,
			Text:          strings.TrimSpace(*note),
			VisibleToUser: true,
			CreatedAt:     s.now().UTC(),
		}}
	}

	res, err := s.repo.Transition(ctx, repository.VerificationTransition{
		SubmissionID: id,
		From:         valueobject.RespondMoreSources,
		Next: func(current valueobject.VerificationStatus) valueobject.VerificationStatus {
			if current == valueobject.VerificationFlagged {
				return valueobject.VerificationPending
			}
			return current
		},
		Actor:          userID,
		Note:           note,
		AppendImages:   checked,
		ConsumeTokens:  true,
		AppendComments: comments,
		AuditAction:    repository.AuditVerificationResponded,
		AuditDetails:   models.JSONMap{"images": len(checked)},
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	if res.Changed {
		s.metrics.VerificationTransition(res.Submission.Status)
	}
	return ownerView(res.Submission), nil
}

// Appeal обжалование rejected или flagged заявки. Повторная апелляция
// возвращает уже открытую.
func (s *VerificationService) Appeal(ctx context.Context, userID, id uuid.UUID, reason *string) (*repository.AppealResult, error) {
	if err := s.ensureOwner(ctx, userID, id, nil); err != nil {
		return nil, err
	}

	res, err := s.repo.OpenAppeal(ctx, id, userID, reason, s.now().Add(s.cfg.AppealRetention), appealPriority)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if res.Created {
		s.metrics.VerificationTransition(string(valueobject.VerificationAppeal))
	}
	res.Submission = ownerView(res.Submission)
	return res, nil
}

func (s *VerificationService) List(ctx context.Context, status string, limit, offset int) ([]models.VerificationSubmission, int, error) {
	if status != "" {
		if _, err := valueobject.NewVerificationStatus(status); err != nil {
			return nil, 0, err
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, total, err := s.repo.ListSubmissions(ctx, status, limit, offset)
	return list, total, mapRepoError(err)
}

// Get заявка для администратора с журналом и ссылками на просмотр файлов.
func (s *VerificationService) Get(ctx context.Context, id uuid.UUID) (*SubmissionDetails, error) {
	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if s.store != nil {
		for i := range sub.Images {
			if !sub.Images[i].Verified {
				continue
			}
			url, err := s.store.PresignGet(ctx, sub.Images[i].UploadKey, presignTTL)
			if err != nil {
				logger.Log.WithField("submission_id", id).WithError(err).Warn("не удалось подписать ссылку на файл")
				continue
			}
			sub.Images[i].URL = url
		}
	}
	return &SubmissionDetails{Submission: sub, History: history}, nil
}

func (s *VerificationService) Approve(ctx context.Context, admin, id uuid.UUID) (*models.VerificationSubmission, error) {
	return s.decide(ctx, repository.VerificationTransition{
		SubmissionID: id,
		From:         valueobject.DecisionSources,
		To:           valueobject.VerificationApproved,
		Actor:        admin,
		SetReviewer:  true,
		AuditAction:  repository.AuditVerificationApproved,
	}, "")
}

func (s *VerificationService) Reject(ctx context.Context, admin, id uuid.UUID, reason *string) (*models.VerificationSubmission, error) {
	reason = trimmedOrNil(reason)
	text := ""
	if reason != nil {
		text = *reason
	}
	return s.decide(ctx, repository.VerificationTransition{
		SubmissionID:  id,
		From:          valueobject.DecisionSources,
		To:            valueobject.VerificationRejected,
		Actor:         admin,
		Note:          reason,
		SetReviewer:   true,
		ReviewComment: reason,
		AuditAction:   repository.AuditVerificationRejected,
	}, text)
}

// RequestMoreInfo переводит заявку во flagged с видимым пользователю комментарием.
func (s *VerificationService) RequestMoreInfo(ctx context.Context, admin, id uuid.UUID, reason string) (*models.VerificationSubmission, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.Validation("укажите, какие данные нужны")
	}
	return s.decide(ctx, repository.VerificationTransition{
		SubmissionID:  id,
		From:          valueobject.RequestMoreInfoSources,
		To:            valueobject.VerificationFlagged,
		Actor:         admin,
		Note:          &reason,
		SetReviewer:   true,
		ReviewComment: &reason,
		AppendComments: models.AdminComments{{
			Author:        models.CommentAuthorAdmin,
			AuthorUserID:  admin,
			Text:          reason,
			VisibleToUser: true,
			CreatedAt:     s.now().UTC(),
		}},
		AuditAction: repository.AuditVerificationMoreInfo,
	}, reason)
}

// Comment добавляет комментарий администратора без смены статуса.
func (s *VerificationService) Comment(ctx context.Context, admin, id uuid.UUID, text string, visibleToUser bool) (*models.VerificationSubmission, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.Validation("комментарий пуст")
	}
	res, err := s.repo.Transition(ctx, repository.VerificationTransition{
		SubmissionID: id,
		Actor:        admin,
		AppendComments: models.AdminComments{{
			Author:        models.CommentAuthorAdmin,
			AuthorUserID:  admin,
			Text:          text,
			VisibleToUser: visibleToUser,
			CreatedAt:     s.now().UTC(),
		}},
		AuditAction:  repository.AuditVerificationComment,
		AuditDetails: models.JSONMap{"visibleToUser": visibleToUser},
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	if visibleToUser {
		s.notifier.Notify(ctx, res.Submission.UserID, models.NotificationVerificationStatus,
			"Новый комментарий по верификации", text, models.JSONMap{"submissionId": id.String()})
	}
	return res.Submission, nil
}

func (s *VerificationService) ListAppeals(ctx context.Context, status string) ([]models.VerificationAppeal, error) {
	list, err := s.repo.ListAppeals(ctx, status)
	return list, mapRepoError(err)
}

// ResolveAppeal закрывает апелляцию; при reinstate заявка становится reinstated.
func (s *VerificationService) ResolveAppeal(ctx context.Context, admin, appealID uuid.UUID, note *string, reinstate bool) (*models.VerificationAppeal, error) {
	appeal, res, err := s.repo.ResolveAppeal(ctx, appealID, admin, trimmedOrNil(note), reinstate)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if res != nil && res.Changed {
		s.announce(ctx, res.Submission, "")
	} else {
		s.notifier.Notify(ctx, appeal.UserID, models.NotificationVerificationStatus, "Апелляция рассмотрена", "",
			models.JSONMap{"appealId": appeal.ID.String(), "reinstated": false})
	}
	return appeal, nil
}

func (s *VerificationService) decide(ctx context.Context, t repository.VerificationTransition, reason string) (*models.VerificationSubmission, error) {
	res, err := s.repo.Transition(ctx, t)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if res.Changed {
		s.announce(ctx, res.Submission, reason)
	}
	return res.Submission, nil
}

// announce уведомление и письмо о новом статусе заявки. Выполняется после
// фиксации перехода, ошибки не влияют на результат.
func (s *VerificationService) announce(ctx context.Context, sub *models.VerificationSubmission, reason string) {
	s.metrics.VerificationTransition(sub.Status)

	title := verificationTitle(valueobject.VerificationStatus(sub.Status))
	s.notifier.Notify(ctx, sub.UserID, models.NotificationVerificationStatus, title, reason, models.JSONMap{
		"submissionId": sub.ID.String(),
		"status":       sub.Status,
	})

	if s.mailer == nil || !s.mailer.Enabled() {
		return
	}
	user, err := s.users.GetByID(ctx, sub.UserID)
	if err != nil {
		logger.Log.WithField("user_id", sub.UserID).WithError(err).Warn("не удалось получить адрес для письма")
		return
	}
	body := title
	if reason != "" {
		body = fmt.Sprintf("%s\n\n%s", title, reason)
	}
	s.mailer.SendAsync(user.Email, title, body)
}

func (s *VerificationService) ensureOwner(ctx context.Context, userID, id uuid.UUID, allowed []valueobject.VerificationStatus) error {
	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	if sub.UserID != userID {
		return apperror.ErrForbidden
	}
	if allowed != nil && !valueobject.VerificationStatus(sub.Status).In(allowed) {
		return errStatusConflict
	}
	return nil
}

func verificationTitle(status valueobject.VerificationStatus) string {
	switch status {
	case valueobject.VerificationApproved:
		return "Верификация одобрена"
	case valueobject.VerificationReinstated:
		return "Верификация восстановлена"
	case valueobject.VerificationRejected:
		return "Верификация отклонена"
	case valueobject.VerificationFlagged:
		return "Нужны дополнительные данные"
	default:
		return "Статус верификации изменён"
	}
}

// ownerView копия заявки без скрытых от пользователя комментариев.
func ownerView(sub *models.VerificationSubmission) *models.VerificationSubmission {
	if sub == nil {
		return nil
	}
	view := *sub
	view.AdminComments = sub.AdminComments.VisibleToUser()
	return &view
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
