package service

import (
	"errors"

	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/agromarket-backend/internal/repository"
	"github.com/ignatzorin/agromarket-backend/internal/repository/common"
)

var (
	errStatusConflict = apperror.Conflict("статус уже изменён или переход недопустим")
	errStockConflict  = apperror.Conflict("остаток товара изменился, повторите заказ")
)

// mapRepoError переводит ошибки репозиториев в AppError. Неизвестные
// ошибки становятся 500 без подробностей для клиента.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return apperror.ErrUserNotFound
	case errors.Is(err, repository.ErrProductNotFound):
		return apperror.ErrProductNotFound
	case errors.Is(err, repository.ErrOrderNotFound):
		return apperror.ErrOrderNotFound
	case errors.Is(err, repository.ErrSubmissionNotFound):
		return apperror.ErrSubmissionNotFound
	case errors.Is(err, repository.ErrReportNotFound):
		return apperror.ErrReportNotFound
	case errors.Is(err, repository.ErrAppealNotFound), errors.Is(err, repository.ErrReportAppealNotFound):
		return apperror.ErrAppealNotFound
	case errors.Is(err, repository.ErrNotificationNotFound):
		return apperror.NotFound("уведомление не найдено")
	case errors.Is(err, repository.ErrReviewNotFound):
		return apperror.NotFound("отзыв не найден")
	case errors.Is(err, repository.ErrProductHasOrders):
		return apperror.Conflict("по объявлению есть заказы, удаление невозможно")
	case errors.Is(err, common.ErrStatusConflict):
		return errStatusConflict
	case errors.Is(err, common.ErrStockConflict):
		return errStockConflict
	case errors.Is(err, common.ErrAlreadyExists):
		return apperror.Conflict("запись уже существует")
	case errors.Is(err, common.ErrNotFound):
		return apperror.NotFound("запись не найдена")
	}
	return apperror.Internal(err)
}
