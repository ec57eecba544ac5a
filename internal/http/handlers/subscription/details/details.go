// Package details реализует HTTP-обработчик получения текущей подписки
// пользователя. Состояние берётся из внешнего биллинга и записывается
// обратно в профиль.
package details

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/glift-app/glift-billing/internal/http/middlewarectx"
	"github.com/glift-app/glift-billing/internal/http/response"
	"github.com/glift-app/glift-billing/internal/lib/sl"
	"github.com/glift-app/glift-billing/internal/models"
)

// Service синхронизирует подписку пользователя с внешним биллингом.
type Service interface {
	Sync(ctx context.Context, user models.User) (models.EffectiveSubscription, error)
}

// Handler обрабатывает GET /subscription-details.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP возвращает действующую подписку пользователя.
//
// @Summary Текущая подписка
// @Description Возвращает тариф пользователя по данным внешнего биллинга и обновляет профиль
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} response.Response{data=models.EffectiveSubscription} "Действующая подписка"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка биллинга или хранилища"
// @Router /subscription-details [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.details"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	log = log.With(slog.String("user_id", user.ID))

	eff, err := h.service.Sync(r.Context(), user)
	if err != nil {
		log.Error("failed to sync subscription", sl.Err(err))
		status, msg := response.StatusFor(err)
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("subscription details served", slog.String("plan", string(eff.Plan)))
	render.JSON(w, r, response.StatusOKWithData(eff))
}
