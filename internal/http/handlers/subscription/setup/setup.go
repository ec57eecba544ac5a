// Package setup реализует HTTP-обработчик оформления премиум-подписки.
package setup

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

// Service оформляет подписку.
type Service interface {
	SetupSubscription(ctx context.Context, user models.User) (models.SubscriptionChange, error)
}

// Handler обрабатывает POST /setup-subscription.
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

// ServeHTTP создаёт премиум-подписку и возвращает client secret для
// подтверждения способа оплаты на клиенте.
//
// @Summary Оформить подписку
// @Description Создаёт премиум-подписку (с пробным периодом, если он ещё не использован)
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} response.Response{data=models.SubscriptionChange} "Подписка оформлена"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка биллинга"
// @Router /setup-subscription [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.setup"

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

	change, err := h.service.SetupSubscription(r.Context(), user)
	if err != nil {
		log.Error("failed to set up subscription", sl.Err(err))
		status, msg := response.StatusFor(err)
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("subscription set up",
		slog.String("subscription_id", change.SubscriptionID),
		slog.String("status", string(change.Status)))
	render.JSON(w, r, response.StatusOKWithData(change))
}
