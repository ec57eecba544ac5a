// Package update реализует HTTP-обработчик смены тарифа.
package update

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/glift-app/glift-billing/internal/http/middlewarectx"
	"github.com/glift-app/glift-billing/internal/http/response"
	"github.com/glift-app/glift-billing/internal/lib/sl"
	"github.com/glift-app/glift-billing/internal/models"
)

// Request тело запроса смены тарифа.
type Request struct {
	Plan string `json:"plan" validate:"required,oneof=starter premium" example:"premium"`
}

// Service меняет тариф пользователя.
type Service interface {
	UpdateSubscription(ctx context.Context, user models.User, plan models.Plan) (models.SubscriptionChange, error)
}

// Handler обрабатывает POST /update-subscription.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP переводит пользователя на указанный тариф.
//
// @Summary Сменить тариф
// @Description premium оформляет или возобновляет подписку, starter отменяет её в конце периода
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param request body Request true "Целевой тариф"
// @Success 200 {object} response.Response{data=models.SubscriptionChange} "Тариф изменён"
// @Failure 400 {object} response.ErrorResponse "Некорректный тариф"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка биллинга или хранилища"
// @Router /update-subscription [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.update"

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

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.JSON(w, r, response.Error("invalid request"))
		return
	}

	change, err := h.service.UpdateSubscription(r.Context(), user, models.Plan(req.Plan))
	if err != nil {
		log.Error("failed to update subscription", sl.Err(err), slog.String("plan", req.Plan))
		status, msg := response.StatusFor(err)
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("subscription updated",
		slog.String("plan", string(change.Plan)),
		slog.Bool("will_cancel", change.WillCancel))
	render.JSON(w, r, response.StatusOKWithData(change))
}
