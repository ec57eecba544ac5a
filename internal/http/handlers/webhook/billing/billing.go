// Package billing реализует приёмник вебхуков внешнего биллинга.
//
// Подпись проверяется до любой бизнес-логики. Ответ не из 2xx
// заставляет провайдера доставить событие повторно.
package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/glift-app/glift-billing/internal/http/response"
	"github.com/glift-app/glift-billing/internal/lib/sl"
	"github.com/glift-app/glift-billing/internal/models"
	"github.com/glift-app/glift-billing/internal/services/reconciler"
)

// MaxBodyBytes предельный размер тела вебхука.
const MaxBodyBytes = 1 << 20

// SignatureHeader заголовок с подписью провайдера.
const SignatureHeader = "Stripe-Signature"

// Verifier проверяет подпись и разбирает событие.
type Verifier interface {
	ConstructEvent(payload []byte, signature string) (models.BillingEvent, error)
}

// Reconciler применяет событие к профилям.
type Reconciler interface {
	HandleEvent(ctx context.Context, ev models.BillingEvent) (reconciler.Outcome, error)
}

// Ack тело успешного ответа.
type Ack struct {
	Received bool   `json:"received" example:"true"`
	Outcome  string `json:"outcome" example:"processed"`
}

// Handler обрабатывает POST /webhooks/billing.
type Handler struct {
	log        *slog.Logger
	verifier   Verifier
	reconciler Reconciler
}

// New создаёт Handler.
func New(log *slog.Logger, verifier Verifier, rec Reconciler) *Handler {
	return &Handler{
		log:        log,
		verifier:   verifier,
		reconciler: rec,
	}
}

// ServeHTTP принимает событие биллинга.
//
// @Summary Вебхук биллинга
// @Description Принимает подписанное событие внешнего биллинга и применяет его к профилю
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Подпись события"
// @Success 200 {object} Ack "Событие принято"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или тело"
// @Failure 413 {object} response.ErrorResponse "Слишком большое тело"
// @Failure 500 {object} response.ErrorResponse "Событие не применено, нужна повторная доставка"
// @Router /webhooks/billing [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.billing"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("webhook body too large", slog.Int64("limit", tooLarge.Limit))
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, response.Error("request body too large"))
			return
		}
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read request body"))
		return
	}

	ev, err := h.verifier.ConstructEvent(body, r.Header.Get(SignatureHeader))
	if err != nil {
		log.Warn("rejected webhook", sl.Err(err))
		status, msg := response.StatusFor(err)
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}
	log = log.With(slog.String("event_id", ev.ID), slog.String("event_type", ev.Type))

	outcome, err := h.reconciler.HandleEvent(r.Context(), ev)
	if err != nil {
		log.Error("failed to apply billing event", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("event not applied"))
		return
	}

	render.JSON(w, r, Ack{Received: true, Outcome: string(outcome)})
}
