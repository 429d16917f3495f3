package payment

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"cnoloyalty/internal/api"
	"cnoloyalty/internal/logger"
)

const maxBodyBytes = 1 << 20

type WebhookResponse struct {
	OK bool `json:"ok"`
	Outcome
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Webhook godoc
// @Summary      Payment webhook
// @Description  Receives payment events and credits points once per event.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200  {object}  WebhookResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      413  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /webhooks/square [post]
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: "Payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Could not read body"})
		return
	}

	out, err := h.service.Ingest(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, ErrBadSignature):
			logger.Warn("Webhook signature rejected", "client_ip", c.ClientIP())
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Bad signature"})
		case errors.Is(err, ErrMalformed), errors.Is(err, ErrMissingReference):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		default:
			logger.Error("Webhook processing failed", "error", err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Could not record points"})
		}
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{OK: true, Outcome: out})
}
