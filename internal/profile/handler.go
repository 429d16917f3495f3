package profile

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cnoloyalty/internal/api"
	"cnoloyalty/internal/auth"
	"cnoloyalty/internal/logger"
	"cnoloyalty/internal/supabase"
)

const maxFirstNameRunes = 100

// Store persists profile fields in the account directory.
type Store interface {
	UpsertProfile(ctx context.Context, p supabase.Profile) error
}

// UpsertRequest lists the only fields a caller may change. Anything else in
// the body is dropped by the decoder.
type UpsertRequest struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
}

type validatedProfile struct {
	FirstName string `validate:"max=100"`
	Email     string `validate:"omitempty,email"`
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Upsert godoc
// @Summary      Update profile
// @Description  Saves the caller's first name and email. Unknown fields are ignored.
// @Tags         profile
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      UpsertRequest  true  "Profile fields"
// @Success      200   {object}  api.OKResponse
// @Failure      400   {object}  api.ValidationErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      500   {object}  api.ErrorResponse
// @Router       /profile [post]
func (h *Handler) Upsert(c *gin.Context) {
	accountID, ok := auth.GetAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid request body"})
		return
	}

	p := validatedProfile{
		FirstName: normalizeName(req.FirstName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
	}
	if errs := api.ValidateStruct(p); len(errs) > 0 {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	err := h.store.UpsertProfile(c.Request.Context(), supabase.Profile{
		UserID:    accountID,
		FirstName: p.FirstName,
		Email:     p.Email,
	})
	if err != nil {
		logger.Error("Profile upsert failed", "account_id", accountID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Could not save profile"})
		return
	}

	c.JSON(http.StatusOK, api.OKResponse{OK: true})
}

// normalizeName cuts the name to its first 100 characters and trims it.
func normalizeName(name string) string {
	runes := []rune(name)
	if len(runes) > maxFirstNameRunes {
		runes = runes[:maxFirstNameRunes]
	}
	return strings.TrimSpace(string(runes))
}
