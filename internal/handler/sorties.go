package handler

import (
	"fmt"
	"net/http"

	"economat/internal/dto"
	"economat/internal/service"

	"github.com/gin-gonic/gin"
)

type SortiesHandler struct{ svc service.SortieService }

func NewSortiesHandler(svc service.SortieService) *SortiesHandler {
	return &SortiesHandler{svc: svc}
}

// Create godoc
// @Summary      Record a sortie
// @Description  Withdraws every line from stock in one transaction. Either all lines apply or none do.
// @Tags         sorties
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.SortieRequest true "Sortie"
// @Success      201  {object} dto.SortieResponse
// @Failure      409  {object} apierror.StockError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/sorties [post]
func (h *SortiesHandler) Create(c *gin.Context) {
	var req dto.SortieRequest
	img, ok := bindPayload(c, &req)
	if !ok {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req, img)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update godoc
// @Summary      Edit a sortie
// @Description  Restores the old lines, then withdraws the new ones. On failure the old lines stay restored and the sortie is marked unapplied.
// @Tags         sorties
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string            true "Sortie ID"
// @Param        body body dto.SortieRequest true "Sortie"
// @Success      200  {object} dto.SortieResponse
// @Failure      409  {object} apierror.StockError
// @Router       /v1/sorties/{id} [put]
func (h *SortiesHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.SortieRequest
	img, ok := bindPayload(c, &req)
	if !ok {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req, img)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary      Delete a sortie
// @Description  Returns the withdrawn quantities to stock and removes the sortie with its voucher.
// @Tags         sorties
// @Security     BearerAuth
// @Param        id path string true "Sortie ID"
// @Success      204
// @Failure      404 {object} apierror.APIError
// @Router       /v1/sorties/{id} [delete]
func (h *SortiesHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SortiesHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SortiesHandler) List(c *gin.Context) {
	var filter dto.SortieFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Slip serves the printable withdrawal slip.
func (h *SortiesHandler) Slip(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pdf, err := h.svc.Slip(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="sortie-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
