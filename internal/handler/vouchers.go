package handler

import (
	"net/http"

	"economat/internal/dto"
	"economat/internal/service"

	"github.com/gin-gonic/gin"
)

type VouchersHandler struct{ svc service.VoucherService }

func NewVouchersHandler(svc service.VoucherService) *VouchersHandler {
	return &VouchersHandler{svc: svc}
}

// Search lists the vouchers dated on ?date=YYYY-MM-DD.
func (h *VouchersHandler) Search(c *gin.Context) {
	var filter dto.VoucherFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.SearchByDate(c.Request.Context(), filter.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *VouchersHandler) Get(c *gin.Context) {
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
