package handler

import (
	"net/http"
	"strconv"

	"economat/internal/dto"
	"economat/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductsHandler struct{ svc service.ProductService }

func NewProductsHandler(svc service.ProductService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

// Intake godoc
// @Summary      Register a delivery
// @Description  Creates one product per item. A voucher image, when sent, is linked to every created product.
// @Tags         products
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.IntakeRequest true "Delivery"
// @Success      201  {array}  dto.ProductResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/products/intake [post]
func (h *ProductsHandler) Intake(c *gin.Context) {
	var req dto.IntakeRequest
	img, ok := bindPayload(c, &req)
	if !ok {
		return
	}
	resp, err := h.svc.Intake(c.Request.Context(), req, img)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ProductsHandler) List(c *gin.Context) {
	var filter dto.ProductFilter
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

func (h *ProductsHandler) Get(c *gin.Context) {
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

func (h *ProductsHandler) ListByZone(c *gin.Context) {
	zoneID, ok := paramID(c, "zoneId")
	if !ok {
		return
	}
	resp, err := h.svc.ListByZone(c.Request.Context(), zoneID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary      Edit product metadata
// @Description  Quantity is not editable here. With replace_vouchers the attached image replaces the existing vouchers.
// @Tags         products
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                   true "Product ID"
// @Param        body body dto.UpdateProductRequest true "Changes"
// @Success      200  {object} dto.ProductResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/products/{id} [put]
func (h *ProductsHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
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

func (h *ProductsHandler) Replenish(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ReplenishRequest
	img, ok := bindPayload(c, &req)
	if !ok {
		return
	}
	resp, err := h.svc.Replenish(c.Request.Context(), id, req, img)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Remove(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductsHandler) Movements(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	resp, err := h.svc.Movements(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
