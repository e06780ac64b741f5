package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
)

type variantPayload struct {
	Color     string `json:"color" binding:"required"`
	ColorCode string `json:"colorCode"`
	Size      string `json:"size" binding:"required"`
	Price     int64  `json:"price" binding:"required,min=1"`
	Stock     int    `json:"stock" binding:"min=0"`
	Image     string `json:"image"`
	Deleted   bool   `json:"deleted"`
}

// createProduct inserts a product with its variants
func (h *Handler) createProduct(c *gin.Context) {
	var req struct {
		Title    string           `json:"title" binding:"required"`
		Metadata string           `json:"metadata"`
		Variants []variantPayload `json:"variants" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	product := &models.Product{
		Title:    req.Title,
		Metadata: sql.NullString{String: req.Metadata, Valid: req.Metadata != ""},
	}
	for _, v := range req.Variants {
		if !models.ValidSizes[v.Size] {
			respondError(c, http.StatusBadRequest, "invalid size: "+v.Size)
			return
		}
		product.Variants = append(product.Variants, models.ProductVariant{
			Color:     v.Color,
			ColorCode: v.ColorCode,
			Size:      v.Size,
			Price:     v.Price,
			Stock:     v.Stock,
			Image:     v.Image,
		})
	}

	if err := h.catalog.Create(c.Request.Context(), product); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, product)
}

// updateProduct updates title and metadata
func (h *Handler) updateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid product id")
		return
	}

	var req struct {
		Title    string `json:"title" binding:"required"`
		Metadata string `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	metadata := sql.NullString{String: req.Metadata, Valid: req.Metadata != ""}
	if err := h.catalog.Update(c.Request.Context(), id, req.Title, metadata); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"updated": true})
}

// deleteProduct soft-deletes a product and its variants
func (h *Handler) deleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.catalog.SoftDelete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": true})
}

// updateVariant updates a variant's purchasable fields
func (h *Handler) updateVariant(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid variant id")
		return
	}

	var req variantPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !models.ValidSizes[req.Size] {
		respondError(c, http.StatusBadRequest, "invalid size: "+req.Size)
		return
	}

	variant := &models.ProductVariant{
		ID:        id,
		Color:     req.Color,
		ColorCode: req.ColorCode,
		Size:      req.Size,
		Price:     req.Price,
		Stock:     req.Stock,
		Image:     req.Image,
		Deleted:   req.Deleted,
	}
	if err := h.catalog.UpdateVariant(c.Request.Context(), variant); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, variant)
}

// exportProducts streams the catalog as an xlsx workbook, one row per
// variant.
func (h *Handler) exportProducts(c *gin.Context) {
	rows, err := h.catalog.ExportRows(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		respondServiceError(c, err)
		return
	}

	header := sheet.AddRow()
	for _, title := range []string{"Product ID", "Title", "Variant ID", "Color", "Size", "Price", "Stock", "Deleted"} {
		header.AddCell().SetString(title)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetInt64(r.ProductID)
		row.AddCell().SetString(r.Title)
		row.AddCell().SetInt64(r.VariantID)
		row.AddCell().SetString(r.Color)
		row.AddCell().SetString(r.Size)
		row.AddCell().SetInt64(r.Price)
		row.AddCell().SetInt(r.Stock)
		row.AddCell().SetBool(r.Deleted)
	}

	c.Header("Content-Disposition", `attachment; filename="products.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		respondServiceError(c, err)
	}
}

// listAllOrders returns all orders paginated
func (h *Handler) listAllOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"items": orders, "total": total})
}

// shipOrder moves a fulfilled order to SHIPPED
func (h *Handler) shipOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orders.Ship(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// orderSummary returns the newest aggregate snapshot
func (h *Handler) orderSummary(c *gin.Context) {
	summary, err := h.orders.Summary(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, summary)
}
