package api

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// listProducts returns one catalog page. Sort is "key" or "key_desc".
// Admin sessions see soft-deleted records; anonymous and user sessions
// never do.
func (h *Handler) listProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	sortKey := c.Query("sort")
	sortDesc := false
	if strings.HasSuffix(sortKey, "_desc") {
		sortKey = strings.TrimSuffix(sortKey, "_desc")
		sortDesc = true
	} else {
		sortKey = strings.TrimSuffix(sortKey, "_asc")
	}

	req := service.ListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		SortKey:  sortKey,
		SortDesc: sortDesc,
		IsAdmin:  h.sessionIsAdmin(c),
	}

	resp, err := h.catalog.List(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, resp)
}

// getProduct returns one product with variants
func (h *Handler) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.catalog.Get(c.Request.Context(), id, h.sessionIsAdmin(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, product)
}

// sessionIsAdmin inspects an optional bearer token on public catalog
// routes. Invalid tokens just mean anonymous visibility.
func (h *Handler) sessionIsAdmin(c *gin.Context) bool {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	claims, err := h.auth.ParseToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return false
	}
	return claims.Role == "admin"
}
