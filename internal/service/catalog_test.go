package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQueryDefaults(t *testing.T) {
	s := &CatalogService{maxPageSize: 100}

	q := s.buildQuery(ListRequest{})
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.PageSize)
	assert.Equal(t, "created_at", q.SortColumn)
	assert.True(t, q.SortDescending, "default sort is newest first")
	assert.False(t, q.IncludeDeleted)
}

func TestBuildQueryWhitelistsSortKeys(t *testing.T) {
	s := &CatalogService{maxPageSize: 100}

	q := s.buildQuery(ListRequest{SortKey: "name"})
	assert.Equal(t, "title", q.SortColumn)
	assert.False(t, q.SortDescending)

	q = s.buildQuery(ListRequest{SortKey: "price", SortDesc: true})
	assert.Contains(t, q.SortColumn, "MIN(v.price)")
	assert.True(t, q.SortDescending)

	// unknown keys fall back to the default instead of reaching SQL
	q = s.buildQuery(ListRequest{SortKey: "id; DROP TABLE products"})
	assert.Equal(t, "created_at", q.SortColumn)
	assert.True(t, q.SortDescending)
}

func TestBuildQueryClampsPaging(t *testing.T) {
	s := &CatalogService{maxPageSize: 50}

	q := s.buildQuery(ListRequest{Page: -3, PageSize: 9999})
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 50, q.PageSize)
}

func TestBuildQueryAdminSeesDeleted(t *testing.T) {
	s := &CatalogService{maxPageSize: 100}

	assert.True(t, s.buildQuery(ListRequest{IsAdmin: true}).IncludeDeleted)
	assert.False(t, s.buildQuery(ListRequest{IsAdmin: false}).IncludeDeleted)
}
