package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Sort columns accepted per table
var (
	userSortColumns     = map[string]bool{"created_at": true, "name": true, "email": true, "role": true}
	subjectSortColumns  = map[string]bool{"created_at": true, "name": true, "code": true, "id": true}
	questionSortColumns = map[string]bool{"created_at": true, "id": true, "difficulty": true, "chapter": true}
	examSortColumns     = map[string]bool{"created_at": true, "updated_at": true, "id": true, "title": true, "duration": true}
	attemptSortColumns  = map[string]bool{"started_at": true, "ended_at": true, "id": true, "score": true, "status": true}
)

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func ApplyPaginationAndSort(query *gorm.DB, params models.ListParams, allowed map[string]bool, defaultSort string) *gorm.DB {
	sortBy := params.SortBy
	if sortBy == "" || !allowed[sortBy] {
		sortBy = defaultSort
	}

	sortOrder := "DESC"
	if params.SortDir == "asc" || params.SortDir == "ASC" {
		sortOrder = "ASC"
	}

	// id breaks ties so pages are stable
	query = query.Order(sortBy + " " + sortOrder)
	if sortBy != "id" {
		query = query.Order("id " + sortOrder)
	}

	size := params.Size
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	query = query.Limit(size)

	if offset := params.Offset(); offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

// translateError maps gorm errors onto repository sentinels and adds context
func translateError(err error, action string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", action, repositories.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", action, repositories.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}
