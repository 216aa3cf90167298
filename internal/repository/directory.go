package repository

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/eventhub/internal/database"
)

// DirectoryRepository answers existence questions about users and
// categories, which are managed elsewhere.
type DirectoryRepository struct {
	db database.DBTX
}

// NewDirectoryRepository constructs a DirectoryRepository.
func NewDirectoryRepository(db database.DBTX) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// UsersExist reports whether every id names a user.
func (r *DirectoryRepository) UsersExist(ctx context.Context, ids ...int64) (bool, error) {
	return r.allExist(ctx, "users", ids)
}

// CategoriesExist reports whether every id names a category.
func (r *DirectoryRepository) CategoriesExist(ctx context.Context, ids ...int64) (bool, error) {
	return r.allExist(ctx, "categories", ids)
}

func (r *DirectoryRepository) allExist(ctx context.Context, table string, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	unique := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	var n int
	err := database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE id = ANY($1)`, ids,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count %s: %w", table, err)
	}
	return n == len(unique), nil
}
