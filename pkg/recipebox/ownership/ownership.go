// Package ownership partitions every per-user query by owner.
//
// A record that exists but belongs to another user is reported exactly like a
// record that does not exist, so foreign ids cannot be discovered.
package ownership

import (
	"context"
	"errors"

	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ownerColumn = clause.Column{Table: clause.CurrentTable, Name: "user_id"}
	idColumn    = clause.Column{Table: clause.CurrentTable, Name: clause.PrimaryKey}
)

// Owned restricts a query to rows of the statement's table whose user_id
// matches userID. The column is table-qualified so the scope composes with joins.
func Owned(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: ownerColumn, Value: userID})
	}
}

// ByID restricts a query to the row with the given primary key.
func ByID(id uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: idColumn, Value: id})
	}
}

// First loads the record of type T with the given id inside userID's
// partition. Absent and foreign records both yield apperr.ErrNotFound.
func First[T any](ctx context.Context, db *gorm.DB, userID, id uint, preload ...string) (*T, error) {
	var out T
	q := db.WithContext(ctx).Scopes(Owned(userID), ByID(id))
	for _, p := range preload {
		q = q.Preload(p)
	}
	if err := q.Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}
