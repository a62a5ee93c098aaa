package waiter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type sqlQuery[T comparable] struct {
	db    *gorm.DB
	query string
	args  []any
}

// SQL 把一条返回单个标量的 SQL 包装成 Query
// 没有行或值为 NULL 时观测值为 nil
func SQL[T comparable](db *gorm.DB, query string, args ...any) Query[T] {
	return sqlQuery[T]{db: db, query: query, args: args}
}

func (q sqlQuery[T]) Fetch(ctx context.Context) (*T, error) {
	row := q.db.WithContext(ctx).Raw(q.query, q.args...).Row()
	if row == nil {
		return nil, fmt.Errorf("query returned no result set")
	}

	var v sql.Null[T]
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !v.Valid {
		return nil, nil
	}
	return &v.V, nil
}

func (q sqlQuery[T]) String() string {
	if len(q.args) == 0 {
		return q.query
	}
	return fmt.Sprintf("%s %v", q.query, q.args)
}
