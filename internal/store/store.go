// Package store 實現 PostgreSQL 查詢層
//
// 查詢層只負責把 SQL 對應到型別化的方法，錯誤原樣回傳
// （pgx.ErrNoRows、pgconn.PgError），由上層服務翻譯成應用程式錯誤。
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX 抽象 pgxpool.Pool 與 pgx.Tx 共通的查詢介面
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries 以 DBTX 實現 Querier 介面
type Queries struct {
	db DBTX
}

// New 創建查詢實例
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// UniqueViolation PostgreSQL 唯一約束違反錯誤碼
const UniqueViolation = "23505"

// ForeignKeyViolation PostgreSQL 外鍵約束違反錯誤碼
const ForeignKeyViolation = "23503"
