// Package internal 包含音樂目錄服務的核心業務邏輯
//
// 服務層座落在 HTTP 層與儲存層之間：
//   - AlbumService：專輯 CRUD 與按讚計數（cache-aside）
//   - SongService：歌曲 CRUD
//   - PlaylistService：播放清單、擁有者驗證、歌曲關聯
//   - ExportService：匯出請求（發佈到訊息佇列）
//
// 儲存層錯誤（pgx.ErrNoRows、pgconn.PgError）在這一層翻譯成
// 封閉的應用程式錯誤種類，HTTP 層只看錯誤碼。
package internal

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koopa0/openmusic/internal/store"
)

// newID 生成帶前綴的隨機 ID，例如 album-8f14e45f
func newID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// isUniqueViolation 檢查是否為唯一約束違反
//
// 服務層的重複預檢只是為了產生友善錯誤，約束違反才是權威防線，
// 兩者都翻譯成相同的 Invariant 結果。
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == store.UniqueViolation
}

// isForeignKeyViolation 檢查是否為外鍵約束違反
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == store.ForeignKeyViolation
}
