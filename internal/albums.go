package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/koopa0/openmusic/internal/store"
	apperrors "github.com/koopa0/openmusic/pkg/errors"
)

// CountSource 標記按讚計數的來源
type CountSource string

const (
	// SourceCache 計數來自快取
	SourceCache CountSource = "cache"

	// SourceDatabase 計數來自資料庫
	SourceDatabase CountSource = "database"
)

// DefaultLikesTTL 按讚計數快取的預設過期時間
const DefaultLikesTTL = 30 * time.Minute

// likeCountKey 按讚計數的快取鍵
func likeCountKey(albumID string) string {
	return "likes:" + albumID
}

// AlbumService 專輯服務
//
// 按讚計數採 cache-aside：讀取先查快取，miss 時從資料庫
// COUNT 後回填；寫入先改資料庫再刪除快取鍵（失效而非更新，
// 計數是聚合值，由資料庫重算才不會在兩個獨立故障的儲存之間
// 累積偏差）。失效與下一次讀取之間的交錯最壞情況留下一筆
// 過期值，存活時間以 TTL 為上限。
type AlbumService struct {
	store  store.Querier
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewAlbumService 創建專輯服務
//
// 儲存與快取的客戶端在行程啟動時建立一次，由外部注入。
func NewAlbumService(querier store.Querier, cache Cache, ttl time.Duration, logger *slog.Logger) *AlbumService {
	if ttl <= 0 {
		ttl = DefaultLikesTTL
	}
	return &AlbumService{
		store:  querier,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// AlbumDetail 專輯與其歌曲
type AlbumDetail struct {
	store.Album
	Songs []store.Song `json:"songs"`
}

// AddAlbum 新增專輯
func (s *AlbumService) AddAlbum(ctx context.Context, name string, year int) (string, error) {
	id := newID("album")

	rows, err := s.store.InsertAlbum(ctx, store.InsertAlbumParams{
		ID:   id,
		Name: name,
		Year: year,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to add album")
	}
	if rows != 1 {
		return "", apperrors.New(apperrors.ErrCodeInvariant, "album was not added")
	}

	return id, nil
}

// GetAlbumByID 取得專輯與其歌曲
func (s *AlbumService) GetAlbumByID(ctx context.Context, id string) (*AlbumDetail, error) {
	album, err := s.store.GetAlbum(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAlbumNotFound
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to get album")
	}

	songs, err := s.store.ListAlbumSongs(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to list album songs")
	}

	return &AlbumDetail{Album: album, Songs: songs}, nil
}

// EditAlbumByID 更新專輯名稱與年份
func (s *AlbumService) EditAlbumByID(ctx context.Context, id, name string, year int) error {
	rows, err := s.store.UpdateAlbum(ctx, store.UpdateAlbumParams{
		ID:   id,
		Name: name,
		Year: year,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to update album")
	}
	if rows == 0 {
		return apperrors.ErrAlbumNotFound
	}

	return nil
}

// DeleteAlbumByID 刪除專輯
//
// 按讚列由外鍵層級一併刪除，對應的計數快取鍵也要失效。
func (s *AlbumService) DeleteAlbumByID(ctx context.Context, id string) error {
	rows, err := s.store.DeleteAlbum(ctx, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to delete album")
	}
	if rows == 0 {
		return apperrors.ErrAlbumNotFound
	}

	if err := s.cache.Delete(ctx, likeCountKey(id)); err != nil {
		s.logger.Error("failed to invalidate like count cache", "album_id", id, "error", err)
		return err
	}

	return nil
}

// UpdateAlbumCover 更新專輯封面網址
func (s *AlbumService) UpdateAlbumCover(ctx context.Context, id, coverURL string) error {
	rows, err := s.store.UpdateAlbumCover(ctx, store.UpdateAlbumCoverParams{
		ID:       id,
		CoverURL: coverURL,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to update album cover")
	}
	if rows == 0 {
		return apperrors.ErrAlbumNotFound
	}

	return nil
}

// AddLike 使用者按讚專輯，返回按讚者 ID
//
// 先改資料庫，成功後刪除計數快取鍵。重複按讚的預檢產生
// 友善錯誤，主鍵 (user_id, album_id) 的唯一約束是權威防線，
// 約束違反翻譯成相同的 Invariant 結果。
func (s *AlbumService) AddLike(ctx context.Context, albumID, userID string) (string, error) {
	if err := s.verifyAlbumExists(ctx, albumID); err != nil {
		return "", err
	}

	arg := store.AlbumLikeParams{UserID: userID, AlbumID: albumID}

	liked, err := s.store.HasAlbumLike(ctx, arg)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to check existing like")
	}
	if liked {
		return "", apperrors.ErrAlreadyLiked
	}

	rows, err := s.store.InsertAlbumLike(ctx, arg)
	if err != nil {
		if isUniqueViolation(err) {
			// 並發寫入者輸掉競爭，結果與預檢相同
			return "", apperrors.ErrAlreadyLiked
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to add like")
	}
	if rows != 1 {
		return "", apperrors.New(apperrors.ErrCodeInvariant, "like was not added")
	}

	if err := s.cache.Delete(ctx, likeCountKey(albumID)); err != nil {
		s.logger.Error("failed to invalidate like count cache", "album_id", albumID, "error", err)
		return "", err
	}

	return userID, nil
}

// RemoveLike 使用者取消按讚專輯
func (s *AlbumService) RemoveLike(ctx context.Context, albumID, userID string) error {
	if err := s.verifyAlbumExists(ctx, albumID); err != nil {
		return err
	}

	rows, err := s.store.DeleteAlbumLike(ctx, store.AlbumLikeParams{
		UserID:  userID,
		AlbumID: albumID,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to remove like")
	}
	if rows == 0 {
		return apperrors.ErrLikeNotFound
	}

	if err := s.cache.Delete(ctx, likeCountKey(albumID)); err != nil {
		s.logger.Error("failed to invalidate like count cache", "album_id", albumID, "error", err)
		return err
	}

	return nil
}

// LikeCount 取得專輯按讚數與計數來源
//
// 快取命中直接返回；miss 時驗證專輯存在、從資料庫重算、
// 回填快取。快取讀取的傳輸失敗降級為資料庫讀取，不讓整個
// 請求失敗；回填失敗只記錄，下一次讀取會再試。
func (s *AlbumService) LikeCount(ctx context.Context, albumID string) (int64, CountSource, error) {
	key := likeCountKey(albumID)

	count, err := s.cache.Get(ctx, key)
	if err == nil {
		return count, SourceCache, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("like count cache read failed, falling back to database",
			"album_id", albumID,
			"error", err)
	}

	if err := s.verifyAlbumExists(ctx, albumID); err != nil {
		return 0, "", err
	}

	count, err = s.store.CountAlbumLikes(ctx, albumID)
	if err != nil {
		return 0, "", apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to count album likes")
	}

	if err := s.cache.Set(ctx, key, count, s.ttl); err != nil {
		s.logger.Warn("failed to populate like count cache", "album_id", albumID, "error", err)
	}

	return count, SourceDatabase, nil
}

// verifyAlbumExists 驗證專輯存在
func (s *AlbumService) verifyAlbumExists(ctx context.Context, id string) error {
	exists, err := s.store.AlbumExists(ctx, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable,
			fmt.Sprintf("failed to verify album %s", id))
	}
	if !exists {
		return apperrors.ErrAlbumNotFound
	}
	return nil
}
