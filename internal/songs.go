package internal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/koopa0/openmusic/internal/store"
	apperrors "github.com/koopa0/openmusic/pkg/errors"
)

// SongService 歌曲服務
type SongService struct {
	store  store.Querier
	logger *slog.Logger
}

// NewSongService 創建歌曲服務
func NewSongService(querier store.Querier, logger *slog.Logger) *SongService {
	return &SongService{
		store:  querier,
		logger: logger,
	}
}

// SongInput 新增或更新歌曲的輸入
type SongInput struct {
	Title     string  `json:"title"`
	Performer string  `json:"performer"`
	AlbumID   *string `json:"albumId"`
}

// AddSong 新增歌曲
func (s *SongService) AddSong(ctx context.Context, in SongInput) (string, error) {
	id := newID("song")

	rows, err := s.store.InsertSong(ctx, store.InsertSongParams{
		ID:        id,
		Title:     in.Title,
		Performer: in.Performer,
		AlbumID:   in.AlbumID,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return "", apperrors.ErrAlbumNotFound
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to add song")
	}
	if rows != 1 {
		return "", apperrors.New(apperrors.ErrCodeInvariant, "song was not added")
	}

	return id, nil
}

// GetSongByID 取得單一歌曲
func (s *SongService) GetSongByID(ctx context.Context, id string) (*store.Song, error) {
	song, err := s.store.GetSong(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSongNotFound
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to get song")
	}
	return &song, nil
}

// ListSongs 取得歌曲列表，可依標題與演出者過濾
func (s *SongService) ListSongs(ctx context.Context, title, performer string) ([]store.Song, error) {
	songs, err := s.store.ListSongs(ctx, store.ListSongsParams{
		Title:     title,
		Performer: performer,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to list songs")
	}
	return songs, nil
}

// EditSongByID 更新歌曲
func (s *SongService) EditSongByID(ctx context.Context, id string, in SongInput) error {
	rows, err := s.store.UpdateSong(ctx, store.UpdateSongParams{
		ID:        id,
		Title:     in.Title,
		Performer: in.Performer,
		AlbumID:   in.AlbumID,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.ErrAlbumNotFound
		}
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to update song")
	}
	if rows == 0 {
		return apperrors.ErrSongNotFound
	}

	return nil
}

// DeleteSongByID 刪除歌曲，播放清單中的關聯由外鍵層級一併刪除
func (s *SongService) DeleteSongByID(ctx context.Context, id string) error {
	rows, err := s.store.DeleteSong(ctx, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to delete song")
	}
	if rows == 0 {
		return apperrors.ErrSongNotFound
	}

	return nil
}
