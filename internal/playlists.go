package internal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/koopa0/openmusic/internal/store"
	apperrors "github.com/koopa0/openmusic/pkg/errors"
)

// PlaylistService 播放清單服務
//
// 擁有者在建立後不可變更，所有變更操作都先經過 VerifyOwner。
type PlaylistService struct {
	store  store.Querier
	logger *slog.Logger
}

// NewPlaylistService 創建播放清單服務
func NewPlaylistService(querier store.Querier, logger *slog.Logger) *PlaylistService {
	return &PlaylistService{
		store:  querier,
		logger: logger,
	}
}

// PlaylistDetail 播放清單與其歌曲
type PlaylistDetail struct {
	store.PlaylistInfo
	Songs []store.Song `json:"songs"`
}

// AddPlaylist 新增播放清單
func (s *PlaylistService) AddPlaylist(ctx context.Context, name, owner string) (string, error) {
	id := newID("playlist")

	rows, err := s.store.InsertPlaylist(ctx, store.InsertPlaylistParams{
		ID:    id,
		Name:  name,
		Owner: owner,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return "", apperrors.New(apperrors.ErrCodeInvariant, "owner does not exist")
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to add playlist")
	}
	if rows != 1 {
		return "", apperrors.New(apperrors.ErrCodeInvariant, "playlist was not added")
	}

	return id, nil
}

// GetPlaylists 取得使用者擁有的播放清單
func (s *PlaylistService) GetPlaylists(ctx context.Context, owner string) ([]store.PlaylistInfo, error) {
	playlists, err := s.store.ListPlaylistsByOwner(ctx, owner)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to list playlists")
	}
	return playlists, nil
}

// DeletePlaylistByID 刪除播放清單，關聯的歌曲列由外鍵層級一併刪除
func (s *PlaylistService) DeletePlaylistByID(ctx context.Context, id string) error {
	rows, err := s.store.DeletePlaylist(ctx, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to delete playlist")
	}
	if rows == 0 {
		return apperrors.ErrPlaylistNotFound
	}

	return nil
}

// VerifyOwner 驗證呼叫者是播放清單擁有者
//
// 純粹的前置檢查，沒有副作用，可重複呼叫。播放清單不存在
// 回傳 NotFound，擁有者不符回傳 Forbidden，兩者必須區分。
func (s *PlaylistService) VerifyOwner(ctx context.Context, playlistID, userID string) error {
	playlist, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrPlaylistNotFound
		}
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to get playlist")
	}

	if playlist.Owner != userID {
		return apperrors.ErrNotOwner
	}

	return nil
}

// AddSong 把歌曲加入播放清單，返回關聯 ID
//
// (playlist_id, song_id) 的唯一約束是重複關聯的權威防線，
// 外鍵約束同時驗證歌曲存在，違反各自翻譯成 Invariant 與 NotFound。
func (s *PlaylistService) AddSong(ctx context.Context, playlistID, songID string) (string, error) {
	id := newID("playlist-song")

	rows, err := s.store.InsertPlaylistSong(ctx, store.InsertPlaylistSongParams{
		ID:         id,
		PlaylistID: playlistID,
		SongID:     songID,
	})
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return "", apperrors.ErrDuplicateMembership
		case isForeignKeyViolation(err):
			return "", apperrors.ErrSongNotFound
		default:
			return "", apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to add song to playlist")
		}
	}
	if rows != 1 {
		return "", apperrors.New(apperrors.ErrCodeInvariant, "song was not added to playlist")
	}

	return id, nil
}

// Songs 取得播放清單與其歌曲
func (s *PlaylistService) Songs(ctx context.Context, playlistID string) (*PlaylistDetail, error) {
	info, err := s.store.GetPlaylistInfo(ctx, playlistID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPlaylistNotFound
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to get playlist")
	}

	songs, err := s.store.ListPlaylistSongs(ctx, playlistID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to list playlist songs")
	}

	return &PlaylistDetail{PlaylistInfo: info, Songs: songs}, nil
}

// RemoveSong 把歌曲移出播放清單
func (s *PlaylistService) RemoveSong(ctx context.Context, playlistID, songID string) error {
	rows, err := s.store.DeletePlaylistSong(ctx, store.DeletePlaylistSongParams{
		PlaylistID: playlistID,
		SongID:     songID,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to remove song from playlist")
	}
	if rows == 0 {
		return apperrors.ErrMembershipNotFound
	}

	return nil
}
