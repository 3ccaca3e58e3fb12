package internal_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/openmusic/internal"
	"github.com/koopa0/openmusic/internal/testutils"
	apperrors "github.com/koopa0/openmusic/pkg/errors"
)

// newSongEnv 建立歌曲服務測試環境
func newSongEnv(t *testing.T) (*internal.SongService, *internal.AlbumService) {
	t.Helper()

	mockStore := testutils.NewMockStore()
	mockCache := testutils.NewMockCache()
	logger := slog.New(slog.DiscardHandler)

	return internal.NewSongService(mockStore, logger),
		internal.NewAlbumService(mockStore, mockCache, 0, logger)
}

// TestSongService_CRUD 測試歌曲的基本操作
func TestSongService_CRUD(t *testing.T) {
	ctx := context.Background()

	t.Run("新增後可取得", func(t *testing.T) {
		songs, _ := newSongEnv(t)

		id, err := songs.AddSong(ctx, internal.SongInput{Title: "Yellow", Performer: "Coldplay"})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		song, err := songs.GetSongByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Yellow", song.Title)
		assert.Equal(t, "Coldplay", song.Performer)
		assert.Nil(t, song.AlbumID)
	})

	t.Run("取得不存在的歌曲", func(t *testing.T) {
		songs, _ := newSongEnv(t)

		_, err := songs.GetSongByID(ctx, "song-missing")
		assert.True(t, apperrors.IsNotFound(err))
		assert.ErrorIs(t, err, apperrors.ErrSongNotFound)
	})

	t.Run("更新後取得新值", func(t *testing.T) {
		songs, _ := newSongEnv(t)

		id, err := songs.AddSong(ctx, internal.SongInput{Title: "Yellow", Performer: "Coldplay"})
		require.NoError(t, err)

		require.NoError(t, songs.EditSongByID(ctx, id, internal.SongInput{
			Title:     "Fix You",
			Performer: "Coldplay",
		}))

		song, err := songs.GetSongByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Fix You", song.Title)
	})

	t.Run("更新不存在的歌曲", func(t *testing.T) {
		songs, _ := newSongEnv(t)

		err := songs.EditSongByID(ctx, "song-missing", internal.SongInput{
			Title:     "Fix You",
			Performer: "Coldplay",
		})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("刪除後取得回傳未找到", func(t *testing.T) {
		songs, _ := newSongEnv(t)

		id, err := songs.AddSong(ctx, internal.SongInput{Title: "Yellow", Performer: "Coldplay"})
		require.NoError(t, err)

		require.NoError(t, songs.DeleteSongByID(ctx, id))

		_, err = songs.GetSongByID(ctx, id)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

// TestSongService_AlbumLink 測試歌曲與專輯的關聯
func TestSongService_AlbumLink(t *testing.T) {
	ctx := context.Background()

	t.Run("關聯存在的專輯", func(t *testing.T) {
		songs, albums := newSongEnv(t)

		albumID, err := albums.AddAlbum(ctx, "Parachutes", 2000)
		require.NoError(t, err)

		songID, err := songs.AddSong(ctx, internal.SongInput{
			Title:     "Yellow",
			Performer: "Coldplay",
			AlbumID:   &albumID,
		})
		require.NoError(t, err)

		detail, err := albums.GetAlbumByID(ctx, albumID)
		require.NoError(t, err)
		require.Len(t, detail.Songs, 1)
		assert.Equal(t, songID, detail.Songs[0].ID)
	})

	t.Run("關聯不存在的專輯", func(t *testing.T) {
		songs, _ := newSongEnv(t)

		missing := "album-missing"
		_, err := songs.AddSong(ctx, internal.SongInput{
			Title:     "Yellow",
			Performer: "Coldplay",
			AlbumID:   &missing,
		})
		assert.True(t, apperrors.IsNotFound(err))
		assert.ErrorIs(t, err, apperrors.ErrAlbumNotFound)
	})
}

// TestSongService_ListSongs 測試歌曲列表的過濾
func TestSongService_ListSongs(t *testing.T) {
	ctx := context.Background()
	songs, _ := newSongEnv(t)

	seed := []internal.SongInput{
		{Title: "Yellow", Performer: "Coldplay"},
		{Title: "Fix You", Performer: "Coldplay"},
		{Title: "Karma Police", Performer: "Radiohead"},
	}
	for _, in := range seed {
		_, err := songs.AddSong(ctx, in)
		require.NoError(t, err)
	}

	tests := []struct {
		name      string
		title     string
		performer string
		expected  []string
	}{
		{
			name:     "不過濾回傳全部",
			expected: []string{"Fix You", "Karma Police", "Yellow"},
		},
		{
			name:     "依標題過濾不分大小寫",
			title:    "yellow",
			expected: []string{"Yellow"},
		},
		{
			name:      "依演出者過濾",
			performer: "coldplay",
			expected:  []string{"Fix You", "Yellow"},
		},
		{
			name:      "標題與演出者同時過濾",
			title:     "fix",
			performer: "coldplay",
			expected:  []string{"Fix You"},
		},
		{
			name:     "沒有符合的結果",
			title:    "paranoid",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := songs.ListSongs(ctx, tt.title, tt.performer)
			require.NoError(t, err)

			var titles []string
			for _, song := range result {
				titles = append(titles, song.Title)
			}
			assert.Equal(t, tt.expected, titles)
		})
	}
}
