package internal_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/openmusic/internal"
	"github.com/koopa0/openmusic/internal/store"
	"github.com/koopa0/openmusic/internal/testutils"
	apperrors "github.com/koopa0/openmusic/pkg/errors"
)

// TestIntegration_LikeFlow 以真實的 Redis 與 PostgreSQL 驗證按讚流程
func TestIntegration_LikeFlow(t *testing.T) {
	env := testutils.SetupTestEnvironment(t)
	ctx := context.Background()

	queries := store.New(env.PostgresPool)
	cache := internal.NewRedisCache(env.RedisClient)
	albums := internal.NewAlbumService(queries, cache, 30*time.Minute, env.Logger)

	_, err := queries.InsertUser(ctx, store.InsertUserParams{
		ID:       "user-1",
		Username: "alice",
		Password: "hashed",
		Fullname: "Alice",
	})
	require.NoError(t, err)

	albumID, err := albums.AddAlbum(ctx, "Viva la Vida", 2008)
	require.NoError(t, err)

	// 按讚後第一次讀取來自資料庫，第二次命中快取
	_, err = albums.AddLike(ctx, albumID, "user-1")
	require.NoError(t, err)

	count, source, err := albums.LikeCount(ctx, albumID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, internal.SourceDatabase, source)

	count, source, err = albums.LikeCount(ctx, albumID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, internal.SourceCache, source)

	// 重複按讚被拒
	_, err = albums.AddLike(ctx, albumID, "user-1")
	assert.True(t, apperrors.IsInvariant(err))

	// 取消按讚讓快取失效，計數回到資料庫
	require.NoError(t, albums.RemoveLike(ctx, albumID, "user-1"))

	count, source, err = albums.LikeCount(ctx, albumID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, internal.SourceDatabase, source)
}

// TestIntegration_SchemaConstraints 驗證 schema 層的約束行為
func TestIntegration_SchemaConstraints(t *testing.T) {
	env := testutils.SetupTestEnvironment(t)
	ctx := context.Background()

	queries := store.New(env.PostgresPool)

	_, err := queries.InsertUser(ctx, store.InsertUserParams{
		ID:       "user-1",
		Username: "alice",
		Password: "hashed",
		Fullname: "Alice",
	})
	require.NoError(t, err)

	_, err = queries.InsertAlbum(ctx, store.InsertAlbumParams{
		ID:   "album-1",
		Name: "Viva la Vida",
		Year: 2008,
	})
	require.NoError(t, err)

	t.Run("重複按讚違反主鍵約束", func(t *testing.T) {
		arg := store.AlbumLikeParams{UserID: "user-1", AlbumID: "album-1"}

		_, err := queries.InsertAlbumLike(ctx, arg)
		require.NoError(t, err)

		_, err = queries.InsertAlbumLike(ctx, arg)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, store.UniqueViolation, pgErr.Code)
	})

	t.Run("重複的播放清單關聯違反唯一約束", func(t *testing.T) {
		_, err := queries.InsertPlaylist(ctx, store.InsertPlaylistParams{
			ID:    "playlist-1",
			Name:  "Road Trip",
			Owner: "user-1",
		})
		require.NoError(t, err)

		_, err = queries.InsertSong(ctx, store.InsertSongParams{
			ID:        "song-1",
			Title:     "Yellow",
			Performer: "Coldplay",
		})
		require.NoError(t, err)

		_, err = queries.InsertPlaylistSong(ctx, store.InsertPlaylistSongParams{
			ID:         "playlist-song-1",
			PlaylistID: "playlist-1",
			SongID:     "song-1",
		})
		require.NoError(t, err)

		_, err = queries.InsertPlaylistSong(ctx, store.InsertPlaylistSongParams{
			ID:         "playlist-song-2",
			PlaylistID: "playlist-1",
			SongID:     "song-1",
		})
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, store.UniqueViolation, pgErr.Code)
	})

	t.Run("關聯不存在的歌曲違反外鍵約束", func(t *testing.T) {
		_, err := queries.InsertPlaylistSong(ctx, store.InsertPlaylistSongParams{
			ID:         "playlist-song-3",
			PlaylistID: "playlist-1",
			SongID:     "song-missing",
		})
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, store.ForeignKeyViolation, pgErr.Code)
	})

	t.Run("刪除專輯層級刪除按讚", func(t *testing.T) {
		_, err := queries.DeleteAlbum(ctx, "album-1")
		require.NoError(t, err)

		count, err := queries.CountAlbumLikes(ctx, "album-1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

// TestIntegration_CacheTTL 驗證 Redis 端的過期時間設定
func TestIntegration_CacheTTL(t *testing.T) {
	env := testutils.SetupTestEnvironment(t)
	ctx := context.Background()

	cache := internal.NewRedisCache(env.RedisClient)

	require.NoError(t, cache.Set(ctx, "likes:album-1", 5, 30*time.Minute))

	ttl, err := env.RedisClient.TTL(ctx, "likes:album-1").Result()
	require.NoError(t, err)
	assert.InDelta(t, (30 * time.Minute).Seconds(), ttl.Seconds(), 5)

	value, err := cache.Get(ctx, "likes:album-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), value)

	// 刪除後 miss
	require.NoError(t, cache.Delete(ctx, "likes:album-1"))

	_, err = cache.Get(ctx, "likes:album-1")
	assert.ErrorIs(t, err, internal.ErrCacheMiss)

	// 重複刪除不是錯誤
	assert.NoError(t, cache.Delete(ctx, "likes:album-1"))
}
