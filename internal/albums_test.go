package internal_test

import (
	"context"
	"errors"
	"log/slog"
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

// newAlbumEnv 建立專輯服務測試環境
func newAlbumEnv(t *testing.T) (*internal.AlbumService, *testutils.MockStore, *testutils.MockCache) {
	t.Helper()

	mockStore := testutils.NewMockStore()
	mockCache := testutils.NewMockCache()
	logger := slog.New(slog.DiscardHandler)
	svc := internal.NewAlbumService(mockStore, mockCache, 30*time.Minute, logger)

	return svc, mockStore, mockCache
}

// seedAlbum 新增一張專輯並返回 ID
func seedAlbum(t *testing.T, svc *internal.AlbumService) string {
	t.Helper()

	id, err := svc.AddAlbum(context.Background(), "Viva la Vida", 2008)
	require.NoError(t, err)
	return id
}

// TestAlbumService_CRUD 測試專輯的基本操作
func TestAlbumService_CRUD(t *testing.T) {
	ctx := context.Background()

	t.Run("新增後可取得", func(t *testing.T) {
		svc, _, _ := newAlbumEnv(t)

		id, err := svc.AddAlbum(ctx, "Viva la Vida", 2008)
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		album, err := svc.GetAlbumByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Viva la Vida", album.Name)
		assert.Equal(t, 2008, album.Year)
		assert.Empty(t, album.Songs)
	})

	t.Run("取得不存在的專輯", func(t *testing.T) {
		svc, _, _ := newAlbumEnv(t)

		_, err := svc.GetAlbumByID(ctx, "album-missing")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("更新後取得新值", func(t *testing.T) {
		svc, _, _ := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		require.NoError(t, svc.EditAlbumByID(ctx, id, "Parachutes", 2000))

		album, err := svc.GetAlbumByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Parachutes", album.Name)
		assert.Equal(t, 2000, album.Year)
	})

	t.Run("更新不存在的專輯", func(t *testing.T) {
		svc, _, _ := newAlbumEnv(t)

		err := svc.EditAlbumByID(ctx, "album-missing", "Parachutes", 2000)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("刪除後取得回傳未找到", func(t *testing.T) {
		svc, _, _ := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		require.NoError(t, svc.DeleteAlbumByID(ctx, id))

		_, err := svc.GetAlbumByID(ctx, id)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("刪除不存在的專輯", func(t *testing.T) {
		svc, _, _ := newAlbumEnv(t)

		err := svc.DeleteAlbumByID(ctx, "album-missing")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("更新封面網址", func(t *testing.T) {
		svc, _, _ := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		require.NoError(t, svc.UpdateAlbumCover(ctx, id, "https://cdn.example.com/covers/1.jpg"))

		album, err := svc.GetAlbumByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, album.CoverURL)
		assert.Equal(t, "https://cdn.example.com/covers/1.jpg", *album.CoverURL)
	})
}

// TestAlbumService_AddLike 測試按讚的各種情況
func TestAlbumService_AddLike(t *testing.T) {
	ctx := context.Background()

	t.Run("首次按讚成功", func(t *testing.T) {
		svc, mockStore, _ := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		userID, err := svc.AddLike(ctx, id, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", userID)
		assert.Equal(t, int64(1), mockStore.LikeRowCount(id))
	})

	t.Run("按讚不存在的專輯", func(t *testing.T) {
		svc, _, _ := newAlbumEnv(t)

		_, err := svc.AddLike(ctx, "album-missing", "user-1")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("重複按讚回傳業務規則違反且計數不變", func(t *testing.T) {
		svc, mockStore, _ := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		_, err := svc.AddLike(ctx, id, "user-1")
		require.NoError(t, err)

		_, err = svc.AddLike(ctx, id, "user-1")
		assert.True(t, apperrors.IsInvariant(err))
		assert.ErrorIs(t, err, apperrors.ErrAlreadyLiked)
		assert.Equal(t, int64(1), mockStore.LikeRowCount(id))

		count, _, err := svc.LikeCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("唯一約束違反翻譯成相同結果", func(t *testing.T) {
		// 預檢通過但並發寫入者先插入，約束違反要和預檢同樣處理
		svc, mockStore, _ := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		mockStore.ShouldFailNext = true
		mockStore.FailOn = "InsertAlbumLike"
		mockStore.FailError = &pgconn.PgError{Code: store.UniqueViolation}

		_, err := svc.AddLike(ctx, id, "user-1")
		assert.True(t, apperrors.IsInvariant(err))
		assert.ErrorIs(t, err, apperrors.ErrAlreadyLiked)
	})

	t.Run("不同使用者各自按讚", func(t *testing.T) {
		svc, mockStore, _ := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		_, err := svc.AddLike(ctx, id, "user-1")
		require.NoError(t, err)
		_, err = svc.AddLike(ctx, id, "user-2")
		require.NoError(t, err)

		assert.Equal(t, int64(2), mockStore.LikeRowCount(id))
	})

	t.Run("快取失效失敗時錯誤向外傳遞", func(t *testing.T) {
		svc, _, mockCache := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		mockCache.FailNextDelete = errors.New("connection refused")

		_, err := svc.AddLike(ctx, id, "user-1")
		assert.Error(t, err)
	})
}

// TestAlbumService_RemoveLike 測試取消按讚的各種情況
func TestAlbumService_RemoveLike(t *testing.T) {
	ctx := context.Background()

	t.Run("取消已存在的按讚", func(t *testing.T) {
		svc, mockStore, _ := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		_, err := svc.AddLike(ctx, id, "user-1")
		require.NoError(t, err)

		require.NoError(t, svc.RemoveLike(ctx, id, "user-1"))
		assert.Equal(t, int64(0), mockStore.LikeRowCount(id))
	})

	t.Run("取消不存在的按讚", func(t *testing.T) {
		svc, _, _ := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		err := svc.RemoveLike(ctx, id, "user-1")
		assert.True(t, apperrors.IsNotFound(err))
		assert.ErrorIs(t, err, apperrors.ErrLikeNotFound)
	})

	t.Run("取消按讚不存在的專輯", func(t *testing.T) {
		svc, _, _ := newAlbumEnv(t)

		err := svc.RemoveLike(ctx, "album-missing", "user-1")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

// TestAlbumService_LikeCount 測試計數讀取的快取行為
func TestAlbumService_LikeCount(t *testing.T) {
	ctx := context.Background()

	t.Run("miss 後從資料庫重算並回填", func(t *testing.T) {
		svc, _, mockCache := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		_, err := svc.AddLike(ctx, id, "user-1")
		require.NoError(t, err)

		count, source, err := svc.LikeCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, internal.SourceDatabase, source)
		assert.True(t, mockCache.Contains("likes:"+id))
	})

	t.Run("第二次讀取命中快取且不查資料庫", func(t *testing.T) {
		svc, mockStore, _ := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		_, err := svc.AddLike(ctx, id, "user-1")
		require.NoError(t, err)

		_, source, err := svc.LikeCount(ctx, id)
		require.NoError(t, err)
		require.Equal(t, internal.SourceDatabase, source)

		countCallsBefore := mockStore.CountLikesCalls.Load()

		count, source, err := svc.LikeCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, internal.SourceCache, source)
		assert.Equal(t, countCallsBefore, mockStore.CountLikesCalls.Load())
	})

	t.Run("零計數與 miss 區分", func(t *testing.T) {
		// 沒有任何按讚的專輯回傳 0 而非錯誤，回填後命中快取
		svc, _, _ := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		count, source, err := svc.LikeCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
		assert.Equal(t, internal.SourceDatabase, source)

		count, source, err = svc.LikeCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
		assert.Equal(t, internal.SourceCache, source)
	})

	t.Run("寫入後下一次讀取回到資料庫", func(t *testing.T) {
		svc, _, mockCache := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		_, err := svc.AddLike(ctx, id, "user-1")
		require.NoError(t, err)

		_, source, err := svc.LikeCount(ctx, id)
		require.NoError(t, err)
		require.Equal(t, internal.SourceDatabase, source)

		_, source, err = svc.LikeCount(ctx, id)
		require.NoError(t, err)
		require.Equal(t, internal.SourceCache, source)

		// 新的按讚讓快取鍵失效
		_, err = svc.AddLike(ctx, id, "user-2")
		require.NoError(t, err)
		assert.False(t, mockCache.Contains("likes:"+id))

		count, source, err := svc.LikeCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		assert.Equal(t, internal.SourceDatabase, source)
	})

	t.Run("TTL 過期後重算", func(t *testing.T) {
		svc, _, mockCache := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		_, err := svc.AddLike(ctx, id, "user-1")
		require.NoError(t, err)

		_, source, err := svc.LikeCount(ctx, id)
		require.NoError(t, err)
		require.Equal(t, internal.SourceDatabase, source)

		mockCache.Advance(31 * time.Minute)

		count, source, err := svc.LikeCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, internal.SourceDatabase, source)
	})

	t.Run("快取讀取失敗降級為資料庫讀取", func(t *testing.T) {
		svc, _, mockCache := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		_, err := svc.AddLike(ctx, id, "user-1")
		require.NoError(t, err)

		mockCache.FailNextGet = errors.New("connection refused")

		count, source, err := svc.LikeCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, internal.SourceDatabase, source)
	})

	t.Run("回填失敗不影響讀取結果", func(t *testing.T) {
		svc, _, mockCache := newAlbumEnv(t)
		id := seedAlbum(t, svc)

		_, err := svc.AddLike(ctx, id, "user-1")
		require.NoError(t, err)

		mockCache.FailNextSet = errors.New("connection refused")

		count, source, err := svc.LikeCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, internal.SourceDatabase, source)
	})

	t.Run("計數不存在的專輯", func(t *testing.T) {
		svc, _, _ := newAlbumEnv(t)

		_, _, err := svc.LikeCount(ctx, "album-missing")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

// TestAlbumService_LikeScenario 完整的按讚交錯情境
func TestAlbumService_LikeScenario(t *testing.T) {
	ctx := context.Background()
	svc, mockStore, _ := newAlbumEnv(t)
	id := seedAlbum(t, svc)

	// 初始計數為零，來自資料庫
	count, source, err := svc.LikeCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, internal.SourceDatabase, source)

	// user-1 按讚，讀取回到資料庫
	_, err = svc.AddLike(ctx, id, "user-1")
	require.NoError(t, err)

	count, source, err = svc.LikeCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, internal.SourceDatabase, source)

	// 重複按讚被拒，快取仍然有效
	_, err = svc.AddLike(ctx, id, "user-1")
	assert.True(t, apperrors.IsInvariant(err))

	count, source, err = svc.LikeCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, internal.SourceCache, source)

	// 取消按讚後計數歸零
	require.NoError(t, svc.RemoveLike(ctx, id, "user-1"))

	count, source, err = svc.LikeCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, internal.SourceDatabase, source)
	assert.Equal(t, int64(0), mockStore.LikeRowCount(id))
}
