package store

import "context"

const insertAlbum = `
INSERT INTO albums (id, name, year)
VALUES ($1, $2, $3)
`

// InsertAlbumParams 新增專輯參數
type InsertAlbumParams struct {
	ID   string
	Name string
	Year int
}

// InsertAlbum 新增專輯，返回影響列數
func (q *Queries) InsertAlbum(ctx context.Context, arg InsertAlbumParams) (int64, error) {
	tag, err := q.db.Exec(ctx, insertAlbum, arg.ID, arg.Name, arg.Year)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getAlbum = `
SELECT id, name, year, cover_url
FROM albums
WHERE id = $1
`

// GetAlbum 取得單一專輯，未找到時回傳 pgx.ErrNoRows
func (q *Queries) GetAlbum(ctx context.Context, id string) (Album, error) {
	var a Album
	err := q.db.QueryRow(ctx, getAlbum, id).Scan(&a.ID, &a.Name, &a.Year, &a.CoverURL)
	return a, err
}

const albumExists = `
SELECT EXISTS (SELECT 1 FROM albums WHERE id = $1)
`

// AlbumExists 檢查專輯是否存在
func (q *Queries) AlbumExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, albumExists, id).Scan(&exists)
	return exists, err
}

const updateAlbum = `
UPDATE albums
SET name = $1, year = $2
WHERE id = $3
`

// UpdateAlbumParams 更新專輯參數
type UpdateAlbumParams struct {
	ID   string
	Name string
	Year int
}

// UpdateAlbum 更新專輯名稱與年份，返回影響列數
func (q *Queries) UpdateAlbum(ctx context.Context, arg UpdateAlbumParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateAlbum, arg.Name, arg.Year, arg.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const updateAlbumCover = `
UPDATE albums
SET cover_url = $1
WHERE id = $2
`

// UpdateAlbumCoverParams 更新專輯封面參數
type UpdateAlbumCoverParams struct {
	ID       string
	CoverURL string
}

// UpdateAlbumCover 更新專輯封面網址，返回影響列數
func (q *Queries) UpdateAlbumCover(ctx context.Context, arg UpdateAlbumCoverParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateAlbumCover, arg.CoverURL, arg.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteAlbum = `
DELETE FROM albums
WHERE id = $1
`

// DeleteAlbum 刪除專輯，相依的 likes 與 songs.album_id 由外鍵層級處理
func (q *Queries) DeleteAlbum(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteAlbum, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listAlbumSongs = `
SELECT id, title, performer
FROM songs
WHERE album_id = $1
ORDER BY title, id
`

// ListAlbumSongs 取得專輯內的歌曲
func (q *Queries) ListAlbumSongs(ctx context.Context, albumID string) ([]Song, error) {
	rows, err := q.db.Query(ctx, listAlbumSongs, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		var s Song
		if err := rows.Scan(&s.ID, &s.Title, &s.Performer); err != nil {
			return nil, err
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

const hasAlbumLike = `
SELECT EXISTS (
	SELECT 1 FROM user_album_likes
	WHERE user_id = $1 AND album_id = $2
)
`

// AlbumLikeParams 按讚關聯的複合鍵
type AlbumLikeParams struct {
	UserID  string
	AlbumID string
}

// HasAlbumLike 檢查使用者是否已按讚專輯
func (q *Queries) HasAlbumLike(ctx context.Context, arg AlbumLikeParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, hasAlbumLike, arg.UserID, arg.AlbumID).Scan(&exists)
	return exists, err
}

const insertAlbumLike = `
INSERT INTO user_album_likes (user_id, album_id)
VALUES ($1, $2)
`

// InsertAlbumLike 新增按讚，主鍵 (user_id, album_id) 重複時回傳 23505
func (q *Queries) InsertAlbumLike(ctx context.Context, arg AlbumLikeParams) (int64, error) {
	tag, err := q.db.Exec(ctx, insertAlbumLike, arg.UserID, arg.AlbumID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteAlbumLike = `
DELETE FROM user_album_likes
WHERE user_id = $1 AND album_id = $2
`

// DeleteAlbumLike 刪除按讚，返回影響列數
func (q *Queries) DeleteAlbumLike(ctx context.Context, arg AlbumLikeParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteAlbumLike, arg.UserID, arg.AlbumID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const countAlbumLikes = `
SELECT COUNT(*)
FROM user_album_likes
WHERE album_id = $1
`

// CountAlbumLikes 計算專輯按讚數
func (q *Queries) CountAlbumLikes(ctx context.Context, albumID string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countAlbumLikes, albumID).Scan(&count)
	return count, err
}
