package store

import "context"

const insertSong = `
INSERT INTO songs (id, title, performer, album_id)
VALUES ($1, $2, $3, $4)
`

// InsertSongParams 新增歌曲參數
type InsertSongParams struct {
	ID        string
	Title     string
	Performer string
	AlbumID   *string
}

// InsertSong 新增歌曲，album_id 指向不存在的專輯時回傳 23503
func (q *Queries) InsertSong(ctx context.Context, arg InsertSongParams) (int64, error) {
	tag, err := q.db.Exec(ctx, insertSong, arg.ID, arg.Title, arg.Performer, arg.AlbumID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getSong = `
SELECT id, title, performer, album_id
FROM songs
WHERE id = $1
`

// GetSong 取得單一歌曲，未找到時回傳 pgx.ErrNoRows
func (q *Queries) GetSong(ctx context.Context, id string) (Song, error) {
	var s Song
	err := q.db.QueryRow(ctx, getSong, id).Scan(&s.ID, &s.Title, &s.Performer, &s.AlbumID)
	return s, err
}

const listSongs = `
SELECT id, title, performer
FROM songs
WHERE ($1 = '' OR title ILIKE '%' || $1 || '%')
  AND ($2 = '' OR performer ILIKE '%' || $2 || '%')
ORDER BY title, id
`

// ListSongsParams 歌曲列表過濾條件，空字串代表不過濾
type ListSongsParams struct {
	Title     string
	Performer string
}

// ListSongs 取得歌曲列表
func (q *Queries) ListSongs(ctx context.Context, arg ListSongsParams) ([]Song, error) {
	rows, err := q.db.Query(ctx, listSongs, arg.Title, arg.Performer)
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

const updateSong = `
UPDATE songs
SET title = $1, performer = $2, album_id = $3
WHERE id = $4
`

// UpdateSongParams 更新歌曲參數
type UpdateSongParams struct {
	ID        string
	Title     string
	Performer string
	AlbumID   *string
}

// UpdateSong 更新歌曲，返回影響列數
func (q *Queries) UpdateSong(ctx context.Context, arg UpdateSongParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateSong, arg.Title, arg.Performer, arg.AlbumID, arg.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteSong = `
DELETE FROM songs
WHERE id = $1
`

// DeleteSong 刪除歌曲，相依的播放清單關聯由外鍵層級處理
func (q *Queries) DeleteSong(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteSong, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
