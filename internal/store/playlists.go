package store

import "context"

const insertPlaylist = `
INSERT INTO playlists (id, name, owner)
VALUES ($1, $2, $3)
`

// InsertPlaylistParams 新增播放清單參數
type InsertPlaylistParams struct {
	ID    string
	Name  string
	Owner string
}

// InsertPlaylist 新增播放清單，owner 不存在時回傳 23503
func (q *Queries) InsertPlaylist(ctx context.Context, arg InsertPlaylistParams) (int64, error) {
	tag, err := q.db.Exec(ctx, insertPlaylist, arg.ID, arg.Name, arg.Owner)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getPlaylist = `
SELECT id, name, owner
FROM playlists
WHERE id = $1
`

// GetPlaylist 取得播放清單（含擁有者 ID），未找到時回傳 pgx.ErrNoRows
func (q *Queries) GetPlaylist(ctx context.Context, id string) (Playlist, error) {
	var p Playlist
	err := q.db.QueryRow(ctx, getPlaylist, id).Scan(&p.ID, &p.Name, &p.Owner)
	return p, err
}

const getPlaylistInfo = `
SELECT playlists.id, playlists.name, users.username
FROM playlists
LEFT JOIN users ON users.id = playlists.owner
WHERE playlists.id = $1
`

// GetPlaylistInfo 取得播放清單與擁有者名稱
func (q *Queries) GetPlaylistInfo(ctx context.Context, id string) (PlaylistInfo, error) {
	var p PlaylistInfo
	err := q.db.QueryRow(ctx, getPlaylistInfo, id).Scan(&p.ID, &p.Name, &p.Username)
	return p, err
}

const listPlaylistsByOwner = `
SELECT playlists.id, playlists.name, users.username
FROM playlists
LEFT JOIN users ON users.id = playlists.owner
WHERE playlists.owner = $1
ORDER BY playlists.name, playlists.id
`

// ListPlaylistsByOwner 取得使用者擁有的播放清單
func (q *Queries) ListPlaylistsByOwner(ctx context.Context, owner string) ([]PlaylistInfo, error) {
	rows, err := q.db.Query(ctx, listPlaylistsByOwner, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []PlaylistInfo
	for rows.Next() {
		var p PlaylistInfo
		if err := rows.Scan(&p.ID, &p.Name, &p.Username); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

const deletePlaylist = `
DELETE FROM playlists
WHERE id = $1
`

// DeletePlaylist 刪除播放清單，關聯的 playlist_songs 由外鍵層級處理
func (q *Queries) DeletePlaylist(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePlaylist, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const insertPlaylistSong = `
INSERT INTO playlist_songs (id, playlist_id, song_id)
VALUES ($1, $2, $3)
`

// InsertPlaylistSongParams 新增播放清單歌曲參數
type InsertPlaylistSongParams struct {
	ID         string
	PlaylistID string
	SongID     string
}

// InsertPlaylistSong 新增播放清單歌曲
//
// (playlist_id, song_id) 重複時回傳 23505，
// playlist_id 或 song_id 指向不存在的列時回傳 23503。
func (q *Queries) InsertPlaylistSong(ctx context.Context, arg InsertPlaylistSongParams) (int64, error) {
	tag, err := q.db.Exec(ctx, insertPlaylistSong, arg.ID, arg.PlaylistID, arg.SongID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listPlaylistSongs = `
SELECT songs.id, songs.title, songs.performer
FROM songs
INNER JOIN playlist_songs ON playlist_songs.song_id = songs.id
WHERE playlist_songs.playlist_id = $1
ORDER BY songs.title, songs.id
`

// ListPlaylistSongs 取得播放清單中的歌曲
//
// 關聯本身沒有序號欄位，依 title、id 排序保證結果確定。
func (q *Queries) ListPlaylistSongs(ctx context.Context, playlistID string) ([]Song, error) {
	rows, err := q.db.Query(ctx, listPlaylistSongs, playlistID)
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

const deletePlaylistSong = `
DELETE FROM playlist_songs
WHERE playlist_id = $1 AND song_id = $2
`

// DeletePlaylistSongParams 刪除播放清單歌曲參數
type DeletePlaylistSongParams struct {
	PlaylistID string
	SongID     string
}

// DeletePlaylistSong 刪除播放清單歌曲，返回影響列數
func (q *Queries) DeletePlaylistSong(ctx context.Context, arg DeletePlaylistSongParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePlaylistSong, arg.PlaylistID, arg.SongID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
