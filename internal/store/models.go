package store

// Album 專輯
type Album struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Year     int     `json:"year"`
	CoverURL *string `json:"coverUrl"`
}

// Song 歌曲
type Song struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Performer string  `json:"performer"`
	AlbumID   *string `json:"albumId,omitempty"`
}

// Playlist 播放清單
type Playlist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

// PlaylistInfo 播放清單與擁有者名稱（JOIN users 的結果）
type PlaylistInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}
