// Package testutils 提供測試用的共用工具和輔助函數
package testutils

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koopa0/openmusic/internal"
	"github.com/koopa0/openmusic/internal/store"
)

// likeKey 按讚關聯的複合鍵
func likeKey(userID, albumID string) string {
	return userID + "|" + albumID
}

// membershipKey 播放清單歌曲關聯的複合鍵
func membershipKey(playlistID, songID string) string {
	return playlistID + "|" + songID
}

// MockStore 實作 store.Querier 介面的記憶體 mock
type MockStore struct {
	mu            sync.RWMutex
	albums        map[string]store.Album
	songs         map[string]store.Song
	playlists     map[string]store.Playlist
	usernames     map[string]string            // user id -> username
	likes         map[string]struct{}          // likeKey -> 存在
	memberships   map[string]string            // membershipKey -> membership id
	membershipIDs map[string]string            // membership id -> membershipKey

	// 記錄呼叫次數
	CountLikesCalls atomic.Int32

	// 錯誤注入，FailOn 非空時只在該方法觸發
	ShouldFailNext bool
	FailOn         string
	FailError      error
}

// NewMockStore 創建新的 MockStore
func NewMockStore() *MockStore {
	return &MockStore{
		albums:        make(map[string]store.Album),
		songs:         make(map[string]store.Song),
		playlists:     make(map[string]store.Playlist),
		usernames:     make(map[string]string),
		likes:         make(map[string]struct{}),
		memberships:   make(map[string]string),
		membershipIDs: make(map[string]string),
	}
}

// failNext 取出注入的錯誤
func (m *MockStore) failNext(method string) error {
	if m.ShouldFailNext && (m.FailOn == "" || m.FailOn == method) {
		m.ShouldFailNext = false
		return m.FailError
	}
	return nil
}

// InsertAlbum 實作 Querier 的 InsertAlbum 方法
func (m *MockStore) InsertAlbum(ctx context.Context, arg store.InsertAlbumParams) (int64, error) {
	if err := m.failNext("InsertAlbum"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.albums[arg.ID]; exists {
		return 0, &pgconn.PgError{Code: store.UniqueViolation}
	}
	m.albums[arg.ID] = store.Album{ID: arg.ID, Name: arg.Name, Year: arg.Year}
	return 1, nil
}

// GetAlbum 實作 Querier 的 GetAlbum 方法
func (m *MockStore) GetAlbum(ctx context.Context, id string) (store.Album, error) {
	if err := m.failNext("GetAlbum"); err != nil {
		return store.Album{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	album, exists := m.albums[id]
	if !exists {
		return store.Album{}, pgx.ErrNoRows
	}
	return album, nil
}

// AlbumExists 實作 Querier 的 AlbumExists 方法
func (m *MockStore) AlbumExists(ctx context.Context, id string) (bool, error) {
	if err := m.failNext("AlbumExists"); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.albums[id]
	return exists, nil
}

// UpdateAlbum 實作 Querier 的 UpdateAlbum 方法
func (m *MockStore) UpdateAlbum(ctx context.Context, arg store.UpdateAlbumParams) (int64, error) {
	if err := m.failNext("UpdateAlbum"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	album, exists := m.albums[arg.ID]
	if !exists {
		return 0, nil
	}
	album.Name = arg.Name
	album.Year = arg.Year
	m.albums[arg.ID] = album
	return 1, nil
}

// UpdateAlbumCover 實作 Querier 的 UpdateAlbumCover 方法
func (m *MockStore) UpdateAlbumCover(ctx context.Context, arg store.UpdateAlbumCoverParams) (int64, error) {
	if err := m.failNext("UpdateAlbumCover"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	album, exists := m.albums[arg.ID]
	if !exists {
		return 0, nil
	}
	coverURL := arg.CoverURL
	album.CoverURL = &coverURL
	m.albums[arg.ID] = album
	return 1, nil
}

// DeleteAlbum 實作 Querier 的 DeleteAlbum 方法，模擬層級刪除
func (m *MockStore) DeleteAlbum(ctx context.Context, id string) (int64, error) {
	if err := m.failNext("DeleteAlbum"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.albums[id]; !exists {
		return 0, nil
	}
	delete(m.albums, id)

	// 層級刪除按讚與歌曲的專輯關聯
	for key := range m.likes {
		if strings.HasSuffix(key, "|"+id) {
			delete(m.likes, key)
		}
	}
	for songID, song := range m.songs {
		if song.AlbumID != nil && *song.AlbumID == id {
			delete(m.songs, songID)
		}
	}
	return 1, nil
}

// ListAlbumSongs 實作 Querier 的 ListAlbumSongs 方法
func (m *MockStore) ListAlbumSongs(ctx context.Context, albumID string) ([]store.Song, error) {
	if err := m.failNext("ListAlbumSongs"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var songs []store.Song
	for _, song := range m.songs {
		if song.AlbumID != nil && *song.AlbumID == albumID {
			songs = append(songs, store.Song{ID: song.ID, Title: song.Title, Performer: song.Performer})
		}
	}
	sortSongs(songs)
	return songs, nil
}

// HasAlbumLike 實作 Querier 的 HasAlbumLike 方法
func (m *MockStore) HasAlbumLike(ctx context.Context, arg store.AlbumLikeParams) (bool, error) {
	if err := m.failNext("HasAlbumLike"); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.likes[likeKey(arg.UserID, arg.AlbumID)]
	return exists, nil
}

// InsertAlbumLike 實作 Querier 的 InsertAlbumLike 方法
//
// 重複的 (user_id, album_id) 回傳唯一約束違反，與真實 schema 一致。
func (m *MockStore) InsertAlbumLike(ctx context.Context, arg store.AlbumLikeParams) (int64, error) {
	if err := m.failNext("InsertAlbumLike"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := likeKey(arg.UserID, arg.AlbumID)
	if _, exists := m.likes[key]; exists {
		return 0, &pgconn.PgError{Code: store.UniqueViolation}
	}
	m.likes[key] = struct{}{}
	return 1, nil
}

// DeleteAlbumLike 實作 Querier 的 DeleteAlbumLike 方法
func (m *MockStore) DeleteAlbumLike(ctx context.Context, arg store.AlbumLikeParams) (int64, error) {
	if err := m.failNext("DeleteAlbumLike"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := likeKey(arg.UserID, arg.AlbumID)
	if _, exists := m.likes[key]; !exists {
		return 0, nil
	}
	delete(m.likes, key)
	return 1, nil
}

// CountAlbumLikes 實作 Querier 的 CountAlbumLikes 方法
func (m *MockStore) CountAlbumLikes(ctx context.Context, albumID string) (int64, error) {
	m.CountLikesCalls.Add(1)

	if err := m.failNext("CountAlbumLikes"); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for key := range m.likes {
		if strings.HasSuffix(key, "|"+albumID) {
			count++
		}
	}
	return count, nil
}

// InsertSong 實作 Querier 的 InsertSong 方法
func (m *MockStore) InsertSong(ctx context.Context, arg store.InsertSongParams) (int64, error) {
	if err := m.failNext("InsertSong"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if arg.AlbumID != nil {
		if _, exists := m.albums[*arg.AlbumID]; !exists {
			return 0, &pgconn.PgError{Code: store.ForeignKeyViolation}
		}
	}
	m.songs[arg.ID] = store.Song{ID: arg.ID, Title: arg.Title, Performer: arg.Performer, AlbumID: arg.AlbumID}
	return 1, nil
}

// GetSong 實作 Querier 的 GetSong 方法
func (m *MockStore) GetSong(ctx context.Context, id string) (store.Song, error) {
	if err := m.failNext("GetSong"); err != nil {
		return store.Song{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	song, exists := m.songs[id]
	if !exists {
		return store.Song{}, pgx.ErrNoRows
	}
	return song, nil
}

// ListSongs 實作 Querier 的 ListSongs 方法
func (m *MockStore) ListSongs(ctx context.Context, arg store.ListSongsParams) ([]store.Song, error) {
	if err := m.failNext("ListSongs"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var songs []store.Song
	for _, song := range m.songs {
		if arg.Title != "" && !strings.Contains(strings.ToLower(song.Title), strings.ToLower(arg.Title)) {
			continue
		}
		if arg.Performer != "" && !strings.Contains(strings.ToLower(song.Performer), strings.ToLower(arg.Performer)) {
			continue
		}
		songs = append(songs, store.Song{ID: song.ID, Title: song.Title, Performer: song.Performer})
	}
	sortSongs(songs)
	return songs, nil
}

// UpdateSong 實作 Querier 的 UpdateSong 方法
func (m *MockStore) UpdateSong(ctx context.Context, arg store.UpdateSongParams) (int64, error) {
	if err := m.failNext("UpdateSong"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	song, exists := m.songs[arg.ID]
	if !exists {
		return 0, nil
	}
	if arg.AlbumID != nil {
		if _, ok := m.albums[*arg.AlbumID]; !ok {
			return 0, &pgconn.PgError{Code: store.ForeignKeyViolation}
		}
	}
	song.Title = arg.Title
	song.Performer = arg.Performer
	song.AlbumID = arg.AlbumID
	m.songs[arg.ID] = song
	return 1, nil
}

// DeleteSong 實作 Querier 的 DeleteSong 方法，模擬層級刪除
func (m *MockStore) DeleteSong(ctx context.Context, id string) (int64, error) {
	if err := m.failNext("DeleteSong"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.songs[id]; !exists {
		return 0, nil
	}
	delete(m.songs, id)

	for key, membershipID := range m.memberships {
		if strings.HasSuffix(key, "|"+id) {
			delete(m.memberships, key)
			delete(m.membershipIDs, membershipID)
		}
	}
	return 1, nil
}

// InsertPlaylist 實作 Querier 的 InsertPlaylist 方法
func (m *MockStore) InsertPlaylist(ctx context.Context, arg store.InsertPlaylistParams) (int64, error) {
	if err := m.failNext("InsertPlaylist"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.playlists[arg.ID] = store.Playlist{ID: arg.ID, Name: arg.Name, Owner: arg.Owner}
	return 1, nil
}

// GetPlaylist 實作 Querier 的 GetPlaylist 方法
func (m *MockStore) GetPlaylist(ctx context.Context, id string) (store.Playlist, error) {
	if err := m.failNext("GetPlaylist"); err != nil {
		return store.Playlist{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	playlist, exists := m.playlists[id]
	if !exists {
		return store.Playlist{}, pgx.ErrNoRows
	}
	return playlist, nil
}

// GetPlaylistInfo 實作 Querier 的 GetPlaylistInfo 方法
func (m *MockStore) GetPlaylistInfo(ctx context.Context, id string) (store.PlaylistInfo, error) {
	if err := m.failNext("GetPlaylistInfo"); err != nil {
		return store.PlaylistInfo{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	playlist, exists := m.playlists[id]
	if !exists {
		return store.PlaylistInfo{}, pgx.ErrNoRows
	}
	return store.PlaylistInfo{
		ID:       playlist.ID,
		Name:     playlist.Name,
		Username: m.usernames[playlist.Owner],
	}, nil
}

// ListPlaylistsByOwner 實作 Querier 的 ListPlaylistsByOwner 方法
func (m *MockStore) ListPlaylistsByOwner(ctx context.Context, owner string) ([]store.PlaylistInfo, error) {
	if err := m.failNext("ListPlaylistsByOwner"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var playlists []store.PlaylistInfo
	for _, playlist := range m.playlists {
		if playlist.Owner == owner {
			playlists = append(playlists, store.PlaylistInfo{
				ID:       playlist.ID,
				Name:     playlist.Name,
				Username: m.usernames[owner],
			})
		}
	}
	sort.Slice(playlists, func(i, j int) bool {
		if playlists[i].Name != playlists[j].Name {
			return playlists[i].Name < playlists[j].Name
		}
		return playlists[i].ID < playlists[j].ID
	})
	return playlists, nil
}

// DeletePlaylist 實作 Querier 的 DeletePlaylist 方法，模擬層級刪除
func (m *MockStore) DeletePlaylist(ctx context.Context, id string) (int64, error) {
	if err := m.failNext("DeletePlaylist"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.playlists[id]; !exists {
		return 0, nil
	}
	delete(m.playlists, id)

	for key, membershipID := range m.memberships {
		if strings.HasPrefix(key, id+"|") {
			delete(m.memberships, key)
			delete(m.membershipIDs, membershipID)
		}
	}
	return 1, nil
}

// InsertPlaylistSong 實作 Querier 的 InsertPlaylistSong 方法
//
// 重複的 (playlist_id, song_id) 回傳唯一約束違反，
// 播放清單或歌曲不存在回傳外鍵約束違反，與真實 schema 一致。
func (m *MockStore) InsertPlaylistSong(ctx context.Context, arg store.InsertPlaylistSongParams) (int64, error) {
	if err := m.failNext("InsertPlaylistSong"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.playlists[arg.PlaylistID]; !exists {
		return 0, &pgconn.PgError{Code: store.ForeignKeyViolation}
	}
	if _, exists := m.songs[arg.SongID]; !exists {
		return 0, &pgconn.PgError{Code: store.ForeignKeyViolation}
	}

	key := membershipKey(arg.PlaylistID, arg.SongID)
	if _, exists := m.memberships[key]; exists {
		return 0, &pgconn.PgError{Code: store.UniqueViolation}
	}
	m.memberships[key] = arg.ID
	m.membershipIDs[arg.ID] = key
	return 1, nil
}

// ListPlaylistSongs 實作 Querier 的 ListPlaylistSongs 方法
func (m *MockStore) ListPlaylistSongs(ctx context.Context, playlistID string) ([]store.Song, error) {
	if err := m.failNext("ListPlaylistSongs"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var songs []store.Song
	for key := range m.memberships {
		if !strings.HasPrefix(key, playlistID+"|") {
			continue
		}
		songID := strings.TrimPrefix(key, playlistID+"|")
		if song, exists := m.songs[songID]; exists {
			songs = append(songs, store.Song{ID: song.ID, Title: song.Title, Performer: song.Performer})
		}
	}
	sortSongs(songs)
	return songs, nil
}

// DeletePlaylistSong 實作 Querier 的 DeletePlaylistSong 方法
func (m *MockStore) DeletePlaylistSong(ctx context.Context, arg store.DeletePlaylistSongParams) (int64, error) {
	if err := m.failNext("DeletePlaylistSong"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := membershipKey(arg.PlaylistID, arg.SongID)
	membershipID, exists := m.memberships[key]
	if !exists {
		return 0, nil
	}
	delete(m.memberships, key)
	delete(m.membershipIDs, membershipID)
	return 1, nil
}

// InsertUser 實作 Querier 的 InsertUser 方法
func (m *MockStore) InsertUser(ctx context.Context, arg store.InsertUserParams) (int64, error) {
	if err := m.failNext("InsertUser"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, username := range m.usernames {
		if username == arg.Username {
			return 0, &pgconn.PgError{Code: store.UniqueViolation}
		}
	}
	m.usernames[arg.ID] = arg.Username
	return 1, nil
}

// SeedUser 直接建立使用者（測試用）
func (m *MockStore) SeedUser(id, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usernames[id] = username
}

// LikeRowCount 直接取得按讚列數（測試用）
func (m *MockStore) LikeRowCount(albumID string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for key := range m.likes {
		if strings.HasSuffix(key, "|"+albumID) {
			count++
		}
	}
	return count
}

// MembershipCount 直接取得播放清單關聯數（測試用）
func (m *MockStore) MembershipCount(playlistID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for key := range m.memberships {
		if strings.HasPrefix(key, playlistID+"|") {
			count++
		}
	}
	return count
}

func sortSongs(songs []store.Song) {
	sort.Slice(songs, func(i, j int) bool {
		if songs[i].Title != songs[j].Title {
			return songs[i].Title < songs[j].Title
		}
		return songs[i].ID < songs[j].ID
	})
}

var _ store.Querier = (*MockStore)(nil)

// mockEntry 快取項目
type mockEntry struct {
	value     int64
	expiresAt time.Time
}

// MockCache 實作 internal.Cache 介面的記憶體 mock
//
// 時鐘可控，測試可以用 Advance 模擬 TTL 過期。
type MockCache struct {
	mu      sync.RWMutex
	entries map[string]mockEntry
	now     time.Time

	// 記錄呼叫次數
	GetCalls    atomic.Int32
	SetCalls    atomic.Int32
	DeleteCalls atomic.Int32

	// 錯誤注入
	FailNextGet    error
	FailNextSet    error
	FailNextDelete error
}

// NewMockCache 創建新的 MockCache
func NewMockCache() *MockCache {
	return &MockCache{
		entries: make(map[string]mockEntry),
		now:     time.Now(),
	}
}

// Get 實作 Cache 的 Get 方法
func (c *MockCache) Get(ctx context.Context, key string) (int64, error) {
	c.GetCalls.Add(1)

	if c.FailNextGet != nil {
		err := c.FailNextGet
		c.FailNextGet = nil
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || !c.now.Before(entry.expiresAt) {
		return 0, internal.ErrCacheMiss
	}
	return entry.value, nil
}

// Set 實作 Cache 的 Set 方法
func (c *MockCache) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	c.SetCalls.Add(1)

	if c.FailNextSet != nil {
		err := c.FailNextSet
		c.FailNextSet = nil
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = mockEntry{value: value, expiresAt: c.now.Add(ttl)}
	return nil
}

// Delete 實作 Cache 的 Delete 方法，鍵不存在時同樣成功
func (c *MockCache) Delete(ctx context.Context, key string) error {
	c.DeleteCalls.Add(1)

	if c.FailNextDelete != nil {
		err := c.FailNextDelete
		c.FailNextDelete = nil
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Advance 推進 mock 時鐘，模擬 TTL 過期
func (c *MockCache) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Contains 檢查鍵是否存在且未過期（測試用）
func (c *MockCache) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	return exists && c.now.Before(entry.expiresAt)
}

var _ internal.Cache = (*MockCache)(nil)

// publishedMessage 發佈過的訊息
type publishedMessage struct {
	Subject string
	Data    []byte
}

// MockPublisher 實作 internal.Publisher 介面的 mock
type MockPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage

	// 錯誤注入
	FailNext error
}

// NewMockPublisher 創建新的 MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish 實作 Publisher 的 Publish 方法
func (p *MockPublisher) Publish(subject string, data []byte) error {
	if p.FailNext != nil {
		err := p.FailNext
		p.FailNext = nil
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, publishedMessage{Subject: subject, Data: data})
	return nil
}

// Published 取得發佈過的訊息數量與最後一筆（測試用）
func (p *MockPublisher) Published() (int, string, []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.messages) == 0 {
		return 0, "", nil
	}
	last := p.messages[len(p.messages)-1]
	return len(p.messages), last.Subject, last.Data
}

var _ internal.Publisher = (*MockPublisher)(nil)
