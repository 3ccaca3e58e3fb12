package store

import "context"

// Querier 定義服務層使用的全部查詢
//
// 測試時以 testutils.MockStore 替換，正式環境以 Queries + pgxpool 實現。
type Querier interface {
	// Albums
	InsertAlbum(ctx context.Context, arg InsertAlbumParams) (int64, error)
	GetAlbum(ctx context.Context, id string) (Album, error)
	AlbumExists(ctx context.Context, id string) (bool, error)
	UpdateAlbum(ctx context.Context, arg UpdateAlbumParams) (int64, error)
	UpdateAlbumCover(ctx context.Context, arg UpdateAlbumCoverParams) (int64, error)
	DeleteAlbum(ctx context.Context, id string) (int64, error)
	ListAlbumSongs(ctx context.Context, albumID string) ([]Song, error)

	// Album likes
	HasAlbumLike(ctx context.Context, arg AlbumLikeParams) (bool, error)
	InsertAlbumLike(ctx context.Context, arg AlbumLikeParams) (int64, error)
	DeleteAlbumLike(ctx context.Context, arg AlbumLikeParams) (int64, error)
	CountAlbumLikes(ctx context.Context, albumID string) (int64, error)

	// Songs
	InsertSong(ctx context.Context, arg InsertSongParams) (int64, error)
	GetSong(ctx context.Context, id string) (Song, error)
	ListSongs(ctx context.Context, arg ListSongsParams) ([]Song, error)
	UpdateSong(ctx context.Context, arg UpdateSongParams) (int64, error)
	DeleteSong(ctx context.Context, id string) (int64, error)

	// Playlists
	InsertPlaylist(ctx context.Context, arg InsertPlaylistParams) (int64, error)
	GetPlaylist(ctx context.Context, id string) (Playlist, error)
	GetPlaylistInfo(ctx context.Context, id string) (PlaylistInfo, error)
	ListPlaylistsByOwner(ctx context.Context, owner string) ([]PlaylistInfo, error)
	DeletePlaylist(ctx context.Context, id string) (int64, error)

	// Playlist songs
	InsertPlaylistSong(ctx context.Context, arg InsertPlaylistSongParams) (int64, error)
	ListPlaylistSongs(ctx context.Context, playlistID string) ([]Song, error)
	DeletePlaylistSong(ctx context.Context, arg DeletePlaylistSongParams) (int64, error)

	// Users
	InsertUser(ctx context.Context, arg InsertUserParams) (int64, error)
}

var _ Querier = (*Queries)(nil)
