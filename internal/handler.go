package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/koopa0/openmusic/pkg/errors"
)

// Handler HTTP 請求處理器
//
// 身份驗證由上游層處理，已驗證的使用者 ID 以 X-User-Id 標頭傳入。
type Handler struct {
	albums    *AlbumService
	songs     *SongService
	playlists *PlaylistService
	exports   *ExportService
	readiness func(ctx context.Context) error
	logger    *slog.Logger
}

// NewHandler 創建 HTTP 處理器
func NewHandler(
	albums *AlbumService,
	songs *SongService,
	playlists *PlaylistService,
	exports *ExportService,
	readiness func(ctx context.Context) error,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		albums:    albums,
		songs:     songs,
		playlists: playlists,
		exports:   exports,
		readiness: readiness,
		logger:    logger,
	}
}

// Routes 設定路由
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// 中間件鏈：日誌 -> 恢復 -> 業務處理
	wrap := func(handler http.HandlerFunc) http.HandlerFunc {
		return h.recoverer(h.loggerMiddleware(handler))
	}

	// 專輯
	mux.HandleFunc("POST /albums", wrap(h.postAlbum))
	mux.HandleFunc("GET /albums/{id}", wrap(h.getAlbum))
	mux.HandleFunc("PUT /albums/{id}", wrap(h.putAlbum))
	mux.HandleFunc("DELETE /albums/{id}", wrap(h.deleteAlbum))
	mux.HandleFunc("POST /albums/{id}/covers", wrap(h.postAlbumCover))

	// 專輯按讚
	mux.HandleFunc("POST /albums/{id}/likes", wrap(h.postAlbumLike))
	mux.HandleFunc("DELETE /albums/{id}/likes", wrap(h.deleteAlbumLike))
	mux.HandleFunc("GET /albums/{id}/likes", wrap(h.getAlbumLikes))

	// 歌曲
	mux.HandleFunc("POST /songs", wrap(h.postSong))
	mux.HandleFunc("GET /songs", wrap(h.getSongs))
	mux.HandleFunc("GET /songs/{id}", wrap(h.getSong))
	mux.HandleFunc("PUT /songs/{id}", wrap(h.putSong))
	mux.HandleFunc("DELETE /songs/{id}", wrap(h.deleteSong))

	// 播放清單
	mux.HandleFunc("POST /playlists", wrap(h.postPlaylist))
	mux.HandleFunc("GET /playlists", wrap(h.getPlaylists))
	mux.HandleFunc("DELETE /playlists/{id}", wrap(h.deletePlaylist))
	mux.HandleFunc("POST /playlists/{id}/songs", wrap(h.postPlaylistSong))
	mux.HandleFunc("GET /playlists/{id}/songs", wrap(h.getPlaylistSongs))
	mux.HandleFunc("DELETE /playlists/{id}/songs", wrap(h.deletePlaylistSong))

	// 匯出
	mux.HandleFunc("POST /export/playlists/{id}", wrap(h.postExportPlaylist))

	// 健康檢查
	mux.HandleFunc("GET /health", wrap(h.health))
	mux.HandleFunc("GET /ready", wrap(h.ready))

	return mux
}

// response 統一的 JSON 響應外層
type response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// 請求結構
type albumPayload struct {
	Name string `json:"name"`
	Year int    `json:"year"`
}

type coverPayload struct {
	CoverURL string `json:"coverUrl"`
}

type playlistPayload struct {
	Name string `json:"name"`
}

type playlistSongPayload struct {
	SongID string `json:"songId"`
}

type exportPayload struct {
	TargetEmail string `json:"targetEmail"`
}

// postAlbum 新增專輯
func (h *Handler) postAlbum(w http.ResponseWriter, r *http.Request) {
	var p albumPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Name == "" || p.Year == 0 {
		h.respondFail(w, "name and year are required", http.StatusBadRequest)
		return
	}

	albumID, err := h.albums.AddAlbum(r.Context(), p.Name, p.Year)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, response{
		Status: "success",
		Data:   map[string]string{"albumId": albumID},
	})
}

// getAlbum 取得專輯與其歌曲
func (h *Handler) getAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := h.albums.GetAlbumByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Status: "success",
		Data:   map[string]any{"album": album},
	})
}

// putAlbum 更新專輯
func (h *Handler) putAlbum(w http.ResponseWriter, r *http.Request) {
	var p albumPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Name == "" || p.Year == 0 {
		h.respondFail(w, "name and year are required", http.StatusBadRequest)
		return
	}

	if err := h.albums.EditAlbumByID(r.Context(), r.PathValue("id"), p.Name, p.Year); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: "album updated",
	})
}

// deleteAlbum 刪除專輯
func (h *Handler) deleteAlbum(w http.ResponseWriter, r *http.Request) {
	if err := h.albums.DeleteAlbumByID(r.Context(), r.PathValue("id")); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: "album deleted",
	})
}

// postAlbumCover 更新專輯封面網址
//
// 檔案本身由上游的上傳服務存放，這裡只記錄最終網址。
func (h *Handler) postAlbumCover(w http.ResponseWriter, r *http.Request) {
	var p coverPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.CoverURL == "" {
		h.respondFail(w, "coverUrl is required", http.StatusBadRequest)
		return
	}

	if err := h.albums.UpdateAlbumCover(r.Context(), r.PathValue("id"), p.CoverURL); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, response{
		Status:  "success",
		Message: "album cover updated",
	})
}

// postAlbumLike 按讚專輯
func (h *Handler) postAlbumLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.credential(w, r)
	if !ok {
		return
	}

	if _, err := h.albums.AddLike(r.Context(), r.PathValue("id"), userID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, response{
		Status:  "success",
		Message: "album liked",
	})
}

// deleteAlbumLike 取消按讚專輯
func (h *Handler) deleteAlbumLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.credential(w, r)
	if !ok {
		return
	}

	if err := h.albums.RemoveLike(r.Context(), r.PathValue("id"), userID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: "like removed",
	})
}

// getAlbumLikes 取得專輯按讚數
//
// X-Data-Source 標頭標記計數來源（cache 或 database），
// 供監控快取命中率使用。
func (h *Handler) getAlbumLikes(w http.ResponseWriter, r *http.Request) {
	count, source, err := h.albums.LikeCount(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("X-Data-Source", string(source))
	h.respondJSON(w, http.StatusOK, response{
		Status: "success",
		Data:   map[string]any{"likes": count, "source": source},
	})
}

// postSong 新增歌曲
func (h *Handler) postSong(w http.ResponseWriter, r *http.Request) {
	var p SongInput
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Title == "" || p.Performer == "" {
		h.respondFail(w, "title and performer are required", http.StatusBadRequest)
		return
	}

	songID, err := h.songs.AddSong(r.Context(), p)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, response{
		Status: "success",
		Data:   map[string]string{"songId": songID},
	})
}

// getSongs 取得歌曲列表
func (h *Handler) getSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songs.ListSongs(r.Context(),
		r.URL.Query().Get("title"),
		r.URL.Query().Get("performer"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Status: "success",
		Data:   map[string]any{"songs": songs},
	})
}

// getSong 取得單一歌曲
func (h *Handler) getSong(w http.ResponseWriter, r *http.Request) {
	song, err := h.songs.GetSongByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Status: "success",
		Data:   map[string]any{"song": song},
	})
}

// putSong 更新歌曲
func (h *Handler) putSong(w http.ResponseWriter, r *http.Request) {
	var p SongInput
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Title == "" || p.Performer == "" {
		h.respondFail(w, "title and performer are required", http.StatusBadRequest)
		return
	}

	if err := h.songs.EditSongByID(r.Context(), r.PathValue("id"), p); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: "song updated",
	})
}

// deleteSong 刪除歌曲
func (h *Handler) deleteSong(w http.ResponseWriter, r *http.Request) {
	if err := h.songs.DeleteSongByID(r.Context(), r.PathValue("id")); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: "song deleted",
	})
}

// postPlaylist 新增播放清單
func (h *Handler) postPlaylist(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.credential(w, r)
	if !ok {
		return
	}

	var p playlistPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Name == "" {
		h.respondFail(w, "name is required", http.StatusBadRequest)
		return
	}

	playlistID, err := h.playlists.AddPlaylist(r.Context(), p.Name, userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, response{
		Status: "success",
		Data:   map[string]string{"playlistId": playlistID},
	})
}

// getPlaylists 取得使用者擁有的播放清單
func (h *Handler) getPlaylists(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.credential(w, r)
	if !ok {
		return
	}

	playlists, err := h.playlists.GetPlaylists(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Status: "success",
		Data:   map[string]any{"playlists": playlists},
	})
}

// deletePlaylist 刪除播放清單（僅限擁有者）
func (h *Handler) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.credential(w, r)
	if !ok {
		return
	}

	playlistID := r.PathValue("id")

	if err := h.playlists.VerifyOwner(r.Context(), playlistID, userID); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.playlists.DeletePlaylistByID(r.Context(), playlistID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: "playlist deleted",
	})
}

// postPlaylistSong 把歌曲加入播放清單（僅限擁有者）
func (h *Handler) postPlaylistSong(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.credential(w, r)
	if !ok {
		return
	}

	var p playlistSongPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.SongID == "" {
		h.respondFail(w, "songId is required", http.StatusBadRequest)
		return
	}

	playlistID := r.PathValue("id")

	if err := h.playlists.VerifyOwner(r.Context(), playlistID, userID); err != nil {
		h.respondError(w, r, err)
		return
	}

	if _, err := h.playlists.AddSong(r.Context(), playlistID, p.SongID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, response{
		Status:  "success",
		Message: "song added to playlist",
	})
}

// getPlaylistSongs 取得播放清單與其歌曲（僅限擁有者）
func (h *Handler) getPlaylistSongs(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.credential(w, r)
	if !ok {
		return
	}

	playlistID := r.PathValue("id")

	if err := h.playlists.VerifyOwner(r.Context(), playlistID, userID); err != nil {
		h.respondError(w, r, err)
		return
	}

	playlist, err := h.playlists.Songs(r.Context(), playlistID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Status: "success",
		Data:   map[string]any{"playlist": playlist},
	})
}

// deletePlaylistSong 把歌曲移出播放清單（僅限擁有者）
func (h *Handler) deletePlaylistSong(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.credential(w, r)
	if !ok {
		return
	}

	var p playlistSongPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.SongID == "" {
		h.respondFail(w, "songId is required", http.StatusBadRequest)
		return
	}

	playlistID := r.PathValue("id")

	if err := h.playlists.VerifyOwner(r.Context(), playlistID, userID); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.playlists.RemoveSong(r.Context(), playlistID, p.SongID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: "song removed from playlist",
	})
}

// postExportPlaylist 請求匯出播放清單（僅限擁有者）
func (h *Handler) postExportPlaylist(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.credential(w, r)
	if !ok {
		return
	}

	var p exportPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.TargetEmail == "" {
		h.respondFail(w, "targetEmail is required", http.StatusBadRequest)
		return
	}

	if err := h.exports.RequestExport(r.Context(), r.PathValue("id"), userID, p.TargetEmail); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, response{
		Status:  "success",
		Message: "export request is being processed",
	})
}

// health 健康檢查
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// ready 就緒檢查
func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if h.readiness != nil {
		if err := h.readiness(r.Context()); err != nil {
			h.respondFail(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "Ready")
}

// credential 取出上游驗證後的使用者 ID
func (h *Handler) credential(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		h.respondFail(w, "missing credentials", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// statusFromError 把錯誤種類對應到 HTTP 狀態碼
func statusFromError(err error) int {
	switch {
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case apperrors.IsInvariant(err), apperrors.IsInvalidInput(err):
		return http.StatusBadRequest
	case apperrors.IsForbidden(err):
		return http.StatusForbidden
	case apperrors.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError 把服務層錯誤轉成 JSON 響應
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)

	// 基礎設施錯誤要留紀錄，業務錯誤不需要
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
	}

	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	h.respondFail(w, message, status)
}

// loggerMiddleware 記錄請求日誌
func (h *Handler) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 包裝 ResponseWriter 以捕獲狀態碼
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next(ww, r)

		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	}
}

// recoverer 恢復 panic
func (h *Handler) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("panic recovered", "error", err)
				h.respondFail(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) respondFail(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(response{
		Status:  "fail",
		Message: message,
	}); err != nil {
		h.logger.Error("failed to encode error response", "error", err, "message", message)
	}
}

// responseWriter 包裝以捕獲狀態碼
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
		w.ResponseWriter.WriteHeader(code)
	}
}
