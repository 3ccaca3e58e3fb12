// Package errors 提供應用程式錯誤處理
package errors

import (
	"errors"
	"fmt"
)

// 定義錯誤碼
//
// 錯誤碼是封閉集合，呼叫端以碼判斷錯誤種類，不比對訊息字串。
const (
	// ErrCodeNotFound 資源未找到
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeInvariant 業務規則違反（重複資料、預期變更影響零列）
	ErrCodeInvariant = "INVARIANT_VIOLATION"
	// ErrCodeForbidden 呼叫者不是資源擁有者
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeInvalidInput 無效輸入
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeUnavailable 基礎設施（快取、資料庫、訊息佇列）不可用
	ErrCodeUnavailable = "SERVICE_UNAVAILABLE"
	// ErrCodeInternal 內部錯誤
	ErrCodeInternal = "INTERNAL_ERROR"
)

// AppError 應用程式錯誤
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error 實現 error 介面
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 實現 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 實現 errors.Is
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 創建新的應用程式錯誤
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包裝錯誤
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails 添加詳細資訊
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// 預定義錯誤
var (
	// ErrAlbumNotFound 專輯未找到
	ErrAlbumNotFound = New(ErrCodeNotFound, "album not found")

	// ErrSongNotFound 歌曲未找到
	ErrSongNotFound = New(ErrCodeNotFound, "song not found")

	// ErrPlaylistNotFound 播放清單未找到
	ErrPlaylistNotFound = New(ErrCodeNotFound, "playlist not found")

	// ErrLikeNotFound 使用者尚未按讚此專輯
	ErrLikeNotFound = New(ErrCodeNotFound, "like not found")

	// ErrAlreadyLiked 使用者已按讚此專輯
	ErrAlreadyLiked = New(ErrCodeInvariant, "album already liked")

	// ErrDuplicateMembership 歌曲已在播放清單中
	ErrDuplicateMembership = New(ErrCodeInvariant, "song already in playlist")

	// ErrMembershipNotFound 播放清單中沒有此歌曲
	ErrMembershipNotFound = New(ErrCodeInvariant, "song not in playlist")

	// ErrNotOwner 呼叫者不是播放清單擁有者
	ErrNotOwner = New(ErrCodeForbidden, "not the resource owner")

	// ErrCacheUnavailable 快取服務不可用
	ErrCacheUnavailable = New(ErrCodeUnavailable, "cache service unavailable")

	// ErrDatabaseUnavailable 資料庫不可用
	ErrDatabaseUnavailable = New(ErrCodeUnavailable, "database service unavailable")

	// ErrBrokerUnavailable 訊息佇列不可用
	ErrBrokerUnavailable = New(ErrCodeUnavailable, "message broker unavailable")
)

// IsNotFound 檢查是否為未找到錯誤
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeNotFound
	}
	return false
}

// IsInvariant 檢查是否為業務規則違反錯誤
func IsInvariant(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeInvariant
	}
	return false
}

// IsForbidden 檢查是否為授權錯誤
func IsForbidden(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeForbidden
	}
	return false
}

// IsInvalidInput 檢查是否為無效輸入錯誤
func IsInvalidInput(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeInvalidInput
	}
	return false
}

// IsUnavailable 檢查是否為基礎設施錯誤
func IsUnavailable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeUnavailable
	}
	return false
}
