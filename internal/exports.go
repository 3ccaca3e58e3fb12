package internal

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	apperrors "github.com/koopa0/openmusic/pkg/errors"
)

// Publisher 訊息發佈介面
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher 以 NATS 連線實現 Publisher
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher 創建 NATS 發佈者
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// Publish 發佈訊息
func (p *NATSPublisher) Publish(subject string, data []byte) error {
	return p.conn.Publish(subject, data)
}

// ExportService 播放清單匯出請求服務
//
// 只負責把請求交給訊息佇列，匯出本身由獨立的 consumer 處理。
type ExportService struct {
	publisher Publisher
	playlists *PlaylistService
	subject   string
	logger    *slog.Logger
}

// NewExportService 創建匯出服務
func NewExportService(publisher Publisher, playlists *PlaylistService, subject string, logger *slog.Logger) *ExportService {
	return &ExportService{
		publisher: publisher,
		playlists: playlists,
		subject:   subject,
		logger:    logger,
	}
}

// exportMessage 匯出請求訊息
type exportMessage struct {
	PlaylistID  string `json:"playlistId"`
	TargetEmail string `json:"targetEmail"`
}

// RequestExport 請求匯出播放清單
//
// 只有擁有者可以匯出，驗證通過後才發佈訊息。
func (s *ExportService) RequestExport(ctx context.Context, playlistID, userID, targetEmail string) error {
	if err := s.playlists.VerifyOwner(ctx, playlistID, userID); err != nil {
		return err
	}

	payload, err := json.Marshal(exportMessage{
		PlaylistID:  playlistID,
		TargetEmail: targetEmail,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to encode export message")
	}

	if err := s.publisher.Publish(s.subject, payload); err != nil {
		s.logger.Error("failed to publish export request",
			"playlist_id", playlistID,
			"subject", s.subject,
			"error", err)
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to publish export request")
	}

	s.logger.Info("export request queued", "playlist_id", playlistID, "subject", s.subject)
	return nil
}
