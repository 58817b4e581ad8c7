package services

import (
	"context"

	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/cartepays/internal/logger"
)

// DefaultQRSize is the QR image side in pixels
const DefaultQRSize = 256

// ShareService produces links and QR codes pointing at the map page
type ShareService struct {
	log      logger.Logger
	settings SettingsServicer
}

// NewShareService creates a new ShareService
func NewShareService(log logger.Logger, settings SettingsServicer) *ShareService {
	return &ShareService{log: log, settings: settings}
}

// PageURL returns the public URL of the map page
func (s *ShareService) PageURL(ctx context.Context) (string, error) {
	baseURL, err := s.settings.GetBaseURL(ctx)
	if err != nil {
		return "", err
	}
	if baseURL == "" {
		return "", ErrBaseURLNotConfigured
	}
	return baseURL + "/", nil
}

// QRCode encodes the page URL as a PNG. Zero size means DefaultQRSize.
func (s *ShareService) QRCode(ctx context.Context, size int) ([]byte, error) {
	if size == 0 {
		size = DefaultQRSize
	}
	if size < 64 || size > 1024 {
		return nil, ErrInvalidQRSize
	}
	pageURL, err := s.PageURL(ctx)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(pageURL, qrcode.Medium, size)
}
