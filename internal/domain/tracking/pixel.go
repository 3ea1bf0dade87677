// internal/domain/tracking/pixel.go
package tracking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
)

// Pixel forwards tracked events to the external ad-pixel endpoint
type Pixel struct {
	endpoint string
	pixelID  string
	client   *http.Client
	log      *logrus.Logger
}

// NewPixel creates the pixel forwarder from configuration
func NewPixel(cfg *config.Config, logger *logrus.Logger) *Pixel {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pixel{
		endpoint: cfg.Pixel.Endpoint,
		pixelID:  cfg.Pixel.ID,
		client:   &http.Client{Timeout: cfg.Pixel.Timeout},
		log:      logger,
	}
}

type pixelEvent struct {
	PixelID string `json:"pixel_id,omitempty"`
	Event   string `json:"event"`
	Params  Params `json:"params"`
}

// Sink returns the delivery function for the deduper, or nil when no
// endpoint is configured. A nil sink is the expected state without consent
// or with an ad-blocker; cart functionality is unaffected either way.
func (p *Pixel) Sink() Sink {
	if p.endpoint == "" {
		return nil
	}

	return func(event string, params Params) error {
		body, err := json.Marshal(pixelEvent{
			PixelID: p.pixelID,
			Event:   event,
			Params:  params,
		})
		if err != nil {
			return fmt.Errorf("failed to encode pixel event: %w", err)
		}

		resp, err := p.client.Post(p.endpoint, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to deliver pixel event: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("pixel endpoint rejected event: %s", resp.Status)
		}

		return nil
	}
}
