package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// GatewayPublisher pushes events to an external push gateway over HTTP.
// Used instead of the in-process Hub when the API runs multi-instance and
// socket connections live on a dedicated gateway.
type GatewayPublisher struct {
	client  *resty.Client
	baseURL string
}

// NewGatewayPublisher builds a publisher for the gateway at baseURL.
func NewGatewayPublisher(baseURL string) *GatewayPublisher {
	return &GatewayPublisher{
		client:  resty.New().SetTimeout(5 * time.Second),
		baseURL: baseURL,
	}
}

// Publish POSTs the event to the gateway's publish endpoint.
func (g *GatewayPublisher) Publish(userID uint, payload []byte) error {
	resp, err := g.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"user_id": userID,
			"payload": json.RawMessage(payload),
		}).
		Post(g.baseURL + "/publish")
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("push gateway returned %d", resp.StatusCode())
	}
	return nil
}
