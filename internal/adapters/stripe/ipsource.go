package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gobill/billing-service/internal/domain/ports"
	apperrors "github.com/gobill/billing-service/pkg/errors"
)

// WebhookIPsURL is Stripe's published list of webhook source addresses.
const WebhookIPsURL = "https://stripe.com/files/ips/ips_webhooks.json"

// IPSource fetches the published webhook source address list.
type IPSource struct {
	url    string
	client *http.Client
}

var _ ports.WebhookIPSource = (*IPSource)(nil)

func NewIPSource(httpClient *http.Client) *IPSource {
	return &IPSource{url: WebhookIPsURL, client: httpClient}
}

func (s *IPSource) WebhookSourceIPs(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.WrapGateway("WEBHOOK_IPS_FETCH", "fetching webhook source addresses", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.WrapGateway("WEBHOOK_IPS_FETCH",
			"fetching webhook source addresses",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var payload struct {
		Webhooks []string `json:"WEBHOOKS"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.WrapGateway("WEBHOOK_IPS_PARSE", "decoding webhook source addresses", err)
	}
	return payload.Webhooks, nil
}
