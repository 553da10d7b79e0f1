package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// marketsResponse is the CLOB /markets page shape
type marketsResponse struct {
	Data       []Market `json:"data"`
	NextCursor string   `json:"next_cursor"`
}

// Discovery fetches tradable markets from the CLOB REST API
type Discovery struct {
	baseURL    string
	httpClient *http.Client
}

// NewDiscovery creates a discovery client
func NewDiscovery(baseURL string) *Discovery {
	return &Discovery{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Run fetches active markets once and registers the tradable crypto ones.
// Discovery failures are logged and skipped, never fatal.
func (d *Discovery) Run(ctx context.Context, table *Table) error {
	url := fmt.Sprintf("%s/markets?active=true&limit=100", d.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch markets: unexpected status %d", resp.StatusCode)
	}

	var page marketsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return fmt.Errorf("parse markets response: %w", err)
	}

	count := 0
	for i := range page.Data {
		m := page.Data[i]
		if !m.Tradable() || !m.IsCrypto() {
			continue
		}
		table.Add(&m)
		count++
	}

	log.Info().
		Int("discovered", count).
		Int("scanned", len(page.Data)).
		Msg("Market discovery complete")

	return nil
}
