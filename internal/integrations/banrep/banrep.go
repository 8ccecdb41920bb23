// Package banrep pulls the central bank's published reference rate. The
// registry of yearly lending rates is maintained by administrators; this feed
// only produces a suggested figure for them to review.
package banrep

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/coopfin/loan-service/internal/config"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Client handles integration with the central bank rate feed
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new feed client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.BanRepURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// fetch retrieves the raw XML document for a year's reference rate series.
func (c *Client) fetch(year int) ([]byte, error) {
	url := fmt.Sprintf("%s/referenceRate?year=%d", c.url, year)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	c.log.Debugf("Rate feed XML response: %s", string(body))
	return body, nil
}

// parseAnnualRate extracts the latest published annual effective rate from
// the feed document. Values are percentages, e.g. 13.25.
func (c *Client) parseAnnualRate(rawBody []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %v", err)
	}

	observations := doc.FindElements("//series/observation")
	if len(observations) == 0 {
		return 0, fmt.Errorf("no rate observations found in XML")
	}

	latest := observations[len(observations)-1]
	valueElement := latest.FindElement("./value")
	if valueElement == nil {
		return 0, fmt.Errorf("value element not found in XML")
	}

	var rate float64
	if _, err := fmt.Sscanf(valueElement.Text(), "%f", &rate); err != nil {
		return 0, fmt.Errorf("failed to parse rate: %v", err)
	}

	return rate, nil
}

// SuggestedMonthlyRate converts the latest annual effective reference rate
// for a year, plus the cooperative's margin, into the monthly rate figure an
// administrator would register for that year.
func (c *Client) SuggestedMonthlyRate(year int) (decimal.Decimal, error) {
	body, err := c.fetch(year)
	if err != nil {
		return decimal.Zero, err
	}

	annualPct, err := c.parseAnnualRate(body)
	if err != nil {
		return decimal.Zero, err
	}

	// Cooperative margin over the reference rate.
	const marginPct = 4.0
	annual := (annualPct + marginPct) / 100.0

	// Effective annual to effective monthly.
	monthly := math.Pow(1+annual, 1.0/12.0) - 1
	suggested := decimal.NewFromFloat(monthly).Round(6)

	c.log.Infof("Suggested monthly rate for %d: %s (reference %.2f%% + %.2f%% margin)",
		year, suggested, annualPct, marginPct)
	return suggested, nil
}
