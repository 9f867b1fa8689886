package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/coinhatch/coinhatch/internal/config"
	"github.com/coinhatch/coinhatch/internal/domain"
)

// Client calls the upstream market-data provider (CoinGecko-shaped
// REST API) with an explicit request timeout.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an upstream client from config.
func NewClient(cfg config.MarketConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type trendingResponse struct {
	Coins []struct {
		Item struct {
			ID            string `json:"id"`
			Symbol        string `json:"symbol"`
			Name          string `json:"name"`
			MarketCapRank int    `json:"market_cap_rank"`
			Thumb         string `json:"thumb"`
		} `json:"item"`
	} `json:"coins"`
}

type marketRow struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	Image                    string  `json:"image"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	MarketCapRank            int     `json:"market_cap_rank"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	TotalVolume              float64 `json:"total_volume"`
}

type detailResponse struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description struct {
		En string `json:"en"`
	} `json:"description"`
	Image struct {
		Large string `json:"large"`
	} `json:"image"`
	MarketData struct {
		CurrentPrice map[string]float64 `json:"current_price"`
		MarketCap    map[string]float64 `json:"market_cap"`
		High24h      map[string]float64 `json:"high_24h"`
		Low24h       map[string]float64 `json:"low_24h"`
	} `json:"market_data"`
}

type searchResponse struct {
	Coins []struct {
		ID            string `json:"id"`
		Symbol        string `json:"symbol"`
		Name          string `json:"name"`
		MarketCapRank int    `json:"market_cap_rank"`
		Thumb         string `json:"thumb"`
	} `json:"coins"`
}

// Trending fetches the upstream trending feed.
func (c *Client) Trending(ctx context.Context) ([]domain.TrendingCoin, error) {
	var resp trendingResponse
	if err := c.get(ctx, "/search/trending", nil, &resp); err != nil {
		return nil, err
	}

	coins := make([]domain.TrendingCoin, 0, len(resp.Coins))
	for _, entry := range resp.Coins {
		coins = append(coins, domain.TrendingCoin{
			ID:            entry.Item.ID,
			Symbol:        entry.Item.Symbol,
			Name:          entry.Item.Name,
			MarketCapRank: entry.Item.MarketCapRank,
			Thumb:         entry.Item.Thumb,
		})
	}
	return coins, nil
}

// Markets fetches the paginated markets listing.
func (c *Client) Markets(ctx context.Context, ids []string, vsCurrency string, page, perPage int) ([]domain.MarketCoin, error) {
	params := url.Values{}
	params.Set("vs_currency", vsCurrency)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("order", "market_cap_desc")
	if len(ids) > 0 {
		params.Set("ids", strings.Join(ids, ","))
	}

	var rows []marketRow
	if err := c.get(ctx, "/coins/markets", params, &rows); err != nil {
		return nil, err
	}

	coins := make([]domain.MarketCoin, 0, len(rows))
	for _, row := range rows {
		coins = append(coins, domain.MarketCoin(row))
	}
	return coins, nil
}

// Detail fetches one coin's detail payload.
func (c *Client) Detail(ctx context.Context, coinID, vsCurrency string) (*domain.CoinDetail, error) {
	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")

	var resp detailResponse
	if err := c.get(ctx, "/coins/"+url.PathEscape(coinID), params, &resp); err != nil {
		return nil, err
	}

	return &domain.CoinDetail{
		ID:           resp.ID,
		Symbol:       resp.Symbol,
		Name:         resp.Name,
		Description:  resp.Description.En,
		Image:        resp.Image.Large,
		CurrentPrice: resp.MarketData.CurrentPrice[vsCurrency],
		MarketCap:    resp.MarketData.MarketCap[vsCurrency],
		High24h:      resp.MarketData.High24h[vsCurrency],
		Low24h:       resp.MarketData.Low24h[vsCurrency],
	}, nil
}

// Search fetches coin search results for a free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)

	var resp searchResponse
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(resp.Coins))
	for _, coin := range resp.Coins {
		results = append(results, domain.SearchResult(coin))
	}
	return results, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrCoinNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: unexpected status %d", ErrUpstream, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
