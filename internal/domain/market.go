package domain

import "time"

// TrendingCoin is one entry of the upstream trending feed, reshaped.
type TrendingCoin struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank int    `json:"marketCapRank"`
	Thumb         string `json:"thumb"`
}

// MarketCoin is one row of the markets listing.
type MarketCoin struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	Image                    string  `json:"image"`
	CurrentPrice             float64 `json:"currentPrice"`
	MarketCap                float64 `json:"marketCap"`
	MarketCapRank            int     `json:"marketCapRank"`
	PriceChangePercentage24h float64 `json:"priceChangePercentage24h"`
	TotalVolume              float64 `json:"totalVolume"`
}

// CoinDetail is the reshaped per-coin detail payload.
type CoinDetail struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Image        string  `json:"image"`
	CurrentPrice float64 `json:"currentPrice"`
	MarketCap    float64 `json:"marketCap"`
	High24h      float64 `json:"high24h"`
	Low24h       float64 `json:"low24h"`
}

// SearchResult is one coin entry of the upstream search response.
type SearchResult struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank int    `json:"marketCapRank"`
	Thumb         string `json:"thumb"`
}

// MarketEnvelope wraps a market payload with cache metadata so clients
// can self-throttle refresh polling.
type MarketEnvelope struct {
	Data        interface{} `json:"data"`
	LastUpdated time.Time   `json:"lastUpdated"`
	CacheExpiry int         `json:"cacheExpiry"` // seconds
}

// PriceSnapshotModel records an observed coin price, written back
// opportunistically whenever market data passes through the gateway.
type PriceSnapshotModel struct {
	ID         uint      `gorm:"primaryKey"`
	CoinID     string    `gorm:"type:varchar(100);index;not null"`
	VsCurrency string    `gorm:"type:varchar(10);not null"`
	Price      float64   `gorm:"not null"`
	ObservedAt time.Time `gorm:"index;autoCreateTime"`
}

// TableName specifies the table name for PriceSnapshotModel.
func (PriceSnapshotModel) TableName() string {
	return "price_snapshots"
}
