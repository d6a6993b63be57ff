package models

// StatisticsRecord is one row of the rt_stats cache, unique per
// (complex_id, area_bucket, window_days). It is fully replaced on every
// aggregation run and is never a source of truth.
type StatisticsRecord struct {
	BuildingID  string `json:"complex_id"`
	AreaBucket  string `json:"area_bucket"`
	WindowDays  int    `json:"window_days"`
	MedianWon   int64  `json:"median_won"`
	Count       int    `json:"count"`
	IQRWon      int64  `json:"iqr_won"`
	LastUpdated string `json:"last_updated"`
}

// ComplexStats is the trimmed view handed to valuation consumers.
type ComplexStats struct {
	Median float64 `json:"median"`
	Count  int     `json:"count"`
	IQR    float64 `json:"iqr"`
}

// MonthlyTrend is one point of the market trend series (mean price and
// trade count per calendar month).
type MonthlyTrend struct {
	Month   string  `json:"date"`
	MeanWon float64 `json:"mean"`
	Count   int     `json:"count"`
}

// RecentTrade is a transaction row joined with its building name, as served
// by the recent-trades endpoint.
type RecentTrade struct {
	ComplexName string  `json:"complex_name"`
	Locality    string  `json:"dong"`
	TradeDate   string  `json:"trade_date"`
	AreaSqm     float64 `json:"area_sqm"`
	Floor       int     `json:"floor"`
	PriceWon    int64   `json:"price_won"`
}
