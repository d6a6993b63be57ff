package normalize

import (
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
	"time"

	"molit/server/config"
	"molit/server/internal/models"
	"molit/server/internal/sniffer"
)

const (
	// Fallback when the area field carries no numeric token; 84㎡ is the
	// common "national size" unit.
	defaultAreaSqm = 84.0

	defaultLocality = "대치동"
)

// ErrSkipRow marks a row that must be dropped without failing the file.
var ErrSkipRow = errors.New("row skipped")

var (
	numberPattern  = regexp.MustCompile(`\d+\.?\d*`)
	leadingNumber  = regexp.MustCompile(`^-?\d+\.?\d*`)
	yearMonthDigit = regexp.MustCompile(`^\d{6}`)
)

// BuildingID derives a deterministic id from a normalized display name, so
// the same name maps to the same building record across files and runs.
func BuildingID(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	return fmt.Sprintf("CMPX_%06d", h.Sum32()%1000000)
}

// Name trims the raw name cell. Names shorter than 2 runes are blank or
// merged spreadsheet cells and cause the row to be skipped.
func Name(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || name == "nan" || len([]rune(name)) < 2 {
		return "", ErrSkipRow
	}
	return name, nil
}

// Price strips thousands separators and quotes, then parses the leading
// numeric token as an integer. No currency-unit conversion happens here:
// the value is stored as the sheets carry it, in units of 10,000 KRW.
func Price(raw string) (int64, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(raw, ",", ""), `"`, ""))
	if cleaned == "" || cleaned == "nan" {
		return 0, ErrSkipRow
	}
	token := leadingNumber.FindString(cleaned)
	if token == "" {
		return 0, ErrSkipRow
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil || f <= 0 {
		return 0, ErrSkipRow
	}
	return int64(f), nil
}

// Area extracts the first decimal token from the area cell, defaulting to
// 84.0 rather than rejecting the row.
func Area(raw string) float64 {
	cleaned := strings.ReplaceAll(raw, ",", "")
	token := numberPattern.FindString(cleaned)
	if token == "" {
		return defaultAreaSqm
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil || f <= 0 {
		return defaultAreaSqm
	}
	return f
}

// TradeDate combines a 6-digit year-month token with a zero-padded day
// (default "01") into an ISO date. A malformed year-month falls back to the
// processing date.
func TradeDate(yearMonth, day string, now time.Time) string {
	ym := strings.TrimSpace(yearMonth)
	if !yearMonthDigit.MatchString(ym) {
		return now.Format("2006-01-02")
	}

	d := strings.TrimSpace(day)
	if _, err := strconv.Atoi(d); err != nil || d == "" {
		d = "01"
	} else if len(d) < 2 {
		d = "0" + d
	}
	return fmt.Sprintf("%s-%s-%s", ym[:4], ym[4:6], d[:2])
}

// Floor parses an optional floor cell, defaulting to 0.
func Floor(raw string) int {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// Locality keeps the last whitespace-separated token of the locality cell
// ("서울특별시 강남구 대치동" becomes "대치동").
func Locality(raw string) string {
	parts := strings.Fields(strings.TrimSpace(raw))
	if len(parts) == 0 {
		return defaultLocality
	}
	return parts[len(parts)-1]
}

// Row converts one raw table row into a building and a transaction. Any
// normalization failure returns the row-skip sentinel; one malformed row
// must never abort an otherwise-good file.
func Row(t *sniffer.Table, row []string, now time.Time) (*models.Building, *models.Transaction, error) {
	name, err := Name(t.Value(row, config.FieldName))
	if err != nil {
		return nil, nil, err
	}

	price, err := Price(t.Value(row, config.FieldPrice))
	if err != nil {
		return nil, nil, err
	}

	building := &models.Building{
		ID:       BuildingID(name),
		Name:     name,
		Locality: Locality(t.Value(row, config.FieldLocality)),
	}

	tx := &models.Transaction{
		BuildingID: building.ID,
		TradeDate:  TradeDate(t.Value(row, config.FieldYearMonth), t.Value(row, config.FieldDay), now),
		AreaSqm:    Area(t.Value(row, config.FieldArea)),
		Floor:      Floor(t.Value(row, config.FieldFloor)),
		PriceWon:   price,
	}

	return building, tx, nil
}
