package stats

import (
	"strings"

	"molit/server/config"
	"molit/server/internal/database"
	"molit/server/internal/models"
)

// Service is the read-only lookup interface handed to valuation consumers.
// It never mutates state and is safe to call while an aggregation run is
// replacing the cache.
type Service struct {
	db     *database.Database
	config *config.Config
}

func NewService(db *database.Database, cfg *config.Config) *Service {
	return &Service{db: db, config: cfg}
}

// Lookup resolves a building by contains-match on its name, converts the
// area to the aggregator's bucket label and reads the cached statistics.
// Returns nil when the building or its bucket has no cached entry.
func (s *Service) Lookup(nameQuery string, areaSqm float64) (*models.ComplexStats, error) {
	nameQuery = strings.TrimSpace(nameQuery)
	if nameQuery == "" {
		return nil, nil
	}

	building, err := s.db.FindBuildingByName(nameQuery)
	if err != nil {
		return nil, err
	}
	if building == nil {
		return nil, nil
	}

	if areaSqm <= 0 {
		areaSqm = 84.0
	}
	bucket := BucketLabel(areaSqm, s.config.Stats.BucketTolerance)

	return s.db.GetStats(building.ID, bucket, s.config.Stats.WindowDays)
}
