package models

// Building is one apartment/officetel complex (complex_master table).
// The ID is derived deterministically from the normalized display name, so
// the same name always resolves to the same row across files and runs.
type Building struct {
	ID       string `json:"complex_id" gorm:"column:complex_id;primaryKey"`
	Name     string `json:"complex_name" gorm:"column:complex_name;not null"`
	Locality string `json:"dong" gorm:"column:dong"`
}

func (Building) TableName() string { return "complex_master" }

// Transaction is a single normalized trade row. Rows are append-only;
// duplicate real-world sales across source files are tolerated by design.
type Transaction struct {
	ID         int64   `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	BuildingID string  `json:"complex_id" gorm:"column:complex_id;not null"`
	TradeDate  string  `json:"trade_date" gorm:"column:trade_date;not null"`
	AreaSqm    float64 `json:"area_sqm" gorm:"column:area_sqm;not null"`
	Floor      int     `json:"floor" gorm:"column:floor"`
	PriceWon   int64   `json:"price_won" gorm:"column:price_won;not null"`
}

func (Transaction) TableName() string { return "transactions" }

// IngestedFile records a source file's content hash once all of its rows
// have been committed. Presence of a hash means the file is fully ingested.
type IngestedFile struct {
	SHA256     string `json:"sha256" gorm:"column:sha256;primaryKey"`
	FilePath   string `json:"file_path" gorm:"column:file_path"`
	IngestedAt string `json:"ingested_at" gorm:"column:ingested_at;not null"`
}

func (IngestedFile) TableName() string { return "ingested_files" }
