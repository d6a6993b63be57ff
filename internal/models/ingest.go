package models

// ParsedFile is the unit that travels from the sniffer/normalizer to the
// committer: every valid row of one source file plus its content hash.
// Either the whole unit commits (ledger entry included) or none of it does.
type ParsedFile struct {
	Path         string
	Hash         string
	Buildings    []*Building
	Transactions []*Transaction
	SkippedRows  int
}

// FileResult reports the commit outcome for a single parsed file.
type FileResult struct {
	Path        string
	Hash        string
	Rows        int
	SkippedRows int
	Err         error
}

// RunSummary is the one artifact a batch run exposes to operational
// tooling. Error strings are formatted "<filename>: <reason>".
type RunSummary struct {
	Ingested    int      `json:"ingested"`
	Skipped     int      `json:"skipped"`
	TotalRows   int      `json:"total_rows"`
	SkippedRows int      `json:"skipped_rows"`
	Errors      []string `json:"errors"`
}
