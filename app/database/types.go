package database

// TimestampLayout is the layout of every scraped_at value this service writes.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// LinkRecord is one stored listing as it appears on disk.
type LinkRecord struct {
	URL         string   `json:"url"`
	ScrapedAt   string   `json:"scraped_at"`
	AgencyNames []string `json:"makler_names"`
}

// Snapshot is the complete persisted state: every record in insertion order
// and the blacklist of already processed URLs.
type Snapshot struct {
	Links     []LinkRecord
	Blacklist []string
}
