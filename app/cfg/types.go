package cfg

import (
	"path/filepath"
	"time"
)

type Cfg struct {
	// Storage configuration
	DataDir       string
	Storage       string
	LinksFile     string
	BlacklistFile string
	DBFile        string
	AgenciesFile  string

	// Crawl configuration
	SiteURL         string
	WorkerCount     int
	MaxPages        int
	RequestTimeout  time.Duration
	PolitenessDelay time.Duration

	// Application configuration
	Port              string
	BaseUrl           string
	SchedulerInterval int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

// Path resolves name against DataDir unless it is already absolute.
func (c *Cfg) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func (c *Cfg) LinksPath() string {
	return c.Path(c.LinksFile)
}

func (c *Cfg) BlacklistPath() string {
	return c.Path(c.BlacklistFile)
}

func (c *Cfg) DBPath() string {
	return c.Path(c.DBFile)
}

func (c *Cfg) AgenciesPath() string {
	return c.Path(c.AgenciesFile)
}
