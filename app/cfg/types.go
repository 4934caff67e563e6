package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	Port         string
	CatalogFile  string
	WorkerCount  int
	GenerateAt   string
	SweepDaily   bool
	APIAccessKey string
	HTTPTimeout  int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
