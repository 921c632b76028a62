package config

import (
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/fipecrawler/internal/model"
)

// Endpoint names used as keys of api_endpoints.
const (
	EndpointTables  = "tabelas"
	EndpointBrands  = "marcas"
	EndpointModels  = "modelos"
	EndpointYears   = "ano_modelos"
	EndpointVehicle = "veiculo"
)

// RequiredEndpoints lists every endpoint the crawler calls.
var RequiredEndpoints = []string{
	EndpointTables,
	EndpointBrands,
	EndpointModels,
	EndpointYears,
	EndpointVehicle,
}

// Checkpoint backends.
const (
	CheckpointBackendFile   = "file"
	CheckpointBackendSQLite = "sqlite"
)

// Report formats.
const (
	ReportFormatText     = "text"
	ReportFormatMarkdown = "markdown"
	ReportFormatJSON     = "json"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "fipecrawler"

	// DefaultRateLimitCapacity is the token bucket burst size.
	DefaultRateLimitCapacity = 5

	// DefaultRateLimitRefill is the steady-state request rate in requests per second.
	DefaultRateLimitRefill = 1.0

	// DefaultTimeout is the per-request timeout. There is no timeout on a whole run.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxRetries is the number of retries after the first attempt,
	// so a request is tried up to DefaultMaxRetries+1 times.
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the fixed pause after a transport failure.
	DefaultRetryBackoff = 1 * time.Second

	// DefaultRetryAfter is used when a 429 response carries no usable Retry-After header.
	DefaultRetryAfter = 60 * time.Second

	// DefaultMaxRateLimitWait caps the total time one request may spend
	// honoring Retry-After before it is skipped.
	DefaultMaxRateLimitWait = 5 * time.Minute

	// DefaultCheckpointInterval persists the checkpoint every N processed leaves.
	DefaultCheckpointInterval = 50

	// DefaultMaxYear drops reference tables newer than this year.
	DefaultMaxYear = 2024

	// DefaultFuelFilter keeps only gasoline model-years.
	DefaultFuelFilter = "1"

	// DefaultMaxLeafFailures marks a leaf as permanently skipped after this many
	// runs in which its detail request returned nothing. Zero disables the marker.
	DefaultMaxLeafFailures = 3

	// DefaultCheckpointFile is the checkpoint file name inside the data directory.
	DefaultCheckpointFile = "fipe_checkpoint.cbor"
)

// DefaultCrawlVehicleTypes crawls cars only.
var DefaultCrawlVehicleTypes = []int{1}

// Config holds all configuration options for fipecrawler.
// File-backed fields carry yaml tags; run-time options set from CLI flags
// are tagged "-". The struct is passed through the application explicitly.
type Config struct {
	// APIEndpoints maps logical endpoint names (see RequiredEndpoints) to URLs.
	APIEndpoints map[string]string `yaml:"api_endpoints"`

	// DefaultHeaders are sent with every request (Referer, Origin, ...).
	DefaultHeaders map[string]string `yaml:"default_headers"`

	// UserAgents are rotated across requests. At least one is required.
	UserAgents []string `yaml:"user_agents"`

	// VehicleTypes maps vehicle type ids to the label sent as tipoVeiculo.
	VehicleTypes map[int]string `yaml:"vehicle_types"`

	// FuelTypes maps fuel codes to display names.
	FuelTypes map[int]string `yaml:"fuel_types"`

	// MonthMapping maps lower-case Portuguese month names to two digit numbers.
	MonthMapping map[string]string `yaml:"month_mapping"`

	// RateLimitCapacity is the token bucket burst size.
	RateLimitCapacity int `yaml:"rate_limit_capacity"`

	// RateLimitRefill is the bucket refill rate in tokens per second.
	RateLimitRefill float64 `yaml:"rate_limit_refill"`

	// Timeout is the per-request timeout.
	Timeout Duration `yaml:"timeout"`

	// MaxRetries is the number of retries after a transport failure.
	// A pointer distinguishes "absent" from an explicit zero.
	MaxRetries *int `yaml:"max_retries"`

	// RetryBackoff is the fixed pause between transport retries.
	RetryBackoff Duration `yaml:"retry_backoff"`

	// MaxRateLimitWait caps the cumulative Retry-After wait of one request.
	MaxRateLimitWait Duration `yaml:"max_rate_limit_wait"`

	// CheckpointInterval persists the checkpoint every N processed leaves.
	CheckpointInterval int `yaml:"checkpoint_interval"`

	// CheckpointBackend is "file" (default) or "sqlite".
	CheckpointBackend string `yaml:"checkpoint_backend"`

	// MaxYear drops reference tables newer than this year.
	MaxYear int `yaml:"max_year"`

	// FuelFilter is the only fuel code whose model-years are fetched.
	FuelFilter string `yaml:"fuel_filter"`

	// CrawlVehicleTypes are the vehicle type ids walked for every table.
	CrawlVehicleTypes []int `yaml:"crawl_vehicle_types"`

	// MaxLeafFailures marks a leaf as permanently skipped after this many
	// empty detail responses. Zero disables the marker.
	MaxLeafFailures *int `yaml:"max_leaf_failures"`

	// ProxyAddress routes requests through a SOCKS5 proxy ("host:port") when set.
	ProxyAddress string `yaml:"proxy_address"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"-"`

	// ConfigFilePath is the file the configuration was loaded from.
	ConfigFilePath string `yaml:"-"`

	// DataDir holds the checkpoint file and the SQLite database.
	// Defaults to the XDG data directory.
	DataDir string `yaml:"-"`

	// CheckpointPath overrides the checkpoint file location.
	CheckpointPath string `yaml:"-"`

	// Fresh ignores any existing checkpoint and starts a cold run.
	Fresh bool `yaml:"-"`

	// CSVPath, when set, appends every record to this CSV file.
	CSVPath string `yaml:"-"`

	// XLSXPath, when set, writes every record to this spreadsheet.
	XLSXPath string `yaml:"-"`

	// PostgresDSN, when set, also stores records in PostgreSQL.
	PostgresDSN string `yaml:"-"`

	// SaveToDB stores records and run history in the SQLite database.
	SaveToDB bool `yaml:"-"`

	// ReportFile, when set, receives the run summary instead of stdout.
	ReportFile string `yaml:"-"`

	// ReportFormat is text, markdown or json.
	ReportFormat string `yaml:"-"`
}

// NewConfig creates a Config with default values for every optional key.
// Required keys (endpoints, headers, user agents, type/fuel/month tables)
// have no sensible default and must come from the configuration file.
func NewConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills optional keys left unset by the file.
func (c *Config) applyDefaults() {
	if c.RateLimitCapacity == 0 {
		c.RateLimitCapacity = DefaultRateLimitCapacity
	}
	if c.RateLimitRefill == 0 {
		c.RateLimitRefill = DefaultRateLimitRefill
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	if c.MaxRetries == nil {
		n := DefaultMaxRetries
		c.MaxRetries = &n
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = Duration(DefaultRetryBackoff)
	}
	if c.MaxRateLimitWait == 0 {
		c.MaxRateLimitWait = Duration(DefaultMaxRateLimitWait)
	}
	if c.CheckpointInterval == 0 {
		c.CheckpointInterval = DefaultCheckpointInterval
	}
	if c.CheckpointBackend == "" {
		c.CheckpointBackend = CheckpointBackendFile
	}
	if c.MaxYear == 0 {
		c.MaxYear = DefaultMaxYear
	}
	if c.FuelFilter == "" {
		c.FuelFilter = DefaultFuelFilter
	}
	if len(c.CrawlVehicleTypes) == 0 {
		c.CrawlVehicleTypes = append([]int(nil), DefaultCrawlVehicleTypes...)
	}
	if c.MaxLeafFailures == nil {
		n := DefaultMaxLeafFailures
		c.MaxLeafFailures = &n
	}
	if c.ReportFormat == "" {
		c.ReportFormat = ReportFormatText
	}
}

// XDGDataDir returns the XDG data directory for fipecrawler.
// On Linux: ~/.local/share/fipecrawler
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for fipecrawler.
// On Linux: ~/.config/fipecrawler
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ResolvedDataDir returns DataDir, or the XDG data directory when unset.
func (c *Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return XDGDataDir()
}

// ResolvedCheckpointPath returns CheckpointPath, or the default file inside the data dir.
func (c *Config) ResolvedCheckpointPath() string {
	if c.CheckpointPath != "" {
		return c.CheckpointPath
	}
	return filepath.Join(c.ResolvedDataDir(), DefaultCheckpointFile)
}

// CrawlTypes returns the vehicle types to walk, with their labels, in the
// order given by crawl_vehicle_types.
func (c *Config) CrawlTypes() []model.VehicleType {
	types := make([]model.VehicleType, 0, len(c.CrawlVehicleTypes))
	for _, id := range c.CrawlVehicleTypes {
		types = append(types, model.VehicleType{ID: id, Label: c.VehicleTypes[id]})
	}
	return types
}

// Endpoint returns the URL configured for name.
func (c *Config) Endpoint(name string) (string, error) {
	u, ok := c.APIEndpoints[name]
	if !ok || u == "" {
		return "", newError("api_endpoints."+name, ErrUnknownEndpoint)
	}
	return u, nil
}

// checkRequired reports the first required key that is absent.
func (c *Config) checkRequired() error {
	if c.APIEndpoints == nil {
		return newError("api_endpoints", ErrMissingKey)
	}
	for _, name := range RequiredEndpoints {
		if c.APIEndpoints[name] == "" {
			return newError("api_endpoints."+name, ErrMissingKey)
		}
	}
	if c.DefaultHeaders == nil {
		return newError("default_headers", ErrMissingKey)
	}
	if len(c.UserAgents) == 0 {
		return newError("user_agents", ErrMissingKey)
	}
	if len(c.VehicleTypes) == 0 {
		return newError("vehicle_types", ErrMissingKey)
	}
	if len(c.FuelTypes) == 0 {
		return newError("fuel_types", ErrMissingKey)
	}
	if len(c.MonthMapping) == 0 {
		return newError("month_mapping", ErrMissingKey)
	}
	return nil
}

// Validate checks the configuration and returns the first problem found as *Error.
// It is called once after loading, before any request is sent.
func (c *Config) Validate() error {
	if err := c.checkRequired(); err != nil {
		return err
	}

	if c.Timeout <= 0 {
		return newError("timeout", ErrInvalidTimeout)
	}
	if c.RateLimitCapacity <= 0 {
		return newError("rate_limit_capacity", ErrInvalidRateLimit)
	}
	if c.RateLimitRefill <= 0 {
		return newError("rate_limit_refill", ErrInvalidRateLimit)
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		return newError("max_retries", ErrInvalidRetries)
	}
	if c.RetryBackoff < 0 {
		return newError("retry_backoff", ErrInvalidBackoff)
	}
	if c.MaxRateLimitWait < 0 {
		return newError("max_rate_limit_wait", ErrInvalidBackoff)
	}
	if c.CheckpointInterval <= 0 {
		return newError("checkpoint_interval", ErrInvalidCheckpointInterval)
	}
	if c.CheckpointBackend != CheckpointBackendFile && c.CheckpointBackend != CheckpointBackendSQLite {
		return newError("checkpoint_backend", ErrInvalidCheckpointBackend)
	}
	if c.MaxLeafFailures != nil && *c.MaxLeafFailures < 0 {
		return newError("max_leaf_failures", ErrInvalidRetries)
	}
	for _, id := range c.CrawlVehicleTypes {
		if c.VehicleTypes[id] == "" {
			return newError("crawl_vehicle_types."+strconv.Itoa(id), ErrUnknownVehicleType)
		}
	}
	switch c.ReportFormat {
	case "", ReportFormatText, ReportFormatMarkdown, ReportFormatJSON:
	default:
		return newError("report", ErrInvalidReportFormat)
	}

	return nil
}

// SortedVehicleTypeIDs returns the configured vehicle type ids in ascending order.
func (c *Config) SortedVehicleTypeIDs() []int {
	ids := make([]int, 0, len(c.VehicleTypes))
	for id := range c.VehicleTypes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
