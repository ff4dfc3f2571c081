package common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
	OCR         OCRConfig         `yaml:"ocr"`
	Handwriting HandwritingConfig `yaml:"handwriting"`
	Cascade     CascadeConfig     `yaml:"cascade"`
	Queue       QueueConfig       `yaml:"queue"`
	Cache       CacheConfig       `yaml:"cache"`
	Log         LogConfig         `yaml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // postgres | sqlite
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr    string `yaml:"grpc_addr"`
	HTTPAddr    string `yaml:"http_addr"`
	UploadDir   string `yaml:"upload_dir"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

// OCRConfig holds fast-engine configuration
type OCRConfig struct {
	Backend          string        `yaml:"backend"` // tesseract | gosseract
	TesseractBin     string        `yaml:"tesseract_bin"`
	PdftoppmBin      string        `yaml:"pdftoppm_bin"`
	PdftotextBin     string        `yaml:"pdftotext_bin"`
	Language         string        `yaml:"language"`
	PSM              int           `yaml:"psm"`
	OEM              int           `yaml:"oem"`
	DPI              int           `yaml:"dpi"`
	MaxPages         int           `yaml:"max_pages"`
	HeicConverter    string        `yaml:"heic_converter"`
	TessdataDir      string        `yaml:"tessdata_dir"`
	ArtifactCacheDir string        `yaml:"artifact_cache_dir"`
	Timeout          time.Duration `yaml:"timeout"`
}

// HandwritingConfig holds the out-of-process handwriting engine configuration
type HandwritingConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Python      string        `yaml:"python"`
	Script      string        `yaml:"script"`
	ProbeImport string        `yaml:"probe_import"`
	SetupArgs   []string      `yaml:"setup_args"`
	Timeout     time.Duration `yaml:"timeout"`
}

// CascadeConfig holds thresholds and policies of the engine cascade
type CascadeConfig struct {
	VerificationThreshold            float64 `yaml:"verification_threshold"`
	SpecializedVerificationThreshold float64 `yaml:"specialized_verification_threshold"`
	EscalationThreshold              float64 `yaml:"escalation_threshold"`
	DefaultConfidence                float64 `yaml:"default_confidence"`
	MinPDFTextChars                  int     `yaml:"min_pdf_text_chars"`
	PartyPolicy                      string  `yaml:"party_policy"` // female-first | male-first
}

// QueueConfig holds batch worker settings
type QueueConfig struct {
	Workers        int           `yaml:"workers"`
	Size           int           `yaml:"size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	Burst          int           `yaml:"burst"`
}

// CacheConfig holds result-cache settings
type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

const envPrefix = "ROD"

// NewViper returns a viper instance with defaults and ROD_* bindings applied.
// Callers may bind cobra flags on it before calling LoadConfigFrom.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:rod.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.max_conn_idle_time", "5m")
	v.SetDefault("database.dial_timeout", "3s")

	// Server defaults
	v.SetDefault("server.grpc_addr", ":8081")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.upload_dir", "")
	v.SetDefault("server.max_upload_mb", 50)

	// OCR defaults
	v.SetDefault("ocr.backend", "tesseract")
	v.SetDefault("ocr.tesseract_bin", "tesseract")
	v.SetDefault("ocr.pdftoppm_bin", "pdftoppm")
	v.SetDefault("ocr.pdftotext_bin", "pdftotext")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.psm", 3)
	v.SetDefault("ocr.oem", 1)
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_pages", 10)
	v.SetDefault("ocr.heic_converter", "magick")
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.artifact_cache_dir", "./tmp")
	v.SetDefault("ocr.timeout", "90s")

	// Handwriting defaults
	v.SetDefault("handwriting.enabled", true)
	v.SetDefault("handwriting.python", "python3")
	v.SetDefault("handwriting.script", "scripts/trocr_service.py")
	v.SetDefault("handwriting.probe_import", "import transformers, torch")
	v.SetDefault("handwriting.setup_args", []string{"-m", "pip", "install", "--quiet", "transformers", "torch", "pillow"})
	v.SetDefault("handwriting.timeout", "120s")

	// Cascade defaults
	v.SetDefault("cascade.verification_threshold", 0.8)
	v.SetDefault("cascade.specialized_verification_threshold", 0.6)
	v.SetDefault("cascade.escalation_threshold", 0.3)
	v.SetDefault("cascade.default_confidence", 0.6)
	v.SetDefault("cascade.min_pdf_text_chars", 20)
	v.SetDefault("cascade.party_policy", "female-first")

	// Queue defaults
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.size", 64)
	v.SetDefault("queue.process_timeout", "5m")
	v.SetDefault("queue.rate_per_second", 0)
	v.SetDefault("queue.burst", 1)

	// Cache defaults
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"database.driver":                            "ROD_DB_DRIVER",
		"database.dsn":                               "ROD_DB_URL",
		"database.max_conns":                         "ROD_DB_MAX_CONNS",
		"database.min_conns":                         "ROD_DB_MIN_CONNS",
		"database.max_conn_lifetime":                 "ROD_DB_MAX_CONN_LIFETIME",
		"database.max_conn_idle_time":                "ROD_DB_MAX_CONN_IDLE_TIME",
		"database.dial_timeout":                      "ROD_DB_DIAL_TIMEOUT",
		"server.grpc_addr":                           "ROD_GRPC_ADDR",
		"server.http_addr":                           "ROD_HTTP_ADDR",
		"server.upload_dir":                          "ROD_UPLOAD_DIR",
		"server.max_upload_mb":                       "ROD_MAX_UPLOAD_MB",
		"ocr.backend":                                "ROD_OCR_BACKEND",
		"ocr.tesseract_bin":                          "ROD_TESSERACT_BIN",
		"ocr.pdftoppm_bin":                           "ROD_PDFTOPPM_BIN",
		"ocr.pdftotext_bin":                          "ROD_PDFTOTEXT_BIN",
		"ocr.language":                               "ROD_OCR_LANGUAGE",
		"ocr.psm":                                    "ROD_OCR_PSM",
		"ocr.oem":                                    "ROD_OCR_OEM",
		"ocr.dpi":                                    "ROD_OCR_DPI",
		"ocr.max_pages":                              "ROD_OCR_MAX_PAGES",
		"ocr.heic_converter":                         "ROD_HEIC_CONVERTER",
		"ocr.tessdata_dir":                           "TESSDATA_PREFIX",
		"ocr.artifact_cache_dir":                     "ROD_ARTIFACT_CACHE_DIR",
		"ocr.timeout":                                "ROD_OCR_TIMEOUT",
		"handwriting.enabled":                        "ROD_HANDWRITING_ENABLED",
		"handwriting.python":                         "ROD_HANDWRITING_PYTHON",
		"handwriting.script":                         "ROD_HANDWRITING_SCRIPT",
		"handwriting.probe_import":                   "ROD_HANDWRITING_PROBE_IMPORT",
		"handwriting.timeout":                        "ROD_HANDWRITING_TIMEOUT",
		"cascade.verification_threshold":             "ROD_VERIFICATION_THRESHOLD",
		"cascade.specialized_verification_threshold": "ROD_SPECIALIZED_VERIFICATION_THRESHOLD",
		"cascade.escalation_threshold":               "ROD_ESCALATION_THRESHOLD",
		"cascade.default_confidence":                 "ROD_DEFAULT_CONFIDENCE",
		"cascade.min_pdf_text_chars":                 "ROD_MIN_PDF_TEXT_CHARS",
		"cascade.party_policy":                       "ROD_PARTY_POLICY",
		"queue.workers":                              "ROD_QUEUE_WORKERS",
		"queue.size":                                 "ROD_QUEUE_SIZE",
		"queue.process_timeout":                      "ROD_QUEUE_PROCESS_TIMEOUT",
		"queue.rate_per_second":                      "ROD_QUEUE_RATE_PER_SECOND",
		"queue.burst":                                "ROD_QUEUE_BURST",
		"cache.ttl":                                  "ROD_CACHE_TTL",
		"cache.cleanup_interval":                     "ROD_CACHE_CLEANUP_INTERVAL",
		"log.level":                                  "ROD_LOG_LEVEL",
		"log.format":                                 "ROD_LOG_FORMAT",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// LoadConfig loads configuration from ROD_* environment variables and,
// when configFile is non-empty, a YAML file.
func LoadConfig(configFile string) (*Config, error) {
	v := NewViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	return LoadConfigFrom(v)
}

// LoadConfigFrom materializes a Config from a prepared viper instance.
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, NewAppError(CodeConfig, "read config file", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			DSN:             v.GetString("database.dsn"),
			MaxConns:        v.GetInt32("database.max_conns"),
			MinConns:        v.GetInt32("database.min_conns"),
			MaxConnLifetime: v.GetDuration("database.max_conn_lifetime"),
			MaxConnIdleTime: v.GetDuration("database.max_conn_idle_time"),
			DialTimeout:     v.GetDuration("database.dial_timeout"),
		},
		Server: ServerConfig{
			GRPCAddr:    v.GetString("server.grpc_addr"),
			HTTPAddr:    v.GetString("server.http_addr"),
			UploadDir:   v.GetString("server.upload_dir"),
			MaxUploadMB: v.GetInt64("server.max_upload_mb"),
		},
		OCR: OCRConfig{
			Backend:          strings.ToLower(v.GetString("ocr.backend")),
			TesseractBin:     v.GetString("ocr.tesseract_bin"),
			PdftoppmBin:      v.GetString("ocr.pdftoppm_bin"),
			PdftotextBin:     v.GetString("ocr.pdftotext_bin"),
			Language:         v.GetString("ocr.language"),
			PSM:              v.GetInt("ocr.psm"),
			OEM:              v.GetInt("ocr.oem"),
			DPI:              v.GetInt("ocr.dpi"),
			MaxPages:         v.GetInt("ocr.max_pages"),
			HeicConverter:    v.GetString("ocr.heic_converter"),
			TessdataDir:      v.GetString("ocr.tessdata_dir"),
			ArtifactCacheDir: v.GetString("ocr.artifact_cache_dir"),
			Timeout:          v.GetDuration("ocr.timeout"),
		},
		Handwriting: HandwritingConfig{
			Enabled:     v.GetBool("handwriting.enabled"),
			Python:      v.GetString("handwriting.python"),
			Script:      v.GetString("handwriting.script"),
			ProbeImport: v.GetString("handwriting.probe_import"),
			SetupArgs:   v.GetStringSlice("handwriting.setup_args"),
			Timeout:     v.GetDuration("handwriting.timeout"),
		},
		Cascade: CascadeConfig{
			VerificationThreshold:            v.GetFloat64("cascade.verification_threshold"),
			SpecializedVerificationThreshold: v.GetFloat64("cascade.specialized_verification_threshold"),
			EscalationThreshold:              v.GetFloat64("cascade.escalation_threshold"),
			DefaultConfidence:                v.GetFloat64("cascade.default_confidence"),
			MinPDFTextChars:                  v.GetInt("cascade.min_pdf_text_chars"),
			PartyPolicy:                      strings.ToLower(v.GetString("cascade.party_policy")),
		},
		Queue: QueueConfig{
			Workers:        v.GetInt("queue.workers"),
			Size:           v.GetInt("queue.size"),
			ProcessTimeout: v.GetDuration("queue.process_timeout"),
			RatePerSecond:  v.GetFloat64("queue.rate_per_second"),
			Burst:          v.GetInt("queue.burst"),
		},
		Cache: CacheConfig{
			TTL:             v.GetDuration("cache.ttl"),
			CleanupInterval: v.GetDuration("cache.cleanup_interval"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("database.driver", c.Database.Driver, OneOf("postgres", "sqlite")).
		Field("database.dsn", c.Database.DSN, Required).
		Field("ocr.backend", c.OCR.Backend, OneOf("tesseract", "gosseract")).
		Field("ocr.dpi", c.OCR.DPI, Positive).
		Field("ocr.max_pages", c.OCR.MaxPages, Positive).
		Field("cascade.verification_threshold", c.Cascade.VerificationThreshold, UnitInterval).
		Field("cascade.specialized_verification_threshold", c.Cascade.SpecializedVerificationThreshold, UnitInterval).
		Field("cascade.escalation_threshold", c.Cascade.EscalationThreshold, UnitInterval).
		Field("cascade.default_confidence", c.Cascade.DefaultConfidence, UnitInterval).
		Field("cascade.party_policy", c.Cascade.PartyPolicy, OneOf("female-first", "male-first")).
		Field("queue.workers", c.Queue.Workers, Positive).
		Field("queue.size", c.Queue.Size, Positive).
		Field("log.format", strings.ToLower(c.Log.Format), OneOf("text", "json"))

	if c.Handwriting.Enabled {
		v.Field("handwriting.python", c.Handwriting.Python, Required).
			Field("handwriting.script", c.Handwriting.Script, Required)
	}
	if err := v.Error(); err != nil {
		return NewAppError(CodeConfig, "invalid configuration", err)
	}
	if c.Cascade.EscalationThreshold > c.Cascade.VerificationThreshold {
		return NewAppError(CodeConfig,
			fmt.Sprintf("escalation threshold %.2f exceeds verification threshold %.2f",
				c.Cascade.EscalationThreshold, c.Cascade.VerificationThreshold),
			ErrInvalidInput)
	}
	return nil
}
