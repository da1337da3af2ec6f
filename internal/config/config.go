package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"SOSDesk/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Socket   SocketConfig
	Hospital HospitalConfig
	Cache    CacheConfig
	MQTT     MQTTConfig
	Journal  JournalConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig is the local operator API the dashboard UI talks to.
type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxHeaderBytes  int
}

type BackendConfig struct {
	BaseURL      string
	HistoryPath  string
	SaveCasePath string
	UserInfoPath string
	Token        string
	Timeout      time.Duration
}

type SocketConfig struct {
	// URLTemplate contains "{id}", replaced with the hospital session id.
	URLTemplate      string
	HandshakeTimeout time.Duration
	PingPeriod       time.Duration
	PongWait         time.Duration
	WriteWait        time.Duration
	MaxMessageSize   int64
	EnrichTimeout    time.Duration
}

type HospitalConfig struct {
	ID        string
	Name      string
	Latitude  *float64
	Longitude *float64
	// AutoConnect opens the socket on startup.
	AutoConnect bool
}

type CacheConfig struct {
	PatientCacheSize int
	PatientCacheTTL  time.Duration
}

type MQTTConfig struct {
	Enabled        bool
	Broker         string
	Port           int
	ClientID       string
	Username       string
	Password       string
	NoticeTopic    string
	QoS            byte
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	AutoReconnect  bool
}

type JournalConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Retention prunes journal rows older than this. Zero keeps everything.
	Retention time.Duration
}

type SecurityConfig struct {
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	EnableRateLimit    bool
	RateLimitPerMinute int
}

type LoggingConfig struct {
	Level      logger.Level
	Mode       logger.Mode
	FilePath   string
	UseColors  bool
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

var requiredEnvVars = []string{
	"HOSPITAL_ID",
	"BACKEND_BASE_URL",
	"WS_URL_TEMPLATE",
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	if err := validateRequired(); err != nil {
		return nil, err
	}

	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment without touching .env
// or enforcing required variables.
func FromEnv() *Config {
	return &Config{
		Server:   loadServerConfig(),
		Backend:  loadBackendConfig(),
		Socket:   loadSocketConfig(),
		Hospital: loadHospitalConfig(),
		Cache:    loadCacheConfig(),
		MQTT:     loadMQTTConfig(),
		Journal:  loadJournalConfig(),
		Security: loadSecurityConfig(),
		Logging:  loadLoggingConfig(),
	}
}

func validateRequired() error {
	var missing []string

	for _, key := range requiredEnvVars {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SERVER_HOST", "127.0.0.1"),
		Port:            getEnvAsInt("SERVER_PORT", 8090),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", "15s"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", "10s"),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", "30s"),
		MaxHeaderBytes:  getEnvAsInt("MAX_HEADER_BYTES", 1048576),
	}
}

func loadBackendConfig() BackendConfig {
	return BackendConfig{
		BaseURL:      strings.TrimRight(getEnv("BACKEND_BASE_URL", "https://eba.onrender.com"), "/"),
		HistoryPath:  getEnv("BACKEND_HISTORY_PATH", "/sos-history"),
		SaveCasePath: getEnv("BACKEND_SAVE_CASE_PATH", "/sos-data"),
		UserInfoPath: getEnv("BACKEND_USER_INFO_PATH", "/user-info"),
		Token:        getEnv("BACKEND_TOKEN", ""),
		Timeout:      getEnvAsDuration("BACKEND_TIMEOUT", "10s"),
	}
}

func loadSocketConfig() SocketConfig {
	return SocketConfig{
		URLTemplate:      getEnv("WS_URL_TEMPLATE", "wss://eba.onrender.com/ws/hospital/{id}"),
		HandshakeTimeout: getEnvAsDuration("WS_HANDSHAKE_TIMEOUT", "10s"),
		PingPeriod:       getEnvAsDuration("WS_PING_PERIOD", "54s"),
		PongWait:         getEnvAsDuration("WS_PONG_WAIT", "60s"),
		WriteWait:        getEnvAsDuration("WS_WRITE_WAIT", "10s"),
		MaxMessageSize:   int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 64*1024)),
		EnrichTimeout:    getEnvAsDuration("ENRICH_TIMEOUT", "15s"),
	}
}

func loadHospitalConfig() HospitalConfig {
	return HospitalConfig{
		ID:          getEnv("HOSPITAL_ID", ""),
		Name:        getEnv("HOSPITAL_NAME", ""),
		Latitude:    getEnvAsFloatPtr("HOSPITAL_LATITUDE"),
		Longitude:   getEnvAsFloatPtr("HOSPITAL_LONGITUDE"),
		AutoConnect: getEnvAsBool("HOSPITAL_AUTO_CONNECT", true),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		PatientCacheSize: getEnvAsInt("PATIENT_CACHE_SIZE", 1024),
		PatientCacheTTL:  getEnvAsDuration("PATIENT_CACHE_TTL", "30m"),
	}
}

func loadMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Enabled:        getEnvAsBool("MQTT_ENABLED", false),
		Broker:         getEnv("MQTT_BROKER", "localhost"),
		Port:           getEnvAsInt("MQTT_PORT", 1883),
		ClientID:       getEnv("MQTT_CLIENT_ID", "sosdesk"),
		Username:       getEnv("MQTT_USERNAME", ""),
		Password:       getEnv("MQTT_PASSWORD", ""),
		NoticeTopic:    getEnv("MQTT_NOTICE_TOPIC", "hospital/{id}/notices"),
		QoS:            byte(getEnvAsInt("MQTT_QOS", 1)),
		KeepAlive:      getEnvAsDuration("MQTT_KEEP_ALIVE", "60s"),
		ConnectTimeout: getEnvAsDuration("MQTT_CONNECT_TIMEOUT", "10s"),
		AutoReconnect:  getEnvAsBool("MQTT_AUTO_RECONNECT", true),
	}
}

func loadJournalConfig() JournalConfig {
	return JournalConfig{
		Enabled:         getEnvAsBool("JOURNAL_ENABLED", false),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "sosdesk"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "sosdesk"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		Retention:       getEnvAsDuration("JOURNAL_RETENTION", "2160h"),
	}
}

func loadSecurityConfig() SecurityConfig {
	origins := getEnv("CORS_ALLOWED_ORIGINS", "*")
	methods := getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")

	return SecurityConfig{
		CORSAllowedOrigins: strings.Split(origins, ","),
		CORSAllowedMethods: strings.Split(methods, ","),
		EnableRateLimit:    getEnvAsBool("ENABLE_RATE_LIMIT", false),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      logger.ParseLevel(getEnv("LOG_LEVEL", "info")),
		Mode:       logger.ParseMode(getEnv("LOG_MODE", "normal")),
		FilePath:   getEnv("LOG_FILE_PATH", ""),
		UseColors:  getEnvAsBool("LOG_USE_COLORS", true),
		MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 50),
		MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 14),
		MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// getEnvAsFloatPtr returns nil when the variable is unset or unparsable, so
// "not configured" stays distinct from 0.
func getEnvAsFloatPtr(key string) *float64 {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

// SocketURL expands the socket URL template for a session id.
func (c *Config) SocketURL(sessionID string) string {
	return strings.ReplaceAll(c.Socket.URLTemplate, "{id}", url.PathEscape(sessionID))
}

func (c *Config) GetJournalDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Journal.Host,
		c.Journal.Port,
		c.Journal.User,
		c.Journal.Password,
		c.Journal.Database,
		c.Journal.SSLMode,
	)
}

func (c *Config) Validate() error {
	var errors []string

	if c.Hospital.ID == "" {
		errors = append(errors, "HOSPITAL_ID cannot be empty")
	}

	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, "BACKEND_BASE_URL must be an absolute URL")
	}

	if !strings.Contains(c.Socket.URLTemplate, "{id}") {
		errors = append(errors, "WS_URL_TEMPLATE must contain {id}")
	} else if u, err := url.Parse(c.Socket.URLTemplate); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		errors = append(errors, "WS_URL_TEMPLATE must use ws:// or wss://")
	}

	if c.Socket.PingPeriod >= c.Socket.PongWait {
		errors = append(errors, "WS_PING_PERIOD must be shorter than WS_PONG_WAIT")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	if c.Cache.PatientCacheSize < 1 {
		errors = append(errors, "PATIENT_CACHE_SIZE must be positive")
	}

	if c.MQTT.Enabled && (c.MQTT.Port < 1 || c.MQTT.Port > 65535) {
		errors = append(errors, "MQTT_PORT must be between 1 and 65535")
	}

	if c.Journal.Enabled && c.Journal.Password == "" {
		errors = append(errors, "DB_PASSWORD cannot be empty when JOURNAL_ENABLED is set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func (c *Config) Print() {
	location := "not configured"
	if c.Hospital.Latitude != nil && c.Hospital.Longitude != nil {
		location = fmt.Sprintf("%v, %v", *c.Hospital.Latitude, *c.Hospital.Longitude)
	}

	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║              SOS Desk - Configuration                    ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Printf("Environment:     %s\n", c.Server.Environment)
	fmt.Printf("Operator API:    %s:%d\n", c.Server.Host, c.Server.Port)
	fmt.Printf("Hospital:        %s (%s)\n", c.Hospital.ID, location)
	fmt.Printf("Backend:         %s\n", c.Backend.BaseURL)
	fmt.Printf("Socket:          %s\n", c.SocketURL(c.Hospital.ID))
	fmt.Printf("MQTT Notices:    %v\n", c.MQTT.Enabled)
	fmt.Printf("Journal:         %v\n", c.Journal.Enabled)
	fmt.Println("──────────────────────────────────────────────────────────")
}
