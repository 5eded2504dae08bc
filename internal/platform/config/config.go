package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration so main stays lean. Everything is
// sourced from environment variables with development defaults.
type Config struct {
	Addr string

	// PostgresDSN is empty in no-database dev mode; stores fall back to the
	// in-memory implementations.
	PostgresDSN string

	Redis RedisConfig

	// KafkaBrokers enables the Kafka audit publisher when non-empty.
	KafkaBrokers    []string
	KafkaAuditTopic string

	JWTSigningKey string
	TokenTTL      time.Duration

	SMTP SMTPConfig

	// QRImageDir is where rendered credential images are written.
	QRImageDir string

	// StorageTimeout bounds every credential lookup and state write. A scan
	// that exceeds it is reported as a verification failure, never dropped.
	StorageTimeout time.Duration

	// VisitorCredentialTTL is the validity window for visitor credentials.
	// Employee credentials never expire.
	VisitorCredentialTTL time.Duration

	// LateCutoff is the facility wall-clock time-of-day after which a signin
	// counts as late, in "15:04" form. FacilityTimezone is the IANA zone that
	// wall-clock is read in; empty means the process-local zone.
	LateCutoff       string
	FacilityTimezone string

	// LateThreshold within LateWindowDays triggers the admin notification.
	LateThreshold  int
	LateWindowDays int
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Sender   string
	Password string
	AdminTo  string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:            envOr("GATEPASS_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("GATEPASS_POSTGRES_DSN"),
		KafkaBrokers:    splitNonEmpty(os.Getenv("GATEPASS_KAFKA_BROKERS")),
		KafkaAuditTopic: envOr("GATEPASS_KAFKA_AUDIT_TOPIC", "gatepass.audit"),
		JWTSigningKey:   envOr("GATEPASS_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:        envDuration("GATEPASS_TOKEN_TTL", 8*time.Hour),
		Redis: RedisConfig{
			URL:          os.Getenv("GATEPASS_REDIS_URL"),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("GATEPASS_SMTP_HOST"),
			Port:     envInt("GATEPASS_SMTP_PORT", 587),
			Sender:   os.Getenv("GATEPASS_SMTP_SENDER"),
			Password: os.Getenv("GATEPASS_SMTP_PASSWORD"),
			AdminTo:  os.Getenv("GATEPASS_ADMIN_EMAIL"),
		},
		QRImageDir:           envOr("GATEPASS_QR_IMAGE_DIR", "generated_qr"),
		StorageTimeout:       envDuration("GATEPASS_STORAGE_TIMEOUT", 5*time.Second),
		VisitorCredentialTTL: envDuration("GATEPASS_VISITOR_CREDENTIAL_TTL", 24*time.Hour),
		LateCutoff:           envOr("GATEPASS_LATE_CUTOFF", "09:10"),
		FacilityTimezone:     os.Getenv("GATEPASS_FACILITY_TZ"),
		LateThreshold:        envInt("GATEPASS_LATE_THRESHOLD", 3),
		LateWindowDays:       envInt("GATEPASS_LATE_WINDOW_DAYS", 30),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
