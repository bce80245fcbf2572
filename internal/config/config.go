package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // APP_TIMEZONE must resolve on hosts without zoneinfo
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env        string // application environment (e.g. "dev", "prod")
	Port       string // HTTP port to listen on
	DBUser     string // database username
	DBPass     string // database password (optional)
	DBHost     string // database host address
	DBPort     string // database port number
	DBName     string // database name

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret  string // secret used to sign JWTs
	JWTTTL     time.Duration
	BcryptCost int // bcrypt cost for password hashing

	// TimeZone is the location used for "today", opening hours and the
	// check-in window.  Reservation dates and clock times are local to it.
	TimeZone *time.Location

	UploadDir     string // filesystem root for uploaded room images
	UploadBaseURL string // URL prefix under which UploadDir is served

	AdminUsername string // bootstrap admin, created when missing
	AdminPassword string

	AutoMigrate   bool
	RabbitURL     string
	EventsEnabled bool
	SeatCacheTTL  time.Duration
	LogDir        string
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	tzName := envStr("APP_TIMEZONE", "Asia/Shanghai")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Fatalf("invalid APP_TIMEZONE %q: %v", tzName, err)
	}
	rabbit := os.Getenv("RABBITMQ_URL")
	if rabbit == "" {
		rabbit = os.Getenv("AMQP_URL")
	}
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"), // empty allowed
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),

		DBMaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),

		JWTSecret:     must("JWT_SECRET"),
		JWTTTL:        time.Duration(envInt("JWT_TTL_HOURS", 24)) * time.Hour,
		BcryptCost:    mustInt("BCRYPT_COST"),
		TimeZone:      loc,
		UploadDir:     envStr("UPLOAD_DIR", "uploads"),
		UploadBaseURL: envStr("UPLOAD_BASE_URL", "/uploads"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AutoMigrate:   envBool("AUTO_MIGRATE", true),
		RabbitURL:     rabbit,
		EventsEnabled: envBool("EVENTS_ENABLED", false),
		SeatCacheTTL:  envDur("SEAT_CACHE_TTL", 24*time.Hour),
		LogDir:        envStr("LOG_DIR", "logs"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
