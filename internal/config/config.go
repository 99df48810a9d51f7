package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable. The types reflect how the
// values are used in the application: strings for identifiers and
// secrets, ints for durations and limits.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify access tokens

	VNPTmnCode     string // merchant code issued by VNPay
	VNPHashSecret  string // shared HMAC-SHA512 secret for the gateway protocol
	VNPPayURL      string // gateway payment page URL
	VNPReturnURL   string // this service's browser-return endpoint (absolute)
	VNPSuccessPage string // frontend page for settled payments
	VNPFailurePage string // frontend page for failed payments

	ProfileServiceURL string // base URL of the profile service (optional)

	PendingMaxAgeMin int // age in minutes before an unpaid PENDING booking is swept
	SweepIntervalMin int // how often the stale-pending sweep runs, in minutes
	RateLimitPerMin  int // per-client request budget on write endpoints
	BrowseCacheSec   int // TTL in seconds for cached browse responses, 0 disables
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		VNPTmnCode:     must("VNP_TMN_CODE"),
		VNPHashSecret:  must("VNP_HASH_SECRET"),
		VNPPayURL:      must("VNP_PAY_URL"),
		VNPReturnURL:   must("VNP_RETURN_URL"),
		VNPSuccessPage: must("VNP_SUCCESS_PAGE"),
		VNPFailurePage: must("VNP_FAILURE_PAGE"),

		ProfileServiceURL: os.Getenv("PROFILE_SERVICE_URL"), // empty disables lookups

		PendingMaxAgeMin: intOr("PENDING_MAX_AGE_MIN", 30),
		SweepIntervalMin: intOr("SWEEP_INTERVAL_MIN", 5),
		RateLimitPerMin:  intOr("RATE_LIMIT_PER_MIN", 60),
		BrowseCacheSec:   intOr("BROWSE_CACHE_SEC", 30),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr retrieves an optional integer environment variable, falling
// back to def when unset. A malformed value is fatal rather than
// silently ignored.
func intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
