package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime setting, loaded once from the environment.
type Config struct {
	Addr         string
	DataDir      string
	DBPath       string
	LogFile      string
	DockerSocket string

	DefaultInterval time.Duration
	PollTimeout     time.Duration
	MaxPollFailures int
	AutoStart       bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	JWTSecret string

	UseTLS  bool
	TLSCert string
	TLSKey  string
}

// Load reads the configuration from DOCKMON_* environment variables,
// falling back to sensible local-development defaults.
func Load() Config {
	dataDir := getenv("DOCKMON_DATA_DIR", "./data")
	return Config{
		Addr:            getenv("DOCKMON_ADDR", ":8080"),
		DataDir:         dataDir,
		DBPath:          getenv("DOCKMON_DB_PATH", dataDir+"/dockmon.db"),
		LogFile:         getenv("DOCKMON_LOG_FILE", dataDir+"/dockmon.log"),
		DockerSocket:    getenv("DOCKER_SOCKET", "/var/run/docker.sock"),
		DefaultInterval: getenvDuration("DOCKMON_POLL_INTERVAL", 10*time.Second),
		PollTimeout:     getenvDuration("DOCKMON_POLL_TIMEOUT", 10*time.Second),
		MaxPollFailures: getenvInt("DOCKMON_MAX_POLL_FAILURES", 5),
		AutoStart:       getenvBool("DOCKMON_AUTOSTART", false),
		RedisAddr:       os.Getenv("DOCKMON_REDIS_ADDR"),
		RedisPassword:   os.Getenv("DOCKMON_REDIS_PASSWORD"),
		RedisDB:         getenvInt("DOCKMON_REDIS_DB", 0),
		SMTPHost:        os.Getenv("DOCKMON_SMTP_HOST"),
		SMTPPort:        getenvInt("DOCKMON_SMTP_PORT", 587),
		SMTPUser:        os.Getenv("DOCKMON_SMTP_USER"),
		SMTPPass:        os.Getenv("DOCKMON_SMTP_PASS"),
		SMTPFrom:        os.Getenv("DOCKMON_SMTP_FROM"),
		JWTSecret:       os.Getenv("DOCKMON_JWT_SECRET"),
		UseTLS:          getenvBool("DOCKMON_USE_TLS", false),
		TLSCert:         os.Getenv("DOCKMON_TLS_CERT"),
		TLSKey:          os.Getenv("DOCKMON_TLS_KEY"),
	}
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func getenvDuration(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return d
	}
	return dur
}

func getenvBool(k string, d bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return parsed
}
