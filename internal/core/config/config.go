// Package config loads service configuration from the environment.
package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

type KafkaCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	Queue   int
}

type Config struct {
	Addr     string
	LogLevel string

	// ArchiveBaseURL is where the tiled isochrone archives are served from.
	ArchiveBaseURL string
	// ArchiveRegion names the default coverage region used when a query
	// falls outside every known region.
	ArchiveRegion string

	// TimeBands is the ordered set of travel-time thresholds in minutes.
	TimeBands []int

	// QuantizeMode selects the source-key quantizer: "decimal" or "h3".
	QuantizeMode string
	// QuantizePrecision is the decimal-digit rounding for the decimal
	// quantizer. The original pipeline used 3 (~100 m).
	QuantizePrecision int
	// QuantizeH3Res is the cell resolution for the h3 quantizer.
	QuantizeH3Res int

	// SourceLoadTimeout bounds how long a caller waits for a newly
	// registered source to finish loading.
	SourceLoadTimeout time.Duration
	// ProbeCacheSize bounds the renderer's archive probe LRU.
	ProbeCacheSize int

	// DefaultLat/DefaultLng seed the view before any geolocation.
	DefaultLat float64
	DefaultLng float64
	DefaultZoom float64

	// CacheStore selects the descriptor store: "memory" or "redis".
	CacheStore string
	RedisAddr  string
	// SessionID prefixes redis descriptor keys so ClearAll stays scoped
	// to one map session.
	SessionID string

	Kafka KafkaCfg
}

func FromEnv() Config {
	return Config{
		Addr:     getenv("ADDR", ":8090"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		ArchiveBaseURL: getenv("ARCHIVE_BASE_URL", "http://localhost:8080/isochrones"),
		ArchiveRegion:  getenv("ARCHIVE_REGION", "Portland_ME_USA"),

		TimeBands: getints("TIME_BANDS", []int{5, 10, 15}),

		QuantizeMode:      getenv("QUANTIZE_MODE", "decimal"),
		QuantizePrecision: getint("QUANTIZE_PRECISION", 3),
		QuantizeH3Res:     getint("QUANTIZE_H3_RES", 9),

		SourceLoadTimeout: getduration("SOURCE_LOAD_TIMEOUT", 10*time.Second),
		ProbeCacheSize:    getint("PROBE_CACHE_SIZE", 128),

		DefaultLat:  getfloat("DEFAULT_LAT", 43.6591),
		DefaultLng:  getfloat("DEFAULT_LNG", -70.2568),
		DefaultZoom: getfloat("DEFAULT_ZOOM", 13),

		CacheStore: getenv("CACHE_STORE", "memory"),
		RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),
		SessionID:  getenv("SESSION_ID", ""),

		Kafka: KafkaCfg{
			Enabled: getbool("KAFKA_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "isochrone-loads"),
			Queue:   getint("KAFKA_QUEUE", 1024),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "5,10,15" into a sorted band list; invalid entries are skipped
func getints(k string, def []int) []int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []int
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return def
	}
	sort.Ints(out)
	return out
}
