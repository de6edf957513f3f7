package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	DatabaseURI        string
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Affiliate API access
	RakutenAppID      string
	RakutenTimeoutSec int
	// Mission reward tuning. Amounts changed between product revisions,
	// so everything is configuration rather than constants.
	MissionTypes        []string
	MissionRewards      map[string]int
	MissionRewardPoints int
	DailyBonusPoints    int
	RankSilverMin       int
	RankGoldMin         int
	// Redis for caching/verification
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// .env is optional and only fills the process environment
	_ = godotenv.Load()

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)

	applyDefaults(&cfg)

	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}
	getIntMap := func(m map[string]any, key string) map[string]int {
		if v, ok := m[key]; ok {
			if obj, ok := v.(map[string]any); ok {
				res := make(map[string]int, len(obj))
				for k, it := range obj {
					switch t := it.(type) {
					case float64:
						res[k] = int(t)
					case int:
						res[k] = t
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		out.GinMode = getString(app, "GinMode")
		out.GinPath = getString(app, "GinPath")
	}

	if db, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(db, "DatabaseURI")
		out.DBHost = getString(db, "DBHost")
		out.DBPort = getString(db, "DBPort")
		out.DBUser = getString(db, "DBUser")
		out.DBPassword = getString(db, "DBPassword")
		out.DBName = getString(db, "DBName")
	}

	if missions, ok := raw["missions"].(map[string]any); ok {
		if list := getStringSlice(missions, "Types"); len(list) > 0 {
			out.MissionTypes = list
		}
		if m := getIntMap(missions, "Rewards"); len(m) > 0 {
			out.MissionRewards = m
		}
		if v := getInt(missions, "RewardPoints"); v != 0 {
			out.MissionRewardPoints = v
		}
		if v := getInt(missions, "DailyBonusPoints"); v != 0 {
			out.DailyBonusPoints = v
		}
		if v := getInt(missions, "RankSilverMin"); v != 0 {
			out.RankSilverMin = v
		}
		if v := getInt(missions, "RankGoldMin"); v != 0 {
			out.RankGoldMin = v
		}
	}

	if rakuten, ok := raw["rakuten"].(map[string]any); ok {
		out.RakutenAppID = getString(rakuten, "AppID")
		if v := getInt(rakuten, "TimeoutSec"); v != 0 {
			out.RakutenTimeoutSec = v
		}
	}

	if redis, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(redis, "Host")
		if v := getInt(redis, "Port"); v != 0 {
			out.RedisPort = v
		}
		out.RedisDB = getInt(redis, "DB")
		out.RedisPassword = getString(redis, "Password")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	return nil
}

func applyDefaults(out *AppConfig) {
	if out.AppPort == "" {
		out.AppPort = "8080"
	}
	if out.DBHost == "" {
		out.DBHost = "127.0.0.1"
	}
	if out.DBPort == "" {
		out.DBPort = "3306"
	}
	if out.DBUser == "" {
		out.DBUser = "root"
	}
	if out.DBName == "" {
		out.DBName = "missiondash"
	}
	if out.RateLimitPerMinute == 0 {
		out.RateLimitPerMinute = 60
	}
	if len(out.AllowedOrigins) == 0 {
		out.AllowedOrigins = []string{"*"}
	}
	if out.GinMode == "" {
		out.GinMode = "release"
	}
	if out.GinPath == "" {
		out.GinPath = "logs/gin.log"
	}
	if len(out.MissionTypes) == 0 {
		out.MissionTypes = []string{"marketplace", "travel", "games"}
	}
	if out.MissionRewardPoints == 0 {
		out.MissionRewardPoints = 1
	}
	if out.DailyBonusPoints == 0 {
		out.DailyBonusPoints = 50
	}
	if out.RankSilverMin == 0 {
		out.RankSilverMin = 2
	}
	if out.RankGoldMin == 0 {
		out.RankGoldMin = 5
	}
	if out.RakutenTimeoutSec == 0 {
		out.RakutenTimeoutSec = 5
	}
	if out.RedisHost == "" {
		out.RedisHost = "127.0.0.1"
	}
	if out.RedisPort == 0 {
		out.RedisPort = 6379
	}
	if out.LogLevel == "" {
		out.LogLevel = "info"
	}
	if out.LogPath == "" {
		out.LogPath = "logs/app.log"
	}
	if out.LogMaxSizeMB == 0 {
		out.LogMaxSizeMB = 100
	}
	if out.LogMaxBackups == 0 {
		out.LogMaxBackups = 3
	}
	if out.LogMaxAgeDays == 0 {
		out.LogMaxAgeDays = 7
	}
}

func applyEnvOverrides(out *AppConfig) {
	out.AppPort = getEnv("APP_PORT", out.AppPort)
	out.JWTSecret = getEnv("JWT_SECRET", out.JWTSecret)
	out.DatabaseURI = getEnv("DATABASE_URI", out.DatabaseURI)
	out.DBHost = getEnv("DB_HOST", out.DBHost)
	out.DBPort = getEnv("DB_PORT", out.DBPort)
	out.DBUser = getEnv("DB_USER", out.DBUser)
	out.DBPassword = getEnv("DB_PASSWORD", out.DBPassword)
	out.DBName = getEnv("DB_NAME", out.DBName)
	out.GinMode = getEnv("GIN_MODE", out.GinMode)
	out.GinPath = getEnv("GIN_LOG_PATH", out.GinPath)
	out.RakutenAppID = getEnv("RAKUTEN_APP_ID", out.RakutenAppID)
	out.RedisHost = getEnv("REDIS_HOST", out.RedisHost)
	out.RedisPassword = getEnv("REDIS_PASSWORD", out.RedisPassword)
	out.LogLevel = getEnv("LOG_LEVEL", out.LogLevel)
	out.LogPath = getEnv("LOG_PATH", out.LogPath)

	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			out.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				origins = append(origins, s)
			}
		}
		if len(origins) > 0 {
			out.AllowedOrigins = origins
		}
	}
	if v := os.Getenv("MISSION_TYPES"); v != "" {
		parts := strings.Split(v, ",")
		types := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				types = append(types, s)
			}
		}
		if len(types) > 0 {
			out.MissionTypes = types
		}
	}
	if v := os.Getenv("MISSION_REWARD_POINTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			out.MissionRewardPoints = n
		}
	}
	if v := os.Getenv("DAILY_BONUS_POINTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			out.DailyBonusPoints = n
		}
	}
	if v := os.Getenv("RANK_SILVER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			out.RankSilverMin = n
		}
	}
	if v := os.Getenv("RANK_GOLD_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			out.RankGoldMin = n
		}
	}
	if v := os.Getenv("RAKUTEN_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			out.RakutenTimeoutSec = n
		}
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			out.RedisPort = n
		}
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			out.RedisDB = n
		}
	}
}
