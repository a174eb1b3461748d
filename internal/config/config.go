package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	AllowedOrigins    string
	DatabaseURL       string
	RedisURL          string
	NATSUrl           string
	JWTSecret         string
	AnalyticsCacheTTL time.Duration
	Grading           GradingPolicy
}

// GradingPolicy carries the externally supplied grading knobs. Weights
// are normalized once at load time so the aggregator never re-checks
// them.
type GradingPolicy struct {
	TaskWeight        float64
	QuizWeight        float64
	TimeWeight        float64
	TargetMinutes     int
	ApprovalThreshold int
}

// Normalize divides each weight by their sum. A non-positive sum is
// treated as 1 to avoid dividing by zero, matching the legacy
// behavior of the grade pipeline.
func (p GradingPolicy) Normalize() GradingPolicy {
	sum := p.TaskWeight + p.QuizWeight + p.TimeWeight
	if sum <= 0 {
		sum = 1
	}
	p.TaskWeight /= sum
	p.QuizWeight /= sum
	p.TimeWeight /= sum

	if p.TargetMinutes < 1 {
		p.TargetMinutes = 120
	}
	if p.ApprovalThreshold <= 0 {
		p.ApprovalThreshold = 60
	}
	return p
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("AULA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Aula API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.allowed_origins", "*")
	v.SetDefault("analytics.cache_ttl", "1m")
	v.SetDefault("grades.weight_tasks", 0.5)
	v.SetDefault("grades.weight_quizzes", 0.35)
	v.SetDefault("grades.weight_time", 0.15)
	v.SetDefault("grades.target_minutes", 120)
	v.SetDefault("grades.approval_threshold", 60)

	ttlString := v.GetString("analytics.cache_ttl")
	if ttlString == "" {
		ttlString = "1m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid analytics cache ttl: %w", err)
	}

	policy := GradingPolicy{
		TaskWeight:        v.GetFloat64("grades.weight_tasks"),
		QuizWeight:        v.GetFloat64("grades.weight_quizzes"),
		TimeWeight:        v.GetFloat64("grades.weight_time"),
		TargetMinutes:     v.GetInt("grades.target_minutes"),
		ApprovalThreshold: v.GetInt("grades.approval_threshold"),
	}

	if policy.TaskWeight < 0 || policy.QuizWeight < 0 || policy.TimeWeight < 0 {
		return Config{}, fmt.Errorf("grade weights must be non-negative")
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		AllowedOrigins:    v.GetString("app.allowed_origins"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSUrl:           v.GetString("nats.url"),
		JWTSecret:         v.GetString("jwt.secret"),
		AnalyticsCacheTTL: ttl,
		Grading:           policy.Normalize(),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}
