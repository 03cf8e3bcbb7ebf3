package config

import "time"

// APIConfig holds runtime configuration for the admin API service.
type APIConfig struct {
	Environment            string
	Addr                   string
	DatabaseURL            string
	MigrationsDir          string
	JWTSecret              string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	HeartbeatInterval      time.Duration
	MetricsRefreshInterval time.Duration
	ActivityBufferSize     int
	ReminderBatchThreshold int
	ReminderCronSpec       string
	CronAuthToken          string
	ReminderEmailTo        string
	SMTPHost               string
	SMTPPort               string
	SMTPUser               string
	SMTPPassword           string
	SMTPFrom               string
	SMTPFromName           string
	RateLimitRedisAddr     string
	RateLimitRedisPass     string
	RateLimitRedisDB       int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:            GetString("APP_ENV", "development"),
		Addr:                   GetString("API_ADDR", ":4000"),
		DatabaseURL:            GetString("DATABASE_URL", "postgres://adopciones:adopciones@db:5432/adopciones?sslmode=disable"),
		MigrationsDir:          GetString("DB_MIGRATIONS_DIR", "./db/migrations"),
		JWTSecret:              GetString("JWT_SECRET", "supersecuresecret"),
		AccessTokenTTL:         time.Duration(GetInt("ACCESS_TOKEN_TTL_MIN", 60)) * time.Minute,
		RefreshTokenTTL:        time.Duration(GetInt("REFRESH_TOKEN_TTL_HOURS", 24)) * time.Hour,
		HeartbeatInterval:      time.Duration(GetInt("STREAM_HEARTBEAT_SECONDS", 15)) * time.Second,
		MetricsRefreshInterval: time.Duration(GetInt("STREAM_METRICS_SECONDS", 30)) * time.Second,
		ActivityBufferSize:     GetInt("ACTIVITY_BUFFER_SIZE", 100),
		ReminderBatchThreshold: GetInt("REMINDER_BATCH_THRESHOLD", 5),
		ReminderCronSpec:       GetString("REMINDER_CRON", "0 8 * * *"),
		CronAuthToken:          GetString("CRON_AUTH_TOKEN", ""),
		ReminderEmailTo:        GetString("REMINDER_EMAIL_TO", "adopciones@atlixco.gob.mx"),
		SMTPHost:               GetString("SMTP_HOST", "localhost"),
		SMTPPort:               GetString("SMTP_PORT", "25"),
		SMTPUser:               GetString("SMTP_USER", ""),
		SMTPPassword:           GetString("SMTP_PASSWORD", ""),
		SMTPFrom:               GetString("SMTP_FROM", "no-reply@atlixco.gob.mx"),
		SMTPFromName:           GetString("SMTP_FROM_NAME", "Centro de Adopción Atlixco"),
		RateLimitRedisAddr:     GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass:     GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:       GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
