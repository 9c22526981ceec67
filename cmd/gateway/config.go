package main

import "time"

type Config struct {
	Host               string        `env:"HOST"`
	Port               int           `env:"PORT,default=3000"`
	LogLevel           string        `env:"LOG_LEVEL,default=info"`
	StaticDir          string        `env:"STATIC_DIR,default=marketplace"`
	ServicesFile       string        `env:"SERVICES_FILE"`
	BackendTimeout     time.Duration `env:"BACKEND_TIMEOUT,default=30s"`
	MockOutputPrefix   string        `env:"MOCK_OUTPUT_PREFIX"`
	RandomSeed         int           `env:"RANDOM_SEED"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS,default=*"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}
