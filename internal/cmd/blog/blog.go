// Package blog parses blog service flags and launches the service.
package blog

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/louisbranch/docker-mastery/internal/platform/cache/cachedriver"
	"github.com/louisbranch/docker-mastery/internal/platform/cache/redis"
	entrypoint "github.com/louisbranch/docker-mastery/internal/platform/cmd"
	server "github.com/louisbranch/docker-mastery/internal/services/blog/app"
)

// Config holds blog command configuration.
type Config struct {
	Port           int     `env:"PORT" envDefault:"3001"`
	Environment    string  `env:"NODE_ENV" envDefault:"development"`
	DBPath         string  `env:"DB_PATH" envDefault:"data/blog.db"`
	CacheDriver    string  `env:"CACHE_DRIVER" envDefault:"redis"`
	RedisHost      string  `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort      int     `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword  string  `env:"REDIS_PASSWORD"`
	RedisDB        int     `env:"REDIS_DB" envDefault:"0"`
	SessionSecret  string  `env:"SESSION_SECRET" envDefault:"blog-secret-key"`
	CORSOrigin     string  `env:"CORS_ORIGIN" envDefault:"*"`
	GRPCAddr       string  `env:"BLOG_GRPC_ADDR"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
	MaxConns       int     `env:"MAX_CONNS" envDefault:"0"`
	TrustProxy     bool    `env:"TRUST_PROXY" envDefault:"false"`
}

// ParseConfig loads Config from the environment; flags given in args win.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.IntVar(&cfg.Port, "port", 0, "The blog HTTP server port (env PORT)")
	fs.StringVar(&cfg.DBPath, "db", "", "Path to the blog SQLite database (env DB_PATH)")
	fs.StringVar(&cfg.CacheDriver, "cache", "", "Cache driver: redis, memory or none (env CACHE_DRIVER)")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", "", "gRPC health listen address; empty disables it (env BLOG_GRPC_ADDR)")
	if err := entrypoint.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return Config{}, err
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

// ServerConfig resolves the runtime configuration for the blog server.
func (c Config) ServerConfig() server.Config {
	return server.Config{
		HTTPAddr:    ":" + strconv.Itoa(c.Port),
		GRPCAddr:    c.GRPCAddr,
		DBPath:      c.DBPath,
		Environment: c.Environment,
		Cache: cachedriver.Config{
			Driver: c.CacheDriver,
			Redis: redis.Config{
				Addr:     redis.Addr(c.RedisHost, c.RedisPort),
				Password: c.RedisPassword,
				DB:       c.RedisDB,
			},
		},
		SessionSecret:  c.SessionSecret,
		CORSOrigin:     c.CORSOrigin,
		RateLimitRPS:   c.RateLimitRPS,
		RateLimitBurst: c.RateLimitBurst,
		MaxConns:       c.MaxConns,
		TrustProxy:     c.TrustProxy,
		Logger:         log.Default(),
	}
}

// Run starts the blog HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceBlog, func(runCtx context.Context) error {
		return server.Run(runCtx, cfg.ServerConfig())
	})
}
