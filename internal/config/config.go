package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	// Mongo (document engine)
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	// Redis
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Region routing: comma-separated region=engine pairs, e.g.
	// "us=postgres,eu=postgres,apac=mongo". Users whose region is missing
	// or unmapped fall back to FallbackEngine.
	RegionEngineMap string `mapstructure:"REGION_ENGINE_MAP"`
	FallbackEngine  string `mapstructure:"FALLBACK_ENGINE"`
}

func LoadConfig() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "crewline"
	}
	if cfg.FallbackEngine == "" {
		cfg.FallbackEngine = "postgres"
	}
	return cfg
}

// RegionEngines parses RegionEngineMap into a lookup table.
func (c *Config) RegionEngines() map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(c.RegionEngineMap, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(parts[0]))] = strings.ToLower(strings.TrimSpace(parts[1]))
	}
	return out
}
