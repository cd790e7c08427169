package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/turnbid/go/internal/auction"
	"github.com/mcdev12/turnbid/go/internal/dbconfig"
	"github.com/mcdev12/turnbid/go/internal/gateway"
)

type Config struct {
	Port               string
	JWTSecret          string
	AllowQueryIdentity bool
	PermittedOrigins   []string
	PublicURL          string
	LogLevel           string
	NATSURL            string
	ShutdownTimeout    time.Duration

	Auction  auction.Settings
	Invitees []string
	Database dbconfig.Config
}

// fileConfig is the optional YAML file. Keys left out keep their defaults;
// an empty `invitees` list turns the default invitations off.
type fileConfig struct {
	Auction struct {
		TurnDuration time.Duration         `yaml:"turn_duration"`
		TickInterval time.Duration         `yaml:"tick_interval"`
		Duration     time.Duration         `yaml:"duration"`
		Capacity     int                   `yaml:"capacity"`
		AutoJoin     bool                  `yaml:"auto_join"`
		DefaultTerms auction.ContractTerms `yaml:"default_terms"`
	} `yaml:"auction"`
	Invitees []string `yaml:"invitees"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadConfig reads flags, then the environment, then the YAML file named by
// --config or AUCTION_CONFIG.
func loadConfig(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("turnbid", pflag.ContinueOnError)
	configPath := fs.String("config", getEnv("AUCTION_CONFIG", ""), "path to the YAML auction config")
	port := fs.String("port", getEnv("PORT", "8080"), "HTTP listen port")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	config := &Config{
		Port:               *port,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		AllowQueryIdentity: getEnvAsBool("ALLOW_QUERY_IDENTITY", false),
		PermittedOrigins:   splitList(os.Getenv("PERMITTED_ORIGINS")),
		PublicURL:          strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:3000"), "/"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		NATSURL:            os.Getenv("NATS_URL"),
		ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Auction:            auction.DefaultSettings(),
		Invitees:           gateway.DefaultConfig().Invitees,
		Database:           dbconfig.NewConfigFromEnv(),
	}

	if *configPath != "" {
		if err := config.applyFile(*configPath); err != nil {
			return nil, err
		}
	}
	if err := config.Auction.Validate(); err != nil {
		return nil, err
	}
	if config.JWTSecret == "" && !config.AllowQueryIdentity {
		return nil, errors.New("JWT_SECRET is required unless ALLOW_QUERY_IDENTITY=true")
	}
	return config, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file fileConfig
	file.Auction.TurnDuration = c.Auction.TurnDuration
	file.Auction.TickInterval = c.Auction.TickInterval
	file.Auction.Duration = c.Auction.AuctionDuration
	file.Auction.Capacity = c.Auction.Capacity
	file.Auction.AutoJoin = c.Auction.AutoJoin
	file.Auction.DefaultTerms = c.Auction.DefaultTerms
	file.Invitees = c.Invitees
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	c.Auction = auction.Settings{
		TurnDuration:    file.Auction.TurnDuration,
		TickInterval:    file.Auction.TickInterval,
		AuctionDuration: file.Auction.Duration,
		Capacity:        file.Auction.Capacity,
		AutoJoin:        file.Auction.AutoJoin,
		DefaultTerms:    file.Auction.DefaultTerms,
	}
	c.Invitees = file.Invitees
	return nil
}
