package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server        Server        `mapstructure:"server"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Storage       Storage       `mapstructure:"storage"`
	Model         Model         `mapstructure:"model"`
	Auth          Auth          `mapstructure:"auth"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Server holds HTTP gateway configuration.
type Server struct {
	Listen          string   `mapstructure:"listen"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	MaxContextChars int      `mapstructure:"max_context_chars"`
}

// Elasticsearch holds ES connection configuration.
type Elasticsearch struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	PageSize  int      `mapstructure:"page_size"`
}

// Storage holds S3/MinIO storage configuration.
type Storage struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	PublicBaseURL   string `mapstructure:"public_base_url"` // derived from bucket and region when empty
}

// Model holds text-generation configuration.
type Model struct {
	Region          string   `mapstructure:"region"`
	Endpoint        string   `mapstructure:"endpoint"`
	AccessKeyID     string   `mapstructure:"access_key_id"`
	SecretAccessKey string   `mapstructure:"secret_access_key"`
	Primary         string   `mapstructure:"primary"`
	Fallback        string   `mapstructure:"fallback"`
	MaxTokens       int      `mapstructure:"max_tokens"`
	Temperature     float64  `mapstructure:"temperature"`
	TopP            float64  `mapstructure:"top_p"`
	FallbackCodes   []string `mapstructure:"fallback_codes"`
	FallbackMarkers []string `mapstructure:"fallback_markers"`
}

// Auth holds account and session configuration.
type Auth struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Server: Server{
			Listen:          ":8080",
			CORSOrigins:     []string{"*"},
			MaxContextChars: 12000,
		},
		Elasticsearch: Elasticsearch{
			Addresses: []string{"http://localhost:9200"},
			Index:     "ragchat-documents",
			PageSize:  5,
		},
		Storage: Storage{
			Endpoint:        "localhost:9002",
			Bucket:          "ragchat",
			Region:          "us-east-1",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		Model: Model{
			Region:          "us-east-1",
			Primary:         "anthropic.claude-3-5-sonnet-20240620-v1:0",
			Fallback:        "amazon.titan-text-express-v1",
			MaxTokens:       600,
			Temperature:     0.4,
			TopP:            0.9,
			FallbackCodes:   []string{"AccessDeniedException", "ResourceNotFoundException"},
			FallbackMarkers: []string{"use case details"},
		},
		Auth: Auth{
			RedisAddr:  "localhost:6379",
			SessionTTL: 7 * 24 * time.Hour,
		},
		MCP: MCP{
			Name:    "ragchat",
			Version: "1.0.0",
		},
	}
}
