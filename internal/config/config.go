package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zhouzirui/medassist/backend/internal/model/genai"
	"github.com/zhouzirui/medassist/backend/internal/service/ai"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Gemini   GeminiConfig
	Database DatabaseConfig
	Events   EventsConfig
}

// Load 从环境变量加载配置；若设置了 CONFIG_FILE，文件中的值作为默认值。
func Load() (*Config, error) {
	file := &FileConfig{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}

	server, err := loadServerConfig(file.Server)
	if err != nil {
		return nil, err
	}

	gemini, err := loadGeminiConfig(file.Gemini)
	if err != nil {
		return nil, err
	}

	database, err := loadDatabaseConfig(file.Database)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Gemini:   gemini,
		Database: database,
		Events:   loadEventsConfig(file.Events),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig(file FileServer) (ServerConfig, error) {
	port := getEnvOrDefault("PORT", file.Port)
	if port == "" {
		port = "8080"
	}

	origins := file.CORSAllowedOrigins
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		origins = splitList(raw)
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// GeminiConfig 描述生成式模型调用配置。
type GeminiConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	Timeout          time.Duration
	SafetySettings   []genai.SafetySetting
	GenerationConfig *genai.GenerationConfig
	Preamble         string
}

// Enabled 表示是否提供了必需的密钥。
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}

// NewClient 使用配置创建模型网关。
func (c GeminiConfig) NewClient() (*ai.Client, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("GEMINI_API_KEY 未配置")
	}
	return ai.NewClient(ai.ClientConfig{
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Model:   c.Model,
		Timeout: c.Timeout,
	})
}

// Composer 返回按配置构造的请求组装器。
func (c GeminiConfig) Composer() ai.Composer {
	return ai.NewComposer(c.SafetySettings, c.GenerationConfig)
}

func loadGeminiConfig(file FileGemini) (GeminiConfig, error) {
	timeoutSeconds := int(ai.DefaultTimeout / time.Second)
	if file.TimeoutSeconds > 0 {
		timeoutSeconds = file.TimeoutSeconds
	}
	override, err := parseOptionalIntEnv("GEMINI_TIMEOUT")
	if err != nil {
		return GeminiConfig{}, err
	}
	if override != nil {
		if *override < 1 {
			return GeminiConfig{}, fmt.Errorf("invalid GEMINI_TIMEOUT value %d: must be at least 1 second", *override)
		}
		timeoutSeconds = *override
	}

	safety := file.SafetySettings
	threshold := getEnvOrDefault("GEMINI_SAFETY_THRESHOLD", file.SafetyThreshold)
	if len(safety) == 0 || os.Getenv("GEMINI_SAFETY_THRESHOLD") != "" {
		safety = genai.DefaultSafetySettings(threshold)
	}

	generation := file.Generation
	maxTokens, err := parseOptionalIntEnv("GEMINI_MAX_OUTPUT_TOKENS")
	if err != nil {
		return GeminiConfig{}, err
	}
	temperature, err := parseOptionalFloatEnv("GEMINI_TEMPERATURE")
	if err != nil {
		return GeminiConfig{}, err
	}
	if maxTokens != nil || temperature != nil {
		merged := genai.GenerationConfig{}
		if generation != nil {
			merged = *generation
		}
		if maxTokens != nil {
			merged.MaxOutputTokens = maxTokens
		}
		if temperature != nil {
			merged.Temperature = temperature
		}
		generation = &merged
	}

	return GeminiConfig{
		APIKey:           strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		BaseURL:          getEnvOrDefault("GEMINI_BASE_URL", firstNonEmpty(file.BaseURL, ai.DefaultBaseURL)),
		Model:            getEnvOrDefault("GEMINI_MODEL", firstNonEmpty(file.Model, ai.DefaultModel)),
		Timeout:          time.Duration(timeoutSeconds) * time.Second,
		SafetySettings:   safety,
		GenerationConfig: generation,
		Preamble:         strings.TrimSpace(file.Preamble),
	}, nil
}

// DatabaseConfig 描述药房数据存储。
type DatabaseConfig struct {
	Driver string
	DSN    string
}

func loadDatabaseConfig(file FileDatabase) (DatabaseConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("DB_DRIVER", firstNonEmpty(file.Driver, DriverSQLite)))
	switch driver {
	case DriverSQLite, DriverMySQL:
	default:
		return DatabaseConfig{}, fmt.Errorf("invalid DB_DRIVER value %q", driver)
	}

	defaultDSN := "file:medassist.db?_busy_timeout=5000"
	if driver == DriverMySQL {
		defaultDSN = "root@tcp(127.0.0.1:3306)/medassist?parseTime=true"
	}

	return DatabaseConfig{
		Driver: driver,
		DSN:    getEnvOrDefault("DB_DSN", firstNonEmpty(file.DSN, defaultDSN)),
	}, nil
}

// EventsConfig 描述会话事件发布；NatsURL 为空时不发布。
type EventsConfig struct {
	NatsURL       string
	SubjectPrefix string
}

// Enabled 表示是否配置了 NATS。
func (c EventsConfig) Enabled() bool {
	return c.NatsURL != ""
}

func loadEventsConfig(file FileEvents) EventsConfig {
	return EventsConfig{
		NatsURL:       getEnvOrDefault("NATS_URL", file.NatsURL),
		SubjectPrefix: getEnvOrDefault("NATS_SUBJECT_PREFIX", firstNonEmpty(file.SubjectPrefix, "medassist.chat")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
