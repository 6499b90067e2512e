package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/medassist/backend/internal/model/genai"
)

// FileConfig 是可选的 YAML 配置文件，环境变量优先级高于文件。
type FileConfig struct {
	Server   FileServer   `yaml:"server"`
	Gemini   FileGemini   `yaml:"gemini"`
	Database FileDatabase `yaml:"database"`
	Events   FileEvents   `yaml:"events"`
}

// FileServer HTTP 相关
type FileServer struct {
	Port               string   `yaml:"port"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// FileGemini 模型调用相关，API Key 只从环境变量读取
type FileGemini struct {
	BaseURL         string                  `yaml:"base_url"`
	Model           string                  `yaml:"model"`
	TimeoutSeconds  int                     `yaml:"timeout_seconds"`
	SafetyThreshold string                  `yaml:"safety_threshold"`
	SafetySettings  []genai.SafetySetting   `yaml:"safety_settings"`
	Generation      *genai.GenerationConfig `yaml:"generation"`
	Preamble        string                  `yaml:"preamble"`
}

// FileDatabase 药房数据存储
type FileDatabase struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// FileEvents 消息事件发布
type FileEvents struct {
	NatsURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// LoadFile reads and validates a YAML config file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseFile(data)
}

// ParseFile unmarshals YAML bytes into a validated FileConfig.
func ParseFile(data []byte) (*FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *FileConfig) validate() error {
	var errs []string
	if c.Gemini.TimeoutSeconds < 0 {
		errs = append(errs, "gemini.timeout_seconds must not be negative")
	}
	for i, s := range c.Gemini.SafetySettings {
		if strings.TrimSpace(s.Category) == "" {
			errs = append(errs, fmt.Sprintf("gemini.safety_settings[%d].category is required", i))
		}
		if strings.TrimSpace(s.Threshold) == "" {
			errs = append(errs, fmt.Sprintf("gemini.safety_settings[%d].threshold is required", i))
		}
	}
	switch strings.ToLower(c.Database.Driver) {
	case "", DriverSQLite, DriverMySQL:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
