package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MegaGrindStone/notebook-chat/internal/handlers"
	"github.com/MegaGrindStone/notebook-chat/internal/services"
	"gopkg.in/yaml.v3"
)

type llmConfig interface {
	llm(systemPrompt string, timeout time.Duration, logger *slog.Logger) (handlers.LLM, error)
}

// BaseLLMConfig contains the common fields for all LLM configurations.
type BaseLLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type config struct {
	Port           string        `yaml:"port"`
	Title          string        `yaml:"title"`
	LogLevel       string        `yaml:"logLevel"`
	Timeout        time.Duration `yaml:"timeout"`
	SystemPrompt   string        `yaml:"systemPrompt"`
	HighlightStyle string        `yaml:"highlightStyle"`
	LLM            llmConfig     `yaml:"llm"`
}

type openRouterConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	Endpoint      string `yaml:"endpoint"`
	Referer       string `yaml:"referer"`
	Title         string `yaml:"title"`
}

type openAIConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string            `yaml:"apiKey"`
	BaseURL       string            `yaml:"baseURL"`
	Headers       map[string]string `yaml:"headers"`
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
}

type anthropicConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	MaxTokens     int    `yaml:"maxTokens"`
	Endpoint      string `yaml:"endpoint"`
}

const (
	defaultPort       = "3000"
	defaultTitle      = "Notebook Chat"
	defaultLogLevel   = "info"
	defaultTimeout    = 60 * time.Second
	defaultOllamaHost = "http://localhost:11434"
)

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port           string         `yaml:"port"`
		Title          string         `yaml:"title"`
		LogLevel       string         `yaml:"logLevel"`
		Timeout        time.Duration  `yaml:"timeout"`
		SystemPrompt   string         `yaml:"systemPrompt"`
		HighlightStyle string         `yaml:"highlightStyle"`
		LLM            map[string]any `yaml:"llm"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	c.Port = rawConfig.Port
	c.Title = rawConfig.Title
	c.LogLevel = rawConfig.LogLevel
	c.Timeout = rawConfig.Timeout
	c.SystemPrompt = rawConfig.SystemPrompt
	c.HighlightStyle = rawConfig.HighlightStyle

	if rawConfig.LLM == nil {
		return nil
	}

	llmProvider, ok := rawConfig.LLM["provider"].(string)
	if !ok {
		return fmt.Errorf("llm provider is required")
	}

	llmRawYAML, err := yaml.Marshal(rawConfig.LLM)
	if err != nil {
		return err
	}

	var llm llmConfig
	switch llmProvider {
	case "openrouter":
		llm = &openRouterConfig{}
	case "openai":
		llm = &openAIConfig{}
	case "ollama":
		llm = &ollamaConfig{}
	case "anthropic":
		llm = &anthropicConfig{}
	default:
		return fmt.Errorf("unknown llm provider: %s", llmProvider)
	}

	if err := yaml.Unmarshal(llmRawYAML, llm); err != nil {
		return err
	}

	c.LLM = llm

	return nil
}

// loadConfig reads the config file at path. A missing or empty file yields the defaults.
func loadConfig(path string) (config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return parseConfig(nil)
		}
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	return parseConfig(f)
}

func parseConfig(r io.Reader) (config, error) {
	cfg := config{}
	if r != nil {
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return config{}, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.LLM == nil {
		cfg.LLM = &openRouterConfig{BaseLLMConfig: BaseLLMConfig{Provider: "openrouter"}}
	}

	return cfg, nil
}

func (o openRouterConfig) llm(systemPrompt string, timeout time.Duration, logger *slog.Logger) (handlers.LLM, error) {
	model := o.Model
	if model == "" {
		model = services.OpenRouterDefaultModel
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openrouter api key is required")
	}

	return services.NewOpenRouter(services.OpenRouterOptions{
		APIKey:       apiKey,
		Model:        model,
		SystemPrompt: systemPrompt,
		Endpoint:     o.Endpoint,
		Referer:      o.Referer,
		Title:        o.Title,
		Timeout:      timeout,
	}, logger), nil
}

func (o openAIConfig) llm(systemPrompt string, timeout time.Duration, logger *slog.Logger) (handlers.LLM, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	return services.NewOpenAI(services.OpenAIOptions{
		APIKey:       apiKey,
		Model:        o.Model,
		SystemPrompt: systemPrompt,
		BaseURL:      o.BaseURL,
		Headers:      o.Headers,
		Timeout:      timeout,
	}, logger), nil
}

func (o ollamaConfig) llm(systemPrompt string, timeout time.Duration, logger *slog.Logger) (handlers.LLM, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = defaultOllamaHost
	}
	return services.NewOllama(host, o.Model, systemPrompt, timeout, logger)
}

func (a anthropicConfig) llm(systemPrompt string, timeout time.Duration, logger *slog.Logger) (handlers.LLM, error) {
	if a.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if a.MaxTokens == 0 {
		return nil, fmt.Errorf("max_tokens is required")
	}

	apiKey := a.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	return services.NewAnthropic(apiKey, a.Model, systemPrompt, a.Endpoint, a.MaxTokens, timeout, logger), nil
}

func parseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}
