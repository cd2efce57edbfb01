// Package config defines the configuration schema for roadscout.
//
// JSON keys use camelCase; the file lives at ~/.roadscout/config.json.
package config

// LLMConfig holds credentials for the language-model endpoint.
// Any OpenAI-compatible chat-completions API works.
type LLMConfig struct {
	APIKey       string            `json:"apiKey"`
	APIBase      string            `json:"apiBase,omitempty"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty"`
}

// TrafficConfig holds credentials for the mapping/traffic data provider.
type TrafficConfig struct {
	APIKey         string `json:"apiKey"`
	APIBase        string `json:"apiBase,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

func defaultTrafficConfig() TrafficConfig {
	return TrafficConfig{TimeoutSeconds: 10}
}

// AgentDefaults holds default values for conversation behaviour.
type AgentDefaults struct {
	Model         string  `json:"model"`
	MaxTokens     int     `json:"maxTokens"`
	Temperature   float64 `json:"temperature"`
	MaxToolCycles int     `json:"maxToolCycles"`
	HistoryWindow int     `json:"historyWindow"`
}

func defaultAgentDefaults() AgentDefaults {
	return AgentDefaults{
		Model:         "gpt-4o-mini",
		MaxTokens:     2048,
		Temperature:   0.3,
		MaxToolCycles: 5,
		HistoryWindow: 10,
	}
}

// AgentsConfig wraps agent defaults.
type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

// TelegramConfig configures the Telegram chat channel.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
}

func defaultTelegramConfig() TelegramConfig {
	return TelegramConfig{AllowFrom: []string{}}
}

// SlackConfig configures the Slack alert channel.
type SlackConfig struct {
	Enabled      bool   `json:"enabled"`
	BotToken     string `json:"botToken"`
	AlertChannel string `json:"alertChannel"`
}

// ChannelsConfig groups all channel configurations.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Slack    SlackConfig    `json:"slack"`
}

func defaultChannelsConfig() ChannelsConfig {
	return ChannelsConfig{Telegram: defaultTelegramConfig()}
}

// GatewayConfig holds HTTP gateway settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func defaultGatewayConfig() GatewayConfig {
	return GatewayConfig{Host: "0.0.0.0", Port: 18530}
}

// MonitorConfig holds trip-monitor settings.
// SaveThresholdMinutes is how many minutes a later departure must save
// before an alert is sent.
type MonitorConfig struct {
	TripsPath            string `json:"tripsPath,omitempty"`
	SaveThresholdMinutes int    `json:"saveThresholdMinutes"`
}

func defaultMonitorConfig() MonitorConfig {
	return MonitorConfig{SaveThresholdMinutes: 10}
}

// Config is the root configuration object, loaded from ~/.roadscout/config.json.
type Config struct {
	Agents   AgentsConfig   `json:"agents"`
	LLM      LLMConfig      `json:"llm"`
	Traffic  TrafficConfig  `json:"traffic"`
	Channels ChannelsConfig `json:"channels"`
	Gateway  GatewayConfig  `json:"gateway"`
	Monitor  MonitorConfig  `json:"monitor"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agents:   AgentsConfig{Defaults: defaultAgentDefaults()},
		Traffic:  defaultTrafficConfig(),
		Channels: defaultChannelsConfig(),
		Gateway:  defaultGatewayConfig(),
		Monitor:  defaultMonitorConfig(),
	}
}
