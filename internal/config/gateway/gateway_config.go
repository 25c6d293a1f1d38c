package gateway

// GatewayConfig holds settings for the HTTP host that fronts the plugin.
type GatewayConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
	// EventBuffer is the size of the publish bus buffer.
	EventBuffer int `json:"eventBuffer" yaml:"eventBuffer"`
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{Host: "127.0.0.1", Port: 18790, EventBuffer: 100}
}
