package channel

// SlackConfig configures the Slack connection.
//
// The bot token is deliberately absent: it is a credential owned by the
// settings store and only ever written through the settings hook.
type SlackConfig struct {
	// AppToken is the app-level (xapp-) token used for Socket Mode.
	// Without it the bot can post but no mentions are relayed.
	AppToken string `json:"appToken" yaml:"appToken"`
	Debug    bool   `json:"debug" yaml:"debug"`
	// ChannelTypes passed to conversations.list.
	ChannelTypes []string `json:"channelTypes" yaml:"channelTypes"`
}

func DefaultSlackConfig() SlackConfig {
	return SlackConfig{
		ChannelTypes: []string{"public_channel", "private_channel"},
	}
}
