package plugin

import (
	"context"
	"fmt"
)

// SetSettings intercepts a settings write from the UI. A bottoken value
// (even "") is persisted, blanked in the returned record and triggers Init.
// The returned map is what the host should persist. A failed token write is
// returned as an error; the record must then not be saved and Init is skipped.
func (p *Plugin) SetSettings(ctx context.Context, settings map[string]any) (map[string]any, error) {
	v, ok := settings[TokenKey]
	if !ok || v == nil {
		return settings, nil
	}

	token, isString := v.(string)
	if !isString {
		token = fmt.Sprint(v)
	}
	settings[TokenKey] = ""
	if err := p.store.SetItem(TokenKey, token); err != nil {
		p.log.Error("settings: storing bot token failed", "err", err)
		return settings, fmt.Errorf("store %s: %w", TokenKey, err)
	}

	if err := p.Init(ctx); err != nil {
		p.log.Warn("settings: reconnect after token change failed", "err", err)
	}
	return settings, nil
}
