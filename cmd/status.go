package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/slackrelay/internal/config"
	"github.com/crystaldolphin/slackrelay/internal/plugin"
	"github.com/crystaldolphin/slackrelay/internal/schedule"
	"github.com/crystaldolphin/slackrelay/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show slackrelay status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}

	fmt.Printf("%s slackrelay Status\n\n", logo)
	fmt.Printf("Config:    %s %s\n", cfgPath, fileMark(cfgPath))

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}
	dbPath := cfg.SettingsPath()
	fmt.Printf("Settings:  %s %s\n", dbPath, fileMark(dbPath))
	fmt.Printf("Gateway:   %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Printf("App token: %s\n", tokenHint(cfg.Slack.AppToken))

	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Printf("Bot token: (settings unavailable: %v)\n", err)
	} else {
		tok, ok, err := st.GetItem(plugin.TokenKey)
		_ = st.Close()
		switch {
		case err != nil:
			fmt.Printf("Bot token: (read failed: %v)\n", err)
		case !ok:
			fmt.Println("Bot token: (not configured)")
		default:
			fmt.Printf("Bot token: %s\n", tokenHint(tok))
		}
	}

	sched, err := schedule.New(cfg.Schedule.Jobs, nil)
	if err != nil {
		fmt.Printf("Schedule:  invalid: %v\n", err)
		return nil
	}
	entries := sched.Entries()
	fmt.Printf("Schedule:  %d job(s)\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %-16s %-24s %s\n", e.Name, e.Spec, e.Text)
	}
	return nil
}

func fileMark(path string) string {
	if _, err := os.Stat(path); err == nil {
		return "✓"
	}
	return "✗"
}

// tokenHint shows only the token prefix.
func tokenHint(s string) string {
	if s == "" {
		return "(not configured)"
	}

	if len(s) > 10 {
		return s[:10] + "..."
	}

	return s[:len(s)/2] + "..."
}
