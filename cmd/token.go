package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/crystaldolphin/slackrelay/internal/plugin"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the Slack bot token",
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenClearCmd)
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the bot token and test the connection",
	Long:  "Store the bot token through the plugin's settings hook. Without an argument the token is read from an interactive prompt.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTokenSet,
}

func runTokenSet(_ *cobra.Command, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		prompt := &survey.Password{Message: "Slack bot token (xoxb-...):"}
		if err := survey.AskOne(prompt, &token, survey.WithValidator(survey.Required)); err != nil {
			return fmt.Errorf("read token: %w", err)
		}
	}
	token = strings.TrimSpace(token)

	c, err := openContainer()
	if err != nil {
		return err
	}
	defer c.Close()

	record, err := c.Store().UISettings()
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	record[plugin.TokenKey] = token

	out, err := c.Plugin().SetSettings(context.Background(), record)
	if err != nil {
		return err
	}
	if err := c.Store().SaveUISettings(out); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	fmt.Println("✓ Bot token stored")
	if c.Plugin().Connected() {
		fmt.Println("✓ Connected to Slack")
		return nil
	}
	// SetSettings already attempted the connection; repeat it for the cause.
	if err := c.Plugin().Init(context.Background()); err != nil {
		var ie *plugin.InitError
		if errors.As(err, &ie) {
			return fmt.Errorf("token stored but connection failed: %s", ie.Detail())
		}
		return err
	}
	return nil
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored bot token",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		c, err := openContainer()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Store().DeleteItem(plugin.TokenKey); err != nil {
			return fmt.Errorf("delete token: %w", err)
		}
		fmt.Println("✓ Bot token removed")
		return nil
	},
}
