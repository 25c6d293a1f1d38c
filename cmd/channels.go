package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List the channels a post would reach",
	RunE: func(_ *cobra.Command, _ []string) error {
		c, err := openContainer()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := context.Background()
		if err := c.Plugin().Init(ctx); err != nil {
			return err
		}
		chs, err := c.Plugin().ListChannels(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("%-12s %-24s %s\n", "ID", "Name", "Purpose")
		fmt.Println(strings.Repeat("-", 60))
		for _, ch := range chs {
			fmt.Printf("%-12s %-24s %s\n", ch.ID, ch.Name, ch.Purpose)
		}
		return nil
	},
}

var postCmd = &cobra.Command{
	Use:   "post <text...>",
	Short: "Post text to every channel the bot is in",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := openContainer()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := context.Background()
		if err := c.Plugin().Init(ctx); err != nil {
			return err
		}
		res := c.Plugin().Call(ctx, "POST", "post", map[string]string{"text": strings.Join(args, " ")})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		if res.IsError() {
			return fmt.Errorf("post failed: %s", res.Error)
		}
		return nil
	},
}
