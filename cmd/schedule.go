package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Work with scheduled announcements",
}

func init() {
	scheduleCmd.AddCommand(scheduleRunCmd)
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Post a scheduled announcement now",
	Args:  cobra.ExactArgs(1),
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
		res, err := c.Scheduler().RunNow(ctx, args[0])
		if err != nil {
			return err
		}
		if res.IsError() {
			return fmt.Errorf("job %s failed: %s", args[0], res.Error)
		}
		fmt.Printf("✓ %s: %s\n", args[0], res.Success)
		return nil
	},
}
