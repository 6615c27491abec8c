package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunsplit/sunsplit/internal/engine"
	"github.com/sunsplit/sunsplit/internal/experiment"
)

func init() {
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newPauseCmd())
	rootCmd.AddCommand(newCancelCmd())
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Start a draft or paused experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(eng *engine.Engine) error {
				exp, err := eng.Start(context.Background(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Experiment '%s' is now running.\n", exp.Name)
				fmt.Println("Visitors will be assigned to variants per their traffic weights.")
				return nil
			})
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id>",
		Short: "Complete a running experiment and freeze its winner",
		Long: `Stop a running experiment. The significance evaluator freezes the winner
and the final result is printed. Stopping an already-completed experiment
just prints the frozen result again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(eng *engine.Engine) error {
				res, err := eng.Stop(context.Background(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Experiment '%s' completed.\n\n", res.Name)
				printResult(res)
				return nil
			})
		},
	}
}

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <id>",
		Short: "Pause a running experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(eng *engine.Engine) error {
				exp, err := eng.Pause(context.Background(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Experiment '%s' paused. Resume it with: sunsplit start %s\n", exp.Name, exp.ID)
				return nil
			})
		},
	}
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an experiment without declaring a winner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(eng *engine.Engine) error {
				exp, err := eng.Cancel(context.Background(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Experiment '%s' cancelled (state: %s).\n", exp.Name, experiment.StatusCancelled)
				return nil
			})
		},
	}
}
