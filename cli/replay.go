package cli

import (
	"fmt"

	"github.com/mobile-next/touchguide/commands"
	"github.com/mobile-next/touchguide/types"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <trace.jsonl>",
	Short: "Replay a recorded pointer trace",
	Long: `Feeds a JSON lines trace of pointer events through the touch exploration
engine on a clock driven by the trace timestamps and prints the resulting events.
Use "-" to read the trace from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		req := commands.ReplayRequest{
			TracePath: args[0],
			Touch:     &cfg.Touch,
			Settle:    replaySettle,
		}
		if cmd.Flags().Changed("focus-element") {
			req.Focus = &types.ElementRef{WindowID: replayFocusWin, ElementID: replayFocusElem}
		}

		response := commands.ReplayCommand(req)
		printJson(response)
		if response.Status == "error" {
			return fmt.Errorf("%s", response.Error)
		}

		return nil
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <points>",
	Short: "Classify a trajectory as a directional gesture",
	Long:  `Classifies a trajectory given as "x,y x,y ..." with the configured gesture thresholds.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		response := commands.ClassifyCommand(commands.ClassifyRequest{
			Points: args[0],
			Touch:  &cfg.Touch,
		})
		printJson(response)
		if response.Status == "error" {
			return fmt.Errorf("%s", response.Error)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(classifyCmd)

	replayCmd.Flags().BoolVar(&replaySettle, "settle", false, "let pending timers fire after the last event")
	replayCmd.Flags().IntVar(&replayFocusWin, "focus-window", 0, "window of the element holding accessibility focus")
	replayCmd.Flags().Int64Var(&replayFocusElem, "focus-element", 0, "element holding accessibility focus; double taps activate it")
}
