package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clearledger-systems/clearledger-stack/cli/internal/client"
	"github.com/clearledger-systems/clearledger-stack/cli/pkg/output"
)

var reconCmd = &cobra.Command{
	Use:   "recon",
	Short: "Cycle reconciliation",
	Long:  "Run reconciliations and inspect snapshots",
}

var reconRunCmd = &cobra.Command{
	Use:   "run [cycle-id]",
	Short: "Reconcile a cycle against the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := profileFromFlags(cmd)
		if err != nil {
			return err
		}

		reviewer, _ := cmd.Flags().GetString("reviewer")
		reconClient := client.NewReconClient(profile.ReconURL)

		snapshot, err := reconClient.Generate(args[0], reviewer)
		if err != nil {
			return fmt.Errorf("failed to run reconciliation: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat != "table" {
			return output.Render(outputFormat, snapshot, nil)
		}

		printSnapshot(snapshot)
		return nil
	},
}

var reconShowCmd = &cobra.Command{
	Use:   "show [cycle-id]",
	Short: "Show reconciliation snapshots",
	Long:  "Show the latest snapshot for a cycle, or all of them with --all",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := profileFromFlags(cmd)
		if err != nil {
			return err
		}

		reconClient := client.NewReconClient(profile.ReconURL)
		outputFormat, _ := cmd.Flags().GetString("output")

		all, _ := cmd.Flags().GetBool("all")
		if all {
			snapshots, err := reconClient.ListSnapshots(args[0])
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}

			return output.Render(outputFormat, snapshots, func() *output.Table {
				table := output.NewTable([]string{"ID", "Balanced", "Investor diff", "Servicer diff", "Reviewer", "Created"})
				for _, s := range snapshots {
					table.AddRow([]string{
						s.ID,
						fmt.Sprintf("%t", s.IsBalanced),
						fmt.Sprintf("%d", s.DiffInvestorMinor),
						fmt.Sprintf("%d", s.DiffServicerMinor),
						s.Reviewer,
						s.CreatedAt.Format("2006-01-02 15:04"),
					})
				}
				return table
			})
		}

		snapshot, err := reconClient.LatestSnapshot(args[0])
		if err != nil {
			return fmt.Errorf("failed to get latest snapshot: %w", err)
		}

		if outputFormat != "table" {
			return output.Render(outputFormat, snapshot, nil)
		}

		printSnapshot(snapshot)
		return nil
	},
}

func printSnapshot(s *client.Snapshot) {
	if s.IsBalanced {
		output.Success("Cycle %s balanced", s.CycleID)
	} else {
		output.Error("Cycle %s UNBALANCED", s.CycleID)
	}
	output.Info("Snapshot:          %s", s.ID)
	output.Info("Investor  remit=%d ledger=%d diff=%d", s.RemitInvestorMinor, s.LedgerInvestorMinor, s.DiffInvestorMinor)
	output.Info("Servicer  remit=%d ledger=%d diff=%d", s.RemitServicerMinor, s.LedgerServicerMinor, s.DiffServicerMinor)
	output.Info("Threshold (minor): %d", s.VarianceThresholdMinor)
	output.Info("Reviewer:          %s", s.Reviewer)
}

func init() {
	reconRunCmd.Flags().String("reviewer", "cli", "reviewer recorded on the snapshot")
	reconShowCmd.Flags().Bool("all", false, "show all snapshots for the cycle")

	reconCmd.AddCommand(reconRunCmd)
	reconCmd.AddCommand(reconShowCmd)
	rootCmd.AddCommand(reconCmd)
}
