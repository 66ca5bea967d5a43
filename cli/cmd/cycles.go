package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clearledger-systems/clearledger-stack/cli/internal/client"
	"github.com/clearledger-systems/clearledger-stack/cli/pkg/output"
)

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Remittance cycles",
	Long:  "Create, lock, allocate and export remittance cycles",
}

var cyclesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a new remittance cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := profileFromFlags(cmd)
		if err != nil {
			return err
		}

		contractID, _ := cmd.Flags().GetString("contract")
		startStr, _ := cmd.Flags().GetString("period-start")
		endStr, _ := cmd.Flags().GetString("period-end")
		if contractID == "" {
			return fmt.Errorf("--contract is required")
		}

		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return fmt.Errorf("invalid --period-start: %w", err)
		}
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return fmt.Errorf("invalid --period-end: %w", err)
		}

		remitClient := client.NewRemitClient(profile.RemitURL)
		cycle, err := remitClient.CreateCycle(&client.CreateCycleRequest{
			ContractID:  contractID,
			PeriodStart: start,
			PeriodEnd:   end,
		})
		if err != nil {
			return fmt.Errorf("failed to create cycle: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat != "table" {
			return output.Render(outputFormat, cycle, nil)
		}

		output.Success("Cycle created")
		output.Info("ID:     %s", cycle.ID)
		output.Info("Period: %s to %s", cycle.PeriodStart.Format("2006-01-02"), cycle.PeriodEnd.Format("2006-01-02"))
		return nil
	},
}

var cyclesLockCmd = &cobra.Command{
	Use:   "lock [id]",
	Short: "Lock a cycle at cutoff",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := profileFromFlags(cmd)
		if err != nil {
			return err
		}

		remitClient := client.NewRemitClient(profile.RemitURL)
		cycle, err := remitClient.LockCycle(args[0])
		if err != nil {
			return fmt.Errorf("failed to lock cycle: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat != "table" {
			return output.Render(outputFormat, cycle, nil)
		}

		output.Success("Cycle %s locked", cycle.ID)
		return nil
	},
}

var cyclesWaterfallCmd = &cobra.Command{
	Use:   "waterfall [id]",
	Short: "Run the waterfall allocation",
	Long:  "Allocate the locked cycle's collections through the contract waterfall",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := profileFromFlags(cmd)
		if err != nil {
			return err
		}

		remitClient := client.NewRemitClient(profile.RemitURL)
		cycle, err := remitClient.CalculateWaterfall(args[0])
		if err != nil {
			return fmt.Errorf("failed to run waterfall: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		return output.Render(outputFormat, cycle, func() *output.Table {
			table := output.NewTable([]string{"Bucket", "Minor units"})
			table.AddRow([]string{"Principal", fmt.Sprintf("%d", cycle.TotalPrincipalMinor)})
			table.AddRow([]string{"Interest", fmt.Sprintf("%d", cycle.TotalInterestMinor)})
			table.AddRow([]string{"Fees", fmt.Sprintf("%d", cycle.TotalFeesMinor)})
			table.AddRow([]string{"Suspense", fmt.Sprintf("%d", cycle.SuspenseMinor)})
			table.AddRow([]string{"Servicer fee", fmt.Sprintf("%d", cycle.ServicerFeeMinor)})
			table.AddRow([]string{"Investor due", fmt.Sprintf("%d", cycle.InvestorDueMinor)})
			return table
		})
	},
}

var cyclesExportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Generate the remittance file",
	Long: `Generate the cycle's remittance file. Release is blocked while the
latest reconciliation snapshot is unbalanced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := profileFromFlags(cmd)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		outFile, _ := cmd.Flags().GetString("out")

		remitClient := client.NewRemitClient(profile.RemitURL)
		content, err := remitClient.Export(args[0], format)
		if err != nil {
			return fmt.Errorf("failed to export cycle: %w", err)
		}

		if outFile == "" {
			outFile = fmt.Sprintf("remittance-%s.%s", args[0], format)
		}
		if err := os.WriteFile(outFile, content, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outFile, err)
		}

		output.Success("Remittance file written to %s (%d bytes)", outFile, len(content))
		return nil
	},
}

var cyclesGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get cycle details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := profileFromFlags(cmd)
		if err != nil {
			return err
		}

		remitClient := client.NewRemitClient(profile.RemitURL)
		cycle, err := remitClient.GetCycle(args[0])
		if err != nil {
			return fmt.Errorf("failed to get cycle: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		return output.Render(outputFormat, cycle, func() *output.Table {
			table := output.NewTable([]string{"Field", "Value"})
			table.AddRow([]string{"ID", cycle.ID})
			table.AddRow([]string{"Contract", cycle.ContractID})
			table.AddRow([]string{"Status", cycle.Status})
			table.AddRow([]string{"Period start", cycle.PeriodStart.Format("2006-01-02")})
			table.AddRow([]string{"Period end", cycle.PeriodEnd.Format("2006-01-02")})
			table.AddRow([]string{"Investor due", fmt.Sprintf("%d", cycle.InvestorDueMinor)})
			table.AddRow([]string{"Servicer fee", fmt.Sprintf("%d", cycle.ServicerFeeMinor)})
			return table
		})
	},
}

func init() {
	cyclesCreateCmd.Flags().String("contract", "", "investor contract id")
	cyclesCreateCmd.Flags().String("period-start", "", "period start (YYYY-MM-DD)")
	cyclesCreateCmd.Flags().String("period-end", "", "period end (YYYY-MM-DD)")
	cyclesExportCmd.Flags().String("format", "csv", "file format: csv or xml")
	cyclesExportCmd.Flags().String("out", "", "output file path")

	cyclesCmd.AddCommand(cyclesCreateCmd)
	cyclesCmd.AddCommand(cyclesGetCmd)
	cyclesCmd.AddCommand(cyclesLockCmd)
	cyclesCmd.AddCommand(cyclesWaterfallCmd)
	cyclesCmd.AddCommand(cyclesExportCmd)
	rootCmd.AddCommand(cyclesCmd)
}
