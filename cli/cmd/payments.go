package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clearledger-systems/clearledger-stack/cli/internal/client"
	"github.com/clearledger-systems/clearledger-stack/cli/pkg/output"
)

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Payment ingestion",
	Long:  "Submit payments for admission and inspect admitted records",
}

var paymentsIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Submit a payment",
	Long: `Submit a payment for idempotent admission. Either pass a request
file with --file or build one from the individual flags. Resubmitting the
same payment returns the original record flagged as a duplicate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := profileFromFlags(cmd)
		if err != nil {
			return err
		}

		req, err := ingestRequestFromFlags(cmd)
		if err != nil {
			return err
		}

		ingestClient := client.NewIngestClient(profile.IngestURL)
		resp, err := ingestClient.IngestPayment(req)
		if err != nil {
			return fmt.Errorf("failed to ingest payment: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(resp)
		}
		if outputFormat == "yaml" {
			return output.YAML(resp)
		}

		if resp.Duplicate {
			output.Warn("Duplicate submission: returning original record")
		} else {
			output.Success("Payment admitted")
		}
		output.Info("Ingestion ID:    %s", resp.Ingestion.ID)
		output.Info("Idempotency key: %s", resp.Ingestion.IdempotencyKey)
		output.Info("Loan:            %s", resp.Ingestion.LoanID)
		output.Info("Amount (minor):  %d", resp.Ingestion.AmountMinor)
		if resp.ReceiptSignature != "" {
			output.Info("Receipt:         %s", resp.ReceiptSignature)
		}

		return nil
	},
}

var paymentsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get an admitted payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := profileFromFlags(cmd)
		if err != nil {
			return err
		}

		ingestClient := client.NewIngestClient(profile.IngestURL)
		ingestion, err := ingestClient.GetPayment(args[0])
		if err != nil {
			return fmt.Errorf("failed to get payment: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		return output.Render(outputFormat, ingestion, func() *output.Table {
			table := output.NewTable([]string{"Field", "Value"})
			table.AddRow([]string{"ID", ingestion.ID})
			table.AddRow([]string{"Channel", ingestion.Channel})
			table.AddRow([]string{"Reference", ingestion.SourceReference})
			table.AddRow([]string{"Loan", ingestion.LoanID})
			table.AddRow([]string{"Amount (minor)", fmt.Sprintf("%d", ingestion.AmountMinor)})
			table.AddRow([]string{"Value date", ingestion.ValueDate.Format("2006-01-02")})
			table.AddRow([]string{"Idempotency key", ingestion.IdempotencyKey})
			table.AddRow([]string{"Received", ingestion.ReceivedAt.Format("2006-01-02 15:04:05")})
			return table
		})
	},
}

func ingestRequestFromFlags(cmd *cobra.Command) (*client.IngestRequest, error) {
	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read request file: %w", err)
		}
		var req client.IngestRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("failed to parse request file: %w", err)
		}
		return &req, nil
	}

	loanID, _ := cmd.Flags().GetString("loan")
	amount, _ := cmd.Flags().GetInt64("amount")
	channel, _ := cmd.Flags().GetString("channel")
	reference, _ := cmd.Flags().GetString("reference")
	valueDate, _ := cmd.Flags().GetString("value-date")

	if loanID == "" || amount <= 0 || reference == "" {
		return nil, fmt.Errorf("--loan, --amount and --reference are required when --file is not given")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"method":       channel,
		"reference":    reference,
		"value_date":   valueDate,
		"amount_minor": amount,
		"loan_id":      loanID,
	})
	if err != nil {
		return nil, err
	}

	envelope, err := json.Marshal(map[string]interface{}{
		"schema": fmt.Sprintf("payment.%s.v1", channel),
		"data":   json.RawMessage(payload),
	})
	if err != nil {
		return nil, err
	}

	return &client.IngestRequest{
		Channel:            channel,
		SourceReference:    reference,
		RawPayload:         payload,
		NormalizedEnvelope: envelope,
		Method:             channel,
		ValueDate:          valueDate,
		AmountMinor:        amount,
		LoanID:             loanID,
	}, nil
}

func init() {
	paymentsIngestCmd.Flags().String("file", "", "JSON file with the full ingest request")
	paymentsIngestCmd.Flags().String("loan", "", "loan identifier")
	paymentsIngestCmd.Flags().Int64("amount", 0, "amount in minor units")
	paymentsIngestCmd.Flags().String("channel", "ach", "payment channel: ach, wire, check, card, lockbox")
	paymentsIngestCmd.Flags().String("reference", "", "source reference from the channel")
	paymentsIngestCmd.Flags().String("value-date", "", "value date (YYYY-MM-DD)")

	paymentsCmd.AddCommand(paymentsIngestCmd)
	paymentsCmd.AddCommand(paymentsGetCmd)
	rootCmd.AddCommand(paymentsCmd)
}
