package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clearledger-systems/clearledger-stack/cli/internal/client"
	"github.com/clearledger-systems/clearledger-stack/cli/internal/seeder"
	"github.com/clearledger-systems/clearledger-stack/cli/pkg/output"
	natsclient "github.com/clearledger-systems/clearledger-stack/common/messaging/nats"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed fake payment traffic",
	Long: `Generate realistic fake payments for demo and load environments.

By default payments are POSTed to the ingest service. With --broker they
are published as channel envelopes to NATS instead, exercising the
at-least-once pipeline path.

Examples:
  cledger seed --count 100
  cledger seed --count 50 --channel ach
  cledger seed --count 1000 --broker --interval 10ms`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	profile, err := profileFromFlags(cmd)
	if err != nil {
		return err
	}

	count, _ := cmd.Flags().GetInt("count")
	channel, _ := cmd.Flags().GetString("channel")
	broker, _ := cmd.Flags().GetBool("broker")
	interval, _ := cmd.Flags().GetDuration("interval")

	if count <= 0 {
		return fmt.Errorf("--count must be positive")
	}

	var publish func(*seeder.Payment) error
	if broker {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = profile.NATSURL
		natsCfg.Name = "cledger-seeder"

		natsClient, err := natsclient.NewClient(natsCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsClient.Close()

		publish = func(p *seeder.Payment) error {
			return natsClient.Publish(context.Background(), p.Subject, p.Envelope)
		}
	} else {
		ingestClient := client.NewIngestClient(profile.IngestURL)
		publish = func(p *seeder.Payment) error {
			_, err := ingestClient.IngestPayment(p.Request)
			return err
		}
	}

	sent := 0
	failed := 0
	byChannel := make(map[string]int)
	start := time.Now()

	for i := 0; i < count; i++ {
		payment, err := seeder.Generate(channel)
		if err != nil {
			return err
		}

		if err := publish(payment); err != nil {
			failed++
			if failed <= 5 {
				output.Warn("send failed: %v", err)
			}
			continue
		}

		sent++
		byChannel[payment.Channel]++

		if interval > 0 && i < count-1 {
			time.Sleep(interval)
		}
	}

	elapsed := time.Since(start)
	output.Success("Sent %d payments in %s (%d failed)", sent, elapsed.Round(time.Millisecond), failed)
	for _, ch := range seeder.Channels() {
		if byChannel[ch] > 0 {
			output.Info("  %-8s %d", ch, byChannel[ch])
		}
	}

	return nil
}

func init() {
	seedCmd.Flags().Int("count", 10, "number of payments to generate")
	seedCmd.Flags().String("channel", "", "fix the payment channel (default: weighted random)")
	seedCmd.Flags().Bool("broker", false, "publish envelopes to NATS instead of POSTing to ingest")
	seedCmd.Flags().Duration("interval", 0, "pause between payments")

	rootCmd.AddCommand(seedCmd)
}
