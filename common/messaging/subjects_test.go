package messaging

import "testing"

func TestPaymentSubject(t *testing.T) {
	tests := []struct {
		channel string
		phase   string
		want    string
	}{
		{channel: "ach", phase: PhaseInitiated, want: "payments.ach.initiated"},
		{channel: "wire", phase: PhaseValidated, want: "payments.wire.validated"},
		{channel: "lockbox", phase: PhaseProcessed, want: "payments.lockbox.processed"},
	}

	for _, tt := range tests {
		if got := PaymentSubject(tt.channel, tt.phase); got != tt.want {
			t.Errorf("PaymentSubject(%q, %q) = %q, want %q", tt.channel, tt.phase, got, tt.want)
		}
	}
}

func TestPaymentChannelSubject(t *testing.T) {
	if got := PaymentChannelSubject("check"); got != "payments.check.>" {
		t.Errorf("PaymentChannelSubject(check) = %q", got)
	}
}

func TestPaymentPhaseSubject(t *testing.T) {
	if got := PaymentPhaseSubject(PhaseInitiated); got != "payments.*.initiated" {
		t.Errorf("PaymentPhaseSubject(initiated) = %q", got)
	}
}
