package gcp

import (
	"testing"

	"github.com/angelmondragon/shootpay-backend/pkg/config"
)

func TestClientOptionsPrefersInlineJSON(t *testing.T) {
	opts := ClientOptions(config.GCPConfig{
		CredentialsJSON:        `{"type":"service_account"}`,
		ApplicationCredentials: "/var/secrets/gcp.json",
	})
	if len(opts) != 1 {
		t.Fatalf("expected a single credentials option, got %d", len(opts))
	}
}

func TestClientOptionsWithFile(t *testing.T) {
	if opts := ClientOptions(config.GCPConfig{ApplicationCredentials: "/var/secrets/gcp.json"}); len(opts) != 1 {
		t.Fatalf("expected file credentials option, got %d", len(opts))
	}
}

func TestClientOptionsDefaultCredentials(t *testing.T) {
	if opts := ClientOptions(config.GCPConfig{CredentialsJSON: "  "}); len(opts) != 0 {
		t.Fatalf("blank credentials should fall back to ADC, got %d options", len(opts))
	}
	if got := ProjectID(config.GCPConfig{ProjectID: " shootpay-prod "}); got != "shootpay-prod" {
		t.Fatalf("unexpected project id %q", got)
	}
}
