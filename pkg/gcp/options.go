// Package gcp holds the credential wiring shared by the Pub/Sub and BigQuery clients.
package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/shootpay-backend/pkg/config"
)

// ClientOptions picks inline JSON credentials over a credentials file. With neither set the
// SDKs fall back to application default credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.ApplicationCredentials)}
	default:
		return nil
	}
}

// ProjectID returns the trimmed project id or "" when unset.
func ProjectID(cfg config.GCPConfig) string {
	return strings.TrimSpace(cfg.ProjectID)
}
