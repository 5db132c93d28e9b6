package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/shootpay-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		name       string
		collection string
		input      string
		want       string
	}{
		{"short topic", "topics", "sp-escrow-events", "projects/proj/topics/sp-escrow-events"},
		{"qualified topic", "topics", "projects/other/topics/t", "projects/other/topics/t"},
		{"short subscription", "subscriptions", " sub ", "projects/proj/subscriptions/sub"},
		{"wrong collection is expanded", "subscriptions", "projects/other/topics/t", "projects/proj/subscriptions/projects/other/topics/t"},
		{"blank", "topics", "  ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, resourceName("proj", tc.collection, tc.input))
		})
	}
	require.Empty(t, resourceName("", "topics", "t"))
}

func TestValidateRole(t *testing.T) {
	require.NoError(t, validateRole(config.PubSubConfig{EscrowTopic: "t"}, RolePublisher))
	require.ErrorIs(t, validateRole(config.PubSubConfig{AnalyticsSubscription: "s"}, RolePublisher), errTopicRequired)
	require.NoError(t, validateRole(config.PubSubConfig{AnalyticsSubscription: "s"}, RoleSubscriber))
	require.ErrorIs(t, validateRole(config.PubSubConfig{EscrowTopic: "t"}, RoleSubscriber), errSubscriptionRequired)
	require.Error(t, validateRole(config.PubSubConfig{EscrowTopic: "t"}, Role(9)))
}

func TestCheckResource(t *testing.T) {
	require.NoError(t, checkResource("topic", "t", nil))
	require.EqualError(t, checkResource("topic", "t", status.Error(codes.NotFound, "gone")), `topic "t" does not exist`)

	err := checkResource("subscription", "s", status.Error(codes.PermissionDenied, "nope"))
	require.Error(t, err)
	require.Equal(t, codes.PermissionDenied, status.Code(errors.Unwrap(err)))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{EscrowTopic: "t"}, RolePublisher, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClient(t *testing.T) {
	var c *Client
	require.ErrorIs(t, c.Ping(context.Background()), errClientNotInitialized)
	require.Nil(t, c.Publisher("t"))
	require.Nil(t, c.AnalyticsSubscription())
	require.NoError(t, c.Close())
}
