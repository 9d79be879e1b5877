package jobs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueuePrioritiesFollowConfiguredNotifyQueue(t *testing.T) {
	queues := queuePriorities("notify-eu")
	require.Equal(t, 5, queues["notify-eu"])
	require.Equal(t, 1, queues[QueueDefault])
	require.NotContains(t, queues, QueueNotify)
}

func TestQueuePrioritiesDefault(t *testing.T) {
	queues := queuePriorities("")
	require.Equal(t, map[string]int{QueueNotify: 5, QueueDefault: 1}, queues)
}
