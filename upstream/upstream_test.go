package upstream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResourceNameExpandsNumericID(t *testing.T) {
	got := ResourceName("demo", "us-central1", "12345")
	require.Equal(t, "projects/demo/locations/us-central1/reasoningEngines/12345", got)
}

func TestResourceNamePassesQualifiedNamesThrough(t *testing.T) {
	qualified := "projects/demo/locations/us-central1/reasoningEngines/12345"
	require.Equal(t, qualified, ResourceName("other", "europe-west1", qualified))
	require.Equal(t, "", ResourceName("demo", "us-central1", ""))
	require.Equal(t, "abc123", ResourceName("demo", "us-central1", "abc123"))
}
