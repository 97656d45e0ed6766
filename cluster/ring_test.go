package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingPartitions(t *testing.T) {
	ring := NewRing(RingConfig{PartitionCount: 8})
	require.Equal(t, "", ring.Owner(0))

	p := ring.Partition("instance-1")
	require.GreaterOrEqual(t, p, 0)
	require.Less(t, p, 8)
	require.Equal(t, p, ring.Partition("instance-1"))

	ring.Join("replica-a")
	require.Len(t, ring.OwnedBy("replica-a"), 8)
	require.Equal(t, "replica-a", ring.Owner(p))

	ring.Join("replica-b")
	a := ring.OwnedBy("replica-a")
	b := ring.OwnedBy("replica-b")
	require.Equal(t, 8, len(a)+len(b))
	require.NotEmpty(t, b)
	require.Equal(t, []string{"replica-a", "replica-b"}, ring.Members())

	ring.Leave("replica-b")
	require.Len(t, ring.OwnedBy("replica-a"), 8)
	require.Nil(t, ring.OwnedBy("replica-b"))
}
