package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/tokenflow/cluster"
	"github.com/mohitkumar/tokenflow/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDispatcher struct {
	calls int
}

func (c *countingDispatcher) Dispatch(ctx context.Context, req *model.DispatchRequest) error {
	c.calls++
	return nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("b", func(ctx context.Context, req *model.DispatchRequest) error { return nil }))
	require.NoError(t, r.Register("a", func(ctx context.Context, req *model.DispatchRequest) error { return nil }))
	require.Error(t, r.Register("a", func(ctx context.Context, req *model.DispatchRequest) error { return nil }))
	require.Equal(t, []string{"a", "b"}, r.Keys())
	_, ok := r.Get("c")
	require.False(t, ok)
}

func TestLocalDispatch(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("increment", func(ctx context.Context, req *model.DispatchRequest) error {
		n, _ := req.Variables["n"].(int)
		req.Variables["n"] = n + 1
		return nil
	})
	r.MustRegister("fail", func(ctx context.Context, req *model.DispatchRequest) error {
		return errors.New("boom")
	})
	r.MustRegister("panic", func(ctx context.Context, req *model.DispatchRequest) error {
		panic("unexpected")
	})
	d := NewLocalDispatcher(r)

	vars := map[string]any{"n": 1}
	require.NoError(t, d.Dispatch(context.Background(), &model.DispatchRequest{ImplementationKey: "increment", Variables: vars}))
	require.Equal(t, 2, vars["n"], "local dispatch mutates caller variables")

	req := &model.DispatchRequest{ImplementationKey: "increment"}
	require.NoError(t, d.Dispatch(context.Background(), req))
	require.Equal(t, 1, req.Variables["n"])

	err := d.Dispatch(context.Background(), &model.DispatchRequest{ImplementationKey: "fail"})
	require.ErrorIs(t, err, ErrDispatchFailure)
	require.Contains(t, err.Error(), "boom")
	var de *DispatchError
	require.ErrorAs(t, err, &de)
	require.Equal(t, "fail", de.ImplementationKey)

	err = d.Dispatch(context.Background(), &model.DispatchRequest{ImplementationKey: "panic"})
	require.ErrorIs(t, err, ErrDispatchFailure)
	require.Contains(t, err.Error(), "unexpected")

	err = d.Dispatch(context.Background(), &model.DispatchRequest{ImplementationKey: "missing"})
	require.ErrorIs(t, err, ErrHandlerNotFound)
	require.ErrorIs(t, err, ErrDispatchFailure)
}

func TestRouter(t *testing.T) {
	local := &countingDispatcher{}
	remote := &countingDispatcher{}
	router := NewRouter("worker-1", local, remote)

	for _, target := range []string{"", "worker-1", "worker-2", "worker-3"} {
		require.NoError(t, router.Dispatch(context.Background(), &model.DispatchRequest{TargetWorkerId: target}))
	}
	assert.Equal(t, 2, local.calls)
	assert.Equal(t, 2, remote.calls)

	localOnly := NewRouter("worker-1", local, nil)
	require.NoError(t, localOnly.Dispatch(context.Background(), &model.DispatchRequest{TargetWorkerId: "worker-9"}))
	assert.Equal(t, 3, local.calls)
}

func TestEnvelope(t *testing.T) {
	req := &model.DispatchRequest{
		TargetWorkerId:    "payments",
		ImplementationKey: "charge",
		InstanceRef:       "inst-1",
		Attributes:        map[string]string{"currency": "EUR"},
		Variables:         map[string]any{"amount": 42, "tags": []any{"a", "b"}},
	}
	data, err := Encode(req)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "payments", out.TargetWorkerId)
	assert.Equal(t, "charge", out.ImplementationKey)
	assert.Equal(t, "inst-1", out.InstanceRef)
	assert.Equal(t, map[string]string{"currency": "EUR"}, out.Attributes)
	assert.Equal(t, float64(42), out.Variables["amount"])
	assert.Equal(t, []any{"a", "b"}, out.Variables["tags"])

	_, err = Encode(&model.DispatchRequest{Variables: map[string]any{"ch": make(chan int)}})
	require.Error(t, err)
}

func TestEnvelopeTypedCollections(t *testing.T) {
	req := &model.DispatchRequest{
		ImplementationKey: "ship",
		Variables: map[string]any{
			"result":  []string{"gold", "silver"},
			"scores":  []int{3, 5},
			"address": map[string]string{"city": "Pune"},
		},
	}
	data, err := Encode(req)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []any{"gold", "silver"}, out.Variables["result"])
	assert.Equal(t, []any{float64(3), float64(5)}, out.Variables["scores"])
	assert.Equal(t, map[string]any{"city": "Pune"}, out.Variables["address"])
	assert.Equal(t, []string{"gold", "silver"}, req.Variables["result"])
}

func TestRemoteDispatch(t *testing.T) {
	mr := miniredis.RunT(t)
	client := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	defer client.Close()
	ring := cluster.NewRing(cluster.RingConfig{PartitionCount: 4})
	d := NewRemoteDispatcher(client, "tokenflow", ring)

	req := &model.DispatchRequest{
		TargetWorkerId:    "payments",
		ImplementationKey: "charge",
		InstanceRef:       "inst-1",
		Variables:         map[string]any{"amount": 10},
	}
	require.NoError(t, d.Dispatch(context.Background(), req))
	require.Nil(t, req.Variables["charged"])

	key := QueueKey("tokenflow", "payments", ring.Partition("inst-1"))
	items, err := mr.List(key)
	require.NoError(t, err)
	require.Len(t, items, 1)
	out, err := Decode([]byte(items[0]))
	require.NoError(t, err)
	assert.Equal(t, "charge", out.ImplementationKey)
	assert.Equal(t, float64(10), out.Variables["amount"])

	err = d.Dispatch(context.Background(), &model.DispatchRequest{ImplementationKey: "charge"})
	require.ErrorIs(t, err, ErrNoTargetWorker)
}
