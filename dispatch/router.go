package dispatch

import (
	"context"

	"github.com/mohitkumar/tokenflow/model"
)

var _ Dispatcher = new(Router)

// Router runs requests addressed to no worker, or to localWorkerId, in process
// and forwards the rest. A nil remote makes every request local.
type Router struct {
	localWorkerId string
	local         Dispatcher
	remote        Dispatcher
}

func NewRouter(localWorkerId string, local Dispatcher, remote Dispatcher) *Router {
	return &Router{
		localWorkerId: localWorkerId,
		local:         local,
		remote:        remote,
	}
}

func (r *Router) Dispatch(ctx context.Context, req *model.DispatchRequest) error {
	if r.remote == nil || req.TargetWorkerId == "" || req.TargetWorkerId == r.localWorkerId {
		return r.local.Dispatch(ctx, req)
	}
	return r.remote.Dispatch(ctx, req)
}
