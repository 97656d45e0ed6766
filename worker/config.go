package worker

import "time"

type WorkerConfiguration struct {
	// WorkerId is the logical target worker id requests are addressed to.
	WorkerId string
	// ReplicaId names this process on the partition ring.
	ReplicaId    string
	Namespace    string
	BlockTimeout time.Duration
}
