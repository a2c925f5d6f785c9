package participant_test

import (
	"context"
	"sync"

	"github.com/absmach/flparticipant/participant"
	"github.com/absmach/flparticipant/pkg/fl"
)

var _ participant.CoordinatorClient = (*scriptedCoordinator)(nil)

// scriptedCoordinator answers heartbeats from a script indexed by call number.
type scriptedCoordinator struct {
	mu         sync.Mutex
	calls      int
	forks      int
	script     func(call int) (fl.HeartbeatResponse, error)
	aggregator participant.AggregatorClient
}

func (c *scriptedCoordinator) Heartbeat(ctx context.Context) (fl.HeartbeatResponse, error) {
	if err := ctx.Err(); err != nil {
		return fl.HeartbeatResponse{}, err
	}

	c.mu.Lock()
	c.calls++
	call := c.calls
	c.mu.Unlock()

	return c.script(call)
}

func (c *scriptedCoordinator) StartTraining(_ context.Context) (participant.AggregatorClient, error) {
	return c.aggregator, nil
}

func (c *scriptedCoordinator) Fork() (participant.CoordinatorClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forks++

	return c, nil
}

func (c *scriptedCoordinator) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls
}

func standBy() (fl.HeartbeatResponse, error) {
	return fl.HeartbeatResponse{State: "stand_by"}, nil
}

func finish() (fl.HeartbeatResponse, error) {
	return fl.HeartbeatResponse{State: "finish"}, nil
}

func selected(round int) (fl.HeartbeatResponse, error) {
	return fl.HeartbeatResponse{State: "round", Round: &round}, nil
}
