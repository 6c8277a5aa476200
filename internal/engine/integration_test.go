package engine_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadowsim/corengine/internal/config"
	"github.com/shadowsim/corengine/internal/engine"
	"github.com/shadowsim/corengine/internal/host"
	"github.com/shadowsim/corengine/internal/simtime"
)

// pingPong wires two hosts that bounce a message back and forth, each
// hop exactly minTimeJump later, and counts hops received per host.
func pingPong(t *testing.T, nWorkers uint) []int {
	t.Helper()

	const minTimeJump = 10
	const endTime = 1000
	const maxHops = 50

	eng, err := engine.New(&config.Config{MinTimeJump: minTimeJump, EndTime: endTime, TopologyPath: "x"}, nil)
	require.NoError(t, err)
	require.NoError(t, eng.SetupWorkers(nWorkers))
	defer eng.TeardownWorkers()

	hopCounts := make([]int, 2)

	var hostA, hostB *host.Host
	deliver := func(selfIdx int, other func() *host.Host) host.DeliverFunc {
		return func(w *engine.Worker, ev engine.Event) {
			hopCounts[selfIdx]++
			hop := ev.Payload().(int)
			if hop >= maxHops {
				return
			}
			next := engine.NewEvent(ev.DeliveryTime()+minTimeJump, engine.HostID(selfIdx+1), other().ID(), hop+1)
			_ = w.PushEvent(next)
		}
	}

	hostA = host.New(1, deliver(0, func() *host.Host { return hostB }))
	hostB = host.New(2, deliver(1, func() *host.Host { return hostA }))
	eng.RegisterHost(hostA)
	eng.RegisterHost(hostB)

	hostA.PushLocalEvent(engine.NewEvent(5, 0, 1, 0))

	eng.Run()

	return hopCounts
}

func TestIntegration_PingPongDeterministicAcrossWorkerCounts(t *testing.T) {
	single := pingPong(t, 0)
	parallel := pingPong(t, 4)
	require.Equal(t, single, parallel)
	require.Greater(t, single[0]+single[1], 0)
}

// ringRelay wires four hosts in a ring; two tokens circulate, each hop
// exactly minTimeJump later, until each token has made maxHops hops. The
// per-host delivery sequences (hop, time, sequence number) are returned
// for byte-for-byte comparison across runs.
func ringRelay(t *testing.T, nWorkers uint) [][]string {
	t.Helper()

	const minTimeJump = 10
	const endTime = 20500
	const nHosts = 4
	const maxHops = 1000

	eng, err := engine.New(&config.Config{MinTimeJump: minTimeJump, EndTime: endTime, TopologyPath: "x"}, nil)
	require.NoError(t, err)
	require.NoError(t, eng.SetupWorkers(nWorkers))
	defer eng.TeardownWorkers()

	seqs := make([][]string, nHosts)
	for i := 0; i < nHosts; i++ {
		i := i
		self := engine.HostID(i + 1)
		next := engine.HostID((i+1)%nHosts + 1)
		h := host.New(self, func(w *engine.Worker, ev engine.Event) {
			hop := ev.Payload().(int)
			seqs[i] = append(seqs[i], fmt.Sprintf("%d@%d#%d", hop, ev.DeliveryTime(), ev.SequenceNumber()))
			if hop < maxHops {
				_ = w.PushEvent(engine.NewEvent(ev.DeliveryTime()+minTimeJump, self, next, hop+1))
			}
		})
		eng.RegisterHost(h)
		if i == 0 {
			h.PushLocalEvent(engine.NewEvent(3, 0, self, 0))
		}
		if i == 2 {
			h.PushLocalEvent(engine.NewEvent(7, 0, self, 0))
		}
	}

	eng.Run()
	return seqs
}

func TestIntegration_RingRelayDeterministicAcrossWorkerCounts(t *testing.T) {
	single := ringRelay(t, 0)
	parallel := ringRelay(t, 4)
	require.Equal(t, single, parallel)

	total := 0
	for _, s := range single {
		total += len(s)
	}
	require.Equal(t, 2*(1000+1), total)
}

func TestIntegration_LookaheadViolationAbortsRun(t *testing.T) {
	eng, err := engine.New(&config.Config{MinTimeJump: 1000, EndTime: 100000, TopologyPath: "x"}, nil)
	require.NoError(t, err)
	require.NoError(t, eng.SetupWorkers(0))
	defer eng.TeardownWorkers()

	// Host 1 schedules a cross-host event only half a window out.
	hostA := host.New(1, func(w *engine.Worker, ev engine.Event) {
		err := w.PushEvent(engine.NewEvent(ev.DeliveryTime()+500, 1, 2, nil))
		require.Error(t, err)
	})
	hostB := host.New(2, func(w *engine.Worker, ev engine.Event) {})
	eng.RegisterHost(hostA)
	eng.RegisterHost(hostB)
	hostA.PushLocalEvent(engine.NewEvent(10, 0, 1, nil))

	code := eng.Run()

	require.NotZero(t, code)
	require.True(t, eng.IsKilled())

	var violation *engine.LookaheadViolationError
	require.ErrorAs(t, eng.FatalErr(), &violation)
	require.Less(t, eng.Clock(), simtime.Time(100000))
}

func TestIntegration_ClockNeverExceedsEndTimeByMoreThanOneWindow(t *testing.T) {
	eng, err := engine.New(&config.Config{MinTimeJump: 7, EndTime: 100, TopologyPath: "x"}, nil)
	require.NoError(t, err)
	require.NoError(t, eng.SetupWorkers(0))
	eng.Run()
	require.GreaterOrEqual(t, eng.Clock(), simtime.Time(100))
	require.LessOrEqual(t, eng.Clock(), simtime.Time(100+7))
}
