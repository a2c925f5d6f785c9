package participant_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/absmach/flparticipant/participant"
	"github.com/absmach/flparticipant/participant/mocks"
	pkgerrors "github.com/absmach/flparticipant/pkg/errors"
	"github.com/absmach/flparticipant/pkg/fl"
	"github.com/absmach/flparticipant/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	initialWeights = fl.TrainingResult{Weights: []float64{0, 0, 0}}
	trainedWeights = fl.TrainingResult{Weights: []float64{0.5, 0.25, 0.125}, NumSamples: 64}
)

func newTestService(t *testing.T, anonymous participant.AnonymousClient, trainer participant.Trainer) *participant.Service {
	t.Helper()

	notifier := new(mocks.StatusNotifier)
	notifier.On("NotifyStatus", mock.Anything, mock.Anything).Return(nil).Maybe()

	cfg := participant.Config{
		ParticipantID:     "participant-1",
		Name:              "test-participant",
		HeartbeatInterval: tick,
	}

	return participant.NewService(cfg, anonymous, trainer, notifier, storage.NewInMemoryStorage(), slog.Default())
}

func runService(ctx context.Context, svc *participant.Service) <-chan error {
	errs := make(chan error, 1)
	go func() {
		errs <- svc.Run(ctx)
	}()

	return errs
}

func awaitRun(t *testing.T, errs <-chan error) error {
	t.Helper()

	select {
	case err := <-errs:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("driver did not return")

		return nil
	}
}

// The coordinator selects the participant for round 1, then holds the next
// heartbeat until the upload happened and finishes the session.
func oneRoundScript(uploaded <-chan struct{}) func(call int) (fl.HeartbeatResponse, error) {
	return func(call int) (fl.HeartbeatResponse, error) {
		if call == 1 {
			return selected(1)
		}

		select {
		case <-uploaded:
		case <-time.After(waitTimeout):
		}

		return finish()
	}
}

func TestRunInitializationRound(t *testing.T) {
	t.Parallel()

	uploaded := make(chan struct{})
	aggregator := new(mocks.AggregatorClient)
	aggregator.On("Download", mock.Anything).Return(fl.TrainingInput{Round: 1, Initialize: true}, nil).Once()
	aggregator.On("Upload", mock.Anything, initialWeights).Run(func(mock.Arguments) {
		close(uploaded)
	}).Return(nil).Once()

	coordinator := &scriptedCoordinator{script: oneRoundScript(uploaded), aggregator: aggregator}

	anonymous := new(mocks.AnonymousClient)
	anonymous.On("Rendezvous", mock.Anything).Return(coordinator, nil).Once()

	trainer := new(mocks.Trainer)
	trainer.On("InitWeights", mock.Anything).Return(initialWeights, nil).Once()

	svc := newTestService(t, anonymous, trainer)
	require.NoError(t, awaitRun(t, runService(context.Background(), svc)))

	status := svc.Status()
	assert.Equal(t, participant.Done, status.Phase)
	assert.Equal(t, 1, status.Round)
	assert.Equal(t, uint64(1), status.RoundsDone)

	trainer.AssertNotCalled(t, "TrainRound", mock.Anything, mock.Anything)
	mock.AssertExpectationsForObjects(t, anonymous, aggregator, trainer)

	page, err := svc.ListRounds(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Rounds, 1)
	assert.True(t, page.Rounds[0].Initialization)
}

func TestRunTrainingRound(t *testing.T) {
	t.Parallel()

	input := fl.TrainingInput{Round: 1, Weights: []float64{1, 1, 1}, Hyperparams: map[string]any{"lr": 0.01}}

	uploaded := make(chan struct{})
	aggregator := new(mocks.AggregatorClient)
	aggregator.On("Download", mock.Anything).Return(input, nil).Once()
	aggregator.On("Upload", mock.Anything, trainedWeights).Run(func(mock.Arguments) {
		close(uploaded)
	}).Return(nil).Once()

	coordinator := &scriptedCoordinator{script: oneRoundScript(uploaded), aggregator: aggregator}

	anonymous := new(mocks.AnonymousClient)
	anonymous.On("Rendezvous", mock.Anything).Return(coordinator, nil).Once()

	trainer := new(mocks.Trainer)
	trainer.On("TrainRound", mock.Anything, input).Return(trainedWeights, nil).Once()

	svc := newTestService(t, anonymous, trainer)
	require.NoError(t, awaitRun(t, runService(context.Background(), svc)))

	trainer.AssertNotCalled(t, "InitWeights", mock.Anything)
	mock.AssertExpectationsForObjects(t, anonymous, aggregator, trainer)
	assert.Equal(t, 1, coordinator.forks)

	page, err := svc.ListRounds(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), page.Total)
	require.Len(t, page.Rounds, 1)
	assert.Equal(t, 1, page.Rounds[0].Round)
	assert.False(t, page.Rounds[0].Initialization)
	assert.Equal(t, 64, page.Rounds[0].NumSamples)
	assert.False(t, page.Rounds[0].CompletedAt.Before(page.Rounds[0].StartedAt))
}

func TestListRoundsEmpty(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, new(mocks.AnonymousClient), new(mocks.Trainer))

	page, err := svc.ListRounds(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Rounds)
}

func TestRunTerminalSignals(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc  string
		reply func() (fl.HeartbeatResponse, error)
	}{
		{desc: "finish", reply: finish},
		{desc: "reject", reply: func() (fl.HeartbeatResponse, error) {
			return fl.HeartbeatResponse{State: "reject"}, nil
		}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			coordinator := &scriptedCoordinator{script: func(int) (fl.HeartbeatResponse, error) {
				return tc.reply()
			}}

			anonymous := new(mocks.AnonymousClient)
			anonymous.On("Rendezvous", mock.Anything).Return(coordinator, nil).Once()

			trainer := new(mocks.Trainer)
			svc := newTestService(t, anonymous, trainer)

			require.NoError(t, awaitRun(t, runService(context.Background(), svc)))
			assert.Equal(t, participant.Done, svc.Status().Phase)
			trainer.AssertNotCalled(t, "InitWeights", mock.Anything)
			trainer.AssertNotCalled(t, "TrainRound", mock.Anything, mock.Anything)
		})
	}
}

func TestRunRendezvousFailure(t *testing.T) {
	t.Parallel()

	errRefused := errors.New("connection refused")

	anonymous := new(mocks.AnonymousClient)
	anonymous.On("Rendezvous", mock.Anything).Return(nil, errRefused).Once()

	svc := newTestService(t, anonymous, new(mocks.Trainer))

	err := awaitRun(t, runService(context.Background(), svc))
	assert.ErrorIs(t, err, pkgerrors.ErrRendezvous)
	assert.ErrorIs(t, err, errRefused)
	assert.Equal(t, participant.Waiting, svc.Status().Phase)
}

func TestRunInterruptedDuringRendezvous(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	anonymous := new(mocks.AnonymousClient)
	anonymous.On("Rendezvous", mock.Anything).Run(func(mock.Arguments) {
		cancel()
	}).Return(nil, context.Canceled).Once()

	svc := newTestService(t, anonymous, new(mocks.Trainer))

	err := awaitRun(t, runService(ctx, svc))
	assert.ErrorIs(t, err, pkgerrors.ErrShutdownRequested)
	assert.NotErrorIs(t, err, pkgerrors.ErrRendezvous)
}

func TestRunForkFailure(t *testing.T) {
	t.Parallel()

	errFork := errors.New("dial failed")

	coordinator := new(mocks.CoordinatorClient)
	coordinator.On("Fork").Return(nil, errFork).Once()

	anonymous := new(mocks.AnonymousClient)
	anonymous.On("Rendezvous", mock.Anything).Return(coordinator, nil).Once()

	svc := newTestService(t, anonymous, new(mocks.Trainer))

	err := awaitRun(t, runService(context.Background(), svc))
	assert.ErrorIs(t, err, pkgerrors.ErrRendezvous)
	assert.ErrorIs(t, err, errFork)
	coordinator.AssertNotCalled(t, "Heartbeat", mock.Anything)
}

func TestRunHeartbeatFailureUnblocksDriver(t *testing.T) {
	t.Parallel()

	errLost := errors.New("coordinator gone")
	coordinator := &scriptedCoordinator{script: func(call int) (fl.HeartbeatResponse, error) {
		if call < 3 {
			return standBy()
		}

		return fl.HeartbeatResponse{}, errLost
	}}

	anonymous := new(mocks.AnonymousClient)
	anonymous.On("Rendezvous", mock.Anything).Return(coordinator, nil).Once()

	svc := newTestService(t, anonymous, new(mocks.Trainer))

	err := awaitRun(t, runService(context.Background(), svc))
	assert.ErrorIs(t, err, pkgerrors.ErrHeartbeatFailure)
	assert.ErrorIs(t, err, errLost)
	assert.Equal(t, participant.Done, svc.Status().Phase)
}

func TestRunShutdownWhileWaiting(t *testing.T) {
	t.Parallel()

	coordinator := &scriptedCoordinator{script: func(int) (fl.HeartbeatResponse, error) {
		return standBy()
	}}

	anonymous := new(mocks.AnonymousClient)
	anonymous.On("Rendezvous", mock.Anything).Return(coordinator, nil).Once()

	svc := newTestService(t, anonymous, new(mocks.Trainer))

	ctx, cancel := context.WithCancel(context.Background())
	errs := runService(ctx, svc)

	assert.Eventually(t, func() bool {
		return coordinator.Calls() >= 2
	}, waitTimeout, poll)
	cancel()

	err := awaitRun(t, errs)
	assert.ErrorIs(t, err, pkgerrors.ErrShutdownRequested)
}

func TestRunMalformedResult(t *testing.T) {
	t.Parallel()

	input := fl.TrainingInput{Round: 3, Weights: []float64{1}}

	aggregator := new(mocks.AggregatorClient)
	aggregator.On("Download", mock.Anything).Return(input, nil).Once()

	coordinator := &scriptedCoordinator{script: func(int) (fl.HeartbeatResponse, error) {
		return selected(3)
	}, aggregator: aggregator}

	anonymous := new(mocks.AnonymousClient)
	anonymous.On("Rendezvous", mock.Anything).Return(coordinator, nil).Once()

	trainer := new(mocks.Trainer)
	trainer.On("TrainRound", mock.Anything, input).Return(fl.TrainingResult{NumSamples: 10}, nil).Once()

	svc := newTestService(t, anonymous, trainer)

	err := awaitRun(t, runService(context.Background(), svc))
	assert.ErrorIs(t, err, pkgerrors.ErrMalformedResult)
	aggregator.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestRunTrainerError(t *testing.T) {
	t.Parallel()

	errTrain := errors.New("out of memory")

	aggregator := new(mocks.AggregatorClient)
	aggregator.On("Download", mock.Anything).Return(fl.TrainingInput{Round: 1, Initialize: true}, nil).Once()

	coordinator := &scriptedCoordinator{script: func(int) (fl.HeartbeatResponse, error) {
		return selected(1)
	}, aggregator: aggregator}

	anonymous := new(mocks.AnonymousClient)
	anonymous.On("Rendezvous", mock.Anything).Return(coordinator, nil).Once()

	trainer := new(mocks.Trainer)
	trainer.On("InitWeights", mock.Anything).Return(fl.TrainingResult{}, errTrain).Once()

	svc := newTestService(t, anonymous, trainer)

	err := awaitRun(t, runService(context.Background(), svc))
	assert.ErrorIs(t, err, errTrain)
	aggregator.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestStatusBeforeRendezvous(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, new(mocks.AnonymousClient), new(mocks.Trainer))
	svc.Nudge()

	status := svc.Status()
	assert.Equal(t, "participant-1", status.ParticipantID)
	assert.Equal(t, "test-participant", status.Name)
	assert.Equal(t, participant.Waiting, status.Phase)
	assert.Equal(t, participant.NoRound, status.Round)
	assert.Zero(t, status.RoundsDone)
}
