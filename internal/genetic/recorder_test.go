package genetic_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/udisondev/horde/internal/genetic"
	"github.com/udisondev/horde/internal/genetic/mocks"
)

func TestRecorder_SavesQueuedGenerations(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockGenerationStore(ctrl)
	sessionID := uuid.New()

	done := make(chan struct{})
	store.EXPECT().
		SaveGeneration(gomock.Any(), sessionID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, gen genetic.Generation) error {
			if gen.Number == 2 {
				close(done)
			}
			return nil
		}).
		Times(2)

	rec := genetic.NewRecorder(store, 4)
	require.True(t, rec.Record(sessionID, genetic.Generation{Number: 1}))
	require.True(t, rec.Record(sessionID, genetic.Generation{Number: 2}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- rec.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("generations were not saved")
	}
	cancel()
	require.NoError(t, <-errCh)
	assert.EqualValues(t, 2, rec.Saved())
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockGenerationStore(ctrl)
	rec := genetic.NewRecorder(store, 1)
	id := uuid.New()

	assert.True(t, rec.Record(id, genetic.Generation{Number: 1}))
	assert.False(t, rec.Record(id, genetic.Generation{Number: 2}))
	assert.EqualValues(t, 1, rec.Dropped())
}

func TestRecorder_FlushesOnShutdownAndSurvivesErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockGenerationStore(ctrl)
	id := uuid.New()
	gomock.InOrder(
		store.EXPECT().SaveGeneration(gomock.Any(), id, gomock.Any()).Return(errors.New("connection reset")),
		store.EXPECT().SaveGeneration(gomock.Any(), id, gomock.Any()).Return(nil),
	)

	rec := genetic.NewRecorder(store, 4)
	rec.Record(id, genetic.Generation{Number: 1})
	rec.Record(id, genetic.Generation{Number: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, rec.Run(ctx))
	assert.EqualValues(t, 1, rec.Saved())
}

func TestRecorder_HookedToEngine(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockGenerationStore(ctrl)
	id := uuid.New()
	store.EXPECT().
		SaveGeneration(gomock.Any(), id, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, gen genetic.Generation) error {
			assert.Equal(t, 1, gen.Number)
			assert.Len(t, gen.Members, 10)
			return nil
		})

	cfg := genetic.DefaultConfig()
	cfg.Seed = 21
	engine := genetic.NewEngine(cfg)
	rec := genetic.NewRecorder(store, 4)
	engine.SetEvolvedFunc(func(g genetic.Generation) { rec.Record(id, g) })

	for range 5 {
		engine.ReportFitness(engine.NextGenes(), 3, 3)
	}
	require.True(t, engine.Evolve())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rec.Run(ctx))
}
