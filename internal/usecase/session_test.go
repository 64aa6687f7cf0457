package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-cleanup/internal/models/entities"
)

func TestSessionManager_ConnectLoadsSnapshots(t *testing.T) {
	h := newHarness(t, map[int64]entities.CandidateStatus{1: entities.StatusPending})
	h.session.connected = false
	h.configRepo.entries = []entities.ConfigEntry{{Name: "RETENTION_DAYS", Value: "90"}}

	id, err := h.sessions.Connect(context.Background(), entities.ConnectRequest{User: "dba", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, entities.TaskCompleted, h.wait(t, id).Status)

	assert.True(t, h.session.Connected())
	assert.Equal(t, "dba", h.session.User())
	assert.Equal(t, map[int64]entities.CandidateStatus{1: entities.StatusPending}, h.snapshot(t))

	entries, err := h.config.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	info, err := h.dashboard.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "warehouse", info.Name)
}

func TestSessionManager_ConnectFailure(t *testing.T) {
	h := newHarness(t, map[int64]entities.CandidateStatus{})
	h.session.connected = false
	h.session.failWith = errors.New("password authentication failed")

	id, err := h.sessions.Connect(context.Background(), entities.ConnectRequest{User: "dba", Password: "bad"})
	require.NoError(t, err)

	res := h.wait(t, id)
	assert.Equal(t, entities.TaskFailed, res.Status)
	assert.Contains(t, res.ErrorMessage, "authentication")
	assert.False(t, h.session.Connected())
}

func TestSessionManager_ConnectValidatesCredentials(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.sessions.Connect(context.Background(), entities.ConnectRequest{User: "dba"})
	assert.ErrorIs(t, err, entities.ErrEmptyCredentials)
}

func TestSessionManager_DisconnectClearsSnapshots(t *testing.T) {
	h := newHarness(t, map[int64]entities.CandidateStatus{1: entities.StatusPending})
	h.refresh(t)

	require.NoError(t, h.sessions.Disconnect(context.Background()))
	assert.Empty(t, h.snapshot(t))

	assert.ErrorIs(t, h.sessions.Disconnect(context.Background()), entities.ErrNotConnected)
}

func TestSessionManager_DisconnectDropsResultOfRunningTask(t *testing.T) {
	h := newHarness(t, map[int64]entities.CandidateStatus{1: entities.StatusPending})
	h.refresh(t)
	h.candRepo.gate = make(chan struct{})
	h.candRepo.started = make(chan struct{})

	id, err := h.analysis.Run(context.Background(), entities.AnalysisRequest{})
	require.NoError(t, err)
	<-h.candRepo.started

	require.NoError(t, h.sessions.Disconnect(context.Background()))
	close(h.candRepo.gate)

	require.Equal(t, entities.TaskCompleted, h.wait(t, id).Status)
	assert.False(t, h.session.Connected())
	assert.Empty(t, h.snapshot(t))

	info, err := h.dashboard.Info(context.Background())
	require.NoError(t, err)
	assert.Empty(t, info.Name)
}
