package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-cleanup/internal/models/entities"
)

func TestAnalysisOrchestrator_AtMostOneInFlight(t *testing.T) {
	h := newHarness(t, map[int64]entities.CandidateStatus{})
	h.candRepo.gate = make(chan struct{})

	first, err := h.analysis.Run(context.Background(), entities.AnalysisRequest{AutoApprove: false})
	require.NoError(t, err)

	_, err = h.analysis.Run(context.Background(), entities.AnalysisRequest{AutoApprove: true})
	assert.ErrorIs(t, err, entities.ErrBusy)
	assert.True(t, h.runner.Busy(entities.CommandAnalysis))

	close(h.candRepo.gate)
	require.Equal(t, entities.TaskCompleted, h.wait(t, first).Status)
	assert.False(t, h.runner.Busy(entities.CommandAnalysis))

	second, err := h.analysis.Run(context.Background(), entities.AnalysisRequest{AutoApprove: true})
	require.NoError(t, err)
	h.wait(t, second)

	// Отклоненная отправка не ставится в очередь
	assert.Equal(t, []bool{false, true}, h.candRepo.analyses)
}

func TestAnalysisOrchestrator_RefreshesSnapshotsOnSuccess(t *testing.T) {
	h := newHarness(t, map[int64]entities.CandidateStatus{})
	calls := h.infoRepo.calls

	id, err := h.analysis.Run(context.Background(), entities.AnalysisRequest{AutoApprove: true})
	require.NoError(t, err)

	res := h.wait(t, id)
	require.Equal(t, entities.TaskCompleted, res.Status)

	ar, ok := res.Result.(*AnalysisResult)
	require.True(t, ok)
	assert.True(t, ar.AutoApprove)
	assert.Equal(t, 1, ar.Candidates)

	// Статус новых кандидатов определяет процедура анализа
	assert.Equal(t, map[int64]entities.CandidateStatus{101: entities.StatusApproved}, h.snapshot(t))

	info, err := h.dashboard.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "warehouse", info.Name)
	assert.Equal(t, calls+1, h.infoRepo.calls)
}

func TestAnalysisOrchestrator_FailureSkipsRefresh(t *testing.T) {
	h := newHarness(t, map[int64]entities.CandidateStatus{})
	h.candRepo.analysisErr = errors.New("procedure run_db_cleanup failed")

	id, err := h.analysis.Run(context.Background(), entities.AnalysisRequest{})
	require.NoError(t, err)

	res := h.wait(t, id)
	assert.Equal(t, entities.TaskFailed, res.Status)
	assert.Zero(t, h.candRepo.listCalls)
	assert.Zero(t, h.infoRepo.calls)
}

func TestAnalysisOrchestrator_NotConnected(t *testing.T) {
	h := newHarness(t, map[int64]entities.CandidateStatus{})
	h.session.connected = false

	_, err := h.analysis.Run(context.Background(), entities.AnalysisRequest{})
	assert.ErrorIs(t, err, entities.ErrNotConnected)
	assert.Empty(t, h.candRepo.analyses)
}
