package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes"

	"github.com/customeros/lexsync/dto"
	cron_config "github.com/customeros/lexsync/internal/cron/config"
	"github.com/customeros/lexsync/internal/logger"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

type countingImporter struct {
	runs    atomic.Int32
	resyncs atomic.Int32
	limit   atomic.Int32
	err     error
}

func (i *countingImporter) RunOnce(context.Context, dto.FetchFilter) (*dto.ImportSummary, error) {
	i.runs.Add(1)
	return &dto.ImportSummary{}, i.err
}

func (i *countingImporter) Resync(_ context.Context, limit int) (*dto.ImportSummary, error) {
	i.resyncs.Add(1)
	i.limit.Store(int32(limit))
	return &dto.ImportSummary{}, i.err
}

func testConfig() *cron_config.Config {
	return &cron_config.Config{
		CronScheduleHeartbeat: "0 * * * * *",
		CronScheduleImport:    "0 */5 * * * *",
		CronScheduleResync:    "0 30 * * * *",
		ResyncLimit:           25,
		LeaseName:             "lexsync-cron-leader",
	}
}

func TestNewCronManager(t *testing.T) {
	log := logger.NewNopLogger()
	k8s := &mockKubernetesInterface{}
	importer := &countingImporter{}

	cm := NewCronManager(testConfig(), "pod-1", log, k8s, importer)

	assert.NotNil(t, cm)
	assert.Equal(t, "pod-1", cm.podName)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	cm := NewCronManager(testConfig(), "pod-1", logger.NewNopLogger(), nil, &countingImporter{})

	require.NoError(t, cm.registerJobs(cronv3.New(cronv3.WithSeconds())))

	assert.Len(t, cm.jobIDs, 3)
	assert.Contains(t, cm.jobIDs, JobImport)
	assert.Contains(t, cm.jobIDs, JobResync)
}

func TestCronManager_RegisterJobsSkipsEmptySchedules(t *testing.T) {
	cfg := testConfig()
	cfg.CronScheduleHeartbeat = ""
	cfg.CronScheduleResync = ""
	cm := NewCronManager(cfg, "pod-1", logger.NewNopLogger(), nil, &countingImporter{})

	require.NoError(t, cm.registerJobs(cronv3.New(cronv3.WithSeconds())))
	assert.Equal(t, []string{JobImport}, keys(cm.jobIDs))
}

func TestCronManager_InvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.CronScheduleImport = "every now and then"
	cm := NewCronManager(cfg, "pod-1", logger.NewNopLogger(), nil, &countingImporter{})

	err := cm.StartCron()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import")
	assert.Nil(t, cm.cron)
}

func TestCronManager_JobsCallImporter(t *testing.T) {
	importer := &countingImporter{}
	cm := NewCronManager(testConfig(), "pod-1", logger.NewNopLogger(), nil, importer)

	cm.exclusive(cm.runImport)()
	cm.exclusive(cm.runResync)()

	assert.Equal(t, int32(1), importer.runs.Load())
	assert.Equal(t, int32(1), importer.resyncs.Load())
	assert.Equal(t, int32(25), importer.limit.Load())
}

func TestCronManager_JobErrorsAreLogged(t *testing.T) {
	importer := &countingImporter{err: errors.New("imap down")}
	cm := NewCronManager(testConfig(), "pod-1", logger.NewNopLogger(), nil, importer)

	assert.NotPanics(t, cm.runImport)
	assert.NotPanics(t, cm.runResync)
}

func TestCronManager_StartLocalAndStop(t *testing.T) {
	cm := NewCronManager(testConfig(), "pod-1", logger.NewNopLogger(), &mockKubernetesInterface{}, &countingImporter{})

	require.NoError(t, cm.Start(context.Background(), "default"))
	assert.NotNil(t, cm.cron)

	cm.Stop()
	cm.Stop()

	assert.Nil(t, cm.cron)
	select {
	case <-cm.stopCh:
	default:
		t.Error("Stop channel was not closed")
	}
}

func keys(m map[string]cronv3.EntryID) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
