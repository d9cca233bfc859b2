package cron

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	cronv3 "github.com/robfig/cron/v3"
	"go.uber.org/zap"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/interfaces"
	cron_config "github.com/customeros/lexsync/internal/cron/config"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/tracing"
)

const (
	// GroupImport serializes import and resync cycles
	GroupImport = "import"

	JobHeartbeat = "heartbeat"
	JobImport    = "import"
	JobResync    = "resync"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupImport: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg      *cron_config.Config
	podName  string
	log      logger.Logger
	k8s      kubernetes.Interface
	importer interfaces.Importer

	mu       sync.Mutex
	cron     *cronv3.Cron
	jobIDs   map[string]cronv3.EntryID
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCronManager schedules import cycles. k8s may be nil, in which case no leader election happens.
func NewCronManager(cfg *cron_config.Config, podName string, log logger.Logger, k8s kubernetes.Interface, importer interfaces.Importer) *CronManager {
	return &CronManager{
		cfg:      cfg,
		podName:  podName,
		log:      log,
		k8s:      k8s,
		importer: importer,
		stopCh:   make(chan struct{}),
		jobIDs:   make(map[string]cronv3.EntryID),
	}
}

// Start initializes and starts the cron manager with leader election.
// Without a k8s client or with leader election disabled it starts in local mode.
func (cm *CronManager) Start(ctx context.Context, namespace string) error {
	if cm.k8s == nil || !cm.cfg.LeaderElection {
		cm.log.Info("Starting cron manager in local mode")
		return cm.StartCron()
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      cm.cfg.LeaseName,
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: cm.podName,
		},
	}

	le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
		Lock:            lock,
		ReleaseOnCancel: true,
		LeaseDuration:   LeaseDuration,
		RenewDeadline:   RenewDeadline,
		RetryPeriod:     RetryPeriod,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(ctx context.Context) {
				if err := cm.StartCron(); err != nil {
					cm.log.Error("Could not start crons after winning leadership", zap.Error(err))
				}
			},
			OnStoppedLeading: func() {
				cm.log.Info("Leader lost - stopping crons")
				cm.stopCron()
			},
			OnNewLeader: func(identity string) {
				cm.log.Infof("New leader elected: %s", identity)
			},
		},
	})
	if err != nil {
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		return cm.StartCron()
	}

	go le.Run(ctx)
	return nil
}

// Stop gracefully stops the cron manager and waits for running jobs.
func (cm *CronManager) Stop() {
	cm.stopCron()
	cm.stopOnce.Do(func() {
		close(cm.stopCh)
	})
}

func (cm *CronManager) stopCron() {
	cm.mu.Lock()
	c := cm.cron
	cm.cron = nil
	cm.mu.Unlock()

	if c != nil {
		cm.log.Info("Stopping cron manager")
		ctx := c.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() error {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger), // Skip if still running
			cronv3.Recover(cronv3.DefaultLogger),            // Default recovery as backup
		),
	}
	c := cronv3.New(cronOptions...)
	if err := cm.registerJobs(c); err != nil {
		return err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cron != nil {
		return nil
	}
	c.Start()
	cm.cron = c
	return nil
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) error {
	jobs := []struct {
		name     string
		schedule string
		run      func()
	}{
		{JobHeartbeat, cm.cfg.CronScheduleHeartbeat, func() {
			cm.log.Infof("Cron heartbeat from pod: %s", cm.podName)
		}},
		{JobImport, cm.cfg.CronScheduleImport, cm.exclusive(cm.runImport)},
		{JobResync, cm.cfg.CronScheduleResync, cm.exclusive(cm.runResync)},
	}

	ids := make(map[string]cronv3.EntryID)
	for _, job := range jobs {
		if job.schedule == "" {
			continue
		}
		run := job.run
		id, err := c.AddFunc(job.schedule, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			run()
		})
		if err != nil {
			return errors.Wrapf(err, "could not add %s cron job", job.name)
		}
		ids[job.name] = id
		cm.log.Infof("Registered %s job with schedule: %s", job.name, job.schedule)
	}

	cm.mu.Lock()
	cm.jobIDs = ids
	cm.mu.Unlock()
	return nil
}

func (cm *CronManager) exclusive(fn func()) func() {
	return func() {
		jobLocks.locks[GroupImport].Lock()
		defer jobLocks.locks[GroupImport].Unlock()
		fn()
	}
}

func (cm *CronManager) runImport() {
	span, ctx := tracing.StartTracerSpan(context.Background(), "CronManager.runImport")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	summary, err := cm.importer.RunOnce(ctx, dto.FetchFilter{})
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Error("Import cycle failed", zap.Error(err))
		return
	}
	cm.log.Info("Import cycle completed", zap.Any("summary", summary))
}

func (cm *CronManager) runResync() {
	span, ctx := tracing.StartTracerSpan(context.Background(), "CronManager.runResync")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	summary, err := cm.importer.Resync(ctx, cm.cfg.ResyncLimit)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Error("Resync failed", zap.Error(err))
		return
	}
	cm.log.Info("Resync completed", zap.Any("summary", summary))
}
