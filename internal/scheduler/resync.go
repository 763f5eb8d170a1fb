// Package scheduler runs periodic dedup deploys so commands added on disk,
// or removed remotely by hand, reach the remote store without an operator.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	cronlib "github.com/robfig/cron/v3"

	"github.com/salafibot/salafibot/internal/admin"
	"github.com/salafibot/salafibot/internal/logging"
)

// Deployer runs a full deploy. admin.Service satisfies it.
type Deployer interface {
	DeployAll(ctx context.Context, global, dedup bool) (*admin.DeployResult, error)
}

var parser = cronlib.NewParser(cronlib.SecondOptional | cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor)

// Resyncer triggers a dedup deploy on a cron schedule.
type Resyncer struct {
	spec     string
	schedule cronlib.Schedule
	deployer Deployer
	global   bool

	mu      sync.Mutex
	running bool
}

// NewResyncer validates spec ("*/30 * * * *", "@hourly", "@every 10m").
func NewResyncer(spec string, deployer Deployer, global bool) (*Resyncer, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule: %w", err)
	}
	return &Resyncer{spec: spec, schedule: schedule, deployer: deployer, global: global}, nil
}

// Run schedules resyncs until ctx is done and waits for a running one to end.
func (r *Resyncer) Run(ctx context.Context) error {
	scheduler := cronlib.New()
	scheduler.Schedule(r.schedule, cronlib.FuncJob(func() { r.RunOnce(ctx) }))
	scheduler.Start()
	logging.Infof("[scheduler] Resync scheduled: %s", r.spec)

	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}

// RunOnce performs one dedup deploy. Overlapping runs are skipped.
func (r *Resyncer) RunOnce(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		logging.Debugf("[scheduler] Previous resync still running, skipping")
		return
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	if ctx.Err() != nil {
		return
	}
	res, err := r.deployer.DeployAll(ctx, r.global, true)
	if err != nil {
		logging.Errorf("[scheduler] Resync failed: %v", err)
		return
	}
	if res.Sync.NoOp {
		logging.Debugf("[scheduler] Resync: remote already up to date")
		return
	}
	logging.Infof("[scheduler] Resync added %d commands", len(res.Sync.Added))
}
