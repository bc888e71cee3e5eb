// Package pipeline runs submitted jobs through analysis, planning, clip
// generation, self-editing and export, and keeps the job record and the
// credit ledger consistent on every path.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"montage-orchestrator/internal/analysis"
	"montage-orchestrator/internal/jobs"
	"montage-orchestrator/internal/ledger"
	"montage-orchestrator/internal/montage"
	"montage-orchestrator/internal/provider"
	"montage-orchestrator/internal/render"
	"montage-orchestrator/internal/scoring"
	"montage-orchestrator/internal/selfedit"
	"montage-orchestrator/internal/storage"
)

const defaultRetention = 2 * time.Hour

// Request is what a caller asks a job to produce.
type Request struct {
	AudioPath   string
	Lyrics      string
	Prompt      string
	Mode        montage.Mode
	AspectRatio string
}

// ProviderFactory returns the video provider writing clips into clipDir.
type ProviderFactory func(clipDir string) provider.VideoProvider

// Recorder receives job level measurements.
type Recorder interface {
	JobSubmitted()
	JobFinished(status jobs.Status)
	LoopFinished(status selfedit.StopStatus, bestTotal int)
	CreditsCommitted(amount int)
}

type nopRecorder struct{}

func (nopRecorder) JobSubmitted()                         {}
func (nopRecorder) JobFinished(jobs.Status)               {}
func (nopRecorder) LoopFinished(selfedit.StopStatus, int) {}
func (nopRecorder) CreditsCommitted(int)                  {}

// Deps are the collaborators of an Orchestrator. Metrics and Log may be nil.
type Deps struct {
	Jobs      jobs.Repository
	Audio     analysis.AudioAnalyzer
	Lyrics    analysis.LyricsSummarizer
	Providers ProviderFactory
	Renderer  render.Renderer
	Accounts  *ledger.Accounts
	Layout    storage.Layout
	Metrics   Recorder
	Log       *slog.Logger

	// Retention is how long finished jobs are kept; <= 0 means two hours.
	Retention time.Duration
	// MaxIterations overrides the per-mode iteration cap when > 0.
	MaxIterations int
}

// Orchestrator runs jobs, each on its own goroutine.
type Orchestrator struct {
	jobs          jobs.Repository
	audio         analysis.AudioAnalyzer
	lyrics        analysis.LyricsSummarizer
	providers     ProviderFactory
	renderer      render.Renderer
	accounts      *ledger.Accounts
	layout        storage.Layout
	metrics       Recorder
	log           *slog.Logger
	retention     time.Duration
	maxIterations int
	now           func() time.Time

	wg sync.WaitGroup
}

// New returns an Orchestrator wired with d.
func New(d Deps) *Orchestrator {
	if d.Metrics == nil {
		d.Metrics = nopRecorder{}
	}
	if d.Log == nil {
		d.Log = slog.New(slog.DiscardHandler)
	}
	if d.Retention <= 0 {
		d.Retention = defaultRetention
	}
	if d.Accounts == nil {
		d.Accounts = ledger.NewAccounts()
	}
	return &Orchestrator{
		jobs:          d.Jobs,
		audio:         d.Audio,
		lyrics:        d.Lyrics,
		providers:     d.Providers,
		renderer:      d.Renderer,
		accounts:      d.Accounts,
		layout:        d.Layout,
		metrics:       d.Metrics,
		log:           d.Log,
		retention:     d.Retention,
		maxIterations: d.MaxIterations,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Submit runs the job in the background. ctx must outlive the request that
// created the job; cancelling it fails the job at its next stage.
func (o *Orchestrator) Submit(ctx context.Context, jobID string, req Request) {
	o.metrics.JobSubmitted()
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_ = o.Run(ctx, jobID, req)
	}()
}

// Wait blocks until every submitted job has finished or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes the job synchronously. On any failure, panics included, the
// job's reservation is released before the job is marked failed, and the
// failure is returned.
func (o *Orchestrator) Run(ctx context.Context, jobID string, req Request) (err error) {
	job, ok := o.jobs.Get(jobID)
	if !ok {
		return fmt.Errorf("run job %s: %w", jobID, jobs.ErrJobNotFound)
	}
	log := o.log.With(slog.String("job_id", jobID))
	led := o.accounts.For(job.OwnerEmail, job.Tier)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		if err != nil {
			o.fail(jobID, led, err, log)
		}
	}()

	return o.execute(ctx, job, led, req, log)
}

func (o *Orchestrator) execute(ctx context.Context, job jobs.Job, led *ledger.Ledger, req Request, log *slog.Logger) error {
	if err := CheckEntitlement(job.Tier, req.Mode); err != nil {
		return err
	}

	if err := o.stage(ctx, job.ID, 0.05, "Analyze", log); err != nil {
		return err
	}
	audio, err := o.audio.Analyze(ctx, req.AudioPath, req.Mode)
	if err != nil {
		return err
	}

	if err := o.stage(ctx, job.ID, 0.15, "Understand", log); err != nil {
		return err
	}
	lyrics := o.lyrics.Summarize(req.Lyrics)

	estimate := ledger.EstimateCost(audio.Duration, req.Mode)
	if _, err := led.Reserve(job.ID, estimate); err != nil {
		return err
	}

	if err := o.stage(ctx, job.ID, 0.30, "Plan", log); err != nil {
		return err
	}
	plan := montage.PlanTimeline(audio, lyrics, req.Prompt)

	if err := o.stage(ctx, job.ID, 0.45, "Generate", log); err != nil {
		return err
	}
	prov := o.providers(o.layout.ClipDir(job.ID))
	clips, err := prov.GenerateClips(ctx, plan, req.AspectRatio)
	if err != nil {
		return err
	}

	if err := o.stage(ctx, job.ID, 0.62, "Assemble", log); err != nil {
		return err
	}
	timeline, err := montage.Assemble(plan, clips)
	if err != nil {
		return err
	}

	if err := o.stage(ctx, job.ID, 0.74, "Self-edit", log); err != nil {
		return err
	}
	loop := selfedit.New(req.Mode, o.maxIterations, log)
	sctx := scoring.Context{Audio: audio, Lyrics: lyrics}
	improved, loopReport, err := loop.Improve(ctx, timeline, sctx, prov, req.AspectRatio, BudgetFor(req.Mode))
	if err != nil {
		return err
	}
	o.metrics.LoopFinished(loopReport.Status, loopReport.BestTotal)

	if err := o.stage(ctx, job.ID, 0.86, "Export", log); err != nil {
		return err
	}
	output := o.layout.OutputPath(job.ID)
	if err := o.renderer.Render(ctx, improved, req.AudioPath, output); err != nil {
		return err
	}

	res, err := led.Commit(job.ID)
	if err != nil {
		return err
	}
	o.metrics.CreditsCommitted(res.Amount)

	report, err := json.Marshal(newReport(loopReport, audio.Duration, improved.Duration(), job.Tier, req.Mode))
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	expires := o.now().Add(o.retention)
	if _, err := o.jobs.Update(job.ID, func(j jobs.Job) jobs.Job {
		j.Status = jobs.StatusCompleted
		j.Progress = 1
		j.Message = "Complete"
		j.ResultPath = output
		j.Report = report
		j.RetentionExpiresAt = &expires
		return j
	}); err != nil {
		return err
	}

	o.metrics.JobFinished(jobs.StatusCompleted)
	log.Info("job completed",
		slog.String("loop_status", string(loopReport.Status)),
		slog.Int("best_total", loopReport.BestTotal),
		slog.Int("credits", res.Amount),
	)
	return nil
}

// stage moves the job to the running state with progress and a phase message.
func (o *Orchestrator) stage(ctx context.Context, jobID string, progress float64, message string, log *slog.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := o.jobs.Update(jobID, func(j jobs.Job) jobs.Job {
		j.Status = jobs.StatusRunning
		j.Progress = progress
		j.Message = message
		return j
	}); err != nil {
		return err
	}
	log.Debug("job stage", slog.String("stage", message), slog.Float64("progress", progress))
	return nil
}

// fail releases the reservation, then records the failure. Failed jobs expire
// like completed ones so their files are eventually removed.
func (o *Orchestrator) fail(jobID string, led *ledger.Ledger, cause error, log *slog.Logger) {
	led.Release(jobID)
	expires := o.now().Add(o.retention)
	if _, err := o.jobs.Update(jobID, func(j jobs.Job) jobs.Job {
		j.Status = jobs.StatusFailed
		j.Progress = 1
		j.Message = cause.Error()
		j.ResultPath = ""
		j.Report = nil
		j.RetentionExpiresAt = &expires
		return j
	}); err != nil {
		log.Error("mark job failed", slog.String("error", err.Error()))
	}
	o.metrics.JobFinished(jobs.StatusFailed)
	log.Warn("job failed", slog.String("error", cause.Error()))
}
