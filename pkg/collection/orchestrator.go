package collection

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/AccelByte/extend-pbis-collection/pkg/common"
	"github.com/AccelByte/extend-pbis-collection/pkg/drawing"
	"github.com/AccelByte/extend-pbis-collection/pkg/pbis"
	"github.com/AccelByte/extend-pbis-collection/pkg/service"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle state of an Orchestrator.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Orchestrator runs a collection: it levels teams and students from an armed
// snapshot, draws the weekly winners and records everything through the
// mutation gateway. It moves idle -> armed -> running -> idle.
type Orchestrator struct {
	source  service.DataSource
	gateway service.MutationGateway
	cfg     Config
	rng     *rand.Rand
	logger  logrus.FieldLogger
	metrics *Metrics
	now     func() time.Time

	mu         sync.Mutex
	state      State
	snapshot   *pbis.Snapshot
	lastResult *Result
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRand sets the random source used for the drawing.
func WithRand(rng *rand.Rand) Option {
	return func(o *Orchestrator) { o.rng = rng }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(metrics *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = metrics }
}

// WithClock overrides time.Now for cycle dates and run timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithConcurrency sets how many teams are processed at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.cfg.Concurrency = n }
}

// NewOrchestrator creates an idle orchestrator.
func NewOrchestrator(source service.DataSource, gateway service.MutationGateway, cfg Config, opts ...Option) (*Orchestrator, error) {
	if source == nil || gateway == nil {
		return nil, ErrNoDataSource
	}

	o := &Orchestrator{
		source:  source,
		gateway: gateway,
		cfg:     cfg,
		logger:  logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.rng == nil {
		o.rng = drawing.NewRand(time.Now().UnixNano())
	}

	return o, nil
}

// SetArmed arms or disarms the next run. Arming fetches the snapshot the run
// will use; if the fetch fails the state is left unchanged.
func (o *Orchestrator) SetArmed(ctx context.Context, armed bool) error {
	o.mu.Lock()
	if o.state == StateRunning {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	if !armed {
		o.state = StateIdle
		o.snapshot = nil
		o.mu.Unlock()
		o.logger.Info("collection disarmed")
		return nil
	}
	o.mu.Unlock()

	snapshot, err := o.source.Snapshot(ctx)
	if err != nil {
		o.logger.Errorf("failed to fetch collection snapshot: %v", err)
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	if snapshot == nil {
		snapshot = &pbis.Snapshot{}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateRunning {
		return ErrAlreadyRunning
	}
	o.state = StateArmed
	o.snapshot = snapshot

	o.logger.Infof("collection armed with %d teams, %d students and %d new cards",
		len(snapshot.Teams), len(snapshot.Students()), snapshot.NewCards())
	return nil
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Armed() bool {
	return o.State() == StateArmed
}

func (o *Orchestrator) Running() bool {
	return o.State() == StateRunning
}

// Snapshot returns the snapshot cached at arm time, or nil when not armed.
func (o *Orchestrator) Snapshot() *pbis.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot
}

// LastResult returns the result of the most recent completed run, if any.
func (o *Orchestrator) LastResult() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastResult == nil {
		return nil
	}
	result := *o.lastResult
	return &result
}

// Run executes one collection over the armed snapshot. A run cannot be
// cancelled once started, so ctx only contributes its values.
// A run that is not armed, or that overlaps another run, is rejected.
func (o *Orchestrator) Run(ctx context.Context) (result Result) {
	o.mu.Lock()
	switch o.state {
	case StateRunning:
		o.mu.Unlock()
		o.logger.Warn("collection run rejected: already running")
		return failedResult(ErrAlreadyRunning)
	case StateIdle:
		o.mu.Unlock()
		o.logger.Warn("collection run rejected: not armed")
		return failedResult(ErrNotArmed)
	}
	snapshot := o.snapshot
	o.state = StateRunning
	o.mu.Unlock()

	scope := common.NewScope(context.WithoutCancel(ctx), "collection.run")
	scope.SetLogger(o.logger)
	r := &run{o: o, scope: scope}
	startedAt := o.now()

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("%w: %v", ErrRunPanicked, p)
			scope.Log.Errorf("collection run aborted: %v", err)
			result = failedResult(err)
			result.Counts = r.countsCopy()
		}
		result.StartedAt = startedAt
		result.FinishedAt = o.now()

		if !result.OK {
			scope.TraceError(result.Err)
		}
		scope.SetAttributes("winners", result.Counts.Winners)
		scope.SetAttributes("failures", result.Counts.Failures())
		scope.Finish()

		o.metrics.observeRun(result, result.Duration())

		o.mu.Lock()
		o.state = StateIdle
		o.snapshot = nil
		last := result
		o.lastResult = &last
		o.mu.Unlock()
	}()

	return r.execute(snapshot)
}

// run holds the per-run state shared by the phases of a collection.
type run struct {
	o       *Orchestrator
	scope   *common.Scope
	cycleID string

	mu     sync.Mutex
	counts Counts
}

func (r *run) update(fn func(c *Counts)) {
	r.mu.Lock()
	fn(&r.counts)
	r.mu.Unlock()
}

func (r *run) countsCopy() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := r.counts
	counts.WinnerIDs = append([]string(nil), r.counts.WinnerIDs...)
	return counts
}

func (r *run) execute(snapshot *pbis.Snapshot) Result {
	r.scope.Log.Infof("collection run started with %d teams", len(snapshot.Teams))
	r.update(func(c *Counts) { c.Teams = len(snapshot.Teams) })

	r.createCycle(snapshot)

	if err := r.processTeams(snapshot.Teams); err != nil {
		r.scope.Log.Errorf("collection run aborted: %v", err)
		result := failedResult(err)
		result.Counts = r.countsCopy()
		return result
	}

	winners := r.draw(snapshot)
	r.recordWinners(winners)

	counts := r.countsCopy()
	r.scope.Log.Infof("collection run finished: %d teams updated, %d students leveled up, %d winners, %d failures",
		counts.TeamsUpdated, counts.StudentsLeveledUp, counts.Winners, counts.Failures())

	return Result{OK: true, Counts: counts}
}

// mutate calls fn with the run context, bounded by MutationTimeout when set.
func (r *run) mutate(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if timeout := r.o.cfg.MutationTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := fn(ctx)
	if err != nil {
		r.o.metrics.mutationFailed(operation)
	}
	return err
}

// createCycle records the new cycle. A failure leaves cycleID empty and the run continues.
func (r *run) createCycle(snapshot *pbis.Snapshot) {
	input := service.CreateCycleInput{
		CollectionDate: r.o.now(),
		CollectedCards: snapshot.NewCards(),
	}

	var cycleID string
	err := r.mutate(r.scope.Ctx, opCreateCycle, func(ctx context.Context) error {
		id, err := r.o.gateway.CreateCollectionCycle(ctx, input)
		cycleID = id
		return err
	})
	if err != nil {
		r.scope.Log.Errorf("failed to create collection cycle, continuing without it: %v", err)
		r.scope.TraceEvent("collection cycle not created")
		r.update(func(c *Counts) { c.CycleFailure = true })
		return
	}

	r.cycleID = cycleID
	r.scope.TraceTag("cycle_id", cycleID)
	r.update(func(c *Counts) {
		c.CycleCreated = true
		c.CycleID = cycleID
	})
}

func (r *run) processTeams(teams []pbis.Team) error {
	scope := r.scope.NewChildScope("collection.teams")
	defer scope.Finish()

	if r.o.cfg.Concurrency <= 1 {
		for _, team := range teams {
			r.processTeam(scope, team)
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(r.o.cfg.Concurrency)
	for _, team := range teams {
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%w: team %s: %v", ErrRunPanicked, team.ID, p)
				}
			}()
			r.processTeam(scope, team)
			return nil
		})
	}
	return g.Wait()
}

func (r *run) processTeam(scope *common.Scope, team pbis.Team) {
	cfg := r.o.cfg
	average, computed := pbis.TeamProgress(team, cfg.CardsPerTeamLevel)
	level := max(computed, team.CurrentLevel)

	err := r.mutate(scope.Ctx, opUpdateTeamLevel, func(ctx context.Context) error {
		return r.o.gateway.UpdateTeamLevel(ctx, service.UpdateTeamLevelInput{
			TeamID:                 team.ID,
			AverageCardsPerStudent: pbis.RoundAverage(average),
			Level:                  level,
		})
	})
	if err != nil {
		scope.Log.Errorf("failed to update level of team %s: %v", team.ID, err)
		r.update(func(c *Counts) { c.TeamFailures++ })
	} else {
		r.update(func(c *Counts) { c.TeamsUpdated++ })

		if pbis.IsLevelUp(computed, team.CurrentLevel) {
			r.update(func(c *Counts) { c.TeamsLeveledUp++ })
			scope.Log.Infof("team %s leveled up from %d to %d", team.ID, team.CurrentLevel, computed)
			r.notifyTeamLeveledUp(scope, team.ID)
		}
	}

	for _, student := range team.Students {
		if student.TotalCardsAllTime <= 0 {
			continue
		}
		r.update(func(c *Counts) { c.StudentsConsidered++ })
		r.processStudent(scope, student)
	}
}

func (r *run) notifyTeamLeveledUp(scope *common.Scope, teamID string) {
	if r.cycleID == "" {
		return
	}
	err := r.mutate(scope.Ctx, opTeamLeveledUp, func(ctx context.Context) error {
		return r.o.gateway.NotifyTeamLeveledUp(ctx, service.TeamLeveledUpInput{CycleID: r.cycleID, TeamID: teamID})
	})
	if err != nil {
		scope.Log.Errorf("failed to link team %s level up to cycle %s: %v", teamID, r.cycleID, err)
		r.update(func(c *Counts) { c.TeamFailures++ })
	}
}

// processStudent notifies and stores a student level up. The level is stored
// even when the notification fails.
func (r *run) processStudent(scope *common.Scope, student pbis.Student) {
	level := pbis.CalculateStudentLevel(student, r.o.cfg.LevelThresholds)
	if !pbis.IsLevelUp(level, student.CurrentLevel) {
		return
	}

	err := r.mutate(scope.Ctx, opStudentLeveledUp, func(ctx context.Context) error {
		return r.o.gateway.NotifyStudentLeveledUp(ctx, service.StudentLeveledUpInput{CycleID: r.cycleID, StudentID: student.ID})
	})
	if err != nil {
		scope.Log.Errorf("failed to notify level up of student %s: %v", student.ID, err)
		r.update(func(c *Counts) { c.StudentFailures++ })
	}

	err = r.mutate(scope.Ctx, opUpdateStudentLevel, func(ctx context.Context) error {
		return r.o.gateway.UpdateStudentLevel(ctx, service.UpdateStudentLevelInput{StudentID: student.ID, Level: level})
	})
	if err != nil {
		scope.Log.Errorf("failed to update level of student %s: %v", student.ID, err)
		r.update(func(c *Counts) { c.StudentFailures++ })
		return
	}

	scope.Log.Infof("student %s leveled up from %d to %d", student.ID, student.CurrentLevel, level)
	r.update(func(c *Counts) { c.StudentsLeveledUp++ })
}

// draw selects the winners from the armed snapshot.
func (r *run) draw(snapshot *pbis.Snapshot) []string {
	scope := r.scope.NewChildScope("collection.drawing")
	defer scope.Finish()

	cfg := r.o.cfg
	pool := drawing.CreateTicketPool(snapshot.Students())
	excluded := drawing.RecentWinnerSet(snapshot.PriorCycles, cfg.ExclusionWindowCycles)
	eligible := drawing.ExcludeRecentWinners(pool, snapshot.PriorCycles, cfg.ExclusionWindowCycles)
	winners := drawing.SelectWinners(eligible, cfg.MaxWinnersPerCycle, r.o.rng)

	scope.SetAttributes("tickets", len(pool))
	scope.SetAttributes("eligible_tickets", len(eligible))
	scope.Log.Infof("drew %d winners from %d tickets (%d after excluding %d recent winners)",
		len(winners), len(pool), len(eligible), len(excluded))

	r.update(func(c *Counts) {
		c.Tickets = len(pool)
		c.ExcludedStudents = len(excluded)
		c.Winners = len(winners)
		c.WinnerIDs = winners
	})
	r.o.metrics.winnersDrawn(len(winners))
	return winners
}

func (r *run) recordWinners(winners []string) {
	scope := r.scope.NewChildScope("collection.winners")
	defer scope.Finish()

	for _, studentID := range winners {
		err := r.mutate(scope.Ctx, opRecordWinner, func(ctx context.Context) error {
			return r.o.gateway.RecordDrawingWinner(ctx, service.RecordWinnerInput{CycleID: r.cycleID, StudentID: studentID})
		})
		if err != nil {
			scope.Log.Errorf("failed to record drawing winner %s: %v", studentID, err)
			r.update(func(c *Counts) { c.WinnerFailures++ })
		}
	}
}
