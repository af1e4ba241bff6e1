package planner

import (
	"context"
	"strings"
	"time"

	"github.com/tripgenie/agent-server/internal/agent/alerts"
	"github.com/tripgenie/agent-server/internal/agent/graph"
	"github.com/tripgenie/agent-server/internal/agent/graph/conversations"
	"github.com/tripgenie/agent-server/internal/agent/graph/llms"
	"github.com/tripgenie/agent-server/internal/agent/graph/tools"
	"github.com/tripgenie/agent-server/internal/agent/model"
	errx "github.com/tripgenie/agent-server/internal/core/error"
	logx "github.com/tripgenie/agent-server/pkg/logger"
)

// alertForecastCount asks for the full five-day, 3-hourly forecast.
const alertForecastCount = 40

// RunnerFactory builds a fresh, compiled graph for every request.
type RunnerFactory interface {
	QueryRunner(ctx context.Context) (graph.Runner, error)
	ReplanRunner(ctx context.Context) (graph.Runner, error)
}

type modelLoader interface {
	Load(ctx context.Context) (*llms.ChatModel, error)
}

type forecaster interface {
	Forecast(ctx context.Context, place string, count int) (string, error)
}

type graphFactory struct {
	loader        modelLoader
	toolset       *tools.Toolset
	maxToolRounds int
}

func NewGraphFactory(loader modelLoader, toolset *tools.Toolset, maxToolRounds int) RunnerFactory {
	return &graphFactory{loader: loader, toolset: toolset, maxToolRounds: maxToolRounds}
}

func (f *graphFactory) QueryRunner(ctx context.Context) (graph.Runner, error) {
	cm, err := f.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return graph.NewGraphBuilder(cm, f.toolset, f.maxToolRounds).Build(ctx)
}

func (f *graphFactory) ReplanRunner(ctx context.Context) (graph.Runner, error) {
	cm, err := f.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return graph.NewReplanningGraphBuilder(cm, f.toolset, f.maxToolRounds).Build(ctx)
}

// Planner is the application service behind the HTTP handlers.
type Planner struct {
	runners RunnerFactory
	records model.ReplanRecordRepository
	weather forecaster
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Planner)

// WithReplanRecords enables storing replanned itineraries.
func WithReplanRecords(repo model.ReplanRecordRepository) Option {
	return func(p *Planner) { p.records = repo }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func New(runners RunnerFactory, weather forecaster, cfg model.AgentConfig, opts ...Option) *Planner {
	p := &Planner{
		runners: runners,
		weather: weather,
		timeout: cfg.Timeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Planner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// Query answers an open travel-planning question.
func (p *Planner) Query(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errx.Validation("question is required")
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	runner, err := p.runners.QueryRunner(ctx)
	if err != nil {
		return "", err
	}
	return runner.Invoke(ctx, model.QueryInput{Question: question})
}

// Replan produces a revised itinerary and, when storage is enabled, records
// it. Storage failures are logged and never fail the request.
func (p *Planner) Replan(ctx context.Context, req model.ReplanRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	question, err := conversations.RenderReplanQuestion(req)
	if err != nil {
		return "", errx.Validation(err.Error())
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	runner, err := p.runners.ReplanRunner(ctx)
	if err != nil {
		return "", err
	}
	itinerary, err := runner.Invoke(ctx, model.QueryInput{Question: question})
	if err != nil {
		return "", err
	}

	if p.records != nil && req.UserID != "" && req.TripID != "" {
		rec := model.ReplanRecord{
			UserID:             req.UserID,
			TripID:             req.TripID,
			Destination:        req.Destination,
			PreviousItinerary:  req.AIResponse,
			ReplannedItinerary: itinerary,
			Alert:              req.Alert,
			ReplannedAt:        p.now().UTC(),
		}
		if err := p.records.SaveReplan(ctx, rec); err != nil {
			logx.Warn().Err(err).Str("trip_id", req.TripID).Msg("failed to store replan record")
		}
	}
	return itinerary, nil
}

// LoadReplan returns the last stored replan for a trip.
func (p *Planner) LoadReplan(ctx context.Context, userID, tripID string) (*model.ReplanRecord, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(tripID) == "" {
		return nil, errx.Validation("userId and tripId are required")
	}
	if p.records == nil {
		return nil, errx.NotFound("replan records are not enabled")
	}
	return p.records.LoadReplan(ctx, userID, tripID)
}

// AssessAlert checks the destination forecast around the trip start.
func (p *Planner) AssessAlert(ctx context.Context, req model.AlertCheckRequest) (*alerts.Assessment, error) {
	if strings.TrimSpace(req.Destination) == "" {
		return nil, errx.Validation("destination is required")
	}
	if strings.TrimSpace(req.StartDate) == "" {
		return nil, errx.Validation("startDate is required")
	}
	if _, err := alerts.ParseTripDate(req.StartDate); err != nil {
		return nil, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	raw, err := p.weather.Forecast(ctx, strings.TrimSpace(req.Destination), alertForecastCount)
	if err != nil {
		return nil, err
	}
	assessment, err := alerts.Assess(req.Destination, req.StartDate, raw, p.now())
	if err != nil {
		return nil, err
	}

	ev := logx.Debug().Str("destination", req.Destination).Bool("notify", assessment.ShouldNotify)
	if assessment.Alert != nil {
		ev = ev.Str("severity", string(assessment.Alert.Severity))
	}
	ev.Msg("weather alert assessed")
	return assessment, nil
}
