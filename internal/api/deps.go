package api

import (
	"context"

	"github.com/tripgenie/agent-server/internal/agent/alerts"
	"github.com/tripgenie/agent-server/internal/agent/model"
)

type plannerService interface {
	Query(ctx context.Context, question string) (string, error)
	Replan(ctx context.Context, req model.ReplanRequest) (string, error)
	LoadReplan(ctx context.Context, userID, tripID string) (*model.ReplanRecord, error)
	AssessAlert(ctx context.Context, req model.AlertCheckRequest) (*alerts.Assessment, error)
}

type Deps struct {
	ResponseHandler ResponseHandler
	PlannerSvc      plannerService
}
