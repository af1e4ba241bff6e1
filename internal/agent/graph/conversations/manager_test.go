package conversations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/tripgenie/agent-server/internal/agent/model"
)

func TestBuildSeedContext(t *testing.T) {
	var gotRounds int
	mm := NewMessagesManager(func(_ context.Context, rounds int) (string, error) {
		gotRounds = rounds
		return "system prompt", nil
	}, 4)

	msgs, err := mm.BuildSeedContext(context.Background(), "Plan 3 days in Paris")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if gotRounds != 4 {
		t.Fatalf("renderer got rounds %d, want 4", gotRounds)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 seed messages, got %d", len(msgs))
	}
	if msgs[0].Role != schema.System || msgs[0].Content != "system prompt" {
		t.Fatalf("unexpected system message %+v", msgs[0])
	}
	if msgs[1].Role != schema.User || msgs[1].Content != "Plan 3 days in Paris" {
		t.Fatalf("unexpected user message %+v", msgs[1])
	}
}

func TestBuildSeedContextErrors(t *testing.T) {
	mm := NewMessagesManager(func(context.Context, int) (string, error) {
		return "", errors.New("template broken")
	}, 1)

	if _, err := mm.BuildSeedContext(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty question")
	}
	if _, err := mm.BuildSeedContext(context.Background(), "hi"); err == nil || !strings.Contains(err.Error(), "template broken") {
		t.Fatalf("expected render error, got %v", err)
	}
}

func TestRenderReplanQuestion(t *testing.T) {
	req := model.ReplanRequest{
		UserID:      "u1",
		TripID:      "t1",
		Destination: "Paris",
		StartDate:   "2024-01-01",
		EndDate:     "2024-01-05",
		Guests:      2,
		Budget:      "mid-range",
		TripType:    "leisure",
		AIResponse:  "Day 1: Louvre",
		Alert:       map[string]any{"type": "storm", "severity": "critical"},
	}

	got, err := RenderReplanQuestion(req)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"Replan this trip to Paris from 2024-01-01 to 2024-01-05",
		"for 2 guest(s) with a mid-range budget. Trip type: leisure.",
		"Original plan: Day 1: Louvre",
		`Disruption alert: {"severity":"critical","type":"storm"}`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("question missing %q:\n%s", want, got)
		}
	}

	again, _ := RenderReplanQuestion(req)
	if again != got {
		t.Fatalf("rendering is not stable")
	}

	req.Alert = nil
	empty, err := RenderReplanQuestion(req)
	if err != nil || !strings.HasSuffix(empty, "Disruption alert: {}") {
		t.Fatalf("nil alert should render as {}, got %q (%v)", empty, err)
	}
}
