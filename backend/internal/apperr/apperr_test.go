package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofrs/uuid"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"validation", Validation("title is required"), KindValidation},
		{"wrapped not found", fmt.Errorf("loading: %w", NotFound("task")), KindNotFound},
		{"raw error", errors.New("connection reset"), KindUpstream},
		{"forbidden", Forbidden("not allowed"), KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestUpstream_HidesCauseFromMessage(t *testing.T) {
	cause := errors.New("pq: relation \"tasks\" does not exist")
	err := Upstream("failed to load task", cause)

	if err.Message != "failed to load task" {
		t.Errorf("Expected generic message, got %q", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("Expected cause to remain reachable through Unwrap")
	}
}

func TestActiveTaskExists(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	err := ActiveTaskExists(id, "Write report")

	if err.Kind != KindConflict || err.Code != CodeActiveTaskExists {
		t.Fatalf("Expected CONFLICT/%s, got %s/%s", CodeActiveTaskExists, err.Kind, err.Code)
	}

	running, ok := err.Details["runningTask"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected runningTask details")
	}
	if running["id"] != id.String() || running["title"] != "Write report" {
		t.Errorf("Unexpected runningTask payload: %v", running)
	}
}
