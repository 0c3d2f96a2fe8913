package styles

import (
	"strings"
	"testing"

	"github.com/tgienger/taskflow/internal/models"
)

func TestPriorityStylesPadToColumn(t *testing.T) {
	t.Parallel()

	s := NewStyles()
	for _, p := range []models.Priority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical} {
		out := s.Priority(p).Render(p.String())
		if !strings.Contains(out, p.String()) {
			t.Fatalf("rendered %q does not contain %q", out, p.String())
		}
	}
}

func TestSwatchWithoutColour(t *testing.T) {
	t.Parallel()

	if got := NewStyles().Swatch(""); got != " " {
		t.Fatalf("swatch = %q, want blank", got)
	}
}
