package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskquest/taskquest/internal/domain/shared"
)

func catalog(t *testing.T) []*Badge {
	t.Helper()
	var defs []*Badge
	for _, d := range DefaultCatalog() {
		b, err := NewBadge(d.Name, d.Description, d.Requirement, d.Kind)
		require.NoError(t, err)
		defs = append(defs, b)
	}
	tasks, err := NewBadge("Task Hoarder", "", 10, KindTasks)
	require.NoError(t, err)
	return append(defs, tasks)
}

func names(badges []*Badge) []string {
	out := make([]string, 0, len(badges))
	for _, b := range badges {
		out = append(out, b.Name)
	}
	return out
}

func TestEvaluate_Thresholds(t *testing.T) {
	defs := catalog(t)

	tests := []struct {
		name     string
		progress Progress
		want     []string
	}{
		{"nothing yet", Progress{Points: 10, Streak: 1}, nil},
		{"exactly 100 points", Progress{Points: 100}, []string{"Beginner"}},
		{"points and streak", Progress{Points: 520, Streak: 7}, []string{"Beginner", "Intermediate", "Streak Master"}},
		{"everything", Progress{Points: 5000, Streak: 45}, []string{"Beginner", "Intermediate", "Expert", "Streak Master", "Streak Champion"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.progress, defs, nil)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestEvaluate_SkipsOwnedBadges(t *testing.T) {
	defs := catalog(t)
	owned := []*UserBadge{NewUserBadge("u1", defs[0].ID, time.Now())}

	got := Evaluate(Progress{Points: 600}, defs, owned)
	assert.Equal(t, []string{"Intermediate"}, names(got))

	// Re-evaluating with everything owned yields nothing.
	for _, b := range got {
		owned = append(owned, NewUserBadge("u1", b.ID, time.Now()))
	}
	assert.Empty(t, Evaluate(Progress{Points: 600}, defs, owned))
}

func TestEvaluate_DuplicateDefinitionsAwardOnce(t *testing.T) {
	defs := catalog(t)
	defs = append(defs, defs[0])

	got := Evaluate(Progress{Points: 100}, defs, nil)
	assert.Len(t, got, 1)
}

func TestEvaluate_TasksKindIsInert(t *testing.T) {
	b, err := NewBadge("Busy", "", 0, KindTasks)
	require.NoError(t, err)

	assert.False(t, b.IsSatisfiedBy(Progress{Points: 1 << 20, Streak: 1 << 20}))
	assert.Empty(t, Evaluate(Progress{Points: 1 << 20}, []*Badge{b}, nil))
}

func TestEvaluate_UnknownKindIsSkipped(t *testing.T) {
	b := &Badge{ID: "x", Name: "Legacy", Requirement: 0, Kind: Kind("karma")}
	assert.Empty(t, Evaluate(Progress{Points: 100}, []*Badge{b, nil}, nil))
}

func TestNewBadge_Validation(t *testing.T) {
	_, err := NewBadge("  ", "", 1, KindPoints)
	assert.True(t, shared.IsValidation(err))

	_, err = NewBadge("Neg", "", -1, KindPoints)
	assert.True(t, shared.IsValidation(err))

	_, err = NewBadge("Odd", "", 1, Kind("karma"))
	assert.True(t, shared.IsValidation(err))
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	want := map[string]string{
		"Beginner":        "Earn your first 100 points",
		"Intermediate":    "Earn 500 points",
		"Expert":          "Earn 1000 points",
		"Streak Master":   "Maintain a 7-day streak",
		"Streak Champion": "Maintain a 30-day streak",
	}
	assert.Len(t, catalog, len(want))
	for _, def := range catalog {
		assert.Equal(t, want[def.Name], def.Description, def.Name)
	}
}
