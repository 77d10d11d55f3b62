package export

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/reqdb/pkg/model"
	"github.com/vanderheijden86/reqdb/pkg/testutil"
)

func TestProject_WorkedExample(t *testing.T) {
	c := testutil.WorkedExample()
	out := ProjectCatalogue(c, IDSet(testutil.ReqR2))

	if len(out.Topics) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(out.Topics))
	}
	top := out.Topics[0]
	if top.ID != testutil.TopicC {
		t.Errorf("expected topic C, got %d", top.ID)
	}
	if len(top.Children) != 0 {
		t.Errorf("expected no children, got %d", len(top.Children))
	}
	if len(top.Requirements) != 1 || top.Requirements[0].ID != testutil.ReqR2 {
		t.Fatalf("expected only R2, got %+v", top.Requirements)
	}
	if out.ID != 7 || out.Title != "Worked Example" {
		t.Errorf("catalogue header not copied: %+v", out)
	}
}

func TestProject_EmptySelection(t *testing.T) {
	out := ProjectCatalogue(testutil.WorkedExample(), IDSet())
	if out.Topics == nil || len(out.Topics) != 0 {
		t.Fatalf("expected empty non-nil topic list, got %#v", out.Topics)
	}
	if out.RequirementCount() != 0 {
		t.Errorf("expected 0 requirements, got %d", out.RequirementCount())
	}
}

func TestProject_FullSelectionKeepsShape(t *testing.T) {
	c := testutil.QuickTree(3, 2, 3)
	out := ProjectCatalogue(c, IDSet(c.RequirementIDs()...))

	var want, got []int
	c.Walk(func(tp *model.Topic, _ int) bool {
		if hasRequirements(tp) {
			want = append(want, tp.ID)
		}
		return true
	})
	out.Walk(func(tp *ExportTopic, _ int) {
		got = append(got, tp.ID)
	})
	if !reflect.DeepEqual(want, got) {
		t.Errorf("topic pre-order mismatch:\nwant %v\ngot  %v", want, got)
	}
	if out.RequirementCount() != len(c.RequirementIDs()) {
		t.Errorf("expected %d requirements, got %d", len(c.RequirementIDs()), out.RequirementCount())
	}
}

func TestProject_DoesNotMutateSource(t *testing.T) {
	c := testutil.WorkedExample()
	before := testutil.WorkedExample()

	out := ProjectCatalogue(c, IDSet(testutil.ReqR2))
	out.Topics[0].Requirements[0].Title = "changed"
	out.Topics[0].Requirements[0].Tags[0].Name = "changed"

	if !reflect.DeepEqual(before, c) {
		t.Error("projection modified the source catalogue")
	}
}

func TestProject_NilTopic(t *testing.T) {
	if Project(nil, IDSet(1)) != nil {
		t.Error("expected nil for nil topic")
	}
}

func TestProject_Idempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		depth := rapid.IntRange(1, 4).Draw(rt, "depth")
		breadth := rapid.IntRange(1, 3).Draw(rt, "breadth")
		seed := rapid.Int64().Draw(rt, "seed")

		cfg := testutil.DefaultConfig()
		cfg.Seed = seed
		c := testutil.New(cfg).Tree(depth, breadth, 3)

		ids := c.RequirementIDs()
		var picked []int
		for _, id := range ids {
			if rapid.Bool().Draw(rt, "pick") {
				picked = append(picked, id)
			}
		}
		sel := IDSet(picked...)

		once := ProjectCatalogue(c, sel)
		twice := PruneCatalogue(once, sel)
		if !reflect.DeepEqual(once, twice) {
			rt.Fatalf("projection is not idempotent for selection %v", picked)
		}
		if once.RequirementCount() != len(picked) {
			rt.Fatalf("expected %d requirements, got %d", len(picked), once.RequirementCount())
		}
	})
}

func hasRequirements(t *model.Topic) bool {
	if len(t.Requirements) > 0 {
		return true
	}
	for _, c := range t.Children {
		if hasRequirements(c) {
			return true
		}
	}
	return false
}
