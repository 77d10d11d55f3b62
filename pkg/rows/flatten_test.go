package rows

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/reqdb/pkg/model"
	"github.com/vanderheijden86/reqdb/pkg/testutil"
)

func TestFlatten_WorkedExample(t *testing.T) {
	cat := testutil.WorkedExample()
	res := FlattenCatalogue(cat, Options{Headers: map[int]string{2: "Guidance", 9: "Missing"}})

	testutil.AssertRowKeys(t, res.Rows, "R1", "R2")

	r1, r2 := res.Rows[0], res.Rows[1]
	if !reflect.DeepEqual(r1.Topics, []string{"Topic A", "Topic B"}) {
		t.Errorf("R1 topic chain = %v", r1.Topics)
	}
	if !reflect.DeepEqual(r1.Path, []string{"A", "B"}) {
		t.Errorf("R1 path = %v", r1.Path)
	}
	if r1.Breadcrumb() != "Topic A › Topic B" {
		t.Errorf("unexpected breadcrumb %q", r1.Breadcrumb())
	}
	if !reflect.DeepEqual(r2.Tags, []string{"urgent"}) {
		t.Errorf("R2 tags = %v", r2.Tags)
	}
	if r2.Extra(2) != "Use MFA" {
		t.Errorf("expected Guidance extra, got %q", r2.Extra(2))
	}
	if got, ok := r2.Extras[9]; !ok || got != "" {
		t.Errorf("missing extra should be an empty cell, got %q (present=%v)", got, ok)
	}
	if len(r2.Comments) != 1 {
		t.Errorf("expected R2 comment to be carried, got %d", len(r2.Comments))
	}

	if got := res.Tags.Labels(); !reflect.DeepEqual(got, []string{"urgent"}) {
		t.Errorf("tag index = %v", got)
	}
	if got := res.Topics.Labels(); !reflect.DeepEqual(got, []string{"Topic A", "Topic B", "Topic C"}) {
		t.Errorf("topic index = %v", got)
	}
}

func TestFlatten_Orders(t *testing.T) {
	// P ⊃ {R-P, child Q ⊃ {R-Q}}
	cat := &model.Catalogue{Topics: []*model.Topic{{
		ID: 1, Key: "P", Title: "P",
		Requirements: []*model.Requirement{{ID: 1, Key: "R-P"}},
		Children: []*model.Topic{{
			ID: 2, Key: "Q", Title: "Q",
			Requirements: []*model.Requirement{{ID: 2, Key: "R-Q"}},
		}},
	}}}

	testutil.AssertRowKeys(t, FlattenCatalogue(cat, Options{Order: RequirementsFirst}).Rows, "R-P", "R-Q")
	testutil.AssertRowKeys(t, FlattenCatalogue(cat, Options{Order: ChildrenFirst}).Rows, "R-Q", "R-P")
}

func TestFlatten_FirstExtraWins(t *testing.T) {
	cat := &model.Catalogue{Topics: []*model.Topic{{
		ID: 1, Key: "T",
		Requirements: []*model.Requirement{{
			ID: 1, Key: "R",
			Extras: []model.Extra{
				{ID: 1, ExtraTypeID: 4, Content: "first"},
				{ID: 2, ExtraTypeID: 4, Content: "second"},
				{ID: 3, ExtraTypeID: 77, Content: "unknown type"},
			},
		}},
	}}}
	res := FlattenCatalogue(cat, Options{Headers: map[int]string{4: "Notes"}})
	if got := res.Rows[0].Extra(4); got != "first" {
		t.Errorf("expected first matching extra, got %q", got)
	}
	if _, ok := res.Rows[0].Extras[77]; ok {
		t.Error("extras without a configured header must not be projected")
	}
}

func TestFlatten_EmptyAndNil(t *testing.T) {
	res := Flatten(nil, Options{})
	if len(res.Rows) != 0 {
		t.Errorf("nil root should give no rows, got %d", len(res.Rows))
	}

	cat := &model.Catalogue{Topics: []*model.Topic{
		{ID: 1, Key: "Empty"},
		{ID: 2, Key: "Holes", Children: []*model.Topic{nil}, Requirements: []*model.Requirement{nil, {ID: 5, Key: "R5"}}},
	}}
	res = FlattenCatalogue(cat, Options{})
	testutil.AssertRowKeys(t, res.Rows, "R5")
	if res.Tags.Len() != 0 {
		t.Errorf("expected empty tag index, got %v", res.Tags.Labels())
	}
}

func TestFlatten_SiblingChainsIndependent(t *testing.T) {
	cat := testutil.QuickTree(3, 3, 2)
	res := FlattenCatalogue(cat, Options{})
	for _, r := range res.Rows {
		if len(r.Topics) != len(r.Path) {
			t.Fatalf("row %s: %d titles vs %d keys", r.Key, len(r.Topics), len(r.Path))
		}
		// Generated requirement keys are "<topic key>-R<n>".
		owner := r.Path[len(r.Path)-1]
		if want := owner + "-R"; len(r.Key) <= len(want) || r.Key[:len(want)] != want {
			t.Errorf("row %s attached to wrong topic chain %v", r.Key, r.Path)
		}
	}
}

func TestFlattenInto_Accumulates(t *testing.T) {
	tags := NewIndex()
	tags.Add("existing")
	out := []model.Row{{ID: -1, Key: "seed"}}

	FlattenInto(FromCatalogue(testutil.WorkedExample()), tags, &out, nil, RequirementsFirst)

	testutil.AssertRowKeys(t, out, "seed", "R1", "R2")
	if got := tags.Labels(); !reflect.DeepEqual(got, []string{"existing", "urgent"}) {
		t.Errorf("tags = %v", got)
	}
}

func TestFlatten_DoesNotAliasSource(t *testing.T) {
	cat := testutil.WorkedExample()
	res := FlattenCatalogue(cat, Options{})
	res.Rows[1].Comments[0].Comment = "changed"
	res.Rows[1].Tags[0] = "changed"

	r2 := testutil.FindRequirement(cat, testutil.ReqR2)
	if r2.Comments[0].Comment != "ok?" || r2.Tags[0].Name != "urgent" {
		t.Error("mutating rows changed the source tree")
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    Order
		wantErr bool
	}{
		{"", RequirementsFirst, false},
		{"requirements-first", RequirementsFirst, false},
		{"Children-First", ChildrenFirst, false},
		{"sideways", RequirementsFirst, true},
	}
	for _, tt := range tests {
		got, err := ParseOrder(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOrder(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestIndex(t *testing.T) {
	ix := NewIndex()
	if !ix.Add("b") || !ix.Add("a") || ix.Add("b") || ix.Add("") {
		t.Fatal("unexpected Add results")
	}
	if !reflect.DeepEqual(ix.Labels(), []string{"b", "a"}) {
		t.Errorf("labels = %v", ix.Labels())
	}
	if !ix.Contains("a") || ix.Contains("c") {
		t.Error("Contains mismatch")
	}
	var nilIx *Index
	if nilIx.Len() != 0 || nilIx.Contains("a") || nilIx.Labels() != nil {
		t.Error("nil index should behave as empty")
	}
}
