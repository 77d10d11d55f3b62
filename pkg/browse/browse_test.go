package browse

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/reqdb/pkg/model"
	"github.com/vanderheijden86/reqdb/pkg/rows"
	"github.com/vanderheijden86/reqdb/pkg/testutil"
)

func workedExample(t *testing.T) (rows.Result, State) {
	t.Helper()
	res := rows.FlattenCatalogue(testutil.WorkedExample(), rows.Options{})
	return res, NewState(res)
}

func TestNewStateShowsEverything(t *testing.T) {
	res, s := workedExample(t)
	testutil.AssertRowKeys(t, Visible(res.Rows, s), "R1", "R2")
	if len(s.SelectedIDs()) != 0 {
		t.Errorf("nothing should be selected initially, got %v", s.SelectedIDs())
	}
}

func TestTagFilter(t *testing.T) {
	res, s := workedExample(t)

	s = s.WithTags(SelectNone().Toggle("urgent"))
	testutil.AssertRowKeys(t, Visible(res.Rows, s), "R2")

	s = s.WithTags(SelectNone())
	testutil.AssertRowKeys(t, Visible(res.Rows, s))

	s = s.WithTags(SelectAll(res.Tags))
	testutil.AssertRowKeys(t, Visible(res.Rows, s), "R1", "R2")
}

func TestToggleFromAllClearsAll(t *testing.T) {
	res, s := workedExample(t)
	// Deselecting the only tag leaves an empty explicit set: untagged R1 and
	// R2 both drop out.
	s = s.ToggleTag("urgent")
	if s.Tags.All {
		t.Fatal("toggle should clear All")
	}
	testutil.AssertRowKeys(t, Visible(res.Rows, s))
}

func TestTopicFilter(t *testing.T) {
	res, s := workedExample(t)

	s = s.WithTopics(SelectNone().Toggle("Topic B"))
	testutil.AssertRowKeys(t, Visible(res.Rows, s), "R1")

	// Ancestors match too: R1's chain contains Topic A.
	s = s.WithTopics(SelectNone().Toggle("Topic A"))
	testutil.AssertRowKeys(t, Visible(res.Rows, s), "R1")

	s = s.ToggleTopic("Topic C")
	testutil.AssertRowKeys(t, Visible(res.Rows, s), "R1", "R2")
}

func TestSearch(t *testing.T) {
	res, s := workedExample(t)

	tests := []struct {
		name   string
		query  string
		fields []Field
		want   []string
	}{
		{"empty matches all", "", nil, []string{"R1", "R2"}},
		{"case-insensitive title", "SECOND", nil, []string{"R2"}},
		{"description", "r1 text", nil, []string{"R1"}},
		{"key", "r2", nil, []string{"R2"}},
		{"tags not searched by default", "urgent", nil, nil},
		{"tags when configured", "urg", []Field{FieldTags}, []string{"R2"}},
		{"topics when configured", "topic b", []Field{FieldTopics}, []string{"R1"}},
		{"no match", "zzz", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := s.WithSearch(tt.query)
			if tt.fields != nil {
				st = st.WithSearchFields(tt.fields...)
			}
			testutil.AssertRowKeys(t, Visible(res.Rows, st), tt.want...)
		})
	}
}

func TestFiltersCombine(t *testing.T) {
	res, s := workedExample(t)
	s = s.WithSearch("text").WithTopics(SelectNone().Toggle("Topic C"))
	testutil.AssertRowKeys(t, Visible(res.Rows, s), "R2")
}

func TestSortByKey(t *testing.T) {
	all := []model.Row{
		{ID: 1, Key: "b-2"},
		{ID: 2, Key: "A-10"},
		{ID: 3, Key: "a-1"},
		{ID: 4, Key: "b-2"},
		{ID: 5, Key: "Élan"},
		{ID: 6, Key: "eagle"},
	}
	s := State{Tags: Selection{All: true}, Topics: Selection{All: true}}

	got := Visible(all, s)
	if !reflect.DeepEqual(testutil.RowIDs(got), []int{1, 2, 3, 4, 5, 6}) {
		t.Errorf("unsorted view must keep flatten order, got %v", testutil.RowIDs(got))
	}

	got = Visible(all, s.WithSortByKey(true))
	ids := testutil.RowIDs(got)
	// a-1 < A-10 < b-2 (stable: 1 then 4) < eagle < Élan
	want := []int{3, 2, 1, 4, 6, 5}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("sorted ids = %v, want %v", ids, want)
	}
	if all[0].ID != 1 {
		t.Error("Visible must not reorder its input")
	}
}

func TestStateIsImmutable(t *testing.T) {
	res, s := workedExample(t)
	before := s.SelectedIDs()

	s2 := s.ToggleRow(testutil.ReqR1).SelectRows(testutil.ReqR2)
	if !reflect.DeepEqual(s.SelectedIDs(), before) {
		t.Error("ToggleRow mutated the original state")
	}
	if !reflect.DeepEqual(s2.SelectedIDs(), []int{testutil.ReqR1, testutil.ReqR2}) {
		t.Errorf("selected = %v", s2.SelectedIDs())
	}

	s3 := s2.ToggleRow(testutil.ReqR1)
	if s2.IsSelected(testutil.ReqR1) != true || s3.IsSelected(testutil.ReqR1) {
		t.Error("toggle off should not affect the previous state")
	}

	tags := s.Tags
	_ = s.ToggleTag("urgent")
	if !reflect.DeepEqual(s.Tags, tags) {
		t.Error("ToggleTag mutated the original selection")
	}
	_ = res
}

func TestSelectVisibleAndClear(t *testing.T) {
	res, s := workedExample(t)
	s = s.WithTags(SelectNone().Toggle("urgent"))
	s = s.SelectVisible(Visible(res.Rows, s))
	if !reflect.DeepEqual(s.SelectedIDs(), []int{testutil.ReqR2}) {
		t.Errorf("selected = %v", s.SelectedIDs())
	}
	if len(s.ClearSelection().SelectedIDs()) != 0 {
		t.Error("ClearSelection left ids behind")
	}
}

func TestSelectionHelpers(t *testing.T) {
	ix := rows.NewIndex()
	ix.Add("b")
	ix.Add("a")
	all := SelectAll(ix)
	if !all.All || all.Count() != 2 || !all.Has("zzz") {
		t.Errorf("unexpected SelectAll: %+v", all)
	}
	if !reflect.DeepEqual(all.Sorted(), []string{"a", "b"}) {
		t.Errorf("sorted = %v", all.Sorted())
	}
	none := SelectNone()
	if none.All || none.Has("a") {
		t.Error("SelectNone should match nothing")
	}
}

func TestParseFields(t *testing.T) {
	got, err := ParseFields([]string{"Key", "tags"})
	if err != nil || !reflect.DeepEqual(got, []Field{FieldKey, FieldTags}) {
		t.Errorf("ParseFields = %v, %v", got, err)
	}
	if _, err := ParseFields([]string{"owner"}); err == nil {
		t.Error("expected error for unknown field")
	}
	if FieldTopics.String() != "topics" {
		t.Errorf("unexpected name %q", FieldTopics.String())
	}
}
