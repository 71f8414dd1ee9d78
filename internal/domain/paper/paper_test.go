package paper

import (
	"reflect"
	"testing"
)

func TestFromFields(t *testing.T) {
	p := FromFields("paper:2101.00001", map[string]string{
		"paper_id":   "2101.00001",
		"authors":    "A. Author, B. Author",
		"title":      "On Graphs",
		"year":       "2021",
		"categories": "cs.LG|stat.ML",
	})

	if p.ID() != "2101.00001" {
		t.Errorf("id = %q, want paper_id field to win over key", p.ID())
	}
	if p.Year() != "2021" || p.Title() != "On Graphs" {
		t.Errorf("unexpected paper: %+v", p)
	}
	if !reflect.DeepEqual(p.Categories(), []string{"cs.LG", "stat.ML"}) {
		t.Errorf("categories = %v", p.Categories())
	}
}

func TestFromFields_FallsBackToKey(t *testing.T) {
	p := FromFields("2101.00002", map[string]string{"title": "x"})
	if p.ID() != "2101.00002" {
		t.Errorf("id = %q, want key", p.ID())
	}
	if p.Categories() != nil {
		t.Errorf("expected nil categories, got %v", p.Categories())
	}
}

func TestCategories_Copied(t *testing.T) {
	cats := []string{"cs.LG", "stat.ML"}
	p := New("2101.00003", "", "t", "", "2021", cats)

	cats[0] = "math.CO"
	p.Categories()[1] = "hep-th"

	if !reflect.DeepEqual(p.Categories(), []string{"cs.LG", "stat.ML"}) {
		t.Errorf("categories mutated through caller slice: %v", p.Categories())
	}
}

func TestSplitCategories(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"cs.LG", []string{"cs.LG"}},
		{"cs.LG|cs.AI", []string{"cs.LG", "cs.AI"}},
		{"cs.LG,cs.AI", []string{"cs.LG", "cs.AI"}},
		{" cs.LG || cs.AI ", []string{"cs.LG", "cs.AI"}},
	}
	for _, tt := range tests {
		got := SplitCategories(tt.raw)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitCategories(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestJoinCategories(t *testing.T) {
	if got := JoinCategories([]string{"cs.LG", "cs.AI"}); got != "cs.LG|cs.AI" {
		t.Errorf("got %q", got)
	}
}
