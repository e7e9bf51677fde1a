package dedupe

import (
	"fmt"
	"testing"
	"time"

	"image-collage/internal/media"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func rec(name string, content byte, minute int) *media.Record {
	var fp media.Fingerprint
	fp[0] = content
	return &media.Record{
		Name:        name,
		Path:        "/photos/" + name,
		Fingerprint: fp,
		Created:     base.Add(time.Duration(minute) * time.Minute),
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyUnion, false},
		{"union", PolicyUnion, false},
		{"STRICT", PolicyStrict, false},
		{" strict ", PolicyStrict, false},
		{"newest", PolicyUnion, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSurvivors(t *testing.T) {
	tests := []struct {
		name    string
		records []*media.Record
		policy  Policy
		want    []int
	}{
		{
			name:    "empty input",
			records: nil,
			want:    nil,
		},
		{
			name:    "all distinct",
			records: []*media.Record{rec("a.png", 1, 0), rec("b.png", 2, 0), rec("c.png", 3, 0)},
			want:    []int{0, 1, 2},
		},
		{
			name: "same content same name keeps earliest",
			records: []*media.Record{
				rec("a.png", 1, 5), rec("a.png", 1, 1), rec("b.png", 2, 0),
			},
			want: []int{1, 2},
		},
		{
			name: "same content different names survive under union",
			records: []*media.Record{
				rec("a.png", 1, 1), rec("copy.png", 1, 2),
			},
			want: []int{0, 1},
		},
		{
			name: "same content different names collapse under strict",
			records: []*media.Record{
				rec("a.png", 1, 1), rec("copy.png", 1, 2),
			},
			policy: PolicyStrict,
			want:   []int{0},
		},
		{
			name: "same name later copy with unique content survives under union",
			records: []*media.Record{
				rec("img.jpg", 1, 1), rec("img.jpg", 2, 3),
			},
			want: []int{0, 1},
		},
		{
			name: "same name later copy dropped under strict",
			records: []*media.Record{
				rec("img.jpg", 1, 1), rec("img.jpg", 2, 3),
			},
			policy: PolicyStrict,
			want:   []int{0},
		},
		{
			name: "earlier name wins regardless of submission order",
			records: []*media.Record{
				rec("img.jpg", 1, 9), rec("img.jpg", 1, 3),
			},
			want: []int{1},
		},
		{
			name: "ties keep the first submitted",
			records: []*media.Record{
				rec("x.png", 7, 0), rec("x.png", 7, 0), rec("x.png", 7, 0),
			},
			want: []int{0},
		},
		{
			name: "duplicate content dropped when its name is also taken",
			records: []*media.Record{
				rec("a.png", 1, 0), rec("b.png", 2, 0), rec("b.png", 1, 5),
			},
			want: []int{0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.Survivors(tt.records)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Survivors() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSurvivors_FiveImagesOneCopy(t *testing.T) {
	records := []*media.Record{
		rec("one.png", 1, 0),
		rec("two.png", 2, 0),
		rec("original.png", 3, 1),
		rec("four.png", 4, 0),
		rec("original-copy.png", 3, 2),
	}

	strict := PolicyStrict.Select(records)
	if len(strict) != 4 {
		t.Fatalf("strict survivors = %d, want 4", len(strict))
	}
	for _, r := range strict {
		if r.Name == "original-copy.png" {
			t.Error("the later copy should have been removed")
		}
	}

	if union := Select(records); len(union) != 5 {
		t.Errorf("union survivors = %d, want 5 (the copy keeps its own name)", len(union))
	}
}

func TestSurvivors_Idempotent(t *testing.T) {
	records := []*media.Record{
		rec("a.png", 1, 4), rec("a.png", 2, 1), rec("b.png", 1, 2),
		rec("c.png", 3, 3), rec("c.png", 3, 0), rec("d.png", 2, 5),
	}

	for _, policy := range []Policy{PolicyUnion, PolicyStrict} {
		t.Run(policy.String(), func(t *testing.T) {
			first := policy.Select(records)
			second := policy.Select(first)
			if len(first) != len(second) {
				t.Fatalf("second pass kept %d of %d", len(second), len(first))
			}
			for i := range first {
				if first[i] != second[i] {
					t.Errorf("survivor %d changed on second pass", i)
				}
			}
		})
	}
}

func TestSelect_PreservesSubmissionOrder(t *testing.T) {
	records := []*media.Record{
		rec("z.png", 1, 9), rec("y.png", 2, 1), rec("x.png", 3, 5),
	}
	got := Select(records)
	for i, r := range got {
		if r != records[i] {
			t.Errorf("Select()[%d] = %s, want %s", i, r.Name, records[i].Name)
		}
	}
}
