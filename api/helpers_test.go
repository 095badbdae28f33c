package api

import "testing"

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name          string
		limit, offset int
		want          []int
	}{
		{"default limit", 0, 0, []int{1, 2, 3, 4, 5}},
		{"first page", 2, 0, []int{1, 2}},
		{"middle page", 2, 2, []int{3, 4}},
		{"short last page", 2, 4, []int{5}},
		{"past the end", 2, 9, []int{}},
		{"negative offset", 3, -1, []int{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := page(items, tt.limit, tt.offset)
			if got.Total != 5 {
				t.Fatalf("total = %d, want 5", got.Total)
			}
			if len(got.Items) != len(tt.want) {
				t.Fatalf("items = %v, want %v", got.Items, tt.want)
			}
			for i := range tt.want {
				if got.Items[i] != tt.want[i] {
					t.Fatalf("items = %v, want %v", got.Items, tt.want)
				}
			}
		})
	}
}

func TestDefaultLimit(t *testing.T) {
	if defaultLimit(0) != 50 || defaultLimit(5000) != 1000 || defaultLimit(20) != 20 {
		t.Fatal("unexpected limit clamping")
	}
}
