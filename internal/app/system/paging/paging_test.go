package paging

import (
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func i32(n int32) *int32 { return &n }

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		limit   *int32
		offset  *int32
		want    Window
		wantErr bool
	}{
		{"defaults", nil, nil, Window{Limit: PageSize}, false},
		{"explicit", i32(10), i32(20), Window{Limit: 10, Offset: 20}, false},
		{"max", i32(MaxPageSize), nil, Window{Limit: MaxPageSize}, false},
		{"zero limit", i32(0), nil, Window{}, true},
		{"too large", i32(MaxPageSize + 1), nil, Window{}, true},
		{"negative offset", nil, i32(-1), Window{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.limit, tt.offset)
			if tt.wantErr {
				if apperr.CodeOf(err) != apperr.InvalidArgument {
					t.Fatalf("expected InvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name          string
		limit, offset int64
		want          []int
	}{
		{"first page", 2, 0, []int{1, 2}},
		{"middle", 2, 2, []int{3, 4}},
		{"short tail", 2, 4, []int{5}},
		{"past end", 2, 5, nil},
		{"no limit", 0, 3, []int{4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slice(rows, tt.limit, tt.offset)
			if len(got) != len(tt.want) {
				t.Fatalf("Slice() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Slice() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestApplyToFind(t *testing.T) {
	fo := options.Find()
	ApplyToFind(fo, 10, 0)
	if fo.Limit == nil || *fo.Limit != 10 {
		t.Errorf("expected limit 10, got %v", fo.Limit)
	}
	if fo.Skip != nil {
		t.Errorf("expected no skip, got %v", *fo.Skip)
	}
}
