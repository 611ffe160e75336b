package entitystore

import (
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"go.mongodb.org/mongo-driver/bson"
)

func TestScope(t *testing.T) {
	tests := []struct {
		name       string
		filter     bson.M
		opts       []Option
		wantStatus any
	}{
		{"default adds not-deleted", bson.M{"email": "a"}, nil, bson.M{"$ne": status.Deleted}},
		{"include deleted leaves filter", bson.M{"email": "a"}, []Option{IncludeDeleted()}, nil},
		{"explicit status wins", bson.M{"status": status.Deleted}, nil, status.Deleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scope(tt.filter, collect(tt.opts))
			st, ok := got["status"]
			if tt.wantStatus == nil {
				if ok {
					t.Fatalf("unexpected status condition %v", st)
				}
				return
			}
			switch want := tt.wantStatus.(type) {
			case bson.M:
				m, ok := st.(bson.M)
				if !ok || m["$ne"] != want["$ne"] {
					t.Errorf("status = %v, want %v", st, want)
				}
			default:
				if st != want {
					t.Errorf("status = %v, want %v", st, want)
				}
			}
		})
	}
}

func TestScopeDoesNotMutateInput(t *testing.T) {
	in := bson.M{"email": "a"}
	_ = scope(in, callOpts{})
	if _, ok := in["status"]; ok {
		t.Error("scope mutated the caller's filter")
	}
}
