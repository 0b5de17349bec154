package main

import (
	"strings"
	"testing"

	"github.com/ternarybob/docbro/internal/models"
)

func TestBatchError(t *testing.T) {
	tests := []struct {
		name    string
		summary models.BatchSummary
		wantErr bool
	}{
		{"all succeeded", models.BatchSummary{Attempted: 3, Succeeded: 3}, false},
		{"nothing attempted", models.BatchSummary{}, false},
		{"partial failure", models.BatchSummary{Attempted: 3, Succeeded: 2, Failed: 1}, true},
		{"total failure", models.BatchSummary{Attempted: 2, Failed: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := batchError(&tt.summary)
			if (err != nil) != tt.wantErr {
				t.Fatalf("batchError: got %v, wantErr=%v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "failed") {
				t.Errorf("error message: %q", err.Error())
			}
		})
	}
}
