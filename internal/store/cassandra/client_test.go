package cassandra

import (
	"errors"
	"testing"
	"time"

	"github.com/gocql/gocql"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/types"
)

func TestParseConsistency(t *testing.T) {
	tests := []struct {
		in   string
		want gocql.Consistency
	}{
		{"ONE", gocql.One},
		{"LOCAL_QUORUM", gocql.LocalQuorum},
		{"ALL", gocql.All},
		{"", gocql.Quorum},
		{"bogus", gocql.Quorum},
	}

	for _, tt := range tests {
		if got := parseConsistency(tt.in); got != tt.want {
			t.Errorf("parseConsistency(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRetryPolicy_GetRetryType(t *testing.T) {
	p := RetryPolicy(2)

	tests := []struct {
		err  error
		want gocql.RetryType
	}{
		{gocql.ErrTimeoutNoResponse, gocql.Retry},
		{errors.New("read: connection reset"), gocql.Retry},
		{errors.New("Cannot achieve consistency: Unavailable"), gocql.Retry},
		{errors.New("syntax error"), gocql.Rethrow},
	}

	for _, tt := range tests {
		if got := p.GetRetryType(tt.err); got != tt.want {
			t.Errorf("GetRetryType(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestSearchRow_RoundTrip(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &types.SearchRecord{
		ID:        "abc",
		Status:    types.StatusSucceeded,
		Depth:     2,
		Volume:    9,
		Explored:  4,
		Sequence:  []string{"MF50", "SR40 TL1"},
		CreatedAt: created,
	}

	var row searchRow
	dest := row.dest()
	for i, v := range values(rec) {
		assign(t, dest[i], v)
	}

	got := row.record()
	if got.ID != rec.ID || got.Status != rec.Status || got.Explored != 4 || got.Volume != 9 {
		t.Fatalf("record() = %+v", got)
	}
	if len(got.Sequence) != 2 || got.Sequence[1] != "SR40 TL1" {
		t.Errorf("sequence = %v", got.Sequence)
	}
	if got.FinishedAt != nil {
		t.Errorf("finished_at = %v, want nil", got.FinishedAt)
	}
}

func TestNewestFirst(t *testing.T) {
	base := time.Now()
	recs := []*types.SearchRecord{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(2 * time.Second)},
		{ID: "mid", CreatedAt: base.Add(time.Second)},
	}

	got := newestFirst(recs, 2)
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "mid" {
		t.Errorf("newestFirst = %v, %v", got[0].ID, got[1].ID)
	}
}

// assign stands in for gocql's Scan on the column types used by the table.
func assign(t *testing.T, dst, src any) {
	t.Helper()
	switch d := dst.(type) {
	case *string:
		*d = src.(string)
	case *[]byte:
		*d = src.([]byte)
	case *int:
		*d = src.(int)
	case *int64:
		*d = src.(int64)
	case *[]string:
		*d = src.([]string)
	case *time.Time:
		switch v := src.(type) {
		case time.Time:
			*d = v
		case *time.Time:
			if v != nil {
				*d = *v
			}
		}
	default:
		t.Fatalf("unexpected destination %T", dst)
	}
}
