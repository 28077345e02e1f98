package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type mockExecer struct {
	sql  string
	args []any
	err  error
}

func (m *mockExecer) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	m.sql = sql
	m.args = arguments
	return pgconn.NewCommandTag("INSERT 0 1"), m.err
}

func TestUsageLog_Record(t *testing.T) {
	db := &mockExecer{}
	log := NewUsageLog(db)

	reportID := uuid.New()
	stats := UsageStats{Model: "gemini-2.5-flash", TokensInput: 12, TokensOutput: 34, Duration: 1500 * time.Millisecond}
	if err := log.Record(context.Background(), reportID, stats, "success"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(db.sql, "INSERT INTO ai_generation_logs") {
		t.Errorf("unexpected SQL %q", db.sql)
	}
	if len(db.args) != 6 {
		t.Fatalf("expected 6 args, got %d", len(db.args))
	}
	if db.args[0] != reportID || db.args[1] != "gemini-2.5-flash" || db.args[4] != int64(1500) || db.args[5] != "success" {
		t.Errorf("unexpected args %v", db.args)
	}
}

func TestUsageLog_RecordError(t *testing.T) {
	db := &mockExecer{err: errors.New("relation does not exist")}
	if err := NewUsageLog(db).Record(context.Background(), uuid.New(), UsageStats{}, "error"); err == nil {
		t.Fatal("expected error")
	}
}

func TestReportIDContext(t *testing.T) {
	if id := ReportIDFromContext(context.Background()); id != uuid.Nil {
		t.Errorf("expected nil UUID, got %s", id)
	}
	id := uuid.New()
	if got := ReportIDFromContext(WithReportID(context.Background(), id)); got != id {
		t.Errorf("expected %s, got %s", id, got)
	}
}
