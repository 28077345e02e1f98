package ai

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/ecobuddy/internal/logging"
)

type UsageStats struct {
	Model        string
	TokensInput  int
	TokensOutput int
	Duration     time.Duration
}

// Execer is the subset of *pgxpool.Pool the usage log needs.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// UsageLog records one row per model call in ai_generation_logs. Rows hold
// call metadata only; prompts, inputs and generated text are never stored.
type UsageLog struct {
	db Execer
}

func NewUsageLog(db Execer) *UsageLog {
	return &UsageLog{db: db}
}

func (u *UsageLog) Record(ctx context.Context, reportID uuid.UUID, stats UsageStats, status string) error {
	_, err := u.db.Exec(ctx, `
		INSERT INTO ai_generation_logs (report_id, model, tokens_input, tokens_output, duration_ms, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, reportID, stats.Model, stats.TokensInput, stats.TokensOutput, stats.Duration.Milliseconds(), status)
	return err
}

type reportIDKey struct{}

// WithReportID tags ctx so usage rows can be correlated with the report
// that triggered the call.
func WithReportID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, reportIDKey{}, id)
}

func ReportIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(reportIDKey{}).(uuid.UUID)
	return id
}

func (c *GeminiClient) logUsageWithTimeout(reportID uuid.UUID, stats UsageStats, status string) {
	observeGeneration(stats, status)
	if c.usage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.usage.Record(ctx, reportID, stats, status); err != nil {
		logging.Error("Failed to log AI usage", map[string]interface{}{
			"error":     err.Error(),
			"report_id": reportID.String(),
		})
	}
}
