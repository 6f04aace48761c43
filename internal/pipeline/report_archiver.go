// Package pipeline holds the offline data movement around the scanner.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/mgalloway/crossbook/internal/blob/s3"
	"github.com/mgalloway/crossbook/internal/domain"
)

// ReportArchiver writes each scan pass's opportunity set to object storage
// as a JSONL file, one object per pass, keyed by scan time.
type ReportArchiver struct {
	writer *s3blob.Writer
	prefix string
	logger *slog.Logger
}

// NewReportArchiver creates an archiver that writes under the given key
// prefix (e.g. "opportunities").
func NewReportArchiver(writer *s3blob.Writer, prefix string, logger *slog.Logger) *ReportArchiver {
	return &ReportArchiver{
		writer: writer,
		prefix: prefix,
		logger: logger.With(slog.String("component", "report_archiver")),
	}
}

// Archive uploads the opportunities as one JSONL object. An empty set is a
// no-op.
func (a *ReportArchiver) Archive(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, opp := range opps {
		if err := enc.Encode(opp); err != nil {
			return fmt.Errorf("pipeline: encode opportunity %s: %w", opp.ID, err)
		}
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("%s/%s/%s.jsonl",
		a.prefix,
		now.Format("2006/01/02"),
		now.Format("150405.000000000"),
	)

	if err := a.writer.Put(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return fmt.Errorf("pipeline: archive report: %w", err)
	}

	a.logger.Debug("archived scan report",
		slog.String("key", key),
		slog.Int("opportunities", len(opps)),
	)
	return nil
}
