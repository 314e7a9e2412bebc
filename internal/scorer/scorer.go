package scorer

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/karlseguin/ccache/v2"
	"go.uber.org/zap"

	lf "github.com/dsarena/dsarena/internal/logfield"
	"github.com/dsarena/dsarena/internal/metrics"
)

// InvalidScore marks a scoring attempt that could not produce a valid
// result. The reason lives in Result.Log.
const InvalidScore = -1

const answerCacheTTL = time.Minute * 10

// Result is the outcome of one scoring attempt. A negative Score is a
// sentinel: the attempt failed and Log explains why. Scoring failures are
// data, not errors; Score never returns a Go error for them.
type Result struct {
	Score float64
	Log   string
}

func (r Result) Valid() bool {
	return r.Score >= 0
}

type table struct {
	columns []string
	rows    []map[string]string
}

type Scorer struct {
	logger *zap.Logger

	// Answer files are immutable per challenge and re-read on every
	// submission, so parsed answers are cached for a while.
	answers *ccache.Cache
}

func New(logger *zap.Logger) *Scorer {
	return &Scorer{
		logger:  logger.With(lf.Module("scorer")),
		answers: ccache.New(ccache.Configure().MaxSize(128)),
	}
}

// Score compares the submitted file against the answer file under the
// given metric. Both files are tabular text with a header row; the target
// column is the first answer column not named "id" and must parse as
// floats in both files. Valid scores are rounded to 5 decimal places.
func (s *Scorer) Score(submissionPath, answerPath string, metric metrics.Metric) Result {
	answer, err := s.loadAnswer(answerPath)
	if err != nil {
		return s.failf("failed to read answer file: %v", err)
	}

	submission, err := readTable(submissionPath)
	if err != nil {
		return s.failf("failed to read submission file: %v", err)
	}

	if len(submission.rows) != len(answer.rows) {
		return s.failf("row count mismatch: submission has %d rows, answer has %d rows",
			len(submission.rows), len(answer.rows))
	}
	if len(answer.rows) == 0 {
		return s.failf("answer file has no data rows")
	}

	target := targetColumn(answer.columns)

	actual, err := parseColumn(answer.rows, target)
	if err != nil {
		return s.failf("answer column %q contains an invalid value", target)
	}
	predicted, err := parseColumn(submission.rows, target)
	if err != nil {
		return s.failf("column %q contains an invalid value", target)
	}

	score := round5(metric.Evaluate(predicted, actual))
	return Result{
		Score: score,
		Log: fmt.Sprintf("scoring complete: %s = %.5f (%d rows)",
			strings.ToUpper(metric.String()), score, len(submission.rows)),
	}
}

func (s *Scorer) failf(format string, args ...interface{}) Result {
	log := fmt.Sprintf(format, args...)
	s.logger.Info("Scoring failed", zap.String("reason", log))
	return Result{Score: InvalidScore, Log: log}
}

func (s *Scorer) loadAnswer(path string) (*table, error) {
	item, err := s.answers.Fetch("answer:"+path, answerCacheTTL, func() (interface{}, error) {
		return readTable(path)
	})
	if err != nil {
		return nil, err
	}
	return item.Value().(*table), nil
}

func readTable(path string) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("missing header row: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := &table{columns: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isEmptyRecord(record) {
			continue
		}

		row := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = strings.TrimSpace(record[i])
			}
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// targetColumn picks the scored column: the first answer column whose
// name is not "id", or the very first column when there is no other.
func targetColumn(columns []string) string {
	for _, column := range columns {
		if column != "id" {
			return column
		}
	}
	return columns[0]
}

func parseColumn(rows []map[string]string, column string) ([]float64, error) {
	values := make([]float64, len(rows))
	for i, row := range rows {
		value, err := strconv.ParseFloat(row[column], 64)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

func round5(value float64) float64 {
	return math.Round(value*100000) / 100000
}
