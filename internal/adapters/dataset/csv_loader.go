package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/mikey/ml-spam-filter/internal/core"
)

const (
	categoryColumn = "Category"
	messageColumn  = "Messages"
)

var labels = map[string]int{
	"ham":  core.LabelHam,
	"spam": core.LabelSpam,
}

// CSVLoader reads a Category/Messages CSV. Files that are not valid UTF-8
// are decoded as ISO-8859-1.
type CSVLoader struct {
	logger *zap.Logger
}

// NewCSVLoader creates a new CSVLoader
func NewCSVLoader(logger *zap.Logger) *CSVLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVLoader{logger: logger}
}

// Load parses the dataset at path. Rows with an empty field or a category
// other than "ham" or "spam" are dropped.
func (l *CSVLoader) Load(ctx context.Context, path string) ([]core.LabeledEmail, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", core.ErrDatasetNotFound, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrDatasetNotFound, path, err)
	}

	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	var r io.Reader = bytes.NewReader(raw)
	if !utf8.Valid(raw) {
		l.logger.Debug("Decoding dataset as ISO-8859-1", zap.String("path", path))
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no header row", core.ErrMalformedDataset)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedDataset, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 columns, got %d", core.ErrMalformedDataset, len(header))
	}
	catIdx, msgIdx := columns(header)

	var (
		rows    []core.LabeledEmail
		dropped int
		line    int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", core.ErrMalformedDataset, line, err)
		}

		if catIdx >= len(record) || msgIdx >= len(record) {
			dropped++
			continue
		}
		category, message := record[catIdx], record[msgIdx]
		label, ok := labels[category]
		if !ok || message == "" {
			dropped++
			continue
		}
		rows = append(rows, core.LabeledEmail{Text: message, Label: label})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrEmptyDataset, path)
	}

	spam := 0
	for _, row := range rows {
		spam += row.Label
	}
	l.logger.Info("Dataset loaded",
		zap.String("path", path),
		zap.Int("emails", len(rows)),
		zap.Int("ham", len(rows)-spam),
		zap.Int("spam", spam),
		zap.Int("dropped", dropped))

	return rows, nil
}

// columns returns the Category and Messages indices, falling back to the
// first two columns when the header does not name them.
func columns(header []string) (int, int) {
	catIdx, msgIdx := -1, -1
	for i, name := range header {
		switch name {
		case categoryColumn:
			catIdx = i
		case messageColumn:
			msgIdx = i
		}
	}
	if catIdx < 0 || msgIdx < 0 {
		return 0, 1
	}
	return catIdx, msgIdx
}
