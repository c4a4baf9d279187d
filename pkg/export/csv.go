// Package export serializes collected questions and resolved answers to a
// CSV file with a fixed five-column schema.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/qirunlin/nlp2/pkg/stackexchange"
)

// Columns is the fixed CSV header.
var Columns = []string{
	"Title",
	"Description",
	"Tags",
	"Accepted Answer",
	"is_answered",
}

// Write emits the header and one row per question, in the given order.
// A question without an accepted answer, or whose answer could not be
// resolved, gets an empty Accepted Answer column. Quoting of delimiter and
// quote characters follows RFC 4180 via encoding/csv.
func Write(w io.Writer, questions []stackexchange.Question, answers map[int64]string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, q := range questions {
		accepted := ""
		if q.HasAcceptedAnswer() {
			accepted = answers[q.AcceptedAnswerID]
		}

		row := []string{
			q.Title,
			q.Body,
			strings.Join(q.Tags, ", "),
			accepted,
			strconv.FormatBool(q.IsAnswered),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for question %d: %w", q.QuestionID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteFile writes the CSV to path, creating or truncating it.
func WriteFile(path string, questions []stackexchange.Question, answers map[int64]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := Write(f, questions, answers); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
