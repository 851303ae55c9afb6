package synth

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/book-expert/tts-gateway/internal/artifact"
)

// Sheet layout: the first row is a header; column 0 holds the text to
// synthesize and column 1 the output filename for that row.
const (
	sheetHeaderRows  = 1
	sheetTextColumn  = 0
	sheetFileColumn  = 1
	sheetMinColumns  = 2
	wavFileExtension = ".wav"
)

// Static errors.
var (
	// ErrSheetEmpty indicates the uploaded workbook has no data rows.
	ErrSheetEmpty = errors.New("batch sheet contains no rows")
	// ErrRowIncomplete indicates a row is missing its text or filename cell.
	ErrRowIncomplete = errors.New("batch sheet row is incomplete")
)

// BatchRow is one unit of batch work: a text and the filename its WAV
// artifact will carry inside the result zip.
type BatchRow struct {
	Text     string
	Filename string
}

// ReadBatchSheet parses the first sheet of an uploaded workbook into ordered
// batch rows. Filenames without an audio extension get ".wav" appended so
// every row produces a playable artifact name.
func ReadBatchSheet(upload io.Reader) ([]BatchRow, error) {
	workbook, err := excelize.OpenReader(upload)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch workbook: %w", err)
	}

	defer func() {
		_ = workbook.Close()
	}()

	rows, err := workbook.GetRows(workbook.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read batch sheet: %w", err)
	}

	if len(rows) <= sheetHeaderRows {
		return nil, ErrSheetEmpty
	}

	batchRows := make([]BatchRow, 0, len(rows)-sheetHeaderRows)

	for index, row := range rows[sheetHeaderRows:] {
		batchRow, rowErr := parseBatchRow(row)
		if rowErr != nil {
			return nil, fmt.Errorf("%w: row %d", rowErr, index+sheetHeaderRows+1)
		}

		batchRows = append(batchRows, batchRow)
	}

	if len(batchRows) == 0 {
		return nil, ErrSheetEmpty
	}

	return batchRows, nil
}

func parseBatchRow(row []string) (BatchRow, error) {
	if len(row) < sheetMinColumns {
		return BatchRow{}, ErrRowIncomplete
	}

	text := strings.TrimSpace(row[sheetTextColumn])
	filename := strings.TrimSpace(row[sheetFileColumn])

	if text == "" || filename == "" {
		return BatchRow{}, ErrRowIncomplete
	}

	if !artifact.IsValidAudioFile(filename) {
		filename += wavFileExtension
	}

	return BatchRow{Text: text, Filename: filename}, nil
}
