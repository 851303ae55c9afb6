package synth_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/book-expert/tts-gateway/internal/synth"
)

// buildWorkbook produces an xlsx document with a header row followed by the
// given data rows.
func buildWorkbook(t *testing.T, rows [][]string) *bytes.Reader {
	t.Helper()

	workbook := excelize.NewFile()

	sheet := workbook.GetSheetName(0)

	header := []any{"text", "filename"}

	err := workbook.SetSheetRow(sheet, "A1", &header)
	require.NoError(t, err)

	for index, row := range rows {
		cells := make([]any, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell)
		}

		ref, refErr := excelize.CoordinatesToCellName(1, index+2)
		require.NoError(t, refErr)

		err = workbook.SetSheetRow(sheet, ref, &cells)
		require.NoError(t, err)
	}

	var buffer bytes.Buffer

	err = workbook.Write(&buffer)
	require.NoError(t, err)

	return bytes.NewReader(buffer.Bytes())
}

func TestReadBatchSheet(t *testing.T) {
	t.Parallel()

	upload := buildWorkbook(t, [][]string{
		{"你好", "greeting.wav"},
		{"再见", "farewell"},
	})

	rows, err := synth.ReadBatchSheet(upload)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, synth.BatchRow{Text: "你好", Filename: "greeting.wav"}, rows[0])
	// A missing extension gets ".wav" appended.
	assert.Equal(t, synth.BatchRow{Text: "再见", Filename: "farewell.wav"}, rows[1])
}

func TestReadBatchSheetHeaderOnly(t *testing.T) {
	t.Parallel()

	upload := buildWorkbook(t, nil)

	_, err := synth.ReadBatchSheet(upload)
	require.ErrorIs(t, err, synth.ErrSheetEmpty)
}

func TestReadBatchSheetIncompleteRow(t *testing.T) {
	t.Parallel()

	upload := buildWorkbook(t, [][]string{
		{"你好", "greeting.wav"},
		{"再见", ""},
	})

	_, err := synth.ReadBatchSheet(upload)
	require.ErrorIs(t, err, synth.ErrRowIncomplete)
	assert.Contains(t, err.Error(), "row 3")
}

func TestReadBatchSheetNotAWorkbook(t *testing.T) {
	t.Parallel()

	_, err := synth.ReadBatchSheet(bytes.NewReader([]byte("plain text")))
	require.Error(t, err)
}
