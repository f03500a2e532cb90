package spreadsheet

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseXLSX(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"Name", "Email", "Phone"},
		{"Jane Doe", "jane@example.com", "+100"},
		{"", "", ""},
		{"John Roe", "john@example.com", ""},
	})

	rows, err := Parse("participants.xlsx", buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Name: "Jane Doe", Email: "jane@example.com", Phone: "+100"}, rows[0])
	assert.Equal(t, "John Roe", rows[1].Name)
	assert.Empty(t, rows[1].Phone)
}

func TestParseCSVColumnOrder(t *testing.T) {
	in := "phone, email ,NAME\n555,a@b.c,Alice\n,b@b.c,Bob\n"

	rows, err := Parse("list.CSV", strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{Name: "Alice", Email: "a@b.c", Phone: "555"},
		{Name: "Bob", Email: "b@b.c"},
	}, rows)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("list.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Parse("list.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Parse("list.csv", strings.NewReader("email,phone\na@b.c,1\n"))
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = Parse("list.csv", strings.NewReader("name,email\n"))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Parse("list.xlsx", strings.NewReader("not a zip"))
	assert.Error(t, err)
}
