package sensordata

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCSV = "Time,Temp,Current,Process\n00:00:01,70.1,1.5,1\n00:00:02,70.4,1.6,2\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestDateFromFilename(t *testing.T) {
	d, err := DateFromFilename("/data/kemp-abh-sensor-2024.03.15.csv")
	require.NoError(t, err)
	assert.Equal(t, domain.NewDate(2024, 3, 15), d)

	d, err = DateFromFilename("kemp-abh-sensor-2024.3.5.csv")
	require.NoError(t, err)
	assert.Equal(t, domain.NewDate(2024, 3, 5), d)

	_, err = DateFromFilename("kemp-abh-sensor-garbage.csv")
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestLoadIndexesByFilenameDate(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kemp-abh-sensor-2024.03.15.csv", validCSV)

	result, err := Load(dir, WithLogger(quietLogger()))
	require.NoError(t, err)

	require.Len(t, result.Index, 1)
	table, ok := result.Index[domain.NewDate(2024, 3, 15)]
	require.True(t, ok)
	assert.Equal(t, 2, table.Len())
	assert.Empty(t, result.Discards)

	sources, err := table.Column(domain.ColumnSource)
	require.NoError(t, err)
	assert.Equal(t, []string{path, path}, sources)
}

func TestLoadSkipsUnparseableName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kemp-abh-sensor-2024.03.15.csv", validCSV)
	garbage := writeFile(t, dir, "kemp-abh-sensor-garbage.csv", validCSV)
	writeFile(t, dir, "kemp-abh-sensor-2024.03.16.csv", validCSV)

	var logs bytes.Buffer
	result, err := Load(dir, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)

	assert.Equal(t, []domain.Date{domain.NewDate(2024, 3, 15), domain.NewDate(2024, 3, 16)}, result.Index.Dates())
	require.Len(t, result.Discards, 1)
	assert.Equal(t, garbage, result.Discards[0].Path)
	assert.ErrorIs(t, result.Discards[0].Err, domain.ErrInvalidDate)
	assert.Equal(t, KindBadDate, result.Discards[0].Kind())
	assert.Contains(t, logs.String(), "skipping sensor file")
	assert.Contains(t, logs.String(), "level=WARN")
}

func TestLoadSkipsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kemp-abh-sensor-2024.03.15.csv", "Temp,Process\n70,1\n")

	result, err := Load(dir, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Empty(t, result.Index)
	require.Len(t, result.Discards, 1)

	var mce *MissingColumnError
	require.ErrorAs(t, result.Discards[0].Err, &mce)
	assert.Equal(t, "Current", mce.Column)
	assert.Contains(t, result.Discards[0].Reason, `missing required column "Current"`)
	assert.Equal(t, KindMissingColumn, result.Discards[0].Kind())
}

func TestLoadCustomRequiredColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kemp-abh-sensor-2024.03.15.csv", "Temp,Process\n70,1\n")

	result, err := Load(dir, WithLogger(quietLogger()), WithRequiredColumns("Temp"))
	require.NoError(t, err)
	assert.Len(t, result.Index, 1)
}

func TestLoadSkipsMalformedCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kemp-abh-sensor-2024.03.14.csv", "")
	writeFile(t, dir, "kemp-abh-sensor-2024.03.15.csv", "Temp,Current,Process\n1,2,3,4\n")
	writeFile(t, dir, "kemp-abh-sensor-2024.03.16.csv", "Temp,Current,Process\n\"unterminated,2,3\n")
	writeFile(t, dir, "kemp-abh-sensor-2024.03.17.csv", validCSV)

	result, err := Load(dir, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Equal(t, []domain.Date{domain.NewDate(2024, 3, 17)}, result.Index.Dates())
	require.Len(t, result.Discards, 3)
	assert.ErrorIs(t, result.Discards[0].Err, ErrEmptyFile)
	assert.Equal(t, KindEmpty, result.Discards[0].Kind())
	assert.Equal(t, KindMalformed, result.Discards[1].Kind())
	assert.Equal(t, KindMalformed, Discard{Path: "restored.csv", Reason: "bad date"}.Kind())
}

func TestLoadIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Error Lot list.csv", "Date,Lot1\n")
	writeFile(t, dir, "notes.txt", "hello")
	writeFile(t, dir, "kemp-abh-sensor-2024.03.15.csv", validCSV)

	result, err := Load(dir, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Len(t, result.Index, 1)
	assert.Empty(t, result.Discards)
}

func TestLoadMissingDirectory(t *testing.T) {
	result, err := Load(filepath.Join(t.TempDir(), "nope"), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Empty(t, result.Index)
	assert.Empty(t, result.Discards)
}

func TestLoadDateCollision(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kemp-abh-sensor-2024.03.05.csv", validCSV)
	writeFile(t, dir, "kemp-abh-sensor-2024.3.5.csv", validCSV)

	_, err := Load(dir, WithLogger(quietLogger()))

	var dce *DateCollisionError
	require.ErrorAs(t, err, &dce)
	assert.Equal(t, domain.NewDate(2024, 3, 5), dce.Date)
}

func TestParseTablePadsShortRows(t *testing.T) {
	table, err := parseTable(strings.NewReader("Temp,Current,Process\n70\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"70", "", ""}}, table.Rows)
}

func TestParseTableHeaderOnly(t *testing.T) {
	table, err := parseTable(strings.NewReader("Temp,Current,Process\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, []string{"Temp", "Current", "Process"}, table.Columns)
}

func TestDedupeColumns(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "A.1", "A.2"}, dedupeColumns([]string{"A", " B ", "A", "A"}))
}
