package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	data, err := exporter.Render(Dataset{
		Headers: []string{"Student Number", "Name", "Grade"},
		Rows: []map[string]string{
			{"Student Number": "S2026001", "Name": "Ada Lovelace", "Grade": "A"},
			{"Student Number": "S2026002", "Name": "Alan Turing"},
		},
	})
	require.NoError(t, err)

	// Missing cells render empty so columns stay aligned.
	assert.Equal(t, "Student Number,Name,Grade\nS2026001,Ada Lovelace,A\nS2026002,Alan Turing,\n", string(data))
}

func TestCSVExporterRejectsEmptyHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{Rows: []map[string]string{{"Name": "Ada"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one column")
}
