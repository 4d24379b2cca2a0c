package export

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVRenderSparseRows(t *testing.T) {
	data := Dataset{
		Headers: []string{"Timestamp", "Action", "Description"},
		Rows: []map[string]string{
			{"Timestamp": "2026-08-01T10:00:00Z", "Action": "SUBMITTED"},
			{"Timestamp": "2026-08-02T09:30:00Z", "Action": "ACCEPTED", "Description": "approved by evaluator"},
		},
	}

	payload, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	require.Equal(t,
		"Timestamp,Action,Description\n"+
			"2026-08-01T10:00:00Z,SUBMITTED,\n"+
			"2026-08-02T09:30:00Z,ACCEPTED,approved by evaluator\n",
		string(payload))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFColumnWidthsFavorLastColumn(t *testing.T) {
	widths := columnWidths(4)
	require.Len(t, widths, 4)

	total := 0.0
	for _, w := range widths {
		total += w
	}
	require.InDelta(t, tableWidth, total, 0.001)
	require.Greater(t, widths[3], widths[0])

	require.Equal(t, []float64{tableWidth}, columnWidths(1))
}

func TestPDFRenderProducesDocument(t *testing.T) {
	data := Dataset{
		Headers: []string{"Timestamp", "Action"},
		Rows:    []map[string]string{{"Timestamp": "2026-08-01T10:00:00Z", "Action": "SUBMITTED"}},
	}

	payload, err := NewPDFExporter().Render(data, "Deliverable History")
	require.NoError(t, err)
	require.True(t, len(payload) > 0)
	require.Equal(t, "%PDF", string(payload[:4]))
}
