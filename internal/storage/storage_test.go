package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sfo_flights/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWriter records every PutObject call
type mockWriter struct {
	calls []putCall
	err   error
}

type putCall struct {
	bucket, key, contentType string
	body                     []byte
}

func (m *mockWriter) PutObject(_ context.Context, bucket, key string, body []byte, contentType string) error {
	m.calls = append(m.calls, putCall{bucket: bucket, key: key, body: body, contentType: contentType})
	return m.err
}

func sampleTable(t *testing.T) *models.FlightRecordTable {
	t.Helper()
	table, err := models.DecodeJSON(strings.NewReader(`[
		{"airline": "United", "flight_number": "UA 837", "gate": "G92"},
		{"airline": "United", "flight_number": "UA 1", "gate": "G98"}
	]`))
	require.NoError(t, err)
	return table
}

func TestUpload_WritesCSV(t *testing.T) {
	w := &mockWriter{}
	err := NewUploader(w).Upload(context.Background(), sampleTable(t), "sfo-flights", "experimental/flights_test.csv")
	require.NoError(t, err)

	require.Len(t, w.calls, 1)
	call := w.calls[0]
	assert.Equal(t, "sfo-flights", call.bucket)
	assert.Equal(t, "experimental/flights_test.csv", call.key)
	assert.Equal(t, CSVContentType, call.contentType)
	assert.Equal(t, "airline,flight_number,gate\nUnited,UA 837,G92\nUnited,UA 1,G98\n", string(call.body))
}

func TestUpload_EmptyTableWritesHeaderOnly(t *testing.T) {
	w := &mockWriter{}
	err := NewUploader(w).Upload(context.Background(), models.NewFlightRecordTable(), "b", "k.csv")
	require.NoError(t, err)

	require.Len(t, w.calls, 1)
	assert.Equal(t, "\n", string(w.calls[0].body))
}

func TestUpload_MissingDestination(t *testing.T) {
	w := &mockWriter{}
	err := NewUploader(w).Upload(context.Background(), sampleTable(t), "", "k.csv")

	require.ErrorIs(t, err, ErrDestination)
	assert.Empty(t, w.calls)
	assert.False(t, Retryable(err))
}

func TestUpload_ClassifiesWriterErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      string
		retryable bool
	}{
		{name: "auth", err: errors.Join(ErrAuth, assert.AnError), kind: "auth"},
		{name: "destination", err: errors.Join(ErrDestination, assert.AnError), kind: "destination"},
		{name: "unclassified", err: assert.AnError, kind: "transport", retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &mockWriter{err: tt.err}
			err := NewUploader(w).Upload(context.Background(), sampleTable(t), "b", "k")

			require.Error(t, err)
			assert.ErrorIs(t, err, assert.AnError)
			assert.Equal(t, tt.kind, Kind(err))
			assert.Equal(t, tt.retryable, Retryable(err))
		})
	}
}

func TestKind_Unclassified(t *testing.T) {
	assert.Equal(t, "", Kind(assert.AnError))
	assert.Equal(t, "", Kind(nil))
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "s3://sfo-flights/experimental/flights_test.csv", Location("sfo-flights", "experimental/flights_test.csv"))
}
