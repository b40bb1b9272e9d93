package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sfo_flights/internal/config"
)

// mockS3 is a stand-in for the S3 client
type mockS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (m *mockS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.input = params
	m.body, _ = io.ReadAll(params.Body)
	if m.err != nil {
		return nil, m.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Writer_PutObject(t *testing.T) {
	m := &mockS3{}
	w := &S3Writer{client: m}

	err := w.PutObject(context.Background(), "sfo-flights", "experimental/flights_test.csv", []byte("a\n1\n"), CSVContentType)
	require.NoError(t, err)

	assert.Equal(t, "sfo-flights", aws.ToString(m.input.Bucket))
	assert.Equal(t, "experimental/flights_test.csv", aws.ToString(m.input.Key))
	assert.Equal(t, CSVContentType, aws.ToString(m.input.ContentType))
	assert.Equal(t, int64(4), aws.ToInt64(m.input.ContentLength))
	assert.Equal(t, "a\n1\n", string(m.body))
}

func TestS3Writer_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		code string
		kind string
	}{
		{code: "InvalidAccessKeyId", kind: "auth"},
		{code: "SignatureDoesNotMatch", kind: "auth"},
		{code: "AccessDenied", kind: "auth"},
		{code: "NoSuchBucket", kind: "destination"},
		{code: "InvalidBucketName", kind: "destination"},
		{code: "SlowDown", kind: "transport"},
		{code: "InternalError", kind: "transport"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			m := &mockS3{err: &smithy.GenericAPIError{Code: tt.code, Message: "test"}}
			err := (&S3Writer{client: m}).PutObject(context.Background(), "b", "k", []byte("x"), CSVContentType)

			require.Error(t, err)
			assert.Equal(t, tt.kind, Kind(err))
		})
	}
}

func TestS3Writer_NetworkErrorIsTransport(t *testing.T) {
	m := &mockS3{err: assert.AnError}
	err := (&S3Writer{client: m}).PutObject(context.Background(), "b", "k", []byte("x"), CSVContentType)

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, assert.AnError)
}

// fakeS3 accepts path-style PUTs, or rejects them with an S3 error document
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]string
	rejectAs string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.rejectAs != "" {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>`+f.rejectAs+`</Code><Message>rejected by test</Message><RequestId>TEST</RequestId></Error>`)
		return
	}
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.objects[r.URL.Path] = string(body)
	f.mu.Unlock()

	w.Header().Set("ETag", `"test"`)
	w.WriteHeader(http.StatusOK)
}

func newFakeS3Writer(t *testing.T, fake *fakeS3) *S3Writer {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	w, err := NewS3Writer(context.Background(), config.StorageConfig{
		Region:          "us-west-1",
		Endpoint:        srv.URL,
		PathStyle:       true,
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	return w
}

func TestS3Writer_FakeEndpoint(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	w := newFakeS3Writer(t, fake)

	err := w.PutObject(context.Background(), "sfo-flights", "experimental/flights_test.csv", []byte("a,b\n1,2\n"), CSVContentType)
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "a,b\n1,2\n", fake.objects["/sfo-flights/experimental/flights_test.csv"])
}

func TestS3Writer_FakeEndpointRejectsCredentials(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}, rejectAs: "InvalidAccessKeyId"}
	w := newFakeS3Writer(t, fake)

	err := w.PutObject(context.Background(), "sfo-flights", "experimental/flights_test.csv", []byte("a\n"), CSVContentType)
	require.ErrorIs(t, err, ErrAuth)
	assert.False(t, Retryable(err))
}
