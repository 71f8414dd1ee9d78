package loader

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/arxivsearch/internal/domain/paper"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
)

type mockSink struct {
	mu       sync.Mutex
	created  bool
	ensureFn func(recreate bool) (bool, error)
	saveFn   func(records []paper.Record) error
	waitErr  error
	saved    [][]paper.Record
	waits    int
	waitedAt int
}

func (m *mockSink) EnsureIndex(_ context.Context, _ []provider.Spec, recreate bool) (bool, error) {
	if m.ensureFn != nil {
		return m.ensureFn(recreate)
	}
	return m.created, nil
}

func (m *mockSink) Save(_ context.Context, records []paper.Record) error {
	if m.saveFn != nil {
		if err := m.saveFn(records); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, records)
	return nil
}

func (m *mockSink) WaitIndexed(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits++
	m.waitedAt = len(m.saved)
	return m.waitErr
}

func (m *mockSink) ids() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, b := range m.saved {
		for _, r := range b {
			out[r.Paper.ID()] = true
		}
	}
	return out
}

type stringSource struct {
	data   string
	err    error
	opened int
}

func (s *stringSource) Open(context.Context) (io.ReadCloser, error) {
	s.opened++
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.data)), nil
}

type mockGetter struct {
	body  string
	err   error
	calls int
	input *s3.GetObjectInput
}

func (m *mockGetter) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.calls++
	m.input = in
	if m.err != nil {
		return nil, m.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(m.body))}, nil
}

func testSpecs(t *testing.T) []provider.Spec {
	t.Helper()
	hf, err := provider.NewSpec(provider.HuggingFace, "", 3, "")
	require.NoError(t, err)
	oa, err := provider.NewSpec(provider.OpenAI, "", 2, "")
	require.NoError(t, err)
	return []provider.Spec{hf, oa}
}

func records(n int) []paper.Record {
	out := make([]paper.Record, n)
	for i := range out {
		id := string(rune('a' + i))
		out[i] = paper.Record{Paper: paper.New(id, "", "title "+id, "", "2021", nil)}
	}
	return out
}
