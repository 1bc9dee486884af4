package recipe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"recipe-vision/internal/core/ai/cache"
	"recipe-vision/internal/core/ai/provider"
	"recipe-vision/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	mu      sync.Mutex
	content string
	err     error
	calls   int
	prompts []string
}

func (s *stubProvider) Generate(_ context.Context, req *provider.Request) (*provider.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.prompts = append(s.prompts, req.Messages[0].Content)
	if s.err != nil {
		return nil, s.err
	}
	return &provider.Response{Content: s.content}, nil
}

func (s *stubProvider) GetModel() string          { return "stub-model" }
func (s *stubProvider) GetTimeout() time.Duration { return time.Second }
func (s *stubProvider) Close() error              { return nil }

func newTestService(p *stubProvider, store cache.Store, opts Options) *Service {
	return NewService(func() (provider.Provider, error) { return p, nil }, store, opts)
}

const soupReply = "Here are your recipes:\n```json\n{\"recipes\":[{\"name\":\"Tomato Soup\",\"servings\":2,\"steps\":[\"chop\",\"simmer\"]}]}\n```"

func TestService_Generate(t *testing.T) {
	p := &stubProvider{content: soupReply}
	s := newTestService(p, nil, Options{})

	assert.False(t, s.Loaded())
	doc, err := s.Generate(context.Background(), []string{"tomato", " Tomato ", "onion"})
	require.NoError(t, err)
	require.Len(t, doc.Recipes, 1)
	assert.Equal(t, Text("Tomato Soup"), doc.Recipes[0].Name)
	assert.Equal(t, 1, p.calls)
	assert.True(t, s.Loaded())
	assert.Equal(t, BuildPrompt([]string{"tomato", "onion"}, DefaultCount), p.prompts[0])
}

func TestService_NoIngredients(t *testing.T) {
	p := &stubProvider{content: soupReply}
	s := newTestService(p, nil, Options{})

	_, err := s.Generate(context.Background(), []string{" ", ""})
	assert.ErrorIs(t, err, ErrNoIngredients)
	assert.True(t, common.IsValidationError(err))
	assert.Zero(t, p.calls)
}

func TestService_TransportFailureIsNotRetried(t *testing.T) {
	p := &stubProvider{err: errors.New("dial tcp: connection refused")}
	s := newTestService(p, nil, Options{})

	doc, err := s.Generate(context.Background(), []string{"egg"})
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, 1, p.calls)

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Empty(t, ge.RawResponse)
}

func TestService_UnparseableKeepsRawText(t *testing.T) {
	raw := "I'm sorry, I can't make recipes right now."
	p := &stubProvider{content: raw}
	s := newTestService(p, nil, Options{})

	doc, err := s.Generate(context.Background(), []string{"egg"})
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, ErrUnparseableResponse)
	assert.ErrorIs(t, err, ErrNoJSONFound)

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, raw, ge.RawResponse)
}

func TestService_EmptyReplyIsUnparseable(t *testing.T) {
	p := &stubProvider{err: provider.ErrEmptyResponse}
	s := newTestService(p, nil, Options{})

	_, err := s.Generate(context.Background(), []string{"egg"})
	assert.ErrorIs(t, err, ErrUnparseableResponse)
}

func TestService_ProviderInitFailure(t *testing.T) {
	attempts := 0
	s := NewService(func() (provider.Provider, error) {
		attempts++
		return nil, errors.New("no client")
	}, nil, Options{})

	_, err := s.Generate(context.Background(), []string{"egg"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	_, err = s.Generate(context.Background(), []string{"egg"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, 2, attempts)
	assert.False(t, s.Loaded())
}

func TestService_StrictSchema(t *testing.T) {
	reply := `{"recipes":[{"name":"Soup","servings":"a few","steps":["boil"]}]}`

	loose := newTestService(&stubProvider{content: reply}, nil, Options{})
	_, err := loose.Generate(context.Background(), []string{"egg"})
	require.NoError(t, err)

	strict := newTestService(&stubProvider{content: reply}, nil, Options{StrictSchema: true})
	_, err = strict.Generate(context.Background(), []string{"egg"})
	assert.ErrorIs(t, err, ErrUnparseableResponse)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestService_CacheHitSkipsModel(t *testing.T) {
	store := cache.NewManager(time.Minute, time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	p := &stubProvider{content: soupReply}
	s := newTestService(p, store, Options{})

	first, err := s.Generate(context.Background(), []string{"tomato", "onion"})
	require.NoError(t, err)
	second, err := s.Generate(context.Background(), []string{"tomato", " onion "})
	require.NoError(t, err)

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, first.Recipes, second.Recipes)
}

func TestService_FailuresAreNotCached(t *testing.T) {
	store := cache.NewManager(time.Minute, time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	p := &stubProvider{content: "nope"}
	s := newTestService(p, store, Options{})

	_, err := s.Generate(context.Background(), []string{"egg"})
	require.Error(t, err)
	_, err = s.Generate(context.Background(), []string{"egg"})
	require.Error(t, err)
	assert.Equal(t, 2, p.calls)
}
