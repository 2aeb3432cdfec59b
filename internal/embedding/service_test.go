package embedding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel is a deterministic in-memory model for tests. It hashes each
// text into a small vector so distinct texts get distinct embeddings.
type fakeModel struct {
	dims   int
	calls  int
	failOn string
}

func (f *fakeModel) Name() string    { return "fake" }
func (f *fakeModel) Version() string { return "fake-v1" }
func (f *fakeModel) Dimensions() int { return f.dims }
func (f *fakeModel) Close() error    { return nil }

func (f *fakeModel) Embed(text string) ([]float32, error) {
	f.calls++
	if f.failOn != "" && text == f.failOn {
		return nil, errors.New("model unavailable")
	}
	vec := make([]float32, f.dims)
	for i, r := range text {
		vec[i%f.dims] += float32(r)
	}
	return vec, nil
}

func (f *fakeModel) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := f.Embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func TestService_Embed(t *testing.T) {
	svc := NewServiceWith(&fakeModel{dims: 4})

	vec, err := svc.Embed("Jakub Kowalski")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestService_Embed_EmptyInput(t *testing.T) {
	svc := NewServiceWith(&fakeModel{dims: 4})

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := svc.Embed(text)
		assert.ErrorIs(t, err, ErrEmptyInput, "text %q", text)
	}
}

func TestService_EmbedBatch_RejectsEmptyItem(t *testing.T) {
	svc := NewServiceWith(&fakeModel{dims: 4})

	_, err := svc.EmbedBatch([]string{"ok", "  "})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestNewService_UnknownVersion(t *testing.T) {
	_, err := NewService("no-such-model")
	assert.Error(t, err)
}

func TestCache_MemoizesPerText(t *testing.T) {
	model := &fakeModel{dims: 4}
	cache := NewCache(NewServiceWith(model))

	first, err := cache.Embed("Anna Nowak")
	require.NoError(t, err)
	second, err := cache.Embed("Anna Nowak")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, model.calls, "second lookup must not hit the model")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCache_TrimsBeforeLookup(t *testing.T) {
	model := &fakeModel{dims: 4}
	cache := NewCache(NewServiceWith(model))

	_, err := cache.Embed("Anna Nowak")
	require.NoError(t, err)
	_, err = cache.Embed("  Anna Nowak  ")
	require.NoError(t, err)

	assert.Equal(t, 1, model.calls)
}

func TestCache_EmptyInput(t *testing.T) {
	cache := NewCache(NewServiceWith(&fakeModel{dims: 4}))

	_, err := cache.Embed("   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestCache_Seed(t *testing.T) {
	model := &fakeModel{dims: 3}
	cache := NewCache(NewServiceWith(model))

	seeded := []float32{1, 2, 3}
	cache.Seed("Jan Kowalski", seeded)

	vec, err := cache.Embed("Jan Kowalski")
	require.NoError(t, err)
	assert.Equal(t, seeded, vec)
	assert.Zero(t, model.calls)
}

func TestCache_SeedFoundAcrossCasing(t *testing.T) {
	// The persistent vector cache hands back vectors keyed by normalized
	// phrase; looking up the original capitalized text must still hit.
	model := &fakeModel{dims: 3}
	cache := NewCache(NewServiceWith(model))

	seeded := []float32{1, 2, 3}
	cache.Seed("jakub kowalski", seeded)

	vec, err := cache.Embed("Jakub Kowalski")
	require.NoError(t, err)
	assert.Equal(t, seeded, vec)
	assert.Zero(t, model.calls, "seeded phrase must never hit the provider")
}

func TestCache_MemoizesAcrossCasing(t *testing.T) {
	model := &fakeModel{dims: 4}
	cache := NewCache(NewServiceWith(model))

	_, err := cache.Embed("Jakub Kowalski")
	require.NoError(t, err)
	_, err = cache.Embed("JAKUB  KOWALSKI")
	require.NoError(t, err)

	assert.Equal(t, 1, model.calls)
}

func TestCache_ProviderSeesOriginalCasing(t *testing.T) {
	model := &fakeModel{dims: 4}
	cache := NewCache(NewServiceWith(model))

	direct, err := NewServiceWith(&fakeModel{dims: 4}).Embed("Jakub Kowalski")
	require.NoError(t, err)
	cached, err := cache.Embed("  Jakub Kowalski  ")
	require.NoError(t, err)

	// Only the lookup key folds; the model embeds the trimmed original.
	assert.Equal(t, direct, cached)
}

func TestCache_ProviderErrorNotCached(t *testing.T) {
	model := &fakeModel{dims: 4, failOn: "broken"}
	cache := NewCache(NewServiceWith(model))

	_, err := cache.Embed("broken")
	require.Error(t, err)

	// Failure is not memoized; a later attempt retries the provider.
	model.failOn = ""
	vec, err := cache.Embed("broken")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}
