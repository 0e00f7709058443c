package internal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/sift"
)

// fakeAIServer mimics the text-generation service: a models probe plus a
// chat completion endpoint that replays canned contents in order.
type fakeAIServer struct {
	*httptest.Server
	probeCalls    atomic.Int64
	generateCalls atomic.Int64
}

func newFakeAIServer(t *testing.T, probeStatus int, contents ...string) *fakeAIServer {
	t.Helper()
	f := &fakeAIServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		f.probeCalls.Add(1)
		w.WriteHeader(probeStatus)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		n := f.generateCalls.Add(1)
		content := ""
		if len(contents) > 0 {
			idx := int(n) - 1
			if idx >= len(contents) {
				idx = len(contents) - 1
			}
			content = contents[idx]
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

func testConfig(baseURL string) *sift.Config {
	cfg := sift.DefaultConfig()
	cfg.AI.BaseURL = baseURL
	cfg.AI.Timeout = 2 * time.Second
	cfg.AI.RequestsPerSecond = 100
	cfg.AI.Burst = 10
	return cfg
}

func newTestPipeline(cfg *sift.Config) *Pipeline {
	return NewPipeline(cfg, NewTranslator(), NewAIClient(cfg.AI), NewQueryCache(cfg.Cache.MaxEntries))
}

func taskRequest(text string) sift.SearchRequest {
	return sift.SearchRequest{Entity: sift.EntityTasks, Text: text, Schema: taskSchema()}
}

func TestPipeline_InputValidation(t *testing.T) {
	p := newTestPipeline(testConfig(""))

	_, err := p.Resolve(context.Background(), sift.SearchRequest{Entity: "gadgets", Text: "x > 1"})
	se, ok := sift.AsSiftError(err)
	require.True(t, ok)
	assert.Equal(t, sift.ErrorTypeInput, se.Type)
	assert.Equal(t, sift.ErrCodeUnknownEntity, se.Code)

	_, err = p.Resolve(context.Background(), sift.SearchRequest{Entity: sift.EntityTasks, Text: "   "})
	se, ok = sift.AsSiftError(err)
	require.True(t, ok)
	assert.Equal(t, sift.ErrCodeEmptyQuery, se.Code)
}

func TestPipeline_DeterministicTierSkipsAI(t *testing.T) {
	server := newFakeAIServer(t, http.StatusOK)
	p := newTestPipeline(testConfig(server.URL))

	res, err := p.Resolve(context.Background(), taskRequest("duration > 2"))
	require.NoError(t, err)
	assert.Equal(t, sift.SourceDeterministic, res.Source)
	assert.False(t, res.Cached)
	assert.Equal(t, int64(0), server.probeCalls.Load(), "deterministic hit must not touch the AI service")
}

func TestPipeline_AITier(t *testing.T) {
	answer := `{"filter":{"op":"cmp","field":"Duration","cmp":">","value":2}}`
	server := newFakeAIServer(t, http.StatusOK, answer)
	p := newTestPipeline(testConfig(server.URL))

	res, err := p.Resolve(context.Background(), taskRequest("show tasks that take a while"))
	require.NoError(t, err)
	assert.Equal(t, sift.SourceAI, res.Source)
	assert.Equal(t, int64(1), server.generateCalls.Load())

	leaf, ok := res.Filter.(*sift.Leaf)
	require.True(t, ok)
	assert.Equal(t, "Duration", leaf.Field)
}

func TestPipeline_AIOutputRepairedBeforeUse(t *testing.T) {
	// A sloppy field name in the AI answer must come back resolved.
	answer := `{"filter":{"op":"cmp","field":"preferred phases","cmp":"==","value":"3"}}`
	server := newFakeAIServer(t, http.StatusOK, answer)
	p := newTestPipeline(testConfig(server.URL))

	res, err := p.Resolve(context.Background(), taskRequest("anything in the third phase please"))
	require.NoError(t, err)
	require.Equal(t, sift.SourceAI, res.Source)

	leaf, ok := res.Filter.(*sift.Leaf)
	require.True(t, ok)
	assert.Equal(t, "PreferredPhases", leaf.Field)
	assert.Equal(t, sift.OpIncludes, leaf.Op, "equality on an array column must upgrade to includes")
}

func TestPipeline_SecondAttemptAfterInvalidJSON(t *testing.T) {
	answer := `{"filter":{"op":"cmp","field":"Duration","cmp":">","value":2}}`
	server := newFakeAIServer(t, http.StatusOK, "sorry, no JSON from me", answer)
	p := newTestPipeline(testConfig(server.URL))

	res, err := p.Resolve(context.Background(), taskRequest("show tasks that take a while"))
	require.NoError(t, err)
	assert.Equal(t, sift.SourceAI, res.Source)
	assert.Equal(t, int64(2), server.generateCalls.Load(), "invalid JSON must trigger the stricter retry")
}

func TestPipeline_HeuristicFallbackAfterAIGarbage(t *testing.T) {
	server := newFakeAIServer(t, http.StatusOK, "no json here", "still no json")
	p := newTestPipeline(testConfig(server.URL))

	// "welding" defeats the deterministic translator but matches a
	// sampled value of RequiredSkills.
	res, err := p.Resolve(context.Background(), taskRequest("welding"))
	require.NoError(t, err)
	assert.Equal(t, sift.SourceHeuristic, res.Source)
	assert.Equal(t, int64(2), server.generateCalls.Load())
}

func TestPipeline_HungUpstreamFallsToHeuristic(t *testing.T) {
	// The probe answers immediately but the completion endpoint never
	// does; the per-attempt timeout must cut it off so the heuristic
	// tier still answers promptly.
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := testConfig(server.URL)
	cfg.AI.Timeout = 200 * time.Millisecond
	p := newTestPipeline(cfg)

	start := time.Now()
	res, err := p.Resolve(context.Background(), taskRequest("welding"))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, sift.SourceHeuristic, res.Source)
	assert.Less(t, elapsed, 2*time.Second, "a hung upstream must not stall resolution")
}

func TestPipeline_HallucinatedFilterDiscarded(t *testing.T) {
	answer := `{"filter":{"op":"cmp","field":"CompletelyMadeUpColumn","value":1}}`
	server := newFakeAIServer(t, http.StatusOK, answer)
	p := newTestPipeline(testConfig(server.URL))

	res, err := p.Resolve(context.Background(), taskRequest("welding"))
	require.NoError(t, err)
	assert.Equal(t, sift.SourceHeuristic, res.Source)
	assert.Equal(t, int64(1), server.generateCalls.Load(), "a hallucinated answer must not earn a retry")
}

func TestPipeline_UnresolvableReasons(t *testing.T) {
	nonsense := "purple monkey dishwasher nonsense"

	t.Run("invalid JSON received", func(t *testing.T) {
		server := newFakeAIServer(t, http.StatusOK, "garbage", "more garbage")
		p := newTestPipeline(testConfig(server.URL))

		_, err := p.Resolve(context.Background(), taskRequest(nonsense))
		se, ok := sift.AsSiftError(err)
		require.True(t, ok)
		assert.Equal(t, sift.ErrorTypeUnresolvable, se.Type)
		assert.Equal(t, sift.ReasonInvalidJSON, se.Reason)
	})

	t.Run("no response at all", func(t *testing.T) {
		server := newFakeAIServer(t, http.StatusInternalServerError)
		p := newTestPipeline(testConfig(server.URL))

		_, err := p.Resolve(context.Background(), taskRequest(nonsense))
		se, ok := sift.AsSiftError(err)
		require.True(t, ok)
		assert.Equal(t, sift.ErrorTypeUnresolvable, se.Type)
		assert.Equal(t, sift.ReasonNoResponse, se.Reason)
	})

	t.Run("no AI tier configured", func(t *testing.T) {
		p := newTestPipeline(testConfig(""))
		_, err := p.Resolve(context.Background(), taskRequest(nonsense))
		se, ok := sift.AsSiftError(err)
		require.True(t, ok)
		assert.Equal(t, sift.ReasonNoResponse, se.Reason)
	})
}

func TestPipeline_CacheShortCircuits(t *testing.T) {
	answer := `{"filter":{"op":"cmp","field":"Duration","cmp":">","value":2}}`
	server := newFakeAIServer(t, http.StatusOK, answer)
	p := newTestPipeline(testConfig(server.URL))

	req := taskRequest("show tasks that take a while")

	first, err := p.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := p.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Source, second.Source)
	assert.Equal(t, int64(1), server.generateCalls.Load(), "a cached query must not call the service again")

	// Cosmetic variation of the text shares the slot.
	req.Text = "  SHOW tasks   that take a while "
	third, err := p.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, third.Cached)
}

func TestPipeline_SchemaChangeMissesCache(t *testing.T) {
	server := newFakeAIServer(t, http.StatusOK,
		`{"filter":{"op":"cmp","field":"Duration","cmp":">","value":2}}`,
		`{"filter":{"op":"cmp","field":"Duration","cmp":">","value":2}}`)
	p := newTestPipeline(testConfig(server.URL))

	req := taskRequest("show tasks that take a while")
	_, err := p.Resolve(context.Background(), req)
	require.NoError(t, err)

	req.Schema = append(req.Schema, sift.FieldSchema{Name: "Owner", Type: sift.FieldString})
	res, err := p.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Cached, "a schema change must invalidate the cached filter")
	assert.Equal(t, int64(2), server.generateCalls.Load())
}

func TestPipeline_PreviewNeverBlocks(t *testing.T) {
	// No AI client at all; preview is purely local.
	p := newTestPipeline(testConfig(""))

	node := p.Preview(taskRequest("duration > 2"))
	require.NotNil(t, node)
	assert.Equal(t, "Duration", node.(*sift.Leaf).Field)

	assert.Nil(t, p.Preview(taskRequest("show me everything relevant")))
}
