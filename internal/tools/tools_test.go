package tools

import (
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/internal/stream"
	"ai-chatbot-go/pkg/cache"
	"ai-chatbot-go/pkg/llm"
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	chunks   []string
	complete string
	err      error
	requests []llm.ChatRequest
}

func (f *fakeLLM) StreamChat(_ context.Context, req llm.ChatRequest, h llm.DeltaHandler) (*llm.StepResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	text := ""
	for _, c := range f.chunks {
		if err := h.OnText(c); err != nil {
			return nil, err
		}
		text += c
	}
	return &llm.StepResult{Text: text, FinishReason: "stop"}, nil
}

func (f *fakeLLM) Complete(_ context.Context, req llm.ChatRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.complete, f.err
}

type memDocs struct {
	docs        []model.Document
	suggestions []model.Suggestion
}

func (m *memDocs) Save(_ context.Context, doc *model.Document) error {
	m.docs = append(m.docs, *doc)
	return nil
}

func (m *memDocs) Latest(_ context.Context, id string) (*model.Document, error) {
	for i := len(m.docs) - 1; i >= 0; i-- {
		if m.docs[i].ID == id {
			d := m.docs[i]
			return &d, nil
		}
	}
	return nil, nil
}

func (m *memDocs) Versions(_ context.Context, id string) ([]model.Document, error) {
	var out []model.Document
	for _, d := range m.docs {
		if d.ID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDocs) SaveSuggestions(_ context.Context, s []model.Suggestion) error {
	m.suggestions = append(m.suggestions, s...)
	return nil
}

func (m *memDocs) ListSuggestions(_ context.Context, id string) ([]model.Suggestion, error) {
	return m.suggestions, nil
}

type dataSink struct{ events []DataEvent }

func (d *dataSink) session(userID string) Session {
	return Session{UserID: userID, Emit: func(e stream.Event) error {
		d.events = append(d.events, e.Data.(DataEvent))
		return nil
	}}
}

func (d *dataSink) types() []string {
	out := make([]string, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

type fixedTeller struct{ got string }

func (f *fixedTeller) Tell(_ context.Context, category string) model.JokeResult {
	f.got = category
	return model.JokeResult{Joke: "ha", Source: model.JokeFromAPI}
}

func TestRegistryDefinitionsAndSchema(t *testing.T) {
	r := NewRegistry(NewWeatherTool(nil, nil, 0), NewJokeTool(&fixedTeller{}), NewJokeTool(&fixedTeller{}))
	assert.Equal(t, []string{"getWeather", "getJoke"}, r.Names())

	defs := r.Definitions()
	require.Len(t, defs, 2)

	var schema struct {
		Type       string                     `json:"type"`
		Required   []string                   `json:"required"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(defs[0].Parameters, &schema))
	assert.Equal(t, "object", schema.Type)
	assert.ElementsMatch(t, []string{"latitude", "longitude"}, schema.Required)

	require.NoError(t, json.Unmarshal(defs[1].Parameters, &schema))
	assert.Contains(t, schema.Properties, "category")
	assert.NotContains(t, string(defs[1].Parameters), `"$schema"`)
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), Session{}, llm.ToolCall{ID: "1", Name: "nope"})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestJokeToolDefaultsCategory(t *testing.T) {
	teller := &fixedTeller{}
	r := NewRegistry(NewJokeTool(teller))

	out, err := r.Execute(context.Background(), Session{}, llm.ToolCall{ID: "1", Name: "getJoke", Arguments: ""})
	require.NoError(t, err)
	assert.Equal(t, "any", teller.got)
	assert.JSONEq(t, `{"joke":"ha","source":"api"}`, string(out))
}

type countingForecaster struct {
	calls    atomic.Int32
	lat, lon float64
}

func (c *countingForecaster) Forecast(_ context.Context, lat, lon float64) (json.RawMessage, error) {
	c.calls.Add(1)
	c.lat, c.lon = lat, lon
	return json.RawMessage(`{"current":{"temperature_2m":21.5}}`), nil
}

func TestWeatherToolCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := &countingForecaster{}
	r := NewRegistry(NewWeatherTool(f, cache.New(rdb, 0), 10*time.Minute))

	call := llm.ToolCall{ID: "1", Name: "getWeather", Arguments: `{"latitude":52.521,"longitude":13.405}`}
	for i := 0; i < 2; i++ {
		out, err := r.Execute(context.Background(), Session{}, call)
		require.NoError(t, err)
		assert.JSONEq(t, `{"current":{"temperature_2m":21.5}}`, string(out))
	}
	assert.Equal(t, int32(1), f.calls.Load())
	assert.True(t, mr.Exists("weather:52.52:13.40") || mr.Exists("weather:52.52:13.41"))
}

func TestWeatherToolRoundsCoordinates(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := &countingForecaster{}
	r := NewRegistry(NewWeatherTool(f, cache.New(rdb, 0), 10*time.Minute))

	call := llm.ToolCall{ID: "1", Name: "getWeather", Arguments: `{"latitude":52.5212,"longitude":13.4049}`}
	_, err := r.Execute(context.Background(), Session{}, call)
	require.NoError(t, err)

	assert.InDelta(t, 52.52, f.lat, 1e-9)
	assert.InDelta(t, 13.40, f.lon, 1e-9)
	assert.True(t, mr.Exists("weather:52.52:13.40"))
}

func TestWeatherToolRejectsBadCoordinates(t *testing.T) {
	r := NewRegistry(NewWeatherTool(&countingForecaster{}, nil, time.Minute))
	_, err := r.Execute(context.Background(), Session{}, llm.ToolCall{Name: "getWeather", Arguments: `{"latitude":200,"longitude":0}`})
	assert.Error(t, err)
}

func TestCreateDocumentStreamsAndSaves(t *testing.T) {
	client := &fakeLLM{chunks: []string{"# Title\n", "body"}}
	docs := &memDocs{}
	sink := &dataSink{}
	tool := NewCreateDocumentTool(client, docs)

	out, err := tool.Execute(context.Background(), sink.session("u1"), json.RawMessage(`{"title":"Go tips","kind":"text"}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"kind", "id", "title", "clear", "text-delta", "text-delta", "finish"}, sink.types())
	require.Len(t, docs.docs, 1)
	assert.Equal(t, "# Title\nbody", docs.docs[0].Content)
	assert.Equal(t, "u1", docs.docs[0].UserID)
	assert.Equal(t, llm.ModelArtifact, client.requests[0].Model)

	res := out.(map[string]any)
	assert.Equal(t, docs.docs[0].ID, res["id"])
}

func TestCreateDocumentCodeDeltaCarriesFullContent(t *testing.T) {
	sink := &dataSink{}
	tool := NewCreateDocumentTool(&fakeLLM{chunks: []string{"fmt.", "Println()"}}, &memDocs{})

	_, err := tool.Execute(context.Background(), sink.session("u1"), json.RawMessage(`{"title":"hello","kind":"code"}`))
	require.NoError(t, err)
	assert.Equal(t, "fmt.Println()", sink.events[5].Content)
}

func TestCreateDocumentRejectsUnknownKind(t *testing.T) {
	tool := NewCreateDocumentTool(&fakeLLM{}, &memDocs{})
	_, err := tool.Execute(context.Background(), Session{}, json.RawMessage(`{"title":"x","kind":"image"}`))
	assert.Error(t, err)
}

func TestUpdateDocumentCreatesVersion(t *testing.T) {
	docs := &memDocs{docs: []model.Document{{ID: "d1", Title: "T", Content: "old", Kind: model.KindText, UserID: "u1", CreatedAt: time.Now()}}}
	sink := &dataSink{}
	tool := NewUpdateDocumentTool(&fakeLLM{chunks: []string{"new"}}, docs)

	_, err := tool.Execute(context.Background(), sink.session("u1"), json.RawMessage(`{"id":"d1","description":"rewrite"}`))
	require.NoError(t, err)
	require.Len(t, docs.docs, 2)
	assert.Equal(t, "new", docs.docs[1].Content)
	assert.Equal(t, "clear", sink.events[0].Type)
	assert.Equal(t, "T", sink.events[0].Content)
}

func TestUpdateDocumentNotFound(t *testing.T) {
	tool := NewUpdateDocumentTool(&fakeLLM{}, &memDocs{})
	out, err := tool.Execute(context.Background(), Session{UserID: "u1"}, json.RawMessage(`{"id":"nope","description":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "Document not found", out.(map[string]any)["error"])
}

func TestRequestSuggestions(t *testing.T) {
	docs := &memDocs{docs: []model.Document{{ID: "d1", Title: "T", Content: "Some text.", Kind: model.KindText, UserID: "u1", CreatedAt: time.Now()}}}
	client := &fakeLLM{complete: "```json\n[{\"originalSentence\":\"Some text.\",\"suggestedSentence\":\"Better text.\",\"description\":\"clearer\"},{\"originalSentence\":\"\",\"suggestedSentence\":\"x\"}]\n```"}
	sink := &dataSink{}
	tool := NewRequestSuggestionsTool(client, docs)

	_, err := tool.Execute(context.Background(), sink.session("u1"), json.RawMessage(`{"documentId":"d1"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"suggestion"}, sink.types())
	require.Len(t, docs.suggestions, 1)
	assert.Equal(t, "Better text.", docs.suggestions[0].SuggestedText)
	assert.Equal(t, "d1", docs.suggestions[0].DocumentID)
}

func TestRequestSuggestionsPropagatesModelError(t *testing.T) {
	docs := &memDocs{docs: []model.Document{{ID: "d1", Content: "x", UserID: "u1"}}}
	tool := NewRequestSuggestionsTool(&fakeLLM{err: errors.New("down")}, docs)
	_, err := tool.Execute(context.Background(), Session{UserID: "u1"}, json.RawMessage(`{"documentId":"d1"}`))
	assert.Error(t, err)
}
