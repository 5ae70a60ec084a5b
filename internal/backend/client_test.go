package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ppiankov/llmxray/internal/annotate"
	"github.com/ppiankov/llmxray/internal/factcheck"
	"github.com/ppiankov/llmxray/internal/model"
	"github.com/ppiankov/llmxray/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(Options{
		BaseURL:   server.URL + "/",
		Timeout:   5 * time.Second,
		UserAgent: "llmxray-test",
		RateLimit: 100,
		Burst:     10,
	})
}

func TestAttentionStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/attention-stream", r.URL.Path)
		assert.Equal(t, "llmxray-test", r.Header.Get("User-Agent"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hi", body["prompt"])

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, `data: {"word":"Hel","scores":[0.1,0.2],"tokens":["say","hi"]}`+"\n")
		flusher.Flush()
		fmt.Fprint(w, `data: {"word":"lo","scor`)
		flusher.Flush()
		fmt.Fprint(w, `es":[0.3,0.4],"tokens":["say","hi"]}`+"\n\ndata: [DONE]\n")
		flusher.Flush()
	})

	dec, err := client.AttentionStream(context.Background(), "hi")
	require.NoError(t, err)

	acc := annotate.New(annotate.DefaultAmplification)
	require.NoError(t, annotate.Drain(context.Background(), dec, acc))

	state := acc.State()
	require.Len(t, state.Units, 2)
	assert.Equal(t, "Hel", state.Units[0].Unit)
	assert.Equal(t, "lo", state.Units[1].Unit)
	assert.Equal(t, []string{"say", "hi"}, state.ContextUnits)
	assert.Equal(t, 1, state.Focus)
}

func TestAttentionStream_Status(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})

	_, err := client.AttentionStream(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatus)
	assert.ErrorContains(t, err, "503")
	assert.ErrorContains(t, err, "model not loaded")
}

func TestAttentionStream_Cancel(t *testing.T) {
	released := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer close(released)
		fmt.Fprint(w, `data: {"word":"a","scores":[1],"tokens":["x"]}`+"\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	dec, err := client.AttentionStream(ctx, "hi")
	require.NoError(t, err)

	event, err := dec.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", event.Unit)

	cancel()
	_, err = dec.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("server request was not released after cancel")
	}
}

func TestAttentionStream_TruncatedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, buf, err := hj.Hijack()
		require.NoError(t, err)
		defer conn.Close()

		// promise more bytes than are sent
		fmt.Fprint(buf, "HTTP/1.1 200 OK\r\nContent-Length: 500\r\n\r\n")
		fmt.Fprint(buf, `data: {"word":"a","scores":[1],"tokens":["x"]}`+"\n")
		buf.Flush()
	})

	dec, err := client.AttentionStream(context.Background(), "hi")
	require.NoError(t, err)

	var units []string
	err = stream.ForEach(context.Background(), dec, func(e model.AnnotationEvent) {
		units = append(units, e.Unit)
	})
	assert.ErrorIs(t, err, stream.ErrTransport)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, []string{"a"}, units)
}

func TestCheck(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/factcheck", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "The sky is blue", body["response_text"])

		fmt.Fprint(w, `{"claims":[{"claim":"sky is blue","verdict":"verified","reason":"scattering"}]}`)
	})

	var checker factcheck.Checker = client
	claims, err := checker.Check(context.Background(), "The sky is blue")
	require.NoError(t, err)
	assert.Equal(t, []model.Claim{
		{Text: "sky is blue", Verdict: model.VerdictVerified, Reason: "scattering"},
	}, claims)
}

func TestCheck_NoClaims(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	claims, err := client.Check(context.Background(), "text")
	require.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Empty(t, claims)
}

func TestCheck_BadJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>oops</html>`)
	})

	_, err := client.Check(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode /api/factcheck")
	assert.False(t, errors.Is(err, ErrStatus))
}

func TestGenerate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		fmt.Fprint(w, `{"text":"Paris is the capital of France."}`)
	})

	text, err := client.Generate(context.Background(), "capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", text)
}

func TestTemperatureLab(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/temperature-lab", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Describe Paris", body["prompt"])

		fmt.Fprint(w, `{"results":[
			{"temperature":1.5,"sentences":["Paris hums."],"scores":[0.4]},
			{"temperature":0.1,"sentences":["Paris is a city.","It is in France."],"scores":[0.95,0.9]},
			{"temperature":0.7,"sentences":["Paris is lovely."],"scores":[]}
		]}`)
	})

	runs, err := client.TemperatureLab(context.Background(), "Describe Paris")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []float64{0.1, 0.7, 1.5}, []float64{runs[0].Temperature, runs[1].Temperature, runs[2].Temperature})
	assert.Equal(t, []string{"Paris is a city.", "It is in France."}, runs[0].Sentences)
	assert.Equal(t, model.DefaultConfidence, runs[1].Confidence(0))
}

func TestTemperatureLab_Status(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := client.TemperatureLab(context.Background(), "Describe Paris")
	require.ErrorIs(t, err, ErrStatus)
	assert.ErrorContains(t, err, "429")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Backend.BaseURL = "http://backend:9000"

	opts := OptionsFromConfig(cfg, nil)
	assert.Equal(t, "http://backend:9000", opts.BaseURL)
	assert.Equal(t, cfg.HTTP.Timeout, opts.Timeout)
	assert.Equal(t, cfg.Backend.MaxFrameSize, opts.MaxFrameSize)
}
