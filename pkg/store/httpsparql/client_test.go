package httpsparql

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
)

var (
	s = rdf.NewVariable("s")
	p = rdf.NewNamedNode("http://example.org/p")
	o = rdf.NewVariable("o")
)

// endpoint serves the given body for every well-formed query and records the
// last query text.
func endpoint(t *testing.T, status int, body []byte, last *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != contentTypeQuery {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if r.Header.Get("Accept") != contentTypeResults {
			http.Error(w, "not acceptable", http.StatusNotAcceptable)
			return
		}
		text, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if last != nil {
			*last = string(text)
		}
		w.Header().Set("Content-Type", contentTypeResults)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func selectQuery() *sparql.Query {
	q := sparql.NewSelect(s, o)
	q.Triple(s, p, o)
	return q
}

func TestNew(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestClient_Select(t *testing.T) {
	want := []rdf.Row{
		{"s": rdf.NewNamedNode("http://example.org/a"), "o": rdf.NewLiteralWithLanguage("x", "en")},
		{"s": rdf.NewNamedNode("http://example.org/b"), "o": rdf.NewIntegerLiteral(7)},
		{"s": rdf.NewBlankNode("b0")},
	}
	body, err := rdf.FormatRowsJSON([]string{"s", "o"}, want)
	require.NoError(t, err)

	var last string
	srv := endpoint(t, http.StatusOK, body, &last)
	c, err := New(srv.URL)
	require.NoError(t, err)

	q := selectQuery()
	rows, err := c.Select(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, want, rows)
	assert.Equal(t, q.String(), last)
}

func TestClient_Ask(t *testing.T) {
	body, err := rdf.FormatBooleanJSON(true)
	require.NoError(t, err)
	srv := endpoint(t, http.StatusOK, body, nil)
	c, err := New(srv.URL)
	require.NoError(t, err)

	ok, err := c.Ask(context.Background(), selectQuery().AsAsk())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_AskWithoutBoolean(t *testing.T) {
	body, err := rdf.FormatRowsJSON([]string{"s"}, nil)
	require.NoError(t, err)
	srv := endpoint(t, http.StatusOK, body, nil)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), selectQuery().AsAsk())
	assert.ErrorIs(t, err, ErrNoBoolean)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "status",
			status: http.StatusBadRequest,
			body:   "parse error at line 1\n",
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusBadRequest, se.Code)
				assert.Equal(t, "parse error at line 1", se.Body)
				assert.Contains(t, err.Error(), "400")
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   "{",
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "failed to decode results")
			},
		},
		{
			name:   "unknown binding type",
			status: http.StatusOK,
			body:   `{"head":{"vars":["s"]},"results":{"bindings":[{"s":{"type":"triple","value":"x"}}]}}`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "unknown binding type")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := endpoint(t, tt.status, []byte(tt.body), nil)
			c, err := New(srv.URL)
			require.NoError(t, err)
			_, err = c.Select(context.Background(), selectQuery())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_Cancelled(t *testing.T) {
	srv := endpoint(t, http.StatusOK, []byte(`{}`), nil)
	c, err := New(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Select(ctx, selectQuery())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	_, err = c.Select(context.Background(), selectQuery())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to query "+url))
}
