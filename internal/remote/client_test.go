package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/logging"
	"docflow/internal/model"
	"docflow/internal/resilience"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, staticToken("tok"), 5*time.Second, append([]Option{WithHTTPClient(srv.Client())}, opts...)...)
}

func TestClient_List(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/document", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "2", r.URL.Query().Get("size"))
		assert.Equal(t, "name,asc", r.URL.Query().Get("sort"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"count":5,"results":[{"id":"d5","name":"Spec","status":"DRAFT"}]}`)
	})

	page, err := c.List(context.Background(), model.PageQuery{Page: 2, Size: 2, Sort: "name,asc"})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, model.StatusDraft, page.Results[0].Status)
}

func TestClient_ListNullResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"count":0,"results":null}`)
	})

	page, err := c.List(context.Background(), model.PageQuery{})
	require.NoError(t, err)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Results)
}

func TestClient_ErrorPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"request_id":"rid-1","error":{"code":"CONFLICT","message":"status changed"}}`)
	})

	_, err := c.SendToReview(context.Background(), "d1")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "CONFLICT", apiErr.Code)
	assert.Equal(t, "rid-1", apiErr.RequestID)
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.NotErrorIs(t, err, model.ErrNotFound)
}

func TestClient_PlainErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Get(context.Background(), "d1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}

func TestClient_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		call     func(c *Client) (*model.Document, error)
		wantPath string
		wantBody string
	}{
		{
			name:     "send to review",
			call:     func(c *Client) (*model.Document, error) { return c.SendToReview(context.Background(), "d1") },
			wantPath: "/api/v1/document/d1/send-to-review",
		},
		{
			name:     "revoke review",
			call:     func(c *Client) (*model.Document, error) { return c.RevokeReview(context.Background(), "d1") },
			wantPath: "/api/v1/document/d1/revoke-review",
		},
		{
			name: "change status",
			call: func(c *Client) (*model.Document, error) {
				return c.ChangeStatus(context.Background(), "d1", model.StatusApproved)
			},
			wantPath: "/api/v1/document/d1/change-status",
			wantBody: `{"status":"APPROVED"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				if tt.wantBody != "" {
					assert.JSONEq(t, tt.wantBody, string(body))
				} else {
					assert.Empty(t, body)
				}
				_, _ = io.WriteString(w, `{"id":"d1","name":"Spec","status":"READY_FOR_REVIEW"}`)
			})

			doc, err := tt.call(c)
			require.NoError(t, err)
			assert.Equal(t, "d1", doc.ID)
		})
	}
}

func TestClient_Create(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/document", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Quarterly", r.FormValue("name"))
		assert.Equal(t, "DRAFT", r.FormValue("status"))

		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "q.pdf", fh.Filename)
		assert.Equal(t, "application/pdf", fh.Header.Get("Content-Type"))
		b, _ := io.ReadAll(f)
		assert.Equal(t, "%PDF-1.4", string(b))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"new","name":"Quarterly","status":"DRAFT"}`)
	})

	doc, err := c.Create(context.Background(), CreateRequest{
		Name: "Quarterly",
		File: File{Filename: "q.pdf", Content: strings.NewReader("%PDF-1.4")},
	})
	require.NoError(t, err)
	assert.Equal(t, "new", doc.ID)

	_, err = c.Create(context.Background(), CreateRequest{Name: "x"})
	assert.Error(t, err)
}

func TestClient_UpdateNameAndDelete(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPatch:
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Renamed", body["name"])
			_, _ = io.WriteString(w, `{"id":"d1","name":"Renamed","status":"DRAFT"}`)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	doc, err := c.UpdateName(context.Background(), "d1", "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", doc.Name)
	require.NoError(t, c.Delete(context.Background(), "d1"))
	assert.Equal(t, []string{"PATCH /api/v1/document/d1", "DELETE /api/v1/document/d1"}, calls)
}

func TestClient_Content(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/document/d1/content", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.7")
	})

	rc, err := c.Content(context.Background(), "d1")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF-1.7", string(b))
}

func TestClient_Login(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		_, _ = io.WriteString(w, `{"access_token":"jwt"}`)
	})

	tok, err := c.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt", tok)
}

func TestClient_BreakerIgnoresRejections(t *testing.T) {
	hits := 0
	ex := resilience.NewExecutor(resilience.Config{
		Enabled:      true,
		MinRequests:  2,
		FailureRatio: 0.5,
		OpenTimeout:  time.Minute,
	}, logging.Discard())
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}, WithExecutor(ex))

	for i := 0; i < 4; i++ {
		_, err := c.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, model.ErrNotFound)
	}
	assert.Equal(t, 4, hits)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	hits := 0
	ex := resilience.NewExecutor(resilience.Config{
		Enabled:      true,
		MinRequests:  2,
		FailureRatio: 0.5,
		OpenTimeout:  time.Minute,
	}, logging.Discard())
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}, WithExecutor(ex))

	for i := 0; i < 4; i++ {
		_, _ = c.Get(context.Background(), "d1")
	}
	assert.Equal(t, 2, hits)
	_, err := c.Get(context.Background(), "d1")
	assert.True(t, resilience.IsCircuitOpen(err))
}

func TestClient_RejectedTokenSignsOut(t *testing.T) {
	unauthorized := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"request_id":"r1","error":{"code":"UNAUTHORIZED","message":"invalid or expired token"}}`)
	}

	t.Run("document calls", func(t *testing.T) {
		rejected := 0
		c := newTestClient(t, unauthorized, WithUnauthorized(func() { rejected++ }))

		_, err := c.List(context.Background(), model.PageQuery{})
		assert.ErrorIs(t, err, model.ErrUnauthorized)
		_, err = c.Content(context.Background(), "d1")
		assert.ErrorIs(t, err, model.ErrUnauthorized)
		assert.Equal(t, 2, rejected)
	})

	t.Run("credentials endpoints", func(t *testing.T) {
		rejected := 0
		c := newTestClient(t, unauthorized, WithUnauthorized(func() { rejected++ }))

		_, err := c.Login(context.Background(), "a@b.c", "wrong")
		assert.ErrorIs(t, err, model.ErrUnauthorized)
		_, err = c.Register(context.Background(), RegisterRequest{Email: "a@b.c", Password: "pw"})
		assert.ErrorIs(t, err, model.ErrUnauthorized)
		assert.Zero(t, rejected)
	})

	t.Run("without a token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(unauthorized))
		t.Cleanup(srv.Close)
		rejected := 0
		c := New(srv.URL, staticToken(""), 5*time.Second, WithUnauthorized(func() { rejected++ }))

		_, err := c.Get(context.Background(), "d1")
		assert.ErrorIs(t, err, model.ErrUnauthorized)
		assert.Zero(t, rejected)
	})

	t.Run("forbidden keeps the session", func(t *testing.T) {
		rejected := 0
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}, WithUnauthorized(func() { rejected++ }))

		_, err := c.SendToReview(context.Background(), "d1")
		assert.ErrorIs(t, err, model.ErrUnauthorized)
		assert.Zero(t, rejected)
	})
}
