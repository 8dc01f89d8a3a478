package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"aspada.com/assistant/internal/core"
	"aspada.com/assistant/internal/leads"
	"aspada.com/assistant/internal/store"
)

type fakeAssistant struct {
	chatReq  core.ChatRequest
	chatResp *core.ChatResponse
	chatErr  error

	feedbackID      string
	feedbackHelpful bool
	feedbackErr     error

	contact    leads.Contact
	contactErr error
}

func (f *fakeAssistant) ChatWithAI(ctx context.Context, req core.ChatRequest) (*core.ChatResponse, error) {
	f.chatReq = req
	return f.chatResp, f.chatErr
}

func (f *fakeAssistant) SubmitFeedback(ctx context.Context, cacheID string, isHelpful bool) (*store.CacheEntry, error) {
	f.feedbackID, f.feedbackHelpful = cacheID, isHelpful
	if f.feedbackErr != nil {
		return nil, f.feedbackErr
	}
	return &store.CacheEntry{ID: cacheID, HelpfulCount: 1}, nil
}

func (f *fakeAssistant) SubmitContact(ctx context.Context, contact leads.Contact) (*store.Lead, error) {
	f.contact = contact
	if f.contactErr != nil {
		return nil, f.contactErr
	}
	return &store.Lead{ID: "lead-1", FullName: contact.FullName, ContactNo: contact.ContactNo, Status: store.LeadStatusNew, Source: store.LeadSourceForms}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func newTestServer(t *testing.T, a *fakeAssistant, db Pinger) *httptest.Server {
	srv := httptest.NewServer(NewRouter(NewAPIHandler(a, db, zaptest.NewLogger(t))))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestChatHandler(t *testing.T) {
	a := &fakeAssistant{chatResp: &core.ChatResponse{Text: "Green Acres is in Pune.", CacheID: "c1", IsSemantic: true, SessionID: "s-1"}}
	srv := newTestServer(t, a, nil)

	resp, body := post(t, srv.URL+"/api/chat",
		`{"message":"Where is Green Acres?","history":[{"role":"model","content":"Hi!"}],"sessionId":"s-1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Green Acres is in Pune.", body["text"])
	assert.Equal(t, "c1", body["cacheId"])
	assert.Equal(t, true, body["isSemantic"])
	assert.Equal(t, "s-1", body["sessionId"])

	assert.Equal(t, "Where is Green Acres?", a.chatReq.Message)
	assert.Equal(t, "s-1", a.chatReq.SessionID)
	require.Len(t, a.chatReq.History, 1)
	assert.Equal(t, "model", a.chatReq.History[0].Role)
}

func TestChatHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &core.ValidationError{Field: "message", Message: "must not be empty"}, http.StatusBadRequest},
		{"upstream", &core.ExternalServiceError{Service: "generation", Err: errors.New("blocked")}, http.StatusBadGateway},
		{"internal", errors.New("database is locked"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeAssistant{chatErr: tt.err}, nil)

			resp, body := post(t, srv.URL+"/api/chat", `{"message":"hi"}`)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, body["error"], "database is locked")
		})
	}
}

func TestChatHandler_BadJSON(t *testing.T) {
	srv := newTestServer(t, &fakeAssistant{}, nil)

	resp, _ := post(t, srv.URL+"/api/chat", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFeedbackHandler(t *testing.T) {
	a := &fakeAssistant{}
	srv := newTestServer(t, a, nil)

	resp, body := post(t, srv.URL+"/api/feedback", `{"cacheId":"c1","isHelpful":true}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "c1", body["id"])
	assert.Equal(t, "c1", a.feedbackID)
	assert.True(t, a.feedbackHelpful)

	resp, body = post(t, srv.URL+"/api/feedback", `{"cacheId":"c1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "isHelpful", body["field"])

	a.feedbackErr = store.ErrNotFound
	resp, _ = post(t, srv.URL+"/api/feedback", `{"cacheId":"nope","isHelpful":false}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContactHandler(t *testing.T) {
	a := &fakeAssistant{}
	srv := newTestServer(t, a, nil)

	resp, body := post(t, srv.URL+"/api/contact",
		`{"fullName":"Asha Patil","contactEmail":"asha@example.com","contactNo":"9876543210","interest":"2BHK"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "lead-1", body["id"])
	assert.Equal(t, "aspadaForms", body["source"])
	assert.Equal(t, "asha@example.com", a.contact.ContactEmail)

	a.contactErr = &core.ValidationError{Field: "contactNo", Message: "does not match pattern"}
	resp, body = post(t, srv.URL+"/api/contact", `{"fullName":"Asha","contactNo":"123"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "contactNo", body["field"])
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, &fakeAssistant{}, fakePinger{})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down := newTestServer(t, &fakeAssistant{}, fakePinger{err: errors.New("connection refused")})
	resp, err = http.Get(down.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
