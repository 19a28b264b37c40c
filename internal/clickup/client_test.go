package clickup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithBaseURL("test-key", "team-1", srv.URL)
}

func TestClient_GetTask(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/task/claim-1", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("Authorization"))
		require.Equal(t, "true", r.URL.Query().Get("custom_task_ids"))
		require.Equal(t, "team-1", r.URL.Query().Get("team_id"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "claim-1",
			"name": "Smith Roof Claim",
			"status": {"status": "open", "color": "#00ff00"},
			"custom_fields": [
				{"name": "RCV", "type": "currency", "value": "$1,200.00"}
			]
		}`))
	})

	task, err := client.GetTask(context.Background(), "claim-1")
	require.NoError(t, err)
	require.Equal(t, "claim-1", task.ID)
	require.Equal(t, "Smith Roof Claim", task.Name)
	require.Equal(t, "open", task.Status.Status)
	require.Len(t, task.CustomFields, 1)
}

func TestClient_GetTaskNotFound(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetTask(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClient_GetTaskUpstreamError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetTask(context.Background(), "claim-1")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestClient_GetTaskCommentsDegradesToEmpty(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	comments, err := client.GetTaskComments(context.Background(), "claim-1")
	require.NoError(t, err)
	require.Empty(t, comments)
}

func TestClient_GetContractorClaims(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "contractor-1",
			"name": "ACME Roofing",
			"custom_fields": [
				{"name": "Claim", "type": "tasks", "value": [
					{"id": "c1", "name": "Smith Claim", "status": "open", "color": "#0f0"},
					{"id": "c2", "name": "Hidden Claim", "access": false},
					{"id": "c3", "name": "Jones Claim"}
				]},
				{"name": "Other", "type": "text", "value": "x"}
			]
		}`))
	})

	summaries, err := client.GetContractorClaims(context.Background(), "contractor-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	require.Equal(t, "c1", summaries[0].ID)
	require.Equal(t, "open", summaries[0].Status.Status)

	// Entries without a status fall back to the unknown marker.
	require.Equal(t, "c3", summaries[1].ID)
	require.Equal(t, "unknown", summaries[1].Status.Status)
	require.Equal(t, "#999999", summaries[1].Status.Color)
}

func TestClient_GetContractorClaimsNoClaimsField(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "contractor-1", "custom_fields": []}`))
	})

	summaries, err := client.GetContractorClaims(context.Background(), "contractor-1")
	require.NoError(t, err)
	require.Empty(t, summaries)
}

func TestClient_UploadDocument(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/task/claim-1/attachment", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("attachment")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "estimate.pdf", header.Filename)

		w.Write([]byte(`{"id": "att-1"}`))
	})

	err := client.UploadDocument(context.Background(), "claim-1", "estimate.pdf",
		strings.NewReader("fake pdf bytes"))
	require.NoError(t, err)
}
