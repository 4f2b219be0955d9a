package feedapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hushfeed/pkg/sharedTypes"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Client, *mux.Router) {
	t.Helper()
	r := mux.NewRouter()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL), r
}

func TestFetchFeedPagePagination(t *testing.T) {
	client, r := testServer(t)

	r.HandleFunc("/v1/feed", func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, client.SessionID(), req.Header.Get("X-Session-Id"))
		require.Equal(t, "2", req.URL.Query().Get("limit"))

		page := FeedPage{NextCursor: "cur-2"}
		if req.URL.Query().Get("cursor") == "cur-2" {
			page = FeedPage{Items: []sharedTypes.ContentItem{{Id: "c3"}}}
		} else {
			page.Items = []sharedTypes.ContentItem{{Id: "c1"}, {Id: "c2"}}
		}
		json.NewEncoder(w).Encode(page)
	}).Methods(http.MethodGet)

	first, err := client.FetchFeedPage(context.Background(), "", 2)
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.Equal(t, "cur-2", first.NextCursor)

	second, err := client.FetchFeedPage(context.Background(), first.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Equal(t, "c3", second.Items[0].Id)
	require.Empty(t, second.NextCursor)
}

func TestFetchFeedPageDecodesItems(t *testing.T) {
	client, r := testServer(t)

	r.HandleFunc("/v1/feed", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"items":[{
			"id":"c1",
			"mediaUri":"https://cdn.example.com/c1.mp4",
			"duration":14.5,
			"variants":[{"quality":"480p","uri":"https://cdn.example.com/c1/480.mp4","bitrateKbps":1200}],
			"likes":12,
			"views":90,
			"isLiked":true,
			"transcription":"i never told anyone this",
			"hashtags":["confession","work"]
		}]}`)
	}).Methods(http.MethodGet)

	page, err := client.FetchFeedPage(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	item := page.Items[0]
	require.Equal(t, "c1", item.Id)
	require.Equal(t, 14.5, item.DurationSec)
	require.Len(t, item.Variants, 1)
	require.Equal(t, 1200, item.Variants[0].BitrateKbps)
	require.True(t, item.IsLiked)
	require.Equal(t, []string{"confession", "work"}, item.Hashtags)
}

func TestFetchTrending(t *testing.T) {
	client, r := testServer(t)

	r.HandleFunc("/v1/trending", func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "24", req.URL.Query().Get("window"))
		require.Equal(t, "10", req.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"hashtags":[{"tag":"work","count":42},{"tag":"family","count":17}]}`)
	}).Methods(http.MethodGet)

	tags, err := client.FetchTrending(context.Background(), 24, 10)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	require.Equal(t, "work", tags[0].Tag)
	require.Equal(t, 42, tags[0].Count)
}

func TestRecordLikeDelta(t *testing.T) {
	client, r := testServer(t)

	r.HandleFunc("/v1/confessions/{id}/like", func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "c1", mux.Vars(req)["id"])

		var body map[string]bool
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		require.True(t, body["liked"])

		fmt.Fprint(w, `{"likes":13}`)
	}).Methods(http.MethodPost)

	likes, err := client.RecordLikeDelta(context.Background(), "c1", true)
	require.NoError(t, err)
	require.Equal(t, 13, likes)
}

func TestRecordViewSendsEventId(t *testing.T) {
	client, r := testServer(t)

	r.HandleFunc("/v1/confessions/{id}/view", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		require.NotEmpty(t, body["eventId"])
		fmt.Fprint(w, `{"views":91}`)
	}).Methods(http.MethodPost)

	views, err := client.RecordView(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, 91, views)
}

func TestSubmitReport(t *testing.T) {
	client, r := testServer(t)

	r.HandleFunc("/v1/confessions/{id}/report", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		require.Equal(t, "inappropriate", body["reason"])
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	require.NoError(t, client.SubmitReport(context.Background(), "c1", "inappropriate"))
}

func TestStatusErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusForbidden, ErrPermissionDenied},
		{http.StatusUnauthorized, ErrPermissionDenied},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusInternalServerError, ErrServer},
		{http.StatusBadGateway, ErrServer},
		// Off-taxonomy statuses still land on a sentinel
		{http.StatusTeapot, ErrServer},
		{http.StatusConflict, ErrServer},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			client, r := testServer(t)
			r.HandleFunc("/v1/feed", func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tc.status)
			})

			_, err := client.FetchFeedPage(context.Background(), "", 10)
			require.Error(t, err)
			require.ErrorIs(t, err, tc.want)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tc.status, apiErr.StatusCode)
		})
	}
}

func TestTransportErrorIsNetwork(t *testing.T) {
	// Nothing listens on this address
	client := NewClient("http://127.0.0.1:1")
	_, err := client.FetchFeedPage(context.Background(), "", 10)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNetwork)
}

func TestMalformedBodyIsServerError(t *testing.T) {
	client, r := testServer(t)
	r.HandleFunc("/v1/feed", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"items": [`)
	})

	_, err := client.FetchFeedPage(context.Background(), "", 10)
	require.ErrorIs(t, err, ErrServer)
}
