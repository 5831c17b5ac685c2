package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrives_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/sites/contoso.sharepoint.com/drives", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"value": [
				{"id": "b!one", "name": "Documents", "driveType": "documentLibrary",
				 "webUrl": "https://contoso.sharepoint.com/Shared%20Documents"},
				{"name": "broken"},
				{"id": "b!two", "name": "Archive", "driveType": "documentLibrary"}
			]
		}`)
	}))
	defer srv.Close()

	list, err := newTestClient(t, srv.URL).Site("contoso.sharepoint.com").Drives(context.Background())
	require.NoError(t, err)

	assert.True(t, list.ValuePresent)
	require.Len(t, list.Drives, 2)
	assert.Equal(t, "b!one", list.Drives[0].ID)
	assert.Equal(t, "Documents", list.Drives[0].Name)
	assert.Equal(t, "documentLibrary", list.Drives[0].DriveType)
	assert.Equal(t, "https://contoso.sharepoint.com/Shared%20Documents", list.Drives[0].WebURL)
	assert.Equal(t, "b!two", list.Drives[1].ID)
}

func TestDrives_DefaultSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sites/root/drives", r.URL.Path)
		fmt.Fprint(w, `{"value": []}`)
	}))
	defer srv.Close()

	list, err := newTestClient(t, srv.URL).Site("").Drives(context.Background())
	require.NoError(t, err)
	assert.True(t, list.ValuePresent)
	assert.Empty(t, list.Drives)
}

func TestDrives_MissingValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"@odata.context": "x"}`)
	}))
	defer srv.Close()

	list, err := newTestClient(t, srv.URL).Site("").Drives(context.Background())
	require.NoError(t, err)
	assert.False(t, list.ValuePresent)
	assert.Empty(t, list.Drives)
}

func TestDrives_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("request-id", "req-401")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":"InvalidAuthenticationToken"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Site("").Drives(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var graphErr *GraphError
	require.ErrorAs(t, err, &graphErr)
	assert.Equal(t, "req-401", graphErr.RequestID)
}
