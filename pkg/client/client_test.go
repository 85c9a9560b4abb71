package client

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
)

func newTestClient(t *testing.T, h http.HandlerFunc, onReauth func()) (*Client, *[]time.Duration) {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	var delays []time.Duration
	policy := recordingPolicy(&delays)
	return New(Config{
		BaseURL:          srv.URL,
		Retry:            &policy,
		OnReauthenticate: onReauth,
	}), &delays
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_LoginStoresSession(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])
		writeJSON(w, http.StatusOK, map[string]any{
			"token":   "tok",
			"student": map[string]any{"name": "Ana", "assignments": []any{}},
		})
	}, nil)

	student, err := c.Login(context.Background(), "ana@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "Ana", student.Name)
	assert.Equal(t, "tok", c.Session().Token())
	assert.Equal(t, "Ana", c.Session().CurrentUser().Name)

	c.Logout()
	assert.Empty(t, c.Session().Token())
	assert.Nil(t, c.Session().CurrentUser())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, delays := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "busy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"name": "Ana"})
	}, nil)
	c.Session().SignIn("tok", nil)

	student, err := c.LoadStudent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ana", student.Name)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
}

func TestClient_StopsAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}, nil)
	c.Session().SignIn("tok", nil)

	_, err := c.LoadStudent(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "Internal Server Error", statusErr.Error())
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_UnauthorizedClearsTokenAndReauthenticatesOnce(t *testing.T) {
	var calls, reauths atomic.Int32
	c, delays := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	}, func() { reauths.Add(1) })
	c.Session().SignIn("stale", &Student{Name: "Ana"})

	_, err := c.LoadStudent(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), reauths.Load())
	assert.Empty(t, *delays)
	assert.Empty(t, c.Session().Token())
	assert.Nil(t, c.Session().CurrentUser())

	// Without a token the next call never reaches the server.
	_, err = c.LoadStudent(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), reauths.Load())
}

func TestClient_LoginRejectedDoesNotRedirect(t *testing.T) {
	var reauths atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}, func() { reauths.Add(1) })

	_, err := c.Login(context.Background(), "ana@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "invalid credentials", err.Error())
	assert.Equal(t, int32(0), reauths.Load())
}

func TestClient_ValidationFailsBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, nil)

	_, err := c.Register(context.Background(), RegisterRequest{Name: "Ana", Email: "bad", Password: "12345678", StudentID: "S-123"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = c.Register(context.Background(), RegisterRequest{Name: "Ana", Email: "a@b..c", Password: "12345678", StudentID: "S-123"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = c.Upload(context.Background(), "HW", "a.txt", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_UploadRefreshesStudent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/upload":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "Homework 1", r.FormValue("name"))
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			data, _ := io.ReadAll(file)
			assert.Equal(t, "essay.pdf", header.Filename)
			assert.Equal(t, "hello", string(data))
			writeJSON(w, http.StatusCreated, map[string]any{"success": true, "location": "http://files/x.pdf"})
		case "/api/student":
			writeJSON(w, http.StatusOK, map[string]any{
				"name":        "Ana",
				"assignments": []map[string]any{{"name": "Homework 1", "fileUrl": "http://files/x.pdf"}},
			})
		default:
			http.NotFound(w, r)
		}
	}, nil)
	c.Session().SignIn("tok", nil)

	result, err := c.Upload(context.Background(), "Homework 1", "essay.pdf", []byte("hello"))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "http://files/x.pdf", result.Location)
	require.NotNil(t, c.Session().CurrentUser())
	assert.Len(t, c.Session().CurrentUser().Assignments, 1)
}

func TestClient_TransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var delays []time.Duration
	policy := recordingPolicy(&delays)
	c := New(Config{BaseURL: url, Retry: &policy})

	_, err := c.Register(context.Background(), RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "12345678", StudentID: "S-123"})
	assert.ErrorIs(t, err, ErrTransient)
	assert.Len(t, delays, 2)
}
