package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const DefaultTimeout = 30 * time.Second

type Student struct {
	Id          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	StudentID   string       `json:"studentId"`
	Assignments []Assignment `json:"assignments"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type Assignment struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	FileName    string    `json:"fileName"`
	FileURL     string    `json:"fileUrl"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type RegisterRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	StudentID string `json:"studentId"`
}

type UploadResult struct {
	Success    bool        `json:"success"`
	Location   string      `json:"location"`
	Submission *Assignment `json:"submission"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Student   *Student  `json:"student"`
}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Retry      *RetryPolicy
	Tokens     TokenStore
	// OnReauthenticate is called when the server rejects the stored token.
	// The token and current user are already cleared when it runs.
	OnReauthenticate func()
}

// Client talks to the portal API. Every call goes through the retry policy.
type Client struct {
	baseURL  string
	http     *http.Client
	retry    RetryPolicy
	session  *Session
	onReauth func()
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	retry := DefaultRetryPolicy()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     httpClient,
		retry:    retry,
		session:  NewSession(cfg.Tokens),
		onReauth: cfg.OnReauthenticate,
	}
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (*Student, error) {
	if err := ValidateRegistration(in); err != nil {
		return nil, err
	}
	in.Email = strings.TrimSpace(in.Email)
	in.StudentID = strings.TrimSpace(in.StudentID)

	var student Student
	if err := c.do(ctx, http.MethodPost, "/api/register", jsonBody(in), false, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// Login stores the token and the returned student in the session.
func (c *Client) Login(ctx context.Context, email, password string) (*Student, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("password is required: %w", ErrInvalidInput)
	}

	var resp loginResponse
	body := jsonBody(map[string]string{"email": strings.TrimSpace(email), "password": password})
	if err := c.do(ctx, http.MethodPost, "/api/login", body, false, &resp); err != nil {
		return nil, err
	}
	c.session.SignIn(resp.Token, resp.Student)
	return resp.Student, nil
}

func (c *Client) LoadStudent(ctx context.Context) (*Student, error) {
	var student Student
	if err := c.do(ctx, http.MethodGet, "/api/student", nil, true, &student); err != nil {
		return nil, err
	}
	c.session.SetUser(&student)
	return &student, nil
}

// Upload submits an assignment and then refreshes the current student so
// the dashboard lists it. A failed refresh does not fail the upload.
func (c *Client) Upload(ctx context.Context, name, filename string, content []byte) (*UploadResult, error) {
	if err := ValidateUpload(name, content); err != nil {
		return nil, err
	}

	var result UploadResult
	if err := c.do(ctx, http.MethodPost, "/api/upload", multipartBody(name, filename, content), true, &result); err != nil {
		return nil, err
	}

	_, _ = c.LoadStudent(ctx)
	return &result, nil
}

func (c *Client) Logout() {
	c.session.SignOut()
}

// bodyFunc builds a fresh request body for every attempt.
type bodyFunc func() (io.Reader, string, error)

func jsonBody(v any) bodyFunc {
	return func() (io.Reader, string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func multipartBody(name, filename string, content []byte) bodyFunc {
	return func() (io.Reader, string, error) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		if err := writer.WriteField("name", name); err != nil {
			return nil, "", err
		}
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(content); err != nil {
			return nil, "", err
		}
		if err := writer.Close(); err != nil {
			return nil, "", err
		}
		return body, writer.FormDataContentType(), nil
	}
}

func (c *Client) do(ctx context.Context, method, path string, body bodyFunc, auth bool, out any) error {
	_, err := Retry(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.attempt(ctx, method, path, body, auth, out)
	})
	return err
}

func (c *Client) attempt(ctx context.Context, method, path string, body bodyFunc, auth bool, out any) error {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		var err error
		if reader, contentType, err = body(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if auth {
		token := c.session.Token()
		if token == "" {
			return &StatusError{StatusCode: http.StatusUnauthorized, Message: "not signed in"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrTransient, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
		if resp.StatusCode == http.StatusUnauthorized && auth {
			c.reauthenticate()
		}
		return statusErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w: %w", path, ErrBadResponse, err)
	}
	return nil
}

// reauthenticate clears the session and fires the callback once per
// rejected token.
func (c *Client) reauthenticate() {
	if c.session.SignOut() && c.onReauth != nil {
		c.onReauth()
	}
}

func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Error
}
