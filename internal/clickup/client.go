package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/keyadjusting/contractor-portal/internal/claims"
)

const defaultBaseURL = "https://api.clickup.com/api/v2"

// ErrNotFound reports that the upstream system has no record for the
// requested task.
var ErrNotFound = errors.New("clickup: not found")

// ClaimsClient is the upstream project-management API surface the portal
// consumes. Raw task payloads from GetTask feed the claim normalizer.
type ClaimsClient interface {
	GetTask(ctx context.Context, taskID string) (*claims.RawTask, error)
	GetTaskComments(ctx context.Context, taskID string) ([]map[string]any, error)
	GetContractorClaims(ctx context.Context, contractorID string) ([]ClaimSummary, error)
	UploadDocument(ctx context.Context, taskID, filename string, content io.Reader) error
}

// ClaimSummary is one row in a contractor's claims listing.
type ClaimSummary struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Status claims.TaskStatus `json:"status"`
}

// Client talks to the ClickUp v2 API.
type Client struct {
	baseURL string
	apiKey  string
	teamID  string
	http    *http.Client
}

// NewClient creates a ClickUp API client.
func NewClient(apiKey, teamID string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		teamID:  teamID,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint (tests).
func NewClientWithBaseURL(apiKey, teamID, baseURL string) *Client {
	c := NewClient(apiKey, teamID)
	c.baseURL = baseURL
	return c
}

// GetTask fetches one raw task record.
func (c *Client) GetTask(ctx context.Context, taskID string) (*claims.RawTask, error) {
	endpoint := fmt.Sprintf("%s/task/%s?custom_task_ids=true&team_id=%s",
		c.baseURL, url.PathEscape(taskID), url.QueryEscape(c.teamID))

	var task claims.RawTask
	if err := c.getJSON(ctx, endpoint, &task); err != nil {
		return nil, fmt.Errorf("failed to fetch task %s: %w", taskID, err)
	}
	return &task, nil
}

// GetTaskComments fetches comments for a task, newest first. Comment fetch
// failures degrade to an empty list so a claim still renders without them.
func (c *Client) GetTaskComments(ctx context.Context, taskID string) ([]map[string]any, error) {
	endpoint := fmt.Sprintf("%s/task/%s/comment?custom_task_ids=true&team_id=%s",
		c.baseURL, url.PathEscape(taskID), url.QueryEscape(c.teamID))

	var payload struct {
		Comments []map[string]any `json:"comments"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		log.Printf("Failed to fetch comments for task %s: %v", taskID, err)
		return []map[string]any{}, nil
	}
	if payload.Comments == nil {
		return []map[string]any{}, nil
	}
	return payload.Comments, nil
}

// GetContractorClaims resolves the claims linked from a contractor task's
// task-reference field, skipping entries the contractor has no access to.
func (c *Client) GetContractorClaims(ctx context.Context, contractorID string) ([]ClaimSummary, error) {
	task, err := c.GetTask(ctx, contractorID)
	if err != nil {
		return nil, err
	}

	var claimsField *claims.RawCustomField
	for i := range task.CustomFields {
		f := &task.CustomFields[i]
		if f.Type == "tasks" && f.Name == "Claim" {
			claimsField = f
			break
		}
	}
	if claimsField == nil || claimsField.Value == nil {
		return []ClaimSummary{}, nil
	}

	entries, ok := claimsField.Value.([]any)
	if !ok {
		return []ClaimSummary{}, nil
	}

	summaries := make([]ClaimSummary, 0, len(entries))
	for _, entry := range entries {
		ref, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if access, ok := ref["access"].(bool); ok && !access {
			continue
		}

		summary := ClaimSummary{
			Status: claims.TaskStatus{Status: "unknown", Color: "#999999"},
		}
		if id, ok := ref["id"].(string); ok {
			summary.ID = id
		}
		if name, ok := ref["name"].(string); ok {
			summary.Name = name
		}
		if status, ok := ref["status"].(string); ok && status != "" {
			summary.Status.Status = status
		}
		if color, ok := ref["color"].(string); ok && color != "" {
			summary.Status.Color = color
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// UploadDocument forwards a file to the task's attachment endpoint.
func (c *Client) UploadDocument(ctx context.Context, taskID, filename string, content io.Reader) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("attachment", filename)
	if err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish upload form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/task/%s/attachment", c.baseURL, url.PathEscape(taskID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("unable to upload document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unable to upload document: upstream returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("upstream returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
