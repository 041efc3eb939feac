package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/causelist/models"
)

// errorResponse mirrors the API error body.
type errorResponse struct {
	Error *models.ErrorDetail `json:"error"`
}

func main() {
	apiURL := os.Getenv("CAUSELIST_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(apiURL, "/")).
		SetTimeout(60*time.Second).
		SetHeader("Content-Type", "application/json")
	if key := os.Getenv("CAUSELIST_API_KEY"); key != "" {
		client.SetHeader("X-API-Key", key)
	}
	api := &apiClient{http: client, pollEvery: 2 * time.Second}

	s := server.NewMCPServer(
		"causelist",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("list_courts",
		mcp.WithDescription("List the courts of the configured court complex (value and label). Values are what fetch_cause_list expects."),
		mcp.WithBoolean("refresh",
			mcp.Description("Bypass the server's cached court list"),
		),
	), api.handleListCourts)

	s.AddTool(mcp.NewTool("fetch_cause_list",
		mcp.WithDescription("Download the daily cause list of one or more courts for a date. Waits for the run to finish; if a CAPTCHA needs a human, returns the image so it can be answered with answer_captcha, after which get_cause_list resumes waiting."),
		mcp.WithArray("courts",
			mcp.Required(),
			mcp.Description("Court values from list_courts"),
		),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Date as MM/DD/YYYY, within 30 days of today"),
		),
		mcp.WithString("case_type",
			mcp.Description("Case type (default: civil)"),
			mcp.Enum("civil", "criminal"),
		),
	), api.handleFetch)

	s.AddTool(mcp.NewTool("get_cause_list",
		mcp.WithDescription("Wait for a cause-list job started by fetch_cause_list and return its outcomes."),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job id returned by fetch_cause_list"),
		),
	), api.handleGet)

	s.AddTool(mcp.NewTool("answer_captcha",
		mcp.WithDescription("Answer the CAPTCHA a running job is waiting on."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The characters shown in the CAPTCHA image"),
		),
		mcp.WithString("id",
			mcp.Description("The pending CAPTCHA id, if known"),
		),
	), api.handleAnswer)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

type apiClient struct {
	http      *resty.Client
	pollEvery time.Duration
}

func apiError(resp *resty.Response, fallback string) string {
	if e, ok := resp.Error().(*errorResponse); ok && e.Error != nil {
		return fmt.Sprintf("[%s] %s", e.Error.Code, e.Error.Message)
	}
	return fmt.Sprintf("%s (HTTP %d)", fallback, resp.StatusCode())
}

func (a *apiClient) handleListCourts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var out models.CourtsResponse
	req := a.http.R().SetContext(ctx).SetResult(&out).SetError(&errorResponse{})
	if request.GetBool("refresh", false) {
		req.SetQueryParam("refresh", "1")
	}
	resp, err := req.Get("/api/v1/courts")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
	}
	if resp.IsError() {
		return mcp.NewToolResultError(apiError(resp, "listing courts failed")), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d courts (%s):\n\n", len(out.Courts), out.CacheStatus)
	for _, c := range out.Courts {
		fmt.Fprintf(&sb, "%s\t%s\n", c.Value, c.Label)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (a *apiClient) handleFetch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	values, err := request.RequireStringSlice("courts")
	if err != nil {
		return mcp.NewToolResultError("courts is required and must be an array of strings"), nil
	}
	date, err := request.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError("date is required"), nil
	}

	body := models.CauseListRequest{Date: date, CaseType: request.GetString("case_type", "")}
	for _, v := range values {
		body.Courts = append(body.Courts, models.CourtRef{Value: v})
	}

	var ack models.CauseListResponse
	resp, err := a.http.R().SetContext(ctx).SetBody(body).SetResult(&ack).SetError(&errorResponse{}).
		Post("/api/v1/causelist")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
	}
	if resp.IsError() {
		return mcp.NewToolResultError(apiError(resp, "starting the job failed")), nil
	}
	return a.wait(ctx, ack.ID)
}

func (a *apiClient) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError("job_id is required"), nil
	}
	return a.wait(ctx, id)
}

func (a *apiClient) handleAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text is required"), nil
	}
	resp, err := a.http.R().SetContext(ctx).
		SetBody(models.CaptchaAnswer{ID: request.GetString("id", ""), Text: text}).
		SetError(&errorResponse{}).
		Post("/api/v1/captcha")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
	}
	if resp.IsError() {
		return mcp.NewToolResultError(apiError(resp, "answering the captcha failed")), nil
	}
	return mcp.NewToolResultText("Answer delivered. Call get_cause_list to wait for the result."), nil
}

// wait polls job id until it finishes, or returns early with the CAPTCHA
// image when the run needs a human.
func (a *apiClient) wait(ctx context.Context, id string) (*mcp.CallToolResult, error) {
	ticker := time.NewTicker(a.pollEvery)
	defer ticker.Stop()

	for {
		var job models.CauseListJob
		resp, err := a.http.R().SetContext(ctx).SetResult(&job).SetError(&errorResponse{}).
			Get("/api/v1/causelist/" + id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling job %s failed: %v", id, err)), nil
		}
		if resp.IsError() {
			return mcp.NewToolResultError(apiError(resp, "polling the job failed")), nil
		}
		if job.FinishedAt != nil {
			return mcp.NewToolResultText(formatJob(job)), nil
		}

		if res := a.pendingCaptcha(ctx, id); res != nil {
			return res, nil
		}

		select {
		case <-ctx.Done():
			return mcp.NewToolResultError(fmt.Sprintf("stopped waiting for job %s: %v", id, ctx.Err())), nil
		case <-ticker.C:
		}
	}
}

func (a *apiClient) pendingCaptcha(ctx context.Context, jobID string) *mcp.CallToolResult {
	var pending models.PendingCaptcha
	resp, err := a.http.R().SetContext(ctx).SetResult(&pending).Get("/api/v1/captcha")
	if err != nil || resp.IsError() || pending.ID == "" {
		return nil
	}

	img, err := a.http.R().SetContext(ctx).Get(pending.ImageURL)
	if err != nil || img.IsError() {
		return nil
	}
	text := fmt.Sprintf("Job %s is waiting for a CAPTCHA (id %s). Read the image, call answer_captcha, then get_cause_list.", jobID, pending.ID)
	return mcp.NewToolResultImage(text, base64.StdEncoding.EncodeToString(img.Body()), "image/png")
}

func formatJob(job models.CauseListJob) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Job %s: %s (%d courts)\n", job.ID, job.Status, job.Total)
	if job.Error != nil {
		fmt.Fprintf(&sb, "Error: [%s] %s\n", job.Error.Code, job.Error.Message)
	}
	for i, o := range job.Outcomes {
		fmt.Fprintf(&sb, "\n[%d] %s, %s, %s: %s", i+1, o.Court, o.Date, o.CaseType, o.Status)
		switch {
		case o.PDFPath != "":
			fmt.Fprintf(&sb, "\n    document: %s", o.PDFPath)
		case o.Error != "":
			fmt.Fprintf(&sb, "\n    error: %s", o.Error)
		}
	}
	return sb.String()
}
