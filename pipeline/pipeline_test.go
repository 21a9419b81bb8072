package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/achuajays/schemasentry/model"
)

const usersSpec = `
openapi: "3.0.0"
info:
  title: Users API
  version: "1.0.0"
paths:
  /api/users:
    get:
      responses:
        "200":
          description: OK
          content:
            application/json:
              schema:
                type: object
                required: ["id", "email"]
                properties:
                  id:
                    type: integer
                  email:
                    type: string
                  name:
                    type: string
`

func userRecord(body map[string]any) model.TrafficRecord {
	return model.TrafficRecord{
		Endpoint:     "/api/users",
		Method:       "GET",
		StatusCode:   200,
		ResponseBody: body,
		Timestamp:    time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
	}
}

func TestRunDetectsDrift(t *testing.T) {
	p, err := New(Config{SampleRate: 1.0}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	records := []model.TrafficRecord{
		// email never observed, id fine, extra undocumented.
		userRecord(map[string]any{"id": float64(1), "name": "alice", "extra": "x"}),
		userRecord(map[string]any{"id": float64(2), "name": "bob", "extra": "y"}),
	}
	logs := []model.UsageLog{
		{ClientID: "billing-service", Endpoint: "/api/users", Method: "GET", Count: 2000},
		{ClientID: "docs-site", Endpoint: "/api/users", Method: "GET", Count: 5},
	}

	report, err := p.Run(context.Background(), Input{
		Records:   records,
		SpecText:  []byte(usersSpec),
		UsageLogs: logs,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.ReportID == "" || report.GeneratedAt.IsZero() {
		t.Errorf("report identity missing: %+v", report)
	}
	if len(report.Schemas) != 1 {
		t.Fatalf("got %d schemas: %v", len(report.Schemas), report.Schemas)
	}
	if report.Schemas[0].SampleCount != 2 {
		t.Errorf("SampleCount = %d, want 2", report.Schemas[0].SampleCount)
	}

	types := make(map[model.IssueType]model.Issue)
	for _, is := range report.Issues {
		types[is.Type] = is
	}
	missing, ok := types[model.IssueFieldMissing]
	if !ok || missing.FieldPath != "email" {
		t.Errorf("missing-field issue = %+v", missing)
	}
	added, ok := types[model.IssueFieldAddedUndocumented]
	if !ok || added.FieldPath != "extra" {
		t.Errorf("undocumented-field issue = %+v", added)
	}
	for _, is := range report.Issues {
		if is.Explanation == "" || is.DetectedAt.IsZero() {
			t.Errorf("issue not classified: %+v", is)
		}
	}

	if report.Impact == nil {
		t.Fatalf("impact assessment missing")
	}
	if report.Impact.BlastRadius != 2 {
		t.Errorf("BlastRadius = %d, want 2", report.Impact.BlastRadius)
	}
	// billing-service is a critical client, so the report escalates.
	if len(report.Impact.CriticalClients) != 1 || report.Impact.CriticalClients[0] != "billing-service" {
		t.Errorf("CriticalClients = %v", report.Impact.CriticalClients)
	}
	if report.Impact.RecommendedAction == "" || len(report.Recommendations) == 0 {
		t.Errorf("recommendations missing")
	}

	if report.TotalIssues != len(report.Issues) || report.EndpointsAnalyzed != 1 {
		t.Errorf("summary = %+v", report)
	}
}

func TestNewBuildsLoggerFromConfig(t *testing.T) {
	p, err := New(Config{LogLevel: "error"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.logger == nil {
		t.Fatalf("logger not built")
	}
}

func TestRunCleanTraffic(t *testing.T) {
	p, err := New(Config{SampleRate: 1.0}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	records := []model.TrafficRecord{
		userRecord(map[string]any{"id": float64(1), "email": "a@b.co", "name": "alice"}),
	}
	report, err := p.Run(context.Background(), Input{Records: records, SpecText: []byte(usersSpec)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("clean traffic produced issues: %v", report.Issues)
	}
	if report.Impact != nil {
		t.Errorf("impact produced without usage logs")
	}
}

func TestRunEmptyBatch(t *testing.T) {
	p, err := New(Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report, err := p.Run(context.Background(), Input{SpecText: []byte(usersSpec)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Schemas) != 0 || len(report.Issues) != 0 {
		t.Errorf("empty batch produced output: %+v", report)
	}
}

func TestRunWithoutContract(t *testing.T) {
	p, err := New(Config{SampleRate: 1.0}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	records := []model.TrafficRecord{
		userRecord(map[string]any{"id": float64(1)}),
	}
	report, err := p.Run(context.Background(), Input{Records: records})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Schemas) != 1 {
		t.Errorf("schemas = %v", report.Schemas)
	}
	if len(report.Issues) != 0 {
		t.Errorf("issues without a contract: %v", report.Issues)
	}
}

func TestRunInvalidContract(t *testing.T) {
	p, err := New(Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Run(context.Background(), Input{
		Records:  []model.TrafficRecord{userRecord(map[string]any{"id": float64(1)})},
		SpecText: []byte("[not a spec"),
	})
	var parseErr *model.SpecParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want SpecParseError", err)
	}
}

func TestRunMultipleEndpointsDeterministicOrder(t *testing.T) {
	p, err := New(Config{SampleRate: 1.0, Concurrency: 8}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	records := []model.TrafficRecord{
		{Endpoint: "/api/zebras", Method: "GET", StatusCode: 200, ResponseBody: map[string]any{"id": float64(1)}},
		{Endpoint: "/api/apples", Method: "GET", StatusCode: 200, ResponseBody: map[string]any{"id": float64(2)}},
		{Endpoint: "/api/apples", Method: "POST", StatusCode: 201, ResponseBody: map[string]any{"id": float64(3)}},
	}

	report, err := p.Run(context.Background(), Input{Records: records})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Schemas) != 3 {
		t.Fatalf("got %d schemas", len(report.Schemas))
	}
	want := []struct{ endpoint, method string }{
		{"/api/apples", "GET"},
		{"/api/apples", "POST"},
		{"/api/zebras", "GET"},
	}
	for i, w := range want {
		if report.Schemas[i].Endpoint != w.endpoint || report.Schemas[i].Method != w.method {
			t.Errorf("schemas[%d] = %s %s, want %s %s", i,
				report.Schemas[i].Method, report.Schemas[i].Endpoint, w.method, w.endpoint)
		}
	}
}

func TestRunSkipsBodylessEndpoints(t *testing.T) {
	p, err := New(Config{SampleRate: 1.0}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	records := []model.TrafficRecord{
		userRecord(map[string]any{"id": float64(1), "email": "a@b.co"}),
		{Endpoint: "/api/health", Method: "GET", StatusCode: 204},
	}
	report, err := p.Run(context.Background(), Input{Records: records, SpecText: []byte(usersSpec)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The body-less endpoint is skipped, not fatal.
	if len(report.Schemas) != 1 || report.Schemas[0].Endpoint != "/api/users" {
		t.Errorf("schemas = %v", report.Schemas)
	}
}
