package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fininsight/fininsight/internal/rag"
)

func TestRAGEndpointReturnsMaskedRows(t *testing.T) {
	pipeline := &fakePipeline{result: rag.Result{
		Answer: "Revenue is 100.",
		SQL:    "SELECT revenue, cost FROM financials",
		Rows:   []map[string]any{{"revenue": 100, "cost": "***"}},
	}}
	h := NewHandler(testConfig(t, nil), Dependencies{Pipeline: pipeline})

	req := httptest.NewRequest(http.MethodPost, "/rag-advanced/", strings.NewReader(
		`{"query":"what is the revenue?","user_id":"u1","user_role":"user"}`,
	))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["result"] != "Revenue is 100." {
		t.Fatalf("result = %v", body["result"])
	}
	if body["sql"] != "SELECT revenue, cost FROM financials" {
		t.Fatalf("sql = %v", body["sql"])
	}
	data, ok := body["data"].([]any)
	if !ok || len(data) != 1 {
		t.Fatalf("data = %v", body["data"])
	}
	row := data[0].(map[string]any)
	if row["cost"] != "***" {
		t.Fatalf("cost = %v", row["cost"])
	}
	if pipeline.gotRequest.Role != "user" || pipeline.gotRequest.UserID != "u1" {
		t.Fatalf("pipeline request = %+v", pipeline.gotRequest)
	}
}

func TestRAGEndpointRequiresQuery(t *testing.T) {
	h := NewHandler(testConfig(t, nil), Dependencies{Pipeline: &fakePipeline{}})

	req := httptest.NewRequest(http.MethodPost, "/rag-advanced/", strings.NewReader(`{"user_id":"u1"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestRAGEndpointSQLFailureIs400WithSQL(t *testing.T) {
	pipeline := &fakePipeline{err: &rag.SQLExecutionError{
		SQL: "SELECT nope FROM financials",
		Err: errors.New(`column "nope" does not exist`),
	}}
	h := NewHandler(testConfig(t, nil), Dependencies{Pipeline: pipeline})

	req := httptest.NewRequest(http.MethodPost, "/rag-advanced/", strings.NewReader(
		`{"query":"show nope"}`,
	))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	message, _ := body["error"].(string)
	if !strings.Contains(message, "SELECT nope FROM financials") {
		t.Fatalf("error should mention the SQL, got %q", message)
	}
}

func TestRAGEndpointUnexpectedFailureIs500(t *testing.T) {
	pipeline := &fakePipeline{err: errors.New("llm endpoint unreachable")}
	h := NewHandler(testConfig(t, nil), Dependencies{Pipeline: pipeline})

	req := httptest.NewRequest(http.MethodPost, "/rag-advanced/", strings.NewReader(
		`{"query":"anything"}`,
	))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "llm endpoint unreachable") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestRAGEndpointEmptyRowsIsArray(t *testing.T) {
	pipeline := &fakePipeline{result: rag.Result{Answer: "No data.", SQL: "SELECT 1"}}
	h := NewHandler(testConfig(t, nil), Dependencies{Pipeline: pipeline})

	req := httptest.NewRequest(http.MethodPost, "/rag-advanced/", strings.NewReader(
		`{"query":"anything"}`,
	))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"data":[]`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}
