package handlers

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/repo"
)

func TestSettingsRoundTrip(t *testing.T) {
	e := setup(t)

	wantStatus(t, e.doJSON(t, http.MethodPut, "/api/v1/settings/"+domain.SettingCompanyName, map[string]any{
		"value": "Nucleo Lanches",
	}, nil), http.StatusNoContent)

	var settings map[string]string
	wantStatus(t, e.doJSON(t, http.MethodGet, "/api/v1/settings", nil, &settings), http.StatusOK)
	if settings[domain.SettingCompanyName] != "Nucleo Lanches" {
		t.Fatalf("company_name = %q", settings[domain.SettingCompanyName])
	}
}

func TestKeywordRulesCRUD(t *testing.T) {
	e := setup(t)

	var rule domain.KeywordRule
	w := e.doJSON(t, http.MethodPost, "/api/v1/keyword-rules", map[string]any{
		"keywords": []string{"cardápio", "menu"},
		"response": "Veja nosso cardápio: [DELIVERY-URL]",
		"priority": 5,
	}, &rule)
	wantStatus(t, w, http.StatusCreated)
	if rule.MatchType != domain.MatchContains {
		t.Errorf("MatchType = %q, want contains default", rule.MatchType)
	}

	var rules []domain.KeywordRule
	wantStatus(t, e.doJSON(t, http.MethodGet, "/api/v1/keyword-rules", nil, &rules), http.StatusOK)
	if len(rules) != 1 {
		t.Fatalf("rules = %d, want 1", len(rules))
	}

	wantStatus(t, e.doJSON(t, http.MethodDelete, "/api/v1/keyword-rules/"+rule.ID, nil, nil), http.StatusNoContent)
	wantStatus(t, e.doJSON(t, http.MethodDelete, "/api/v1/keyword-rules/"+rule.ID, nil, nil), http.StatusNotFound)
}

func TestExportWorkbookTask(t *testing.T) {
	e := setup(t)
	createIngredient(t, e, "Carne")

	var resp map[string]string
	w := e.doJSON(t, http.MethodPost, "/api/v1/export/workbook", nil, &resp)
	wantStatus(t, w, http.StatusAccepted)
	if resp["task_id"] == "" {
		t.Fatal("no task id returned")
	}

	// The single worker drains the export; poll for the file.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(e.h.WorkbookPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("workbook was not written")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestQueueStats(t *testing.T) {
	e := setup(t)
	var stats struct {
		Submitted int64 `json:"Submitted"`
	}
	wantStatus(t, e.doJSON(t, http.MethodGet, "/api/v1/queue/stats", nil, &stats), http.StatusOK)
}

func TestGatewayEndpoints(t *testing.T) {
	e := setup(t)

	var st map[string]any
	wantStatus(t, e.doJSON(t, http.MethodGet, "/api/v1/gateway/status", nil, &st), http.StatusOK)
	if st["connected"] != true {
		t.Fatalf("status = %v", st)
	}

	wantStatus(t, e.doJSON(t, http.MethodPost, "/api/v1/gateway/connect", nil, nil), http.StatusNoContent)
	wantStatus(t, e.doJSON(t, http.MethodPost, "/api/v1/gateway/disconnect", nil, nil), http.StatusNoContent)
	if e.gw.connects != 1 || e.gw.shutdowns != 1 {
		t.Fatalf("gateway calls = %d/%d", e.gw.connects, e.gw.shutdowns)
	}
}

func TestBugReportTriage(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	report := &domain.BugReport{Kind: "llm", Message: "timeout", Endpoint: "/v1/chat/completions"}
	if err := repo.AppendBugReport(ctx, e.db, report); err != nil {
		t.Fatalf("append: %v", err)
	}

	var rows []domain.BugReport
	wantStatus(t, e.doJSON(t, http.MethodGet, "/api/v1/bugs?status=new", nil, &rows), http.StatusOK)
	if len(rows) != 1 {
		t.Fatalf("bugs = %d, want 1", len(rows))
	}

	wantStatus(t, e.doJSON(t, http.MethodPut, "/api/v1/bugs/"+report.ID+"/status", map[string]any{
		"status": "investigating",
	}, nil), http.StatusNoContent)

	wantStatus(t, e.doJSON(t, http.MethodGet, "/api/v1/bugs?status=new", nil, &rows), http.StatusOK)
	if len(rows) != 0 {
		t.Fatalf("bugs still new = %d, want 0", len(rows))
	}

	// Unknown status rejected.
	wantStatus(t, e.doJSON(t, http.MethodPut, "/api/v1/bugs/"+report.ID+"/status", map[string]any{
		"status": "wontfix",
	}, nil), http.StatusBadRequest)
}
