package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
)

func floatPtr(f float64) *float64 {
	return &f
}

func setupInspectionTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	inspectionSvc := service.NewInspectionService(repos.Inspection, repos.Checklist, repos.WorkOrder)
	inspectionSvc.SetActivityLogRepo(repos.ActivityLog)
	reportSvc := service.NewReportService(repos.Inspection)
	handler := NewInspectionHandler(inspectionSvc, reportSvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/mes")
	api.GET("/inspections", handler.ListInspections)
	api.POST("/inspections", handler.CreateInspection)
	api.GET("/inspections/:id", handler.GetInspection)
	api.PUT("/inspections/:id", handler.UpdateInspection)
	api.POST("/inspections/:id/record", handler.RecordItemValue)
	api.POST("/inspections/:id/verdict", handler.SetItemVerdict)
	api.POST("/inspections/:id/complete", handler.CompleteInspection)
	api.GET("/inspections/:id/export", handler.ExportInspection)
	api.GET("/inspections/:id/export-csv", handler.ExportInspectionCSV)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func seedInspectionTestData(t *testing.T, env *testutil.TestEnv) (checklistID, orderID string) {
	t.Helper()

	testutil.SeedWorkOrder(t, env.DB, "wo-insp-001", "WO-2026-0001", "智能手表主板", entity.WorkOrderStatusInProgress)
	testutil.SeedChecklistTemplate(t, env.DB, "cl-insp-001", "CL-2026-0001", "成品检验", entity.ChecklistSections{
		{ID: "dim", Name: "尺寸", Items: []entity.ChecklistItem{
			{ID: "len", Description: "长度", Type: entity.ItemTypeNumeric, ExpectedValue: 100.0, Tolerance: floatPtr(2.0), Unit: "mm"},
			{ID: "clean", Description: "清洁无尘", Type: entity.ItemTypeBoolean, CriticalItem: true},
		}},
	})

	return "cl-insp-001", "wo-insp-001"
}

// TestInspectionCreateAndRecord tests creating an inspection from a published
// template and recording values through the API
func TestInspectionCreateAndRecord(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	checklistID, orderID := seedInspectionTestData(t, env)

	// Create inspection
	body := map[string]interface{}{
		"checklist_id": checklistID,
		"order_id":     orderID,
		"inspector":    "张工",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	inspectionID := data["id"].(string)
	if data["checklist_name"] != "成品检验" {
		t.Fatalf("expected checklist name copied, got %v", data["checklist_name"])
	}
	// critical boolean starts false → whole result failed
	if data["status"] != "failed" {
		t.Fatalf("expected initial status failed, got %v", data["status"])
	}

	// Record passing values for both items
	w2 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspectionID+"/record",
		map[string]interface{}{"section_id": "dim", "item_id": "len", "value": 101.0}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	w3 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspectionID+"/record",
		map[string]interface{}{"section_id": "dim", "item_id": "clean", "value": true}, token)
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w3.Code, w3.Body.String())
	}

	resp3 := testutil.ParseResponse(w3)
	data3 := resp3["data"].(map[string]interface{})
	if data3["status"] != "passed" {
		t.Fatalf("expected status passed after all items pass, got %v", data3["status"])
	}

	// Unknown item returns 404
	w4 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspectionID+"/record",
		map[string]interface{}{"section_id": "dim", "item_id": "nope", "value": 1}, token)
	if w4.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown item, got %d", w4.Code)
	}
}

// TestInspectionVerdictAndQCHold tests manual verdicts and the qc_hold
// feedback to the work order when a completed inspection failed
func TestInspectionVerdictAndQCHold(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	checklistID, orderID := seedInspectionTestData(t, env)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections",
		map[string]interface{}{"checklist_id": checklistID, "order_id": orderID, "inspector": "李工"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	inspectionID := data["id"].(string)

	// fail the critical boolean item, rescue the numeric one
	testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspectionID+"/record",
		map[string]interface{}{"section_id": "dim", "item_id": "clean", "value": false}, token)
	w2 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspectionID+"/verdict",
		map[string]interface{}{"section_id": "dim", "item_id": "len", "verdict": "approved"}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	data2 := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	if data2["status"] != "failed" {
		t.Fatalf("failed critical item must keep status failed, got %v", data2["status"])
	}

	// invalid verdict rejected
	w3 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspectionID+"/verdict",
		map[string]interface{}{"section_id": "dim", "item_id": "len", "verdict": "maybe"}, token)
	if w3.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid verdict, got %d", w3.Code)
	}

	// complete: failed inspection pushes the work order to qc_hold
	w4 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspectionID+"/complete", nil, token)
	if w4.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w4.Code, w4.Body.String())
	}

	var order entity.WorkOrder
	env.DB.Where("id = ?", orderID).First(&order)
	if order.Status != entity.WorkOrderStatusQCHold {
		t.Fatalf("expected work order qc_hold, got %s", order.Status)
	}
}

// TestInspectionTemplateLocked verifies a persisted inspection refuses a
// checklist change
func TestInspectionTemplateLocked(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	checklistID, orderID := seedInspectionTestData(t, env)
	testutil.SeedChecklistTemplate(t, env.DB, "cl-insp-002", "CL-2026-0002", "备用模板", nil)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections",
		map[string]interface{}{"checklist_id": checklistID, "order_id": orderID, "inspector": "王工"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	inspectionID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w2 := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/mes/inspections/"+inspectionID,
		map[string]interface{}{"checklist_id": "cl-insp-002"}, token)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for template change, got %d: %s", w2.Code, w2.Body.String())
	}

	// updating other fields is still allowed
	w3 := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/mes/inspections/"+inspectionID,
		map[string]interface{}{"comments": "抽检5件"}, token)
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
}

// TestInspectionCreateValidation tests required fields and template state checks
func TestInspectionCreateValidation(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	checklistID, orderID := seedInspectionTestData(t, env)

	// missing inspector
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections",
		map[string]interface{}{"checklist_id": checklistID, "order_id": orderID}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing inspector, got %d", w.Code)
	}

	// unknown checklist
	w2 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections",
		map[string]interface{}{"checklist_id": "nope", "order_id": orderID, "inspector": "x"}, token)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown checklist, got %d", w2.Code)
	}

	// draft template cannot be used
	draft := &entity.ChecklistTemplate{
		ID: "cl-draft", Code: "CL-2026-0099", Name: "草稿", Status: entity.ChecklistStatusDraft,
	}
	if err := env.DB.Create(draft).Error; err != nil {
		t.Fatalf("seed draft template: %v", err)
	}
	w3 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections",
		map[string]interface{}{"checklist_id": "cl-draft", "order_id": orderID, "inspector": "x"}, token)
	if w3.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for draft template, got %d", w3.Code)
	}

	// unauthorized without token
	w4 := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/inspections", nil, "")
	if w4.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w4.Code)
	}
}

// TestInspectionExport tests the xlsx and GBK CSV export endpoints
func TestInspectionExport(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	checklistID, orderID := seedInspectionTestData(t, env)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections",
		map[string]interface{}{"checklist_id": checklistID, "order_id": orderID, "inspector": "赵工"}, token)
	inspectionID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w2 := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/inspections/"+inspectionID+"/export", nil, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 for xlsx export, got %d: %s", w2.Code, w2.Body.String())
	}
	if ct := w2.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if w2.Body.Len() == 0 {
		t.Fatal("empty xlsx body")
	}

	w3 := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/inspections/"+inspectionID+"/export-csv", nil, token)
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200 for csv export, got %d: %s", w3.Code, w3.Body.String())
	}
	if w3.Body.Len() == 0 {
		t.Fatal("empty csv body")
	}
}
