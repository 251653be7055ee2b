package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
)

func setupWorkOrderTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	svc := service.NewWorkOrderService(repos.WorkOrder, repos.ActivityLog)
	handler := NewWorkOrderHandler(svc, repos.ActivityLog)
	dashboardHandler := NewDashboardHandler(service.NewDashboardService(db))

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/mes")
	api.GET("/work-orders", handler.ListWorkOrders)
	api.POST("/work-orders", handler.CreateWorkOrder)
	api.GET("/work-orders/:id", handler.GetWorkOrder)
	api.PUT("/work-orders/:id", handler.UpdateWorkOrder)
	api.POST("/work-orders/:id/transition", handler.TransitionWorkOrder)
	api.GET("/work-orders/:id/logs", handler.ListWorkOrderLogs)
	api.GET("/dashboard/kanban", dashboardHandler.GetKanban)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// TestWorkOrderLifecycle tests creation, the status machine and activity logs
func TestWorkOrderLifecycle(t *testing.T) {
	env := setupWorkOrderTest(t)
	token := testutil.DefaultTestToken()

	// Create work order
	body := map[string]interface{}{
		"product_name": "蓝牙音箱外壳",
		"quantity":     500,
		"priority":     "high",
		"unit_price":   12.5,
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/work-orders", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	orderID := data["id"].(string)
	if data["status"] != entity.WorkOrderStatusPlanned {
		t.Fatalf("expected planned, got %v", data["status"])
	}
	code := data["code"].(string)
	if len(code) != 12 || code[:3] != "WO-" {
		t.Fatalf("unexpected code format: %s", code)
	}

	// planned → released → in_progress
	w2 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/work-orders/"+orderID+"/transition",
		map[string]interface{}{"status": entity.WorkOrderStatusReleased}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	w3 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/work-orders/"+orderID+"/transition",
		map[string]interface{}{"status": entity.WorkOrderStatusInProgress}, token)
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
	data3 := testutil.ParseResponse(w3)["data"].(map[string]interface{})
	if data3["started_at"] == nil {
		t.Fatal("started_at not stamped on in_progress transition")
	}

	// illegal jump: in_progress → planned
	w4 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/work-orders/"+orderID+"/transition",
		map[string]interface{}{"status": entity.WorkOrderStatusPlanned}, token)
	if w4.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for illegal transition, got %d", w4.Code)
	}

	// activity logs recorded for create + 2 transitions
	w5 := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/work-orders/"+orderID+"/logs", nil, token)
	if w5.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w5.Code, w5.Body.String())
	}
	logData := testutil.ParseResponse(w5)["data"].(map[string]interface{})
	logs := logData["items"].([]interface{})
	if len(logs) != 3 {
		t.Fatalf("expected 3 activity logs, got %d", len(logs))
	}
}

// TestWorkOrderListAndFilter tests list pagination and status filtering
func TestWorkOrderListAndFilter(t *testing.T) {
	env := setupWorkOrderTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedWorkOrder(t, env.DB, "wo-l-001", "WO-2026-0101", "外壳A", entity.WorkOrderStatusPlanned)
	testutil.SeedWorkOrder(t, env.DB, "wo-l-002", "WO-2026-0102", "外壳B", entity.WorkOrderStatusInProgress)
	testutil.SeedWorkOrder(t, env.DB, "wo-l-003", "WO-2026-0103", "面板C", entity.WorkOrderStatusInProgress)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/work-orders?status=in_progress", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 in_progress orders, got %d", len(items))
	}

	w2 := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/work-orders?keyword=面板", nil, token)
	data2 := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	if len(data2["items"].([]interface{})) != 1 {
		t.Fatalf("keyword filter failed: %v", data2["items"])
	}
}

// TestKanban tests the kanban grouping returns all columns in order
func TestKanban(t *testing.T) {
	env := setupWorkOrderTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedWorkOrder(t, env.DB, "wo-k-001", "WO-2026-0201", "产品A", entity.WorkOrderStatusPlanned)
	testutil.SeedWorkOrder(t, env.DB, "wo-k-002", "WO-2026-0202", "产品B", entity.WorkOrderStatusQCHold)
	testutil.SeedWorkOrder(t, env.DB, "wo-k-003", "WO-2026-0203", "产品C", entity.WorkOrderStatusCancelled)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/dashboard/kanban", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	columns := testutil.ParseResponse(w)["data"].([]interface{})
	if len(columns) != len(entity.KanbanColumns) {
		t.Fatalf("expected %d columns, got %d", len(entity.KanbanColumns), len(columns))
	}

	total := 0
	for _, col := range columns {
		c := col.(map[string]interface{})
		total += int(c["count"].(float64))
		if c["status"] == entity.WorkOrderStatusQCHold && c["count"].(float64) != 1 {
			t.Fatalf("expected 1 qc_hold order, got %v", c["count"])
		}
	}
	// cancelled orders stay off the board
	if total != 2 {
		t.Fatalf("expected 2 orders on kanban, got %d", total)
	}
}
