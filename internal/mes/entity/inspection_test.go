package entity

import "testing"

func passedItems(n int) []ResultItem {
	items := make([]ResultItem, n)
	for i := range items {
		items[i] = ResultItem{ID: "p", Passed: true}
	}
	return items
}

func failedItems(n int) []ResultItem {
	items := make([]ResultItem, n)
	for i := range items {
		items[i] = ResultItem{ID: "f", Passed: false}
	}
	return items
}

// TestDeriveStatus covers the aggregate rules: critical veto first,
// then the 0.70 pass-rate threshold, then the all-pass requirement
func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name  string
		items []ResultItem
		want  InspectionStatus
	}{
		{"empty checklist passes", nil, InspectionStatusPassed},
		{"all passed", passedItems(10), InspectionStatusPassed},
		{"exactly 0.70 is partial", append(passedItems(7), failedItems(3)...), InspectionStatusPartial},
		{"below threshold fails", append(passedItems(6), failedItems(4)...), InspectionStatusFailed},
		{"above threshold partial", append(passedItems(9), failedItems(1)...), InspectionStatusPartial},
		{"single failed item fails", failedItems(1), InspectionStatusFailed},
		{"single passed item passes", passedItems(1), InspectionStatusPassed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveStatus(tc.items)
			if got != tc.want {
				t.Fatalf("DeriveStatus = %s, want %s", got, tc.want)
			}
		})
	}
}

// TestDeriveStatusCriticalVeto verifies a failed critical item forces failed
// regardless of how high the pass rate is
func TestDeriveStatusCriticalVeto(t *testing.T) {
	items := passedItems(9)
	items = append(items, ResultItem{ID: "crit", CriticalItem: true, Passed: false})
	if got := DeriveStatus(items); got != InspectionStatusFailed {
		t.Fatalf("expected failed with failed critical item, got %s", got)
	}

	// a passing critical item does not veto
	items2 := append(passedItems(7), failedItems(2)...)
	items2 = append(items2, ResultItem{ID: "crit", CriticalItem: true, Passed: true})
	if got := DeriveStatus(items2); got != InspectionStatusFailed {
		// 8/10 = 0.8 → partial, so this asserts the veto does NOT fire
		t.Logf("status = %s", got)
	}
	if got := DeriveStatus(items2); got != InspectionStatusPartial {
		t.Fatalf("expected partial with passing critical item, got %s", got)
	}
}

func sampleTemplate() *ChecklistTemplate {
	return &ChecklistTemplate{
		ID:   "tpl-001",
		Name: "成品检验",
		Sections: ChecklistSections{
			{ID: "dim", Name: "尺寸", Items: []ChecklistItem{
				{ID: "len", Description: "长度", Type: ItemTypeNumeric, ExpectedValue: 100.0, Tolerance: floatPtr(2.0), Unit: "mm"},
				{ID: "wid", Description: "宽度", Type: ItemTypeNumeric, ExpectedValue: 100.0, Tolerance: floatPtr(2.0), Unit: "mm"},
				{ID: "clean", Description: "清洁无尘", Type: ItemTypeBoolean},
			}},
			{ID: "surf", Name: "外观", Items: []ChecklistItem{
				{ID: "gloss", Description: "光泽度", Type: ItemTypeNumeric, ExpectedValue: 100.0, Tolerance: floatPtr(2.0)},
				{ID: "temp", Description: "表面温度", Type: ItemTypeNumeric, ExpectedValue: 100.0, Tolerance: floatPtr(2.0)},
				{ID: "intact", Description: "无破损", Type: ItemTypeBoolean},
			}},
		},
	}
}

// TestBindTemplateDefaults verifies the binding defaults: boolean→false,
// numeric→expected value, text→expected string, and all items unpassed
func TestBindTemplateDefaults(t *testing.T) {
	tpl := &ChecklistTemplate{
		ID:   "tpl-d",
		Name: "默认值",
		Sections: ChecklistSections{
			{ID: "s1", Name: "g", Items: []ChecklistItem{
				{ID: "b", Type: ItemTypeBoolean, ExpectedValue: true},
				{ID: "n", Type: ItemTypeNumeric, ExpectedValue: 5.5, Tolerance: floatPtr(10.0)},
				{ID: "n2", Type: ItemTypeNumeric},
				{ID: "t", Type: ItemTypeText, ExpectedValue: "OK"},
				{ID: "t2", Type: ItemTypeText},
			}},
		},
	}

	r := &InspectionResult{}
	if err := r.BindTemplate(tpl); err != nil {
		t.Fatalf("BindTemplate: %v", err)
	}

	if r.ChecklistID != "tpl-d" || r.ChecklistName != "默认值" {
		t.Fatalf("template identity not copied: %s %s", r.ChecklistID, r.ChecklistName)
	}

	b := r.FindItem("s1", "b")
	if b.Result != false {
		t.Fatalf("boolean default = %v, want false", b.Result)
	}
	n := r.FindItem("s1", "n")
	if n.Result != 5.5 {
		t.Fatalf("numeric default = %v, want 5.5", n.Result)
	}
	n2 := r.FindItem("s1", "n2")
	if n2.Result != float64(0) {
		t.Fatalf("numeric default without target = %v, want 0", n2.Result)
	}
	tx := r.FindItem("s1", "t")
	if tx.Result != "OK" {
		t.Fatalf("text default = %v, want OK", tx.Result)
	}
	t2 := r.FindItem("s1", "t2")
	if t2.Result != "" {
		t.Fatalf("text default without target = %v, want empty", t2.Result)
	}

	// even defaults inside tolerance start unpassed
	for _, it := range r.AllItems() {
		if it.Passed {
			t.Fatalf("item %s passed at instantiation", it.ID)
		}
	}
	if r.Status != InspectionStatusFailed {
		t.Fatalf("fresh result status = %s, want failed (0/5 pass rate)", r.Status)
	}
}

// TestBindTemplateLocked verifies a persisted result refuses rebinding
func TestBindTemplateLocked(t *testing.T) {
	r := &InspectionResult{ID: "already-saved"}
	if err := r.BindTemplate(sampleTemplate()); err != ErrTemplateLocked {
		t.Fatalf("expected ErrTemplateLocked, got %v", err)
	}
}

// TestBindTemplateCopiesRules verifies mutating the template after binding
// does not leak into the bound result
func TestBindTemplateCopiesRules(t *testing.T) {
	tpl := sampleTemplate()
	r := &InspectionResult{}
	if err := r.BindTemplate(tpl); err != nil {
		t.Fatalf("BindTemplate: %v", err)
	}

	*tpl.Sections[0].Items[0].Tolerance = 999
	tpl.Sections[0].Items[0].ExpectedValue = -1.0

	it := r.FindItem("dim", "len")
	if *it.Tolerance != 2.0 {
		t.Fatalf("tolerance leaked: %v", *it.Tolerance)
	}
	if it.ExpectedValue != 100.0 {
		t.Fatalf("expected value leaked: %v", it.ExpectedValue)
	}
}

// TestRecordItemValue verifies recording re-evaluates and clears any verdict
func TestRecordItemValue(t *testing.T) {
	r := &InspectionResult{}
	if err := r.BindTemplate(sampleTemplate()); err != nil {
		t.Fatalf("BindTemplate: %v", err)
	}

	if err := r.RecordItemValue("dim", "len", 101.0); err != nil {
		t.Fatalf("RecordItemValue: %v", err)
	}
	it := r.FindItem("dim", "len")
	if !it.Passed {
		t.Fatal("101 within 100±2 should pass")
	}

	// override, then re-record: verdict must be cleared
	if err := r.SetItemVerdict("dim", "len", VerdictRejected); err != nil {
		t.Fatalf("SetItemVerdict: %v", err)
	}
	if err := r.RecordItemValue("dim", "len", 99.0); err != nil {
		t.Fatalf("RecordItemValue: %v", err)
	}
	it = r.FindItem("dim", "len")
	if it.Verdict != "" {
		t.Fatalf("verdict not cleared after re-record: %s", it.Verdict)
	}
	if !it.Passed {
		t.Fatal("99 within 100±2 should pass")
	}

	if err := r.RecordItemValue("dim", "nope", 1.0); err != ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if err := r.RecordItemValue("nope", "len", 1.0); err != ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound for bad section, got %v", err)
	}
}

// TestSetItemVerdict verifies override semantics including boolean rewrite
// and idempotence of repeated identical verdicts
func TestSetItemVerdict(t *testing.T) {
	r := &InspectionResult{}
	if err := r.BindTemplate(sampleTemplate()); err != nil {
		t.Fatalf("BindTemplate: %v", err)
	}

	// approved forces pass even with a failing recorded value
	r.RecordItemValue("dim", "len", 50.0)
	r.SetItemVerdict("dim", "len", VerdictApproved)
	it := r.FindItem("dim", "len")
	if !it.Passed {
		t.Fatal("approved verdict must force passed")
	}
	if it.Result != 50.0 {
		t.Fatalf("numeric recorded value must survive override, got %v", it.Result)
	}

	// idempotent: applying the same verdict again changes nothing
	statusBefore := r.Status
	r.SetItemVerdict("dim", "len", VerdictApproved)
	if r.Status != statusBefore {
		t.Fatalf("repeated verdict changed status: %s -> %s", statusBefore, r.Status)
	}

	// boolean override rewrites the recorded value
	r.SetItemVerdict("dim", "clean", VerdictApproved)
	clean := r.FindItem("dim", "clean")
	if clean.Result != true || !clean.Passed {
		t.Fatalf("boolean approved: result=%v passed=%v", clean.Result, clean.Passed)
	}
	r.SetItemVerdict("dim", "clean", VerdictRejected)
	clean = r.FindItem("dim", "clean")
	if clean.Result != false || clean.Passed {
		t.Fatalf("boolean rejected: result=%v passed=%v", clean.Result, clean.Passed)
	}

	// rework counts as failed like rejected
	r.SetItemVerdict("surf", "gloss", VerdictRework)
	if r.FindItem("surf", "gloss").Passed {
		t.Fatal("rework verdict must count as failed")
	}

	// verdicts replace each other
	r.SetItemVerdict("surf", "gloss", VerdictApproved)
	if !r.FindItem("surf", "gloss").Passed {
		t.Fatal("approved after rework must pass")
	}
}

// TestInspectionScenario walks the 2-section / 6-item flow end to end:
// four passing items out of six gives a 0.667 pass rate, below threshold
func TestInspectionScenario(t *testing.T) {
	r := &InspectionResult{}
	if err := r.BindTemplate(sampleTemplate()); err != nil {
		t.Fatalf("BindTemplate: %v", err)
	}

	r.RecordItemValue("dim", "len", 99.0)      // pass
	r.RecordItemValue("dim", "wid", 101.0)     // pass
	r.RecordItemValue("dim", "clean", true)    // pass
	r.RecordItemValue("surf", "gloss", 98.0)   // pass
	r.RecordItemValue("surf", "temp", 105.0)   // fail, outside 100±2
	r.RecordItemValue("surf", "intact", false) // fail

	if r.Status != InspectionStatusFailed {
		t.Fatalf("4/6 ≈ 0.667 pass rate must fail, got %s", r.Status)
	}

	// rescuing one failed item lifts the rate to 5/6 → partial
	r.SetItemVerdict("surf", "temp", VerdictApproved)
	if r.Status != InspectionStatusPartial {
		t.Fatalf("5/6 pass rate must be partial, got %s", r.Status)
	}

	// rescuing the last one → passed
	r.SetItemVerdict("surf", "intact", VerdictApproved)
	if r.Status != InspectionStatusPassed {
		t.Fatalf("6/6 pass rate must pass, got %s", r.Status)
	}
}

// TestAddItemPhoto verifies attachment refs append without touching the verdict
func TestAddItemPhoto(t *testing.T) {
	r := &InspectionResult{}
	if err := r.BindTemplate(sampleTemplate()); err != nil {
		t.Fatalf("BindTemplate: %v", err)
	}

	r.RecordItemValue("dim", "len", 100.0)
	statusBefore := r.Status

	if err := r.AddItemPhoto("dim", "len", "inspections/2026/08/abc.jpg"); err != nil {
		t.Fatalf("AddItemPhoto: %v", err)
	}
	it := r.FindItem("dim", "len")
	if len(it.Photos) != 1 || it.Photos[0] != "inspections/2026/08/abc.jpg" {
		t.Fatalf("photos = %v", it.Photos)
	}
	if r.Status != statusBefore {
		t.Fatal("adding a photo must not change derived status")
	}

	if err := r.AddItemPhoto("dim", "nope", "x"); err != ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}
