package cache

import "testing"

func TestKeyIgnoresParamInsertionOrder(t *testing.T) {
	first, errFirst := Key("chart-1", map[string]any{
		"sql":     "SELECT 1",
		"filters": map[string]any{"status": "open", "region": "emea"},
	})
	if errFirst != nil {
		t.Fatalf("key: %v", errFirst)
	}
	second, errSecond := Key("chart-1", map[string]any{
		"filters": map[string]any{"region": "emea", "status": "open"},
		"sql":     "SELECT 1",
	})
	if errSecond != nil {
		t.Fatalf("key: %v", errSecond)
	}
	if first != second {
		t.Fatalf("same params hashed differently: %s vs %s", first, second)
	}
}

func TestKeyDiffersByChartAndParams(t *testing.T) {
	params := map[string]any{"sql": "SELECT 1"}

	byChartA, _ := Key("chart-a", params)
	byChartB, _ := Key("chart-b", params)
	if byChartA == byChartB {
		t.Fatal("different charts must not share a key")
	}

	changed, _ := Key("chart-a", map[string]any{"sql": "SELECT 2"})
	if byChartA == changed {
		t.Fatal("different params must not share a key")
	}
}

func TestKeyRejectsUnmarshalableParams(t *testing.T) {
	if _, errKey := Key("chart-1", map[string]any{"bad": func() {}}); errKey == nil {
		t.Fatal("expected unhashable params to fail")
	}
}

func TestSourceTablesFromSQL(t *testing.T) {
	query := `
		SELECT w."id", s."name"
		FROM base.work_orders w
		JOIN "base"."sites" s ON s."id" = w."site_id"
		LEFT JOIN alarms a ON a."id" = w."alarm_id"
		WHERE w."status" = 'open'`

	got := SourceTablesFromSQL(query)
	want := []string{"alarms", "sites", "work_orders"}
	if len(got) != len(want) {
		t.Fatalf("tables: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tables: got %v, want %v", got, want)
		}
	}
}

func TestSourceTablesFromSQLIgnoresUnknownNames(t *testing.T) {
	got := SourceTablesFromSQL(`SELECT * FROM invoices JOIN (SELECT 1) sub ON true`)
	if len(got) != 0 {
		t.Fatalf("expected no registry tables, got %v", got)
	}
}

func TestSourceTablesFromSQLDeduplicates(t *testing.T) {
	got := SourceTablesFromSQL(`SELECT * FROM work_orders a JOIN work_orders b ON b."id" = a."id"`)
	if len(got) != 1 || got[0] != "work_orders" {
		t.Fatalf("expected single work_orders entry, got %v", got)
	}
}
