package tables

import "testing"

func TestClassifyCoversEveryRegistryTable(t *testing.T) {
	for _, table := range TargetTables() {
		classification := Classify(table)
		switch classification.Strategy {
		case StrategyDirect, StrategyGlobal:
		case StrategyDevice:
			if classification.JoinColumn == "" {
				t.Fatalf("device table %s has no join column", table)
			}
		case StrategyParent:
			if classification.ParentTable == "" || classification.ForeignKey == "" {
				t.Fatalf("parent table %s has incomplete relation", table)
			}
			if !IsKnownTable(classification.ParentTable) {
				t.Fatalf("parent table %s references unknown parent %s", table, classification.ParentTable)
			}
		default:
			t.Fatalf("table %s has unknown strategy %q", table, classification.Strategy)
		}
	}
}

func TestClassifyDefaultsUnknownTablesToDirect(t *testing.T) {
	if got := Classify("never_heard_of_it").Strategy; got != StrategyDirect {
		t.Fatalf("expected direct for unknown table, got %s", got)
	}
	if IsKnownTable("never_heard_of_it") {
		t.Fatal("unknown table must not be in the registry")
	}
}

func TestMapSourceToTarget(t *testing.T) {
	cases := map[string]string{
		"service_orders":      "work_orders",
		"service_order_lines": "work_order_items",
		"locations":           "sites",
		"equipment":           "devices",
		"equipment_alerts":    "alarms",
		"projects":            "projects",
	}
	for source, want := range cases {
		got, ok := MapSourceToTarget(source)
		if !ok || got != want {
			t.Fatalf("map %s: got (%q, %v), want %q", source, got, ok, want)
		}
	}

	if _, ok := MapSourceToTarget("invoices"); ok {
		t.Fatal("unmapped source table must not resolve")
	}
}

func TestEveryMappedTargetIsClassified(t *testing.T) {
	for source, target := range sourceToTarget {
		if !IsKnownTable(target) {
			t.Fatalf("source %s maps to unclassified target %s", source, target)
		}
	}
}

func TestValidIdentifier(t *testing.T) {
	for _, name := range []string{"work_orders", "_private", "a1", "tenant_id"} {
		if !ValidIdentifier(name) {
			t.Fatalf("expected %q to be a valid identifier", name)
		}
	}
	for _, name := range []string{"", "1abc", "Work_Orders", `id"; DROP TABLE x; --`, "a b", "a-b"} {
		if ValidIdentifier(name) {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestIsGlobal(t *testing.T) {
	if !IsGlobal("countries") {
		t.Fatal("countries should be global")
	}
	if IsGlobal("work_orders") {
		t.Fatal("work_orders should not be global")
	}
}
