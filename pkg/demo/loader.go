package demo

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/xotizwf-create/Uchet/pkg/norm"
)

const logPrefix = "demo:loader"

// LoadFixture loads a demo fixture from file paths or environment.
// It tries paths in order: first any paths passed in, then the
// UCHET_FIXTURE_FILE env var, then defaults. So an explicit path
// (e.g. from "seed my.json") is tried before the env var.
func LoadFixture(paths ...string) (*Fixture, error) {
	// Build path list: passed paths first, then env, then defaults
	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("UCHET_FIXTURE_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/fixture.json", "fixture.json")
	paths = all

	for _, p := range paths {
		if p == "" {
			continue
		}

		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		var f Fixture
		if err := json.Unmarshal(data, &f); err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse fixture file %s: %v", logPrefix, p, err))
			continue
		}

		slog.Info(fmt.Sprintf("%s - Loaded fixture from %s", logPrefix, p))
		return &f, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default fixture", logPrefix))
	return DefaultFixture(), nil
}

// DefaultFixture returns the embedded fallback demo data for user
// "demo". The numbers are arranged so that item X1 nets a stock of
// exactly 42: 30 + 20 received on the shelf, 8 delivered out on
// contract D-2024/18, the 5 still on order not counting, and the
// pre-cutoff delivery on D-2024/02 not counting either.
func DefaultFixture() *Fixture {
	date := func(s string) norm.Date {
		t, err := norm.ParseDate(s)
		if err != nil {
			panic(fmt.Sprintf("%s - bad built-in date %q: %v", logPrefix, s, err))
		}
		return norm.DateOf(t)
	}

	return &Fixture{
		Name: "uchet-demo",
		User: "demo",
		Items: []ItemRow{
			{Name: "X1", Unit: "pcs"},
			{Name: "Cable tray", Unit: "m"},
			{Name: "Anchor bolt M12", Unit: "pcs"},
		},
		Incomes: []IncomeRow{
			{Item: "X1", InvoiceNumber: "INV-7741", Date: date("2026-01-05"), Qty: 30, Unit: "pcs"},
			{Item: "X1", InvoiceNumber: "INV-7802", Date: date("2026-02-10"), Qty: 20, Unit: "pcs"},
			{Item: "X1", InvoiceNumber: "INV-7855", Date: date("2026-03-01"), Qty: 5, Unit: "pcs", InStock: norm.FlagOf(false)},
			{Item: "Cable tray", InvoiceNumber: "INV-7760", Date: date("2026-01-20"), Qty: 120, Unit: "m"},
		},
		Contracts: []ContractRow{
			{
				Number:   "D-2024/02",
				Org:      "Vega Retail",
				Supplier: "Steelworks JSC",
				Date:     date("2025-10-01"),
				Deadline: date("2025-11-30"),
				Item:     "X1", Qty: 12, PlanQty: 12,
				PlanDate: date("2025-11-01"),
				DateFact: date("2025-11-10"), Delivered: 12,
				DocsSent: norm.FlagOf(true),
			},
			{
				Number:   "D-2024/18",
				Org:      "Orion Build LLC",
				Supplier: "Steelworks JSC",
				Date:     date("2025-12-20"),
				Deadline: date("2026-01-31"),
				Item:     "X1", Qty: 10, PlanQty: 10,
				PlanDate: date("2026-01-10"),
				DateFact: date("2026-01-15"), Delivered: 8,
				DocsSent: norm.FlagOf(true),
			},
			{
				Number:   "D-2026/03",
				Org:      "Orion Build LLC",
				Supplier: "Polymer Trade",
				Date:     date("2026-02-01"),
				Deadline: date("2026-04-30"),
				Items: []ContractItemRow{
					{Item: "Cable tray", Qty: 60, PlanQty: 60, PlanDate: date("2026-03-15")},
					{Item: "Anchor bolt M12", Qty: 200, PlanQty: 200, PlanDate: date("2026-03-20")},
				},
			},
		},
		PriceItems: []PriceRow{
			{Code: "P-001", Name: "X1", PriceNoVat: 250, PriceWithVat: 300},
			{Code: "P-002", Name: "Cable tray", PriceNoVat: 540, PriceWithVat: 648, Note: "per meter"},
		},
	}
}
