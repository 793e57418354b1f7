// Package knowledge holds the static SAP reference tables used to build the
// non-generated sections of a document and to enrich prompts.
package knowledge

import (
	"fmt"
	"sort"
	"strings"
)

// Module describes one SAP functional module.
type Module struct {
	ID              string
	Name            string
	ProcessAreas    []string
	BusinessObjects []string
	Transactions    []string
	Keywords        []string
	Related         []string
}

var modules = map[string]Module{
	"FI": {
		ID:              "FI",
		Name:            "Financial Accounting",
		ProcessAreas:    []string{"General Ledger", "Accounts Payable", "Accounts Receivable", "Asset Accounting", "Bank Accounting", "Period-End Closing"},
		BusinessObjects: []string{"BKPF (Accounting Document Header)", "BSEG (Accounting Document Segment)", "SKA1 (G/L Account Master)", "LFA1 (Vendor Master)", "KNA1 (Customer Master)", "ANLA (Asset Master)"},
		Transactions:    []string{"FB01", "FB50", "F-53", "F-28", "FS00", "AS01", "F.01"},
		Keywords:        []string{"invoice", "ledger", "payment", "journal", "posting", "accounts payable", "accounts receivable", "vendor", "asset", "tax", "closing", "reconciliation", "bank"},
		Related:         []string{"CO", "MM", "SD"},
	},
	"CO": {
		ID:              "CO",
		Name:            "Controlling",
		ProcessAreas:    []string{"Cost Center Accounting", "Internal Orders", "Product Costing", "Profitability Analysis", "Profit Center Accounting"},
		BusinessObjects: []string{"CSKS (Cost Center Master)", "AUFK (Order Master)", "CE1xxxx (Profitability Segment)", "CEPC (Profit Center Master)"},
		Transactions:    []string{"KS01", "KO01", "CK11N", "KE30", "KP06"},
		Keywords:        []string{"cost center", "profit center", "budget", "allocation", "overhead", "variance", "profitability", "internal order", "costing"},
		Related:         []string{"FI", "PP"},
	},
	"MM": {
		ID:              "MM",
		Name:            "Materials Management",
		ProcessAreas:    []string{"Procurement", "Inventory Management", "Invoice Verification", "Vendor Evaluation", "Material Requirements Planning"},
		BusinessObjects: []string{"MARA (Material Master)", "EKKO (Purchasing Document Header)", "EKPO (Purchasing Document Item)", "EBAN (Purchase Requisition)", "MSEG (Material Document Segment)"},
		Transactions:    []string{"ME21N", "ME51N", "MIGO", "MIRO", "MM01", "ME2M"},
		Keywords:        []string{"purchase", "procurement", "purchase order", "requisition", "goods receipt", "inventory", "stock", "material", "supplier", "warehouse"},
		Related:         []string{"FI", "PP", "SD"},
	},
	"SD": {
		ID:              "SD",
		Name:            "Sales and Distribution",
		ProcessAreas:    []string{"Pre-Sales", "Sales Order Processing", "Shipping", "Billing", "Pricing", "Credit Management"},
		BusinessObjects: []string{"VBAK (Sales Document Header)", "VBAP (Sales Document Item)", "LIKP (Delivery Header)", "VBRK (Billing Document Header)", "KONV (Pricing Conditions)"},
		Transactions:    []string{"VA01", "VL01N", "VF01", "VK11", "FD32"},
		Keywords:        []string{"sales", "customer", "quotation", "sales order", "delivery", "shipping", "billing", "pricing", "discount", "credit limit"},
		Related:         []string{"FI", "MM"},
	},
	"PP": {
		ID:              "PP",
		Name:            "Production Planning",
		ProcessAreas:    []string{"Demand Management", "Material Requirements Planning", "Capacity Planning", "Shop Floor Control", "Production Orders"},
		BusinessObjects: []string{"AFKO (Production Order Header)", "STKO (BOM Header)", "PLKO (Routing Header)", "CRHD (Work Center)"},
		Transactions:    []string{"CO01", "CS01", "CA01", "MD04", "CR01"},
		Keywords:        []string{"production", "manufacturing", "bill of materials", "bom", "routing", "work center", "capacity", "shop floor", "mrp"},
		Related:         []string{"MM", "CO"},
	},
	"HCM": {
		ID:              "HCM",
		Name:            "Human Capital Management",
		ProcessAreas:    []string{"Organizational Management", "Personnel Administration", "Time Management", "Payroll", "Recruitment"},
		BusinessObjects: []string{"PA0001 (Organizational Assignment)", "PA0008 (Basic Pay)", "HRP1000 (Org Objects)", "PA2001 (Absences)"},
		Transactions:    []string{"PA30", "PA40", "PPOME", "PC00_M99_CALC", "PT60"},
		Keywords:        []string{"employee", "payroll", "hire", "onboarding", "personnel", "absence", "leave", "timesheet", "salary", "recruitment"},
		Related:         []string{"FI", "CO"},
	},
	"QM": {
		ID:              "QM",
		Name:            "Quality Management",
		ProcessAreas:    []string{"Quality Planning", "Quality Inspection", "Quality Notifications", "Quality Certificates"},
		BusinessObjects: []string{"QALS (Inspection Lot)", "QMEL (Quality Notification)", "PLMK (Inspection Characteristics)"},
		Transactions:    []string{"QA01", "QA32", "QM01", "QP01"},
		Keywords:        []string{"quality", "inspection", "defect", "nonconformance", "audit", "certificate", "sample"},
		Related:         []string{"MM", "PP"},
	},
	"PM": {
		ID:              "PM",
		Name:            "Plant Maintenance",
		ProcessAreas:    []string{"Preventive Maintenance", "Corrective Maintenance", "Equipment Management", "Maintenance Orders"},
		BusinessObjects: []string{"EQUI (Equipment Master)", "IFLOT (Functional Location)", "AUFK (Maintenance Order)", "QMEL (Maintenance Notification)"},
		Transactions:    []string{"IW31", "IW21", "IE01", "IL01", "IP10"},
		Keywords:        []string{"maintenance", "equipment", "breakdown", "repair", "functional location", "preventive", "downtime"},
		Related:         []string{"MM", "CO"},
	},
}

// Lookup returns the reference data for a module id. Ids are matched
// case-insensitively.
func Lookup(id string) (Module, bool) {
	m, ok := modules[strings.ToUpper(strings.TrimSpace(id))]
	return m, ok
}

// Modules returns every known module sorted by id.
func Modules() []Module {
	out := make([]Module, 0, len(modules))
	for _, m := range modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Related returns the modules that commonly integrate with id.
func Related(id string) []Module {
	m, ok := Lookup(id)
	if !ok {
		return nil
	}
	out := make([]Module, 0, len(m.Related))
	for _, r := range m.Related {
		if rm, ok := modules[r]; ok {
			out = append(out, rm)
		}
	}
	return out
}

// Tables exposes the package tables through method calls.
type Tables struct{}

func (Tables) Lookup(id string) (Module, bool) { return Lookup(id) }
func (Tables) Related(id string) []Module      { return Related(id) }

// ProcessAreasSection renders the static process-areas section.
func (m Module) ProcessAreasSection() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s) process areas:\n\n", m.Name, m.ID)
	for _, a := range m.ProcessAreas {
		fmt.Fprintf(&sb, "- %s\n", a)
	}
	return sb.String()
}

// ReferenceObjectsSection renders the static reference-objects section.
func (m Module) ReferenceObjectsSection() string {
	var sb strings.Builder
	sb.WriteString("Business objects:\n\n")
	for _, o := range m.BusinessObjects {
		fmt.Fprintf(&sb, "- %s\n", o)
	}
	sb.WriteString("\nTransactions:\n\n")
	for _, t := range m.Transactions {
		fmt.Fprintf(&sb, "- %s\n", t)
	}
	return sb.String()
}
