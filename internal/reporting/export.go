package reporting

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"LIMS-backend/internal/allocation"
	"LIMS-backend/internal/inventory/equipment"
	"LIMS-backend/internal/inventory/fields"
	"LIMS-backend/internal/inventory/lifecycle"
	"LIMS-backend/internal/inventory/workstations"
	"LIMS-backend/internal/owner"
	"LIMS-backend/internal/platform/apierr"
)

// Owners resolves what one owner holds.
type Owners interface {
	OwnerResources(ctx context.Context, o owner.Owner) (allocation.Resources, error)
}

func str(p *string) string {
	if p == nil {
		return missing
	}
	return dash(*p)
}

func num(p *int) string {
	if p == nil {
		return missing
	}
	return strconv.Itoa(*p)
}

func money(p *float64) string {
	if p == nil {
		return missing
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}

func ownerText(o *owner.Owner) string {
	if o == nil || o.IsZero() {
		return missing
	}
	return o.String()
}

func stamp(now time.Time) string { return now.Format("20060102-150405") }

func checkStatus(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	st, err := lifecycle.ParseStatus(s)
	if err != nil {
		return "", apierr.ErrInvalid(err.Error())
	}
	return string(st), nil
}

// ===== equipment =====

var equipmentHeader = []string{
	"Department Code", "Name", "Category", "Manufacturer", "Model", "Serial Number",
	"MAC Address", "Location", "Status", "Owner", "Assigned Date", "Invoice Number",
	"Cost Per Unit", "Purchase Date", "PO Date", "Warranty Expiry", "Indenter", "Remarks",
}

func equipmentRow(e equipment.EquipmentResponse) []string {
	assigned := missing
	if e.AssignedDate != nil {
		assigned = e.AssignedDate.UTC().Format(fields.DateLayout)
	}
	return []string{
		e.DepartmentCode,
		dash(e.Name),
		dash(e.Category),
		dash(e.Manufacturer),
		dash(e.Model),
		dash(e.SerialNumber),
		str(e.MACAddress),
		dash(e.Location),
		e.Status,
		ownerText(e.Owner),
		assigned,
		str(e.InvoiceNumber),
		money(e.CostPerUnit),
		str(e.PurchaseDate),
		str(e.PODate),
		str(e.WarrantyExpiry),
		dash(e.Indenter),
		str(e.Remarks),
	}
}

// equipmentPDFColumns is the subset that fits a landscape page.
var equipmentPDFColumns = []int{0, 1, 2, 3, 4, 5, 7, 8, 9}

func project(t table, cols []int, widths []float64) table {
	out := table{title: t.title, widths: widths}
	for _, i := range cols {
		out.header = append(out.header, t.header[i])
	}
	for _, r := range t.rows {
		row := make([]string, 0, len(cols))
		for _, i := range cols {
			row = append(row, r[i])
		}
		out.rows = append(out.rows, row)
	}
	return out
}

func (s *Service) equipmentTable(ctx context.Context, f equipment.Filter) (table, error) {
	st, err := checkStatus(f.Status)
	if err != nil {
		return table{}, err
	}
	f.Status = st
	items, err := s.eq.All(ctx, f)
	if err != nil {
		return table{}, err
	}
	t := table{title: s.title + " - Equipment", header: equipmentHeader}
	for i := range items {
		t.rows = append(t.rows, equipmentRow(equipment.ToResponse(&items[i])))
	}
	return t, nil
}

// ExportEquipment renders the equipment matching f in the requested format.
func (s *Service) ExportEquipment(ctx context.Context, f equipment.Filter, format Format) (File, error) {
	t, err := s.equipmentTable(ctx, f)
	if err != nil {
		return File{}, err
	}
	if format == FormatPDF {
		t = project(t, equipmentPDFColumns, []float64{3.2, 2, 1.6, 1.5, 1.6, 1.8, 1.4, 1.1, 1.8})
	}
	return render(t, format, "equipment-"+stamp(s.now()))
}

// ===== workstations =====

var workstationHeader = []string{
	"Department Code", "Manufacturer", "Model", "Serial", "MAC Address", "OS", "Processor",
	"Cores", "RAM (GB)", "Storage", "GPU", "VRAM (GB)", "PO Date", "Indenter",
	"Source of Fund", "Warranty Start", "Warranty Expiry", "Location", "Status",
	"Issued To", "Issue Date", "Required Till", "PO Invoice",
}

func workstationRow(w workstations.WorkstationResponse) []string {
	holder, issued, till := missing, missing, missing
	if a := w.ActiveAssignment; a != nil {
		holder, issued, till = a.Owner.String(), a.IssueDate, str(a.SystemRequiredTill)
	}
	invoice := "No"
	if w.HasPOInvoice {
		invoice = "Yes"
	}
	return []string{
		w.DepartmentCode,
		dash(w.Manufacturer),
		dash(w.Model),
		dash(w.Serial),
		str(w.MACAddress),
		str(w.OS),
		str(w.Processor),
		num(w.Cores),
		num(w.RAMGB),
		str(w.Storage),
		str(w.GPU),
		num(w.VRAMGB),
		str(w.PODate),
		dash(w.Indenter),
		str(w.SourceOfFund),
		str(w.WarrantyStart),
		str(w.WarrantyExpiry),
		dash(w.Location),
		w.Status,
		holder,
		issued,
		till,
		invoice,
	}
}

var workstationPDFColumns = []int{0, 1, 2, 3, 6, 8, 17, 18, 19}

func (s *Service) workstationTable(ctx context.Context, f workstations.Filter) (table, error) {
	st, err := checkStatus(f.Status)
	if err != nil {
		return table{}, err
	}
	f.Status = st
	items, err := s.ws.All(ctx, f)
	if err != nil {
		return table{}, err
	}
	t := table{title: s.title + " - Workstations", header: workstationHeader}
	for i := range items {
		res := workstations.ToResponse(&items[i])
		a, err := s.ws.ActiveAssignment(ctx, s.db, items[i].ID)
		if err != nil {
			return table{}, err
		}
		if a != nil {
			ar := workstations.ToAssignmentResponse(a)
			res.ActiveAssignment = &ar
		}
		t.rows = append(t.rows, workstationRow(res))
	}
	return t, nil
}

// ExportWorkstations supports CSV and PDF.
func (s *Service) ExportWorkstations(ctx context.Context, f workstations.Filter, format Format) (File, error) {
	if format == FormatExcel {
		return File{}, apierr.ErrInvalid("workstation export supports csv or pdf")
	}
	t, err := s.workstationTable(ctx, f)
	if err != nil {
		return File{}, err
	}
	if format == FormatPDF {
		t = project(t, workstationPDFColumns, []float64{3.2, 1.4, 1.6, 1.6, 2, 0.8, 1.4, 1.1, 1.8})
	}
	return render(t, format, "workstations-"+stamp(s.now()))
}

// ===== owner sheet =====

// OwnerSheet renders the resources held by one owner as a PDF.
func (s *Service) OwnerSheet(ctx context.Context, o owner.Owner) (File, error) {
	if s.owners == nil {
		return File{}, fmt.Errorf("reporting: owner lookup not configured")
	}
	res, err := s.owners.OwnerResources(ctx, o)
	if err != nil {
		return File{}, err
	}
	body, err := s.ownerPDF(res)
	if err != nil {
		return File{}, err
	}
	return File{
		Name:        fmt.Sprintf("resources-%s-%s.pdf", o.Kind(), o.Key()),
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

func (s *Service) ownerPDF(res allocation.Resources) ([]byte, error) {
	d := newPDF("P", s.title+" - Resources", true)
	d.AddPage()
	d.heading(s.title + " - Resources held")

	cubicle := missing
	if res.Cubicle != nil {
		cubicle = res.Cubicle.Room + " / seat " + res.Cubicle.Seat
	}
	info := [][2]string{
		{"Name", dash(res.Name)},
		{"Kind", string(res.Owner.Kind())},
		{"ID", res.Owner.Key()},
		{"Email", dash(res.Email)},
		{"Cubicle", cubicle},
		{"Office", dash(res.Office)},
		{"Generated", s.now().Format(time.RFC1123)},
	}
	for _, kv := range info {
		d.SetFont("Helvetica", "B", 10)
		d.CellFormat(30, rowH, d.tr(kv[0]), "", 0, "L", false, 0, "")
		d.SetFont("Helvetica", "", 10)
		d.CellFormat(0, rowH, d.tr(kv[1]), "", 1, "L", false, 0, "")
	}

	ws := table{header: []string{"Department Code", "Model", "Serial", "Location", "Issued", "Required Till"},
		widths: []float64{3.4, 2, 1.8, 1.3, 1.2, 1.2}}
	for _, h := range res.Workstations {
		ws.rows = append(ws.rows, []string{
			h.DepartmentCode,
			dash(h.Manufacturer + " " + h.Model),
			dash(h.Serial),
			dash(h.Location),
			h.Assignment.IssueDate,
			str(h.Assignment.SystemRequiredTill),
		})
	}
	eq := table{header: []string{"Department Code", "Name", "Model", "Serial", "Location", "Assigned"},
		widths: []float64{3.4, 1.6, 2, 1.8, 1.3, 1.2}}
	for _, e := range res.Equipment {
		assigned := missing
		if e.AssignedDate != nil {
			assigned = e.AssignedDate.UTC().Format(fields.DateLayout)
		}
		eq.rows = append(eq.rows, []string{
			e.DepartmentCode,
			dash(e.Name),
			dash(e.Manufacturer + " " + e.Model),
			dash(e.SerialNumber),
			dash(e.Location),
			assigned,
		})
	}

	d.Ln(4)
	d.SetFont("Helvetica", "B", 12)
	d.CellFormat(0, 8, fmt.Sprintf("Workstations (%d)", len(ws.rows)), "", 1, "L", false, 0, "")
	d.grid(ws)
	d.Ln(4)
	d.SetFont("Helvetica", "B", 12)
	d.CellFormat(0, 8, fmt.Sprintf("Equipment (%d)", len(eq.rows)), "", 1, "L", false, 0, "")
	d.grid(eq)
	return d.bytes()
}
