package reporting

import (
	"context"
	"fmt"

	"LIMS-backend/internal/inventory/deptcode"
	"LIMS-backend/internal/platform/apierr"
)

// LabelRequest selects the assets whose tags are printed, in order.
type LabelRequest struct {
	Kind string   `json:"kind" binding:"required"` // workstation | equipment
	IDs  []uint64 `json:"ids"`
	// Skip leaves the first cells of a partly used sheet empty.
	Skip int `json:"skip"`
}

// MaxLabels bounds one request.
const MaxLabels = 480

// A4 sheet of 3 x 8 stickers, 63.5 x 33.9 mm.
const (
	labelCols  = 3
	labelRows  = 8
	labelW     = 63.5
	labelH     = 33.9
	labelLeft  = 7.2
	labelTop   = 12.9
	labelGapX  = 2.5
	labelInset = 2.5
)

type label struct {
	code, title, serial, location string
}

func (s *Service) labels(ctx context.Context, req LabelRequest) ([]label, error) {
	if len(req.IDs) == 0 {
		return nil, apierr.ErrInvalid("no assets selected for printing")
	}
	if len(req.IDs) > MaxLabels {
		return nil, apierr.Invalidf("at most %d labels per request", MaxLabels)
	}
	out := make([]label, 0, len(req.IDs))
	for _, id := range req.IDs {
		switch req.Kind {
		case deptcode.KindWorkstation:
			w, err := s.ws.Get(ctx, s.db, id)
			if err != nil {
				return nil, err
			}
			if w == nil {
				return nil, apierr.ErrNotFound(fmt.Sprintf("workstation %d not found", id))
			}
			out = append(out, label{w.DepartmentCode, w.Manufacturer + " " + w.Model, w.Serial, w.Location})
		case deptcode.KindEquipment:
			e, err := s.eq.Get(ctx, s.db, id)
			if err != nil {
				return nil, err
			}
			if e == nil {
				return nil, apierr.ErrNotFound(fmt.Sprintf("equipment %d not found", id))
			}
			out = append(out, label{e.DepartmentCode, e.Name + " - " + e.Manufacturer + " " + e.Model, e.SerialNumber, e.Location})
		default:
			return nil, apierr.ErrInvalid("kind must be workstation or equipment")
		}
	}
	return out, nil
}

// Labels renders asset tags onto sticker sheets.
func (s *Service) Labels(ctx context.Context, req LabelRequest) (File, error) {
	if req.Skip < 0 || req.Skip >= labelCols*labelRows {
		return File{}, apierr.Invalidf("skip must be between 0 and %d", labelCols*labelRows-1)
	}
	items, err := s.labels(ctx, req)
	if err != nil {
		return File{}, err
	}

	d := newPDF("P", s.title+" - Asset labels", false)
	d.SetAutoPageBreak(false, 0)
	d.SetMargins(0, 0, 0)
	inner := labelW - 2*labelInset
	for i, l := range items {
		slot := (i + req.Skip) % (labelCols * labelRows)
		if i == 0 || slot == 0 {
			d.AddPage()
		}
		x := labelLeft + float64(slot%labelCols)*(labelW+labelGapX) + labelInset
		y := labelTop + float64(slot/labelCols)*labelH + labelInset

		d.SetXY(x, y)
		d.SetFont("Helvetica", "B", 7)
		d.CellFormat(inner, 4, d.tr(s.title), "", 2, "L", false, 0, "")
		d.SetFont("Helvetica", "B", 8)
		d.MultiCell(inner, 3.6, d.tr(l.code), "", "L", false)
		d.SetX(x)
		d.SetFont("Helvetica", "", 7)
		d.CellFormat(inner, 3.6, d.fit(dash(l.title), inner), "", 2, "L", false, 0, "")
		d.CellFormat(inner, 3.6, d.fit("S/N "+dash(l.serial), inner), "", 2, "L", false, 0, "")
		d.CellFormat(inner, 3.6, d.fit("Loc "+dash(l.location), inner), "", 2, "L", false, 0, "")
	}
	body, err := d.bytes()
	if err != nil {
		return File{}, err
	}
	return File{Name: "labels-" + req.Kind + "-" + stamp(s.now()) + ".pdf", ContentType: "application/pdf", Body: body}, nil
}
