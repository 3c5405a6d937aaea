package equipment

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"LIMS-backend/internal/inventory/audit"
	"LIMS-backend/internal/inventory/categories"
	"LIMS-backend/internal/inventory/deptcode"
	"LIMS-backend/internal/inventory/fields"
	"LIMS-backend/internal/inventory/lifecycle"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/logging"
	"LIMS-backend/internal/platform/paging"
)

const assetKind = deptcode.KindEquipment

// MaxBatch bounds one batch entry.
const MaxBatch = 500

type Service struct {
	db         *sql.DB
	store      *Store
	categories *categories.Store
	codes      *deptcode.Generator
	now        func() time.Time
}

func NewService(conn *sql.DB, codes *deptcode.Generator) *Service {
	return &Service{
		db:         conn,
		store:      NewStore(conn),
		categories: categories.NewStore(conn),
		codes:      codes,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Store() *Store { return s.store }

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func ToResponse(e *Equipment) EquipmentResponse {
	res := EquipmentResponse{
		ID:             e.ID,
		Name:           e.Name,
		Category:       e.Category,
		Manufacturer:   e.Manufacturer,
		Model:          e.Model,
		SerialNumber:   e.SerialNumber,
		MACAddress:     fields.StrPtr(e.MACAddress),
		InvoiceNumber:  fields.StrPtr(e.InvoiceNumber),
		CostPerUnit:    floatPtr(e.CostPerUnit),
		WarrantyExpiry: fields.DatePtr(e.WarrantyExpiry),
		Location:       e.Location,
		PurchaseDate:   fields.DatePtr(e.PurchaseDate),
		PODate:         fields.DatePtr(e.PODate),
		Indenter:       e.Indenter,
		DepartmentCode: e.DepartmentCode,
		Status:         string(e.Status),
		AssignedBy:     fields.StrPtr(e.AssignedBy),
		AssignedDate:   fields.TimePtr(e.AssignedDate),
		Remarks:        fields.StrPtr(e.Remarks),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	if !e.Owner.IsZero() {
		o := e.Owner
		res.Owner = &o
	}
	return res
}

func ToHistoryResponse(h *History) HistoryResponse {
	return HistoryResponse{
		ID:             h.ULID,
		EquipmentID:    h.EquipmentID,
		Event:          h.Event,
		Owner:          h.Owner,
		AssignedBy:     fields.StrPtr(h.AssignedBy),
		AssignedDate:   fields.TimePtr(h.AssignedDate),
		UnassignedDate: fields.TimePtr(h.UnassignedDate),
		StatusSnapshot: h.StatusSnapshot,
		CreatedAt:      h.CreatedAt,
	}
}

func validate(e *Equipment) error {
	var err error
	if e.Category, err = fields.Required("category", e.Category); err != nil {
		return err
	}
	if strings.TrimSpace(e.Name) == "" {
		e.Name = e.Category
	}
	e.Name = strings.TrimSpace(e.Name)
	if e.Manufacturer, err = fields.Required("manufacturer", e.Manufacturer); err != nil {
		return err
	}
	if e.Model, err = fields.Required("model", e.Model); err != nil {
		return err
	}
	if e.SerialNumber, err = fields.Required("serial_number", e.SerialNumber); err != nil {
		return err
	}
	if e.Indenter, err = fields.Required("indenter", e.Indenter); err != nil {
		return err
	}
	if e.Location, err = fields.Required("location", e.Location); err != nil {
		return err
	}
	if e.CostPerUnit.Valid && e.CostPerUnit.Float64 < 0 {
		return apierr.ErrInvalid("cost_per_unit must not be negative")
	}
	if err := fields.NotAfter("purchase_date", e.PurchaseDate, "warranty_expiry", e.WarrantyExpiry); err != nil {
		return err
	}
	return fields.NotAfter("po_date", e.PODate, "warranty_expiry", e.WarrantyExpiry)
}

type dates struct {
	warranty, purchase, po sql.NullTime
}

func parseDates(warranty, purchase, po *string) (dates, error) {
	var d dates
	var err error
	if d.warranty, err = fields.Date("warranty_expiry", warranty); err != nil {
		return d, err
	}
	if d.purchase, err = fields.Date("purchase_date", purchase); err != nil {
		return d, err
	}
	if d.po, err = fields.Date("po_date", po); err != nil {
		return d, err
	}
	return d, nil
}

func optFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

var uniqueKeys = db.UniqueKeys{
	"serial_number":   {"ux_eq_serial"},
	"mac_address":     {"ux_eq_mac"},
	"department_code": {"ux_eq_code"},
}

func duplicate(err error) error {
	switch db.DuplicateColumn(err, uniqueKeys) {
	case "serial_number":
		return apierr.ErrConflict("serial number already exists")
	case "mac_address":
		return apierr.ErrConflict("mac_address already exists")
	case "department_code":
		return apierr.ErrConflict("department code already exists")
	}
	return apierr.ErrConflict("equipment already exists")
}

// serials resolves the batch: quantity defaults to the number of serials and
// must match it; blanks and repeats are rejected.
func serials(req CreateEquipmentRequest) ([]string, error) {
	list := req.SerialNumbers
	if len(list) == 0 && strings.TrimSpace(req.SerialNumber) != "" {
		list = []string{req.SerialNumber}
	}
	if len(list) == 0 {
		return nil, apierr.ErrInvalid("serial_numbers is required")
	}
	if req.Quantity != 0 && req.Quantity != len(list) {
		return nil, apierr.Invalidf("quantity is %d but %d serial numbers were given", req.Quantity, len(list))
	}
	if len(list) > MaxBatch {
		return nil, apierr.Invalidf("at most %d items per batch", MaxBatch)
	}
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for i, sn := range list {
		sn = strings.TrimSpace(sn)
		if sn == "" {
			return nil, apierr.Invalidf("serial_numbers[%d] is empty", i)
		}
		if seen[sn] {
			return nil, apierr.Invalidf("serial number %s is repeated in the batch", sn)
		}
		seen[sn] = true
		out = append(out, sn)
	}
	return out, nil
}

func (s *Service) checkUnique(ctx context.Context, tx db.DBTX, e *Equipment) error {
	taken, err := s.store.Taken(ctx, tx, "serial_number", e.SerialNumber, e.ID)
	if err != nil {
		return err
	}
	if taken {
		return apierr.Conflictf("serial number %s already exists", e.SerialNumber)
	}
	if e.MACAddress.Valid {
		taken, err := s.store.Taken(ctx, tx, "mac_address", e.MACAddress.String, e.ID)
		if err != nil {
			return err
		}
		if taken {
			return apierr.Conflictf("mac_address %s already exists", e.MACAddress.String)
		}
	}
	return nil
}

// Create registers a batch of identical items atomically, each with its own
// department code.
func (s *Service) Create(ctx context.Context, req CreateEquipmentRequest) (BatchResponse, error) {
	sns, err := serials(req)
	if err != nil {
		return BatchResponse{}, err
	}
	mac, err := fields.MAC(req.MACAddress)
	if err != nil {
		return BatchResponse{}, err
	}
	if mac.Valid && len(sns) > 1 {
		return BatchResponse{}, apierr.ErrInvalid("mac_address can only be given for a single item")
	}
	d, err := parseDates(req.WarrantyExpiry, req.PurchaseDate, req.PODate)
	if err != nil {
		return BatchResponse{}, err
	}
	now := s.now()
	tmpl := Equipment{
		Category: req.Category, Manufacturer: req.Manufacturer, Model: req.Model,
		SerialNumber: sns[0], MACAddress: mac,
		InvoiceNumber: fields.Optional(req.InvoiceNumber), CostPerUnit: optFloat(req.CostPerUnit),
		WarrantyExpiry: d.warranty, Location: req.Location, PurchaseDate: d.purchase, PODate: d.po,
		Indenter: req.Indenter, Status: lifecycle.Available, Remarks: fields.Optional(req.Remarks),
		CreatedAt: now, UpdatedAt: now,
	}
	if req.Name != nil {
		tmpl.Name = *req.Name
	}
	if err := validate(&tmpl); err != nil {
		return BatchResponse{}, err
	}

	items := make([]Equipment, len(sns))
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if err := s.categories.CheckUsable(ctx, tx, tmpl.Category); err != nil {
			return err
		}
		for i, sn := range sns {
			items[i] = tmpl
			items[i].SerialNumber = sn
			if err := s.checkUnique(ctx, tx, &items[i]); err != nil {
				return err
			}
		}
		codes, err := s.codes.Reserve(ctx, tx, assetKind, deptcode.Input{
			PODate: tmpl.PODate.Time, ModelOrCategory: tmpl.Category, Manufacturer: tmpl.Manufacturer, Indenter: tmpl.Indenter,
		}, len(items), now)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].DepartmentCode = codes[i]
			id, err := s.store.Insert(ctx, tx, &items[i])
			if err != nil {
				if db.IsDuplicateKey(err) {
					return duplicate(err)
				}
				return err
			}
			items[i].ID = id
			if err := deptcode.Bind(ctx, tx, codes[i], id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return BatchResponse{}, err
	}

	out := BatchResponse{Items: make([]EquipmentResponse, 0, len(items))}
	for i := range items {
		out.Items = append(out.Items, ToResponse(&items[i]))
	}
	logging.Log.WithFields(logrus.Fields{"category": tmpl.Category, "count": len(items)}).Info("equipment created")
	return out, nil
}

func (s *Service) get(ctx context.Context, q db.DBTX, id uint64) (*Equipment, error) {
	e, err := s.store.Get(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apierr.ErrNotFound("equipment not found")
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, id uint64) (DetailResponse, error) {
	var out DetailResponse
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, q db.DBTX) error {
		e, err := s.get(ctx, q, id)
		if err != nil {
			return err
		}
		out.EquipmentResponse = ToResponse(e)
		hs, err := s.store.History(ctx, q, id)
		if err != nil {
			return err
		}
		out.History = make([]HistoryResponse, 0, len(hs))
		for i := range hs {
			out.History = append(out.History, ToHistoryResponse(&hs[i]))
		}
		out.Audit, err = audit.List(ctx, q, assetKind, id)
		return err
	})
	return out, err
}

func (s *Service) List(ctx context.Context, f Filter, p paging.Page) ([]EquipmentResponse, int64, error) {
	if f.Status != "" {
		st, err := lifecycle.ParseStatus(f.Status)
		if err != nil {
			return nil, 0, apierr.ErrInvalid(err.Error())
		}
		f.Status = string(st)
	}
	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]EquipmentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, ToResponse(&rows[i]))
	}
	return out, total, nil
}

// History returns the assignment and location ledger of one item.
func (s *Service) History(ctx context.Context, id uint64) ([]HistoryResponse, error) {
	if _, err := s.get(ctx, s.db, id); err != nil {
		return nil, err
	}
	hs, err := s.store.History(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryResponse, 0, len(hs))
	for i := range hs {
		out = append(out, ToHistoryResponse(&hs[i]))
	}
	return out, nil
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setOpt(dst *sql.NullString, v *string) {
	if v != nil {
		*dst = fields.Optional(v)
	}
}

func (s *Service) Update(ctx context.Context, id uint64, req UpdateEquipmentRequest) (EquipmentResponse, error) {
	mac, err := fields.MAC(req.MACAddress)
	if err != nil {
		return EquipmentResponse{}, err
	}
	d, err := parseDates(req.WarrantyExpiry, req.PurchaseDate, req.PODate)
	if err != nil {
		return EquipmentResponse{}, err
	}
	var out *Equipment
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		e, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		prevCategory := e.Category
		setStr(&e.Name, req.Name)
		setStr(&e.Category, req.Category)
		setStr(&e.Manufacturer, req.Manufacturer)
		setStr(&e.Model, req.Model)
		setStr(&e.SerialNumber, req.SerialNumber)
		if req.MACAddress != nil {
			e.MACAddress = mac
		}
		setOpt(&e.InvoiceNumber, req.InvoiceNumber)
		if req.CostPerUnit != nil {
			e.CostPerUnit = optFloat(req.CostPerUnit)
		}
		if req.WarrantyExpiry != nil {
			e.WarrantyExpiry = d.warranty
		}
		setStr(&e.Location, req.Location)
		if req.PurchaseDate != nil {
			e.PurchaseDate = d.purchase
		}
		if req.PODate != nil {
			e.PODate = d.po
		}
		setStr(&e.Indenter, req.Indenter)
		setOpt(&e.Remarks, req.Remarks)
		if err := validate(e); err != nil {
			return err
		}
		if e.Category != prevCategory {
			if err := s.categories.CheckUsable(ctx, tx, e.Category); err != nil {
				return err
			}
		}
		if err := s.checkUnique(ctx, tx, e); err != nil {
			return err
		}
		e.UpdatedAt = s.now()
		if err := s.store.Update(ctx, tx, e); err != nil {
			if db.IsDuplicateKey(err) {
				return duplicate(err)
			}
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return EquipmentResponse{}, err
	}
	return ToResponse(out), nil
}

// ChangeStatus applies retire, scrap or unretire. Assigned items must be returned first.
func (s *Service) ChangeStatus(ctx context.Context, id uint64, action lifecycle.Action, reason, actor string) (EquipmentResponse, error) {
	reason = strings.TrimSpace(reason)
	var out *Equipment
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		e, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := lifecycle.Apply(e.Status, action, reason)
		if err != nil {
			return lifecycle.ToAPI(err)
		}
		now := s.now()
		ok, err := s.store.CASStatus(ctx, tx, id, e.Status, next, now)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.ErrConflict("equipment changed concurrently or is still assigned")
		}
		if err := audit.Record(ctx, tx, audit.Entry{
			AssetKind: assetKind, AssetID: id, Event: audit.EventStatusChange,
			FromStatus: string(e.Status), ToStatus: string(next), Reason: reason, Actor: actor, CreatedAt: now,
		}); err != nil {
			return err
		}
		e.Status, e.UpdatedAt = next, now
		out = e
		return nil
	})
	if err != nil {
		return EquipmentResponse{}, err
	}
	logging.Log.WithFields(logrus.Fields{"equipment_id": id, "action": action}).Info("equipment status changed")
	return ToResponse(out), nil
}

// Delete removes an item with no history that is neither Issued nor Scrapped.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		e, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		n, err := s.store.CountHistory(ctx, tx, id)
		if err != nil {
			return err
		}
		if !lifecycle.CanDelete(e.Status, n) {
			if n > 0 {
				return apierr.Conflictf("equipment has %d history record(s); retire it instead", n)
			}
			return apierr.Conflictf("%s equipment cannot be deleted", strings.ToLower(string(e.Status)))
		}
		if _, err := s.store.Delete(ctx, tx, id); err != nil {
			return err
		}
		return deptcode.Release(ctx, tx, e.DepartmentCode)
	})
}
