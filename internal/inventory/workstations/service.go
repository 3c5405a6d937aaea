package workstations

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"LIMS-backend/internal/inventory/audit"
	"LIMS-backend/internal/inventory/deptcode"
	"LIMS-backend/internal/inventory/fields"
	"LIMS-backend/internal/inventory/lifecycle"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/blob"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/logging"
	"LIMS-backend/internal/platform/paging"
)

const assetKind = deptcode.KindWorkstation

// MaxInvoiceBytes caps a PO invoice upload.
const MaxInvoiceBytes = 10 << 20

var invoiceTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
}

type Service struct {
	db    *sql.DB
	store *Store
	codes *deptcode.Generator
	blobs blob.Store
	now   func() time.Time
}

// NewService wires the inventory. blobs may be nil, which disables invoice uploads.
func NewService(conn *sql.DB, codes *deptcode.Generator, blobs blob.Store) *Service {
	return &Service{db: conn, store: NewStore(conn), codes: codes, blobs: blobs, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Store() *Store { return s.store }

func logw(id uint64) *logrus.Entry {
	return logging.Log.WithField("workstation_id", id)
}

// ===== mapping =====

func ToAssignmentResponse(a *Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:                 a.ULID,
		AssetID:            a.AssetID,
		Owner:              a.Owner,
		IssueDate:          a.IssueDate.Format(fields.DateLayout),
		SystemRequiredTill: fields.DatePtr(a.SystemRequiredTill),
		EndDate:            fields.DatePtr(a.EndDate),
		IsActive:           a.IsActive,
		IssuedBy:           fields.StrPtr(a.IssuedBy),
		ReturnedBy:         fields.StrPtr(a.ReturnedBy),
		CreatedAt:          a.CreatedAt,
		ReturnedAt:         fields.TimePtr(a.ReturnedAt),
	}
}

func ToResponse(w *Workstation) WorkstationResponse {
	return WorkstationResponse{
		ID:             w.ID,
		Manufacturer:   w.Manufacturer,
		Model:          w.Model,
		Serial:         w.Serial,
		MACAddress:     fields.StrPtr(w.MACAddress),
		OS:             fields.StrPtr(w.OS),
		Processor:      fields.StrPtr(w.Processor),
		Cores:          fields.IntPtr(w.Cores),
		RAMGB:          fields.IntPtr(w.RAMGB),
		Storage:        fields.StrPtr(w.Storage),
		GPU:            fields.StrPtr(w.GPU),
		VRAMGB:         fields.IntPtr(w.VRAMGB),
		PODate:         fields.DatePtr(w.PODate),
		Indenter:       w.Indenter,
		SourceOfFund:   fields.StrPtr(w.SourceOfFund),
		WarrantyStart:  fields.DatePtr(w.WarrantyStart),
		WarrantyExpiry: fields.DatePtr(w.WarrantyExpiry),
		Location:       w.Location,
		DepartmentCode: w.DepartmentCode,
		Status:         string(w.Status),
		HasPOInvoice:   w.POInvoiceKey.Valid,
		Remarks:        fields.StrPtr(w.Remarks),
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

// ===== validation =====

// validate checks a fully populated row before any write.
func validate(w *Workstation) error {
	var err error
	if w.Manufacturer, err = fields.Required("manufacturer", w.Manufacturer); err != nil {
		return err
	}
	if w.Model, err = fields.Required("model", w.Model); err != nil {
		return err
	}
	if w.Serial, err = fields.Required("serial", w.Serial); err != nil {
		return err
	}
	if w.Indenter, err = fields.Required("indenter", w.Indenter); err != nil {
		return err
	}
	if w.Location, err = fields.Required("location", w.Location); err != nil {
		return err
	}
	if err := fields.NotAfter("warranty_start", w.WarrantyStart, "warranty_expiry", w.WarrantyExpiry); err != nil {
		return err
	}
	return fields.NotAfter("po_date", w.PODate, "warranty_expiry", w.WarrantyExpiry)
}

type parsed struct {
	mac                 sql.NullString
	cores, ram, vram    sql.NullInt64
	po, wStart, wExpiry sql.NullTime
}

func parseOptional(mac *string, cores, ram, vram *int, po, wStart, wExpiry *string) (parsed, error) {
	var p parsed
	var err error
	if p.mac, err = fields.MAC(mac); err != nil {
		return p, err
	}
	if p.cores, err = fields.OptionalInt("cores", cores); err != nil {
		return p, err
	}
	if p.ram, err = fields.OptionalInt("ram_gb", ram); err != nil {
		return p, err
	}
	if p.vram, err = fields.OptionalInt("vram_gb", vram); err != nil {
		return p, err
	}
	if p.po, err = fields.Date("po_date", po); err != nil {
		return p, err
	}
	if p.wStart, err = fields.Date("warranty_start", wStart); err != nil {
		return p, err
	}
	if p.wExpiry, err = fields.Date("warranty_expiry", wExpiry); err != nil {
		return p, err
	}
	return p, nil
}

var uniqueKeys = db.UniqueKeys{
	"serial":          {"ux_ws_serial"},
	"mac_address":     {"ux_ws_mac"},
	"department_code": {"ux_ws_code"},
}

func duplicate(err error) error {
	switch db.DuplicateColumn(err, uniqueKeys) {
	case "serial":
		return apierr.ErrConflict("serial already exists")
	case "mac_address":
		return apierr.ErrConflict("mac_address already exists")
	case "department_code":
		return apierr.ErrConflict("department code already exists")
	}
	return apierr.ErrConflict("workstation already exists")
}

// checkUnique rejects a serial or MAC already used by another workstation.
func (s *Service) checkUnique(ctx context.Context, tx db.DBTX, w *Workstation) error {
	taken, err := s.store.Taken(ctx, tx, "serial", w.Serial, w.ID)
	if err != nil {
		return err
	}
	if taken {
		return apierr.Conflictf("serial %s already exists", w.Serial)
	}
	if w.MACAddress.Valid {
		taken, err := s.store.Taken(ctx, tx, "mac_address", w.MACAddress.String, w.ID)
		if err != nil {
			return err
		}
		if taken {
			return apierr.Conflictf("mac_address %s already exists", w.MACAddress.String)
		}
	}
	return nil
}

// ===== create / read =====

func (s *Service) Create(ctx context.Context, req CreateWorkstationRequest) (WorkstationResponse, error) {
	p, err := parseOptional(req.MACAddress, req.Cores, req.RAMGB, req.VRAMGB, req.PODate, req.WarrantyStart, req.WarrantyExpiry)
	if err != nil {
		return WorkstationResponse{}, err
	}
	now := s.now()
	w := &Workstation{
		Manufacturer: req.Manufacturer, Model: req.Model, Serial: req.Serial, MACAddress: p.mac,
		OS: fields.Optional(req.OS), Processor: fields.Optional(req.Processor),
		Cores: p.cores, RAMGB: p.ram, Storage: fields.Optional(req.Storage), GPU: fields.Optional(req.GPU), VRAMGB: p.vram,
		PODate: p.po, Indenter: req.Indenter, SourceOfFund: fields.Optional(req.SourceOfFund),
		WarrantyStart: p.wStart, WarrantyExpiry: p.wExpiry, Location: req.Location,
		Status: lifecycle.Available, Remarks: fields.Optional(req.Remarks),
		CreatedAt: now, UpdatedAt: now,
	}
	if err := validate(w); err != nil {
		return WorkstationResponse{}, err
	}

	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if err := s.checkUnique(ctx, tx, w); err != nil {
			return err
		}
		codes, err := s.codes.Reserve(ctx, tx, assetKind, deptcode.Input{
			PODate: w.PODate.Time, ModelOrCategory: w.Model, Manufacturer: w.Manufacturer, Indenter: w.Indenter,
		}, 1, now)
		if err != nil {
			return err
		}
		w.DepartmentCode = codes[0]
		id, err := s.store.Insert(ctx, tx, w)
		if err != nil {
			if db.IsDuplicateKey(err) {
				return duplicate(err)
			}
			return err
		}
		w.ID = id
		return deptcode.Bind(ctx, tx, w.DepartmentCode, id)
	})
	if err != nil {
		return WorkstationResponse{}, err
	}
	logw(w.ID).WithField("code", w.DepartmentCode).Info("workstation created")
	return ToResponse(w), nil
}

func (s *Service) get(ctx context.Context, q db.DBTX, id uint64) (*Workstation, error) {
	w, err := s.store.Get(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, apierr.ErrNotFound("workstation not found")
	}
	return w, nil
}

// Get returns the asset with its active assignment, assignment history and audit trail.
func (s *Service) Get(ctx context.Context, id uint64) (DetailResponse, error) {
	var out DetailResponse
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, q db.DBTX) error {
		w, err := s.get(ctx, q, id)
		if err != nil {
			return err
		}
		out.WorkstationResponse = ToResponse(w)
		as, err := s.store.Assignments(ctx, q, id)
		if err != nil {
			return err
		}
		out.Assignments = make([]AssignmentResponse, 0, len(as))
		for i := range as {
			r := ToAssignmentResponse(&as[i])
			if as[i].IsActive {
				out.ActiveAssignment = &r
			}
			out.Assignments = append(out.Assignments, r)
		}
		out.Audit, err = audit.List(ctx, q, assetKind, id)
		return err
	})
	return out, err
}

func (s *Service) List(ctx context.Context, f Filter, p paging.Page) ([]WorkstationResponse, int64, error) {
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
	out := make([]WorkstationResponse, 0, len(rows))
	for i := range rows {
		out = append(out, ToResponse(&rows[i]))
	}
	return out, total, nil
}

// ===== update =====

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

func setInt(dst *sql.NullInt64, v *int, parsed sql.NullInt64) {
	if v != nil {
		*dst = parsed
	}
}

func setDate(dst *sql.NullTime, v *string, parsed sql.NullTime) {
	if v != nil {
		*dst = parsed
	}
}

// Update edits an asset in place. A location change is recorded in the audit log.
func (s *Service) Update(ctx context.Context, id uint64, req UpdateWorkstationRequest, actor string) (WorkstationResponse, error) {
	p, err := parseOptional(req.MACAddress, req.Cores, req.RAMGB, req.VRAMGB, req.PODate, req.WarrantyStart, req.WarrantyExpiry)
	if err != nil {
		return WorkstationResponse{}, err
	}
	var out *Workstation
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		w, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		oldLocation := w.Location

		setStr(&w.Manufacturer, req.Manufacturer)
		setStr(&w.Model, req.Model)
		setStr(&w.Serial, req.Serial)
		if req.MACAddress != nil {
			w.MACAddress = p.mac
		}
		setOpt(&w.OS, req.OS)
		setOpt(&w.Processor, req.Processor)
		setInt(&w.Cores, req.Cores, p.cores)
		setInt(&w.RAMGB, req.RAMGB, p.ram)
		setOpt(&w.Storage, req.Storage)
		setOpt(&w.GPU, req.GPU)
		setInt(&w.VRAMGB, req.VRAMGB, p.vram)
		setDate(&w.PODate, req.PODate, p.po)
		setStr(&w.Indenter, req.Indenter)
		setOpt(&w.SourceOfFund, req.SourceOfFund)
		setDate(&w.WarrantyStart, req.WarrantyStart, p.wStart)
		setDate(&w.WarrantyExpiry, req.WarrantyExpiry, p.wExpiry)
		setStr(&w.Location, req.Location)
		setOpt(&w.Remarks, req.Remarks)
		if err := validate(w); err != nil {
			return err
		}
		if err := s.checkUnique(ctx, tx, w); err != nil {
			return err
		}
		w.UpdatedAt = s.now()
		if err := s.store.Update(ctx, tx, w); err != nil {
			if db.IsDuplicateKey(err) {
				return duplicate(err)
			}
			return err
		}
		if w.Location != oldLocation {
			if err := audit.Record(ctx, tx, audit.Entry{
				AssetKind: assetKind, AssetID: id, Event: audit.EventLocationChange,
				Reason: "Location changed to " + w.Location, Actor: actor, CreatedAt: w.UpdatedAt,
			}); err != nil {
				return err
			}
		}
		out = w
		return nil
	})
	if err != nil {
		return WorkstationResponse{}, err
	}
	return ToResponse(out), nil
}

// ===== lifecycle =====

// ChangeStatus applies retire, scrap or unretire and writes the audit row.
func (s *Service) ChangeStatus(ctx context.Context, id uint64, action lifecycle.Action, reason, actor string) (WorkstationResponse, error) {
	reason = strings.TrimSpace(reason)
	var out *Workstation
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		w, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := lifecycle.Apply(w.Status, action, reason)
		if err != nil {
			return lifecycle.ToAPI(err)
		}
		now := s.now()
		ok, err := s.store.CASStatus(ctx, tx, id, w.Status, next, now)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.ErrConflict("workstation status changed concurrently")
		}
		if err := audit.Record(ctx, tx, audit.Entry{
			AssetKind: assetKind, AssetID: id, Event: audit.EventStatusChange,
			FromStatus: string(w.Status), ToStatus: string(next), Reason: reason, Actor: actor, CreatedAt: now,
		}); err != nil {
			return err
		}
		w.Status, w.UpdatedAt = next, now
		out = w
		return nil
	})
	if err != nil {
		return WorkstationResponse{}, err
	}
	logw(id).WithFields(logrus.Fields{"action": action, "status": out.Status}).Info("workstation status changed")
	return ToResponse(out), nil
}

// Delete removes an asset that was never assigned and is neither Issued nor Scrapped.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	var invoice sql.NullString
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		w, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		n, err := s.store.CountAssignments(ctx, tx, id)
		if err != nil {
			return err
		}
		if !lifecycle.CanDelete(w.Status, n) {
			if n > 0 {
				return apierr.Conflictf("workstation has %d assignment record(s); retire it instead", n)
			}
			return apierr.Conflictf("a %s workstation cannot be deleted", w.Status)
		}
		if _, err := s.store.Delete(ctx, tx, id); err != nil {
			return err
		}
		invoice = w.POInvoiceKey
		return deptcode.Release(ctx, tx, w.DepartmentCode)
	})
	if err != nil {
		return err
	}
	if invoice.Valid && s.blobs != nil {
		if err := s.blobs.Delete(ctx, invoice.String); err != nil && !errors.Is(err, blob.ErrNotFound) {
			logw(id).WithError(err).Warn("workstation deleted but invoice blob was not removed")
		}
	}
	logw(id).Info("workstation deleted")
	return nil
}

// ===== PO invoice =====

// UploadInvoice stores a PDF or image and points the asset at it,
// replacing any earlier invoice.
func (s *Service) UploadInvoice(ctx context.Context, id uint64, filename string, r io.Reader) (WorkstationResponse, error) {
	if s.blobs == nil {
		return WorkstationResponse{}, apierr.ErrInternal("document storage is not configured")
	}
	if _, err := s.get(ctx, s.db, id); err != nil {
		return WorkstationResponse{}, err
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return WorkstationResponse{}, err
	}
	if n == 0 {
		return WorkstationResponse{}, apierr.ErrInvalid("file is empty")
	}
	head = head[:n]
	ctype := http.DetectContentType(head)
	ext, ok := invoiceTypes[ctype]
	if !ok {
		return WorkstationResponse{}, apierr.Invalidf("unsupported invoice type %s (pdf, png or jpeg)", ctype)
	}
	if e := strings.ToLower(path.Ext(filename)); e == ".jpeg" && ext == ".jpg" {
		ext = e
	}

	key := "invoices/workstations/" + strconv.FormatUint(id, 10) + "/" + ulid.Make().String() + ext
	if _, err := s.blobs.Put(ctx, key, io.MultiReader(bytes.NewReader(head), r), ctype); err != nil {
		return WorkstationResponse{}, err
	}

	var out *Workstation
	var previous sql.NullString
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		w, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		previous = w.POInvoiceKey
		w.POInvoiceKey = sql.NullString{String: key, Valid: true}
		w.UpdatedAt = s.now()
		out = w
		return s.store.SetInvoiceKey(ctx, tx, id, w.POInvoiceKey, w.UpdatedAt)
	})
	if err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			logw(id).WithError(derr).Warn("orphaned invoice blob " + key)
		}
		return WorkstationResponse{}, err
	}
	if previous.Valid {
		if err := s.blobs.Delete(ctx, previous.String); err != nil && !errors.Is(err, blob.ErrNotFound) {
			logw(id).WithError(err).Warn("previous invoice blob was not removed")
		}
	}
	logw(id).WithField("key", key).Info("po invoice stored")
	return ToResponse(out), nil
}

// Invoice opens the stored PO invoice. The caller closes the reader.
func (s *Service) Invoice(ctx context.Context, id uint64) (blob.Info, io.ReadCloser, error) {
	w, err := s.get(ctx, s.db, id)
	if err != nil {
		return blob.Info{}, nil, err
	}
	if !w.POInvoiceKey.Valid || s.blobs == nil {
		return blob.Info{}, nil, apierr.ErrNotFound("no po invoice uploaded")
	}
	info, rc, err := s.blobs.Get(ctx, w.POInvoiceKey.String)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Info{}, nil, apierr.ErrNotFound("po invoice file is missing")
	}
	return info, rc, err
}
