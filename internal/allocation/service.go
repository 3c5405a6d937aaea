// Package allocation hands out cubicles, offices, workstations and equipment.
// Every operation is one transaction that claims its resource with a
// compare-and-set update, so two requests racing for the same seat or asset
// cannot both win.
package allocation

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"LIMS-backend/internal/directory/people"
	"LIMS-backend/internal/directory/rooms"
	"LIMS-backend/internal/inventory/audit"
	"LIMS-backend/internal/inventory/equipment"
	"LIMS-backend/internal/inventory/fields"
	"LIMS-backend/internal/inventory/lifecycle"
	"LIMS-backend/internal/inventory/workstations"
	"LIMS-backend/internal/owner"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/logging"
	"LIMS-backend/internal/platform/metrics"
	"LIMS-backend/internal/platform/notify"
)

// Directory resolves an owner to a person inside the caller's transaction.
type Directory interface {
	Lookup(ctx context.Context, q db.DBTX, o owner.Owner) (people.Person, error)
}

type Config struct {
	// SharedStaffRoom admits any number of staff and no faculty.
	SharedStaffRoom string
}

type Service struct {
	db       *sql.DB
	cfg      Config
	store    Store
	rooms    *rooms.Store
	dir      Directory
	ws       *workstations.Store
	eq       *equipment.Store
	notifier notify.Notifier
	now      func() time.Time
}

func NewService(conn *sql.DB, cfg Config, dir Directory, ws *workstations.Store, eq *equipment.Store, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{
		db: conn, cfg: cfg, rooms: rooms.NewStore(conn), dir: dir, ws: ws, eq: eq, notifier: n,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func newULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireOwner(o owner.Owner) error {
	if o.IsZero() {
		return apierr.ErrInvalid("owner is required")
	}
	return nil
}

// ownerRoom is where o sits: the room of a student's cubicle or a member's office.
func (s *Service) ownerRoom(ctx context.Context, q db.DBTX, p people.Person) (string, error) {
	if roll, ok := p.Owner.Roll(); ok {
		_, ref, err := s.store.SeatOf(ctx, q, roll)
		if err != nil || ref == nil {
			return "", err
		}
		return ref.Room, nil
	}
	return p.OfficeRoom, nil
}

// ===== cubicles =====

// AssignCubicle seats a student. The student's previous seat is released
// first; re-assigning the seat they already hold changes nothing. Moving to
// another room relocates the student's assets.
func (s *Service) AssignCubicle(ctx context.Context, req CubicleRequest, actor string) (res CubicleResult, err error) {
	defer func() { metrics.Observe("cubicle", "assign", err) }()

	roll, err := fields.Required("roll", req.Roll)
	if err != nil {
		return CubicleResult{}, err
	}
	roomName, err := fields.Required("room", req.Room)
	if err != nil {
		return CubicleResult{}, err
	}
	seat, err := fields.Required("seat", req.Seat)
	if err != nil {
		return CubicleResult{}, err
	}
	o := owner.Student(roll)
	res = CubicleResult{Roll: roll, Seat: SeatRef{Room: roomName, Seat: seat}}

	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := s.dir.Lookup(ctx, tx, o); err != nil {
			return err
		}
		room, err := s.rooms.RoomByName(ctx, tx, roomName)
		if err != nil {
			return err
		}
		if room == nil {
			return apierr.ErrNotFound("room " + roomName + " not found")
		}
		if room.Kind != rooms.KindLab {
			return apierr.Invalidf("%s is not a lab", roomName)
		}
		target, err := s.rooms.Cubicle(ctx, tx, room.ID, seat)
		if err != nil {
			return err
		}
		if target == nil {
			return apierr.ErrNotFound(fmt.Sprintf("seat %s not found in %s", seat, roomName))
		}
		if target.StudentRoll.Valid {
			if target.StudentRoll.String == roll {
				res.Unchanged = true
				return nil
			}
			return apierr.Conflictf("seat %s in %s is occupied", seat, roomName)
		}

		now := s.now()
		prevID, prev, err := s.store.SeatOf(ctx, tx, roll)
		if err != nil {
			return err
		}
		if prev != nil {
			if _, err := s.store.FreeSeat(ctx, tx, prevID, roll, now); err != nil {
				return err
			}
			res.Previous = prev
		}
		ok, err := s.store.ClaimSeat(ctx, tx, target.ID, roll, now)
		if err != nil {
			if db.IsDuplicateKey(err) {
				return apierr.Conflictf("student %s already holds a seat", roll)
			}
			return err
		}
		if !ok {
			return apierr.Conflictf("seat %s in %s is occupied", seat, roomName)
		}

		if prev == nil || prev.Room != roomName {
			rel, err := s.RelocateOwnerResources(ctx, tx, o, roomName, actor)
			if err != nil {
				return err
			}
			res.Relocation = &rel
		}
		return nil
	})
	if err != nil {
		return CubicleResult{}, err
	}
	if !res.Unchanged {
		logging.Log.WithFields(logrus.Fields{"roll": roll, "room": roomName, "seat": seat}).Info("cubicle assigned")
	}
	return res, nil
}

// ReleaseCubicle frees the student's seat. Assets stay where they are.
func (s *Service) ReleaseCubicle(ctx context.Context, roll string) (err error) {
	defer func() { metrics.Observe("cubicle", "release", err) }()
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		id, ref, err := s.store.SeatOf(ctx, tx, roll)
		if err != nil {
			return err
		}
		if ref == nil {
			return apierr.ErrNotFound("student " + roll + " has no cubicle")
		}
		ok, err := s.store.FreeSeat(ctx, tx, id, roll, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return apierr.ErrConflict("seat changed concurrently")
		}
		return nil
	})
}

// ===== offices =====

// AssignOffice gives a staff or faculty member an office. Offices hold one
// occupant; the shared staff room holds any number of staff and no faculty.
func (s *Service) AssignOffice(ctx context.Context, req OfficeRequest, actor string) (res OfficeResult, err error) {
	defer func() { metrics.Observe("office", "assign", err) }()

	if _, ok := req.Owner.ID(); !ok {
		return OfficeResult{}, apierr.ErrInvalid("owner must be staff or faculty")
	}
	roomName, err := fields.Required("room", req.Room)
	if err != nil {
		return OfficeResult{}, err
	}
	o := req.Owner
	shared := s.cfg.SharedStaffRoom != "" && strings.EqualFold(roomName, s.cfg.SharedStaffRoom)
	if shared && o.Kind() == owner.KindFaculty {
		return OfficeResult{}, apierr.Invalidf("%s is shared by staff only", roomName)
	}
	res = OfficeResult{Owner: o, Room: roomName, Shared: shared}

	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		p, err := s.dir.Lookup(ctx, tx, o)
		if err != nil {
			return err
		}
		room, err := s.rooms.RoomByName(ctx, tx, roomName)
		if err != nil {
			return err
		}
		if room == nil {
			return apierr.ErrNotFound("room " + roomName + " not found")
		}
		if room.Kind != rooms.KindOffice {
			return apierr.Invalidf("%s is not an office", roomName)
		}
		res.Room = room.Name
		res.Previous = p.OfficeRoom

		keep := uint64(0)
		if !shared {
			holder, err := owner.FromNull(room.OccupantKind, room.OccupantKey)
			if err != nil {
				return err
			}
			switch {
			case holder == o:
				res.Unchanged = true
				return nil
			case !holder.IsZero():
				return apierr.Conflictf("office %s is occupied", room.Name)
			}
			ok, err := s.store.ClaimOffice(ctx, tx, room.ID, o)
			if err != nil {
				return err
			}
			if !ok {
				return apierr.Conflictf("office %s is occupied", room.Name)
			}
			keep = room.ID
		} else if p.OfficeRoom == room.Name {
			res.Unchanged = true
			return nil
		}
		if _, err := s.store.FreeOffices(ctx, tx, o, keep); err != nil {
			return err
		}
		if err := s.store.SetOfficeRoom(ctx, tx, o, nullStr(room.Name)); err != nil {
			return err
		}
		if p.OfficeRoom != room.Name {
			rel, err := s.RelocateOwnerResources(ctx, tx, o, room.Name, actor)
			if err != nil {
				return err
			}
			res.Relocation = &rel
		}
		return nil
	})
	if err != nil {
		return OfficeResult{}, err
	}
	return res, nil
}

// ReleaseOffice clears the member's office and any claim they hold.
func (s *Service) ReleaseOffice(ctx context.Context, o owner.Owner) (err error) {
	defer func() { metrics.Observe("office", "release", err) }()
	if _, ok := o.ID(); !ok {
		return apierr.ErrInvalid("owner must be staff or faculty")
	}
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		p, err := s.dir.Lookup(ctx, tx, o)
		if err != nil {
			return err
		}
		freed, err := s.store.FreeOffices(ctx, tx, o, 0)
		if err != nil {
			return err
		}
		if p.OfficeRoom == "" && freed == 0 {
			return apierr.ErrNotFound(o.String() + " has no office")
		}
		return s.store.SetOfficeRoom(ctx, tx, o, sql.NullString{})
	})
}

// ===== location propagation =====

// RelocateOwnerResources moves every workstation issued to o and every item
// o holds to room. Workstations get a location_change audit row, equipment a
// location history row.
func (s *Service) RelocateOwnerResources(ctx context.Context, tx db.DBTX, o owner.Owner, room, actor string) (Relocation, error) {
	rel := Relocation{Room: room}
	now := s.now()
	note := "Location changed to " + room

	wss, err := s.ws.ByOwner(ctx, tx, o)
	if err != nil {
		return rel, err
	}
	for _, w := range wss {
		if w.Location == room {
			continue
		}
		if err := s.ws.SetLocation(ctx, tx, w.ID, room, now); err != nil {
			return rel, err
		}
		if err := audit.Record(ctx, tx, audit.Entry{
			AssetKind: "workstation", AssetID: w.ID, Event: audit.EventLocationChange,
			Reason: note, Actor: actor, CreatedAt: now,
		}); err != nil {
			return rel, err
		}
		rel.Workstations++
	}

	items, err := s.eq.ByOwner(ctx, tx, o)
	if err != nil {
		return rel, err
	}
	for _, e := range items {
		if e.Location == room {
			continue
		}
		if err := s.eq.SetLocation(ctx, tx, e.ID, room, now); err != nil {
			return rel, err
		}
		if err := s.eq.InsertHistory(ctx, tx, &equipment.History{
			ULID: newULID(now), EquipmentID: e.ID, Event: equipment.EventLocation, Owner: o,
			AssignedBy: nullStr(actor), AssignedDate: sql.NullTime{Time: now, Valid: true},
			StatusSnapshot: note, CreatedAt: now,
		}); err != nil {
			return rel, err
		}
		rel.Equipment++
	}
	if rel.Workstations+rel.Equipment > 0 {
		logging.Log.WithFields(logrus.Fields{
			"owner": o.String(), "room": room, "workstations": rel.Workstations, "equipment": rel.Equipment,
		}).Info("owner resources relocated")
	}
	return rel, nil
}

// Relocate is RelocateOwnerResources in its own transaction.
func (s *Service) Relocate(ctx context.Context, req RelocateRequest, actor string) (Relocation, error) {
	if err := requireOwner(req.Owner); err != nil {
		return Relocation{}, err
	}
	room, err := fields.Required("room", req.Room)
	if err != nil {
		return Relocation{}, err
	}
	var rel Relocation
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := s.dir.Lookup(ctx, tx, req.Owner); err != nil {
			return err
		}
		r, err := s.rooms.RoomByName(ctx, tx, room)
		if err != nil {
			return err
		}
		if r == nil {
			return apierr.ErrNotFound("room " + room + " not found")
		}
		rel, err = s.RelocateOwnerResources(ctx, tx, req.Owner, r.Name, actor)
		return err
	})
	return rel, err
}

// ===== workstations =====

// IssueWorkstation assigns an Available workstation to one owner and flips it to Issued.
func (s *Service) IssueWorkstation(ctx context.Context, assetID uint64, req IssueWorkstationRequest, actor string) (res workstations.AssignmentResponse, err error) {
	defer func() { metrics.Observe("workstation", "assign", err) }()

	if err := requireOwner(req.Owner); err != nil {
		return res, err
	}
	issue, err := fields.RequiredDate("issue_date", req.IssueDate)
	if err != nil {
		return res, err
	}
	till, err := fields.Date("system_required_till", req.SystemRequiredTill)
	if err != nil {
		return res, err
	}
	if err := fields.NotAfter("issue_date", sql.NullTime{Time: issue, Valid: true}, "system_required_till", till); err != nil {
		return res, err
	}

	var person people.Person
	var a *workstations.Assignment
	var code string
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		person, err = s.dir.Lookup(ctx, tx, req.Owner)
		if err != nil {
			return err
		}
		w, err := s.ws.Get(ctx, tx, assetID)
		if err != nil {
			return err
		}
		if w == nil {
			return apierr.ErrNotFound("workstation not found")
		}
		if !lifecycle.CanIssue(w.Status) {
			return apierr.Conflictf("workstation is %s", w.Status)
		}
		now := s.now()
		ok, err := s.ws.CASStatus(ctx, tx, assetID, lifecycle.Available, lifecycle.Issued, now)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.ErrConflict("workstation was issued concurrently")
		}
		a = &workstations.Assignment{
			ULID: newULID(now), AssetID: assetID, Owner: req.Owner, IssueDate: issue,
			SystemRequiredTill: till, IsActive: true, IssuedBy: nullStr(actor), CreatedAt: now,
		}
		if a.ID, err = s.ws.InsertAssignment(ctx, tx, a); err != nil {
			if db.IsDuplicateKey(err) {
				return apierr.ErrConflict("workstation already has an active assignment")
			}
			return err
		}
		code = w.DepartmentCode

		room, err := s.ownerRoom(ctx, tx, person)
		if err != nil {
			return err
		}
		if room != "" && room != w.Location {
			if err := s.ws.SetLocation(ctx, tx, assetID, room, now); err != nil {
				return err
			}
			return audit.Record(ctx, tx, audit.Entry{
				AssetKind: "workstation", AssetID: assetID, Event: audit.EventLocationChange,
				Reason: "Location changed to " + room, Actor: actor, CreatedAt: now,
			})
		}
		return nil
	})
	if err != nil {
		return workstations.AssignmentResponse{}, err
	}

	logging.Log.WithFields(logrus.Fields{"workstation_id": assetID, "owner": req.Owner.String()}).Info("workstation issued")
	s.notifier.Notify(notify.Message{
		Kind: notify.KindWorkstationIssued, To: person.Email,
		Subject: "Workstation " + code + " issued",
		Body:    fmt.Sprintf("Hello %s, workstation %s has been issued to you from %s.", person.Name, code, req.IssueDate),
		Data:    map[string]string{"department_code": code, "assignment_id": a.ULID},
	})
	return workstations.ToAssignmentResponse(a), nil
}

// ReturnWorkstation closes the active assignment and makes the asset Available.
func (s *Service) ReturnWorkstation(ctx context.Context, assetID uint64, req ReturnWorkstationRequest, actor string) (res workstations.AssignmentResponse, err error) {
	defer func() { metrics.Observe("workstation", "return", err) }()

	end, err := fields.Date("end_date", req.EndDate)
	if err != nil {
		return res, err
	}
	var a *workstations.Assignment
	var person people.Person
	var code string
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		w, err := s.ws.Get(ctx, tx, assetID)
		if err != nil {
			return err
		}
		if w == nil {
			return apierr.ErrNotFound("workstation not found")
		}
		a, err = s.ws.ActiveAssignment(ctx, tx, assetID)
		if err != nil {
			return err
		}
		if a == nil {
			return apierr.ErrConflict("workstation is not issued")
		}
		now := s.now()
		if !end.Valid {
			end = sql.NullTime{Time: now.Truncate(24 * time.Hour), Valid: true}
		}
		if end.Time.Before(a.IssueDate) {
			return apierr.ErrInvalid("end_date must not be before issue_date")
		}
		ok, err := s.ws.CloseAssignment(ctx, tx, a.ID, end.Time, nullStr(actor), now)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.ErrConflict("workstation was returned concurrently")
		}
		if ok, err = s.ws.CASStatus(ctx, tx, assetID, lifecycle.Issued, lifecycle.Available, now); err != nil {
			return err
		} else if !ok {
			return apierr.Conflictf("workstation is %s, expected Issued", w.Status)
		}
		a.IsActive, a.EndDate = false, end
		a.ReturnedBy, a.ReturnedAt = nullStr(actor), sql.NullTime{Time: now, Valid: true}
		code = w.DepartmentCode
		// the owner may have been deleted since; the return still stands
		if p, err := s.dir.Lookup(ctx, tx, a.Owner); err == nil {
			person = p
		}
		return nil
	})
	if err != nil {
		return workstations.AssignmentResponse{}, err
	}

	logging.Log.WithFields(logrus.Fields{"workstation_id": assetID, "owner": a.Owner.String()}).Info("workstation returned")
	if person.Email != "" {
		s.notifier.Notify(notify.Message{
			Kind: notify.KindWorkstationReturned, To: person.Email,
			Subject: "Workstation " + code + " returned",
			Body:    fmt.Sprintf("Hello %s, the return of workstation %s has been recorded.", person.Name, code),
			Data:    map[string]string{"department_code": code, "assignment_id": a.ULID},
		})
	}
	return workstations.ToAssignmentResponse(a), nil
}

// ===== equipment =====

// IssueEquipment assigns an Available, unowned item and appends an assign history row.
func (s *Service) IssueEquipment(ctx context.Context, id uint64, req IssueEquipmentRequest, actor string) (res equipment.EquipmentResponse, err error) {
	defer func() { metrics.Observe("equipment", "assign", err) }()

	if err := requireOwner(req.Owner); err != nil {
		return res, err
	}
	at, err := fields.Date("assigned_date", req.AssignedDate)
	if err != nil {
		return res, err
	}
	var person people.Person
	var e *equipment.Equipment
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		person, err = s.dir.Lookup(ctx, tx, req.Owner)
		if err != nil {
			return err
		}
		e, err = s.eq.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return apierr.ErrNotFound("equipment not found")
		}
		switch {
		case e.Status == lifecycle.Scrapped || e.Status == lifecycle.Retired:
			return apierr.Conflictf("%s equipment cannot be assigned", strings.ToLower(string(e.Status)))
		case !e.Owner.IsZero():
			return apierr.Conflictf("equipment is already assigned to %s", e.Owner)
		case !lifecycle.CanIssue(e.Status):
			return apierr.Conflictf("equipment is %s", e.Status)
		}
		now := s.now()
		if !at.Valid {
			at = sql.NullTime{Time: now, Valid: true}
		}
		ok, err := s.eq.ClaimOwner(ctx, tx, id, req.Owner, nullStr(actor), at.Time, now)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.ErrConflict("equipment was assigned concurrently")
		}
		if err := s.eq.InsertHistory(ctx, tx, &equipment.History{
			ULID: newULID(now), EquipmentID: id, Event: equipment.EventAssign, Owner: req.Owner,
			AssignedBy: nullStr(actor), AssignedDate: at, StatusSnapshot: string(lifecycle.Issued), CreatedAt: now,
		}); err != nil {
			return err
		}
		room, err := s.ownerRoom(ctx, tx, person)
		if err != nil {
			return err
		}
		if room != "" && room != e.Location {
			if err := s.eq.SetLocation(ctx, tx, id, room, now); err != nil {
				return err
			}
			e.Location = room
		}
		e.Owner, e.Status = req.Owner, lifecycle.Issued
		e.AssignedBy, e.AssignedDate, e.UpdatedAt = nullStr(actor), at, now
		return nil
	})
	if err != nil {
		return equipment.EquipmentResponse{}, err
	}

	logging.Log.WithFields(logrus.Fields{"equipment_id": id, "owner": req.Owner.String()}).Info("equipment issued")
	s.notifier.Notify(notify.Message{
		Kind: notify.KindEquipmentIssued, To: person.Email,
		Subject: e.Name + " " + e.DepartmentCode + " issued",
		Body:    fmt.Sprintf("Hello %s, %s (%s) has been issued to you.", person.Name, e.Name, e.DepartmentCode),
		Data:    map[string]string{"department_code": e.DepartmentCode},
	})
	return equipment.ToResponse(e), nil
}

// ReturnEquipment clears the owner, makes the item Available and closes the
// newest open assign history row.
func (s *Service) ReturnEquipment(ctx context.Context, id uint64, actor string) (res equipment.EquipmentResponse, err error) {
	defer func() { metrics.Observe("equipment", "return", err) }()

	var e *equipment.Equipment
	var held owner.Owner
	var person people.Person
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		e, err = s.eq.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return apierr.ErrNotFound("equipment not found")
		}
		if e.Owner.IsZero() {
			return apierr.ErrConflict("equipment is not assigned")
		}
		held = e.Owner
		now := s.now()
		ok, err := s.eq.ClearOwner(ctx, tx, id, held, now)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.ErrConflict("equipment was returned concurrently")
		}
		closed, err := s.eq.CloseOpenAssign(ctx, tx, id, now)
		if err != nil {
			return err
		}
		if !closed {
			logging.Log.WithField("equipment_id", id).Warn("returned equipment had no open assign history row")
		}
		if p, err := s.dir.Lookup(ctx, tx, held); err == nil {
			person = p
		}
		e.Owner, e.Status = owner.Owner{}, lifecycle.Available
		e.AssignedBy, e.AssignedDate, e.UpdatedAt = sql.NullString{}, sql.NullTime{}, now
		return nil
	})
	if err != nil {
		return equipment.EquipmentResponse{}, err
	}

	logging.Log.WithFields(logrus.Fields{"equipment_id": id, "owner": held.String(), "actor": actor}).Info("equipment returned")
	if person.Email != "" {
		s.notifier.Notify(notify.Message{
			Kind: notify.KindEquipmentReturned, To: person.Email,
			Subject: e.Name + " " + e.DepartmentCode + " returned",
			Body:    fmt.Sprintf("Hello %s, the return of %s (%s) has been recorded.", person.Name, e.Name, e.DepartmentCode),
			Data:    map[string]string{"department_code": e.DepartmentCode},
		})
	}
	return equipment.ToResponse(e), nil
}

// ===== owner view =====

// OwnerResources lists the active workstation assignments and held equipment of o.
func (s *Service) OwnerResources(ctx context.Context, o owner.Owner) (Resources, error) {
	if err := requireOwner(o); err != nil {
		return Resources{}, err
	}
	out := Resources{Owner: o, Workstations: []WorkstationHolding{}, Equipment: []equipment.EquipmentResponse{}}
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, q db.DBTX) error {
		p, err := s.dir.Lookup(ctx, q, o)
		if err != nil {
			return err
		}
		out.Name, out.Email, out.Office = p.Name, p.Email, p.OfficeRoom
		if roll, ok := o.Roll(); ok {
			if _, out.Cubicle, err = s.store.SeatOf(ctx, q, roll); err != nil {
				return err
			}
		}

		active, err := s.ws.AssignmentsByOwner(ctx, q, o, true)
		if err != nil {
			return err
		}
		for i := range active {
			w, err := s.ws.Get(ctx, q, active[i].AssetID)
			if err != nil {
				return err
			}
			if w == nil {
				continue
			}
			out.Workstations = append(out.Workstations, WorkstationHolding{
				WorkstationResponse: workstations.ToResponse(w),
				Assignment:          workstations.ToAssignmentResponse(&active[i]),
			})
		}

		items, err := s.eq.ByOwner(ctx, q, o)
		if err != nil {
			return err
		}
		for i := range items {
			out.Equipment = append(out.Equipment, equipment.ToResponse(&items[i]))
		}
		return nil
	})
	return out, err
}
