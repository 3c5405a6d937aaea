package rooms

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"LIMS-backend/internal/owner"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/logging"
)

type Service struct {
	db    *sql.DB
	store *Store
	now   func() time.Time
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore(conn), now: nowUTC}
}

func (s *Service) Store() *Store { return s.store }

// Bootstrap creates configured labs (with their seats) and offices that do
// not exist yet. Existing rooms keep their capacity; a differing configured
// capacity is only logged.
func (s *Service) Bootstrap(ctx context.Context, labs []LabSpec, offices []string) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		for _, l := range labs {
			existing, err := s.store.RoomByName(ctx, tx, l.Name)
			if err != nil {
				return err
			}
			if existing != nil {
				if existing.Capacity != l.Capacity {
					logging.Log.WithFields(logrus.Fields{
						"room": l.Name, "stored": existing.Capacity, "configured": l.Capacity,
					}).Warn("rooms: capacity is fixed after creation, config value ignored")
				}
				continue
			}
			if _, err := s.insert(ctx, tx, l.Name, KindLab, l.Capacity, l.StaffInCharge); err != nil {
				return err
			}
		}
		for _, name := range offices {
			existing, err := s.store.RoomByName(ctx, tx, name)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if _, err := s.insert(ctx, tx, name, KindOffice, 1, ""); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) insert(ctx context.Context, tx db.DBTX, name, kind string, capacity int, staff string) (uint64, error) {
	r := &Room{Name: name, Kind: kind, Capacity: capacity, CreatedAt: s.now()}
	if staff != "" {
		r.StaffInCharge = sql.NullString{String: staff, Valid: true}
	}
	id, err := s.store.InsertRoom(ctx, tx, r)
	if err != nil {
		return 0, err
	}
	if kind == KindLab {
		if err := s.store.InsertSeats(ctx, tx, id, capacity); err != nil {
			return 0, err
		}
	}
	logging.Log.WithFields(logrus.Fields{"room": name, "kind": kind, "capacity": capacity}).Info("rooms: created")
	return id, nil
}

func (s *Service) CreateRoom(ctx context.Context, req CreateRoomRequest) (RoomResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return RoomResponse{}, apierr.ErrInvalid("name is required")
	}
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	switch kind {
	case KindLab:
		if req.Capacity <= 0 || req.Capacity > 500 {
			return RoomResponse{}, apierr.ErrInvalid("lab capacity must be between 1 and 500")
		}
	case KindOffice:
		req.Capacity = 1
	default:
		return RoomResponse{}, apierr.ErrInvalid("kind must be lab or office")
	}

	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		_, err := s.insert(ctx, tx, name, kind, req.Capacity, strings.TrimSpace(req.StaffInCharge))
		if db.IsDuplicateKey(err) {
			return apierr.Conflictf("room %s already exists", name)
		}
		return err
	})
	if err != nil {
		return RoomResponse{}, err
	}
	return s.GetRoom(ctx, name)
}

func toResponse(r *Room) RoomResponse {
	res := RoomResponse{ID: r.ID, Name: r.Name, Kind: r.Kind, Capacity: r.Capacity}
	if r.StaffInCharge.Valid {
		v := r.StaffInCharge.String
		res.StaffInCharge = &v
	}
	if o, err := owner.FromNull(r.OccupantKind, r.OccupantKey); err == nil {
		res.Occupant = o
	}
	return res
}

// GetRoom returns the room and, for labs, every seat with its occupant.
func (s *Service) GetRoom(ctx context.Context, name string) (RoomResponse, error) {
	r, err := s.store.RoomByName(ctx, s.db, name)
	if err != nil {
		return RoomResponse{}, err
	}
	if r == nil {
		return RoomResponse{}, apierr.ErrNotFound("room not found")
	}
	res := toResponse(r)
	if r.Kind != KindLab {
		return res, nil
	}
	seats, err := s.store.Seats(ctx, r.ID)
	if err != nil {
		return RoomResponse{}, err
	}
	res.Cubicles = make([]CubicleResponse, 0, len(seats))
	for _, st := range seats {
		c := CubicleResponse{ID: st.ID, SeatNo: st.SeatNo}
		if st.StudentRoll.Valid {
			roll, name := st.StudentRoll.String, st.StudentName.String
			c.StudentRoll, c.StudentName = &roll, &name
		}
		res.Cubicles = append(res.Cubicles, c)
	}
	return res, nil
}

func (s *Service) ListRooms(ctx context.Context, kind string) ([]RoomResponse, error) {
	rows, err := s.store.ListRooms(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]RoomResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toResponse(&rows[i]))
	}
	return out, nil
}
