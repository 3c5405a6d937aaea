// Package reporting derives views from the stored state: lab utilization,
// inventory exports and per-owner resource sheets. Nothing here writes.
package reporting

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"time"

	"LIMS-backend/internal/directory/rooms"
	"LIMS-backend/internal/inventory/equipment"
	"LIMS-backend/internal/inventory/workstations"
)

// LabMeta is the configured description of a lab that is not stored in the database.
type LabMeta struct {
	Name            string
	StaffInCharge   string
	FacultyInCharge []string
	MeetingRooms    []string
}

type RoomUtilization struct {
	Name             string            `json:"name"`
	Total            int               `json:"total"`
	Used             int               `json:"used"`
	Available        int               `json:"available"`
	OccupancyPercent float64           `json:"occupancy_percent"`
	UsedSeats        map[string]string `json:"used_seats"` // seat -> "Name (roll)"
	StaffInCharge    string            `json:"staff_in_charge,omitempty"`
	FacultyInCharge  []string          `json:"faculty_in_charge"`
	MeetingRooms     []string          `json:"meeting_rooms"`
}

type Utilization struct {
	Rooms            []RoomUtilization `json:"rooms"`
	Total            int               `json:"total"`
	Used             int               `json:"used"`
	Available        int               `json:"available"`
	OccupancyPercent float64           `json:"occupancy_percent"`
}

type Service struct {
	db     *sql.DB
	rooms  *rooms.Store
	ws     *workstations.Store
	eq     *equipment.Store
	owners Owners
	labs   map[string]LabMeta
	title  string
	clock  func() time.Time
}

// NewService takes the lab records from configuration; title heads every PDF.
// owners may be nil, which disables the owner sheet.
func NewService(conn *sql.DB, ws *workstations.Store, eq *equipment.Store, owners Owners, labs []LabMeta, title string) *Service {
	meta := make(map[string]LabMeta, len(labs))
	for _, l := range labs {
		meta[l.Name] = l
	}
	if title == "" {
		title = "Lab Inventory"
	}
	return &Service{
		db:     conn,
		rooms:  rooms.NewStore(conn),
		ws:     ws,
		eq:     eq,
		owners: owners,
		labs:   meta,
		title:  title,
		clock:  time.Now,
	}
}

func (s *Service) now() time.Time { return s.clock().UTC() }

func percent(used, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(used)*1000/float64(total)) / 10
}

// Utilization reports seat usage per lab and for the institution.
func (s *Service) Utilization(ctx context.Context) (Utilization, error) {
	labs, err := s.rooms.ListRooms(ctx, rooms.KindLab)
	if err != nil {
		return Utilization{}, err
	}
	out := Utilization{Rooms: make([]RoomUtilization, 0, len(labs))}
	for _, r := range labs {
		seats, err := s.rooms.Seats(ctx, r.ID)
		if err != nil {
			return Utilization{}, err
		}
		ru := RoomUtilization{
			Name:            r.Name,
			Total:           r.Capacity,
			UsedSeats:       map[string]string{},
			StaffInCharge:   r.StaffInCharge.String,
			FacultyInCharge: []string{},
			MeetingRooms:    []string{},
		}
		for _, seat := range seats {
			if !seat.StudentRoll.Valid {
				continue
			}
			ru.Used++
			name := seat.StudentName.String
			if name == "" {
				name = "-"
			}
			ru.UsedSeats[seat.SeatNo] = name + " (" + seat.StudentRoll.String + ")"
		}
		ru.Available = ru.Total - ru.Used
		if ru.Available < 0 {
			ru.Available = 0
		}
		ru.OccupancyPercent = percent(ru.Used, ru.Total)
		if m, ok := s.labs[r.Name]; ok {
			if ru.StaffInCharge == "" {
				ru.StaffInCharge = m.StaffInCharge
			}
			ru.FacultyInCharge = append(ru.FacultyInCharge, m.FacultyInCharge...)
			ru.MeetingRooms = append(ru.MeetingRooms, m.MeetingRooms...)
		}
		out.Rooms = append(out.Rooms, ru)
		out.Total += ru.Total
		out.Used += ru.Used
	}
	sort.Slice(out.Rooms, func(i, j int) bool { return out.Rooms[i].Name < out.Rooms[j].Name })
	out.Available = out.Total - out.Used
	out.OccupancyPercent = percent(out.Used, out.Total)
	return out, nil
}
