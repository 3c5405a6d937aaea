// Package provisioning keeps the log of network-boot requests: which MAC
// should receive which IP address and OS image.
package provisioning

import (
	"context"
	"database/sql"
	"net/netip"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"LIMS-backend/internal/inventory/fields"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/logging"
	"LIMS-backend/internal/platform/paging"
)

type Request struct {
	ID          uint64
	MACAddress  string
	IPAddress   string
	OSImage     string
	RequestedBy sql.NullString
	CreatedAt   time.Time
}

type CreateRequest struct {
	MACAddress string `json:"mac_address"`
	IPAddress  string `json:"ip_address"`
	OSImage    string `json:"os_image"`
}

type Response struct {
	ID          uint64    `json:"id"`
	MACAddress  string    `json:"mac_address"`
	IPAddress   string    `json:"ip_address"`
	OSImage     string    `json:"os_image"`
	RequestedBy *string   `json:"requested_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const maxImageLen = 128

type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, now: func() time.Time { return time.Now().UTC() }}
}

func toResponse(r *Request) Response {
	return Response{
		ID:          r.ID,
		MACAddress:  r.MACAddress,
		IPAddress:   r.IPAddress,
		OSImage:     r.OSImage,
		RequestedBy: fields.StrPtr(r.RequestedBy),
		CreatedAt:   r.CreatedAt,
	}
}

func validate(req CreateRequest) (Request, error) {
	mac, err := fields.MAC(&req.MACAddress)
	if err != nil {
		return Request{}, err
	}
	if !mac.Valid {
		return Request{}, apierr.ErrInvalid("mac_address is required")
	}
	ip, err := netip.ParseAddr(strings.TrimSpace(req.IPAddress))
	if err != nil || ip.Zone() != "" {
		return Request{}, apierr.ErrInvalid("ip_address must be an IPv4 or IPv6 address")
	}
	image, err := fields.Required("os_image", req.OSImage)
	if err != nil {
		return Request{}, err
	}
	if len(image) > maxImageLen {
		return Request{}, apierr.Invalidf("os_image must be at most %d characters", maxImageLen)
	}
	return Request{MACAddress: mac.String, IPAddress: ip.Unmap().String(), OSImage: image}, nil
}

// Create records a request. MAC and IP are stored in canonical form.
func (s *Service) Create(ctx context.Context, req CreateRequest, actor string) (Response, error) {
	r, err := validate(req)
	if err != nil {
		return Response{}, err
	}
	r.CreatedAt = s.now()
	if actor != "" {
		r.RequestedBy = sql.NullString{String: actor, Valid: true}
	}
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		out, err := tx.ExecContext(ctx,
			`INSERT INTO provisioning_requests (mac_address, ip_address, os_image, requested_by, created_at) VALUES (?, ?, ?, ?, ?)`,
			r.MACAddress, r.IPAddress, r.OSImage, r.RequestedBy, r.CreatedAt)
		if err != nil {
			return err
		}
		id, err := out.LastInsertId()
		r.ID = uint64(id)
		return err
	})
	if err != nil {
		return Response{}, err
	}
	logging.Log.WithFields(logrus.Fields{"mac": r.MACAddress, "ip": r.IPAddress, "image": r.OSImage}).Info("provisioning requested")
	return toResponse(&r), nil
}

// List returns the history, newest first unless p asks otherwise.
func (s *Service) List(ctx context.Context, p paging.Page) ([]Response, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM provisioning_requests`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, mac_address, ip_address, os_image, requested_by, created_at
FROM provisioning_requests ORDER BY created_at `+p.Dir()+`, id `+p.Dir()+` LIMIT ? OFFSET ?`, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Response{}
	for rows.Next() {
		var r Request
		if err := rows.Scan(&r.ID, &r.MACAddress, &r.IPAddress, &r.OSImage, &r.RequestedBy, &r.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, toResponse(&r))
	}
	return out, total, rows.Err()
}
