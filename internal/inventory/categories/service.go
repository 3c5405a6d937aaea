// Package categories is the admin-maintained catalogue of equipment
// categories. Equipment may only be filed under a category that is not
// disabled; categories outside the catalogue stay allowed.
package categories

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"LIMS-backend/internal/inventory/fields"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/logging"
)

const maxNameLen = 64

type Service struct {
	db    *sql.DB
	store *Store
	now   func() time.Time
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore(conn), now: func() time.Time { return time.Now().UTC() }}
}

func toResponse(c *Category) Response {
	return Response{
		ID:          c.ID,
		Name:        c.Name,
		Description: fields.StrPtr(c.Description),
		IsDisabled:  c.IsDisabled,
		Items:       c.Items,
		CreatedAt:   c.CreatedAt,
	}
}

func parseBoolish(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "1" || s == "true" || s == "yes" || s == "all"
}

// List hides disabled categories unless all is truthy ("1", "true", "yes", "all").
func (s *Service) List(ctx context.Context, all string) ([]Response, error) {
	rows, err := s.store.List(ctx, parseBoolish(all))
	if err != nil {
		return nil, err
	}
	out := make([]Response, 0, len(rows))
	for i := range rows {
		out = append(out, toResponse(&rows[i]))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uint64) (Response, error) {
	c, err := s.store.Get(ctx, s.db, id)
	if err != nil {
		return Response{}, err
	}
	if c == nil {
		return Response{}, apierr.ErrNotFound("category not found")
	}
	return toResponse(c), nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Response, error) {
	name, err := fields.Required("name", req.Name)
	if err != nil {
		return Response{}, err
	}
	if len(name) > maxNameLen || strings.Contains(name, "/") {
		return Response{}, apierr.Invalidf("name must be at most %d characters without '/'", maxNameLen)
	}
	c := &Category{Name: name, Description: fields.Optional(req.Description), CreatedAt: s.now()}
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		id, err := s.store.Insert(ctx, tx, c)
		if err != nil {
			if db.IsDuplicateKey(err) {
				return apierr.Conflictf("category %q already exists", name)
			}
			return err
		}
		c.ID = id
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	logging.Log.WithField("category", name).Info("category created")
	return s.Get(ctx, c.ID)
}

func (s *Service) Update(ctx context.Context, id uint64, req UpdateRequest) (Response, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		c, err := s.store.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return apierr.ErrNotFound("category not found")
		}
		if req.Description != nil {
			c.Description = fields.Optional(req.Description)
		}
		if req.IsDisabled != nil {
			c.IsDisabled = *req.IsDisabled
		}
		ok, err := s.store.Update(ctx, tx, id, c.Description, c.IsDisabled)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.ErrNotFound("category not found")
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	return s.Get(ctx, id)
}

// Disable switches a category off. Existing equipment keeps it.
func (s *Service) Disable(ctx context.Context, id uint64) error {
	off := true
	_, err := s.Update(ctx, id, UpdateRequest{IsDisabled: &off})
	return err
}
