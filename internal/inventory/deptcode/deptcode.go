// Package deptcode builds department codes of the form
//
//	CSE/<PO date YYYYMMDD>/<model or category>/<manufacturer>/<indenter token>/<seq>
//
// and reserves them in the department_codes registry shared by both asset tables.
package deptcode

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"

	"LIMS-backend/internal/platform/db"
)

const (
	KindWorkstation = "workstation"
	KindEquipment   = "equipment"
)

type Config struct {
	Prefix   string
	PadWidth int
	// Initials maps full indenter names to fixed tokens.
	Initials map[string]string
}

type Generator struct {
	prefix   string
	pad      int
	initials map[string]string
}

func New(cfg Config) *Generator {
	g := &Generator{prefix: cfg.Prefix, pad: cfg.PadWidth, initials: map[string]string{}}
	if g.prefix == "" {
		g.prefix = "CSE"
	}
	if g.pad <= 0 {
		g.pad = 3
	}
	for name, tok := range cfg.Initials {
		g.initials[normalizeName(name)] = tok
	}
	return g
}

type Input struct {
	PODate          time.Time // zero means "use the creation date"
	ModelOrCategory string
	Manufacturer    string
	Indenter        string
}

var honorifics = []string{"dr.", "dr", "prof.", "prof", "mr.", "ms.", "mrs."}

var fold = cases.Fold()

func normalizeName(s string) string {
	s = fold.String(s)
	return strings.Map(func(r rune) rune {
		if r == '.' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func stripHonorifics(name string) string {
	name = strings.TrimSpace(name)
	for changed := true; changed; {
		changed = false
		for _, h := range honorifics {
			if len(name) < len(h) || !strings.EqualFold(name[:len(h)], h) {
				continue
			}
			rest := name[len(h):]
			// "Dr" must stand alone; "Dr." may be glued to the name.
			if !strings.HasSuffix(h, ".") && rest != "" && !unicode.IsSpace(rune(rest[0])) {
				continue
			}
			name = strings.TrimSpace(rest)
			changed = true
			break
		}
	}
	return name
}

// IndenterToken resolves the indenter segment: lookup table first, then the
// first token of the name with honorifics removed.
func (g *Generator) IndenterToken(indenter string) string {
	if tok, ok := g.initials[normalizeName(indenter)]; ok {
		return tok
	}
	stripped := stripHonorifics(indenter)
	if tok, ok := g.initials[normalizeName(stripped)]; ok {
		return tok
	}
	fields := strings.Fields(stripped)
	if len(fields) == 0 {
		return "NA"
	}
	return segment(fields[0])
}

// segment removes whitespace and slashes so a value cannot break the template.
func segment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return -1
		case r == '/':
			return '-'
		}
		return r
	}, s)
	if s == "" {
		return "NA"
	}
	return s
}

// Prefix renders every segment except the sequence.
func (g *Generator) Prefix(in Input, now time.Time) string {
	d := in.PODate
	if d.IsZero() {
		d = now
	}
	return strings.Join([]string{
		g.prefix,
		d.Format("20060102"),
		segment(in.ModelOrCategory),
		segment(in.Manufacturer),
		g.IndenterToken(in.Indenter),
	}, "/")
}

func (g *Generator) Format(prefix string, seq int) string {
	return fmt.Sprintf("%s/%0*d", prefix, g.pad, seq)
}

// Reserve claims n consecutive codes inside tx. The sequence continues the
// running count of codes already registered for the same asset kind and model
// (workstations) or category (equipment); date, manufacturer and indenter do
// not restart it. A taken code gets "-2", "-3", ... appended until the
// registry accepts it. Reserved rows carry asset_id 0 until Bind.
func (g *Generator) Reserve(ctx context.Context, tx db.DBTX, kind string, in Input, n int, now time.Time) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	prefix := g.Prefix(in, now)
	key := SequenceKey(in.ModelOrCategory)
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM department_codes WHERE asset_kind = ? AND sequence_key = ?`,
		kind, key).Scan(&count); err != nil {
		return nil, err
	}

	codes := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		base := g.Format(prefix, count+i)
		code, err := g.claim(ctx, tx, kind, key, base, now)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// SequenceKey is the value codes are counted under: the model or category
// segment as it appears in the code.
func SequenceKey(modelOrCategory string) string { return segment(modelOrCategory) }

func (g *Generator) claim(ctx context.Context, tx db.DBTX, kind, key, base string, now time.Time) (string, error) {
	code := base
	for suffix := 2; suffix < 1000; suffix++ {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM department_codes WHERE code = ?`, code).Scan(&exists)
		if err != nil {
			return "", err
		}
		if exists == 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO department_codes (code, asset_kind, sequence_key, asset_id, created_at) VALUES (?,?,?,0,?)`,
				code, kind, key, now); err != nil {
				if !db.IsDuplicateKey(err) {
					return "", err
				}
			} else {
				return code, nil
			}
		}
		code = base + "-" + strconv.Itoa(suffix)
	}
	return "", fmt.Errorf("department code %s: no free suffix", base)
}

// Bind records which asset owns a reserved code.
func Bind(ctx context.Context, tx db.DBTX, code string, assetID uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE department_codes SET asset_id = ? WHERE code = ?`, assetID, code)
	return err
}

// Release frees a code whose asset was deleted.
func Release(ctx context.Context, tx db.DBTX, code string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM department_codes WHERE code = ?`, code)
	return err
}
