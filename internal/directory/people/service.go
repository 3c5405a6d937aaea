package people

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"LIMS-backend/internal/owner"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/auth"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/logging"
	"LIMS-backend/internal/platform/notify"
	"LIMS-backend/internal/platform/paging"
)

// AccountProvisioner creates (or finds) the login for a new profile inside
// the profile's transaction.
type AccountProvisioner interface {
	EnsureAccountTx(ctx context.Context, tx db.DBTX, email string) (userID uint64, tempPassword string, err error)
}

type Service struct {
	db       *sql.DB
	store    *Store
	emails   auth.EmailPolicy
	accounts AccountProvisioner
	notifier notify.Notifier
	now      func() time.Time
}

func NewService(conn *sql.DB, emails auth.EmailPolicy, accounts AccountProvisioner, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{db: conn, store: NewStore(conn), emails: emails, accounts: accounts, notifier: n, now: nowUTC}
}

func nullStr(p *string) sql.NullString {
	if p == nil || strings.TrimSpace(*p) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.TrimSpace(*p), Valid: true}
}

func strPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func toStudentResponse(s *Student) StudentResponse {
	return StudentResponse{
		Roll: s.Roll, Name: s.Name, Email: s.Email,
		Phone: strPtr(s.Phone), Course: strPtr(s.Course), Year: strPtr(s.Year), Advisor: strPtr(s.Advisor),
		UserID: int64Ptr(s.UserID), CreatedAt: s.CreatedAt,
	}
}

func toMemberResponse(m *Member) MemberResponse {
	return MemberResponse{
		ID: m.ID, EmployeeCode: m.EmployeeCode, Name: m.Name, Email: m.Email,
		Phone: strPtr(m.Phone), Designation: strPtr(m.Designation), OfficeRoom: strPtr(m.OfficeRoom),
		UserID: int64Ptr(m.UserID), CreatedAt: m.CreatedAt,
	}
}

func required(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", apierr.Invalidf("%s is required", field)
	}
	return v, nil
}

var uniqueKeys = db.UniqueKeys{
	"email":         {"ux_students_email", "ux_faculty_email", "ux_staff_email"},
	"employee_code": {"ux_faculty_code", "ux_staff_code"},
	"roll":          {"PRIMARY"},
}

// duplicateMessage names the unique key behind a driver duplicate error.
func duplicateMessage(err error, fallback string) error {
	switch db.DuplicateColumn(err, uniqueKeys) {
	case "email":
		return apierr.ErrConflict("email already exists")
	case "employee_code":
		return apierr.ErrConflict("employee code already exists")
	case "roll":
		return apierr.ErrConflict("roll already exists")
	}
	return apierr.ErrConflict(fallback)
}

func (s *Service) sendTempPassword(email, name, pw string) {
	if pw == "" {
		return
	}
	s.notifier.Notify(notify.Message{
		Kind:    notify.KindAccountCreated,
		To:      email,
		Subject: "Your LIMS login",
		Body:    "Hello " + name + ", an account was created for you. Temporary password: " + pw,
		Data:    map[string]string{"temp_password": pw},
	})
}

func (s *Service) CreateStudent(ctx context.Context, req CreateStudentRequest) (StudentResponse, error) {
	roll, err := required("roll", req.Roll)
	if err != nil {
		return StudentResponse{}, err
	}
	name, err := required("name", req.Name)
	if err != nil {
		return StudentResponse{}, err
	}
	email, err := s.emails.Check(req.Email)
	if err != nil {
		return StudentResponse{}, err
	}

	st := &Student{
		Roll: roll, Name: name, Email: email,
		Phone: nullStr(req.Phone), Course: nullStr(req.Course), Year: nullStr(req.Year), Advisor: nullStr(req.Advisor),
		CreatedAt: s.now(),
	}
	var tempPw string
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if exists, err := s.store.GetStudent(ctx, tx, roll); err != nil {
			return err
		} else if exists != nil {
			return apierr.Conflictf("student %s already exists", roll)
		}
		uid, pw, err := s.accounts.EnsureAccountTx(ctx, tx, email)
		if err != nil {
			return err
		}
		tempPw = pw
		st.UserID = sql.NullInt64{Int64: int64(uid), Valid: true}
		if err := s.store.InsertStudent(ctx, tx, st); err != nil {
			if db.IsDuplicateKey(err) {
				return duplicateMessage(err, "student already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return StudentResponse{}, err
	}
	logging.Log.WithField("roll", roll).Info("people: student created")
	s.sendTempPassword(email, name, tempPw)
	return toStudentResponse(st), nil
}

func (s *Service) GetStudent(ctx context.Context, roll string) (StudentResponse, error) {
	st, err := s.store.GetStudent(ctx, s.db, roll)
	if err != nil {
		return StudentResponse{}, err
	}
	if st == nil {
		return StudentResponse{}, apierr.ErrNotFound("student not found")
	}
	return toStudentResponse(st), nil
}

func (s *Service) ListStudents(ctx context.Context, sq SearchQuery, p paging.Page) ([]StudentResponse, int64, error) {
	rows, total, err := s.store.ListStudents(ctx, sq, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]StudentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toStudentResponse(&rows[i]))
	}
	return out, total, nil
}

func (s *Service) UpdateStudent(ctx context.Context, roll string, req UpdateStudentRequest) (StudentResponse, error) {
	var out *Student
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		st, err := s.store.GetStudent(ctx, tx, roll)
		if err != nil {
			return err
		}
		if st == nil {
			return apierr.ErrNotFound("student not found")
		}
		if req.Name != nil {
			if st.Name, err = required("name", *req.Name); err != nil {
				return err
			}
		}
		if req.Email != nil {
			if st.Email, err = s.emails.Check(*req.Email); err != nil {
				return err
			}
		}
		if req.Phone != nil {
			st.Phone = nullStr(req.Phone)
		}
		if req.Course != nil {
			st.Course = nullStr(req.Course)
		}
		if req.Year != nil {
			st.Year = nullStr(req.Year)
		}
		if req.Advisor != nil {
			st.Advisor = nullStr(req.Advisor)
		}
		if err := s.store.UpdateStudent(ctx, tx, st); err != nil {
			if db.IsDuplicateKey(err) {
				return duplicateMessage(err, "email already exists")
			}
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return StudentResponse{}, err
	}
	return toStudentResponse(out), nil
}

// DeleteStudent refuses while the student still holds assets. The seat, if
// any, is freed by the cubicles foreign key.
func (s *Service) DeleteStudent(ctx context.Context, roll string) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		held, err := s.store.HeldAssets(ctx, tx, owner.Student(roll))
		if err != nil {
			return err
		}
		if held > 0 {
			return apierr.Conflictf("student %s still holds %d asset(s); return them first", roll, held)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE cubicles SET student_roll = NULL, updated_at = ? WHERE student_roll = ?`, s.now(), roll); err != nil {
			return err
		}
		n, err := s.store.DeleteStudent(ctx, tx, roll)
		if err != nil {
			return err
		}
		if n == 0 {
			return apierr.ErrNotFound("student not found")
		}
		return nil
	})
}

func (s *Service) CreateMember(ctx context.Context, k MemberKind, req CreateMemberRequest) (MemberResponse, error) {
	code, err := required("employee_code", req.EmployeeCode)
	if err != nil {
		return MemberResponse{}, err
	}
	name, err := required("name", req.Name)
	if err != nil {
		return MemberResponse{}, err
	}
	email, err := s.emails.Check(req.Email)
	if err != nil {
		return MemberResponse{}, err
	}

	m := &Member{
		EmployeeCode: code, Name: name, Email: email,
		Phone: nullStr(req.Phone), Designation: nullStr(req.Designation),
		CreatedAt: s.now(),
	}
	var tempPw string
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		uid, pw, err := s.accounts.EnsureAccountTx(ctx, tx, email)
		if err != nil {
			return err
		}
		tempPw = pw
		m.UserID = sql.NullInt64{Int64: int64(uid), Valid: true}
		id, err := s.store.InsertMember(ctx, tx, k, m)
		if err != nil {
			if db.IsDuplicateKey(err) {
				return duplicateMessage(err, string(k)+" already exists")
			}
			return err
		}
		m.ID = id
		return nil
	})
	if err != nil {
		return MemberResponse{}, err
	}
	logging.Log.WithFields(logrus.Fields{"kind": k, "id": m.ID}).Info("people: member created")
	s.sendTempPassword(email, name, tempPw)
	return toMemberResponse(m), nil
}

func (s *Service) GetMember(ctx context.Context, k MemberKind, id uint64) (MemberResponse, error) {
	m, err := s.store.GetMember(ctx, s.db, k, id)
	if err != nil {
		return MemberResponse{}, err
	}
	if m == nil {
		return MemberResponse{}, apierr.ErrNotFound(string(k) + " not found")
	}
	return toMemberResponse(m), nil
}

func (s *Service) ListMembers(ctx context.Context, k MemberKind, sq SearchQuery, p paging.Page) ([]MemberResponse, int64, error) {
	rows, total, err := s.store.ListMembers(ctx, k, sq, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]MemberResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toMemberResponse(&rows[i]))
	}
	return out, total, nil
}

func (s *Service) UpdateMember(ctx context.Context, k MemberKind, id uint64, req UpdateMemberRequest) (MemberResponse, error) {
	var out *Member
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		m, err := s.store.GetMember(ctx, tx, k, id)
		if err != nil {
			return err
		}
		if m == nil {
			return apierr.ErrNotFound(string(k) + " not found")
		}
		if req.Name != nil {
			if m.Name, err = required("name", *req.Name); err != nil {
				return err
			}
		}
		if req.Email != nil {
			if m.Email, err = s.emails.Check(*req.Email); err != nil {
				return err
			}
		}
		if req.Phone != nil {
			m.Phone = nullStr(req.Phone)
		}
		if req.Designation != nil {
			m.Designation = nullStr(req.Designation)
		}
		if err := s.store.UpdateMember(ctx, tx, k, m); err != nil {
			if db.IsDuplicateKey(err) {
				return duplicateMessage(err, "email already exists")
			}
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return MemberResponse{}, err
	}
	return toMemberResponse(out), nil
}

func (s *Service) DeleteMember(ctx context.Context, k MemberKind, id uint64) error {
	o := k.owner(id)
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		held, err := s.store.HeldAssets(ctx, tx, o)
		if err != nil {
			return err
		}
		if held > 0 {
			return apierr.Conflictf("%s %d still holds %d asset(s); return them first", k, id, held)
		}
		if err := s.store.ReleaseOffice(ctx, tx, o); err != nil {
			return err
		}
		n, err := s.store.DeleteMember(ctx, tx, k, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return apierr.ErrNotFound(string(k) + " not found")
		}
		return nil
	})
}

// Lookup resolves an owner to its directory entry, or NOT_FOUND.
func (s *Service) Lookup(ctx context.Context, q db.DBTX, o owner.Owner) (Person, error) {
	switch o.Kind() {
	case owner.KindStudent:
		roll, _ := o.Roll()
		st, err := s.store.GetStudent(ctx, q, roll)
		if err != nil {
			return Person{}, err
		}
		if st == nil {
			return Person{}, apierr.ErrNotFound("student " + roll + " not found")
		}
		return Person{Owner: o, Name: st.Name, Email: st.Email}, nil
	case owner.KindStaff, owner.KindFaculty:
		id, _ := o.ID()
		k := KindStaff
		if o.Kind() == owner.KindFaculty {
			k = KindFaculty
		}
		m, err := s.store.GetMember(ctx, q, k, id)
		if err != nil {
			return Person{}, err
		}
		if m == nil {
			return Person{}, apierr.ErrNotFound(fmt.Sprintf("%s %d not found", k, id))
		}
		return Person{Owner: o, Name: m.Name, Email: m.Email, OfficeRoom: m.OfficeRoom.String}, nil
	default:
		return Person{}, apierr.ErrInvalid("owner is required")
	}
}
