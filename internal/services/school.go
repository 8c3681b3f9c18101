package services

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pandeptwidyaop/school-portal/internal/database"
	"github.com/pandeptwidyaop/school-portal/internal/models"
	"github.com/pandeptwidyaop/school-portal/internal/validation"
)

var (
	// ErrSchoolNotFound indicates the requested school was not found.
	ErrSchoolNotFound = errors.New("school not found")
	// ErrSchoolExists indicates a school with the same name already exists.
	ErrSchoolExists = errors.New("school with this name already exists")
	// ErrSchoolNameRequired indicates a request without a school name.
	ErrSchoolNameRequired = errors.New("school name is required")
)

const schoolColumns = `id, name, description, address, phone, email, website, logo, principal, motto, vision, mission, created_at, updated_at`

// SchoolService manages school identity records.
type SchoolService struct {
	db *database.DB
}

// NewSchoolService creates a new SchoolService instance.
func NewSchoolService(db *database.DB) *SchoolService {
	return &SchoolService{db: db}
}

// CreateSchool inserts a school after checking its name is unique,
// ignoring case.
func (s *SchoolService) CreateSchool(req *models.SchoolRequest) (*models.School, error) {
	req = normalizeSchoolRequest(req)
	if err := validateSchool(req); err != nil {
		return nil, err
	}

	taken, err := s.nameTaken(req.Name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSchoolExists
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = s.db.Exec(`
		INSERT INTO schools (id, name, description, address, phone, email, website, logo, principal, motto, vision, mission, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, req.Name, req.Description, req.Address, req.Phone, req.Email, req.Website, req.Logo,
		req.Principal, req.Motto, req.Vision, req.Mission, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetSchoolByID(id)
}

// GetSchoolByID retrieves a school by its ID.
func (s *SchoolService) GetSchoolByID(id string) (*models.School, error) {
	school, err := scanSchool(s.db.QueryRow(`SELECT `+schoolColumns+` FROM schools WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrSchoolNotFound
	}
	if err != nil {
		return nil, err
	}
	return school, nil
}

// GetAllSchools retrieves all schools, newest first.
func (s *SchoolService) GetAllSchools() ([]models.School, error) {
	rows, err := s.db.Query(`SELECT ` + schoolColumns + ` FROM schools ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	schools := make([]models.School, 0)
	for rows.Next() {
		school, err := scanSchool(rows)
		if err != nil {
			return nil, err
		}
		schools = append(schools, *school)
	}
	return schools, rows.Err()
}

// UpdateSchool replaces every field of an existing school.
func (s *SchoolService) UpdateSchool(id string, req *models.SchoolRequest) (*models.School, error) {
	req = normalizeSchoolRequest(req)
	if err := validateSchool(req); err != nil {
		return nil, err
	}

	if _, err := s.GetSchoolByID(id); err != nil {
		return nil, err
	}

	taken, err := s.nameTaken(req.Name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSchoolExists
	}

	_, err = s.db.Exec(`
		UPDATE schools
		SET name = ?, description = ?, address = ?, phone = ?, email = ?, website = ?, logo = ?,
			principal = ?, motto = ?, vision = ?, mission = ?, updated_at = ?
		WHERE id = ?
	`, req.Name, req.Description, req.Address, req.Phone, req.Email, req.Website, req.Logo,
		req.Principal, req.Motto, req.Vision, req.Mission, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}

	return s.GetSchoolByID(id)
}

// DeleteSchool deletes a school.
func (s *SchoolService) DeleteSchool(id string) error {
	result, err := s.db.Exec("DELETE FROM schools WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrSchoolNotFound
	}
	return nil
}

func (s *SchoolService) nameTaken(name, exceptID string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM schools WHERE name = ? COLLATE NOCASE AND id != ?",
		name, exceptID,
	).Scan(&count)
	return count > 0, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSchool(row rowScanner) (*models.School, error) {
	var (
		school models.School
		description, address, phone, email, website, logo,
		principal, motto, vision, mission sql.NullString
	)
	err := row.Scan(&school.ID, &school.Name, &description, &address, &phone, &email, &website, &logo,
		&principal, &motto, &vision, &mission, &school.CreatedAt, &school.UpdatedAt)
	if err != nil {
		return nil, err
	}

	school.Description = description.String
	school.Address = address.String
	school.Phone = phone.String
	school.Email = email.String
	school.Website = website.String
	school.Logo = logo.String
	school.Principal = principal.String
	school.Motto = motto.String
	school.Vision = vision.String
	school.Mission = mission.String
	return &school, nil
}

func normalizeSchoolRequest(req *models.SchoolRequest) *models.SchoolRequest {
	out := *req
	out.Name = strings.TrimSpace(out.Name)
	out.Email = strings.TrimSpace(out.Email)
	out.Website = strings.TrimSpace(out.Website)
	out.Phone = strings.TrimSpace(out.Phone)
	return &out
}

func validateSchool(req *models.SchoolRequest) error {
	if err := validation.ValidateName(req.Name, validation.MaxNameLength); err != nil {
		if errors.Is(err, validation.ErrNameRequired) {
			return ErrSchoolNameRequired
		}
		return err
	}
	for _, v := range []string{req.Address, req.Phone, req.Principal, req.Motto} {
		if err := validation.ValidateLength(v, validation.MaxShortLength); err != nil {
			return err
		}
	}
	for _, v := range []string{req.Description, req.Vision, req.Mission} {
		if err := validation.ValidateLength(v, validation.MaxLongLength); err != nil {
			return err
		}
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return err
	}
	return validation.ValidateURL(req.Website)
}
