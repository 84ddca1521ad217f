package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

const maxImportRows = 5000

// Spreadsheet columns, matched case-insensitively against the header row
const (
	columnName     = "name"
	columnEmail    = "email"
	columnPhone    = "phone_number"
	columnPassword = "password"
)

var requiredColumns = []string{columnName, columnEmail, columnPhone, columnPassword}

type importService struct {
	repo       repositories.Repository
	logger     *slog.Logger
	validator  *validator.Validator
	bcryptCost int
}

func NewImportService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, bcryptCost int) ImportService {
	return &importService{
		repo:       repo,
		logger:     logger,
		validator:  validator,
		bcryptCost: bcryptCost,
	}
}

type importRow struct {
	row      int
	name     string
	email    string
	phone    string
	password string
}

func (s *importService) BulkRegisterUsers(ctx context.Context, caller auth.Identity, role models.UserRole, file io.Reader) (*models.BulkImportResult, error) {
	if !role.Valid() {
		return nil, ValidationErrors{*NewValidationError("role", "must be one of student, teacher, hod, admin", role)}
	}
	if !canCreateRole(caller.Role, role) {
		return nil, NewPermissionError(caller.UserID, 0, "user", "bulk_create_"+string(role), "insufficient role permissions")
	}

	rows, err := readImportRows(file)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bulk registering users",
		"role", role,
		"rows", len(rows),
		"created_by", caller.UserID)

	existingEmails, existingPhones, err := s.existingContacts(ctx, caller.TenantID, rows)
	if err != nil {
		return nil, err
	}

	result := &models.BulkImportResult{
		TotalRows: len(rows),
		Skipped:   []models.ImportSkippedRow{},
	}
	seenEmails := make(map[string]bool)
	seenPhones := make(map[string]bool)
	var users []*models.User

	for _, r := range rows {
		skip := func(reason string) {
			result.Skipped = append(result.Skipped, models.ImportSkippedRow{Row: r.row, Email: r.email, Reason: reason})
		}

		switch {
		case r.name == "" || r.email == "" || r.phone == "" || r.password == "":
			skip("Missing required fields (name, email, phone_number, password)")
		case !s.validator.IsValidEmail(r.email):
			skip(fmt.Sprintf("Invalid email format: %s", r.email))
		case !validator.IsValidPhone(r.phone):
			skip(fmt.Sprintf("Invalid phone number: %s", r.phone))
		case existingEmails[r.email]:
			skip("Email already exists in database")
		case existingPhones[r.phone]:
			skip("Phone number already exists in database")
		case seenEmails[r.email] || seenPhones[r.phone]:
			skip("Duplicate entry in file")
		default:
			seenEmails[r.email] = true
			seenPhones[r.phone] = true

			hash, err := hashPassword(r.password, s.bcryptCost)
			if err != nil {
				return nil, err
			}
			phone := r.phone
			users = append(users, &models.User{
				TenantID:    caller.TenantID,
				Name:        r.name,
				Email:       r.email,
				PhoneNumber: &phone,
				Password:    hash,
				Role:        role,
			})
		}
	}

	if len(users) > 0 {
		err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			return tx.User().CreateBatch(ctx, users)
		})
		if err != nil {
			if repositories.IsDuplicateError(err) {
				return nil, ErrUserContactTaken
			}
			return nil, storeError("failed to create users", err)
		}
	}

	result.CreatedCount = len(users)
	result.Message = fmt.Sprintf("%d users registered, %d rows skipped", result.CreatedCount, len(result.Skipped))

	s.logger.Info("Bulk registration finished",
		"created", result.CreatedCount,
		"skipped", len(result.Skipped))
	return result, nil
}

func (s *importService) existingContacts(ctx context.Context, tenantID uint, rows []importRow) (map[string]bool, map[string]bool, error) {
	var emails, phones []string
	for _, r := range rows {
		if r.email != "" {
			emails = append(emails, r.email)
		}
		if r.phone != "" {
			phones = append(phones, r.phone)
		}
	}

	existing, err := s.repo.User().FindByContacts(ctx, tenantID, emails, phones)
	if err != nil {
		return nil, nil, storeError("failed to check existing users", err)
	}

	byEmail := make(map[string]bool, len(existing))
	byPhone := make(map[string]bool, len(existing))
	for _, u := range existing {
		byEmail[u.Email] = true
		if u.PhoneNumber != nil {
			byPhone[*u.PhoneNumber] = true
		}
	}
	return byEmail, byPhone, nil
}

// readImportRows parses the first sheet of an .xlsx workbook. Row numbers are
// the spreadsheet's own, so the header is row 1.
func readImportRows(file io.Reader) ([]importRow, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, ValidationErrors{*NewValidationError("file", "must be a valid .xlsx workbook", nil)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ValidationErrors{*NewValidationError("file", "the workbook has no sheets", nil)}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, ValidationErrors{*NewValidationError("file", "the first sheet cannot be read", nil)}
	}
	if len(rows) < 2 {
		return nil, ValidationErrors{*NewValidationError("file", "the spreadsheet is empty", nil)}
	}
	if len(rows)-1 > maxImportRows {
		return nil, ValidationErrors{*NewValidationError("file", fmt.Sprintf("at most %d rows can be imported at once", maxImportRows), len(rows)-1)}
	}

	columns := make(map[string]int)
	for i, header := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(header))] = i
	}
	var errs ValidationErrors
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			errs = append(errs, *NewValidationError("file", fmt.Sprintf("missing column %q", col), col))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	cell := func(row []string, col string) string {
		i := columns[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	result := make([]importRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		r := importRow{
			row:      i + 2,
			name:     cell(row, columnName),
			email:    strings.ToLower(cell(row, columnEmail)),
			phone:    cell(row, columnPhone),
			password: cell(row, columnPassword),
		}
		if r.name == "" && r.email == "" && r.phone == "" && r.password == "" {
			continue
		}
		result = append(result, r)
	}
	if len(result) == 0 {
		return nil, ValidationErrors{*NewValidationError("file", "the spreadsheet is empty", nil)}
	}
	return result, nil
}
