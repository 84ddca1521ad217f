package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// workbook renders rows into an in-memory .xlsx on its default sheet
func workbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestImportService_BulkRegisterUsers(t *testing.T) {
	ctx := context.Background()
	caller := auth.Identity{UserID: "hod-1", Role: models.RoleHOD, TenantID: 1}

	newService := func(t *testing.T) (*memRepo, ImportService) {
		repo := newMemRepo()
		phone := "0900000001"
		if err := repo.User().Create(ctx, &models.User{
			TenantID: 1, Name: "Existing", Email: "taken@school.edu", PhoneNumber: &phone, Role: models.RoleStudent,
		}); err != nil {
			t.Fatalf("seed user: %v", err)
		}
		return repo, NewImportService(repo, discardLogger(), validator.New(), bcrypt.MinCost)
	}

	t.Run("creates valid rows and reports the rest", func(t *testing.T) {
		repo, svc := newService(t)
		file := workbook(t, [][]string{
			{"Name", "Email", "Phone_Number", "Password"},
			{"Lisa", "Lisa@School.edu", "0911111111", "pw1"},
			{"", "nobody@school.edu", "0922222222", "pw2"},
			{"Nelson", "not-an-email", "0933333333", "pw3"},
			{"Ralph", "ralph@school.edu", "abc", "pw4"},
			{"Taken", "taken@school.edu", "0944444444", "pw5"},
			{"Phone", "phone@school.edu", "0900000001", "pw6"},
			{"Twin", "lisa@school.edu", "0955555555", "pw7"},
			{"Martin", "martin@school.edu", "0966666666", "pw8"},
		})

		result, err := svc.BulkRegisterUsers(ctx, caller, models.RoleStudent, file)
		if err != nil {
			t.Fatalf("BulkRegisterUsers() error = %v", err)
		}
		if result.TotalRows != 8 || result.CreatedCount != 2 {
			t.Fatalf("total = %d, created = %d", result.TotalRows, result.CreatedCount)
		}

		wantSkipped := map[int]string{
			3: "Missing required fields",
			4: "Invalid email",
			5: "Invalid phone",
			6: "Email already exists",
			7: "Phone number already exists",
			8: "Duplicate entry",
		}
		if len(result.Skipped) != len(wantSkipped) {
			t.Fatalf("skipped = %+v", result.Skipped)
		}
		for _, s := range result.Skipped {
			prefix, ok := wantSkipped[s.Row]
			if !ok || !strings.HasPrefix(s.Reason, prefix) {
				t.Errorf("row %d skipped with %q, want prefix %q", s.Row, s.Reason, prefix)
			}
		}

		studentRole := models.RoleStudent
		users, _, _ := repo.User().List(ctx, 1, repositories.UserFilters{Role: &studentRole})
		if len(users) != 3 {
			t.Errorf("tenant has %d students, want 3", len(users))
		}
		for _, u := range users {
			if u.Email == "lisa@school.edu" && bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("pw1")) != nil {
				t.Error("imported password was not hashed from the sheet value")
			}
		}
	})

	t.Run("role must be creatable by caller", func(t *testing.T) {
		_, svc := newService(t)
		teacher := auth.Identity{UserID: "teacher-1", Role: models.RoleTeacher, TenantID: 1}
		file := workbook(t, [][]string{{"name", "email", "phone_number", "password"}, {"A", "a@school.edu", "0977777777", "pw"}})

		if _, err := svc.BulkRegisterUsers(ctx, teacher, models.RoleTeacher, file); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		tests := []struct {
			name string
			file func(t *testing.T) *bytes.Buffer
		}{
			{name: "not a workbook", file: func(t *testing.T) *bytes.Buffer { return bytes.NewBufferString("name,email\n") }},
			{name: "missing column", file: func(t *testing.T) *bytes.Buffer {
				return workbook(t, [][]string{{"name", "email", "password"}, {"A", "a@school.edu", "pw"}})
			}},
			{name: "header only", file: func(t *testing.T) *bytes.Buffer {
				return workbook(t, [][]string{{"name", "email", "phone_number", "password"}})
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, svc := newService(t)
				_, err := svc.BulkRegisterUsers(ctx, caller, models.RoleStudent, tt.file(t))
				var verrs ValidationErrors
				if !errors.As(err, &verrs) || verrs[0].Field != "file" {
					t.Fatalf("expected file validation error, got %v", err)
				}
			})
		}
	})

	t.Run("large sheet", func(t *testing.T) {
		_, svc := newService(t)
		rows := [][]string{{"name", "email", "phone_number", "password"}}
		for i := 0; i < 20; i++ {
			rows = append(rows, []string{fmt.Sprintf("S%d", i), fmt.Sprintf("s%d@school.edu", i), fmt.Sprintf("081000%04d", i), "pw"})
		}

		result, err := svc.BulkRegisterUsers(ctx, caller, models.RoleStudent, workbook(t, rows))
		if err != nil {
			t.Fatalf("BulkRegisterUsers() error = %v", err)
		}
		if result.CreatedCount != 20 || len(result.Skipped) != 0 {
			t.Errorf("unexpected result %+v", result)
		}
	})
}
