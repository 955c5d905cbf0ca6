package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/theobourgeois/vexilo/internal/dto"
	"github.com/theobourgeois/vexilo/internal/models"
	"gorm.io/gorm"
)

// ReportService handles user complaints against published flags.
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

func (s *ReportService) CreateReport(reporterID uuid.UUID, req *dto.ReportFlagRequest) (*models.FlagReport, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, validationf("reason is required")
	}

	var flag models.Flag
	if err := s.db.First(&flag, "id = ?", req.FlagID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	report := models.FlagReport{
		ReporterID: reporterID,
		FlagID:     req.FlagID,
		Reason:     req.Reason,
		Status:     models.ReportStatusPending,
	}
	if err := s.db.Create(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *ReportService) ListReports(status string, page, limit int) ([]models.FlagReport, int64, error) {
	var reports []models.FlagReport
	var total int64

	offset := (page - 1) * limit

	query := s.db.Model(&models.FlagReport{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&reports).Error
	return reports, total, err
}

func (s *ReportService) ResolveReport(reportID uuid.UUID, req *dto.ResolveReportRequest) error {
	if req.Status != models.ReportStatusResolved && req.Status != models.ReportStatusDismissed {
		return validationf("status must be %s or %s", models.ReportStatusResolved, models.ReportStatusDismissed)
	}

	result := s.db.Model(&models.FlagReport{}).
		Where("id = ? AND status = ?", reportID, models.ReportStatusPending).
		Updates(map[string]interface{}{
			"status":     req.Status,
			"admin_note": req.AdminNote,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
