package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/evalio/evalio-api/internal/models"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
	"github.com/evalio/evalio-api/pkg/export"
)

type exportEvaluations interface {
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Evaluation, error)
	Responses(ctx context.Context, actor *models.JWTClaims, id string) ([]models.ResponseDetail, error)
}

type exportStats interface {
	Get(ctx context.Context, actor *models.JWTClaims, evaluationID string) (*models.EvaluationStats, error)
}

// ExportFile is a rendered export ready for download.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders evaluation results as CSV and PDF downloads.
type ExportService struct {
	evaluations exportEvaluations
	stats       exportStats
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(evaluations exportEvaluations, stats exportStats, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		evaluations: evaluations,
		stats:       stats,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// CSV renders every response of an evaluation as a raw-data spreadsheet.
func (s *ExportService) CSV(ctx context.Context, actor *models.JWTClaims, evaluationID string) (*ExportFile, error) {
	evaluation, data, err := s.dataset(ctx, actor, evaluationID)
	if err != nil {
		return nil, err
	}
	content, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return &ExportFile{
		FileName:    exportFileName(evaluation.Name, "csv"),
		ContentType: "text/csv",
		Content:     content,
	}, nil
}

// PDF renders the responses plus a summary block with the aggregate numbers.
func (s *ExportService) PDF(ctx context.Context, actor *models.JWTClaims, evaluationID string) (*ExportFile, error) {
	evaluation, data, err := s.dataset(ctx, actor, evaluationID)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats.Get(ctx, actor, evaluationID)
	if err != nil {
		return nil, err
	}

	summary := []string{
		fmt.Sprintf("Responses: %d", stats.TotalResponses),
		fmt.Sprintf("Completion rate: %.0f%%", stats.CompletionRate*100),
		fmt.Sprintf("Averages - preparation %.2f, explanation %.2f, engagement %.2f, atmosphere %.2f, individual approach %.2f",
			stats.AverageScores.Preparation, stats.AverageScores.Explanation, stats.AverageScores.Engagement,
			stats.AverageScores.Atmosphere, stats.AverageScores.Individual),
	}

	content, err := s.pdf.Render(data, evaluation.Name, summary)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return &ExportFile{
		FileName:    exportFileName(evaluation.Name, "pdf"),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}

func (s *ExportService) dataset(ctx context.Context, actor *models.JWTClaims, evaluationID string) (*models.Evaluation, export.Dataset, error) {
	evaluation, err := s.evaluations.Get(ctx, actor, evaluationID)
	if err != nil {
		return nil, export.Dataset{}, err
	}
	responses, err := s.evaluations.Responses(ctx, actor, evaluationID)
	if err != nil {
		return nil, export.Dataset{}, err
	}

	data := export.Dataset{
		Headers: []string{
			"submitted_at", "class", "teacher", "subject",
			"preparation", "explanation", "engagement", "atmosphere", "individual",
			"comment",
		},
	}
	for _, r := range responses {
		comment := ""
		if r.Comment != nil {
			comment = *r.Comment
		}
		data.Rows = append(data.Rows, map[string]string{
			"submitted_at": r.CreatedAt.UTC().Format(time.RFC3339),
			"class":        r.ClassName,
			"teacher":      r.TeacherName,
			"subject":      r.SubjectName,
			"preparation":  strconv.Itoa(r.Preparation),
			"explanation":  strconv.Itoa(r.Explanation),
			"engagement":   strconv.Itoa(r.Engagement),
			"atmosphere":   strconv.Itoa(r.Atmosphere),
			"individual":   strconv.Itoa(r.Individual),
			"comment":      comment,
		})
	}
	return evaluation, data, nil
}

func exportFileName(name, ext string) string {
	slug := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			slug = append(slug, r)
		case r >= 'A' && r <= 'Z':
			slug = append(slug, r+('a'-'A'))
		case r == ' ' || r == '-' || r == '_':
			slug = append(slug, '-')
		}
	}
	if len(slug) == 0 {
		slug = []rune("evaluation")
	}
	return fmt.Sprintf("%s-results.%s", string(slug), ext)
}
