package businessflow

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hermes-crm/hermes/app/dto"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/repository"
	"github.com/hermes-crm/hermes/utils"
)

// ClientFlow defines the interface for client management
type ClientFlow interface {
	ListClients(ctx context.Context, filter models.ClientFilter, limit, offset int) ([]*models.Client, error)
	CreateClient(ctx context.Context, req *dto.CreateClientRequest) (*models.Client, error)
	SeedDemoClients(ctx context.Context) (*dto.SeedDemoResponse, error)
	ImportClients(ctx context.Context, file io.Reader) (*dto.ImportClientsResponse, error)
}

// ClientFlowImpl implements the client management flow
type ClientFlowImpl struct {
	clientRepo repository.ClientRepository
	logger     *log.Logger
}

// NewClientFlow creates a new client flow instance
func NewClientFlow(clientRepo repository.ClientRepository, logger *log.Logger) ClientFlow {
	return &ClientFlowImpl{clientRepo: clientRepo, logger: logger}
}

// ListClients returns clients matching the filter
func (s *ClientFlowImpl) ListClients(ctx context.Context, filter models.ClientFilter, limit, offset int) ([]*models.Client, error) {
	clients, err := s.clientRepo.ByFilter(ctx, filter, "id ASC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_CLIENTS_FAILED", "Failed to list clients", err)
	}
	return clients, nil
}

// CreateClient creates a single client
func (s *ClientFlowImpl) CreateClient(ctx context.Context, req *dto.CreateClientRequest) (*models.Client, error) {
	segment := models.ClientSegment(strings.ToLower(strings.TrimSpace(req.Segment)))
	if segment == "" {
		segment = models.ClientSegmentStandard
	}
	if !segment.Valid() {
		return nil, NewBusinessErrorf("INVALID_SEGMENT", "Unknown client segment: %s", nil, req.Segment)
	}

	var birthDate *time.Time
	if req.BirthDate != nil && *req.BirthDate != "" {
		parsed, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			return nil, NewBusinessError("INVALID_BIRTH_DATE", "Birth date must be formatted as YYYY-MM-DD", err)
		}
		birthDate = &parsed
	}

	client := &models.Client{
		FirstName:        strings.TrimSpace(req.FirstName),
		MiddleName:       req.MiddleName,
		LastName:         strings.TrimSpace(req.LastName),
		CompanyName:      req.CompanyName,
		Position:         req.Position,
		Profession:       normalizeProfession(req.Profession),
		Segment:          segment,
		Email:            req.Email,
		Phone:            req.Phone,
		PreferredChannel: req.PreferredChannel,
		BirthDate:        birthDate,
		IsDemo:           req.IsDemo,
	}

	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, NewBusinessError("CREATE_CLIENT_FAILED", "Failed to create client", err)
	}
	return client, nil
}

func normalizeProfession(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*p))
	if v == "" {
		return nil
	}
	return &v
}

// demoClients is the fixed demo dataset. Every row is marked demo and uses
// an example.com address, so the channel gate never lets one reach a real
// mailbox even on a misconfigured installation.
func demoClients() []*models.Client {
	birthday := func(month time.Month, day int) *time.Time {
		d := utils.Date(1980, month, day)
		return &d
	}

	return []*models.Client{
		{
			FirstName: "Alice", LastName: "Bergman",
			CompanyName: utils.ToPtr("Northwind Logistics"), Position: utils.ToPtr("CEO"),
			Profession: utils.ToPtr("logistics"), Segment: models.ClientSegmentVIP,
			Email: utils.ToPtr("alice.bergman@example.com"), BirthDate: birthday(time.March, 14), IsDemo: true,
		},
		{
			FirstName: "Boris", LastName: "Keller",
			CompanyName: utils.ToPtr("Keller & Sons Accounting"), Position: utils.ToPtr("Managing Partner"),
			Profession: utils.ToPtr("accounting"), Segment: models.ClientSegmentVIP,
			Email: utils.ToPtr("boris.keller@example.com"), BirthDate: birthday(time.November, 2), IsDemo: true,
		},
		{
			FirstName: "Clara", LastName: "Ivanova",
			CompanyName: utils.ToPtr("Brightside Media"), Position: utils.ToPtr("Head of Marketing"),
			Profession: utils.ToPtr("marketing"), Segment: models.ClientSegmentLoyal,
			Email: utils.ToPtr("clara.ivanova@example.com"), BirthDate: birthday(time.July, 21), IsDemo: true,
		},
		{
			FirstName: "Daniel", LastName: "Moreau",
			CompanyName: utils.ToPtr("Moreau Systems"), Position: utils.ToPtr("CTO"),
			Profession: utils.ToPtr("it"), Segment: models.ClientSegmentLoyal,
			Email: utils.ToPtr("daniel.moreau@example.com"), BirthDate: birthday(time.February, 29), IsDemo: true,
		},
		{
			FirstName: "Elena", LastName: "Sorokina",
			CompanyName: utils.ToPtr("City Clinic"), Position: utils.ToPtr("Chief Physician"),
			Profession: utils.ToPtr("medicine"), Segment: models.ClientSegmentStandard,
			Email: utils.ToPtr("elena.sorokina@example.com"), BirthDate: birthday(time.June, 5), IsDemo: true,
		},
		{
			FirstName: "Felix", LastName: "Hart",
			Position:   utils.ToPtr("Sales Director"),
			Profession: utils.ToPtr("sales"), Segment: models.ClientSegmentStandard,
			Email: utils.ToPtr("felix.hart@example.com"), BirthDate: birthday(time.September, 30), IsDemo: true,
		},
		{
			FirstName: "Greta", LastName: "Lindqvist",
			CompanyName: utils.ToPtr("Lindqvist Finance"), Position: utils.ToPtr("CFO"),
			Profession: utils.ToPtr("finance"), Segment: models.ClientSegmentNew,
			Email: utils.ToPtr("greta.lindqvist@example.com"), IsDemo: true,
		},
		{
			FirstName: "Henry", LastName: "Osei",
			CompanyName: utils.ToPtr("Osei HR Consulting"), Position: utils.ToPtr("Founder"),
			Profession: utils.ToPtr("hr"), Segment: models.ClientSegmentNew,
			Email: utils.ToPtr("henry.osei@example.com"), BirthDate: birthday(time.December, 12), IsDemo: true,
		},
		{
			FirstName: "Irina", LastName: "Volkova",
			Segment: models.ClientSegmentStandard,
			Email:   utils.ToPtr("irina.volkova@example.com"), IsDemo: true,
		},
		{
			FirstName: "Jonas", LastName: "Petrauskas",
			CompanyName: utils.ToPtr("Baltic Trade"), Position: utils.ToPtr("Procurement Lead"),
			Segment: models.ClientSegmentStandard,
			Email:   utils.ToPtr("jonas.petrauskas@example.com"), BirthDate: birthday(time.April, 1), IsDemo: true,
		},
	}
}

// SeedDemoClients inserts the demo dataset, skipping rows whose email is
// already present. Re-running the seed is safe.
func (s *ClientFlowImpl) SeedDemoClients(ctx context.Context) (*dto.SeedDemoResponse, error) {
	resp := &dto.SeedDemoResponse{}
	var missing []*models.Client
	for _, client := range demoClients() {
		existing, err := s.clientRepo.ByEmail(ctx, *client.Email)
		if err != nil {
			return nil, NewBusinessError("SEED_DEMO_FAILED", "Failed to check for existing demo client", err)
		}
		if existing != nil {
			resp.Skipped++
			continue
		}
		missing = append(missing, client)
	}
	if len(missing) > 0 {
		if err := s.clientRepo.SaveBatch(ctx, missing); err != nil {
			return nil, NewBusinessError("SEED_DEMO_FAILED", "Failed to insert demo clients", err)
		}
	}
	resp.Created = len(missing)
	return resp, nil
}

// xlsx import columns, in order. The first row is treated as a header.
var importColumns = []string{
	"first_name", "last_name", "middle_name", "company_name", "position",
	"profession", "segment", "email", "phone", "birth_date",
}

// ImportClients loads clients from an xlsx file. Rows that fail validation
// are reported but do not abort the import.
func (s *ClientFlowImpl) ImportClients(ctx context.Context, file io.Reader) (*dto.ImportClientsResponse, error) {
	book, err := excelize.OpenReader(file)
	if err != nil {
		return nil, NewBusinessError("IMPORT_FILE_INVALID", "File is not a readable xlsx workbook", ErrImportFileInvalid)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewBusinessError("IMPORT_FILE_INVALID", "Workbook has no sheets", ErrImportFileInvalid)
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, NewBusinessError("IMPORT_FILE_INVALID", "Failed to read rows from workbook", ErrImportFileInvalid)
	}
	if len(rows) < 2 {
		return nil, NewBusinessError("IMPORT_FILE_INVALID", "Workbook has no data rows", ErrImportFileInvalid)
	}

	resp := &dto.ImportClientsResponse{}
	for i, row := range rows[1:] {
		rowNum := i + 2
		client, err := s.clientFromRow(row)
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}

		if client.Email != nil {
			existing, err := s.clientRepo.ByEmail(ctx, *client.Email)
			if err != nil {
				return nil, NewBusinessError("IMPORT_CLIENTS_FAILED", "Failed to check for existing client", err)
			}
			if existing != nil {
				resp.Skipped++
				continue
			}
		}

		if err := s.clientRepo.Save(ctx, client); err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		resp.Imported++
	}
	return resp, nil
}

func (s *ClientFlowImpl) clientFromRow(row []string) (*models.Client, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	optCell := func(i int) *string {
		if v := cell(i); v != "" {
			return &v
		}
		return nil
	}

	firstName := cell(0)
	lastName := cell(1)
	if firstName == "" || lastName == "" {
		return nil, fmt.Errorf("first_name and last_name are required")
	}

	segment := models.ClientSegmentStandard
	if v := strings.ToLower(cell(6)); v != "" {
		segment = models.ClientSegment(v)
		if !segment.Valid() {
			return nil, fmt.Errorf("unknown segment %q", v)
		}
	}

	var birthDate *time.Time
	if v := cell(9); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, fmt.Errorf("birth_date %q is not YYYY-MM-DD", v)
		}
		birthDate = &parsed
	}

	return &models.Client{
		FirstName:   firstName,
		LastName:    lastName,
		MiddleName:  optCell(2),
		CompanyName: optCell(3),
		Position:    optCell(4),
		Profession:  normalizeProfession(optCell(5)),
		Segment:     segment,
		Email:       optCell(7),
		Phone:       optCell(8),
		BirthDate:   birthDate,
	}, nil
}
