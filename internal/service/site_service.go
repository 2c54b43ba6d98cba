package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/vbonduro/obras/internal/domain"
	"github.com/vbonduro/obras/internal/export"
	"github.com/vbonduro/obras/internal/metrics"
	"github.com/vbonduro/obras/internal/photostore"
	"github.com/vbonduro/obras/internal/query"
	"github.com/vbonduro/obras/internal/report"
)

// siteRepository is the subset of store.SiteStore that SiteService requires.
type siteRepository interface {
	List(ctx context.Context) ([]domain.Site, error)
	GetByID(ctx context.Context, id string) (*domain.Site, error)
	Create(ctx context.Context, draft domain.SiteDraft) (*domain.Site, error)
	Update(ctx context.Context, id string, draft domain.SiteDraft) (*domain.Site, error)
	Delete(ctx context.Context, id string) error
}

// inspectionRepository is the subset of store.InspectionStore that SiteService requires.
type inspectionRepository interface {
	List(ctx context.Context) ([]domain.Inspection, error)
	ListBySite(ctx context.Context, siteID string) ([]domain.Inspection, error)
	GetByID(ctx context.Context, id string) (*domain.Inspection, error)
	Create(ctx context.Context, draft domain.InspectionDraft) (*domain.Inspection, error)
	Update(ctx context.Context, id string, draft domain.InspectionDraft) (*domain.Inspection, error)
	Delete(ctx context.Context, id string) error
}

// reportSender delivers a report; satisfied by *report.Client.
type reportSender interface {
	Send(ctx context.Context, r report.Request) error
}

type SiteService struct {
	sites       siteRepository
	inspections inspectionRepository
	photoStg    photostore.PhotoStore
	reports     reportSender
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

func NewSiteService(
	sites siteRepository,
	inspections inspectionRepository,
	photoStg photostore.PhotoStore,
	reports reportSender,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SiteService {
	return &SiteService{
		sites:       sites,
		inspections: inspections,
		photoStg:    photoStg,
		reports:     reports,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// Near restricts a site listing to a radius around a point.
type Near struct {
	Origin       orb.Point
	RadiusMeters float64
}

// ListSites returns the sites matching q, optionally restricted to those near
// a point. A blank q and nil near return every site.
func (s *SiteService) ListSites(ctx context.Context, q string, near *Near) ([]domain.Site, error) {
	sites, err := s.sites.List(ctx)
	if err != nil {
		return nil, err
	}
	sites = query.FilterSites(sites, q)
	if near != nil {
		sites = query.NearSites(sites, near.Origin, near.RadiusMeters)
	}
	return sites, nil
}

func (s *SiteService) GetSite(ctx context.Context, id string) (*domain.Site, error) {
	return s.sites.GetByID(ctx, id)
}

func (s *SiteService) GetSiteWithInspections(ctx context.Context, id string) (*domain.Site, []domain.Inspection, error) {
	site, err := s.sites.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	inspections, err := s.inspections.ListBySite(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	return site, inspections, nil
}

func (s *SiteService) CreateSite(ctx context.Context, draft domain.SiteDraft) (*domain.Site, error) {
	site, err := s.sites.Create(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.logger.Info("site created", "site_id", site.ID, "name", site.Name)
	return site, nil
}

// UpdateSite applies draft to site id. A photo replaced by the update is
// removed from photo storage.
func (s *SiteService) UpdateSite(ctx context.Context, id string, draft domain.SiteDraft) (*domain.Site, error) {
	old, err := s.sites.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	site, err := s.sites.Update(ctx, id, draft)
	if err != nil {
		return nil, err
	}
	if replaced(old.Photo, site.Photo) {
		s.removePhoto(ctx, old.Photo)
	}
	return site, nil
}

// DeleteSite removes the site and its inspections, then the stored photos
// they referenced. On a *domain.PartialFailure only the site's own photo is
// removed, since its inspections are still stored.
func (s *SiteService) DeleteSite(ctx context.Context, id string) error {
	var photos []*domain.Photo
	if site, err := s.sites.GetByID(ctx, id); err == nil {
		photos = append(photos, site.Photo)
	}
	var inspectionPhotos []*domain.Photo
	if inspections, err := s.inspections.ListBySite(ctx, id); err == nil {
		for _, i := range inspections {
			inspectionPhotos = append(inspectionPhotos, i.Photo)
		}
	}

	err := s.sites.Delete(ctx, id)
	var partial *domain.PartialFailure
	switch {
	case errors.As(err, &partial):
	case err != nil:
		return err
	default:
		photos = append(photos, inspectionPhotos...)
	}

	for _, p := range photos {
		s.removePhoto(ctx, p)
	}
	return err
}

// ListInspections returns the inspections of siteID, keeping only status
// when it is non-empty. An unknown site yields domain.ErrNotFound, as it does
// for GetSiteWithInspections.
func (s *SiteService) ListInspections(ctx context.Context, siteID string, status domain.Status) ([]domain.Inspection, error) {
	if _, err := s.sites.GetByID(ctx, siteID); err != nil {
		return nil, err
	}
	inspections, err := s.inspections.ListBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return query.ByStatus(inspections, status), nil
}

func (s *SiteService) GetInspection(ctx context.Context, id string) (*domain.Inspection, error) {
	return s.inspections.GetByID(ctx, id)
}

func (s *SiteService) CreateInspection(ctx context.Context, draft domain.InspectionDraft) (*domain.Inspection, error) {
	insp, err := s.inspections.Create(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.logger.Info("inspection created", "inspection_id", insp.ID, "site_id", insp.SiteID, "status", insp.Status)
	return insp, nil
}

func (s *SiteService) UpdateInspection(ctx context.Context, id string, draft domain.InspectionDraft) (*domain.Inspection, error) {
	old, err := s.inspections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	insp, err := s.inspections.Update(ctx, id, draft)
	if err != nil {
		return nil, err
	}
	if replaced(old.Photo, insp.Photo) {
		s.removePhoto(ctx, old.Photo)
	}
	return insp, nil
}

func (s *SiteService) DeleteInspection(ctx context.Context, id string) error {
	var photo *domain.Photo
	if insp, err := s.inspections.GetByID(ctx, id); err == nil {
		photo = insp.Photo
	}
	if err := s.inspections.Delete(ctx, id); err != nil {
		return err
	}
	s.removePhoto(ctx, photo)
	return nil
}

// SavePhoto stores an uploaded capture and returns the reference to attach
// to a site or inspection draft.
func (s *SiteService) SavePhoto(ctx context.Context, name, mimeType string, r io.Reader) (domain.Photo, error) {
	photo, err := s.photoStg.Save(ctx, name, mimeType, r)
	if err != nil {
		return domain.Photo{}, fmt.Errorf("failed to save photo: %w", err)
	}
	s.logger.Debug("photo saved", "uri", photo.URI, "mime_type", photo.MimeType)
	return photo, nil
}

// SiteReport is the payload of a site report.
type SiteReport struct {
	Site        domain.Site         `json:"site"`
	Inspections []domain.Inspection `json:"inspections"`
}

// SendSiteReport emails the site with its inspections to recipient, with the
// site's workbook attached.
func (s *SiteService) SendSiteReport(ctx context.Context, siteID, recipient string) error {
	site, inspections, err := s.GetSiteWithInspections(ctx, siteID)
	if err != nil {
		return err
	}
	attachment, err := export.Bytes([]domain.Site{*site}, inspections, s.now())
	if err != nil {
		return err
	}

	err = s.reports.Send(ctx, report.Request{
		Kind:           report.KindSite,
		Recipient:      recipient,
		Payload:        SiteReport{Site: *site, Inspections: inspections},
		Attachment:     attachment,
		AttachmentName: fmt.Sprintf("site-%s.xlsx", site.ID),
		AttachmentType: export.ContentType,
	})
	s.metrics.ObserveReport(string(report.KindSite), err)
	if err != nil {
		return fmt.Errorf("failed to send site report: %w", err)
	}
	s.logger.Info("site report sent", "site_id", siteID, "inspections", len(inspections))
	return nil
}

// SendInspectionReport emails one inspection to recipient. The owning site
// is included in the attachment when it still exists.
func (s *SiteService) SendInspectionReport(ctx context.Context, inspectionID, recipient string) error {
	insp, err := s.inspections.GetByID(ctx, inspectionID)
	if err != nil {
		return err
	}
	var sites []domain.Site
	site, err := s.sites.GetByID(ctx, insp.SiteID)
	switch {
	case err == nil:
		sites = append(sites, *site)
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	attachment, err := export.Bytes(sites, []domain.Inspection{*insp}, s.now())
	if err != nil {
		return err
	}

	err = s.reports.Send(ctx, report.Request{
		Kind:           report.KindInspection,
		Recipient:      recipient,
		Payload:        insp,
		Attachment:     attachment,
		AttachmentName: fmt.Sprintf("inspection-%s.xlsx", insp.ID),
		AttachmentType: export.ContentType,
	})
	s.metrics.ObserveReport(string(report.KindInspection), err)
	if err != nil {
		return fmt.Errorf("failed to send inspection report: %w", err)
	}
	s.logger.Info("inspection report sent", "inspection_id", inspectionID)
	return nil
}

// ExportWorkbook renders siteID with its inspections, or every record when
// siteID is empty.
func (s *SiteService) ExportWorkbook(ctx context.Context, siteID string) ([]byte, error) {
	if siteID != "" {
		site, inspections, err := s.GetSiteWithInspections(ctx, siteID)
		if err != nil {
			return nil, err
		}
		return export.Bytes([]domain.Site{*site}, inspections, s.now())
	}

	sites, err := s.sites.List(ctx)
	if err != nil {
		return nil, err
	}
	inspections, err := s.inspections.List(ctx)
	if err != nil {
		return nil, err
	}
	return export.Bytes(sites, inspections, s.now())
}

func replaced(old, updated *domain.Photo) bool {
	if old == nil {
		return false
	}
	return updated == nil || updated.URI != old.URI
}

// removePhoto deletes a photo held in local storage. References to captures
// stored elsewhere are left alone.
func (s *SiteService) removePhoto(ctx context.Context, p *domain.Photo) {
	if p == nil {
		return
	}
	key, ok := photostore.KeyFromURI(p.URI)
	if !ok {
		return
	}
	if err := s.photoStg.Delete(ctx, key); err != nil && !errors.Is(err, photostore.ErrNotFound) {
		s.logger.Error("failed to delete photo file", "storage_key", key, "error", err)
	}
}
