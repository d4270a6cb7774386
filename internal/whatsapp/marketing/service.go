package marketing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/glazeops/internal/clock"
	customerdomain "github.com/smallbiznis/glazeops/internal/customer/domain"
	"github.com/smallbiznis/glazeops/internal/observability/metrics"
	"github.com/smallbiznis/glazeops/internal/ratelimit"
	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"github.com/smallbiznis/glazeops/pkg/db"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var placeholder = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Sender  domain.Sender
	Pacer   ratelimit.Pacer
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	sender  domain.Sender
	pacer   ratelimit.Pacer
	metrics *metrics.Metrics
}

func New(p Params) domain.MarketingService {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("whatsapp.marketing"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		sender:  p.Sender,
		pacer:   p.Pacer,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateList(ctx context.Context, req domain.CreateContactListRequest) (domain.ContactList, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ContactList{}, domain.ErrInvalidName
	}
	now := s.clock.Now()
	list := domain.ContactList{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertContactList(ctx, s.db, &list); err != nil {
		return domain.ContactList{}, err
	}
	return list, nil
}

func (s *Service) UpdateList(ctx context.Context, req domain.UpdateContactListRequest) (domain.ContactList, error) {
	list, err := s.GetList(ctx, req.ID)
	if err != nil {
		return domain.ContactList{}, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.ContactList{}, domain.ErrInvalidName
		}
		list.Name = name
	}
	if req.Description != nil {
		list.Description = strings.TrimSpace(*req.Description)
	}
	list.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateContactList(ctx, s.db, &list); err != nil {
		return domain.ContactList{}, err
	}
	return list, nil
}

func (s *Service) GetList(ctx context.Context, rawID string) (domain.ContactList, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.ContactList{}, err
	}
	list, err := s.repo.FindContactList(ctx, s.db, id)
	if err != nil {
		return domain.ContactList{}, err
	}
	if list == nil {
		return domain.ContactList{}, domain.ErrListNotFound
	}
	return *list, nil
}

func (s *Service) ListLists(ctx context.Context, req domain.ListContactListRequest) (domain.ListContactListResponse, error) {
	after, err := req.After()
	if err != nil {
		return domain.ListContactListResponse{}, err
	}
	limit := req.Limit()
	items, err := s.repo.ListContactLists(ctx, s.db, domain.PageFilter{After: after, Limit: limit})
	if err != nil {
		return domain.ListContactListResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(l *domain.ContactList) int64 { return l.ID.Int64() })
	out := make([]domain.ContactList, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return domain.ListContactListResponse{PageInfo: pageInfo, Lists: out}, nil
}

// DeleteList removes a list and its contacts. Lists referenced by a
// campaign are kept so campaign history stays resolvable.
func (s *Service) DeleteList(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		used, err := s.repo.CountCampaignsByList(ctx, tx, id)
		if err != nil {
			return err
		}
		if used > 0 {
			return domain.ErrListInUse
		}
		deleted, err := s.repo.DeleteContactList(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrListNotFound
		}
		return nil
	})
}

func (s *Service) AddContact(ctx context.Context, req domain.AddContactRequest) (domain.Contact, error) {
	list, err := s.GetList(ctx, req.ListID)
	if err != nil {
		return domain.Contact{}, err
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return domain.Contact{}, err
	}

	contact := domain.Contact{
		ID:           s.genID.Generate(),
		ListID:       list.ID,
		Name:         strings.TrimSpace(req.Name),
		Phone:        phone,
		Tags:         normalizeTags(req.Tags),
		CustomFields: datatypes.JSONMap(req.CustomFields),
		CreatedAt:    s.clock.Now(),
	}
	if contact.CustomFields == nil {
		contact.CustomFields = datatypes.JSONMap{}
	}
	if err := s.repo.InsertContact(ctx, s.db, &contact); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Contact{}, domain.ErrContactExists
		}
		return domain.Contact{}, err
	}
	return contact, nil
}

func (s *Service) ListContacts(ctx context.Context, req domain.ListContactRequest) (domain.ListContactResponse, error) {
	list, err := s.GetList(ctx, req.ListID)
	if err != nil {
		return domain.ListContactResponse{}, err
	}
	after, err := req.After()
	if err != nil {
		return domain.ListContactResponse{}, err
	}
	limit := req.Limit()
	items, err := s.repo.ListContacts(ctx, s.db, list.ID, domain.PageFilter{After: after, Limit: limit})
	if err != nil {
		return domain.ListContactResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(c *domain.Contact) int64 { return c.ID.Int64() })
	out := make([]domain.Contact, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return domain.ListContactResponse{PageInfo: pageInfo, Contacts: out}, nil
}

func (s *Service) RemoveContact(ctx context.Context, rawListID, rawContactID string) error {
	listID, err := parseID(rawListID)
	if err != nil {
		return err
	}
	contactID, err := parseID(rawContactID)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteContact(ctx, s.db, listID, contactID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrContactNotFound
	}
	return nil
}

func (s *Service) CreateCampaign(ctx context.Context, req domain.CreateCampaignRequest) (domain.Campaign, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Campaign{}, domain.ErrInvalidName
	}
	template := strings.TrimSpace(req.Template)
	if template == "" || utf8.RuneCountInString(template) > domain.MaxBodyLength {
		return domain.Campaign{}, domain.ErrInvalidTemplate
	}
	list, err := s.GetList(ctx, req.ListID)
	if err != nil {
		return domain.Campaign{}, err
	}

	now := s.clock.Now()
	campaign := domain.Campaign{
		ID:        s.genID.Generate(),
		Name:      name,
		ListID:    list.ID,
		Template:  template,
		Status:    domain.CampaignDraft,
		CreatedBy: req.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertCampaign(ctx, s.db, &campaign); err != nil {
		return domain.Campaign{}, err
	}
	return campaign, nil
}

func (s *Service) GetCampaign(ctx context.Context, rawID string) (domain.Campaign, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Campaign{}, err
	}
	return s.loadCampaign(ctx, id)
}

func (s *Service) loadCampaign(ctx context.Context, id snowflake.ID) (domain.Campaign, error) {
	campaign, err := s.repo.FindCampaign(ctx, s.db, id)
	if err != nil {
		return domain.Campaign{}, err
	}
	if campaign == nil {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	return *campaign, nil
}

func (s *Service) ListCampaigns(ctx context.Context, req domain.ListCampaignRequest) (domain.ListCampaignResponse, error) {
	after, err := req.After()
	if err != nil {
		return domain.ListCampaignResponse{}, err
	}
	limit := req.Limit()
	items, err := s.repo.ListCampaigns(ctx, s.db, domain.PageFilter{After: after, Limit: limit})
	if err != nil {
		return domain.ListCampaignResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(c *domain.Campaign) int64 { return c.ID.Int64() })
	out := make([]domain.Campaign, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return domain.ListCampaignResponse{PageInfo: pageInfo, Campaigns: out}, nil
}

// SendCampaign claims a draft or paused campaign and sends the rendered
// template to every contact of its list. Recipients already processed by an
// earlier run are skipped, so a paused campaign resumes where it stopped.
// Cancelling ctx pauses the campaign between recipients.
func (s *Service) SendCampaign(ctx context.Context, rawID string) (domain.CampaignAnalytics, error) {
	campaign, err := s.GetCampaign(ctx, rawID)
	if err != nil {
		return domain.CampaignAnalytics{}, err
	}
	contacts, err := s.repo.AllContacts(ctx, s.db, campaign.ListID)
	if err != nil {
		return domain.CampaignAnalytics{}, err
	}
	if len(contacts) == 0 {
		return domain.CampaignAnalytics{}, domain.ErrEmptyList
	}

	started, err := s.repo.StartCampaign(ctx, s.db, campaign.ID, s.clock.Now())
	if err != nil {
		return domain.CampaignAnalytics{}, err
	}
	if !started {
		return domain.CampaignAnalytics{}, domain.ErrCampaignNotSendable
	}

	// run_id separates resumed sends of the same campaign in the logs.
	log := s.log.With(
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("run_id", ulid.Make().String()),
	)
	log.Info("campaign send started", zap.Int("recipients", len(contacts)))

	final := domain.CampaignCompleted
	sentAny := false
	for _, contact := range contacts {
		if ctx.Err() != nil {
			final = domain.CampaignPaused
			break
		}
		if sentAny {
			if err := s.pacer.Wait(ctx); err != nil {
				final = domain.CampaignPaused
				break
			}
		}
		attempted, err := s.sendOne(ctx, campaign, contact)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				final = domain.CampaignPaused
				break
			}
			// Storage failures stop the run; the campaign can be resumed.
			final = domain.CampaignPaused
			s.finish(ctx, campaign.ID, final, log)
			return domain.CampaignAnalytics{}, err
		}
		sentAny = sentAny || attempted
	}

	s.finish(ctx, campaign.ID, final, log)
	return s.analytics(context.WithoutCancel(ctx), campaign.ID)
}

// sendOne delivers to a single contact and reports whether an upstream send
// was attempted.
func (s *Service) sendOne(ctx context.Context, campaign domain.Campaign, contact *domain.Contact) (bool, error) {
	now := s.clock.Now()
	recipient, err := s.repo.EnsureCampaignMessage(ctx, s.db, &domain.CampaignMessage{
		ID:         s.genID.Generate(),
		CampaignID: campaign.ID,
		ContactID:  contact.ID,
		Phone:      contact.Phone,
		Body:       Render(campaign.Template, contact),
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return false, err
	}
	if recipient == nil || recipient.Status != domain.StatusPending {
		return false, nil
	}

	update := domain.DeliveryUpdate{Status: domain.StatusSent}
	externalID, sendErr := s.sender.SendText(ctx, recipient.Phone, recipient.Body)
	update.At = s.clock.Now()
	if sendErr != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		s.log.Warn("campaign message not delivered",
			zap.String("campaign_id", campaign.ID.String()),
			zap.String("contact_id", contact.ID.String()),
			zap.Error(sendErr),
		)
		reason := sendErr.Error()
		update.Status = domain.StatusFailed
		update.ErrorMessage = &reason
	} else {
		update.ExternalID = &externalID
	}
	if err := s.repo.UpdateCampaignMessageDelivery(context.WithoutCancel(ctx), s.db, recipient.ID, update); err != nil {
		return true, err
	}
	s.metrics.RecordCampaignMessage(ctx, update.Status)
	return true, nil
}

func (s *Service) finish(ctx context.Context, id snowflake.ID, status string, log *zap.Logger) {
	if err := s.repo.FinishCampaign(context.WithoutCancel(ctx), s.db, id, status, s.clock.Now()); err != nil {
		log.Error("failed to finish campaign", zap.String("status", status), zap.Error(err))
		return
	}
	log.Info("campaign send finished", zap.String("status", status))
}

func (s *Service) Analytics(ctx context.Context, rawID string) (domain.CampaignAnalytics, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.CampaignAnalytics{}, err
	}
	return s.analytics(ctx, id)
}

func (s *Service) analytics(ctx context.Context, id snowflake.ID) (domain.CampaignAnalytics, error) {
	campaign, err := s.loadCampaign(ctx, id)
	if err != nil {
		return domain.CampaignAnalytics{}, err
	}
	counts, err := s.repo.CampaignStatusCounts(ctx, s.db, id)
	if err != nil {
		return domain.CampaignAnalytics{}, err
	}
	return summarize(campaign, counts), nil
}

// summarize folds per-status counts into cumulative analytics: a read
// message was also delivered and sent.
func summarize(campaign domain.Campaign, counts map[string]int64) domain.CampaignAnalytics {
	out := domain.CampaignAnalytics{
		CampaignID: campaign.ID,
		Status:     campaign.Status,
		Pending:    counts[domain.StatusPending],
		Failed:     counts[domain.StatusFailed],
		Read:       counts[domain.StatusRead],
	}
	out.Delivered = counts[domain.StatusDelivered] + out.Read
	out.Sent = counts[domain.StatusSent] + out.Delivered
	out.Total = out.Pending + out.Sent + out.Failed
	if out.Sent > 0 {
		out.DeliveryRate = float64(out.Delivered) / float64(out.Sent)
		out.ReadRate = float64(out.Read) / float64(out.Sent)
	}
	return out
}

func (s *Service) ListRecipients(ctx context.Context, req domain.ListRecipientRequest) (domain.ListRecipientResponse, error) {
	campaign, err := s.GetCampaign(ctx, req.CampaignID)
	if err != nil {
		return domain.ListRecipientResponse{}, err
	}
	after, err := req.After()
	if err != nil {
		return domain.ListRecipientResponse{}, err
	}
	limit := req.Limit()
	items, err := s.repo.ListCampaignMessages(ctx, s.db, campaign.ID, domain.PageFilter{After: after, Limit: limit})
	if err != nil {
		return domain.ListRecipientResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(m *domain.CampaignMessage) int64 { return m.ID.Int64() })
	out := make([]domain.CampaignMessage, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return domain.ListRecipientResponse{PageInfo: pageInfo, Recipients: out}, nil
}

// Render substitutes {{name}}, {{phone}} and {{<custom field>}} for one
// contact. Unknown placeholders render empty.
func Render(template string, contact *domain.Contact) string {
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.TrimSpace(placeholder.FindStringSubmatch(match)[1])
		switch strings.ToLower(key) {
		case "name":
			return contact.Name
		case "phone":
			return contact.Phone
		}
		if value, ok := contact.CustomFields[key]; ok && value != nil {
			return fmt.Sprint(value)
		}
		return ""
	})
}

func normalizePhone(raw string) (string, error) {
	phone := customerdomain.NormalizePhone(raw)
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < 6 || len(digits) > 15 {
		return "", domain.ErrInvalidPhone
	}
	return phone, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
