package marketing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"github.com/smallbiznis/glazeops/internal/whatsapp/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingSender struct {
	mu     sync.Mutex
	bodies map[string]string
	failTo string
	onSend func()
}

func (r *recordingSender) SendText(_ context.Context, to, body string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onSend != nil {
		r.onSend()
	}
	if to == r.failTo {
		return "", errors.New("send_failed: invalid recipient")
	}
	r.bodies[to] = body
	return fmt.Sprintf("wamid.%d", len(r.bodies)), nil
}

type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	repo   domain.Repository
	sender *recordingSender
	pacer  *countingPacer
	svc    domain.MarketingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	node := testutil.NewNode(t)
	repo := repository.Provide()
	sender := &recordingSender{bodies: map[string]string{}}
	pacer := &countingPacer{}
	svc := New(Params{
		DB:     db,
		Log:    testutil.Logger(),
		GenID:  node,
		Clock:  clock.NewFakeClock(time.Date(2026, 4, 6, 10, 0, 0, 0, time.UTC)),
		Repo:   repo,
		Sender: sender,
		Pacer:  pacer,
	})
	return &fixture{db: db, node: node, repo: repo, sender: sender, pacer: pacer, svc: svc}
}

func (f *fixture) seedList(t *testing.T, phones ...string) domain.ContactList {
	t.Helper()
	ctx := context.Background()
	list, err := f.svc.CreateList(ctx, domain.CreateContactListRequest{Name: "Villa owners", Description: "Jumeirah leads"})
	require.NoError(t, err)
	for i, phone := range phones {
		_, err := f.svc.AddContact(ctx, domain.AddContactRequest{
			ListID:       list.ID.String(),
			Name:         fmt.Sprintf("Client %d", i+1),
			Phone:        phone,
			Tags:         []string{"villa"},
			CustomFields: map[string]any{"area": "Jumeirah"},
		})
		require.NoError(t, err)
	}
	return list
}

func TestRender(t *testing.T) {
	contact := &domain.Contact{
		Name:         "Layla",
		Phone:        "+971501234567",
		CustomFields: map[string]any{"area": "Al Barsha", "discount": 15},
	}
	got := Render("Hi {{name}}, {{ discount }}% off frameless showers in {{area}}. Reply to {{phone}}.{{missing}}", contact)
	assert.Equal(t, "Hi Layla, 15% off frameless showers in Al Barsha. Reply to +971501234567.", got)
	assert.Equal(t, "No placeholders", Render("No placeholders", contact))
}

func TestContactLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateList(ctx, domain.CreateContactListRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	list := f.seedList(t, "+971 50 111 2222")

	_, err = f.svc.AddContact(ctx, domain.AddContactRequest{ListID: list.ID.String(), Name: "Dup", Phone: "00971501112222"})
	assert.ErrorIs(t, err, domain.ErrContactExists)
	_, err = f.svc.AddContact(ctx, domain.AddContactRequest{ListID: list.ID.String(), Phone: "123"})
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)

	contact, err := f.svc.AddContact(ctx, domain.AddContactRequest{
		ListID: list.ID.String(),
		Name:   "Omar",
		Phone:  "+971509998888",
		Tags:   []string{" VIP ", "vip", "villa"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"vip", "villa"}, []string(contact.Tags))

	fetched, err := f.svc.GetList(ctx, list.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetched.ContactCount)

	name := "Marina towers"
	updated, err := f.svc.UpdateList(ctx, domain.UpdateContactListRequest{ID: list.ID.String(), Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Marina towers", updated.Name)
	assert.Equal(t, "Jumeirah leads", updated.Description)

	page, err := f.svc.ListContacts(ctx, domain.ListContactRequest{ListID: list.ID.String()})
	require.NoError(t, err)
	require.Len(t, page.Contacts, 2)

	require.NoError(t, f.svc.RemoveContact(ctx, list.ID.String(), contact.ID.String()))
	assert.ErrorIs(t, f.svc.RemoveContact(ctx, list.ID.String(), contact.ID.String()), domain.ErrContactNotFound)

	require.NoError(t, f.svc.DeleteList(ctx, list.ID.String()))
	_, err = f.svc.GetList(ctx, list.ID.String())
	assert.ErrorIs(t, err, domain.ErrListNotFound)
	assert.Equal(t, int64(0), testutil.Count(t, f.db, "whatsapp_contacts", ""))
}

func TestDeleteListInUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.seedList(t, "+971501110001")
	_, err := f.svc.CreateCampaign(ctx, domain.CreateCampaignRequest{Name: "Eid", ListID: list.ID.String(), Template: "Hi {{name}}"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteList(ctx, list.ID.String()), domain.ErrListInUse)
}

func TestCreateCampaignValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.seedList(t)

	_, err := f.svc.CreateCampaign(ctx, domain.CreateCampaignRequest{Name: "", ListID: list.ID.String(), Template: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = f.svc.CreateCampaign(ctx, domain.CreateCampaignRequest{Name: "Eid", ListID: list.ID.String(), Template: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidTemplate)
	_, err = f.svc.CreateCampaign(ctx, domain.CreateCampaignRequest{Name: "Eid", ListID: f.node.Generate().String(), Template: "x"})
	assert.ErrorIs(t, err, domain.ErrListNotFound)

	creator := f.node.Generate()
	campaign, err := f.svc.CreateCampaign(ctx, domain.CreateCampaignRequest{Name: "Eid", ListID: list.ID.String(), Template: "x", CreatedBy: &creator})
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignDraft, campaign.Status)
	require.NotNil(t, campaign.CreatedBy)

	_, err = f.svc.SendCampaign(ctx, campaign.ID.String())
	assert.ErrorIs(t, err, domain.ErrEmptyList)
}

func TestSendCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.seedList(t, "+971501110001", "+971501110002", "+971501110003")
	f.sender.failTo = "+971501110002"

	campaign, err := f.svc.CreateCampaign(ctx, domain.CreateCampaignRequest{
		Name:     "Summer offer",
		ListID:   list.ID.String(),
		Template: "Hello {{name}} from {{area}}",
	})
	require.NoError(t, err)

	stats, err := f.svc.SendCampaign(ctx, campaign.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignCompleted, stats.Status)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(0), stats.Pending)
	assert.Equal(t, 2, f.pacer.waits)
	assert.Len(t, f.sender.bodies, 2)
	for _, body := range f.sender.bodies {
		assert.Contains(t, body, "from Jumeirah")
	}
	assert.Equal(t, int64(3), testutil.Count(t, f.db, "whatsapp_campaign_messages", "campaign_id = ?", campaign.ID))

	_, err = f.svc.SendCampaign(ctx, campaign.ID.String())
	assert.ErrorIs(t, err, domain.ErrCampaignNotSendable)

	stored, err := f.svc.GetCampaign(ctx, campaign.ID.String())
	require.NoError(t, err)
	assert.NotNil(t, stored.StartedAt)
	assert.NotNil(t, stored.CompletedAt)

	recipients, err := f.svc.ListRecipients(ctx, domain.ListRecipientRequest{CampaignID: campaign.ID.String()})
	require.NoError(t, err)
	assert.Len(t, recipients.Recipients, 3)
}

func TestSendCampaignPausesOnCancelAndResumes(t *testing.T) {
	f := newFixture(t)
	list := f.seedList(t, "+971501110001", "+971501110002", "+971501110003")
	campaign, err := f.svc.CreateCampaign(context.Background(), domain.CreateCampaignRequest{
		Name:     "Winter offer",
		ListID:   list.ID.String(),
		Template: "Hi {{name}}",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	f.sender.onSend = cancel
	stats, err := f.svc.SendCampaign(ctx, campaign.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignPaused, stats.Status)
	assert.Equal(t, int64(1), stats.Sent)

	f.sender.onSend = nil
	stats, err = f.svc.SendCampaign(context.Background(), campaign.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignCompleted, stats.Status)
	assert.Equal(t, int64(3), stats.Sent)
	assert.Len(t, f.sender.bodies, 3)
}

func TestSummarize(t *testing.T) {
	campaign := domain.Campaign{ID: 42, Status: domain.CampaignCompleted}
	got := summarize(campaign, map[string]int64{
		domain.StatusSent:      2,
		domain.StatusDelivered: 4,
		domain.StatusRead:      2,
		domain.StatusFailed:    1,
		domain.StatusPending:   1,
	})
	assert.Equal(t, int64(10), got.Total)
	assert.Equal(t, int64(8), got.Sent)
	assert.Equal(t, int64(6), got.Delivered)
	assert.InDelta(t, 0.75, got.DeliveryRate, 1e-9)
	assert.InDelta(t, 0.25, got.ReadRate, 1e-9)

	empty := summarize(campaign, map[string]int64{domain.StatusFailed: 3})
	assert.Zero(t, empty.DeliveryRate)
	assert.Equal(t, int64(3), empty.Total)
}
