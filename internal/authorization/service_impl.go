package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/glazeops/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectSettings    = "settings"
	ObjectUser        = "user"
	ObjectCustomer    = "customer"
	ObjectSiteVisit   = "site_visit"
	ObjectInvoice     = "invoice"
	ObjectPayment     = "payment"
	ObjectReceipt     = "receipt"
	ObjectAttachment  = "attachment"
	ObjectWhatsApp    = "whatsapp"
	ObjectCampaign    = "campaign"
	ObjectAuditLog    = "audit_log"
	ObjectAIAssistant = "ai_assistant"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionPaymentSubmit = "payment.submit"
	ActionPaymentReview = "payment.review"
	ActionPaymentExport = "payment.export"

	ActionSettingsManage = "settings.manage"
	ActionUserManage     = "user.manage"

	ActionMessageSend  = "message.send"
	ActionCampaignSend = "campaign.send"
	ActionSuggest      = "suggest"
)

const (
	roleAdmin = "role:admin"
	roleStaff = "role:staff"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor Actor, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := resolveActor(actor)
	if err != nil {
		s.auditDenied(ctx, actor, object, action)
		return err
	}
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actor, object, action)
		return ErrForbidden
	}
	return nil
}

func resolveActor(actor Actor) (string, string, error) {
	userID, err := snowflake.ParseString(strings.TrimSpace(actor.UserID))
	if err != nil || userID == 0 {
		return "", "", ErrInvalidActor
	}
	role := strings.ToLower(strings.TrimSpace(actor.Role))
	if role == "" {
		return "", "", ErrForbidden
	}
	return fmt.Sprintf("user:%s", userID.String()), fmt.Sprintf("role:%s", role), nil
}

// ensureGrouping keeps exactly one role link per user so role changes take
// effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor Actor, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(ctx, nil, "authorization.denied", "authorization", object, map[string]any{
		"object":  object,
		"action":  action,
		"user_id": strings.TrimSpace(actor.UserID),
		"role":    strings.TrimSpace(actor.Role),
	}); err != nil {
		s.log.Warn("failed to audit denied request", zap.Error(err))
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Staff run day-to-day operations.
		{roleStaff, ObjectCustomer, ActionView},
		{roleStaff, ObjectCustomer, ActionCreate},
		{roleStaff, ObjectCustomer, ActionUpdate},
		{roleStaff, ObjectSiteVisit, ActionView},
		{roleStaff, ObjectSiteVisit, ActionCreate},
		{roleStaff, ObjectInvoice, ActionView},
		{roleStaff, ObjectPayment, ActionView},
		{roleStaff, ObjectPayment, ActionPaymentSubmit},
		{roleStaff, ObjectReceipt, ActionView},
		{roleStaff, ObjectAttachment, ActionView},
		{roleStaff, ObjectAttachment, ActionCreate},
		{roleStaff, ObjectWhatsApp, ActionView},
		{roleStaff, ObjectWhatsApp, ActionMessageSend},
		{roleStaff, ObjectAIAssistant, ActionSuggest},

		// Admins can do everything.
		{roleAdmin, ObjectSettings, "*"},
		{roleAdmin, ObjectUser, "*"},
		{roleAdmin, ObjectCustomer, "*"},
		{roleAdmin, ObjectSiteVisit, "*"},
		{roleAdmin, ObjectInvoice, "*"},
		{roleAdmin, ObjectPayment, "*"},
		{roleAdmin, ObjectReceipt, "*"},
		{roleAdmin, ObjectAttachment, "*"},
		{roleAdmin, ObjectWhatsApp, "*"},
		{roleAdmin, ObjectCampaign, "*"},
		{roleAdmin, ObjectAuditLog, "*"},
		{roleAdmin, ObjectAIAssistant, "*"},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
