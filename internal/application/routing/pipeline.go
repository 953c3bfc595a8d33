// Package routing is the inbound message pipeline: the ordered gates an
// event passes between arriving off a session and producing a reply.
package routing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/replygate/replygate/internal/application/session"
	"github.com/replygate/replygate/internal/domain/quota"
	"github.com/replygate/replygate/internal/domain/responder"
	sessiondomain "github.com/replygate/replygate/internal/domain/session"
	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/shared/constants"
	"github.com/replygate/replygate/internal/shared/logger"
)

// Attempt categories recorded for replies the matcher did not produce.
const (
	categoryAfterHours = "after_hours"
	categoryNoMatch    = "no_match"
	categoryQuota      = "quota_denied"
)

// Fixed notices for the subscription and quota gates.
const (
	renewalNotice   = "This account's subscription has lapsed. Please renew to keep automated replies active."
	rateLimitNotice = "This account has reached its message limit for now. Please try again later."
)

// TenantResolver is the cached tenant read path plus lazy trial expiry.
type TenantResolver interface {
	Resolve(ctx context.Context, tenantID uint) (*tenant.Tenant, error)
	ExpireTrialIfDue(ctx context.Context, tn *tenant.Tenant, now time.Time) (bool, error)
	Invalidate(tenantID uint)
}

// Sessions is the outbound surface the pipeline answers through.
type Sessions interface {
	Send(ctx context.Context, tenantID uint, recipient, text string) error
	Status(ctx context.Context, tenantID uint) (*sessiondomain.Status, error)
}

// QuotaGate checks ceilings and records attempts.
type QuotaGate interface {
	Check(ctx context.Context, tn *tenant.Tenant) (quota.Decision, error)
	Record(ctx context.Context, tenantID uint, sender, category string, allowed bool) error
}

// OptOuts is the per-tenant set of senders who asked to stop receiving
// automated replies.
type OptOuts interface {
	OptOut(ctx context.Context, tenantID uint, sender string) error
	OptIn(ctx context.Context, tenantID uint, sender string) error
	IsOptedOut(ctx context.Context, tenantID uint, sender string) (bool, error)
}

// Pipeline routes each inbound message through the gate sequence: group
// discard, tenant resolution, operator commands, STOP/START handling,
// subscription, quota, operating hours, and finally the matcher.
type Pipeline struct {
	tenants  TenantResolver
	sessions Sessions
	quota    QuotaGate
	optOuts  OptOuts
	logger   logger.Interface
	now      func() time.Time
}

func NewPipeline(tenants TenantResolver, sessions Sessions, quotaGate QuotaGate, optOuts OptOuts) *Pipeline {
	return &Pipeline{
		tenants:  tenants,
		sessions: sessions,
		quota:    quotaGate,
		optOuts:  optOuts,
		logger:   logger.NewLogger().Named("routing"),
		now:      time.Now,
	}
}

// HandleInbound processes one message. Errors never propagate to the
// session worker; a gate failure drops the message and logs.
func (p *Pipeline) HandleInbound(ctx context.Context, msg session.InboundMessage) {
	log := p.logger.With("tenant_sid", msg.TenantSID, "sender", msg.Sender)

	// Group chatter is never answered.
	if msg.Group {
		return
	}

	tn, err := p.tenants.Resolve(ctx, msg.TenantID)
	if err != nil {
		log.Errorw("failed to resolve tenant", "error", err)
		return
	}

	trimmed := strings.ToUpper(strings.TrimSpace(msg.Text))

	if tn.IsOperator(msg.Sender) {
		if p.handleOperatorCommand(ctx, tn, msg, trimmed, log) {
			return
		}
	}

	if handled := p.handleOptOutKeywords(ctx, tn, msg, trimmed, log); handled {
		return
	}

	optedOut, err := p.optOuts.IsOptedOut(ctx, tn.ID(), msg.Sender)
	if err != nil {
		log.Errorw("opt-out lookup failed", "error", err)
		return
	}
	if optedOut {
		return
	}

	now := p.now()
	if _, err := p.tenants.ExpireTrialIfDue(ctx, tn, now.UTC()); err != nil {
		log.Errorw("failed to expire lapsed trial", "error", err)
	}
	if !tn.Subscription().CanOperate() {
		log.Debugw("answering with renewal notice for inoperable subscription",
			"subscription", tn.Subscription())
		if err := p.sessions.Send(ctx, tn.ID(), msg.Sender, renewalNotice); err != nil {
			log.Errorw("failed to send renewal notice", "error", err)
		}
		return
	}

	decision, err := p.quota.Check(ctx, tn)
	if err != nil {
		log.Errorw("quota check failed", "error", err)
		return
	}
	if !decision.Allowed {
		log.Infow("message denied by quota",
			"window", decision.DeniedWindow)
		if err := p.sessions.Send(ctx, tn.ID(), msg.Sender, rateLimitNotice); err != nil {
			log.Errorw("failed to send rate limit notice", "error", err)
		}
		p.record(ctx, tn.ID(), msg.Sender, categoryQuota, false, log)
		return
	}

	open, err := tn.Hours().OpenAt(now)
	if err != nil {
		log.Errorw("operating hours evaluation failed", "error", err)
		return
	}
	if !open {
		p.reply(ctx, tn, msg, p.fallbackText(tn), categoryAfterHours, log)
		return
	}

	match := responder.MatchMessage(msg.Text, tn.Entries(), p.fallbackText(tn))
	category := match.Category
	if !match.Matched {
		category = categoryNoMatch
	}
	p.reply(ctx, tn, msg, match.Reply, category, log)
}

// handleOperatorCommand answers privileged in-band commands. Returns true
// when the message was a command and is fully handled.
func (p *Pipeline) handleOperatorCommand(ctx context.Context, tn *tenant.Tenant, msg session.InboundMessage, trimmed string, log logger.Interface) bool {
	switch trimmed {
	case constants.CommandStatus:
		text := p.statusText(ctx, tn)
		if err := p.sessions.Send(ctx, tn.ID(), msg.Sender, text); err != nil {
			log.Errorw("failed to send status report", "error", err)
		}
		return true

	case constants.CommandReload:
		p.tenants.Invalidate(tn.ID())
		if err := p.sessions.Send(ctx, tn.ID(), msg.Sender, "Configuration reloaded."); err != nil {
			log.Errorw("failed to acknowledge reload", "error", err)
		}
		return true
	}
	return false
}

// handleOptOutKeywords processes STOP and START from any sender. Both are
// answered with a confirmation and neither consumes quota.
func (p *Pipeline) handleOptOutKeywords(ctx context.Context, tn *tenant.Tenant, msg session.InboundMessage, trimmed string, log logger.Interface) bool {
	switch trimmed {
	case constants.KeywordStop:
		if err := p.optOuts.OptOut(ctx, tn.ID(), msg.Sender); err != nil {
			log.Errorw("failed to record opt-out", "error", err)
			return true
		}
		if err := p.sessions.Send(ctx, tn.ID(), msg.Sender,
			"You will no longer receive automated replies. Send START to opt back in."); err != nil {
			log.Errorw("failed to confirm opt-out", "error", err)
		}
		return true

	case constants.KeywordStart:
		if err := p.optOuts.OptIn(ctx, tn.ID(), msg.Sender); err != nil {
			log.Errorw("failed to record opt-in", "error", err)
			return true
		}
		if err := p.sessions.Send(ctx, tn.ID(), msg.Sender,
			"You are opted back in to automated replies."); err != nil {
			log.Errorw("failed to confirm opt-in", "error", err)
		}
		return true
	}
	return false
}

// reply sends the outgoing text and records the consumed attempt.
func (p *Pipeline) reply(ctx context.Context, tn *tenant.Tenant, msg session.InboundMessage, text, category string, log logger.Interface) {
	if err := p.sessions.Send(ctx, tn.ID(), msg.Sender, text); err != nil {
		log.Errorw("failed to send reply", "category", category, "error", err)
		// The attempt still consumed processing; record it regardless so
		// the ledger matches inbound traffic.
	}
	p.record(ctx, tn.ID(), msg.Sender, category, true, log)
}

func (p *Pipeline) record(ctx context.Context, tenantID uint, sender, category string, allowed bool, log logger.Interface) {
	if err := p.quota.Record(ctx, tenantID, sender, category, allowed); err != nil {
		log.Errorw("failed to record quota event", "error", err)
	}
}

// fallbackText picks the tenant's configured fallback, or builds one from
// its entries when unset.
func (p *Pipeline) fallbackText(tn *tenant.Tenant) string {
	if msg := tn.FallbackMessage(); msg != "" {
		return msg
	}
	return responder.DefaultReply(tn.Entries())
}

// statusText renders the operator STATUS report.
func (p *Pipeline) statusText(ctx context.Context, tn *tenant.Tenant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Account: %s (%s)\n", tn.Name(), tn.SID())
	fmt.Fprintf(&b, "Subscription: %s on %s tier\n", tn.Subscription(), tn.Tier())

	status, err := p.sessions.Status(ctx, tn.ID())
	if err != nil {
		b.WriteString("Session: unknown\n")
	} else {
		fmt.Fprintf(&b, "Session: %s\n", status.State)
	}

	decision, err := p.quota.Check(ctx, tn)
	if err == nil {
		for _, a := range decision.Allowances {
			if a.Limit == 0 {
				fmt.Fprintf(&b, "This %s: %d used (unlimited)\n", a.Window, a.Used)
			} else {
				fmt.Fprintf(&b, "This %s: %d of %d used\n", a.Window, a.Used, a.Limit)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

var _ session.InboundHandler = (*Pipeline)(nil)
