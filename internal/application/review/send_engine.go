package review

import (
	"context"

	"go.uber.org/zap"

	"github.com/parcelreview/backend/internal/domain/review"
	"github.com/parcelreview/backend/internal/infrastructure/telemetry"
)

// SendResult is the delivery outcome for one context
type SendResult struct {
	Context   *CancellationContext
	Succeeded bool
	Response  *review.InvitationReceipt
	Err       error
}

// SendOutcome partitions a batch by delivery result
type SendOutcome struct {
	Succeeded []SendResult
	Failed    []SendResult
}

// SendEngine builds invitation payloads and delivers them
type SendEngine struct {
	sender      review.InvitationSender
	merchants   review.MerchantNameResolver
	locales     *LocaleResolver
	concurrency int
	logger      *zap.Logger
}

// NewSendEngine creates a new SendEngine
func NewSendEngine(
	sender review.InvitationSender,
	merchants review.MerchantNameResolver,
	locales *LocaleResolver,
	concurrency int,
	logger *zap.Logger,
) *SendEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendEngine{
		sender:      sender,
		merchants:   merchants,
		locales:     locales,
		concurrency: concurrency,
		logger:      logger.Named("review.sender"),
	}
}

// Send delivers one invitation. Errors are reported in the result, never returned.
func (e *SendEngine) Send(ctx context.Context, cc *CancellationContext) SendResult {
	ctx, span := telemetry.StartServiceSpan(ctx, "review_invitation", "send",
		telemetry.WithAttribute(telemetry.SpanAttrInvitationID, cc.Invitation.ID.String()),
	)
	defer span.End()

	req := e.buildRequest(ctx, cc)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrLocale, req.Locale,
		telemetry.SpanAttrTemplateID, req.TemplateID,
	)

	receipt, err := e.sender.SendInvitation(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return SendResult{Context: cc, Err: err}
	}
	return SendResult{Context: cc, Succeeded: true, Response: receipt}
}

// SendMany delivers every context concurrently
func (e *SendEngine) SendMany(ctx context.Context, contexts []*CancellationContext) SendOutcome {
	outcomes := JoinAll(ctx, contexts, e.concurrency, func(ctx context.Context, cc *CancellationContext) (SendResult, error) {
		result := e.Send(ctx, cc)
		return result, result.Err
	})

	var out SendOutcome
	for _, o := range outcomes {
		if o.Result.Succeeded {
			out.Succeeded = append(out.Succeeded, o.Result)
			continue
		}
		e.logger.Warn("Failed to send review invitation",
			zap.String("invitation_id", o.Input.Invitation.ID.String()),
			zap.Error(o.Err),
		)
		out.Failed = append(out.Failed, o.Result)
	}
	return out
}

func (e *SendEngine) buildRequest(ctx context.Context, cc *CancellationContext) review.InvitationRequest {
	inv := cc.Invitation
	locale := e.locales.LocaleFor(cc.Parcel)
	merchant := e.merchantName(ctx, inv)

	tags := []string{string(inv.Entity.Kind)}
	if merchant != "" {
		tags = append(tags, merchant)
	}

	return review.InvitationRequest{
		FirstName:       inv.FirstName,
		LastName:        inv.LastName,
		Email:           inv.Email,
		ReferenceNumber: referenceNumber(cc),
		Locale:          locale,
		TemplateID:      e.locales.TemplateFor(locale),
		SenderName:      merchant,
		Tags:            tags,
	}
}

// merchantName returns "" when the application is unknown or the lookup fails
func (e *SendEngine) merchantName(ctx context.Context, inv *review.Invitation) string {
	if inv.ApplicationID == nil || e.merchants == nil {
		return ""
	}
	merchant, err := e.merchants.FindByApplicationID(ctx, *inv.ApplicationID)
	if err != nil {
		e.logger.Debug("Merchant name lookup failed",
			zap.String("application_id", inv.ApplicationID.String()),
			zap.Error(err),
		)
		return ""
	}
	if merchant == nil {
		return ""
	}
	return merchant.Name
}

func referenceNumber(cc *CancellationContext) string {
	if cc.Parcel != nil && cc.Parcel.TrackingNumber != "" {
		return cc.Parcel.TrackingNumber
	}
	return cc.Invitation.Entity.ID.String()
}
