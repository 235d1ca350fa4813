package reputation

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/parcelreview/backend/internal/domain/review"
)

// InvitationsPath is the invitation creation endpoint
const InvitationsPath = "/v1/invitations"

type invitationPayload struct {
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Email           string   `json:"email"`
	ReferenceNumber string   `json:"reference_number"`
	Locale          string   `json:"locale"`
	TemplateID      string   `json:"template_id,omitempty"`
	SenderName      string   `json:"sender_name,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

type invitationResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// InvitationAPI sends review invitations through the authenticated client
type InvitationAPI struct {
	client *Client
	logger *zap.Logger
}

// NewInvitationAPI creates a new invitation API
func NewInvitationAPI(client *Client, logger *zap.Logger) *InvitationAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvitationAPI{
		client: client,
		logger: logger.Named("reputation.invitations"),
	}
}

// SendInvitation creates an invitation on the platform
func (a *InvitationAPI) SendInvitation(ctx context.Context, req review.InvitationRequest) (*review.InvitationReceipt, error) {
	payload := invitationPayload{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		ReferenceNumber: req.ReferenceNumber,
		Locale:          req.Locale,
		TemplateID:      req.TemplateID,
		SenderName:      req.SenderName,
		Tags:            req.Tags,
	}

	resp, err := a.client.Do(ctx, http.MethodPost, InvitationsPath, payload)
	if err != nil {
		return nil, err
	}

	var out invitationResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("reputation: invitation response has no id (HTTP %d)", resp.StatusCode)
	}

	a.logger.Debug("Invitation accepted",
		zap.String("reference_number", req.ReferenceNumber),
		zap.String("external_id", out.ID),
	)

	return &review.InvitationReceipt{
		ExternalID: out.ID,
		Status:     out.Status,
	}, nil
}

var _ review.InvitationSender = (*InvitationAPI)(nil)
