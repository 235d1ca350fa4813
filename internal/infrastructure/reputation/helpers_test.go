package reputation

import "github.com/parcelreview/backend/internal/domain/review"

func sampleRequest() review.InvitationRequest {
	return review.InvitationRequest{
		FirstName:       "Grace",
		LastName:        "Hopper",
		Email:           "grace@example.com",
		ReferenceNumber: "TRK-001",
		Locale:          "fr_FR",
		TemplateID:      "tpl-fr",
		SenderName:      "Acme",
		Tags:            []string{"PARCEL", "Acme"},
	}
}
