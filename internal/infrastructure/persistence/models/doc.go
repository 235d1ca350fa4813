// Package models holds the GORM row types of the worker's tables and the
// read-only projections of the shipment tables it consults. Domain types
// stay free of GORM tags; each model converts with ToDomain/FromDomain.
//
//   - invitation.go: review_invitations
//   - external_token.go: external_service_tokens
//   - shipment.go: parcels, shippers, claims, requesters, merchant_applications
package models
