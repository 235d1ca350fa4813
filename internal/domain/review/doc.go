// Package review contains the Review Invitation bounded context.
// This context decides what happens to review invitations created for delivered parcels.
//
// Key concepts:
//   - Invitation: Aggregate tracking one solicitation towards the external reputation platform
//   - EntityReference: Tagged reference to the shipment entity the invitation is about
//   - CandidatePolicy: Selection predicate for invitations that are due for processing
//   - Resolvers: Ports for the parcel, shipper, claim, requester and merchant lookups
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package review
