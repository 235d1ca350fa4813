package review

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parcelreview/backend/internal/domain/review"
)

// CancellationContext is everything the cancellation rules and the send
// engine need to know about one invitation
type CancellationContext struct {
	Invitation *review.Invitation
	Parcel     *review.Parcel
	Shipper    *review.Shipper
	Claim      *review.ConflictingClaim
	Requester  *review.Requester
}

// CompositionFailure is an invitation whose context could not be built
type CompositionFailure struct {
	Invitation *review.Invitation
	Err        error
}

// ComposeOutcome partitions a batch by composition result
type ComposeOutcome struct {
	Succeeded []*CancellationContext
	Failed    []CompositionFailure
}

// ContextComposer resolves the collaborating entities of invitations
type ContextComposer struct {
	parcels     review.ParcelResolver
	shippers    review.ShipperResolver
	claims      review.ConflictResolver
	requesters  review.RequesterResolver
	concurrency int
	logger      *zap.Logger
}

// NewContextComposer creates a new ContextComposer
func NewContextComposer(
	parcels review.ParcelResolver,
	shippers review.ShipperResolver,
	claims review.ConflictResolver,
	requesters review.RequesterResolver,
	concurrency int,
	logger *zap.Logger,
) *ContextComposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextComposer{
		parcels:     parcels,
		shippers:    shippers,
		claims:      claims,
		requesters:  requesters,
		concurrency: concurrency,
		logger:      logger.Named("review.composer"),
	}
}

// ComposeMany composes every invitation concurrently. A failed composition
// is collected and never affects the others.
func (c *ContextComposer) ComposeMany(ctx context.Context, invitations []*review.Invitation) ComposeOutcome {
	outcomes := JoinAll(ctx, invitations, c.concurrency, c.Compose)
	succeeded, failed := Partition(outcomes)

	result := ComposeOutcome{
		Succeeded: make([]*CancellationContext, 0, len(succeeded)),
		Failed:    make([]CompositionFailure, 0, len(failed)),
	}
	for _, o := range succeeded {
		result.Succeeded = append(result.Succeeded, o.Result)
	}
	for _, o := range failed {
		c.logger.Warn("Failed to compose invitation context",
			zap.String("invitation_id", o.Input.ID.String()),
			zap.String("entity", o.Input.Entity.String()),
			zap.Error(o.Err),
		)
		result.Failed = append(result.Failed, CompositionFailure{Invitation: o.Input, Err: o.Err})
	}
	return result
}

// Compose builds the context of one invitation. The parcel and shipper
// chain runs concurrently with the claim and requester chain.
func (c *ContextComposer) Compose(ctx context.Context, inv *review.Invitation) (*CancellationContext, error) {
	if err := inv.Entity.Validate(); err != nil {
		return nil, fmt.Errorf("invalid entity reference %s: %w", inv.Entity, err)
	}

	switch inv.Entity.Kind {
	case review.EntityKindParcel:
		return c.composeParcel(ctx, inv)
	default:
		return nil, fmt.Errorf("%w: %q", review.ErrUnknownEntityKind, inv.Entity.Kind)
	}
}

func (c *ContextComposer) composeParcel(ctx context.Context, inv *review.Invitation) (*CancellationContext, error) {
	cc := &CancellationContext{Invitation: inv}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		parcel, err := c.parcels.FindParcel(gctx, inv.Entity)
		if err != nil {
			return fmt.Errorf("failed to resolve parcel: %w", err)
		}
		if parcel == nil || !parcel.HasShipper() {
			return fmt.Errorf("%w: %s", review.ErrParcelNotFound, inv.Entity.ID)
		}

		shipper, err := c.shippers.FindShipperByID(gctx, *parcel.ShipperID)
		if err != nil {
			return fmt.Errorf("failed to resolve shipper: %w", err)
		}
		if shipper == nil {
			return fmt.Errorf("%w: %s", review.ErrShipperNotFound, *parcel.ShipperID)
		}

		cc.Parcel = parcel
		cc.Shipper = shipper
		return nil
	})
	g.Go(func() error {
		claim, err := c.claims.FindByReferencedEntity(gctx, inv.Entity.ID)
		if err != nil {
			return fmt.Errorf("failed to resolve conflicting claim: %w", err)
		}
		if !claim.RaisedByRecipient() {
			cc.Claim = claim
			return nil
		}

		if claim.RequesterID == nil {
			return fmt.Errorf("%w: claim %s has no requester", review.ErrRequesterNotFound, claim.ID)
		}
		requester, err := c.requesters.FindRequesterByID(gctx, *claim.RequesterID)
		if err != nil {
			return fmt.Errorf("failed to resolve claim requester: %w", err)
		}
		if requester == nil {
			return fmt.Errorf("%w: %s", review.ErrRequesterNotFound, *claim.RequesterID)
		}

		cc.Claim = claim
		cc.Requester = requester
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cc, nil
}
