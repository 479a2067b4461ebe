// Package entitlement resolves what a user may do right now.
//
// An EffectiveEntitlement is computed per call from four collaborators that
// all read through one Store snapshot:
//
//   - Catalog: plans and their active prices, including the free plan that
//     must always exist.
//   - OverrideStore: per-user feature overrides that have not yet expired.
//   - UsageCounter: owned projects and issued feedback queries, counted by
//     walking query -> screen -> project -> owner.
//   - SubscriptionResolver: the newest active subscription, or a synthetic
//     free-plan default when there is none.
//
// Values are merged by Layers: the override layer is consulted before the
// plan layer and the first present value wins. Nothing is cached between
// calls and nothing is written back.
//
// Every predicate on *EffectiveEntitlement is nil-safe and returns false for
// a nil receiver, so callers that ignore an error still fail closed:
//
//	ent, err := engine.GetEffectiveEntitlement(ctx, userID)
//	if !entitlement.Allowed(ent, err, (*entitlement.EffectiveEntitlement).CanCreateProject) {
//		return fiber.ErrForbidden
//	}
package entitlement
