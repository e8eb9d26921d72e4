package domain

// TripID identifies a scheduled trip. Values are time-based tokens ("trip-<unix ms>").
type TripID string

// ProfileID identifies a match candidate returned by the matching service.
// Candidates are fictitious and ephemeral; the ID is only unique within one result set.
type ProfileID string

// RouteID identifies a generated route option within one search result.
type RouteID string

// GroupID identifies a buddy-matching group formed in the Connect flow.
type GroupID string
