package bounds

const (
	ErrTypeUnresolvableBounds = "bounds_unresolvable"
	ErrTypeDegenerateBounds   = "bounds_degenerate"
	ErrTypeInvalidTransform   = "transform_invalid"
)

// FallbackReason tells why a resolved volume is an estimate.
type FallbackReason string

const (
	FallbackNone         FallbackReason = ""
	FallbackUnresolvable FallbackReason = "unresolvable"
	FallbackDegenerate   FallbackReason = "degenerate"
)
