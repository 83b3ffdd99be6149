package datum

// Constructor indices, shared by encoders and decoders.
const (
	// record types have a single constructor
	tagRecord uint64 = 0

	tagOrderStrategy uint64 = 0
	tagOrderSwap     uint64 = 1

	tagAuthSignature uint64 = 0

	tagDestinationFixed uint64 = 0
	tagDestinationSelf  uint64 = 1

	tagBoundNegativeInfinity uint64 = 0
	tagBoundFinite           uint64 = 1
	tagBoundPositiveInfinity uint64 = 2
)

// MultisigKind is the constructor of a MultisigScript.
type MultisigKind uint64

const (
	MultisigSignature MultisigKind = iota
	MultisigAllOf
	MultisigAnyOf
	MultisigAtLeast
	MultisigBefore
	MultisigAfter
	MultisigScriptHash
)

// OrderKind is the constructor of an Order.
type OrderKind uint64

const (
	OrderStrategy = OrderKind(tagOrderStrategy)
	OrderSwap     = OrderKind(tagOrderSwap)
)

// DestinationKind is the constructor of a Destination.
type DestinationKind uint64

const (
	DestinationFixed = DestinationKind(tagDestinationFixed)
	DestinationSelf  = DestinationKind(tagDestinationSelf)
)

// BoundType is the constructor of an IntervalBound's bound type.
type BoundType uint64

const (
	BoundNegativeInfinity = BoundType(tagBoundNegativeInfinity)
	BoundFinite           = BoundType(tagBoundFinite)
	BoundPositiveInfinity = BoundType(tagBoundPositiveInfinity)
)
