package datum

import (
	"fmt"

	"sundae-strategies/internal/plutus"
)

// IntervalBound is one end of a validity interval.
type IntervalBound struct {
	Type      BoundType
	Millis    uint64 // set when Type is BoundFinite
	Inclusive bool
}

// Interval is a time range in posix milliseconds.
type Interval struct {
	Lower IntervalBound
	Upper IntervalBound
}

// InclusiveRange returns [lower, upper] with both ends finite and inclusive.
func InclusiveRange(lowerMillis, upperMillis uint64) Interval {
	return Interval{
		Lower: IntervalBound{Type: BoundFinite, Millis: lowerMillis, Inclusive: true},
		Upper: IntervalBound{Type: BoundFinite, Millis: upperMillis, Inclusive: true},
	}
}

func (b IntervalBound) ToData() plutus.Data {
	var bound plutus.Data
	switch b.Type {
	case BoundFinite:
		bound = plutus.NewConstr(tagBoundFinite, plutus.NewUint(b.Millis))
	case BoundPositiveInfinity:
		bound = plutus.NewConstr(tagBoundPositiveInfinity)
	default:
		bound = plutus.NewConstr(tagBoundNegativeInfinity)
	}
	return plutus.NewConstr(tagRecord, bound, plutus.Bool(b.Inclusive))
}

func (b *IntervalBound) FromData(d plutus.Data) error {
	fields, err := plutus.ExpectConstr(d, tagRecord, 2)
	if err != nil {
		return fmt.Errorf("interval bound: %w", err)
	}
	bound, err := plutus.AsConstr(fields[0])
	if err != nil {
		return fmt.Errorf("interval bound type: %w", err)
	}
	var out IntervalBound
	switch {
	case bound.Tag == tagBoundFinite && len(bound.Fields) == 1:
		out.Type = BoundFinite
		if out.Millis, err = plutus.AsUint64(bound.Fields[0]); err != nil {
			return fmt.Errorf("interval bound time: %w", err)
		}
	case bound.Tag == tagBoundNegativeInfinity && len(bound.Fields) == 0:
		out.Type = BoundNegativeInfinity
	case bound.Tag == tagBoundPositiveInfinity && len(bound.Fields) == 0:
		out.Type = BoundPositiveInfinity
	default:
		return fmt.Errorf("interval bound type: unexpected constructor %d/%d", bound.Tag, len(bound.Fields))
	}
	if out.Inclusive, err = plutus.AsBool(fields[1]); err != nil {
		return fmt.Errorf("interval bound inclusive: %w", err)
	}
	*b = out
	return nil
}

func (i Interval) ToData() plutus.Data {
	return plutus.NewConstr(tagRecord, i.Lower.ToData(), i.Upper.ToData())
}

func (i *Interval) FromData(d plutus.Data) error {
	fields, err := plutus.ExpectConstr(d, tagRecord, 2)
	if err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	var out Interval
	if err := out.Lower.FromData(fields[0]); err != nil {
		return err
	}
	if err := out.Upper.FromData(fields[1]); err != nil {
		return err
	}
	*i = out
	return nil
}
