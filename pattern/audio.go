package pattern

import (
	"math"

	"github.com/google/uuid"
)

// AssetID references an audio asset owned outside the pool.
type AssetID uuid.UUID

// NoAsset is the zero asset reference.
var NoAsset AssetID

// NewAssetID returns a random asset id.
func NewAssetID() AssetID {
	return AssetID(uuid.New())
}

// ParseAssetID parses the canonical UUID text form.
func ParseAssetID(s string) (AssetID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NoAsset, err
	}
	return AssetID(u), nil
}

func (a AssetID) String() string {
	return uuid.UUID(a).String()
}

func (a AssetID) MarshalText() ([]byte, error) {
	return uuid.UUID(a).MarshalText()
}

func (a *AssetID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(a).UnmarshalText(data)
}

// AudioSlicePayload plays a region of an audio asset. PitchShift of 0 means
// no shift; Gain of 0 means unity.
type AudioSlicePayload struct {
	Asset      AssetID `json:"asset"`
	Start      int64   `json:"start"`  // samples
	Length     int64   `json:"length"` // samples
	PitchShift float64 `json:"pitchShift,omitempty"`
	Gain       float64 `json:"gain,omitempty"`
}

// End returns the first sample after the slice.
func (a AudioSlicePayload) End() int64 {
	return a.Start + a.Length
}

// EffectiveGain returns the linear gain to apply (1 when unset).
func (a AudioSlicePayload) EffectiveGain() float64 {
	if a.Gain == 0 {
		return 1
	}
	return a.Gain
}

// PitchRatio converts PitchShift to a playback-rate ratio.
func (a AudioSlicePayload) PitchRatio() float64 {
	return math.Exp2(a.PitchShift / 12)
}

// Validate checks the slice bounds and optional parameters.
func (a AudioSlicePayload) Validate() error {
	switch {
	case a.Asset == NoAsset:
		return invalidf("audio slice has no asset")
	case a.Start < 0:
		return invalidf("slice start %d must be non-negative", a.Start)
	case a.Length <= 0:
		return invalidf("slice length %d must be positive", a.Length)
	case math.IsNaN(a.PitchShift) || math.IsInf(a.PitchShift, 0):
		return invalidf("pitch shift %g is not finite", a.PitchShift)
	case math.IsNaN(a.Gain) || math.IsInf(a.Gain, 0) || a.Gain < 0:
		return invalidf("gain %g must be positive", a.Gain)
	}
	return nil
}
