package domain

// BitrateTier is a coarse resolution bucket driving the bitrate policy.
type BitrateTier string

const (
	Tier4K  BitrateTier = "4K"
	TierFHD BitrateTier = "FHD"
	TierSD  BitrateTier = "SD"
)

// PolicyResult is the outcome of classifying a source video.
type PolicyResult struct {
	Tier              BitrateTier `json:"tier"`
	NeedsHighBitrate  bool        `json:"needsHighBitrate"`
	TargetBitrateKbps int         `json:"targetBitrateKbps"`
}

// tierLimits maps a tier to its bitrate ceiling and the target used when the
// ceiling is exceeded, both in kbps.
var tierLimits = map[BitrateTier]struct{ limit, target int }{
	Tier4K:  {limit: 50000, target: 35000},
	TierFHD: {limit: 20000, target: 15000},
	TierSD:  {limit: 15000, target: 10000},
}

// ClassifyBitrate decides whether a source needs a bitrate-capped
// streaming-high derivative. Tier boundaries are inclusive on the lower
// bound. A height of zero or less means the probe could not determine it;
// those sources default to the FHD tier.
func ClassifyBitrate(heightPx, bitrateKbps int) PolicyResult {
	var tier BitrateTier
	switch {
	case heightPx >= 2160:
		tier = Tier4K
	case heightPx >= 1080:
		tier = TierFHD
	case heightPx <= 0:
		tier = TierFHD
	default:
		tier = TierSD
	}

	limits := tierLimits[tier]
	return PolicyResult{
		Tier:              tier,
		NeedsHighBitrate:  bitrateKbps > limits.limit,
		TargetBitrateKbps: limits.target,
	}
}
