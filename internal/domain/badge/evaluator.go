package badge

// Progress is the user state badge thresholds are checked against.
type Progress struct {
	Points int
	Streak int
}

// IsSatisfiedBy reports whether progress meets the badge threshold.
// Tasks-kind and unknown kinds are never satisfied.
func (b *Badge) IsSatisfiedBy(p Progress) bool {
	switch b.Kind {
	case KindPoints:
		return p.Points >= b.Requirement
	case KindStreak:
		return p.Streak >= b.Requirement
	default:
		return false
	}
}

// Evaluate returns the definitions the user qualifies for and does not own
// yet. Each badge appears at most once, in catalog order.
func Evaluate(p Progress, definitions []*Badge, owned []*UserBadge) []*Badge {
	have := make(map[string]bool, len(owned))
	for _, ub := range owned {
		have[ub.BadgeID] = true
	}

	var earned []*Badge
	for _, def := range definitions {
		if def == nil || have[def.ID] {
			continue
		}
		if def.IsSatisfiedBy(p) {
			earned = append(earned, def)
			have[def.ID] = true
		}
	}
	return earned
}
