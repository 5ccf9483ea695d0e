package core

import (
	"github.com/someonesays/roomserver/internal/domain"
)

// SettlePrizes reconciles a host-submitted award list into the
// canonical top-3 + participation outcome. Pure: the only input beyond
// the submission is the membership predicate.
//
// Rules, in order:
//   - an unknown tier or a duplicate member id fails the whole request
//   - more than one Winner, Second or Third fails the whole request
//   - entries for users no longer in the room are dropped
//   - a lone Third is promoted to Second; an original Second without a
//     Winner is promoted to Winner; Participation entries pass through
//     unchanged and never promote
//
// The returned list is ordered Winner, Second, Third, then
// Participation entries in submission order. That canonical list, not
// the raw submission, is what gets broadcast.
func SettlePrizes(submitted []domain.Prize, isMember func(domain.UserID) bool) ([]domain.Prize, *domain.RoomError) {
	seen := make(map[domain.UserID]struct{}, len(submitted))
	tierCount := make(map[domain.PrizeTier]int, 4)
	for _, p := range submitted {
		if !p.Tier.Valid() {
			return nil, domain.NewRoomError(domain.CodeInvalidPrizes, "unknown prize tier")
		}
		if _, dup := seen[p.User]; dup {
			return nil, domain.NewRoomError(domain.CodeInvalidPrizes, "duplicate member in prize list")
		}
		seen[p.User] = struct{}{}
		tierCount[p.Tier]++
	}
	for _, tier := range []domain.PrizeTier{domain.TierWinner, domain.TierSecond, domain.TierThird} {
		if tierCount[tier] > 1 {
			return nil, domain.NewRoomError(domain.CodeInvalidPrizes, "multiple "+string(tier)+" entries")
		}
	}

	var winner, second, third *domain.UserID
	participation := make([]domain.Prize, 0, len(submitted))
	for _, p := range submitted {
		if !isMember(p.User) {
			continue
		}
		user := p.User
		switch p.Tier {
		case domain.TierWinner:
			winner = &user
		case domain.TierSecond:
			second = &user
		case domain.TierThird:
			third = &user
		default:
			participation = append(participation, domain.Prize{User: user, Tier: domain.TierParticipation})
		}
	}

	// The two promotions are mutually exclusive (one keys on Second
	// being absent, the other on it being present), so an entry is
	// promoted at most one step: a lone Third settles as Second, never
	// as Winner.
	if second == nil && third != nil {
		second, third = third, nil
	} else if winner == nil && second != nil {
		winner, second = second, nil
	}

	settled := make([]domain.Prize, 0, len(submitted))
	if winner != nil {
		settled = append(settled, domain.Prize{User: *winner, Tier: domain.TierWinner})
	}
	if second != nil {
		settled = append(settled, domain.Prize{User: *second, Tier: domain.TierSecond})
	}
	if third != nil {
		settled = append(settled, domain.Prize{User: *third, Tier: domain.TierThird})
	}
	return append(settled, participation...), nil
}
