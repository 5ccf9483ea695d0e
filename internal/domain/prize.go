package domain

// PrizeTier is a host-submitted award category.
type PrizeTier string

const (
	TierParticipation PrizeTier = "Participation"
	TierWinner        PrizeTier = "Winner"
	TierSecond        PrizeTier = "Second"
	TierThird         PrizeTier = "Third"
)

// Points awarded per settled tier. Points only ever accumulate.
var TierPoints = map[PrizeTier]int{
	TierParticipation: 10,
	TierThird:         20,
	TierSecond:        30,
	TierWinner:        50,
}

func (t PrizeTier) Valid() bool {
	_, ok := TierPoints[t]
	return ok
}

// Prize is one (member, tier) pair of an award list.
type Prize struct {
	User UserID    `json:"user" msgpack:"user"`
	Tier PrizeTier `json:"tier" msgpack:"tier"`
}
