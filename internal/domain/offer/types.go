package offer

type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

func (s Side) String() string {
	return string(s)
}

func (s Side) IsValid() bool {
	switch s {
	case SideBid, SideAsk:
		return true
	default:
		return false
	}
}

func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

type Status string

const (
	StatusOpen      Status = "open"
	StatusMatched   Status = "matched"
	StatusSettled   Status = "settled"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusMatched, StatusSettled, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal is false for matched: that state only lives inside one
// serialized operation and always resolves to settled.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSettled, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

var transitions = map[Status][]Status{
	StatusOpen:    {StatusMatched, StatusCancelled, StatusExpired},
	StatusMatched: {StatusSettled},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Role selects which fee schedule a user account hands out.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func (s Side) Role() Role {
	if s == SideBid {
		return RoleBuyer
	}
	return RoleSeller
}
