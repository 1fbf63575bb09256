package models

import "time"

// Side identifies one of the two options of a poll.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// VoteOutcome reports which branch a vote toggle took.
type VoteOutcome int

const (
	Voted VoteOutcome = iota + 1
	Unvoted
)

func (o VoteOutcome) String() string {
	switch o {
	case Voted:
		return "voted"
	case Unvoted:
		return "unvoted"
	}
	return "unknown"
}

// Request types

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OptionAInput struct {
	Label    string `json:"poll_A" validate:"required,max=50"`
	ImageURL string `json:"image_A" validate:"required,url"`
}

type OptionBInput struct {
	Label    string `json:"poll_B" validate:"required,max=50"`
	ImageURL string `json:"image_B" validate:"required,url"`
}

// CreatePollRequest accepts either the nested voting_a_poll / voting_b_poll
// objects or the flat poll_A, image_A, poll_B, image_B fields.
type CreatePollRequest struct {
	VotingA *OptionAInput `json:"voting_a_poll"`
	VotingB *OptionBInput `json:"voting_b_poll"`
	PollA   string        `json:"poll_A"`
	ImageA  string        `json:"image_A"`
	PollB   string        `json:"poll_B"`
	ImageB  string        `json:"image_B"`
}

// Options resolves the two option payloads, preferring the nested form.
func (r CreatePollRequest) Options() (OptionAInput, OptionBInput) {
	a := OptionAInput{Label: r.PollA, ImageURL: r.ImageA}
	if r.VotingA != nil {
		a = *r.VotingA
	}
	b := OptionBInput{Label: r.PollB, ImageURL: r.ImageB}
	if r.VotingB != nil {
		b = *r.VotingB
	}
	return a, b
}

// UpdatePollRequest only touches the ended flag. poll_expired is the key the
// web client sends.
type UpdatePollRequest struct {
	HasEnded *bool `json:"poll_has_ended"`
	Expired  *bool `json:"poll_expired"`
}

// Ended returns the requested flag value, if any.
func (r UpdatePollRequest) Ended() (bool, bool) {
	if r.HasEnded != nil {
		return *r.HasEnded, true
	}
	if r.Expired != nil {
		return *r.Expired, true
	}
	return false, false
}

// Response types

type MessageResponse struct {
	Message string `json:"message"`
}

type AuthStatus struct {
	CSRF            string  `json:"csrf"`
	IsAuthenticated bool    `json:"IsAuthenticated"`
	Username        *string `json:"username"`
}

type AuthStatusResponse struct {
	Message AuthStatus `json:"message"`
}

type OptionAResult struct {
	OptionID string  `json:"poll_id"`
	Label    string  `json:"poll_A"`
	ImageURL string  `json:"image_A"`
	Votes    int     `json:"vote_A"`
	Voters   []Voter `json:"voter"`
}

type OptionBResult struct {
	OptionID string  `json:"poll_id"`
	Label    string  `json:"poll_B"`
	ImageURL string  `json:"image_B"`
	Votes    int     `json:"vote_B"`
	Voters   []Voter `json:"voter"`
}

type PollResult struct {
	PollID   string        `json:"voting_poll_id"`
	DueDate  string        `json:"poll_due_date"`
	HasEnded bool          `json:"poll_has_ended"`
	Author   string        `json:"author"`
	PollA    OptionAResult `json:"poll_a"`
	PollB    OptionBResult `json:"poll_b"`
}

type PollResultResponse struct {
	Message PollResult `json:"message"`
}

type PollListResponse struct {
	Polls []PollResult `json:"polls"`
}

// NewPollResult projects a stored poll onto the public result payload.
func NewPollResult(d PollDetail) PollResult {
	return PollResult{
		PollID:   d.Poll.ID,
		DueDate:  d.Poll.DueDate.Format(time.DateOnly),
		HasEnded: d.Poll.HasEnded,
		Author:   d.Poll.AuthorID,
		PollA: OptionAResult{
			OptionID: d.A.ID,
			Label:    d.A.Label,
			ImageURL: d.A.ImageURL,
			Votes:    d.A.VoteCount,
			Voters:   nonNilVoters(d.A.Voters),
		},
		PollB: OptionBResult{
			OptionID: d.B.ID,
			Label:    d.B.Label,
			ImageURL: d.B.ImageURL,
			Votes:    d.B.VoteCount,
			Voters:   nonNilVoters(d.B.Voters),
		},
	}
}

func nonNilVoters(v []Voter) []Voter {
	if v == nil {
		return []Voter{}
	}
	return v
}

// Domain types

type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	DateJoined   time.Time `db:"date_joined"`
}

type Poll struct {
	ID        string    `db:"id"`
	AuthorID  string    `db:"author_id"`
	DueDate   time.Time `db:"due_date"`
	HasEnded  bool      `db:"has_ended"`
	CreatedAt time.Time `db:"created_at"`
}

type Option struct {
	ID        string  `db:"id"`
	PollID    string  `db:"poll_id"`
	Side      Side    `db:"side"`
	Label     string  `db:"label"`
	ImageURL  string  `db:"image_url"`
	VoteCount int     `db:"vote_count"`
	Voters    []Voter `db:"-"`
}

// NewOption is the validated payload for one side of a new poll.
type NewOption struct {
	Label    string
	ImageURL string
}

type Voter struct {
	ID       string `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
}

// PollDetail is a poll with both of its options and their voter sets.
type PollDetail struct {
	Poll Poll
	A    Option
	B    Option
}

type OutstandingToken struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	JTI       string    `db:"jti"`
	Token     string    `db:"token"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// LedgerEntry is an outstanding refresh token as seen by validation.
type LedgerEntry struct {
	OutstandingToken
	Username    string `db:"username"`
	Blacklisted bool   `db:"-"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ValidationErrorResponse carries field-level detail for 400 responses.
type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields"`
}
