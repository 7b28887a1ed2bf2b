package models

import "time"

type PollVote struct {
	UserID  string    `json:"userId" db:"user_id"`
	VotedAt time.Time `json:"votedAt" db:"voted_at"`
}

type PollOption struct {
	ID    string     `json:"id" db:"id"`
	Text  string     `json:"text" db:"text"`
	Votes []PollVote `json:"votes" db:"-"`
}

type Poll struct {
	ID            string       `json:"id" db:"id"`
	ClubID        string       `json:"clubId" db:"club_id"`
	AuthorID      string       `json:"authorId" db:"author_id"`
	Question      string       `json:"question" db:"question"`
	AllowMultiple bool         `json:"allowMultiple" db:"allow_multiple"`
	EndsAt        *time.Time   `json:"endsAt,omitempty" db:"ends_at"`
	Options       []PollOption `json:"options" db:"-"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
}

func (p *Poll) ClosedAt(now time.Time) bool {
	return p.EndsAt != nil && !now.Before(*p.EndsAt)
}

func (p *Poll) Option(optionID string) (*PollOption, bool) {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return &p.Options[i], true
		}
	}
	return nil, false
}

// VotedOptions returns the ids of options userID has a vote on.
func (p *Poll) VotedOptions(userID string) []string {
	var ids []string
	for _, o := range p.Options {
		for _, v := range o.Votes {
			if v.UserID == userID {
				ids = append(ids, o.ID)
				break
			}
		}
	}
	return ids
}

type OptionTally struct {
	OptionID   string  `json:"optionId"`
	Text       string  `json:"text"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type PollTally struct {
	PollID       string        `json:"pollId"`
	Question     string        `json:"question"`
	Options      []OptionTally `json:"options"`
	TotalVotes   int           `json:"totalVotes"`
	UniqueVoters int           `json:"uniqueVoters"`
	Closed       bool          `json:"closed"`
	MyVotes      []string      `json:"myVotes"`
}

// Tally reduces the poll's votes into per-option counts and percentages.
// viewerID may be empty. With multiple choice a voter can appear under several
// options, so UniqueVoters can be lower than TotalVotes.
func (p *Poll) Tally(viewerID string, now time.Time) PollTally {
	t := PollTally{
		PollID:   p.ID,
		Question: p.Question,
		Options:  make([]OptionTally, 0, len(p.Options)),
		Closed:   p.ClosedAt(now),
		MyVotes:  []string{},
	}

	voters := make(map[string]struct{})
	for _, o := range p.Options {
		t.TotalVotes += len(o.Votes)
		for _, v := range o.Votes {
			voters[v.UserID] = struct{}{}
		}
	}
	t.UniqueVoters = len(voters)

	for _, o := range p.Options {
		ot := OptionTally{OptionID: o.ID, Text: o.Text, Votes: len(o.Votes)}
		if t.TotalVotes > 0 {
			ot.Percentage = float64(ot.Votes) / float64(t.TotalVotes) * 100
		}
		t.Options = append(t.Options, ot)
	}

	if viewerID != "" {
		if mine := p.VotedOptions(viewerID); mine != nil {
			t.MyVotes = mine
		}
	}

	return t
}
