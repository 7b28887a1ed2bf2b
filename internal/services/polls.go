package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"anitrack/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	minPollOptions  = 2
	maxPollOptions  = 10
	maxPollQuestion = 300
	maxOptionText   = 200
)

type PollInput struct {
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	AllowMultiple bool       `json:"allowMultiple"`
	EndsAt        *time.Time `json:"endsAt"`
}

type VoteInput struct {
	OptionID string `json:"optionId"`
}

func (s *ClubService) Polls(ctx context.Context, userID, clubID string) ([]*models.Poll, error) {
	if _, err := s.visible(ctx, userID, clubID); err != nil {
		return nil, err
	}

	polls, err := s.polls.ListByClub(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if polls == nil {
		polls = []*models.Poll{}
	}
	return polls, nil
}

func (s *ClubService) CreatePoll(ctx context.Context, userID, clubID string, in PollInput) (*models.Poll, error) {
	if _, _, err := s.membership(ctx, userID, clubID); err != nil {
		return nil, err
	}

	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, invalid("question is required")
	}
	if utf8.RuneCountInString(question) > maxPollQuestion {
		return nil, invalid("question must be at most %d characters", maxPollQuestion)
	}

	var texts []string
	for _, o := range in.Options {
		if o = strings.TrimSpace(o); o != "" {
			texts = append(texts, o)
		}
	}
	if len(texts) < minPollOptions || len(texts) > maxPollOptions {
		return nil, invalid("a poll needs between %d and %d options", minPollOptions, maxPollOptions)
	}
	for _, t := range texts {
		if utf8.RuneCountInString(t) > maxOptionText {
			return nil, invalid("options must be at most %d characters", maxOptionText)
		}
	}
	if in.EndsAt != nil && !in.EndsAt.After(s.now()) {
		return nil, invalid("endsAt must be in the future")
	}

	poll := &models.Poll{
		ID:            uuid.NewString(),
		ClubID:        clubID,
		AuthorID:      userID,
		Question:      question,
		AllowMultiple: in.AllowMultiple,
		EndsAt:        in.EndsAt,
		Options:       make([]models.PollOption, 0, len(texts)),
	}
	for _, t := range texts {
		poll.Options = append(poll.Options, models.PollOption{
			ID:    uuid.NewString(),
			Text:  t,
			Votes: []models.PollVote{},
		})
	}

	if err := s.polls.Create(ctx, poll); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"poll_id": poll.ID,
		"club_id": clubID,
		"options": len(poll.Options),
	}).Info("Poll created")

	return poll, nil
}

// Vote applies one vote. Single-choice polls replace the voter's previous
// choice; multiple-choice polls toggle the chosen option.
func (s *ClubService) Vote(ctx context.Context, userID, clubID, pollID string, in VoteInput) (*models.PollTally, error) {
	if _, _, err := s.membership(ctx, userID, clubID); err != nil {
		return nil, err
	}

	poll, err := s.poll(ctx, clubID, pollID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if poll.ClosedAt(now) {
		return nil, invalid("this poll has ended")
	}
	if _, ok := poll.Option(in.OptionID); !ok {
		return nil, invalid("unknown option %q", in.OptionID)
	}

	current := poll.VotedOptions(userID)
	var next []string
	switch {
	case !poll.AllowMultiple:
		next = []string{in.OptionID}
	case slices.Contains(current, in.OptionID):
		next = slices.DeleteFunc(slices.Clone(current), func(id string) bool { return id == in.OptionID })
	default:
		next = append(slices.Clone(current), in.OptionID)
	}

	if err := s.polls.SetVotes(ctx, pollID, userID, next, now); err != nil {
		return nil, err
	}

	updated, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	tally := updated.Tally(userID, now)
	return &tally, nil
}

func (s *ClubService) Results(ctx context.Context, userID, clubID, pollID string) (*models.PollTally, error) {
	if _, err := s.visible(ctx, userID, clubID); err != nil {
		return nil, err
	}

	poll, err := s.poll(ctx, clubID, pollID)
	if err != nil {
		return nil, err
	}
	tally := poll.Tally(userID, s.now())
	return &tally, nil
}

// Tallies returns the results of every poll in the club, newest first.
func (s *ClubService) Tallies(ctx context.Context, userID, clubID string) ([]models.PollTally, error) {
	polls, err := s.Polls(ctx, userID, clubID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	tallies := make([]models.PollTally, 0, len(polls))
	for _, p := range polls {
		tallies = append(tallies, p.Tally(userID, now))
	}
	return tallies, nil
}

func (s *ClubService) poll(ctx context.Context, clubID, pollID string) (*models.Poll, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.ClubID != clubID {
		return nil, fmt.Errorf("poll not found in this club: %w", ErrNotFound)
	}
	return poll, nil
}
