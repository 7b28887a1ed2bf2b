package services

import (
	"testing"
	"time"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClubService_CreateMakesCreatorAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	club, err := env.clubs.Create(ctx, alice.ID, ClubInput{Name: "  Mecha Fans!  ", Description: "giant robots"})
	require.NoError(t, err)
	assert.Equal(t, "Mecha Fans!", club.Name)
	assert.Equal(t, "mecha-fans", club.Slug)
	require.Len(t, club.Members, 1)
	assert.Equal(t, models.ClubRoleAdmin, club.Members[0].Role)
	assert.Equal(t, "alice", club.Members[0].Username)

	_, err = env.clubs.Create(ctx, alice.ID, ClubInput{Name: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	clubs, err := env.clubs.List(ctx, repository.ClubFilters{Query: "mecha"})
	require.NoError(t, err)
	assert.Len(t, clubs, 1)
}

func TestClubService_Membership(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	club, err := env.clubs.Create(ctx, alice.ID, ClubInput{Name: "Slice of Life"})
	require.NoError(t, err)

	club, err = env.clubs.Join(ctx, bob.ID, club.ID)
	require.NoError(t, err)
	assert.Len(t, club.Members, 2)

	_, err = env.clubs.Join(ctx, bob.ID, club.ID)
	assert.ErrorIs(t, err, ErrConflict)

	err = env.clubs.Leave(ctx, alice.ID, club.ID)
	assert.ErrorIs(t, err, ErrConflict, "the last admin cannot leave")

	_, err = env.clubs.SetMemberRole(ctx, bob.ID, club.ID, bob.ID, models.ClubRoleAdmin)
	assert.ErrorIs(t, err, ErrForbidden)

	club, err = env.clubs.SetMemberRole(ctx, alice.ID, club.ID, bob.ID, models.ClubRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, club.AdminCount())

	require.NoError(t, env.clubs.Leave(ctx, alice.ID, club.ID))
	assert.ErrorIs(t, env.clubs.Leave(ctx, alice.ID, club.ID), ErrNotFound)

	_, err = env.clubs.SetMemberRole(ctx, bob.ID, club.ID, bob.ID, models.ClubRoleMember)
	assert.ErrorIs(t, err, ErrConflict, "demoting the last admin")
}

func TestClubService_PrivateClub(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	club, err := env.clubs.Create(ctx, alice.ID, ClubInput{Name: "Secret Society", IsPrivate: true})
	require.NoError(t, err)

	_, err = env.clubs.Join(ctx, bob.ID, club.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.clubs.Posts(ctx, bob.ID, club.ID, models.Page{})
	assert.ErrorIs(t, err, ErrForbidden)

	posts, err := env.clubs.Posts(ctx, alice.ID, club.ID, models.Page{})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestClubService_UpdateAndDeletePermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	club, err := env.clubs.Create(ctx, alice.ID, ClubInput{Name: "Shonen Club"})
	require.NoError(t, err)
	_, err = env.clubs.Join(ctx, bob.ID, club.ID)
	require.NoError(t, err)

	_, err = env.clubs.Update(ctx, bob.ID, club.ID, ClubInput{Name: "Bob's Club"})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := env.clubs.Update(ctx, alice.ID, club.ID, ClubInput{Name: "Shonen Jump Club"})
	require.NoError(t, err)
	assert.Equal(t, "shonen-jump-club", updated.Slug)

	assert.ErrorIs(t, env.clubs.Delete(ctx, bob.ID, club.ID, false), ErrForbidden)
	require.NoError(t, env.clubs.Delete(ctx, bob.ID, club.ID, true))

	_, err = env.clubs.Get(ctx, club.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClubService_Posts(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	carol := env.user(t, "carol")

	club, err := env.clubs.Create(ctx, alice.ID, ClubInput{Name: "Isekai Corner"})
	require.NoError(t, err)
	_, err = env.clubs.Join(ctx, bob.ID, club.ID)
	require.NoError(t, err)

	_, err = env.clubs.CreatePost(ctx, carol.ID, club.ID, PostInput{Title: "hi", Content: "hello"})
	assert.ErrorIs(t, err, ErrForbidden)

	post, err := env.clubs.CreatePost(ctx, bob.ID, club.ID, PostInput{Title: "Truck-kun", Content: "Best isekai intro?"})
	require.NoError(t, err)
	assert.Equal(t, "bob", post.Username)

	post, err = env.clubs.TogglePostLike(ctx, alice.ID, club.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, post.Likes)

	post, err = env.clubs.AddComment(ctx, alice.ID, club.ID, post.ID, CommentInput{Content: "Re:Zero, obviously"})
	require.NoError(t, err)
	require.Len(t, post.Comments, 1)
	assert.Equal(t, "alice", post.Comments[0].Username)

	_, err = env.clubs.AddComment(ctx, alice.ID, club.ID, post.ID, CommentInput{Content: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	// the club admin moderates a member's post
	require.NoError(t, env.clubs.DeletePost(ctx, alice.ID, club.ID, post.ID, false))
	assert.ErrorIs(t, env.clubs.DeletePost(ctx, alice.ID, club.ID, post.ID, false), ErrNotFound)
}

func TestClubService_SingleChoiceVoteReplaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	club, err := env.clubs.Create(ctx, alice.ID, ClubInput{Name: "Season Picks"})
	require.NoError(t, err)

	poll, err := env.clubs.CreatePoll(ctx, alice.ID, club.ID, PollInput{Question: "Best of the season?", Options: []string{"Frieren", " ", "Dandadan"}})
	require.NoError(t, err)
	require.Len(t, poll.Options, 2)

	first, second := poll.Options[0].ID, poll.Options[1].ID

	tally, err := env.clubs.Vote(ctx, alice.ID, club.ID, poll.ID, VoteInput{OptionID: first})
	require.NoError(t, err)
	assert.Equal(t, []string{first}, tally.MyVotes)

	tally, err = env.clubs.Vote(ctx, alice.ID, club.ID, poll.ID, VoteInput{OptionID: second})
	require.NoError(t, err)
	assert.Equal(t, []string{second}, tally.MyVotes)
	assert.Equal(t, 1, tally.TotalVotes)
	assert.Equal(t, 1, tally.UniqueVoters)

	_, err = env.clubs.Vote(ctx, alice.ID, club.ID, poll.ID, VoteInput{OptionID: "nope"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClubService_MultipleChoiceVoteToggles(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	club, err := env.clubs.Create(ctx, alice.ID, ClubInput{Name: "Watch Party"})
	require.NoError(t, err)
	_, err = env.clubs.Join(ctx, bob.ID, club.ID)
	require.NoError(t, err)

	poll, err := env.clubs.CreatePoll(ctx, alice.ID, club.ID, PollInput{Question: "Which nights?", Options: []string{"Fri", "Sat", "Sun"}, AllowMultiple: true})
	require.NoError(t, err)
	fri, sat := poll.Options[0].ID, poll.Options[1].ID

	_, err = env.clubs.Vote(ctx, alice.ID, club.ID, poll.ID, VoteInput{OptionID: fri})
	require.NoError(t, err)
	tally, err := env.clubs.Vote(ctx, alice.ID, club.ID, poll.ID, VoteInput{OptionID: sat})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{fri, sat}, tally.MyVotes)

	_, err = env.clubs.Vote(ctx, bob.ID, club.ID, poll.ID, VoteInput{OptionID: sat})
	require.NoError(t, err)

	tally, err = env.clubs.Vote(ctx, alice.ID, club.ID, poll.ID, VoteInput{OptionID: fri})
	require.NoError(t, err)
	assert.Equal(t, []string{sat}, tally.MyVotes)
	assert.Equal(t, 2, tally.TotalVotes)
	assert.Equal(t, 2, tally.UniqueVoters)

	tallies, err := env.analytics.ClubPolls(ctx, bob.ID, club.ID)
	require.NoError(t, err)
	require.Len(t, tallies, 1)
	assert.Equal(t, []string{sat}, tallies[0].MyVotes)
}

func TestClubService_PollRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	club, err := env.clubs.Create(ctx, alice.ID, ClubInput{Name: "Rules Club"})
	require.NoError(t, err)

	_, err = env.clubs.CreatePoll(ctx, alice.ID, club.ID, PollInput{Question: "One?", Options: []string{"only"}})
	assert.ErrorIs(t, err, ErrValidation)

	past := testNow.Add(-time.Hour)
	_, err = env.clubs.CreatePoll(ctx, alice.ID, club.ID, PollInput{Question: "Late?", Options: []string{"a", "b"}, EndsAt: &past})
	assert.ErrorIs(t, err, ErrValidation)

	ends := testNow.Add(time.Hour)
	poll, err := env.clubs.CreatePoll(ctx, alice.ID, club.ID, PollInput{Question: "Soon?", Options: []string{"a", "b"}, EndsAt: &ends})
	require.NoError(t, err)

	env.clubs.now = func() time.Time { return ends }
	_, err = env.clubs.Vote(ctx, alice.ID, club.ID, poll.ID, VoteInput{OptionID: poll.Options[0].ID})
	assert.ErrorIs(t, err, ErrValidation)

	tally, err := env.clubs.Results(ctx, alice.ID, club.ID, poll.ID)
	require.NoError(t, err)
	assert.True(t, tally.Closed)
}
