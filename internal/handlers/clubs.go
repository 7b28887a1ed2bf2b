package handlers

import (
	"net/http"

	"anitrack/internal/models"
	"anitrack/internal/repository"
	"anitrack/internal/services"

	"github.com/labstack/echo/v4"
)

type memberRoleRequest struct {
	Role models.ClubRole `json:"role"`
}

func (h *Handler) ListClubs(c echo.Context) error {
	page, err := pageFrom(c)
	if err != nil {
		return err
	}

	clubs, err := h.svc.Clubs.List(c.Request().Context(), repository.ClubFilters{
		Query: c.QueryParam("q"),
		Page:  page,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, clubs, "")
}

func (h *Handler) CreateClub(c echo.Context) error {
	var in services.ClubInput
	if err := bind(c, &in); err != nil {
		return err
	}

	club, err := h.svc.Clubs.Create(c.Request().Context(), currentUser(c).ID, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, club, "club created")
}

func (h *Handler) GetClub(c echo.Context) error {
	club, err := h.svc.Clubs.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, club, "")
}

func (h *Handler) UpdateClub(c echo.Context) error {
	var in services.ClubInput
	if err := bind(c, &in); err != nil {
		return err
	}

	club, err := h.svc.Clubs.Update(c.Request().Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, club, "club updated")
}

func (h *Handler) DeleteClub(c echo.Context) error {
	user := currentUser(c)
	if err := h.svc.Clubs.Delete(c.Request().Context(), user.ID, c.Param("id"), user.IsAdmin()); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "club deleted")
}

func (h *Handler) JoinClub(c echo.Context) error {
	club, err := h.svc.Clubs.Join(c.Request().Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, club, "joined club")
}

func (h *Handler) LeaveClub(c echo.Context) error {
	if err := h.svc.Clubs.Leave(c.Request().Context(), currentUser(c).ID, c.Param("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "left club")
}

func (h *Handler) SetMemberRole(c echo.Context) error {
	var req memberRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	club, err := h.svc.Clubs.SetMemberRole(c.Request().Context(), currentUser(c).ID, c.Param("id"), c.Param("userId"), req.Role)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, club, "member role updated")
}

func (h *Handler) ListPosts(c echo.Context) error {
	page, err := pageFrom(c)
	if err != nil {
		return err
	}

	posts, err := h.svc.Clubs.Posts(c.Request().Context(), currentUser(c).ID, c.Param("id"), page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, posts, "")
}

func (h *Handler) CreatePost(c echo.Context) error {
	var in services.PostInput
	if err := bind(c, &in); err != nil {
		return err
	}

	post, err := h.svc.Clubs.CreatePost(c.Request().Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, post, "post created")
}

func (h *Handler) DeletePost(c echo.Context) error {
	user := currentUser(c)
	err := h.svc.Clubs.DeletePost(c.Request().Context(), user.ID, c.Param("id"), c.Param("postId"), user.IsAdmin())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "post deleted")
}

func (h *Handler) LikePost(c echo.Context) error {
	post, err := h.svc.Clubs.TogglePostLike(c.Request().Context(), currentUser(c).ID, c.Param("id"), c.Param("postId"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, post, "")
}

func (h *Handler) AddComment(c echo.Context) error {
	var in services.CommentInput
	if err := bind(c, &in); err != nil {
		return err
	}

	post, err := h.svc.Clubs.AddComment(c.Request().Context(), currentUser(c).ID, c.Param("id"), c.Param("postId"), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, post, "comment added")
}

func (h *Handler) ListPolls(c echo.Context) error {
	polls, err := h.svc.Clubs.Polls(c.Request().Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, polls, "")
}

func (h *Handler) CreatePoll(c echo.Context) error {
	var in services.PollInput
	if err := bind(c, &in); err != nil {
		return err
	}

	poll, err := h.svc.Clubs.CreatePoll(c.Request().Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, poll, "poll created")
}

func (h *Handler) Vote(c echo.Context) error {
	var in services.VoteInput
	if err := bind(c, &in); err != nil {
		return err
	}

	tally, err := h.svc.Clubs.Vote(c.Request().Context(), currentUser(c).ID, c.Param("id"), c.Param("pollId"), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, tally, "vote recorded")
}

func (h *Handler) PollResults(c echo.Context) error {
	tally, err := h.svc.Clubs.Results(c.Request().Context(), currentUser(c).ID, c.Param("id"), c.Param("pollId"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, tally, "")
}
