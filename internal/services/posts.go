package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"anitrack/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	maxPostTitle   = 200
	maxPostContent = 10000
	maxComment     = 2000
)

type PostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type CommentInput struct {
	Content string `json:"content"`
}

func (s *ClubService) Posts(ctx context.Context, userID, clubID string, page models.Page) ([]*models.Post, error) {
	if _, err := s.visible(ctx, userID, clubID); err != nil {
		return nil, err
	}

	posts, err := s.posts.ListByClub(ctx, clubID, page)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *ClubService) CreatePost(ctx context.Context, userID, clubID string, in PostInput) (*models.Post, error) {
	if _, _, err := s.membership(ctx, userID, clubID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	switch {
	case title == "":
		return nil, invalid("title is required")
	case utf8.RuneCountInString(title) > maxPostTitle:
		return nil, invalid("title must be at most %d characters", maxPostTitle)
	case content == "":
		return nil, invalid("content is required")
	case utf8.RuneCountInString(content) > maxPostContent:
		return nil, invalid("content must be at most %d characters", maxPostContent)
	}

	post := &models.Post{
		ID:       uuid.NewString(),
		ClubID:   clubID,
		AuthorID: userID,
		Title:    title,
		Content:  content,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"post_id": post.ID,
		"club_id": clubID,
		"user_id": userID,
	}).Info("Post created")

	return s.posts.GetByID(ctx, post.ID)
}

// DeletePost allows the author, a club moderator or admin, or a site admin.
func (s *ClubService) DeletePost(ctx context.Context, userID, clubID, postID string, asAdmin bool) error {
	post, err := s.post(ctx, clubID, postID)
	if err != nil {
		return err
	}

	if !asAdmin && post.AuthorID != userID {
		club, err := s.clubs.GetByID(ctx, post.ClubID)
		if err != nil {
			return err
		}
		if m, ok := club.Member(userID); !ok || !m.Role.CanModerate() {
			return forbidden("only the author or a club moderator can delete this post")
		}
	}

	return s.posts.Delete(ctx, postID)
}

// DeletePostByID is the site-admin path, which has no club in the route.
func (s *ClubService) DeletePostByID(ctx context.Context, postID string) error {
	return s.DeletePost(ctx, "", "", postID, true)
}

func (s *ClubService) TogglePostLike(ctx context.Context, userID, clubID, postID string) (*models.Post, error) {
	if _, _, err := s.membership(ctx, userID, clubID); err != nil {
		return nil, err
	}
	if _, err := s.post(ctx, clubID, postID); err != nil {
		return nil, err
	}

	if _, err := s.posts.ToggleLike(ctx, postID, userID); err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, postID)
}

func (s *ClubService) AddComment(ctx context.Context, userID, clubID, postID string, in CommentInput) (*models.Post, error) {
	if _, _, err := s.membership(ctx, userID, clubID); err != nil {
		return nil, err
	}
	if _, err := s.post(ctx, clubID, postID); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, invalid("comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxComment {
		return nil, invalid("comment must be at most %d characters", maxComment)
	}

	comment := &models.Comment{
		ID:       uuid.NewString(),
		PostID:   postID,
		AuthorID: userID,
		Content:  content,
	}
	if err := s.posts.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, postID)
}

// post loads a post and, when clubID is set, checks it belongs to that club.
func (s *ClubService) post(ctx context.Context, clubID, postID string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if clubID != "" && post.ClubID != clubID {
		return nil, fmt.Errorf("post not found in this club: %w", ErrNotFound)
	}
	return post, nil
}
