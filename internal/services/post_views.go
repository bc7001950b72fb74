package services

import (
	"context"
	"fmt"

	"social-go/internal/models"
	"social-go/internal/storage"
)

// postViews assembles PostView read models with a fixed number of batched
// queries per page, independent of page size.
type postViews struct {
	posts    storage.PostRepository
	users    storage.UserRepository
	comments storage.CommentRepository
}

func (v postViews) build(ctx context.Context, posts []*models.Post) ([]*models.PostView, error) {
	views := make([]*models.PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	postIDs := make([]uint, 0, len(posts))
	authorSeen := make(map[uint]bool, len(posts))
	authorIDs := make([]uint, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		if !authorSeen[p.UserID] {
			authorSeen[p.UserID] = true
			authorIDs = append(authorIDs, p.UserID)
		}
	}

	authors, err := v.users.GetMultipleBasicInfoByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("load post authors: %w", err)
	}
	authorByID := make(map[uint]*models.UserBasicInfo, len(authors))
	for _, a := range authors {
		authorByID[a.ID] = a
	}

	likes, err := v.posts.LikesForPosts(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("load post likes: %w", err)
	}
	likesByPost := make(map[uint][]uint)
	for _, l := range likes {
		likesByPost[l.PostID] = append(likesByPost[l.PostID], l.UserID)
	}

	options, err := v.posts.PollOptionsForPosts(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("load poll options: %w", err)
	}
	votes, err := v.posts.VotesForPosts(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("load poll votes: %w", err)
	}
	votersByOption := make(map[uint][]uint)
	for _, vote := range votes {
		votersByOption[vote.OptionID] = append(votersByOption[vote.OptionID], vote.UserID)
	}
	pollByPost := make(map[uint][]models.PollOptionView)
	for _, o := range options {
		voters := votersByOption[o.ID]
		if voters == nil {
			voters = []uint{}
		}
		pollByPost[o.PostID] = append(pollByPost[o.PostID], models.PollOptionView{PollOption: o, Voters: voters})
	}

	commentCounts, err := v.comments.CountByPosts(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}

	for _, p := range posts {
		postLikes := likesByPost[p.ID]
		if postLikes == nil {
			postLikes = []uint{}
		}
		views = append(views, &models.PostView{
			Post:         p,
			Author:       authorByID[p.UserID],
			Likes:        postLikes,
			LikeCount:    len(postLikes),
			Poll:         pollByPost[p.ID],
			CommentCount: commentCounts[p.ID],
		})
	}
	return views, nil
}

func (v postViews) one(ctx context.Context, post *models.Post) (*models.PostView, error) {
	views, err := v.build(ctx, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}
