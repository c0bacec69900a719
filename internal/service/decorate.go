package service

import (
	"context"

	"collectorhub/internal/featureflags"
	"collectorhub/internal/models"
	"collectorhub/internal/render"
	"collectorhub/internal/repository"
)

// postDecorator attaches the viewer's vote, the saved flag and rendered
// content to posts. None of these affect ordering.
type postDecorator struct {
	posts repository.PostRepository
	votes repository.VoteRepository
	flags *featureflags.Manager
}

func (d postDecorator) decorate(ctx context.Context, viewerID uint, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	votes, err := d.votes.VotesByUser(ctx, viewerID, models.VoteTargetPost, ids)
	if err != nil {
		return models.NewUnavailableError(err)
	}
	saved, err := d.posts.SavedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return models.NewUnavailableError(err)
	}

	renderHTML := d.flags.Enabled(featureflags.RenderContentHTML, viewerID)
	for _, p := range posts {
		p.UserVote = nil
		if v, ok := votes[p.ID]; ok {
			v := v
			p.UserVote = &v
		}
		p.IsSaved = saved[p.ID]
		if renderHTML {
			p.ContentHTML = render.Markdown(p.Content)
		}
	}
	return nil
}
