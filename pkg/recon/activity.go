package recon

import (
	"context"

	"github.com/codeGROOVE-dev/sleuth/pkg/collect"
	"github.com/codeGROOVE-dev/sleuth/pkg/fetch"
	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
	"github.com/codeGROOVE-dev/sleuth/pkg/report"
	"github.com/codeGROOVE-dev/sleuth/pkg/score"
)

// posts enumerates up to limit of the target's posts, newest first. The timeline and
// behavior branches ask for overlapping prefixes; identical page requests are served
// once by the HTTP session.
func (rn *run) posts(ctx context.Context, op string, limit int) fetch.Result[[]profile.Post] {
	if rn.p.Posts == 0 {
		return fetch.Skipped[[]profile.Post](fetch.ReasonNoPosts)
	}
	r := collect.Paginate(ctx, rn.pool, sourceGraph, op+":"+rn.p.Handle, limit,
		func(ctx context.Context, cursor string) ([]profile.Post, string, error) {
			pg, err := rn.graph.Posts(ctx, rn.p.Handle, cursor)
			if err != nil {
				return nil, "", err
			}
			return pg.Posts, pg.Next, nil
		})
	if v, ok := r.Get(); ok && len(v) == 0 {
		return fetch.Skipped[[]profile.Post](fetch.ReasonNoPosts)
	}
	return warnFailed(ctx, rn.logger, op, r)
}

// derive applies build to the usable posts of r, keeping r's status.
func derive[T any](r fetch.Result[[]profile.Post], build func([]profile.Post) T) fetch.Result[T] {
	posts, ok := r.Usable()
	switch {
	case r.Status == fetch.StatusSkipped:
		return fetch.Skipped[T](r.Reason)
	case !ok:
		return fetch.Failed[T](r.Err(), r.Failure.Attempts)
	case r.Partial:
		return fetch.FailedWithPartial(r.Err(), r.Failure.Attempts, build(posts))
	default:
		return fetch.Success(build(posts))
	}
}

func (rn *run) timeline(ctx context.Context) fetch.Result[report.Timeline] {
	now := rn.now()
	return derive(rn.posts(ctx, "timeline", rn.cfg.Samples.TimelinePosts), func(posts []profile.Post) report.Timeline {
		return report.Timeline{Timeline: score.BuildTimeline(posts, now), PostsSampled: len(posts)}
	})
}

func (rn *run) behavior(ctx context.Context) fetch.Result[report.Behavior] {
	automation := rn.cfg.Samples.AutomationPosts
	return derive(rn.posts(ctx, "behavior", rn.cfg.Samples.BehaviorPosts), func(posts []profile.Post) report.Behavior {
		sample := posts
		if len(sample) > automation {
			sample = sample[:automation]
		}
		return report.Behavior{
			Content:              score.AnalyzeContent(posts),
			AutomationIndicators: score.AutomationIndicators(sample),
			Patterns:             score.PostingPatterns(posts),
			PostsSampled:         len(posts),
		}
	})
}
