package recon

import (
	"context"
	"errors"

	"github.com/codeGROOVE-dev/sleuth/pkg/collect"
	"github.com/codeGROOVE-dev/sleuth/pkg/fetch"
	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
	"github.com/codeGROOVE-dev/sleuth/pkg/report"
	"github.com/codeGROOVE-dev/sleuth/pkg/score"
)

type pageLister func(ctx context.Context, handle, cursor string) (*profile.HandlePage, error)

// handles enumerates up to limit handles from list in source order.
func (rn *run) handles(ctx context.Context, op, handle string, limit int, list pageLister) fetch.Result[[]string] {
	return collect.Paginate(ctx, rn.pool, sourceGraph, op+":"+handle, limit,
		func(ctx context.Context, cursor string) ([]string, string, error) {
			pg, err := list(ctx, handle, cursor)
			if err != nil {
				return nil, "", err
			}
			return pg.Handles, pg.Next, nil
		})
}

func (rn *run) network(ctx context.Context) fetch.Result[report.Network] {
	s := rn.cfg.Samples
	n := report.Network{
		TotalFollowers: rn.p.Followers,
		TotalFollowees: rn.p.Followees,
	}

	collect.All(ctx, rn.pool,
		collect.Into(&n.Followers, func(ctx context.Context) fetch.Result[[]string] {
			return rn.handles(ctx, "followers", rn.p.Handle, s.Followers, rn.graph.Followers)
		}),
		collect.Into(&n.Followees, func(ctx context.Context) fetch.Result[[]string] {
			return rn.handles(ctx, "followees", rn.p.Handle, s.Followees, rn.graph.Followees)
		}),
	)
	warnFailed(ctx, rn.logger, "followers", n.Followers)
	warnFailed(ctx, rn.logger, "followees", n.Followees)

	followers, okFollowers := n.Followers.Usable()
	followees, okFollowees := n.Followees.Usable()
	n.Mutual = score.Mutual(followers, followees)

	n.SecondDegree = fetch.Skipped[map[string]fetch.Result[[]string]](fetch.ReasonDepth)
	n.CommonFollowed = fetch.Skipped[[]score.Count](fetch.ReasonDepth)
	if rn.depth < 1 {
		return fetch.Success(n)
	}

	var jobs []collect.Job
	if rn.depth >= 2 {
		if okFollowers {
			jobs = append(jobs, collect.Into(&n.SecondDegree, func(ctx context.Context) fetch.Result[map[string]fetch.Result[[]string]] {
				return rn.secondDegree(ctx, followers)
			}))
		} else {
			n.SecondDegree = fetch.Skipped[map[string]fetch.Result[[]string]](fetch.ReasonNoData)
		}
	}
	if okFollowees {
		jobs = append(jobs, collect.Into(&n.CommonFollowed, func(ctx context.Context) fetch.Result[[]score.Count] {
			return rn.commonFollowed(ctx, followees)
		}))
	} else {
		n.CommonFollowed = fetch.Skipped[[]score.Count](fetch.ReasonNoData)
	}
	collect.All(ctx, rn.pool, jobs...)

	return fetch.Success(n)
}

// expand lists the first n handles' own followers or followees, each in its own task.
func (rn *run) expand(ctx context.Context, op string, from []string, n, each int, list pageLister) ([]string, []fetch.Result[[]string]) {
	if len(from) > n {
		from = from[:n]
	}
	tasks := make([]collect.Task[[]string], len(from))
	for i, h := range from {
		tasks[i] = func(ctx context.Context) fetch.Result[[]string] {
			return rn.handles(ctx, op, h, each, list)
		}
	}
	return from, collect.Run(ctx, rn.pool, tasks)
}

// secondDegree maps each of the first sampled followers to their own followers.
func (rn *run) secondDegree(ctx context.Context, followers []string) fetch.Result[map[string]fetch.Result[[]string]] {
	s := rn.cfg.Samples
	handles, results := rn.expand(ctx, "followers", followers, s.SecondDegree, s.SecondDegreeEach, rn.graph.Followers)

	out := make(map[string]fetch.Result[[]string], len(handles))
	for i, h := range handles {
		out[h] = results[i]
	}
	return fetch.Success(out)
}

// commonFollowed tallies the accounts followed by the first sampled followees. Per-task
// lists are merged after the fan-out joins. The branch fails only if every expansion did.
func (rn *run) commonFollowed(ctx context.Context, followees []string) fetch.Result[[]score.Count] {
	s := rn.cfg.Samples
	_, results := rn.expand(ctx, "followees", followees, s.CommonFollowed, s.CommonEach, rn.graph.Followees)

	var (
		lists    [][]string
		errs     []error
		attempts int
	)
	for _, r := range results {
		if v, ok := r.Usable(); ok {
			lists = append(lists, v)
		}
		if r.Failure != nil {
			errs = append(errs, r.Err())
			attempts = max(attempts, r.Failure.Attempts)
		}
	}
	if len(results) > 0 && len(lists) == 0 {
		return warnFailed(ctx, rn.logger, "common_followed", fetch.Failed[[]score.Count](errors.Join(errs...), attempts))
	}
	return fetch.Success(score.TopCounts(score.Tally(lists...), s.CommonTop))
}
