// Package jobaccess exposes job queue operations behind a single interface
// regardless of whether the daemon is reachable. CLI callers prefer the IPC
// backing and fall back to direct store access when the daemon is offline.
package jobaccess

import (
	"context"
	"strings"

	"loom/internal/api"
	"loom/internal/ipc"
	"loom/internal/queue"
)

// Access provides job operations over daemon IPC or the store directly.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.Job, error)
	Describe(ctx context.Context, id int64) (*api.Job, error)
	Submit(ctx context.Context, videoID, sourceURL string) (api.Job, bool, error)
	Cancel(ctx context.Context, id int64, reason string) (bool, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by the job store directly.
func NewStoreAccess(store *queue.Store) Access {
	return &storeAccess{store: store, service: api.NewJobService(store)}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Stats(_ context.Context) (map[string]int, error) {
	resp, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return resp.JobStats, nil
}

func (a *ipcAccess) List(_ context.Context, statuses []string) ([]api.Job, error) {
	resp, err := a.client.JobList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (a *ipcAccess) Describe(_ context.Context, id int64) (*api.Job, error) {
	resp, err := a.client.JobDescribe(id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, nil
		}
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return &resp.Job, nil
}

func (a *ipcAccess) Submit(_ context.Context, videoID, sourceURL string) (api.Job, bool, error) {
	resp, err := a.client.Submit(videoID, sourceURL)
	if err != nil {
		return api.Job{}, false, err
	}
	return resp.Job, resp.Created, nil
}

func (a *ipcAccess) Cancel(_ context.Context, id int64, reason string) (bool, error) {
	resp, err := a.client.JobCancel(id, reason)
	if err != nil {
		return false, err
	}
	return resp.Cancelled, nil
}

func (a *ipcAccess) ClearAll(_ context.Context) (int64, error) {
	resp, err := a.client.JobClear()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ClearCompleted(_ context.Context) (int64, error) {
	resp, err := a.client.JobClearCompleted()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ClearFailed(_ context.Context) (int64, error) {
	resp, err := a.client.JobClearFailed()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) Retry(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.JobRetry(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) Health(_ context.Context) (queue.HealthSummary, error) {
	resp, err := a.client.JobHealth()
	if err != nil {
		return queue.HealthSummary{}, err
	}
	return queue.HealthSummary{
		Total:          resp.Total,
		Pending:        resp.Pending,
		Running:        resp.Running,
		Completed:      resp.Completed,
		PartialFailure: resp.PartialFailure,
		Failed:         resp.Failed,
		Cancelled:      resp.Cancelled,
	}, nil
}

type storeAccess struct {
	store   *queue.Store
	service *api.JobService
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.Job, error) {
	var filters []queue.Status
	for _, s := range statuses {
		if parsed, ok := queue.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	return a.service.List(ctx, filters...)
}

func (a *storeAccess) Describe(ctx context.Context, id int64) (*api.Job, error) {
	return a.service.Describe(ctx, id)
}

func (a *storeAccess) Submit(ctx context.Context, videoID, sourceURL string) (api.Job, bool, error) {
	return a.service.Submit(ctx, api.SubmitRequest{VideoID: videoID, SourceURL: sourceURL})
}

func (a *storeAccess) Cancel(ctx context.Context, id int64, reason string) (bool, error) {
	return a.store.MarkCancelled(ctx, id, reason)
}

func (a *storeAccess) ClearAll(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}

func (a *storeAccess) ClearCompleted(ctx context.Context) (int64, error) {
	return a.store.ClearCompleted(ctx)
}

func (a *storeAccess) ClearFailed(ctx context.Context) (int64, error) {
	return a.store.ClearFailed(ctx)
}

func (a *storeAccess) Retry(ctx context.Context, ids []int64) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

func (a *storeAccess) Health(ctx context.Context) (queue.HealthSummary, error) {
	return a.store.Health(ctx)
}
