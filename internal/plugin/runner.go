package plugin

import (
	"context"
	"sync"

	"github.com/ayusman/peacecam/internal/capture"
	"github.com/ayusman/peacecam/internal/log"
)

// GesturePeaceSign names the trigger gesture in plugin requests.
const GesturePeaceSign = "peace-sign"

// Runner fires every plugin handling capture.saved after a selfie is
// stored. Runs happen in the background and only their outcome is logged.
type Runner struct {
	manager  *Manager
	executor *Executor
	wg       sync.WaitGroup
}

// NewRunner creates a Runner over discovered plugins.
func NewRunner(manager *Manager, executor *Executor) *Runner {
	return &Runner{manager: manager, executor: executor}
}

// CaptureSaved starts one run per subscribed plugin.
func (r *Runner) CaptureSaved(_ context.Context, res capture.Result) {
	plugins := r.manager.Handling(ActionCaptureSaved)
	if len(plugins) == 0 {
		return
	}

	params, err := json.Marshal(res)
	if err != nil {
		log.Error(log.Fields{"capture_id": res.ID, "error": err}, "encode plugin params")
		return
	}

	req := &Request{
		Action:  ActionCaptureSaved,
		Gesture: GesturePeaceSign,
		Params:  params,
	}

	for _, p := range plugins {
		r.wg.Add(1)
		go func(p *Plugin) {
			defer r.wg.Done()
			r.run(p, req, res.ID)
		}(p)
	}
}

func (r *Runner) run(p *Plugin, req *Request, captureID string) {
	fields := log.Fields{"plugin": p.Manifest.Name, "capture_id": captureID}

	resp, err := r.executor.Execute(context.Background(), p, req)
	if err != nil {
		fields["error"] = err
		log.Warn(fields, "plugin run failed")
		return
	}
	if !resp.Success {
		fields["error"] = resp.Error
		log.Warn(fields, "plugin reported failure")
		return
	}

	log.Debug(fields, "plugin run finished")
}

// Wait blocks until every started run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
