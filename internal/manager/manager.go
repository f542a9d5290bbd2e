// Package manager implements the TaskManager façade (SPEC_FULL.md §4.8):
// the single entry point that owns the in-memory task registry, starts
// and stops the per-task goroutines, and keeps the TaskStore in sync.
// Grounded on original_source/main.py's request-handling and
// start/pause/remove methods (_handle_download_request,
// _handle_media_request, start_task, pause_task, remove_task), expressed
// with the teacher's dependency-injected-service style rather than
// surge-downloader-surge's global package state.
package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nahidn4p/segdl/internal/engine"
	"github.com/nahidn4p/segdl/internal/hls"
	"github.com/nahidn4p/segdl/internal/logging"
	"github.com/nahidn4p/segdl/internal/scheduler"
	"github.com/nahidn4p/segdl/internal/store"
	"github.com/nahidn4p/segdl/internal/types"
	"github.com/nahidn4p/segdl/internal/utils"
)

// entry is the registry's bookkeeping around one task: the task itself,
// plus the cancellation handle for its in-flight run (nil when idle).
type entry struct {
	mu     sync.Mutex
	task   *types.Task
	cancel context.CancelFunc
}

// Manager is the TaskManager façade.
type Manager struct {
	store      *store.TaskStore
	runtime    *types.RuntimeConfig
	downloader *engine.Downloader
	pipeline   *hls.Pipeline
	tempRoot   string

	registryMu sync.RWMutex
	registry   map[string]*entry
}

// New builds a Manager backed by st, using runtime for transfer tuning
// and tempRoot as the parent directory for new tasks' part files.
func New(st *store.TaskStore, runtime *types.RuntimeConfig, tempRoot string) *Manager {
	downloader := engine.NewDownloader(runtime)
	return &Manager{
		store:      st,
		runtime:    runtime,
		downloader: downloader,
		pipeline:   hls.NewPipeline(downloader.Client),
		tempRoot:   tempRoot,
		registry:   make(map[string]*entry),
	}
}

// Reconcile loads every unfinished task from the store into the registry
// at startup, recomputing Downloaded from whatever part files survived a
// prior crash (SPEC_FULL.md §4.8, §3 "On load" note).
func (m *Manager) Reconcile() error {
	tasks, err := m.store.LoadUnfinished()
	if err != nil {
		return fmt.Errorf("load unfinished tasks: %w", err)
	}

	m.registryMu.Lock()
	defer m.registryMu.Unlock()
	for _, task := range tasks {
		if task.IsMedia() {
			// Media is never resumable; a task left mid-stream restarts
			// from segment 0 on its next run (SPEC_FULL.md §9).
			task.MediaState = nil
		} else {
			task.Downloaded = engine.RecomputeDownloaded(task)
			if task.TotalSize > 0 {
				if info, err := os.Stat(engine.DestPath(task)); err == nil && info.Size() >= task.TotalSize {
					task.Status = types.StatusCompleted
					task.Downloaded = task.TotalSize
				}
			}
		}
		if task.Status == types.StatusDownloading || task.Status == types.StatusStarting {
			task.Status = types.StatusPaused
		}
		m.registry[task.ID] = &entry{task: task}
	}
	return nil
}

// List returns a snapshot of every task currently in the registry.
func (m *Manager) List() []*types.Task {
	m.registryMu.RLock()
	defer m.registryMu.RUnlock()
	out := make([]*types.Task, 0, len(m.registry))
	for _, e := range m.registry {
		e.mu.Lock()
		out = append(out, e.task)
		e.mu.Unlock()
	}
	return out
}

// Get returns the task with id, or types.ErrNotFound.
func (m *Manager) Get(id string) (*types.Task, error) {
	m.registryMu.RLock()
	e, ok := m.registry[id]
	m.registryMu.RUnlock()
	if !ok {
		return nil, types.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task, nil
}

// AddOptions customizes a call to Add. AutoStart spawns the worker
// goroutine in this process immediately - meaningful for callers that
// stay alive for the download's duration (the serve daemon, tests), not
// for a one-shot CLI invocation; those instead leave the task queued
// and rely on the running daemon's Tick loop to pick it up (see
// SyncFromStore). StartPaused creates the task already paused, so the
// daemon's queued-task auto-start never touches it.
type AddOptions struct {
	Filename    string
	Threads     int
	Headers     map[string]string
	AutoStart   bool
	StartPaused bool
}

// Add creates a plain file-download task for url under folder, persists
// it, and optionally starts it immediately.
func (m *Manager) Add(url, folder string, opts AddOptions) (*types.Task, error) {
	if dup := m.findDuplicateDownload(url); dup != nil {
		return nil, types.ErrDuplicateTask
	}

	filename := opts.Filename
	if filename == "" {
		filename = utils.FilenameFromURL(url)
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = m.runtime.GetDefaultThreads()
	}

	status := types.StatusQueued
	if opts.StartPaused {
		status = types.StatusPaused
	}

	task := &types.Task{
		URL:        url,
		DestFolder: folder,
		Filename:   filename,
		Threads:    threads,
		Status:     status,
		TempRoot:   m.tempRoot,
		Headers:    opts.Headers,
	}
	if err := m.persistNew(task); err != nil {
		return nil, err
	}
	if opts.AutoStart {
		m.Start(task.ID)
	}
	return task, nil
}

// EnqueueFromRequest accepts a tagged request payload from an external
// source (CLI or browser-capture bridge) and creates the corresponding
// task, deduplicating against existing non-completed tasks
// (SPEC_FULL.md §4.8).
func (m *Manager) EnqueueFromRequest(req types.Request, defaultFolder string) (*types.Task, error) {
	switch req.Kind {
	case types.RequestKindDownload:
		if req.Download == nil {
			return nil, fmt.Errorf("%w: download payload missing", types.ErrInvalidPlaylist)
		}
		return m.Add(req.Download.URL, defaultFolder, AddOptions{
			Filename:  req.Download.Filename,
			Headers:   req.Download.Headers,
			AutoStart: true,
		})
	case types.RequestKindMedia:
		if req.Media == nil {
			return nil, fmt.Errorf("%w: media payload missing", types.ErrInvalidPlaylist)
		}
		return m.addMedia(req.Media, defaultFolder)
	default:
		return nil, fmt.Errorf("unknown request kind %q", req.Kind)
	}
}

func (m *Manager) addMedia(req *types.MediaRequest, defaultFolder string) (*types.Task, error) {
	if dup := m.findDuplicateMedia(req.ManifestURL); dup != nil {
		return nil, types.ErrDuplicateTask
	}

	filename := mediaFilename(req)
	task := &types.Task{
		URL:        req.ManifestURL,
		DestFolder: defaultFolder,
		Filename:   filename,
		Status:     types.StatusQueued,
		TempRoot:   m.tempRoot,
		Headers:    req.Headers,
		Media: &types.MediaInfo{
			MediaType:   types.MediaTypeHLS,
			ManifestURL: req.ManifestURL,
			SourceURL:   req.SourceURL,
			Title:       req.Title,
			Headers:     req.Headers,
		},
	}
	if err := m.persistNew(task); err != nil {
		return nil, err
	}
	m.Start(task.ID)
	return task, nil
}

// mediaFilename derives a destination filename from a media request's
// title, falling back to the source or manifest URL, always ending in
// ".ts" (SPEC_FULL.md §4.8). A title gets ".ts" appended; a URL-derived
// name has its extension replaced by ".ts".
func mediaFilename(req *types.MediaRequest) string {
	base := req.Title
	if base == "" {
		base = req.SourceURL
	}
	if base == "" {
		base = req.ManifestURL
	}

	var name string
	if looksLikeURL(base) {
		name = utils.FilenameFromURL(base)
	} else {
		collapsed := strings.Join(strings.Fields(base), "_")
		name = utils.FilenameFromURL("/" + collapsed)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".ts") {
		if looksLikeURL(base) {
			name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		name += ".ts"
	}
	return name
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (m *Manager) findDuplicateDownload(url string) *types.Task {
	m.registryMu.RLock()
	defer m.registryMu.RUnlock()
	for _, e := range m.registry {
		e.mu.Lock()
		match := e.task.URL == url && e.task.Status != types.StatusCompleted && !e.task.IsMedia()
		t := e.task
		e.mu.Unlock()
		if match {
			return t
		}
	}
	return nil
}

func (m *Manager) findDuplicateMedia(manifestURL string) *types.Task {
	m.registryMu.RLock()
	defer m.registryMu.RUnlock()
	for _, e := range m.registry {
		e.mu.Lock()
		match := e.task.IsMedia() && e.task.Media.ManifestURL == manifestURL && e.task.Status != types.StatusCompleted
		t := e.task
		e.mu.Unlock()
		if match {
			return t
		}
	}
	return nil
}

func (m *Manager) persistNew(task *types.Task) error {
	if err := m.store.Upsert(task); err != nil {
		return fmt.Errorf("persist task: %w", err)
	}
	m.registryMu.Lock()
	m.registry[task.ID] = &entry{task: task}
	m.registryMu.Unlock()
	return nil
}

// Start spawns the worker goroutine for id's task, if it is not already
// running.
func (m *Manager) Start(id string) error {
	m.registryMu.RLock()
	e, ok := m.registry[id]
	m.registryMu.RUnlock()
	if !ok {
		return types.ErrNotFound
	}

	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		return nil // already running
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.task.Status = types.StatusStarting
	e.task.Error = ""
	task := e.task
	e.mu.Unlock()

	go m.run(ctx, e, task)
	return nil
}

// Pause cancels id's in-flight run, if any; the run goroutine observes
// ctx.Done() and persists the paused status itself. If nothing is
// currently running for id (e.g. this process isn't the one driving the
// download), the task is marked paused and persisted directly so a
// daemon picking it up later on Tick leaves it alone.
func (m *Manager) Pause(id string) error {
	m.registryMu.RLock()
	e, ok := m.registry[id]
	m.registryMu.RUnlock()
	if !ok {
		return types.ErrNotFound
	}

	e.mu.Lock()
	cancel := e.cancel
	if cancel == nil && e.task.Status != types.StatusCompleted {
		e.task.Status = types.StatusPaused
	}
	task := e.task
	e.mu.Unlock()
	if cancel != nil {
		cancel()
		return nil
	}
	return m.store.Upsert(task)
}

// Resume restarts id's task from its current Downloaded position; an
// alias for Start kept distinct for callers that want to express intent.
func (m *Manager) Resume(id string) error {
	return m.Start(id)
}

// QueueForStart marks id as queued and persists it, without spawning a
// worker goroutine in this process. A one-shot CLI invocation uses this
// instead of Resume when no daemon is reachable: nothing in this
// process will live long enough to drive the download, so the task is
// left for the next `segdl serve` instance to pick up on Tick.
func (m *Manager) QueueForStart(id string) error {
	m.registryMu.RLock()
	e, ok := m.registry[id]
	m.registryMu.RUnlock()
	if !ok {
		return types.ErrNotFound
	}

	e.mu.Lock()
	if e.task.Status != types.StatusCompleted {
		e.task.Status = types.StatusQueued
		e.task.Error = ""
	}
	task := e.task
	e.mu.Unlock()
	return m.store.Upsert(task)
}

// Remove cancels any in-flight run, deletes the task's parts directory
// and store row, and drops it from the registry.
func (m *Manager) Remove(id string) error {
	m.registryMu.Lock()
	e, ok := m.registry[id]
	if ok {
		delete(m.registry, id)
	}
	m.registryMu.Unlock()
	if !ok {
		return types.ErrNotFound
	}

	e.mu.Lock()
	cancel := e.cancel
	task := e.task
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if !task.IsMedia() {
		if err := os.RemoveAll(engine.PartsDir(task)); err != nil {
			logging.Debug("remove parts dir for %s: %v", task.ID, err)
		}
	}
	return m.store.Delete(task.ID)
}

// run executes one attempt at downloading task, persists the outcome,
// and clears the registry entry's cancel handle when done.
func (m *Manager) run(ctx context.Context, e *entry, task *types.Task) {
	e.mu.Lock()
	task.Status = types.StatusDownloading
	e.mu.Unlock()

	var err error
	if task.IsMedia() {
		err = m.pipeline.Run(ctx, task, engine.DestPath(task), func(done, total int, speed float64) {
			e.mu.Lock()
			task.SpeedBps = speed
			e.mu.Unlock()
		})
	} else {
		err = m.downloader.Run(ctx, task, task.Headers, func(downloaded int64, speed float64) {
			e.mu.Lock()
			task.Downloaded = downloaded
			task.SpeedBps = speed
			e.mu.Unlock()
		})
	}

	e.mu.Lock()
	e.cancel = nil
	switch {
	case err == nil:
		task.Status = types.StatusCompleted
		task.Error = ""
	case err == types.ErrPaused:
		task.Status = types.StatusPaused
	default:
		task.Status = types.StatusError
		task.Error = err.Error()
	}
	e.mu.Unlock()

	m.registryMu.RLock()
	_, stillRegistered := m.registry[task.ID]
	m.registryMu.RUnlock()
	if !stillRegistered {
		return // removed while running; do not re-create its store row
	}
	if perr := m.store.Upsert(task); perr != nil {
		logging.Debug("persist task %s after run: %v", task.ID, perr)
	}
}

// SyncFromStore adds any unfinished task present in the store but absent
// from this process's registry - i.e. a task another process (the CLI's
// one-shot `add`) created since the last sync. Existing registry entries
// are left untouched so in-flight progress is never clobbered.
func (m *Manager) SyncFromStore() error {
	tasks, err := m.store.LoadUnfinished()
	if err != nil {
		return fmt.Errorf("sync tasks from store: %w", err)
	}

	m.registryMu.Lock()
	defer m.registryMu.Unlock()
	for _, task := range tasks {
		if _, exists := m.registry[task.ID]; exists {
			continue
		}
		m.registry[task.ID] = &entry{task: task}
	}
	return nil
}

// Tick runs the schedule state machine across every task in the
// registry, starts/pauses tasks as TaskScheduler decides, and starts any
// plain queued task that has no schedule holding it back
// (SPEC_FULL.md §4.6, §4.8).
func (m *Manager) Tick(now time.Time) {
	m.registryMu.RLock()
	entries := make([]*entry, 0, len(m.registry))
	for _, e := range m.registry {
		entries = append(entries, e)
	}
	m.registryMu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		task := e.task
		e.mu.Unlock()

		action := scheduler.Tick(task, now)
		switch action {
		case scheduler.ActionStart:
			m.Start(task.ID)
		case scheduler.ActionPause:
			m.Pause(task.ID)
		}

		e.mu.Lock()
		queued := task.Status == types.StatusQueued
		e.mu.Unlock()
		if queued {
			m.Start(task.ID)
		}

		if perr := m.store.Upsert(task); perr != nil {
			logging.Debug("persist task %s after tick: %v", task.ID, perr)
		}
	}
}
