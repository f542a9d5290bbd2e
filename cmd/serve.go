package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nahidn4p/segdl/internal/config"
	"github.com/nahidn4p/segdl/internal/lock"
	"github.com/nahidn4p/segdl/internal/logging"
	"github.com/nahidn4p/segdl/internal/manager"
	"github.com/nahidn4p/segdl/internal/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the download daemon",
	Long: "Run segdl as a long-lived daemon: ticks the scheduler, drives every " +
		"queued or scheduled task to completion, and accepts add/pause/resume/remove " +
		"requests over a local HTTP bridge so other segdl invocations (and the browser " +
		"extension) can hand it work.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "P", 0, "Port for the HTTP bridge (0 picks a free port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	instanceLock, acquired, err := lock.Acquire()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("another segdl serve is already running")
	}
	defer instanceLock.Release()

	mgr, closeStore, err := openManager()
	if err != nil {
		return err
	}
	defer closeStore()

	requestedPort, _ := cmd.Flags().GetInt("port")
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", requestedPort))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	if err := savePort(port); err != nil {
		logging.Debug("save port file: %v", err)
	}
	defer clearPort()

	srv := &http.Server{Handler: corsMiddleware(newBridgeMux(mgr))}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logging.Debug("http bridge error: %v", err)
		}
	}()
	fmt.Printf("segdl serve listening on 127.0.0.1:%d\n", port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case now := <-ticker.C:
			if err := mgr.SyncFromStore(); err != nil {
				logging.Debug("sync from store: %v", err)
			}
			mgr.Tick(now)
		}
	}
}

func tickInterval() time.Duration {
	settings, err := config.LoadSettings()
	if err != nil || settings.Schedule.TickInterval <= 0 {
		return 300 * time.Millisecond
	}
	return settings.Schedule.TickInterval
}

// corsMiddleware allows the browser extension to call the bridge from a
// page origin. Grounded on surge-downloader-surge/cmd/server.go's
// corsMiddleware.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newBridgeMux(mgr *manager.Manager) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, mgr.List())
	})

	mux.HandleFunc("POST /add", func(w http.ResponseWriter, r *http.Request) {
		var req types.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		task, err := mgr.EnqueueFromRequest(req, defaultDownloadFolder())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, toTaskResponse(task))
	})

	mux.HandleFunc("POST /tasks/{id}/pause", func(w http.ResponseWriter, r *http.Request) {
		bridgeResolveAndAct(w, r, mgr, mgr.Pause)
	})
	mux.HandleFunc("POST /tasks/{id}/resume", func(w http.ResponseWriter, r *http.Request) {
		bridgeResolveAndAct(w, r, mgr, mgr.Resume)
	})
	mux.HandleFunc("DELETE /tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		bridgeResolveAndAct(w, r, mgr, mgr.Remove)
	})

	return mux
}

func bridgeResolveAndAct(w http.ResponseWriter, r *http.Request, mgr *manager.Manager, action func(string) error) {
	prefix := r.PathValue("id")
	task, err := resolveID(mgr, prefix)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err := action(task.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func toTaskResponse(t *types.Task) taskResponse {
	return taskResponse{ID: t.ID, Filename: t.Filename, Status: string(t.Status)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
