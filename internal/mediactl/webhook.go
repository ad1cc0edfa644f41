package mediactl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// arrEvent is the subset of a Sonarr/Radarr webhook payload we care about.
type arrEvent struct {
	EventType string `json:"eventType"`
	Series    struct {
		Title string `json:"title"`
	} `json:"series"`
	Movie struct {
		Title string `json:"title"`
	} `json:"movie"`
}

func (e arrEvent) title() string {
	if e.Series.Title != "" {
		return e.Series.Title
	}
	if e.Movie.Title != "" {
		return e.Movie.Title
	}
	return "Unknown"
}

func webhookHandler(alerter *Alerter) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var event arrEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		log.Info("webhook event",
			zap.String("type", event.EventType),
			zap.String("title", event.title()))

		// Test events come from the apps' "Test" button; acknowledge quietly.
		if event.EventType != "Test" {
			sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := alerter.Send(sendCtx, "info", "Media Ready",
				fmt.Sprintf("%s is ready to watch", event.title())); err != nil {
				log.Warn("webhook alert failed", zap.Error(err))
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ServeWebhook runs the small receiver the *arr apps post import events to,
// forwarding each one through the alert fan-out. This is the only
// long-running mode mediactl has.
func ServeWebhook(ctx context.Context, cfg Config, addr string) error {
	env, err := ReadDotEnv(cfg.EnvPath())
	if err != nil {
		return err
	}
	alerter := NewAlerter(env)

	srv := &http.Server{
		Addr:              addr,
		Handler:           webhookHandler(alerter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	fmt.Printf("webhook receiver listening on %s\n", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
