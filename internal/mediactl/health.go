package mediactl

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	StatePass = "pass"
	StateWarn = "warn"
	StateFail = "fail"
)

type HealthCheck struct {
	Name         string
	Container    string
	URL          string
	ExpectStatus int
}

type HealthResult struct {
	Check  HealthCheck
	State  string
	Detail string
}

type HealthReport struct {
	Results []HealthResult
	Pass    int
	Warn    int
	Fail    int
}

func (rep HealthReport) Healthy() bool { return rep.Fail == 0 }

// BuildHealthChecks lists one container check and, where the service exposes
// an endpoint, one HTTP check per base service, plus a container check per
// installed phase container.
func BuildHealthChecks(cfg Config, installedPhases []string) []HealthCheck {
	var checks []HealthCheck
	for _, name := range SortedServiceNames() {
		svc := ServiceCatalog[name]
		checks = append(checks, HealthCheck{
			Name:      "container/" + name,
			Container: name,
		})
		if svc.HealthPath != "" {
			checks = append(checks, HealthCheck{
				Name:         "http/" + name,
				URL:          fmt.Sprintf("http://localhost:%d%s", svc.Port, svc.HealthPath),
				ExpectStatus: http.StatusOK,
			})
		}
	}
	for _, phaseName := range installedPhases {
		phase, ok := PhaseCatalog[phaseName]
		if !ok {
			continue
		}
		for _, c := range phase.Containers {
			checks = append(checks, HealthCheck{
				Name:      "container/" + c,
				Container: c,
			})
		}
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	return checks
}

// RunHealth executes all checks. Container checks are cheap docker inspect
// calls run in sequence; HTTP checks fan out concurrently.
func RunHealth(ctx context.Context, r *Runner, checks []HealthCheck, timeout time.Duration) HealthReport {
	var rep HealthReport
	var mu sync.Mutex
	client := &http.Client{Timeout: timeout}

	g, gctx := errgroup.WithContext(ctx)
	for _, check := range checks {
		if check.URL == "" {
			continue
		}
		check := check
		g.Go(func() error {
			res := checkHTTP(gctx, client, check)
			mu.Lock()
			rep.Results = append(rep.Results, res)
			mu.Unlock()
			return nil
		})
	}

	// Join the HTTP goroutines before the sequential container checks so
	// only one goroutine ever appends at a time.
	_ = g.Wait()

	for _, check := range checks {
		if check.Container == "" {
			continue
		}
		rep.Results = append(rep.Results, checkContainer(r, check))
	}

	sort.Slice(rep.Results, func(i, j int) bool { return rep.Results[i].Check.Name < rep.Results[j].Check.Name })
	for _, res := range rep.Results {
		switch res.State {
		case StatePass:
			rep.Pass++
		case StateWarn:
			rep.Warn++
		default:
			rep.Fail++
		}
	}
	return rep
}

func checkContainer(r *Runner, check HealthCheck) HealthResult {
	out, err := r.Capture("docker", "inspect", "-f", "{{.State.Status}}", check.Container)
	status := strings.TrimSpace(out)
	switch {
	case err != nil:
		return HealthResult{Check: check, State: StateFail, Detail: "container not found"}
	case status == "running":
		return HealthResult{Check: check, State: StatePass, Detail: "running"}
	case status == "restarting":
		return HealthResult{Check: check, State: StateWarn, Detail: "restarting"}
	default:
		return HealthResult{Check: check, State: StateFail, Detail: status}
	}
}

func checkHTTP(ctx context.Context, client *http.Client, check HealthCheck) HealthResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, check.URL, nil)
	if err != nil {
		return HealthResult{Check: check, State: StateFail, Detail: err.Error()}
	}
	resp, err := client.Do(req)
	if err != nil {
		return HealthResult{Check: check, State: StateFail, Detail: "unreachable"}
	}
	defer resp.Body.Close()
	if resp.StatusCode != check.ExpectStatus {
		return HealthResult{Check: check, State: StateFail,
			Detail: fmt.Sprintf("status %d, want %d", resp.StatusCode, check.ExpectStatus)}
	}
	return HealthResult{Check: check, State: StatePass, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
}

// RecordHealth persists the report and alerts on state transitions: a check
// going pass→fail raises an alert, fail→pass raises a recovery notice.
func RecordHealth(ctx context.Context, store *StateStore, alerter *Alerter, rep HealthReport) error {
	now := time.Now().UTC()
	return store.Update(func(st *HealthState) error {
		for _, res := range rep.Results {
			prev, known := st.Checks[res.Check.Name]
			if !known || prev.State != res.State {
				st.Checks[res.Check.Name] = CheckState{State: res.State, Since: now, Detail: res.Detail}
			}
			if !known {
				continue
			}
			switch {
			case prev.State != StateFail && res.State == StateFail:
				if err := alerter.Send(ctx, "error", "Health check failed",
					fmt.Sprintf("%s: %s", res.Check.Name, res.Detail)); err != nil {
					log.Warn("alert send failed", zap.Error(err))
				}
			case prev.State == StateFail && res.State == StatePass:
				if err := alerter.Send(ctx, "info", "Health check recovered",
					fmt.Sprintf("%s recovered after %s", res.Check.Name, now.Sub(prev.Since).Round(time.Second))); err != nil {
					log.Warn("alert send failed", zap.Error(err))
				}
			}
		}
		return nil
	})
}

// PrintHealthReport renders the doctor-style check table.
func PrintHealthReport(rep HealthReport) {
	for _, res := range rep.Results {
		tag := "[ OK ]"
		switch res.State {
		case StateWarn:
			tag = "[WARN]"
		case StateFail:
			tag = "[FAIL]"
		}
		fmt.Printf("%s %-28s %s\n", tag, res.Check.Name, res.Detail)
	}
	fmt.Printf("%d passed, %d warnings, %d failed\n", rep.Pass, rep.Warn, rep.Fail)
}
