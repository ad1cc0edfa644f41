package mediactl

import (
	"fmt"
	"path/filepath"
)

// VerifyBase checks the base stack without side effects: required files,
// required env keys, containers running. Phase verification lives in
// VerifyPhase.
func VerifyBase(r *Runner, cfg Config) (HealthReport, error) {
	var rep HealthReport
	add := func(name, state, detail string) {
		rep.Results = append(rep.Results, HealthResult{
			Check:  HealthCheck{Name: name},
			State:  state,
			Detail: detail,
		})
		switch state {
		case StatePass:
			rep.Pass++
		case StateWarn:
			rep.Warn++
		default:
			rep.Fail++
		}
	}

	for _, path := range []string{
		cfg.EnvPath(),
		cfg.PhasesPath(),
		filepath.Join(cfg.StackRoot, "compose.yml"),
	} {
		if fileExists(path) {
			add("file "+filepath.Base(path), StatePass, path)
		} else {
			add("file "+filepath.Base(path), StateFail, path+" missing")
		}
	}

	if env, err := ReadDotEnv(cfg.EnvPath()); err != nil {
		add("env keys", StateFail, err.Error())
	} else if err := ValidateEnv(env); err != nil {
		add("env keys", StateFail, err.Error())
	} else {
		add("env keys", StatePass, fmt.Sprintf("%d required keys present", len(RequiredEnvKeys)))
	}

	if fileExists(tunnelConfigPath(cfg)) {
		add("tunnel config", StatePass, tunnelConfigPath(cfg))
	} else {
		add("tunnel config", StateWarn, "not configured")
	}

	for _, name := range SortedServiceNames() {
		res := checkContainer(r, HealthCheck{Name: "container/" + name, Container: name})
		add(res.Check.Name, res.State, res.Detail)
	}

	return rep, nil
}
