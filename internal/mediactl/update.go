package mediactl

import "fmt"

// RunUpdate pulls current images for the whole stack (installed phases
// included), restarts changed containers and prunes dangling images.
func RunUpdate(r *Runner, cfg Config) error {
	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return err
	}

	args := composeProfileArgs(cfg, installed)
	args = append(args, "pull")
	if err := r.Stream("docker", args...); err != nil {
		return err
	}

	if err := ComposeUp(r, cfg, installed); err != nil {
		return err
	}

	if err := r.Apply("docker", "image", "prune", "-f"); err != nil {
		fmt.Printf("warning: image prune failed: %v\n", err)
	}
	fmt.Println("stack updated")
	return nil
}
