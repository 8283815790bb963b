// Command deploy-check validates a cluster deployment configuration file and
// reports the services it would deploy.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"variantcore/internal/deploy"
)

var exitFunc = os.Exit

// main runs the command-line interface using the program arguments and exits
// the process with the status code returned by cli.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("deploy-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var configPath string
	fs.StringVar(&configPath, "config", "deploy/cluster.yaml", "path to deployment config yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := deploy.Load(configPath)
	if err != nil {
		if _, writeErr := fmt.Fprintf(stderr, "Deploy config validation failed: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}
	if _, writeErr := fmt.Fprintf(stdout, "Deploy config validation passed for cluster %q (namespace %s).\n", cfg.ClusterName, cfg.Namespace); writeErr != nil {
		return 1
	}
	return 0
}
