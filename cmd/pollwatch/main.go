// Command pollwatch streams synthesized watch events for a resource
// collection that only supports listing, one line per event on stdout.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/pollwatch/pollwatch/client"
	"github.com/pollwatch/pollwatch/poll"
)

func main() {
	var (
		group     = pflag.String("group", "", "API group of the resource to watch")
		version   = pflag.String("version", "v1", "API version of the resource to watch")
		resource  = pflag.String("resource", "", "plural resource name to watch (required)")
		namespace = pflag.String("namespace", "", "namespace to watch (default: all namespaces)")
		selector  = pflag.String("selector", "", "label selector to filter resources")
		interval  = pflag.Duration("interval", 30*time.Second, "polling interval")
		verbose   = pflag.Bool("verbose", false, "log per-resource diff decisions")
	)
	pflag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	ctx := clog.WithLogger(context.Background(), log)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *resource == "" {
		log.Fatalf("missing required flag: --resource")
	}

	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(),
		&clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		log.Fatalf("loading kubeconfig: %v", err)
	}

	gvr := schema.GroupVersionResource{Group: *group, Version: *version, Resource: *resource}
	lister, err := client.New(gvr, config, &client.Options{
		Namespace:     *namespace,
		LabelSelector: *selector,
	})
	if err != nil {
		log.Fatalf("creating client: %v", err)
	}

	log.Infof("watching %s every %v", gvr, *interval)
	for ev := range poll.New(lister, *interval).Run(ctx) {
		name := ev.Object.GetName()
		if ns := ev.Object.GetNamespace(); ns != "" {
			name = ns + "/" + name
		}
		fmt.Printf("%s\t%s\t%s\n", ev.Type, name, ev.Object.GetUID())
	}
}
