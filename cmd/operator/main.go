// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	// Import all Kubernetes client auth plugins (for example Azure, GCP, OIDC, and other auth plugins)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	"k8s.io/klog/v2"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	crcache "sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/go-logr/logr"

	kafkav1alpha1 "github.com/kopspace/topic-operator/api/v1alpha1"
	"github.com/kopspace/topic-operator/cmd/operator/internal/controller"
	"github.com/kopspace/topic-operator/internal/topic"
	"github.com/kopspace/topic-operator/pkg/logging"
	"github.com/kopspace/topic-operator/pkg/observability"
	//+kubebuilder:scaffold:imports
)

const (
	otelServiceName = "topic-operator"
	configFilePath  = "/etc/topic-operator/config/config.yaml"
)

var (
	version = "main"
	commit  = ""
	date    = ""
	scheme  = runtime.NewScheme()
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(kafkav1alpha1.AddToScheme(scheme))
	//+kubebuilder:scaffold:scheme
}

func main() {
	if err := logging.ConfigureLogging(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	if err := observability.Start(otelServiceName); err != nil {
		log.Printf("Could not start OpenTelemetry: %s\n", err)
	}

	klog.SetSlogLogger(slog.Default()) // klog is used by the leader election process

	var enableLeaderElection bool
	var probeAddr string
	var leaseDuration time.Duration
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.BoolVar(&enableLeaderElection, "leader-elect", false,
		"Enable leader election for the operator. Enabling this will ensure there is only one active instance.")
	flag.DurationVar(&leaseDuration, "leader-lease-duration", 15*time.Second, "Duration of the leader lease, defaults to 15s.")
	opts := zap.Options{Development: true}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(logr.FromSlogHandler(slog.Default().Handler()))

	// Must run before any workqueue is constructed (SetupWithManager below
	// builds one), since client-go only lets the provider be set once.
	workqueue.SetProvider(controller.OpenTelemetryWorkqueueMetricsProvider{})

	cfg, err := controller.LoadConfiguration(configFilePath)
	if err != nil {
		slog.Error("unable to load operator configuration", "err", err)
		os.Exit(1)
	}

	mgrOptions := ctrl.Options{
		Scheme:                 scheme,
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaseDuration:          &leaseDuration,
		LeaderElectionID:       "d9c1a230.kafka.strimzi.io",
		Logger:                 logr.FromSlogHandler(slog.Default().Handler()),
	}
	if cfg.Namespace != "" {
		mgrOptions.Cache = crcache.Options{
			DefaultNamespaces: map[string]crcache.Config{cfg.Namespace: {}},
		}
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), mgrOptions)
	if err != nil {
		slog.Error("unable to start operator", "err", err)
		os.Exit(1)
	}

	kafkaClient, err := newKafkaClient(cfg.KafkaBootstrapServers)
	if err != nil {
		slog.Error("unable to create Kafka admin client", "err", err)
		os.Exit(1)
	}

	metrics := topic.NewOtelMetrics()

	batcher := &topic.BatchController{
		Store:      &topic.KubeResourceStore{Client: mgr.GetClient()},
		Admin:      topic.NewKadmAdmin(kafkaClient),
		Rebalancer: topic.NewHTTPRebalancer(cfg.RebalancerURL),
		Ownership:  topic.NewOwnershipTable(),
		Options: topic.BatchControllerOptions{
			Namespace:               cfg.Namespace,
			Selector:                cfg.Selector,
			UseFinalizer:            cfg.UseFinalizer,
			SkipClusterConfigReview: cfg.SkipClusterConfigReview,
			CruiseControlEnabled:    cfg.CruiseControlEnabled,
			AlterableTopicConfig:    cfg.AlterableTopicConfig,
			EnableAdditionalMetrics: cfg.EnableAdditionalMetrics,
		},
		Metrics: metrics,
		Logger:  slog.Default(),
	}

	reconciler := &controller.KafkaTopicReconciler{
		Client:         mgr.GetClient(),
		Scheme:         mgr.GetScheme(),
		Batcher:        batcher,
		DebounceWindow: 250 * time.Millisecond,
	}
	if err = reconciler.SetupWithManager(mgr); err != nil {
		slog.Error("unable to create controller", "controller", "KafkaTopic", "err", err)
		os.Exit(1)
	}
	//+kubebuilder:scaffold:builder

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		slog.Error("unable to set up health check", "err", err)
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		slog.Error("unable to set up ready check", "err", err)
		os.Exit(1)
	}

	primeOwnershipTable(context.Background(), mgr, batcher, cfg)

	slog.Info("starting topic operator", "version", version, "commit", commit, "built", date)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		slog.Error("problem running operator", "err", err)
		os.Exit(1)
	}
}

func newKafkaClient(bootstrapServers string) (*kadm.Client, error) {
	opts := []kgo.Opt{kgo.SeedBrokers(bootstrapServers)}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return kadm.NewClient(client), nil
}

// primeOwnershipTable runs before mgr.Start, so it reads through
// GetAPIReader rather than GetClient: the manager's cache-backed client
// only serves reads once the cache has synced, which happens inside
// Start, and blocking here waiting for a cache that hasn't been asked to
// start yet would deadlock.
func primeOwnershipTable(ctx context.Context, mgr ctrl.Manager, batcher *topic.BatchController, cfg controller.OperatorConfig) {
	resources, err := topic.ListManagedWithReader(ctx, mgr.GetAPIReader(), cfg.Namespace, cfg.Selector)
	if err != nil {
		slog.Warn("unable to prime ownership table at startup, proceeding with an empty one", "err", err)
		return
	}
	batcher.Prime(ctx, resources)
}
