/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"crypto/tls"
	"flag"
	"os"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/metrics/filters"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	"sigs.k8s.io/controller-runtime/pkg/webhook"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/internal/app"
	"github.com/pgplatform-operator/internal/platform"
	webhookv1alpha1 "github.com/pgplatform-operator/internal/webhook/v1alpha1"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(dbv1alpha1.AddToScheme(scheme))
	// +kubebuilder:scaffold:scheme
}

func main() {
	var metricsAddr string
	var probeAddr string
	var enableLeaderElection bool
	var secureMetrics bool
	var enableHTTP2 bool
	var enableWebhooks bool
	var webhookCertDir string
	var platformConfig string
	var tlsOpts []func(*tls.Config)

	cfg := app.DefaultOperatorConfig()

	flag.StringVar(&metricsAddr, "metrics-bind-address", "0", "The address the metrics endpoint binds to. "+
		"Use :8443 for HTTPS or :8080 for HTTP, or leave as 0 to disable the metrics service.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.BoolVar(&enableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	flag.BoolVar(&secureMetrics, "metrics-secure", true,
		"If set, the metrics endpoint is served securely via HTTPS. Use --metrics-secure=false to use HTTP instead.")
	flag.BoolVar(&enableHTTP2, "enable-http2", false,
		"If set, HTTP/2 will be enabled for the metrics and webhook servers")
	flag.BoolVar(&enableWebhooks, "enable-webhooks", false, "Serve the PostgresDatabase admission webhooks.")
	flag.StringVar(&webhookCertDir, "webhook-cert-dir", "", "The directory that contains the webhook certificate.")
	flag.StringVar(&platformConfig, "platform-config", "",
		"Path to the platform tables YAML file. The built-in defaults are used when empty.")

	flag.DurationVar(&cfg.DriftInterval, "drift-interval", cfg.DriftInterval,
		"How often a Ready database is re-read to detect drift on its PostgresCluster.")
	flag.StringVar(&cfg.InstanceID, "instance-id", cfg.InstanceID,
		"Only reconcile PostgresDatabases labeled with this operator instance ID.")
	flag.IntVar(&cfg.MaxConcurrentReconciles, "max-concurrent-reconciles", cfg.MaxConcurrentReconciles,
		"Maximum number of PostgresDatabases reconciled in parallel.")
	flag.DurationVar(&cfg.APITimeout, "api-timeout", cfg.APITimeout,
		"Deadline for each Kubernetes API call made while reconciling.")
	flag.DurationVar(&cfg.FailureDeadline, "failure-deadline", cfg.FailureDeadline,
		"How long retries may keep failing before a database is marked Failed.")
	flag.DurationVar(&cfg.Backoff.InitialInterval, "backoff-initial", cfg.Backoff.InitialInterval,
		"Requeue delay after the first failed reconcile.")
	flag.DurationVar(&cfg.Backoff.MaxInterval, "backoff-max", cfg.Backoff.MaxInterval,
		"Ceiling for the requeue delay after repeated failures.")

	opts := zap.Options{
		Development: true,
		TimeEncoder: zapcore.ISO8601TimeEncoder,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	// Disabling http/2 avoids the HTTP/2 Stream Cancellation and Rapid Reset
	// vulnerabilities (CVE-2023-44487, CVE-2023-39325).
	disableHTTP2 := func(c *tls.Config) {
		setupLog.Info("disabling http/2")
		c.NextProtos = []string{"http/1.1"}
	}
	if !enableHTTP2 {
		tlsOpts = append(tlsOpts, disableHTTP2)
	}

	if platformConfig != "" {
		tables, err := platform.LoadFile(platformConfig)
		if err != nil {
			setupLog.Error(err, "unable to load platform config", "path", platformConfig)
			os.Exit(1)
		}
		cfg.Platform = tables
	}

	metricsServerOptions := metricsserver.Options{
		BindAddress:   metricsAddr,
		SecureServing: secureMetrics,
		TLSOpts:       tlsOpts,
	}
	if secureMetrics {
		metricsServerOptions.FilterProvider = filters.WithAuthenticationAndAuthorization
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsServerOptions,
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "pgplatform-operator.db.pgplatform.io",
		WebhookServer: webhook.NewServer(webhook.Options{
			CertDir: webhookCertDir,
			TLSOpts: tlsOpts,
		}),
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	application, err := app.NewApplication(mgr, cfg)
	if err != nil {
		setupLog.Error(err, "unable to create application")
		os.Exit(1)
	}
	if err := application.SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "PostgresDatabase")
		os.Exit(1)
	}

	if enableWebhooks {
		if err := webhookv1alpha1.SetupPostgresDatabaseWebhookWithManager(mgr, cfg.Platform); err != nil {
			setupLog.Error(err, "unable to create webhook", "webhook", "PostgresDatabase")
			os.Exit(1)
		}
	}
	// +kubebuilder:scaffold:builder

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager", "instanceID", cfg.InstanceID, "driftInterval", cfg.DriftInterval)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}
