package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"philjaps/blobstore"
	"philjaps/docstore"
	"philjaps/gallery"
	"philjaps/healthz"
	"philjaps/httpapi"
	"philjaps/httpmetrics"
	"philjaps/identity"
	"philjaps/mailer"
	"philjaps/provision"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"contrib.go.opencensus.io/exporter/stackdriver"
	firebase "firebase.google.com/go/v4"
	"github.com/golang/glog"
	"github.com/joho/godotenv"
	"github.com/sendgrid/sendgrid-go"
	"google.golang.org/api/option"
)

var (
	listen          = flag.String("listen", "0.0.0.0:3002", "Server address:port for the API endpoint.")
	debugListen     = flag.String("debug-listen", "127.0.0.1:8001", "Server address:port for the debug endpoint.")
	dataProject     = flag.String("data-project", "", "GCP project that contains the application state.")
	storageBucket   = flag.String("storage-bucket", "", "Bucket that holds uploaded images.")
	credentialsFile = flag.String("credentials-file", "", "Service-account key file for Firebase and the data stores.  Empty uses ambient credentials.")
	sendgridKey     = flag.String("sendgrid-key", "", "SendGrid API key for welcome mail.  Empty disables mail.")
	mailFrom        = flag.String("mail-from", "bot@philjaps.dev", "From address for welcome mail.")
	callTimeout     = flag.Duration("call-timeout", 30*time.Second, "Per-request deadline for all external calls.")
	enableMetrics   = flag.Bool("enable-metrics", false, "")
)

func main() {
	// A local .env can pre-populate the environment before flag parsing.
	godotenv.Load()
	flag.Parse()

	glog.Infof("flags:")
	glog.Infof("listen: %v", *listen)
	glog.Infof("debug-listen: %v", *debugListen)
	glog.Infof("data-project: %v", *dataProject)
	glog.Infof("storage-bucket: %v", *storageBucket)
	glog.Infof("call-timeout: %v", *callTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := do(ctx); err != nil {
		glog.Exitf("Error: %v", err)
	}
}

func do(ctx context.Context) error {
	ready := healthz.New()
	ready.Set(false)

	debugServeMux := http.NewServeMux()
	debugServeMux.Handle("/healthz", healthz.New())
	debugServeMux.Handle("/readyz", ready)
	debugServeMux.HandleFunc("/debug/pprof/", pprof.Index)
	debugServeMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	debugServeMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	debugServeMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	debugServeMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	debugServer := &http.Server{
		Addr:    *debugListen,
		Handler: debugServeMux,

		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		if err := debugServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("Debug server died: %v", err)
		}
	}()

	var opts []option.ClientOption
	if *credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(*credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     *dataProject,
		StorageBucket: *storageBucket,
	}, opts...)
	if err != nil {
		return fmt.Errorf("while creating Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return fmt.Errorf("while creating Firebase Auth client: %w", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, *dataProject, opts...)
	if err != nil {
		return fmt.Errorf("while creating Firestore client: %w", err)
	}

	gcsClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("while creating GCS client: %w", err)
	}

	docs := docstore.NewFirestore(firestoreClient)
	blobs := blobstore.NewGCS(gcsClient, *storageBucket)
	provider := identity.NewFirebase(authClient)
	verifier := identity.NewVerifier(provider)

	var welcome provision.WelcomeMailer
	if *sendgridKey != "" {
		welcome = mailer.New(sendgrid.NewSendClient(*sendgridKey), "PhilJaps", *mailFrom)
	}

	registrar := provision.New(provider, docs, blobs, welcome)
	resolver := gallery.NewResolver(docs)
	uploader := gallery.NewUploader(docs, blobs)

	api := httpapi.New(verifier, registrar, resolver, uploader, *callTimeout)
	wrapped := httpmetrics.New(api.Router())

	if *enableMetrics {
		exporter, err := stackdriver.NewExporter(stackdriver.Options{
			MetricPrefix:      "philjaps",
			ReportingInterval: 60 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("while initializing metrics: %w", err)
		}
		if err := exporter.StartMetricsExporter(); err != nil {
			return fmt.Errorf("while starting metrics exporter: %w", err)
		}
		defer exporter.Flush()
		defer exporter.StopMetricsExporter()

		wrapped.RegisterMetrics()
	}

	server := &http.Server{
		Addr:    *listen,
		Handler: wrapped,

		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("API server died: %v", err)
		}
	}()

	ready.Set(true)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	<-signalCh

	ready.Set(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("Error during API server shutdown: %v", err)
	}
	if err := debugServer.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("Error during debug server shutdown: %v", err)
	}

	glog.Flush()

	return nil
}
