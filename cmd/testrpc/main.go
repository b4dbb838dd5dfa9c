package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"
	"text/tabwriter"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	stdopentracing "github.com/opentracing/opentracing-go"
	zipkinot "github.com/openzipkin-contrib/zipkin-go-opentracing"
	"github.com/openzipkin/zipkin-go"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coinbub/testrpc/metrics"
	"github.com/coinbub/testrpc/metrics/prometheus"
	"github.com/coinbub/testrpc/pkg/addendpoint"
	"github.com/coinbub/testrpc/pkg/addservice"
	"github.com/coinbub/testrpc/pkg/addtransport"
)

func main() {
	// Define our flags. Your service probably won't need to bind listeners for
	// every transport, but it can do so.
	fs := flag.NewFlagSet("testrpc", flag.ExitOnError)
	var (
		httpAddr  = fs.String("http-addr", "0.0.0.0:8080", "JSON RPC over HTTP listen address")
		debugAddr = fs.String("debug-addr", "", "Debug and metrics listen address, disabled if empty")
		logFormat = fs.String("log-format", "logfmt", "Log format: logfmt or json")
		logLevel  = fs.String("log-level", "info", "Log level: debug, info, warn or error")
		zipkinURL = fs.String("zipkin-url", "", "Enable Zipkin tracing via HTTP reporter URL e.g. http://localhost:9411/api/v2/spans")
	)
	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	fs.Parse(os.Args[1:])

	// Create a single logger, which we'll use and give to other components.
	logger, err := newLogger(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// Determine which tracer to use. We'll pass the tracer to all the
	// components that use it, as a dependency.
	var tracer stdopentracing.Tracer
	{
		if *zipkinURL != "" {
			reporter := zipkinhttp.NewReporter(*zipkinURL)
			defer reporter.Close()
			zEP, _ := zipkin.NewEndpoint("testrpc", *httpAddr)
			zipkinTracer, err := zipkin.NewTracer(reporter, zipkin.WithLocalEndpoint(zEP))
			if err != nil {
				level.Error(logger).Log("during", "zipkin.NewTracer", "err", err)
				os.Exit(1)
			}
			level.Info(logger).Log("tracer", "Zipkin", "URL", *zipkinURL)
			tracer = zipkinot.Wrap(zipkinTracer)
		} else {
			tracer = stdopentracing.NoopTracer{}
		}
	}

	// Create the (sparse) metrics we'll use in the service. They, too, are
	// dependencies that we pass to components that use them.
	var added metrics.Counter
	{
		// Business-level metrics.
		added = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: "testrpc",
			Subsystem: "addsvc",
			Name:      "numbers_added",
			Help:      "Total count of successful additions.",
		}, []string{})
	}
	var duration metrics.Histogram
	{
		// Endpoint-level metrics.
		duration = prometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
			Namespace: "testrpc",
			Subsystem: "addsvc",
			Name:      "request_duration_seconds",
			Help:      "Request duration in seconds.",
		}, []string{"method", "success"})
	}

	// Build the layers of the service "onion" from the inside out. First, the
	// business logic service; then, the set of endpoints that wrap the service;
	// and finally, the transport that exposes the endpoints.
	var (
		service     = addservice.New(logger, added)
		endpoints   = addendpoint.New(service, logger, duration, tracer)
		httpHandler = addtransport.NewJSONRPCHandler(endpoints, logger, tracer)
	)

	// Now we're to the part of the func main where we want to start actually
	// running things, like servers bound to listeners to receive connections.
	//
	// The method is the same for each component: add a new actor to the group
	// struct, which is a combination of 2 anonymous functions: the first
	// function actually runs the component, and the second function should
	// interrupt the first function and cause it to return.
	var g run.Group
	if *debugAddr != "" {
		// The debug listener mounts the http.DefaultServeMux, and serves up
		// stuff like the Prometheus metrics route.
		debugListener, err := net.Listen("tcp", *debugAddr)
		if err != nil {
			level.Error(logger).Log("transport", "debug/HTTP", "during", "Listen", "err", err)
			os.Exit(1)
		}
		http.DefaultServeMux.Handle("/metrics", promhttp.Handler())
		g.Add(func() error {
			level.Info(logger).Log("transport", "debug/HTTP", "addr", *debugAddr)
			return http.Serve(debugListener, http.DefaultServeMux)
		}, func(error) {
			debugListener.Close()
		})
	}
	{
		// The HTTP listener mounts the JSON RPC handler we created.
		httpListener, err := net.Listen("tcp", *httpAddr)
		if err != nil {
			level.Error(logger).Log("transport", "HTTP", "during", "Listen", "err", err)
			os.Exit(1)
		}
		g.Add(func() error {
			level.Info(logger).Log("msg", "Starting HTTP server ...")
			level.Info(logger).Log("URL", "http://"+httpListener.Addr().String())
			return http.Serve(httpListener, httpHandler)
		}, func(error) {
			httpListener.Close()
		})
	}
	{
		// This function just sits and waits for ctrl-C.
		g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))
	}
	level.Info(logger).Log("exit", g.Run())
}

// newLogger returns a logger in the given format, filtered to the given
// level, stamping every line with a timestamp and the caller.
func newLogger(w io.Writer, format, lvl string) (log.Logger, error) {
	var logger log.Logger
	switch format {
	case "logfmt":
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	case "json":
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	var allow level.Option
	switch lvl {
	case "debug":
		allow = level.AllowDebug()
	case "info":
		allow = level.AllowInfo()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		return nil, fmt.Errorf("unknown log level %q", lvl)
	}

	logger = level.NewFilter(logger, allow)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	return logger, nil
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}
