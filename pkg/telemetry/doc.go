// Package telemetry provides the observability instrumentation for
// openwatt: structured logging (zerolog), metrics (Prometheus), and
// distributed tracing (OpenTelemetry).
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Components receive child loggers through NewComponentLogger and report
// domain metrics (entities added, group forces, solver runs) through the
// Metrics collector.
package telemetry
