package cmd

import (
	"fmt"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/databacker/docker-database-backup/pkg/util"
)

const (
	appName = util.DefaultTracerName
)

// getTracer returns a tracer named after the application and the command being run.
func getTracer(cmd string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(fmt.Sprintf("%s/%s", appName, cmd))
}

func getTracerProvider() *sdktrace.TracerProvider {
	tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if !ok {
		return nil
	}
	return tp
}
