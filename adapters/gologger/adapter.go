package gologger

import (
	"strings"

	"github.com/goliatone/go-bridge-ledger/core"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

const DefaultLoggerName = "ledger"

// Loggers is one resolved logging setup shared by the ledger service, the
// release worker and the go-job runtime that drives it.
type Loggers struct {
	Name        string
	Provider    glog.LoggerProvider
	Logger      glog.Logger
	JobProvider job.LoggerProvider
	JobLogger   job.Logger
}

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) Loggers {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultLoggerName
	}
	resolvedProvider, resolvedLogger := glog.Resolve(name, provider, logger)
	resolvedLogger = glog.Ensure(resolvedLogger)
	return Loggers{
		Name:        name,
		Provider:    resolvedProvider,
		Logger:      resolvedLogger,
		JobProvider: ToJobProvider(resolvedProvider),
		JobLogger:   ToJobLogger(resolvedLogger),
	}
}

// Named returns the component logger "<name>.<component>".
func (l Loggers) Named(component string) glog.Logger {
	component = strings.TrimSpace(component)
	if l.Provider == nil || component == "" {
		return glog.Ensure(l.Logger)
	}
	return glog.Ensure(l.Provider.GetLogger(l.Name + "." + component))
}

func (l Loggers) ServiceOptions() []core.Option {
	opts := make([]core.Option, 0, 2)
	if l.Provider != nil {
		opts = append(opts, core.WithLoggerProvider(l.Provider))
	}
	if l.Logger != nil {
		opts = append(opts, core.WithLogger(l.Logger))
	}
	return opts
}

func (l Loggers) ReleaseWorkerOptions() []core.ReleaseWorkerOption {
	return []core.ReleaseWorkerOption{core.WithReleaseWorkerLogger(l.Named("release"))}
}

// ToJobProvider maps a glog provider to the go-job logger provider contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}
