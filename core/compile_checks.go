package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ OwnerReader     = (*memoryTx)(nil)
	_ ReleaseNotifier = NopReleaseNotifier{}
	_ ReleaseNotifier = ReleaseNotifierFunc(nil)
	_ ReleaseNotifier = (*JobReleaseNotifier)(nil)
	_ ReleaseHandler  = ReleaseHandlerFunc(nil)
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ OptionsResolver = GoOptionsResolver{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
