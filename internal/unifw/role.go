package unifw

// IsMaster reports whether this invocation owns the final universal
// assembly. The outer build pipeline launches the master directly; the
// master launches the slave with UNIFW_MASTER_PLATFORM set to its own
// platform. Role is a pure function of the environment snapshot because
// master and slave are separate processes that share nothing in memory.
func IsMaster(env Env) bool {
	marker, ok := env.Lookup(masterPlatformVar)
	if !ok {
		return true
	}
	return marker == env.Get("PLATFORM_NAME")
}
