package taskname

const (
	// Activation log tasks
	ActivationLogPurge = "activation_log:purge"
)
