package config

import "time"

const (
	DefaultBrokerAddress = "127.0.0.1"

	// DefaultRendezvousPort is where workers ask which port serves their channel.
	DefaultRendezvousPort = 16000

	// DefaultWorkerStartPort is the first port assigned to channel groups.
	DefaultWorkerStartPort = DefaultRendezvousPort + 10

	DefaultAPIAddress = "0.0.0.0"
	DefaultAPIPort    = "8870"

	// DefaultReplyCeiling bounds how long a caller may wait for a worker reply.
	// Device maintenance sessions can run for a long time, hence hours.
	DefaultReplyCeiling = 2 * time.Hour

	// DispatcherTick is the poll interval of each channel socket loop.
	DispatcherTick = 100 * time.Millisecond

	// WorkerTTL is how long a channel stays active after its last announce.
	WorkerTTL = 90 * time.Second

	// HeartbeatInterval is how often a worker re-announces its channel.
	HeartbeatInterval = 30 * time.Second

	DefaultPoolSize = 10

	DefaultSessionTimeout = 30 * time.Second
	EnablePromptTimeout   = 5 * time.Second

	DefaultSNMPPort           = 161
	DefaultSNMPTimeout        = 5 * time.Second
	DefaultSNMPRetries        = 1
	DefaultSNMPMaxRepetitions = 25

	DirectoryRefreshInterval = time.Hour

	HTTPReadHeaderTimeout = 10 * time.Second

	SnapshotFileName = "device_credential.json"
	ChannelsFileName = "channels.yaml"
)
