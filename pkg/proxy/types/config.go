package types

import "time"

// Defaults is the process-wide, immutable configuration record
// (spec.md §9 "Global module-level defaults"). It is never mutated in
// place; Configuration is built by applying Options over a copy of it.
type Defaults struct {
	RegistryHost                string
	RegistryPort                int
	MaxRetries                  int
	BaseRetryInterval           time.Duration
	DelayForSlowJoiner          time.Duration
	EnableRejoin                bool
	PeerUpdateFrequency         time.Duration
	EnableMessageCacheForRejoin bool
	MaxWaitTimeForRejoin        time.Duration
	MinimalPeers                float64
	RejoinCacheCapacity         int
	LogEnable                   bool
}

// DefaultParameters returns the package-wide default record, the Go
// analogue of the original's module-level `default_parameters` object.
func DefaultParameters() Defaults {
	return Defaults{
		RegistryHost:                "localhost",
		RegistryPort:                6379,
		MaxRetries:                  5,
		BaseRetryInterval:           100 * time.Millisecond,
		DelayForSlowJoiner:          500 * time.Millisecond,
		EnableRejoin:                false,
		PeerUpdateFrequency:         3 * time.Second,
		EnableMessageCacheForRejoin: false,
		MaxWaitTimeForRejoin:        30 * time.Second,
		MinimalPeers:                1.0,
		RejoinCacheCapacity:         1024,
		LogEnable:                   true,
	}
}

// MinimalPeersByType maps a peer type to its minimal-peers fraction.
// Types missing from it use the scalar Defaults.MinimalPeers;
// ResolvedMinimalPeers turns the fractions into absolute counts.
type MinimalPeersByType map[string]float64

// Configuration is the fully-resolved, immutable set of options a Proxy
// is constructed with.
type Configuration struct {
	GroupName      string
	ComponentType  string
	ExpectedPeers  map[string]int
	DriverType     string
	DriverParams   map[string]interface{}

	Defaults Defaults

	EnableRejoin                bool
	MinimalPeers                MinimalPeersByType
	PeerUpdateFrequency         time.Duration
	EnableMessageCacheForRejoin bool
	MaxWaitTimeForRejoin        time.Duration
	MaxRetries                  int
	BaseRetryInterval           time.Duration
	LogEnable                   bool
}

// Option mutates a Configuration under construction.
type Option func(*Configuration)

// NewConfiguration applies opts over a copy of DefaultParameters and the
// required group/component/census triple.
func NewConfiguration(groupName, componentType string, expectedPeers map[string]int, opts ...Option) *Configuration {
	d := DefaultParameters()
	cfg := &Configuration{
		GroupName:                   groupName,
		ComponentType:               componentType,
		ExpectedPeers:               expectedPeers,
		DriverType:                  "loopback",
		Defaults:                    d,
		EnableRejoin:                d.EnableRejoin,
		MinimalPeers:                nil,
		PeerUpdateFrequency:         d.PeerUpdateFrequency,
		EnableMessageCacheForRejoin: d.EnableMessageCacheForRejoin,
		MaxWaitTimeForRejoin:        d.MaxWaitTimeForRejoin,
		MaxRetries:                  d.MaxRetries,
		BaseRetryInterval:           d.BaseRetryInterval,
		LogEnable:                   d.LogEnable,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithDriver sets the driver type and its parameters.
func WithDriver(driverType string, params map[string]interface{}) Option {
	return func(c *Configuration) {
		c.DriverType = driverType
		c.DriverParams = params
	}
}

// WithRejoin enables the RejoinController, with a per-type minimal-peers
// fraction mapping; types it omits use Defaults.MinimalPeers.
func WithRejoin(minimalPeers MinimalPeersByType, peerUpdateFrequency time.Duration, enableMessageCache bool, maxWaitTimeForRejoin time.Duration) Option {
	return func(c *Configuration) {
		c.EnableRejoin = true
		c.MinimalPeers = minimalPeers
		c.PeerUpdateFrequency = peerUpdateFrequency
		c.EnableMessageCacheForRejoin = enableMessageCache
		c.MaxWaitTimeForRejoin = maxWaitTimeForRejoin
	}
}

// WithRetries overrides the Rendezvous retry schedule.
func WithRetries(maxRetries int, baseRetryInterval time.Duration) Option {
	return func(c *Configuration) {
		c.MaxRetries = maxRetries
		c.BaseRetryInterval = baseRetryInterval
	}
}

// WithLogEnable toggles the internal logger on or off.
func WithLogEnable(enable bool) Option {
	return func(c *Configuration) {
		c.LogEnable = enable
	}
}

// ResolvedMinimalPeers computes the absolute per-type minimum:
// max(1, floor(expected * fraction)), per spec.md §4.3.
func (c *Configuration) ResolvedMinimalPeers() map[string]int {
	out := make(map[string]int, len(c.ExpectedPeers))
	for peerType, expected := range c.ExpectedPeers {
		fraction := c.Defaults.MinimalPeers
		if c.MinimalPeers != nil {
			if f, ok := c.MinimalPeers[peerType]; ok {
				fraction = f
			}
		}
		min := int(float64(expected) * fraction)
		if min < 1 {
			min = 1
		}
		out[peerType] = min
	}
	return out
}
