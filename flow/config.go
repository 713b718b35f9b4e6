package flow

import (
	"time"

	"kvflow/client"
)

type (
	// WorkloadConfig is read once before the run starts and not modified afterwards.
	WorkloadConfig struct {
		Enabled         bool
		KeyPrefix       string
		NumWorkers      int
		DurationSeconds int
		ReportPath      string
		// RandomSeed seeds the per-worker random sources; zero picks a time-based seed.
		RandomSeed      int64
		TTL             time.Duration
		FillerSizeBytes int
		Mix             Mix
	}
	// Mix holds the probabilities with which a transaction takes each optional branch.
	Mix struct {
		PutChainProbability         float64
		ConditionalWriteProbability float64
		FollowUpPutProbability      float64
	}
)

const flowKeyPath = "flow"

var DefaultMix = Mix{
	PutChainProbability:         0.5,
	ConditionalWriteProbability: 0.16666666666666666,
	FollowUpPutProbability:      0.5,
}

func PopulateWorkloadConfig(a client.ConfigPropertyAssigner) (*WorkloadConfig, error) {

	var assignmentOps []func() error

	var enabled bool
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(flowKeyPath+".enabled", client.ValidateBool, func(v any) {
			enabled = v.(bool)
		})
	})

	var keyPrefix string
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(flowKeyPath+".keyPrefix", client.ValidatePossiblyEmptyString, func(v any) {
			keyPrefix = v.(string)
		})
	})

	var numWorkers int
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(flowKeyPath+".numWorkers", client.ValidateInt, func(v any) {
			numWorkers = v.(int)
		})
	})

	var durationSeconds int
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(flowKeyPath+".durationSeconds", client.ValidateNonNegativeInt, func(v any) {
			durationSeconds = v.(int)
		})
	})

	var reportPath string
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(flowKeyPath+".reportPath", client.ValidateString, func(v any) {
			reportPath = v.(string)
		})
	})

	var randomSeed int
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(flowKeyPath+".randomSeed", client.ValidateNonNegativeInt, func(v any) {
			randomSeed = v.(int)
		})
	})

	var ttlSeconds int
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(flowKeyPath+".ttlSeconds", client.ValidateInt, func(v any) {
			ttlSeconds = v.(int)
		})
	})

	var fillerSizeBytes int
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(flowKeyPath+".fillerSizeBytes", client.ValidateNonNegativeInt, func(v any) {
			fillerSizeBytes = v.(int)
		})
	})

	mix := DefaultMix
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(flowKeyPath+".mix.putChainProbability", client.ValidatePercentage, func(v any) {
			mix.PutChainProbability = client.AsFloat64(v)
		})
	})

	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(flowKeyPath+".mix.conditionalWriteProbability", client.ValidatePercentage, func(v any) {
			mix.ConditionalWriteProbability = client.AsFloat64(v)
		})
	})

	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(flowKeyPath+".mix.followUpPutProbability", client.ValidatePercentage, func(v any) {
			mix.FollowUpPutProbability = client.AsFloat64(v)
		})
	})

	for _, f := range assignmentOps {
		if err := f(); err != nil {
			return nil, err
		}
	}

	return &WorkloadConfig{
		Enabled:         enabled,
		KeyPrefix:       keyPrefix,
		NumWorkers:      numWorkers,
		DurationSeconds: durationSeconds,
		ReportPath:      reportPath,
		RandomSeed:      int64(randomSeed),
		TTL:             time.Duration(ttlSeconds) * time.Second,
		FillerSizeBytes: fillerSizeBytes,
		Mix:             mix,
	}, nil

}
